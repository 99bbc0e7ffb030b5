// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package cmdutil_test

import (
	"bytes"
	"runtime"
	"testing"

	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
	"github.com/metasub/utils/cmdutil"
	"v.io/x/lib/cmdline"
)

func TestVersionCommand(t *testing.T) {
	cmd := cmdutil.CreateVersionCommand("version", "metasub")
	var stdout, stderr bytes.Buffer
	env := &cmdline.Env{Stdout: &stdout, Stderr: &stderr, Vars: map[string]string{}}
	assert.NoError(t, cmdline.ParseAndRun(cmd, env, nil))
	expect.HasSubstr(t, stdout.String(), "metasub/(missing) (")
	expect.HasSubstr(t, stdout.String(), "arch="+runtime.GOARCH)
}
