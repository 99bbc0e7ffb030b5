// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package athena

import (
	"strings"
	"testing"

	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
	"github.com/metasub/utils/config"
)

func TestConfig(t *testing.T) {
	p := config.New()
	var paths Paths
	assert.NoError(t, p.Instance("athena", &paths))
	expect.EQ(t, paths, DefaultPaths())

	p = config.New()
	assert.NoError(t, p.Parse(strings.NewReader(`param athena library = "/scratch/hudson_alpha_library"`)))
	assert.NoError(t, p.Instance("athena", &paths))
	expect.EQ(t, paths.Library, "/scratch/hudson_alpha_library")
	expect.EQ(t, paths.Results, DefaultResults)
}
