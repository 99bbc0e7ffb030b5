// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package wasabi

import (
	"strings"
	"testing"

	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
	"github.com/metasub/utils/config"
)

func TestConfig(t *testing.T) {
	p := config.New()
	assert.NoError(t, p.Parse(strings.NewReader(`
param wasabi (
	bucket = "metasub-test"
	threads = 2
	profile = ""
	public_files = "/data/public_files.txt"
)
`)))
	var b *Bucket
	assert.NoError(t, p.Instance("wasabi", &b))
	defer b.Close() // nolint: errcheck
	expect.EQ(t, b.Name(), "metasub-test")
	expect.EQ(t, b.Endpoint(), DefaultEndpoint)
	expect.EQ(t, b.PublicFiles, "/data/public_files.txt")
}
