// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package pathglob

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

func TestParseGlob(t *testing.T) {
	for _, c := range []struct {
		in, prefix string
		hasGlob    bool
	}{
		{"foo/bar/baz*/*.txt", "foo/bar/", true},
		{"foo/bar.txt", "foo/bar.txt", false},
		{"*.txt", "", true},
		{"foo*", "", true},
	} {
		prefix, hasGlob, err := parseGlob(c.in)
		assert.NoError(t, err)
		expect.EQ(t, prefix, c.prefix, c.in)
		expect.EQ(t, hasGlob, c.hasGlob, c.in)
	}
}

func TestExpand(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	for _, path := range []string{
		"results/s1/s1.krakenhll.csv",
		"results/s1/s1.mash.csv",
		"results/s2/s2.krakenhll.csv",
		"spades/a/b/contigs.fasta",
		"spades/c/contigs.fasta",
		"spades/c/misc/broken.fasta",
	} {
		path = filepath.Join(dir, path)
		assert.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		assert.NoError(t, ioutil.WriteFile(path, []byte(path), 0644))
	}

	paths, err := Expand(dir + "/results/*/*")
	assert.NoError(t, err)
	expect.EQ(t, paths, []string{
		dir + "/results/s1/s1.krakenhll.csv",
		dir + "/results/s1/s1.mash.csv",
		dir + "/results/s2/s2.krakenhll.csv",
	})

	paths, err = Expand(dir + "/results/*")
	assert.NoError(t, err)
	expect.EQ(t, paths, []string{dir + "/results/s1", dir + "/results/s2"})

	files, err := Files(dir + "/results/*")
	assert.NoError(t, err)
	expect.EQ(t, len(files), 0)

	paths, err = Expand(dir + "/spades/**/contigs.fasta")
	assert.NoError(t, err)
	expect.EQ(t, paths, []string{
		dir + "/spades/a/b/contigs.fasta",
		dir + "/spades/c/contigs.fasta",
	})

	paths, err = Expand(dir + "/results/s1/s1.mash.csv")
	assert.NoError(t, err)
	expect.EQ(t, paths, []string{dir + "/results/s1/s1.mash.csv"})

	paths, err = Expand(dir + "/nonexistent/*")
	assert.NoError(t, err)
	expect.EQ(t, len(paths), 0)
}
