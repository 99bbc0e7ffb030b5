// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package bridges

import (
	"bytes"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
	"github.com/metasub/utils/zurich"
)

const (
	goodDir      = "haib17CEM4890/H2NYMCCXY/PAR_1_1.fastq.gz.metaspades"
	unknownDir   = "haib17CEM4890/H2NYMCCXY/PAR_9_1.fastq.gz.metaspades"
	malformedDir = "other/DEN_3.R1.fastq.gz.metaspades"
)

var slTable = map[string]string{
	"PAR_1": "haib17CEM4890_H2NYMCCXY_SL254769",
}

func writeTree(t *testing.T, root string) {
	t.Helper()
	for _, name := range []string{
		goodDir + "/contigs.fasta",
		goodDir + "/scaffolds.fasta",
		goodDir + "/misc/spades.log",
		unknownDir + "/contigs.fasta",
		malformedDir + "/contigs.fasta",
		"haib17CEM4890/H2NYMCCXY/PAR_2_1.fastq.gz",
	} {
		path := filepath.Join(root, name)
		assert.NoError(t, os.MkdirAll(filepath.Dir(path), 0777))
		assert.NoError(t, ioutil.WriteFile(path, []byte(name), 0644))
	}
}

func TestMetaspadesDirs(t *testing.T) {
	root, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	writeTree(t, root)
	dirs, err := MetaspadesDirs(root)
	assert.NoError(t, err)
	expect.EQ(t, dirs, []string{
		filepath.Join(root, goodDir),
		filepath.Join(root, unknownDir),
		filepath.Join(root, malformedDir),
	})
}

func TestUploadAssemblies(t *testing.T) {
	root, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	writeTree(t, root)
	dirs, err := MetaspadesDirs(root)
	assert.NoError(t, err)

	knex, err := zurich.Dial(zurich.Options{Dryrun: true})
	assert.NoError(t, err)
	var out, errOut bytes.Buffer
	knex.Out = &out
	assert.NoError(t, UploadAssemblies(knex, "assemblies", dirs, slTable, &errOut))

	remote := "assemblies/haib17CEM4890/H2NYMCCXY/haib17CEM4890_H2NYMCCXY_SL254769.metaspades/"
	local := filepath.Join(root, goodDir)
	expect.EQ(t, strings.Split(strings.TrimSpace(out.String()), "\n"), []string{
		"[SFTP Knex] MAKEDIRS " + remote,
		"[SFTP Knex] UPLOAD " + local + "/contigs.fasta " + remote + "contigs.fasta",
		"[SFTP Knex] UPLOAD " + local + "/scaffolds.fasta " + remote + "scaffolds.fasta",
		"[SFTP Knex] MAKEDIRS " + remote + "misc/",
		"[SFTP Knex] UPLOAD " + local + "/misc/spades.log " + remote + "misc/spades.log",
	})
	expect.EQ(t, errOut.String(),
		"NO_UPLOAD KEY_ERROR "+filepath.Join(root, unknownDir)+"\n"+
			"NO_UPLOAD INDEX_ERROR "+filepath.Join(root, malformedDir)+"\n")
}

func TestCopyAssemblies(t *testing.T) {
	root, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	writeTree(t, root)
	dirs, err := MetaspadesDirs(root)
	assert.NoError(t, err)

	target := filepath.Join(root, "metasub_assemblies")
	dst := filepath.Join(target, "haib17CEM4890/H2NYMCCXY/haib17CEM4890_H2NYMCCXY_SL254769.metaspades")
	assert.NoError(t, os.MkdirAll(dst, 0777))
	assert.NoError(t, ioutil.WriteFile(filepath.Join(dst, "scaffolds.fasta"), []byte("kept"), 0644))

	var errOut bytes.Buffer
	assert.NoError(t, CopyAssemblies(target, dirs, slTable, &errOut))
	expect.EQ(t, strings.Count(errOut.String(), "NO_COPY"), 2)

	for name, want := range map[string]string{
		"contigs.fasta":   goodDir + "/contigs.fasta",
		"scaffolds.fasta": "kept",
		"misc/spades.log": goodDir + "/misc/spades.log",
	} {
		p, err := ioutil.ReadFile(filepath.Join(dst, name))
		assert.NoError(t, err)
		expect.EQ(t, string(p), want)
	}
}
