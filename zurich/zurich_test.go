// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package zurich

import (
	"bytes"
	"io"
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grailbio/testutil"
	"github.com/metasub/utils/config"
	"github.com/metasub/utils/errors"
	"github.com/stretchr/testify/require"
)

type buffer struct {
	bytes.Buffer
	closed bool
}

func (b *buffer) Close() error {
	b.closed = true
	return nil
}

// fakeClient records the operations performed on it.
type fakeClient struct {
	dirs     []string
	files    map[string]*buffer
	symlinks map[string]string
	closed   bool
}

func newFakeClient() *fakeClient {
	return &fakeClient{files: make(map[string]*buffer), symlinks: make(map[string]string)}
}

func (c *fakeClient) MkdirAll(dir string) error {
	c.dirs = append(c.dirs, dir)
	return nil
}

func (c *fakeClient) Create(path string) (io.WriteCloser, error) {
	if strings.HasPrefix(path, "/readonly/") {
		return nil, errors.E(errors.NotAllowed, path)
	}
	b := new(buffer)
	c.files[path] = b
	return b, nil
}

func (c *fakeClient) Symlink(oldname, newname string) error {
	c.symlinks[newname] = oldname
	return nil
}

func (c *fakeClient) Close() error {
	c.closed = true
	return nil
}

func TestKnex(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	local := filepath.Join(dir, "contigs.fasta")
	require.NoError(t, ioutil.WriteFile(local, []byte(">contig_1\nACGT\n"), 0644))

	c := newFakeClient()
	var out bytes.Buffer
	k := &Knex{Out: &out, client: c}
	require.NoError(t, k.MakeDirs("assemblies/haib17CEM4890/H2NYMCCXY"))
	require.NoError(t, k.UploadFile(local, "assemblies/haib17CEM4890/H2NYMCCXY/contigs.fasta"))
	require.NoError(t, k.Symlink("assemblies/haib17CEM4890", "latest"))
	err := k.UploadFile(local, "/readonly/contigs.fasta")
	require.True(t, errors.Is(errors.NotAllowed, err), "%v", err)
	require.NoError(t, k.Close())

	require.Equal(t, []string{"assemblies/haib17CEM4890/H2NYMCCXY"}, c.dirs)
	f := c.files["assemblies/haib17CEM4890/H2NYMCCXY/contigs.fasta"]
	require.NotNil(t, f)
	require.Equal(t, ">contig_1\nACGT\n", f.String())
	require.True(t, f.closed)
	require.Equal(t, map[string]string{"latest": "assemblies/haib17CEM4890"}, c.symlinks)
	require.True(t, c.closed)
	require.Equal(t, "[SFTP Knex] MAKEDIRS assemblies/haib17CEM4890/H2NYMCCXY\n"+
		"[SFTP Knex] UPLOAD "+local+" assemblies/haib17CEM4890/H2NYMCCXY/contigs.fasta\n"+
		"[SFTP Knex] SYMLINK assemblies/haib17CEM4890 latest\n"+
		"[SFTP Knex] UPLOAD "+local+" /readonly/contigs.fasta\n", out.String())
}

func TestKnexDryrun(t *testing.T) {
	k, err := Dial(Options{Dryrun: true})
	require.NoError(t, err)
	var out bytes.Buffer
	k.Out = &out
	require.NoError(t, k.MakeDirs("assemblies"))
	require.NoError(t, k.UploadFile("/nonexistent/contigs.fasta", "assemblies/contigs.fasta"))
	require.NoError(t, k.Symlink("a", "b"))
	require.NoError(t, k.Close())
	require.Equal(t, 3, strings.Count(out.String(), "[SFTP Knex]"))
}

func TestDialNoHost(t *testing.T) {
	_, err := Dial(Options{Username: "metasub"})
	require.True(t, errors.Is(errors.Invalid, err))
}

func TestConfig(t *testing.T) {
	p := config.New()
	require.NoError(t, p.Parse(strings.NewReader(`
param zurich (
	host = "sftp.example.org"
	username = "metasub"
	assemblies = "/data/assemblies"
)
`)))
	var s *Server
	require.NoError(t, p.Instance("zurich", &s))
	require.Equal(t, "sftp.example.org", s.Host)
	require.Equal(t, DefaultPort, s.Port)
	require.Equal(t, "/data/assemblies", s.Assemblies)
}
