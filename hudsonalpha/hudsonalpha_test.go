// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package hudsonalpha

import (
	"bytes"
	"context"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
	"github.com/metasub/utils/errors"
	"github.com/metasub/utils/retry"
)

func TestReadFlowcells(t *testing.T) {
	flowcells, err := ReadFlowcells(strings.NewReader(`CSD16,x,haib17CEM4890,2017-06-01,haib17CEM4890/files_H2NYMCCXY.txt

CSD17, x, haib18CEM5453, pilot/files_HMGW3CCXY.txt
`))
	assert.NoError(t, err)
	expect.EQ(t, flowcells, []Flowcell{
		{Project: "CSD16", HAProject: "haib17CEM4890", Date: "2017-06-01", FilesURL: "haib17CEM4890/files_H2NYMCCXY.txt"},
		{Project: "CSD17", HAProject: "haib18CEM5453", FilesURL: "pilot/files_HMGW3CCXY.txt"},
	})
	expect.EQ(t, flowcells[0].Number(), "H2NYMCCXY")

	_, err = ReadFlowcells(strings.NewReader("CSD16,haib17CEM4890\n"))
	expect.True(t, errors.Is(errors.Invalid, err))
}

func TestSLName(t *testing.T) {
	for _, c := range []struct{ url, want string }{
		{"http://gsldl.hudsonalpha.org/H2NYMCCXY_s1_1_SL254769.fastq.gz", "SL254769"},
		{"H2NYMCCXY_s1_2_SL254769.fastq.gz", "SL254769"},
		{"SL254769.fastq.gz", "SL254769"},
	} {
		expect.EQ(t, slName(c.url), c.want)
	}
}

// haServer serves a flowcell behind basic authentication. The first
// request for each path in flaky fails with a server error.
type haServer struct {
	mu       sync.Mutex
	files    map[string]string
	flaky    map[string]bool
	requests map[string]int
}

func (s *haServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user, pass, ok := r.BasicAuth()
	if !ok || user != "metasub" || pass != "secret" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	s.mu.Lock()
	s.requests[r.URL.Path]++
	n := s.requests[r.URL.Path]
	s.mu.Unlock()
	if s.flaky[r.URL.Path] && n == 1 {
		http.Error(w, "try again", http.StatusServiceUnavailable)
		return
	}
	body, ok := s.files[r.URL.Path]
	if !ok {
		http.NotFound(w, r)
		return
	}
	fmt.Fprint(w, body)
}

func newHAServer(t *testing.T) (*haServer, *httptest.Server) {
	s := &haServer{flaky: make(map[string]bool), requests: make(map[string]int)}
	ts := httptest.NewServer(s)
	s.files = map[string]string{
		"/haib17CEM4890/files_H2NYMCCXY.txt": ts.URL + "/fastq/H2NYMCCXY_s1_1_SL254769.fastq.gz\n" +
			ts.URL + "/fastq/H2NYMCCXY_s1_2_SL254769.fastq.gz\n\n" +
			ts.URL + "/fastq/H2NYMCCXY_s1_1_SL254770.fastq.gz\n" +
			ts.URL + "/fastq/H2NYMCCXY_s1_2_SL254770.fastq.gz\n" +
			"fastq/H2NYMCCXY_s1_1_SL254771.fastq.gz\n",
		"/haib17CEM4890/filenames_H2NYMCCXY.txt":  "header\nheader\n\t\tSL254769\tPAR-1\n",
		"/fastq/H2NYMCCXY_s1_1_SL254769.fastq.gz": "@r1\n",
		"/fastq/H2NYMCCXY_s1_2_SL254769.fastq.gz": "@r2\n",
		"/fastq/H2NYMCCXY_s1_1_SL254771.fastq.gz": "@r1\n",
	}
	return s, ts
}

func newTestDownloader(ts *httptest.Server, library string) (*Downloader, *bytes.Buffer) {
	d := NewDownloader("metasub", "secret", library)
	d.URL = ts.URL + "/"
	d.Client = ts.Client()
	d.Retry = retry.MaxRetries(retry.Backoff(time.Millisecond, time.Millisecond, 1), 2)
	d.Workers = 2
	var out bytes.Buffer
	d.Out = &out
	return d, &out
}

func TestProcessFlowcell(t *testing.T) {
	library, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	s, ts := newHAServer(t)
	defer ts.Close()
	s.flaky["/fastq/H2NYMCCXY_s1_1_SL254769.fastq.gz"] = true

	dir := filepath.Join(library, "haib17CEM4890", "H2NYMCCXY")
	assert.NoError(t, os.MkdirAll(dir, 0777))
	// SL254770 was downloaded and renamed earlier.
	for _, name := range []string{"haib17CEM4890_H2NYMCCXY_SL254770_1.fastq.gz", "haib17CEM4890_H2NYMCCXY_SL254770_2.fastq.gz"} {
		assert.NoError(t, ioutil.WriteFile(filepath.Join(dir, name), nil, 0644))
	}

	d, out := newTestDownloader(ts, library)
	f := Flowcell{Project: "CSD16", HAProject: "haib17CEM4890", FilesURL: "haib17CEM4890/files_H2NYMCCXY.txt"}
	assert.NoError(t, d.ProcessFlowcell(context.Background(), f, true))
	want := []string{
		"DOWNLOAD\t" + ts.URL + "/fastq/H2NYMCCXY_s1_1_SL254769.fastq.gz\t" + dir + "/H2NYMCCXY_s1_1_SL254769.fastq.gz",
		"DOWNLOAD\t" + ts.URL + "/fastq/H2NYMCCXY_s1_2_SL254769.fastq.gz\t" + dir + "/H2NYMCCXY_s1_2_SL254769.fastq.gz",
		"DOWNLOAD\t" + ts.URL + "/fastq/H2NYMCCXY_s1_1_SL254771.fastq.gz\t" + dir + "/H2NYMCCXY_s1_1_SL254771.fastq.gz",
	}
	expect.EQ(t, strings.Split(strings.TrimSpace(out.String()), "\n"), want)
	_, err := os.Stat(filepath.Join(dir, "filenames_H2NYMCCXY.txt"))
	expect.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "H2NYMCCXY_s1_1_SL254769.fastq.gz"))
	expect.True(t, os.IsNotExist(err))

	out.Reset()
	assert.NoError(t, d.ProcessFlowcell(context.Background(), f, false))
	expect.EQ(t, strings.Split(strings.TrimSpace(out.String()), "\n"), want)
	p, err := ioutil.ReadFile(filepath.Join(dir, "H2NYMCCXY_s1_1_SL254769.fastq.gz"))
	assert.NoError(t, err)
	expect.EQ(t, string(p), "@r1\n")
	expect.EQ(t, s.requests["/fastq/H2NYMCCXY_s1_1_SL254769.fastq.gz"], 2)

	// Everything is now present.
	out.Reset()
	assert.NoError(t, d.ProcessFlowcell(context.Background(), f, false))
	expect.EQ(t, out.String(), "")
}

func TestProcessFlowcellsErrors(t *testing.T) {
	library, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	s, ts := newHAServer(t)
	defer ts.Close()
	delete(s.files, "/fastq/H2NYMCCXY_s1_1_SL254771.fastq.gz")

	d, _ := newTestDownloader(ts, library)
	flowcells := []Flowcell{
		{HAProject: "haib17CEM4890", FilesURL: "haib17CEM4890/files_MISSING.txt"},
		{HAProject: "haib17CEM4890", FilesURL: "haib17CEM4890/files_H2NYMCCXY.txt"},
	}
	err := d.ProcessFlowcells(context.Background(), flowcells, false)
	expect.True(t, errors.Is(errors.NotExist, err))
	// The second flowcell is processed despite the failure of the first.
	_, err = os.Stat(filepath.Join(library, "haib17CEM4890/H2NYMCCXY/H2NYMCCXY_s1_2_SL254769.fastq.gz"))
	expect.NoError(t, err)

	d.Password = "wrong"
	err = d.Fetch(context.Background(), ts.URL+"/haib17CEM4890/files_H2NYMCCXY.txt", filepath.Join(library, "files.txt"))
	expect.True(t, errors.Is(errors.NotAllowed, err))
}
