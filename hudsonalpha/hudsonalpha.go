// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package hudsonalpha downloads sequencing data from the Hudson Alpha
// sequencing center into the MetaSUB library.
//
// Each flowcell is described by a files_<flowcell>.txt listing of
// fastq URLs and a filenames_<flowcell>.txt table mapping sequencing
// library (SL) names to sample names. A flowcell is downloaded into
// <library>/<HA project>/<flowcell>; fastq files whose SL name is
// already in the library are skipped.
package hudsonalpha

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/metasub/utils/errors"
	"github.com/metasub/utils/internal/httputil"
	"github.com/metasub/utils/log"
	"github.com/metasub/utils/naming"
	"github.com/metasub/utils/pathglob"
	"github.com/metasub/utils/retry"
	"github.com/metasub/utils/traverse"
	"golang.org/x/net/context/ctxhttp"
)

// DefaultURL is the Hudson Alpha download server.
const DefaultURL = "http://gsldl.hudsonalpha.org/"

// DefaultWorkers is the number of concurrent fastq downloads.
const DefaultWorkers = 50

var defaultRetryPolicy = retry.MaxRetries(retry.Jitter(retry.Backoff(time.Second, time.Minute, 2), 0.25), 5)

// Flowcell is an entry of the flowcell table.
type Flowcell struct {
	// Project is the MetaSUB project, e.g. CSD16.
	Project string
	// HAProject is the Hudson Alpha project id, e.g. haib17CEM4890.
	HAProject string
	// Date is the delivery date, if recorded.
	Date string
	// FilesURL is the location of the files listing, relative to the
	// download server.
	FilesURL string
}

// Number returns the flowcell number.
func (f Flowcell) Number() string {
	return naming.FlowcellNumber(f.FilesURL)
}

// ReadFlowcells reads a flowcell table: CSV rows of
// project, _, HA project, [date,] files URL. Blank lines are skipped.
func ReadFlowcells(r io.Reader) ([]Flowcell, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	var flowcells []Flowcell
	for {
		row, err := cr.Read()
		if err == io.EOF {
			return flowcells, nil
		}
		if err != nil {
			return nil, errors.E(errors.Invalid, "hudsonalpha: read flowcell table", err)
		}
		for i := range row {
			row[i] = strings.TrimSpace(row[i])
		}
		var f Flowcell
		switch len(row) {
		case 4:
			f = Flowcell{Project: row[0], HAProject: row[2], FilesURL: row[3]}
		case 5:
			f = Flowcell{Project: row[0], HAProject: row[2], Date: row[3], FilesURL: row[4]}
		default:
			line, _ := cr.FieldPos(0)
			return nil, errors.E(errors.Invalid, fmt.Sprintf("hudsonalpha: flowcell table line %d: expected 4 or 5 fields, got %d", line, len(row)))
		}
		flowcells = append(flowcells, f)
	}
}

// ReadFileList reads a files listing: one URL per line.
func ReadFileList(r io.Reader) ([]string, error) {
	var urls []string
	scan := bufio.NewScanner(r)
	for scan.Scan() {
		if line := strings.TrimSpace(scan.Text()); line != "" {
			urls = append(urls, line)
		}
	}
	if err := scan.Err(); err != nil {
		return nil, errors.E("hudsonalpha: read file list", err)
	}
	return urls, nil
}

// slName returns the SL name of a fastq URL: the last '_' separated
// element before ".fastq.gz".
func slName(url string) string {
	name := url
	if i := strings.Index(name, ".fastq.gz"); i >= 0 {
		name = name[:i]
	}
	return name[strings.LastIndexByte(name, '_')+1:]
}

// ExistingSLNames returns the SL names of the paired fastq files in a
// library directory.
func ExistingSLNames(dir string) (map[string]bool, error) {
	files, err := pathglob.Expand(filepath.Join(dir, "*.fastq.gz"))
	if err != nil {
		return nil, err
	}
	names := make(map[string]bool)
	for _, file := range files {
		root, _, err := naming.RootAndReadNumber(file)
		if err != nil {
			continue
		}
		names[naming.SLName(root)] = true
	}
	return names, nil
}

// Downloader downloads flowcells into a library.
type Downloader struct {
	// URL is the download server.
	URL string
	// Username and Password authenticate with the server.
	Username, Password string
	// Library is the root of the library.
	Library string
	// Workers is the number of concurrent fastq downloads.
	Workers int
	// Client issues requests. If nil, http.DefaultClient is used.
	Client *http.Client
	// Retry is the policy used to retry temporary failures.
	Retry retry.Policy
	// Out receives one line per planned fastq download.
	Out io.Writer
}

// NewDownloader returns a downloader with default settings.
func NewDownloader(username, password, library string) *Downloader {
	return &Downloader{
		URL:      DefaultURL,
		Username: username,
		Password: password,
		Library:  library,
		Workers:  DefaultWorkers,
		Retry:    defaultRetryPolicy,
		Out:      os.Stdout,
	}
}

func (d *Downloader) resolve(url string) string {
	if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
		return url
	}
	return strings.TrimSuffix(d.URL, "/") + "/" + strings.TrimPrefix(url, "/")
}

// ProcessFlowcells downloads each flowcell in turn. The listings are
// downloaded even when dryrun is set, since they determine which
// fastq files are planned. A failed flowcell is logged and the
// remaining flowcells are processed; the first failure is returned.
func (d *Downloader) ProcessFlowcells(ctx context.Context, flowcells []Flowcell, dryrun bool) error {
	var once errors.Once
	for _, f := range flowcells {
		if err := d.ProcessFlowcell(ctx, f, dryrun); err != nil {
			log.Error.Printf("flowcell %s: %v", f.Number(), err)
			once.Set(err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return once.Err()
}

// ProcessFlowcell downloads one flowcell's listings and the fastq
// files not yet in its library directory.
func (d *Downloader) ProcessFlowcell(ctx context.Context, f Flowcell, dryrun bool) error {
	dir := filepath.Join(d.Library, f.HAProject, f.Number())
	if err := os.MkdirAll(dir, 0777); err != nil {
		return errors.E("hudsonalpha: create library directory", err)
	}
	filesURL := d.resolve(f.FilesURL)
	filesPath := filepath.Join(dir, path.Base(filesURL))
	if err := d.Fetch(ctx, filesURL, filesPath); err != nil {
		return err
	}
	filenamesURL := naming.FilenamesURL(filesURL)
	if err := d.Fetch(ctx, filenamesURL, filepath.Join(dir, path.Base(filenamesURL))); err != nil {
		return err
	}
	existing, err := ExistingSLNames(dir)
	if err != nil {
		return err
	}
	in, err := os.Open(filesPath)
	if err != nil {
		return errors.E("hudsonalpha: open file list", err)
	}
	urls, err := ReadFileList(in)
	in.Close() // nolint: errcheck
	if err != nil {
		return err
	}
	type download struct{ url, path string }
	var todo []download
	for _, url := range urls {
		if existing[slName(url)] {
			continue
		}
		url = d.resolve(url)
		local := filepath.Join(dir, path.Base(url))
		if _, err := os.Stat(local); err == nil {
			continue
		}
		fmt.Fprintf(d.Out, "DOWNLOAD\t%s\t%s\n", url, local)
		todo = append(todo, download{url, local})
	}
	if dryrun || len(todo) == 0 {
		return nil
	}
	workers := d.Workers
	if workers < 1 {
		workers = 1
	}
	var once errors.Once
	err = traverse.Limit(workers).Each(len(todo), func(i int) error {
		if err := d.Fetch(ctx, todo[i].url, todo[i].path); err != nil {
			log.Error.Printf("%v", err)
			once.Set(err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	return once.Err()
}

// Fetch downloads url to a local path, retrying temporary failures.
// The file is written under a temporary name and renamed when
// complete.
func (d *Downloader) Fetch(ctx context.Context, url, local string) error {
	policy := d.Retry
	if policy == nil {
		policy = defaultRetryPolicy
	}
	return retry.Do(ctx, policy, func() error {
		return d.fetch(ctx, url, local)
	})
}

func (d *Downloader) fetch(ctx context.Context, url, local string) (err error) {
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return errors.E(errors.Invalid, "hudsonalpha: fetch", url, err)
	}
	if d.Username != "" || d.Password != "" {
		req.SetBasicAuth(d.Username, d.Password)
	}
	resp, err := ctxhttp.Do(ctx, d.Client, req)
	if err != nil {
		if ctx.Err() != nil {
			return errors.E("hudsonalpha: fetch", url, ctx.Err())
		}
		return errors.E(errors.Net, errors.Temporary, "hudsonalpha: fetch", url, err)
	}
	defer resp.Body.Close() // nolint: errcheck
	if err := httputil.CheckResponse(resp); err != nil {
		return errors.E(err, "hudsonalpha: fetch", url)
	}
	tmp := local + ".download"
	f, err := os.Create(tmp)
	if err != nil {
		return errors.E("hudsonalpha: create", tmp, err)
	}
	_, err = io.Copy(f, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp) // nolint: errcheck
		return errors.E(errors.Net, errors.Temporary, "hudsonalpha: download", url, err)
	}
	if err := os.Rename(tmp, local); err != nil {
		return errors.E("hudsonalpha: rename", tmp, err)
	}
	log.Debug.Printf("downloaded %s to %s", url, local)
	return nil
}
