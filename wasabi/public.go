// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package wasabi

import (
	"bufio"
	"context"
	"io"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/metasub/utils/errors"
	"github.com/metasub/utils/naming"
)

// ReadPublicFiles reads a list of public file keys, one per line.
func ReadPublicFiles(r io.Reader) ([]string, error) {
	var files []string
	scan := bufio.NewScanner(r)
	for scan.Scan() {
		if line := strings.TrimSpace(scan.Text()); line != "" {
			files = append(files, line)
		}
	}
	if err := scan.Err(); err != nil {
		return nil, errors.E("read public files", err)
	}
	return files, nil
}

// ListPublicFiles returns the keys of the bucket's public files,
// read from the file named by PublicFiles.
func (b *Bucket) ListPublicFiles(ctx context.Context) ([]string, error) {
	if b.PublicFiles == "" {
		return b.ListFiles(ctx)
	}
	f, err := os.Open(b.PublicFiles)
	if err != nil {
		return nil, errors.E("open public files list", b.PublicFiles, err)
	}
	defer f.Close() // nolint: errcheck
	return ReadPublicFiles(f)
}

// NonhumanReads groups the human filtered ("nonhuman") read files
// among files by sample name. If samples is non-nil, only the reads of
// the named samples are returned. Each group is sorted, so that read 1
// precedes read 2.
func NonhumanReads(files []string, samples map[string]bool) map[string][]string {
	reads := make(map[string][]string)
	for _, file := range files {
		if !strings.Contains(file, "nonhuman_read") || !strings.Contains(file, "/human_filtered_data/") {
			continue
		}
		name := naming.SampleName(path.Base(file))
		if samples != nil && !samples[name] {
			continue
		}
		reads[name] = append(reads[name], file)
	}
	for _, group := range reads {
		sort.Strings(group)
	}
	return reads
}

// NonhumanReads returns the public nonhuman read files of the given
// samples and of the samples of city and project, grouped by sample.
// With no samples, city or project, every sample's reads are
// returned.
func (b *Bucket) NonhumanReads(ctx context.Context, names []string, city, project string) (map[string][]string, error) {
	files, err := b.ListPublicFiles(ctx)
	if err != nil {
		return nil, err
	}
	samples, err := b.samples(ctx, city, project)
	if err != nil {
		return nil, err
	}
	if len(names) > 0 {
		if samples == nil {
			samples = make(map[string]bool)
		}
		for _, name := range names {
			samples[name] = true
		}
	}
	return NonhumanReads(files, samples), nil
}
