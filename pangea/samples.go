// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package pangea

import (
	"context"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/metasub/utils/errors"
	"github.com/metasub/utils/log"
	"github.com/metasub/utils/metadata"
)

// Module names of the results created for each sample.
const (
	NonhumanReadsModule = "nonhuman_reads"
	TaxonomyModule      = "krakenuniq_taxonomy"
)

// S3URI describes an object stored in the Wasabi bucket, in the form
// Pangea stores remote files.
func S3URI(endpoint, uri string) map[string]string {
	return map[string]string{
		"__type__":     "s3",
		"endpoint_url": endpoint,
		"uri":          uri,
	}
}

// MetadataValue converts a metadata cell for upload: numbers become
// float64, and other values are kept as strings. Empty and NaN cells
// are dropped (ok is false).
func MetadataValue(cell string) (v interface{}, ok bool) {
	cell = strings.TrimSpace(cell)
	if cell == "" || strings.EqualFold(cell, "nan") {
		return nil, false
	}
	f, err := strconv.ParseFloat(cell, 64)
	if err != nil || math.IsInf(f, 0) {
		return cell, true
	}
	return f, true
}

// SampleMetadata returns the uploadable metadata of a table row.
func SampleMetadata(header, row []string) map[string]interface{} {
	md := make(map[string]interface{})
	for i, col := range header {
		if i >= len(row) {
			break
		}
		if v, ok := MetadataValue(row[i]); ok {
			md[col] = v
		}
	}
	return md
}

// Taxa holds the relative abundance of each taxon in each sample.
type Taxa map[string]map[string]float64

// ReadTaxa reads a taxa table: a CSV file with one row per sample,
// keyed by its first column, and one column per taxon. Each sample's
// counts are normalized to proportions; taxa with a zero proportion
// are omitted.
func ReadTaxa(r io.Reader) (Taxa, error) {
	tbl, err := metadata.ReadCSV(r)
	if err != nil {
		return nil, errors.E(err, "pangea: read taxa table")
	}
	taxa := make(Taxa)
	for i, row := range tbl.Rows {
		if len(row) == 0 {
			continue
		}
		var (
			counts = make(map[string]float64)
			total  float64
		)
		for j := 1; j < len(row) && j < len(tbl.Header); j++ {
			if row[j] == "" {
				continue
			}
			v, err := strconv.ParseFloat(row[j], 64)
			if err != nil {
				return nil, errors.E(errors.Invalid, fmt.Sprintf("pangea: taxa table row %d column %q", i+2, tbl.Header[j]), err)
			}
			counts[tbl.Header[j]] = v
			total += v
		}
		props := make(map[string]float64)
		for taxon, v := range counts {
			if total > 0 && v > 0 {
				props[taxon] = v / total
			}
		}
		taxa[row[0]] = props
	}
	return taxa, nil
}

// Uploader creates MetaSUB samples on Pangea.
type Uploader struct {
	Knex *Knex
	// Metadata is the sample metadata, indexed by its uuid column.
	Metadata *metadata.Table
	// Taxa, if not nil, is uploaded as each sample's taxonomy.
	Taxa Taxa
	// Bucket is the name of the bucket holding the reads, used to
	// build URIs for bare keys.
	Bucket string
	// StorageEndpoint is the endpoint of the bucket holding the reads.
	StorageEndpoint string
	// Log receives the name of each sample as it is created.
	Log io.Writer
}

func (u *Uploader) uri(key string) map[string]string {
	if !strings.Contains(key, "://") {
		key = "s3://" + u.Bucket + "/" + key
	}
	return S3URI(u.StorageEndpoint, key)
}

// CreateSamples creates a sample for each entry of reads, a map from
// sample name to its nonhuman read files (read 1 first). Each sample
// gets its metadata, a nonhuman_reads result with fields read_1 and
// read_2, and, if the uploader has taxa, a krakenuniq_taxonomy result
// with field relative_abundance. Samples with fewer than two read
// files are skipped.
func (u *Uploader) CreateSamples(ctx context.Context, reads map[string][]string) error {
	index := map[string][]string{}
	if u.Metadata != nil {
		var err error
		if index, err = u.Metadata.Index(metadata.ColUUID); err != nil {
			return err
		}
	}
	names := make([]string, 0, len(reads))
	for name := range reads {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		files := reads[name]
		if len(files) < 2 {
			log.Printf("pangea: skipping sample %s: %d read files", name, len(files))
			continue
		}
		if u.Log != nil {
			fmt.Fprintln(u.Log, name)
		}
		var md map[string]interface{}
		if row, ok := index[name]; ok {
			md = SampleMetadata(u.Metadata.Header, row)
		} else {
			log.Printf("pangea: no metadata for sample %s", name)
		}
		sample, err := u.Knex.AddSample(ctx, name, md)
		if err != nil {
			return err
		}
		ar, err := u.Knex.AddSampleResult(ctx, sample.UUID, NonhumanReadsModule)
		if err != nil {
			return err
		}
		if _, err := u.Knex.AddSampleResultField(ctx, ar.UUID, "read_1", u.uri(files[0])); err != nil {
			return err
		}
		if _, err := u.Knex.AddSampleResultField(ctx, ar.UUID, "read_2", u.uri(files[1])); err != nil {
			return err
		}
		if u.Taxa == nil {
			continue
		}
		taxa, ok := u.Taxa[name]
		if !ok {
			log.Printf("pangea: no taxa for sample %s", name)
			continue
		}
		ar, err = u.Knex.AddSampleResult(ctx, sample.UUID, TaxonomyModule)
		if err != nil {
			return err
		}
		if _, err := u.Knex.AddSampleResultField(ctx, ar.UUID, "relative_abundance", taxa); err != nil {
			return err
		}
	}
	return nil
}
