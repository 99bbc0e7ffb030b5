// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package tsv reads and writes the tab-separated tables exchanged
// with the sequencing center and produced by the data health checks.
package tsv

import (
	"encoding/csv"
	"io"
)

// Reader reads a TSV file. It wraps the standard csv.Reader and
// tolerates ragged rows and stray quotes, both common in tables
// exported from spreadsheets. Thread compatible.
type Reader struct {
	*csv.Reader

	// HeaderLines is the number of leading rows that are discarded
	// before the first Read returns. It must be set before reading.
	HeaderLines int

	nRow int
}

// NewReader creates a new TSV reader that reads from the given input.
func NewReader(in io.Reader) *Reader {
	r := &Reader{Reader: csv.NewReader(in)}
	r.Comma = '\t'
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	return r
}

// Read returns the next row, skipping header rows and rows with no
// non-empty fields. It returns io.EOF at the end of the input.
func (r *Reader) Read() ([]string, error) {
	for {
		row, err := r.Reader.Read()
		if err != nil {
			return nil, err
		}
		r.nRow++
		if r.nRow <= r.HeaderLines || blank(row) {
			continue
		}
		return row, nil
	}
}

// ReadAll reads the remaining rows.
func (r *Reader) ReadAll() ([][]string, error) {
	var rows [][]string
	for {
		row, err := r.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return rows, err
		}
		rows = append(rows, row)
	}
}

func blank(row []string) bool {
	for _, f := range row {
		if f != "" {
			return false
		}
	}
	return true
}
