// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package metadata loads and filters the MetaSUB sample metadata
// tables. Tables are kept as strings: no column is given a type, so
// that identifiers such as barcodes survive a round trip unchanged.
package metadata

import (
	"encoding/csv"
	"io"
	"sort"
	"strings"

	"github.com/metasub/utils/errors"
)

// Column names used by the MetaSUB metadata tables.
const (
	ColUUID        = "uuid"
	ColMetasubName = "metasub_name"
	ColHAID        = "ha_id"
	ColSLName      = "sl_name"
	ColBarcode     = "barcode"
	ColCity        = "city"
	ColProject     = "project"
)

// idColumns lists the identifier namespaces of a sample, in the order
// in which SampleIDs returns them.
var idColumns = []string{ColUUID, ColMetasubName, ColHAID, ColSLName, ColBarcode}

// Table is a metadata table: a header and rows of string cells. Rows
// are padded or truncated to the width of the header.
type Table struct {
	Header []string
	Rows   [][]string

	cols map[string]int
}

// NewTable returns a table with the given header and rows.
func NewTable(header []string, rows [][]string) *Table {
	t := &Table{Header: header}
	t.index()
	for _, row := range rows {
		t.Append(row)
	}
	return t
}

func (t *Table) index() {
	t.cols = make(map[string]int, len(t.Header))
	for i, name := range t.Header {
		if _, ok := t.cols[name]; !ok {
			t.cols[name] = i
		}
	}
}

// ReadCSV reads a comma separated table whose first record is the
// header.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, errors.E(errors.Invalid, "metadata: read csv", err)
	}
	if len(records) == 0 {
		return nil, errors.E(errors.Invalid, "metadata: empty table")
	}
	return NewTable(records[0], records[1:]), nil
}

// WriteCSV writes the table, header first, as CSV to w.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return err
	}
	return cw.Error()
}

// Append appends a row to the table.
func (t *Table) Append(row []string) {
	r := make([]string, len(t.Header))
	copy(r, row)
	t.Rows = append(t.Rows, r)
}

// Len returns the number of rows in the table.
func (t *Table) Len() int { return len(t.Rows) }

// Has tells whether the table has the named column.
func (t *Table) Has(col string) bool {
	_, ok := t.cols[col]
	return ok
}

// AddColumn appends a column to the table, computing each row's value
// with fn. If the column already exists its values are replaced.
func (t *Table) AddColumn(col string, fn func(row []string) string) {
	i, ok := t.cols[col]
	if !ok {
		i = len(t.Header)
		t.Header = append(t.Header, col)
		t.cols[col] = i
		for j, row := range t.Rows {
			t.Rows[j] = append(row, "")
		}
	}
	for _, row := range t.Rows {
		row[i] = fn(row)
	}
}

// Get returns the value of column col in row, or "" if the table has
// no such column.
func (t *Table) Get(row []string, col string) string {
	i, ok := t.cols[col]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

// Column returns the values of the named column, one per row.
func (t *Table) Column(col string) ([]string, error) {
	i, ok := t.cols[col]
	if !ok {
		return nil, errors.E(errors.NotExist, "metadata: no column", col)
	}
	vals := make([]string, len(t.Rows))
	for j, row := range t.Rows {
		if i < len(row) {
			vals[j] = row[i]
		}
	}
	return vals, nil
}

// Index returns the rows of the table keyed by the value of column
// col. Rows with an empty value are omitted; when several rows share a
// value, the first one wins.
func (t *Table) Index(col string) (map[string][]string, error) {
	i, ok := t.cols[col]
	if !ok {
		return nil, errors.E(errors.NotExist, "metadata: no column", col)
	}
	m := make(map[string][]string, len(t.Rows))
	for _, row := range t.Rows {
		if i >= len(row) || row[i] == "" {
			continue
		}
		if _, ok := m[row[i]]; !ok {
			m[row[i]] = row
		}
	}
	return m, nil
}

// Select returns a new table with the rows for which keep returns true.
// Rows are shared with t; the header is not, so columns added to
// either table are not seen by the other.
func (t *Table) Select(keep func(row []string) bool) *Table {
	out := &Table{Header: append([]string(nil), t.Header...)}
	out.index()
	for _, row := range t.Rows {
		if keep(row) {
			out.Rows = append(out.Rows, row)
		}
	}
	return out
}

// Filter returns the rows whose city and project match the given
// values, compared case insensitively. An empty criterion matches
// every row.
func (t *Table) Filter(city, project string) *Table {
	return t.Select(func(row []string) bool {
		if city != "" && !strings.EqualFold(t.Get(row, ColCity), city) {
			return false
		}
		if project != "" && !strings.EqualFold(t.Get(row, ColProject), project) {
			return false
		}
		return true
	})
}

// Copy returns a deep copy of the table.
func (t *Table) Copy() *Table {
	out := &Table{Header: append([]string(nil), t.Header...)}
	out.index()
	out.Rows = make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		out.Rows[i] = append([]string(nil), row...)
	}
	return out
}

// SampleIDs returns every non-empty identifier of the sample in row,
// across the uuid, metasub_name, ha_id, sl_name and barcode
// namespaces. Data files are named by any one of these, so matching a
// file to a sample requires all of them.
func (t *Table) SampleIDs(row []string) []string {
	var ids []string
	seen := make(map[string]bool)
	for _, col := range idColumns {
		id := t.Get(row, col)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}

// AllSampleIDs returns the set of SampleIDs of every row.
func (t *Table) AllSampleIDs() map[string]bool {
	ids := make(map[string]bool)
	for _, row := range t.Rows {
		for _, id := range t.SampleIDs(row) {
			ids[id] = true
		}
	}
	return ids
}

// SortedKeys returns the members of a string set in sorted order.
func SortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
