// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package tsv

import (
	"bufio"
	"io"
	"strconv"
)

// Writer appends a field at a time to a TSV. Fields are not quoted.
type Writer struct {
	w    *bufio.Writer
	line []byte
}

// NewWriter creates a new tsv.Writer from an io.Writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{
		w:    bufio.NewWriter(w),
		line: make([]byte, 0, 256),
	}
}

// WriteString appends the given string and a tab to the current line.
func (w *Writer) WriteString(s string) {
	w.line = append(w.line, s...)
	w.line = append(w.line, '\t')
}

// WriteInt64 appends the decimal representation of i and a tab to
// the current line.
func (w *Writer) WriteInt64(i int64) {
	w.line = strconv.AppendInt(w.line, i, 10)
	w.line = append(w.line, '\t')
}

// EndLine finishes the current line. It must be nonempty.
func (w *Writer) EndLine() error {
	w.line[len(w.line)-1] = '\n'
	_, err := w.w.Write(w.line)
	w.line = w.line[:0]
	return err
}

// Flush flushes all finished lines.
func (w *Writer) Flush() error {
	return w.w.Flush()
}
