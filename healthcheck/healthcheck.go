// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package healthcheck verifies gzipped fastq files: each file must
// decompress cleanly, hold a whole number of four-line records, and
// hold as many lines as its mate. Checked files are recorded in a log
// table of
//
//	<path>\t<md5, base64>\t<lines>
//
// so that a later check skips them.
package healthcheck

import (
	"context"
	"crypto/md5"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/klauspost/compress/gzip"
	"github.com/metasub/utils/errors"
	"github.com/metasub/utils/log"
	"github.com/metasub/utils/tsv"
	"golang.org/x/sync/errgroup"
)

// Result is the outcome of checking one file.
type Result struct {
	Path  string
	MD5   string
	Lines int64
}

// countLines counts the newlines read from r.
func countLines(r io.Reader) (int64, error) {
	var (
		buf = make([]byte, 1<<16)
		n   int64
	)
	for {
		m, err := r.Read(buf)
		for _, b := range buf[:m] {
			if b == '\n' {
				n++
			}
		}
		if err == io.EOF {
			return n, nil
		}
		if err != nil {
			return n, err
		}
	}
}

// CheckFile decompresses the file at path, counting its lines, and
// computes the MD5 checksum of its compressed bytes. It returns an
// error of kind Integrity if the file is not valid gzip or if its line
// count is not a multiple of four.
func CheckFile(ctx context.Context, path string) (res Result, err error) {
	res.Path = path
	f, err := os.Open(path)
	if err != nil {
		return res, errors.E("open", path, err)
	}
	defer errors.CleanUp(f.Close, &err)
	h := md5.New()
	in := io.TeeReader(f, h)
	z, err := gzip.NewReader(in)
	if err != nil {
		return res, errors.E(errors.Integrity, "gzip_issue", path, err)
	}
	if res.Lines, err = countLines(z); err != nil {
		res.Lines = 0
		return res, errors.E(errors.Integrity, "gzip_issue", path, err)
	}
	if err = z.Close(); err != nil {
		res.Lines = 0
		return res, errors.E(errors.Integrity, "gzip_issue", path, err)
	}
	// Hash any bytes the decompressor left unread.
	if _, err = io.Copy(h, f); err != nil {
		return res, errors.E("read", path, err)
	}
	if ctx.Err() != nil {
		return res, ctx.Err()
	}
	if res.Lines%4 != 0 {
		return res, errors.E(errors.Integrity, "bad_line_count", path, fmt.Sprint(res.Lines))
	}
	res.MD5 = base64.StdEncoding.EncodeToString(h.Sum(nil))
	return res, nil
}

// ReadLog returns the set of paths recorded in a log table.
func ReadLog(r io.Reader) (map[string]bool, error) {
	rows, err := tsv.NewReader(r).ReadAll()
	if err != nil {
		return nil, errors.E(errors.Invalid, "read health check log", err)
	}
	logged := make(map[string]bool, len(rows))
	for _, row := range rows {
		logged[row[0]] = true
	}
	return logged, nil
}

// Checker checks files and records them.
type Checker struct {
	// Paired checks consecutive files, in sorted order, as mates.
	Paired bool
	// Log receives a row for each file that passes.
	Log io.Writer
	// Errors receives a line for each failure:
	//
	//	[ERROR] gzip_issue <path>
	//	[ERROR] bad_line_count <lines> <path>
	//	[ERROR] mismatched_line_count <lines 1> <lines 2> <path 1> <path 2>
	Errors io.Writer
	// Logged is the set of files already checked.
	Logged map[string]bool
}

// check checks a file. A file that fails the check has zero lines
// and a report line for c.Errors.
func (c *Checker) check(ctx context.Context, path string) (Result, string, error) {
	res, err := CheckFile(ctx, path)
	switch {
	case err == nil:
		return res, "", nil
	case !errors.Is(errors.Integrity, err):
		return Result{Path: path}, "", err
	}
	log.Debug.Printf("healthcheck: %v", err)
	if res.Lines%4 != 0 {
		return Result{Path: path}, fmt.Sprintf("[ERROR] bad_line_count %d %s", res.Lines, path), nil
	}
	return Result{Path: path}, fmt.Sprintf("[ERROR] gzip_issue %s", path), nil
}

func (c *Checker) report(line string) error {
	if line == "" {
		return nil
	}
	_, err := fmt.Fprintln(c.Errors, line)
	return err
}

// Files returns the absolute, sorted paths of files not yet logged.
func (c *Checker) Files(paths []string) ([]string, error) {
	var files []string
	for _, path := range paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, errors.E(errors.Invalid, path, err)
		}
		if !c.Logged[abs] {
			files = append(files, abs)
		}
	}
	sort.Strings(files)
	return files, nil
}

// Run checks the given files, skipping those already logged. Results
// are appended to c.Log as they complete. Failed checks are reported
// to c.Errors and do not stop the run; Run returns an error only if a
// file cannot be read or a log cannot be written.
func (c *Checker) Run(ctx context.Context, paths []string) error {
	files, err := c.Files(paths)
	if err != nil {
		return err
	}
	w := tsv.NewWriter(c.Log)
	record := func(results ...Result) error {
		for _, r := range results {
			w.WriteString(r.Path)
			w.WriteString(r.MD5)
			w.WriteInt64(r.Lines)
			if err := w.EndLine(); err != nil {
				return err
			}
		}
		return w.Flush()
	}
	if !c.Paired {
		for _, file := range files {
			log.Printf("healthcheck: %s", file)
			res, report, err := c.check(ctx, file)
			if err != nil {
				return err
			}
			if err := c.report(report); err != nil {
				return err
			}
			if res.Lines == 0 {
				continue
			}
			if err := record(res); err != nil {
				return err
			}
		}
		return nil
	}
	if len(files)%2 != 0 {
		log.Error.Printf("healthcheck: %s has no mate; skipping", files[len(files)-1])
	}
	for i := 0; i+1 < len(files); i += 2 {
		log.Printf("healthcheck: %s %s", files[i], files[i+1])
		var (
			mates   [2]Result
			reports [2]string
		)
		g, gctx := errgroup.WithContext(ctx)
		for j := range mates {
			j := j
			g.Go(func() (err error) {
				mates[j], reports[j], err = c.check(gctx, files[i+j])
				return
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		for _, report := range reports {
			if err := c.report(report); err != nil {
				return err
			}
		}
		if mates[0].Lines != mates[1].Lines {
			err := c.report(fmt.Sprintf("[ERROR] mismatched_line_count %d %d %s %s",
				mates[0].Lines, mates[1].Lines, mates[0].Path, mates[1].Path))
			if err != nil {
				return err
			}
			continue
		}
		if mates[0].Lines == 0 {
			continue
		}
		if err := record(mates[0], mates[1]); err != nil {
			return err
		}
	}
	return nil
}

// RunFiles checks paths, reading the already-checked files from, and
// appending results to, the log table at logPath, and appending
// failures to errPath.
func RunFiles(ctx context.Context, paired bool, logPath, errPath string, paths []string) (err error) {
	c := &Checker{Paired: paired, Logged: map[string]bool{}}
	if f, err := os.Open(logPath); err == nil {
		c.Logged, err = ReadLog(f)
		f.Close() // nolint: errcheck
		if err != nil {
			return errors.E(err, logPath)
		}
	} else if !os.IsNotExist(err) {
		return errors.E("open", logPath, err)
	}
	logFile, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return errors.E("open", logPath, err)
	}
	defer errors.CleanUp(logFile.Close, &err)
	errFile, err := os.OpenFile(errPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return errors.E("open", errPath, err)
	}
	defer errors.CleanUp(errFile.Close, &err)
	c.Log, c.Errors = logFile, errFile
	return c.Run(ctx, paths)
}
