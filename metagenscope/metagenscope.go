// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package metagenscope uploads the core results of MetaSUB cities to
// MetaGenScope by driving the metagenscope command line client.
package metagenscope

import (
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/metasub/utils/errors"
	"github.com/metasub/utils/log"
	"github.com/metasub/utils/metadata"
	"github.com/metasub/utils/naming"
	"github.com/metasub/utils/pathglob"
)

// DefaultCommand is the MetaGenScope client.
const DefaultCommand = "metagenscope"

// DisplayName returns the MetaGenScope group name of a set of cities.
// A single city is named after its display name unless name is given;
// several cities require a name. The suffix, if any, is appended.
func DisplayName(cities []string, name, suffix string) (string, error) {
	switch {
	case len(cities) == 0:
		return "", errors.E(errors.Invalid, "no cities given")
	case name == "" && len(cities) == 1:
		name = naming.DisplayName(cities[0])
	case name == "":
		return "", errors.E(errors.Invalid, "display name cannot be blank if multiple cities are listed")
	}
	return name + suffix, nil
}

// Uploader uploads cities.
type Uploader struct {
	// Metadata supplies the sample and city tables.
	Metadata *metadata.Loader
	// ResultDir holds core results, one directory per sample.
	ResultDir string
	// Command is the MetaGenScope client.
	Command string
	// Dryrun prints the commands without running them.
	Dryrun bool
	// UploadOnly skips running the middleware.
	UploadOnly bool
	// Out receives each command, and the output of commands that
	// are run.
	Out io.Writer

	run func(ctx context.Context, out io.Writer, name string, args ...string) error
}

// NewUploader returns an uploader of the results in resultDir.
func NewUploader(loader *metadata.Loader, resultDir string) *Uploader {
	return &Uploader{
		Metadata:  loader,
		ResultDir: resultDir,
		Command:   DefaultCommand,
		Dryrun:    true,
		Out:       os.Stdout,
		run:       run,
	}
}

func run(ctx context.Context, out io.Writer, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = out
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return errors.E("run", name, strings.Join(args, " "), err)
	}
	return nil
}

func quote(arg string) string {
	if arg == "" || strings.ContainsAny(arg, " \t\"'") {
		return fmt.Sprintf("%q", arg)
	}
	return arg
}

func (u *Uploader) exec(ctx context.Context, args ...string) error {
	line := make([]string, len(args))
	for i, arg := range args {
		line[i] = quote(arg)
	}
	fmt.Fprintf(u.Out, "%s %s\n", u.Command, strings.Join(line, " "))
	if u.Dryrun {
		return nil
	}
	return u.run(ctx, u.Out, u.Command, args...)
}

// cityFilter returns a row predicate matching the given cities,
// ignoring case.
func cityFilter(t *metadata.Table, cities []string) func(row []string) bool {
	return func(row []string) bool {
		city := t.Get(row, metadata.ColCity)
		for _, c := range cities {
			if strings.EqualFold(city, c) {
				return true
			}
		}
		return false
	}
}

// SampleNames returns the sorted names of the samples of the given
// cities. Result directories are named by any of a sample's
// identifiers, so every identifier of each sample is returned.
func (u *Uploader) SampleNames(ctx context.Context, cities []string) ([]string, error) {
	tbl, err := u.Metadata.Complete(ctx)
	if err != nil {
		return nil, err
	}
	return metadata.SortedKeys(tbl.Select(cityFilter(tbl, cities)).AllSampleIDs()), nil
}

// Manifest returns the result files of the given samples.
func (u *Uploader) Manifest(samples []string) ([]string, error) {
	var files []string
	for _, sample := range samples {
		paths, err := pathglob.Expand(filepath.Join(u.ResultDir, sample, "*"))
		if err != nil {
			return nil, err
		}
		for _, path := range paths {
			if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
				files = append(files, path)
			}
		}
	}
	return files, nil
}

// checkCities returns an error of kind NotExist if a city is not a
// canonical city name.
func (u *Uploader) checkCities(ctx context.Context, cities []string) error {
	canonical, err := u.Metadata.CanonicalCities(ctx, true)
	if err != nil {
		return err
	}
	known := make(map[string]bool, len(canonical))
	for _, city := range canonical {
		known[city] = true
	}
	for _, city := range cities {
		if !known[strings.ToLower(city)] {
			return errors.E(errors.NotExist, "not a canonical city:", city)
		}
	}
	return nil
}

func writeTemp(pattern string, write func(w io.Writer) error) (name string, err error) {
	f, err := ioutil.TempFile("", pattern)
	if err != nil {
		return "", errors.E("create temporary file", err)
	}
	defer errors.CleanUp(f.Close, &err)
	if err := write(f); err != nil {
		os.Remove(f.Name()) // nolint: errcheck
		return "", err
	}
	return f.Name(), nil
}

// UploadCities uploads the results and metadata of the samples of the
// given cities as the group named displayName, then, unless
// UploadOnly is set, runs the group and sample middleware.
func (u *Uploader) UploadCities(ctx context.Context, cities []string, displayName string) error {
	if err := u.checkCities(ctx, cities); err != nil {
		return err
	}
	samples, err := u.SampleNames(ctx, cities)
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		return errors.E(errors.NotExist, "no samples for cities", strings.Join(cities, ", "))
	}
	files, err := u.Manifest(samples)
	if err != nil {
		return err
	}
	log.Printf("metagenscope: %d samples, %d result files", len(samples), len(files))
	manifest, err := writeTemp("manifest-*.txt", func(w io.Writer) error {
		for _, file := range files {
			if _, err := fmt.Fprintln(w, file); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	defer os.Remove(manifest) // nolint: errcheck
	if err := u.exec(ctx, "upload", "files", "-g", displayName, "-m", manifest); err != nil {
		return err
	}

	tbl, err := u.Metadata.Uploadable(ctx)
	if err != nil {
		return err
	}
	table, err := writeTemp("metadata-*.csv", tbl.Select(cityFilter(tbl, cities)).WriteCSV)
	if err != nil {
		return err
	}
	defer os.Remove(table) // nolint: errcheck
	if err := u.exec(ctx, append([]string{"upload", "metadata", table}, samples...)...); err != nil {
		return err
	}

	if u.UploadOnly {
		return nil
	}
	if err := u.exec(ctx, "run", "middleware", "group", displayName); err != nil {
		return err
	}
	for _, sample := range samples {
		if err := u.exec(ctx, "run", "middleware", "sample", sample); err != nil {
			return err
		}
	}
	return nil
}
