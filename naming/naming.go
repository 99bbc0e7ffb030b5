// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package naming implements the file naming conventions of the
// MetaSUB data library.
//
// Sequencing data delivered by the Hudson Alpha sequencing center is
// stored as
//
//	<library>/<haProject>/<flowcell>/<haProject>_<flowcell>_<SL name>_<1|2>.fastq.gz
//
// The prefix <haProject>_<flowcell>_<SL name> is the sample's HA
// unique id. Older data, produced by the datasuper pipeline, was
// named by other sample names; the functions here map those names to
// HA unique ids.
package naming

import (
	"path"
	"strings"

	"github.com/metasub/utils/errors"
)

// readMarkers lists the markers of paired read files, in the order in
// which they are tried.
var readMarkers = []struct {
	marker string
	read   int
}{
	{"_1.", 1},
	{".R1.", 1},
	{"_2.", 2},
	{".R2.", 2},
}

// RootAndReadNumber returns the root of a paired fastq file name and
// its read number (1 or 2). The root is the part of the file's base
// name before the read marker: "_1.", ".R1.", "_2." or ".R2.". An
// error of kind Invalid is returned when the name has no marker.
func RootAndReadNumber(filepath string) (root string, read int, err error) {
	name := path.Base(filepath)
	for _, m := range readMarkers {
		if i := strings.Index(name, m.marker); i >= 0 {
			return name[:i], m.read, nil
		}
	}
	return "", 0, errors.E(errors.Invalid, "not a paired read file:", filepath)
}

// HAUniquePath renames a file in the sequencing library to its HA
// unique name: <dir>/<haProject>/<flowcell>/<file> becomes
// <dir>/<haProject>/<flowcell>/<haProject>_<flowcell>_<file>. The
// path must have at least three elements.
func HAUniquePath(filepath string) (string, error) {
	tkns := strings.Split(filepath, "/")
	if len(tkns) < 3 {
		return "", errors.E(errors.Invalid, "not a library path:", filepath)
	}
	project, flowcell, base := tkns[len(tkns)-3], tkns[len(tkns)-2], tkns[len(tkns)-1]
	return path.Join(path.Dir(filepath), project+"_"+flowcell+"_"+base), nil
}

// FlowcellNumber returns the flowcell number of a Hudson Alpha
// file listing URL, named files_<flowcell>.txt.
func FlowcellNumber(url string) string {
	i := strings.LastIndex(url, "files_")
	if i >= 0 {
		url = url[i+len("files_"):]
	}
	if i := strings.Index(url, ".txt"); i >= 0 {
		url = url[:i]
	}
	return url
}

// FilenamesURL returns the URL of the filenames listing that
// accompanies a files listing.
func FilenamesURL(filesURL string) string {
	return strings.Replace(filesURL, "files", "filenames", -1)
}

// DisplayName turns an underscore separated name into a display name:
// words are separated by spaces and their first letters capitalized.
// For example, "new_york_city" becomes "New York City".
func DisplayName(name string) string {
	tkns := strings.Split(name, "_")
	for i, tkn := range tkns {
		if tkn == "" {
			continue
		}
		tkns[i] = strings.ToUpper(tkn[:1]) + tkn[1:]
	}
	return strings.Join(tkns, " ")
}

// SampleName returns the sample name of a data file: its base name up
// to the first '.'.
func SampleName(filepath string) string {
	name := path.Base(filepath)
	if i := strings.IndexByte(name, '.'); i >= 0 {
		name = name[:i]
	}
	return name
}

// SLName returns the SL name of an HA unique id: its last '_'
// separated element.
func SLName(haUID string) string {
	return haUID[strings.LastIndexByte(haUID, '_')+1:]
}
