// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package naming

import (
	"bufio"
	"io"
	"path"
	"strings"

	"github.com/metasub/utils/errors"
	"github.com/metasub/utils/log"
	"github.com/metasub/utils/pathglob"
)

// cutAt returns s up to the first occurrence of sep, or s if sep does
// not occur.
func cutAt(s, sep string) string {
	if i := strings.Index(s, sep); i >= 0 {
		return s[:i]
	}
	return s
}

// DatasuperToHAUnique reads a two column, whitespace separated file
// of datasuper fastq paths and the corresponding library paths, and
// returns a map from each datasuper sample name to its HA unique id.
// Only read 1 lines are considered. Lines without a library path are
// logged and skipped. A datasuper name that appears twice is an error
// of kind Exists.
func DatasuperToHAUnique(r io.Reader) (map[string]string, error) {
	names := make(map[string]string)
	scan := bufio.NewScanner(r)
	for scan.Scan() {
		line := scan.Text()
		tkns := strings.Fields(line)
		if len(tkns) == 0 || !strings.Contains(tkns[0], "1.fastq") {
			continue
		}
		dsName := cutAt(cutAt(path.Base(tkns[0]), "_1."), ".R1.")
		if len(tkns) < 2 {
			log.Error.Printf("!!! %s", line)
			continue
		}
		uniquePath, err := HAUniquePath(tkns[1])
		if err != nil {
			log.Error.Printf("!!! %s", line)
			continue
		}
		if _, ok := names[dsName]; ok {
			return nil, errors.E(errors.Exists, "duplicate datasuper name", dsName)
		}
		names[dsName] = cutAt(path.Base(uniquePath), "_1.fastq.gz")
	}
	if err := scan.Err(); err != nil {
		return nil, errors.E("read datasuper table", err)
	}
	return names, nil
}

// RenameCoreResults maps every result file <oldResultDir>/*/* named
// by a datasuper sample to its new path: "metasub_cap" is replaced by
// "new_metasub_cap" and the old sample name by its HA unique id.
// Files whose sample is not in names are logged and skipped.
func RenameCoreResults(names map[string]string, oldResultDir string) (map[string]string, error) {
	files, err := pathglob.Expand(oldResultDir + "/*/*")
	if err != nil {
		return nil, err
	}
	paths := make(map[string]string)
	for _, file := range files {
		oldName := SampleName(file)
		newName, ok := names[oldName]
		if !ok {
			log.Error.Printf("!!! %s", oldName)
			continue
		}
		newPath := strings.Replace(file, "metasub_cap", "new_metasub_cap", -1)
		paths[file] = strings.Replace(newPath, oldName, newName, -1)
	}
	return paths, nil
}

// RenameSLFiles maps every SL fastq file in the library,
// <library>/*/*/SL*.fastq.gz, to its HA unique path, omitting files
// whose renamed path already exists.
func RenameSLFiles(library string, exists func(string) bool) (map[string]string, error) {
	files, err := pathglob.Expand(library + "/*/*/SL*.fastq.gz")
	if err != nil {
		return nil, err
	}
	paths := make(map[string]string)
	for _, file := range files {
		newPath, err := HAUniquePath(file)
		if err != nil {
			return nil, err
		}
		if !exists(newPath) {
			paths[file] = newPath
		}
	}
	return paths, nil
}
