// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package naming

import (
	"bufio"
	"io"
	"strings"

	"github.com/metasub/utils/errors"
	"github.com/metasub/utils/tsv"
)

// ParseSLTable parses a whitespace separated, two column table into a
// map from the first column to the second. Blank lines are skipped;
// lines with a single column map to "".
func ParseSLTable(r io.Reader) (map[string]string, error) {
	tbl := make(map[string]string)
	scan := bufio.NewScanner(r)
	for scan.Scan() {
		tkns := strings.Fields(scan.Text())
		switch len(tkns) {
		case 0:
		case 1:
			tbl[tkns[0]] = ""
		default:
			tbl[tkns[0]] = tkns[1]
		}
	}
	if err := scan.Err(); err != nil {
		return nil, errors.E("read sl table", err)
	}
	return tbl, nil
}

// ParseHAFilenames parses a Hudson Alpha filenames_<flowcell>.txt
// listing: two header lines followed by tab separated rows. It
// returns a map from every name of a sample (its SL name, its trip
// name, and the first word of its description when present) to its
// SL name. Rows with fewer than four columns are skipped.
func ParseHAFilenames(r io.Reader) (map[string]string, error) {
	names := make(map[string]string)
	tr := tsv.NewReader(r)
	tr.HeaderLines = 2
	for {
		row, err := tr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.E(errors.Invalid, "read filenames table", err)
		}
		if len(row) < 4 {
			continue
		}
		slName, tripName := strings.TrimSpace(row[2]), strings.TrimSpace(row[3])
		if len(row) >= 6 {
			if desc := strings.Fields(row[5]); len(desc) > 0 {
				names[desc[0]] = slName
			}
		}
		names[slName] = slName
		names[tripName] = slName
	}
	return names, nil
}

// HAUID is a parsed HA unique id.
type HAUID struct {
	Project, Flowcell, SL string
}

// String returns the id in its canonical form,
// <project>_<flowcell>_<SL name>.
func (h HAUID) String() string {
	return h.Project + "_" + h.Flowcell + "_" + h.SL
}

// HAUIDFromMetaspadesDir parses the path of a metaSPAdes assembly
// directory, .../haib<id>/<flowcell>/<raw>_1.fastq.gz.metaspades (or
// <raw>.R1.fastq.gz.metaspades), into an HA unique id. The raw name is
// looked up in slTable, which maps datasuper names to HA unique ids.
// A raw name missing from slTable is an error of kind NotExist; a path
// or table entry that does not follow the naming convention is an
// error of kind Invalid.
func HAUIDFromMetaspadesDir(dir string, slTable map[string]string) (HAUID, error) {
	i := strings.Index(dir, "haib")
	if i < 0 {
		return HAUID{}, errors.E(errors.Invalid, "no haib project in path", dir)
	}
	tkns := strings.Split(dir[i+len("haib"):], "/")
	if len(tkns) < 3 {
		return HAUID{}, errors.E(errors.Invalid, "not a metaspades directory", dir)
	}
	raw := cutAt(cutAt(tkns[2], "_1.fastq.gz.metaspades"), ".R1.fastq.gz.metaspades")
	unique, ok := slTable[raw]
	if !ok {
		return HAUID{}, errors.E(errors.NotExist, "no sl table entry for", raw)
	}
	parts := strings.Split(unique, "_")
	if len(parts) < 3 {
		return HAUID{}, errors.E(errors.Invalid, "malformed sl table entry for", raw, unique)
	}
	return HAUID{Project: "haib" + tkns[0], Flowcell: tkns[1], SL: parts[2]}, nil
}
