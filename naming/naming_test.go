// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package naming

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	fuzz "github.com/google/gofuzz"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
	"github.com/metasub/utils/errors"
)

func TestRootAndReadNumber(t *testing.T) {
	for _, c := range []struct {
		path, root string
		read       int
	}{
		{"lib/haib17CEM4890/H2NYMCCXY/haib17CEM4890_H2NYMCCXY_SL254769_1.fastq.gz", "haib17CEM4890_H2NYMCCXY_SL254769", 1},
		{"SL254769_2.fastq.gz", "SL254769", 2},
		{"/data/sample.R1.fastq.gz", "sample", 1},
		{"sample.R2.fq", "sample", 2},
		// The first marker wins.
		{"a_1.b_2.fastq", "a", 1},
	} {
		root, read, err := RootAndReadNumber(c.path)
		assert.NoError(t, err)
		expect.EQ(t, root, c.root, c.path)
		expect.EQ(t, read, c.read, c.path)
	}
	_, _, err := RootAndReadNumber("dir_1.x/sample.fastq.gz")
	expect.True(t, errors.Is(errors.Invalid, err))
}

func TestRootAndReadNumberFuzz(t *testing.T) {
	fz := fuzz.New().NilChance(0)
	var name string
	for i := 0; i < 1000; i++ {
		fz.Fuzz(&name)
		name = strings.Replace(name, "/", "", -1)
		root, read, err := RootAndReadNumber(name)
		if err != nil {
			if !errors.Is(errors.Invalid, err) {
				t.Fatalf("%q: unexpected error %v", name, err)
			}
			continue
		}
		if !strings.HasPrefix(name, root) {
			t.Fatalf("%q: root %q is not a prefix", name, root)
		}
		if read != 1 && read != 2 {
			t.Fatalf("%q: bad read number %d", name, read)
		}
	}
	// Names with a single marker always parse.
	for i := 0; i < 1000; i++ {
		fz.Fuzz(&name)
		for r := strings.NewReplacer("/", "", "_1.", "", ".R1.", "", "_2.", "", ".R2.", ""); ; {
			clean := r.Replace(name)
			if clean == name {
				break
			}
			name = clean
		}
		root, read, err := RootAndReadNumber("dir/" + name + "_2.fastq.gz")
		assert.NoError(t, err)
		expect.EQ(t, read, 2)
		expect.EQ(t, root, name)
	}
}

func TestHAUniquePath(t *testing.T) {
	p, err := HAUniquePath("/lib/haib17CEM4890/H2NYMCCXY/SL254769_1.fastq.gz")
	assert.NoError(t, err)
	expect.EQ(t, p, "/lib/haib17CEM4890/H2NYMCCXY/haib17CEM4890_H2NYMCCXY_SL254769_1.fastq.gz")
	_, err = HAUniquePath("H2NYMCCXY/SL254769_1.fastq.gz")
	expect.True(t, errors.Is(errors.Invalid, err))

	fz := fuzz.New().NilChance(0)
	var elems [3]string
	for i := 0; i < 200; i++ {
		fz.Fuzz(&elems)
		for j := range elems {
			elems[j] = "x" + strings.Replace(elems[j], "/", "", -1)
		}
		p, err := HAUniquePath(strings.Join(elems[:], "/"))
		assert.NoError(t, err)
		expect.True(t, strings.HasSuffix(p, "/"+elems[0]+"_"+elems[1]+"_"+elems[2]))
	}
}

func TestFlowcellNumber(t *testing.T) {
	expect.EQ(t, FlowcellNumber("HCCGHCCXY/files_HCCGHCCXY_3.txt"), "HCCGHCCXY_3")
	expect.EQ(t, FlowcellNumber("http://gsldl.hudsonalpha.org/abc/files_H2NYMCCXY.txt"), "H2NYMCCXY")
	expect.EQ(t, FilenamesURL("http://gsldl.hudsonalpha.org/abc/files_H2NYMCCXY.txt"),
		"http://gsldl.hudsonalpha.org/abc/filenames_H2NYMCCXY.txt")
}

func TestDisplayName(t *testing.T) {
	expect.EQ(t, DisplayName("new_york_city"), "New York City")
	expect.EQ(t, DisplayName("paris"), "Paris")
	expect.EQ(t, DisplayName("rio__de"), "Rio  De")
	expect.EQ(t, SampleName("/x/haib17CEM4890_H2NYMCCXY_SL254769.krakenhll.csv"), "haib17CEM4890_H2NYMCCXY_SL254769")
	expect.EQ(t, SLName("haib17CEM4890_H2NYMCCXY_SL254769"), "SL254769")
}

const datasuperTable = `
/ds/fastqs/CSD16-PAR-001_1.fastq.gz /lib/haib17CEM4890/H2NYMCCXY/SL254769_1.fastq.gz
/ds/fastqs/CSD16-PAR-001_2.fastq.gz /lib/haib17CEM4890/H2NYMCCXY/SL254769_2.fastq.gz
/ds/fastqs/CSD16-PAR-002.R1.fastq.gz /lib/haib17CEM4890/H2NYMCCXY/SL254770_1.fastq.gz
/ds/fastqs/CSD16-PAR-003_1.fastq.gz
`

func TestDatasuperToHAUnique(t *testing.T) {
	names, err := DatasuperToHAUnique(strings.NewReader(datasuperTable))
	assert.NoError(t, err)
	expect.EQ(t, names, map[string]string{
		"CSD16-PAR-001": "haib17CEM4890_H2NYMCCXY_SL254769",
		"CSD16-PAR-002": "haib17CEM4890_H2NYMCCXY_SL254770",
	})

	_, err = DatasuperToHAUnique(strings.NewReader(datasuperTable +
		"/other/CSD16-PAR-001_1.fastq.gz /lib/haib17CEM4890/H2NYMCCXY/SL254771_1.fastq.gz\n"))
	expect.True(t, errors.Is(errors.Exists, err))
}

func TestRenameCoreResults(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	results := filepath.Join(dir, "metasub_cap", "core_results")
	for _, name := range []string{
		"CSD16-PAR-001/CSD16-PAR-001.krakenhll.csv",
		"CSD16-PAR-001/CSD16-PAR-001.mash.csv",
		"CSD16-UNK-001/CSD16-UNK-001.mash.csv",
	} {
		path := filepath.Join(results, name)
		assert.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		assert.NoError(t, ioutil.WriteFile(path, nil, 0644))
	}
	names := map[string]string{"CSD16-PAR-001": "haib17CEM4890_H2NYMCCXY_SL254769"}
	paths, err := RenameCoreResults(names, results)
	assert.NoError(t, err)
	newResults := filepath.Join(dir, "new_metasub_cap", "core_results")
	expect.EQ(t, paths, map[string]string{
		results + "/CSD16-PAR-001/CSD16-PAR-001.krakenhll.csv": newResults + "/haib17CEM4890_H2NYMCCXY_SL254769/haib17CEM4890_H2NYMCCXY_SL254769.krakenhll.csv",
		results + "/CSD16-PAR-001/CSD16-PAR-001.mash.csv":      newResults + "/haib17CEM4890_H2NYMCCXY_SL254769/haib17CEM4890_H2NYMCCXY_SL254769.mash.csv",
	})
}

func TestRenameSLFiles(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	flowcell := filepath.Join(dir, "haib17CEM4890", "H2NYMCCXY")
	assert.NoError(t, os.MkdirAll(flowcell, 0755))
	for _, name := range []string{"SL254769_1.fastq.gz", "SL254770_1.fastq.gz", "haib17CEM4890_H2NYMCCXY_SL254770_1.fastq.gz"} {
		assert.NoError(t, ioutil.WriteFile(filepath.Join(flowcell, name), nil, 0644))
	}
	exists := func(path string) bool {
		_, err := os.Stat(path)
		return err == nil
	}
	paths, err := RenameSLFiles(dir, exists)
	assert.NoError(t, err)
	expect.EQ(t, paths, map[string]string{
		flowcell + "/SL254769_1.fastq.gz": flowcell + "/haib17CEM4890_H2NYMCCXY_SL254769_1.fastq.gz",
	})
}

func TestParseHAFilenames(t *testing.T) {
	names, err := ParseHAFilenames(strings.NewReader(
		"Flowcell listing\n" +
			"lane\tindex\tSL name\ttrip name\tproject\tdescription\n" +
			"1\tACGT\tSL254769\tCSD16-PAR-001\t4890\tPAR001 paris subway\n" +
			"1\tACGA\tSL254770\tCSD16-PAR-002\n" +
			"short\trow\n"))
	assert.NoError(t, err)
	expect.EQ(t, names, map[string]string{
		"SL254769":      "SL254769",
		"CSD16-PAR-001": "SL254769",
		"PAR001":        "SL254769",
		"SL254770":      "SL254770",
		"CSD16-PAR-002": "SL254770",
	})
}

func TestHAUIDFromMetaspadesDir(t *testing.T) {
	sl := map[string]string{
		"CSD16-PAR-001": "haib17CEM4890_H2NYMCCXY_SL254769",
		"bad":           "SL254769",
	}
	uid, err := HAUIDFromMetaspadesDir("/pylon/haib17CEM4890/H2NYMCCXY/CSD16-PAR-001_1.fastq.gz.metaspades", sl)
	assert.NoError(t, err)
	expect.EQ(t, uid, HAUID{"haib17CEM4890", "H2NYMCCXY", "SL254769"})
	expect.EQ(t, uid.String(), "haib17CEM4890_H2NYMCCXY_SL254769")

	uid, err = HAUIDFromMetaspadesDir("/pylon/haib17CEM4890/H2NYMCCXY/CSD16-PAR-001.R1.fastq.gz.metaspades", sl)
	assert.NoError(t, err)
	expect.EQ(t, uid.SL, "SL254769")

	_, err = HAUIDFromMetaspadesDir("/pylon/haib17CEM4890/H2NYMCCXY/unknown_1.fastq.gz.metaspades", sl)
	expect.True(t, errors.Is(errors.NotExist, err))
	_, err = HAUIDFromMetaspadesDir("/pylon/haib17CEM4890/bad_1.fastq.gz.metaspades", sl)
	expect.True(t, errors.Is(errors.Invalid, err))
	_, err = HAUIDFromMetaspadesDir("/pylon/haib17CEM4890/H2NYMCCXY/bad_1.fastq.gz.metaspades", sl)
	expect.True(t, errors.Is(errors.Invalid, err))
	_, err = HAUIDFromMetaspadesDir("/pylon/assemblies/x", sl)
	expect.True(t, errors.Is(errors.Invalid, err))

	tbl, err := ParseSLTable(strings.NewReader("CSD16-PAR-001 haib17CEM4890_H2NYMCCXY_SL254769\n\nlonely\n"))
	assert.NoError(t, err)
	expect.EQ(t, tbl, map[string]string{"CSD16-PAR-001": "haib17CEM4890_H2NYMCCXY_SL254769", "lonely": ""})
}
