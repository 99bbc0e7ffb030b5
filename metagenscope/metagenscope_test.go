// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package metagenscope

import (
	"bytes"
	"context"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
	"github.com/metasub/utils/config"
	"github.com/metasub/utils/errors"
	"github.com/metasub/utils/metadata"
)

func TestDisplayName(t *testing.T) {
	name, err := DisplayName([]string{"new_york_city"}, "", "")
	assert.NoError(t, err)
	expect.EQ(t, name, "New York City")
	name, err = DisplayName([]string{"paris", "denver"}, "Two Cities", " (pilot)")
	assert.NoError(t, err)
	expect.EQ(t, name, "Two Cities (pilot)")
	_, err = DisplayName([]string{"paris", "denver"}, "", "")
	expect.True(t, errors.Is(errors.Invalid, err))
	_, err = DisplayName(nil, "", "")
	expect.True(t, errors.Is(errors.Invalid, err))
}

const (
	paris1 = "haib17CEM4890_H2NYMCCXY_SL254769"
	paris2 = "haib17CEM4890_H2NYMCCXY_SL254770"
	denver = "haib18CEM5453_HMGW3CCXY_SL336000"
)

type invocation struct {
	args     []string
	manifest string
	table    string
}

func setup(t *testing.T) (*Uploader, *bytes.Buffer, *[]invocation, func()) {
	dir, cleanup := testutil.TempDir(t, "", "")
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		assert.NoError(t, os.MkdirAll(filepath.Dir(path), 0777))
		assert.NoError(t, ioutil.WriteFile(path, []byte(content), 0644))
		return path
	}
	loader := metadata.NewLoader()
	loader.CompleteURL = write("complete.csv",
		"uuid,city,project\n"+paris1+",paris,CSD16\n"+paris2+",Paris,CSD17\n"+denver+",denver,CSD17\n")
	loader.UploadableURL = write("uploadable.csv",
		"uuid,city,surface\n"+paris1+",paris,rail\n"+paris2+",paris,bench\n"+denver+",denver,kiosk\n")
	loader.CitiesURL = write("cities.csv", "city,continent\nParis,europe\nDenver,north_america\n")
	write("results/"+paris1+"/"+paris1+".mash.csv", "mash")
	write("results/"+paris1+"/"+paris1+".krakenhll.csv", "kraken")
	write("results/"+paris2+"/"+paris2+".mash.csv", "mash")
	assert.NoError(t, os.MkdirAll(filepath.Join(dir, "results", paris2, "tmp"), 0777))

	u := NewUploader(loader, filepath.Join(dir, "results"))
	var out bytes.Buffer
	u.Out = &out
	var calls []invocation
	u.run = func(ctx context.Context, w io.Writer, name string, args ...string) error {
		expect.EQ(t, name, DefaultCommand)
		inv := invocation{args: args}
		// The temporary files are removed once uploaded.
		for i, arg := range args {
			switch {
			case arg == "-m":
				p, err := ioutil.ReadFile(args[i+1])
				assert.NoError(t, err)
				inv.manifest = string(p)
			case strings.HasSuffix(arg, ".csv"):
				p, err := ioutil.ReadFile(arg)
				assert.NoError(t, err)
				inv.table = string(p)
			}
		}
		calls = append(calls, inv)
		return nil
	}
	return u, &out, &calls, cleanup
}

func TestUploadCities(t *testing.T) {
	u, out, calls, cleanup := setup(t)
	defer cleanup()
	u.Dryrun = false
	assert.NoError(t, u.UploadCities(context.Background(), []string{"paris"}, "Paris"))

	assert.EQ(t, len(*calls), 5)
	c := *calls
	expect.EQ(t, c[0].args[:4], []string{"upload", "files", "-g", "Paris"})
	expect.EQ(t, c[0].manifest, filepath.Join(u.ResultDir, paris1, paris1+".krakenhll.csv")+"\n"+
		filepath.Join(u.ResultDir, paris1, paris1+".mash.csv")+"\n"+
		filepath.Join(u.ResultDir, paris2, paris2+".mash.csv")+"\n")
	expect.EQ(t, c[1].args[:2], []string{"upload", "metadata"})
	expect.EQ(t, c[1].args[3:], []string{paris1, paris2})
	expect.EQ(t, c[1].table, "uuid,city,surface\n"+paris1+",paris,rail\n"+paris2+",paris,bench\n")
	expect.EQ(t, c[2].args, []string{"run", "middleware", "group", "Paris"})
	expect.EQ(t, c[3].args, []string{"run", "middleware", "sample", paris1})
	expect.EQ(t, c[4].args, []string{"run", "middleware", "sample", paris2})

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.EQ(t, len(lines), 5)
	expect.HasSubstr(t, lines[0], `metagenscope upload files -g Paris -m `)
	expect.EQ(t, lines[2], "metagenscope run middleware group Paris")

	// Temporary files are cleaned up.
	_, err := os.Stat(c[0].args[5])
	expect.True(t, os.IsNotExist(err))
}

func TestUploadCitiesSampleIDs(t *testing.T) {
	u, _, calls, cleanup := setup(t)
	defer cleanup()
	dir := filepath.Dir(u.ResultDir)
	complete := filepath.Join(dir, "complete-ids.csv")
	assert.NoError(t, ioutil.WriteFile(complete, []byte(
		"uuid,ha_id,sl_name,barcode,city\n"+
			"U1,5080-CEM-0001,SL1,,paris\n"+
			"U2,5453-CEM-0002,,,denver\n"), 0644))
	u.Metadata.CompleteURL = complete
	for _, name := range []string{"SL1/SL1.mash.csv", "5080-CEM-0001/5080-CEM-0001.krakenhll.csv", "5453-CEM-0002/x.csv"} {
		path := filepath.Join(u.ResultDir, name)
		assert.NoError(t, os.MkdirAll(filepath.Dir(path), 0777))
		assert.NoError(t, ioutil.WriteFile(path, []byte(name), 0644))
	}

	names, err := u.SampleNames(context.Background(), []string{"Paris"})
	assert.NoError(t, err)
	expect.EQ(t, names, []string{"5080-CEM-0001", "SL1", "U1"})

	u.Dryrun = false
	u.UploadOnly = true
	assert.NoError(t, u.UploadCities(context.Background(), []string{"paris"}, "Paris"))
	c := *calls
	assert.EQ(t, len(c), 2)
	expect.EQ(t, c[0].manifest, filepath.Join(u.ResultDir, "5080-CEM-0001", "5080-CEM-0001.krakenhll.csv")+"\n"+
		filepath.Join(u.ResultDir, "SL1", "SL1.mash.csv")+"\n")
	expect.EQ(t, c[1].args[3:], []string{"5080-CEM-0001", "SL1", "U1"})
}

func TestUploadCitiesDryrun(t *testing.T) {
	u, out, calls, cleanup := setup(t)
	defer cleanup()
	u.UploadOnly = true
	assert.NoError(t, u.UploadCities(context.Background(), []string{"Paris", "denver"}, "Two Cities"))
	expect.EQ(t, len(*calls), 0)
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.EQ(t, len(lines), 2)
	expect.HasSubstr(t, lines[0], `metagenscope upload files -g "Two Cities" -m `)
	expect.HasSubstr(t, lines[1], paris1+" "+paris2+" "+denver)
}

func TestUploadCitiesUnknown(t *testing.T) {
	u, _, calls, cleanup := setup(t)
	defer cleanup()
	err := u.UploadCities(context.Background(), []string{"atlantis"}, "Atlantis")
	expect.True(t, errors.Is(errors.NotExist, err))
	expect.EQ(t, len(*calls), 0)
}

func TestConfig(t *testing.T) {
	profile := config.New()
	assert.NoError(t, profile.Parse(strings.NewReader(`param metagenscope (
	results = "/tmp/results"
	command = "mgs"
)`)))
	var u *Uploader
	assert.NoError(t, profile.Instance("metagenscope", &u))
	expect.EQ(t, u.ResultDir, "/tmp/results")
	expect.EQ(t, u.Command, "mgs")
	expect.True(t, u.Dryrun)
}
