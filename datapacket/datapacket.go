// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package datapacket cuts sub packets out of the MetaSUB data packet.
// The packet is a directory of CSV tables, one sub directory per
// subject, with one row per sample. A sub packet has the same layout
// and keeps the header lines of each table and the rows that mention
// one of its samples.
package datapacket

import (
	"bufio"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/metasub/utils/errors"
	"github.com/metasub/utils/log"
	"github.com/metasub/utils/metadata"
	"github.com/metasub/utils/pathglob"
)

// SubDirs are the packet's table directories.
var SubDirs = []string{"antimicrobial_resistance", "metadata", "other", "taxonomy"}

// Species table layout.
const (
	SpeciesTable       = "refseq.krakenhll_species.csv"
	SpeciesHeaderLines = 4
)

// CityPacketsDir is the packet subdirectory holding city packets.
const CityPacketsDir = "city_packets"

// FilterFile writes to dst the first headerLines lines of src followed
// by every later line of src that contains one of names. Files named
// *.gz are read and written gzip compressed.
func FilterFile(src string, names []string, dst string, headerLines int) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return errors.E("datapacket: open", src, err)
	}
	defer in.Close() // nolint: errcheck
	var r io.Reader = in
	if strings.HasSuffix(src, ".gz") {
		gz, err := gzip.NewReader(in)
		if err != nil {
			return errors.E(errors.Integrity, "datapacket: gzip", src, err)
		}
		defer gz.Close() // nolint: errcheck
		r = gz
	}
	out, err := os.Create(dst)
	if err != nil {
		return errors.E("datapacket: create", dst, err)
	}
	defer errors.CleanUp(out.Close, &err)
	var w io.Writer = out
	if strings.HasSuffix(dst, ".gz") {
		gz := gzip.NewWriter(out)
		defer errors.CleanUp(gz.Close, &err)
		w = gz
	}
	bw := bufio.NewWriter(w)
	defer errors.CleanUp(bw.Flush, &err)
	if err := filter(r, names, bw, headerLines); err != nil {
		return errors.E(err, "datapacket: filter", src)
	}
	return nil
}

func filter(r io.Reader, names []string, w *bufio.Writer, headerLines int) error {
	br := bufio.NewReader(r)
	for n := 0; ; n++ {
		line, err := br.ReadString('\n')
		if line != "" && (n < headerLines || containsAny(line, names)) {
			if _, werr := w.WriteString(line); werr != nil {
				return werr
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func containsAny(line string, names []string) bool {
	for _, name := range names {
		if name != "" && strings.Contains(line, name) {
			return true
		}
	}
	return false
}

// ReadSampleNames reads a file of sample names, one per line.
func ReadSampleNames(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.E("datapacket: open sample names", err)
	}
	defer f.Close() // nolint: errcheck
	var names []string
	scan := bufio.NewScanner(f)
	for scan.Scan() {
		if name := strings.TrimSpace(scan.Text()); name != "" {
			names = append(names, name)
		}
	}
	if err := scan.Err(); err != nil {
		return nil, errors.E("datapacket: read sample names", path, err)
	}
	return names, nil
}

// WriteSampleNames writes sample names to a file, one per line.
func WriteSampleNames(path string, names []string) error {
	var b strings.Builder
	for _, name := range names {
		b.WriteString(name)
		b.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return errors.E("datapacket: write sample names", err)
	}
	return nil
}

// MakeSubPacket writes to subPacketDir the rows of each CSV table of
// the packet in packetDir that mention one of names, along with each
// table's header line.
func MakeSubPacket(packetDir string, names []string, subPacketDir string) error {
	for _, sub := range SubDirs {
		dir := filepath.Join(subPacketDir, sub)
		if err := os.MkdirAll(dir, 0777); err != nil {
			return errors.E("datapacket: create", dir, err)
		}
		tables, err := pathglob.Expand(filepath.Join(packetDir, sub, "*.csv"))
		if err != nil {
			return err
		}
		for _, table := range tables {
			if err := FilterFile(table, names, filepath.Join(dir, filepath.Base(table)), 1); err != nil {
				return err
			}
		}
		log.Debug.Printf("datapacket: filtered %d tables of %s", len(tables), sub)
	}
	return nil
}

// MakeCityPacket writes the sub packet of the samples of a city to
// <packetDir>/city_packets/<city>, along with the list of its sample
// names in <city>_sample_names.txt. It returns the city packet's
// directory.
func MakeCityPacket(ctx context.Context, loader *metadata.Loader, packetDir, city string) (string, error) {
	city = strings.ToLower(city)
	dir := filepath.Join(packetDir, CityPacketsDir, city)
	if err := os.MkdirAll(dir, 0777); err != nil {
		return "", errors.E("datapacket: create", dir, err)
	}
	names, err := loader.SamplesFromCity(ctx, city, "")
	if err != nil {
		return "", err
	}
	if len(names) == 0 {
		log.Printf("datapacket: no samples from %s", city)
	}
	if err := WriteSampleNames(filepath.Join(dir, city+"_sample_names.txt"), names); err != nil {
		return "", err
	}
	return dir, MakeSubPacket(packetDir, names, dir)
}

// CityTaxa rewrites the species table of each city packet under
// packetDir, keeping all of the species table's header lines.
func CityTaxa(packetDir string) error {
	species := filepath.Join(packetDir, "taxonomy", SpeciesTable)
	lists, err := pathglob.Expand(filepath.Join(packetDir, CityPacketsDir, "*", "*_sample_names.txt"))
	if err != nil {
		return err
	}
	for _, list := range lists {
		names, err := ReadSampleNames(list)
		if err != nil {
			return err
		}
		dir := filepath.Join(filepath.Dir(list), "taxonomy")
		if err := os.MkdirAll(dir, 0777); err != nil {
			return errors.E("datapacket: create", dir, err)
		}
		log.Printf("datapacket: %s", list)
		if err := FilterFile(species, names, filepath.Join(dir, SpeciesTable), SpeciesHeaderLines); err != nil {
			return err
		}
	}
	return nil
}
