// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package metadata

import (
	"strconv"
	"strings"
)

// Columns derived by Clean.
const (
	ColControlFine    = "control_type_fine"
	ColControlCoarse  = "control_type_coarse"
	ColSurfaceFine    = "surface_ontology_fine"
	ColSurfaceCoarse  = "surface_ontology_coarse"
	ColCoastal        = "coastal"
	ColCityElevation  = "city_elevation"
	colControlType    = "control_type"
	colSurface        = "surface_material"
	colCoastalCity    = "coastal_city"
	colElevationMeter = "city_elevation_meters"
)

// Coarse control classes.
const (
	PositiveControl    = "positive_control"
	BackgroundControl  = "background_control"
	LabNegativeControl = "lab_negative_control"
)

type labControl struct {
	fine, coarse, col string
	samples           []string
}

// labControls lists the samples processed as lab controls, keyed by
// the identifier namespace in which they are recorded. Entries are
// matched in order.
var labControls = []labControl{
	{"zymoshield_tube", LabNegativeControl, ColBarcode, []string{"235159589", "235162224", "235163966"}},
	{"zymoshield_media_tube", LabNegativeControl, ColBarcode, []string{"235196487", "232022683", "235078676"}},
	{"zymoshield_swab_tube", LabNegativeControl, ColBarcode, []string{"235163072", "235161887", "235162222"}},
	{"zymoshield_media_swab_tube", LabNegativeControl, ColBarcode, []string{"235196528", "232021956", "232021998"}},
	{"zymoshield_positive_control", PositiveControl, ColBarcode, []string{"235082297"}},

	{"bench_pre_bleach", BackgroundControl, ColUUID, []string{"BarcelonaNov2018_MS011"}},
	{"bench_post_bleach", BackgroundControl, ColUUID, []string{"BarcelonaNov2018_MS012"}},

	{"mobiome_swab", LabNegativeControl, ColUUID, []string{"BarcelonaNov2018_MS039", "BarcelonaNov2018_MS045", "BarcelonaNov2018_MS051"}},
	{"mobiome_media_swab", LabNegativeControl, ColUUID, []string{"BarcelonaNov2018_MS040", "BarcelonaNov2018_MS046", "BarcelonaNov2018_MS052"}},
	{"mobiome_media_pellet_swab", LabNegativeControl, ColUUID, []string{"BarcelonaNov2018_MS041", "BarcelonaNov2018_MS047", "BarcelonaNov2018_MS053"}},

	{"mobiome_positive_swab", LabNegativeControl, ColUUID, []string{"BarcelonaNov2018_MS036", "BarcelonaNov2018_MS042", "BarcelonaNov2018_MS048"}},
	{"mobiome_positive_media_swab", LabNegativeControl, ColUUID, []string{"BarcelonaNov2018_MS043", "BarcelonaNov2018_MS037", "BarcelonaNov2018_MS049"}},
	{"mobiome_positive_media_pellet_swab", LabNegativeControl, ColUUID, []string{"BarcelonaNov2018_MS038", "BarcelonaNov2018_MS044", "BarcelonaNov2018_MS050"}},

	{"background_control", BackgroundControl, ColMetasubName, []string{"CSD16-BCN-132", "CSD16-BCN-070", "CSD16-BCN-006"}},

	{"zymo_extraction_lab_water_negative_control", LabNegativeControl, ColHAID, []string{"5080-CEM-0079", "5080-CEM-0080", "5080-CEM-0081"}},
	{"zymo_extraction_positive_control", PositiveControl, ColHAID, []string{"5080-CEM-0078"}},
	{"zymo_extraction_diluted_positive_control", PositiveControl, ColHAID, []string{"5080-CEM-0082", "5080-CEM-0083"}},

	{"background_control", BackgroundControl, ColBarcode, []string{
		"235030889", "235030329", "235030339", "235030333", "235030330", "235030331",
		"235030334", "235030332", "235030897", "235030360", "235030326", "235030336",
		"235030894", "235030895", "235030343", "235030899", "235030893", "235030327",
		"235030359", "235030337", "235030342", "235030389", "235030398", "235030368",
		"235030413", "235030381", "235030412", "235030366", "235030354", "235030374",
		"235030351", "235030347", "235030375", "235030344", "235030371", "235030350",
		"235030352", "235030349", "235030382", "235030364", "235030386", "235030365",
		"235030383", "235030384", "235030387", "235030353", "235030385", "235030363",
		"235030372", "235030346", "235030356", "235030367", "235030379", "235030369",
		"235030377", "235030380", "235030362", "235030355", "235030376", "235030370",
		"235030378", "235030357", "235029400", "235030361", "235030415", "235030420",
		"235030414", "235030401", "235030411", "235030417", "235030393", "235030404",
		"235030395", "235030407", "235030403", "235030373", "235030409", "235030394",
		"235030390", "235030408", "235030419", "235030405", "235030416", "235030402",
		"235030397", "235029421",
	}},
}

// containsAny tells whether s contains any of the patterns, ignoring
// case. An empty s contains nothing.
func containsAny(s string, patterns ...string) bool {
	if s == "" {
		return false
	}
	s = strings.ToLower(s)
	for _, p := range patterns {
		if strings.Contains(s, strings.ToLower(p)) {
			return true
		}
	}
	return false
}

// fineControl classifies a sample as a control from the lab control
// lists, falling back on the sample's name, surface and city.
func (t *Table) fineControl(row []string) string {
	for _, c := range labControls {
		if containsAny(t.Get(row, c.col), c.samples...) {
			return c.fine
		}
	}
	name := t.Get(row, ColMetasubName)
	switch {
	case containsAny(name, "positive"):
		return PositiveControl
	case containsAny(name, "control", "copan"):
		return BackgroundControl
	case containsAny(t.Get(row, colSurface), "negative_control", "air"):
		return BackgroundControl
	case containsAny(t.Get(row, ColCity), "neg_control"):
		return BackgroundControl
	case containsAny(t.Get(row, ColCity), "pos_control"):
		return PositiveControl
	}
	return ""
}

// coarseControl classifies a sample from its recorded control_type.
func (t *Table) coarseControl(row []string) string {
	switch t.Get(row, colControlType) {
	case "ctrl cities":
		return BackgroundControl
	case "positive_control", "poszymo":
		return PositiveControl
	case "negative_control", "dry tube", "dry tube & swab", "tube & rna/dna out", "tube & rna/dna out & swab":
		return LabNegativeControl
	}
	return ""
}

// SurfaceOntology returns the fine and coarse surface classes of a
// surface material description. Unknown materials have empty classes.
func SurfaceOntology(material string) (fine, coarse string) {
	switch {
	case containsAny(material, "glass", "metal", "steel", "copper"):
		return "metal", "impermeable"
	case containsAny(material, "stone", "marble", "ceramic", "concrete", "cement", "granite"):
		return "stone", "impermeable"
	case containsAny(material, "plastic", "rubber", "vinyl", "pvc", "formica"):
		return "plastic", "impermeable"
	case containsAny(material, "fabric", "cloth", "carpet"):
		return "fabric", "permeable"
	case containsAny(material, "hand", "flesh", "wood", "leather", "fiber"):
		return "biological", "permeable"
	case containsAny(material, "control"):
		return "control", "control"
	}
	return "", ""
}

// placeOntology returns the elevation class and coastal class of a
// sample's city. Samples whose city elevation cannot be parsed have
// empty classes.
func (t *Table) placeOntology(row []string) (elevation, coastal string) {
	if t.Get(row, colCoastalCity) == "yes" {
		return "coastal", "coastal"
	}
	meters, err := strconv.ParseFloat(strings.TrimSpace(t.Get(row, colElevationMeter)), 64)
	if err != nil {
		return "", ""
	}
	if meters > 1000 {
		return "high_altitude", "not_coastal"
	}
	return "low_altitude", "not_coastal"
}

// Cleaned is the result of Clean.
type Cleaned struct {
	// Deduped holds the cleaned table, one row per ha_id.
	Deduped *Table
	// Controls holds the rows of Deduped that are controls.
	Controls *Table
	// Dupes holds the rows dropped because their ha_id was already
	// present.
	Dupes *Table
	// DupeMap maps each dropped row to the row kept in its place; its
	// columns are uuid_primary, uuid_secondary and ha_id.
	DupeMap *Table
}

// Clean returns a cleaned copy of a complete metadata table. Air
// samples from CSD17 are dropped and antarctica samples are assigned
// to honolulu, where they were processed. Control, surface and place
// ontology columns are added, and rows are deduplicated on ha_id,
// keeping the first.
func Clean(t *Table) *Cleaned {
	t = t.Copy()
	t = t.Select(func(row []string) bool { return t.Get(row, ColProject) != "CSD17_AIR" })
	if t.Has(ColCity) {
		t.AddColumn(ColCity, func(row []string) string {
			if city := t.Get(row, ColCity); city != "antarctica" {
				return city
			}
			return "honolulu"
		})
	}
	t.AddColumn(ColControlFine, t.fineControl)
	t.AddColumn(ColControlCoarse, t.coarseControl)
	t.AddColumn(ColSurfaceFine, func(row []string) string {
		fine, _ := SurfaceOntology(t.Get(row, colSurface))
		return fine
	})
	t.AddColumn(ColSurfaceCoarse, func(row []string) string {
		_, coarse := SurfaceOntology(t.Get(row, colSurface))
		return coarse
	})
	t.AddColumn(ColCoastal, func(row []string) string {
		_, coastal := t.placeOntology(row)
		return coastal
	})
	t.AddColumn(ColCityElevation, func(row []string) string {
		elevation, _ := t.placeOntology(row)
		return elevation
	})

	var (
		c       = new(Cleaned)
		primary = make(map[string][]string)
	)
	c.Deduped = t.Select(func(row []string) bool {
		id := t.Get(row, ColHAID)
		if id == "" {
			return true
		}
		if _, ok := primary[id]; ok {
			return false
		}
		primary[id] = row
		return true
	})
	c.Dupes = t.Select(func(row []string) bool {
		id := t.Get(row, ColHAID)
		return id != "" && !sameRow(primary[id], row)
	})
	c.Controls = c.Deduped.Select(func(row []string) bool {
		return t.Get(row, ColControlCoarse) != ""
	})
	c.DupeMap = NewTable([]string{"uuid_primary", "uuid_secondary", ColHAID}, nil)
	for _, row := range c.Dupes.Rows {
		id := t.Get(row, ColHAID)
		c.DupeMap.Append([]string{t.Get(primary[id], ColUUID), t.Get(row, ColUUID), id})
	}
	return c
}

// sameRow tells whether a and b are the same row slice.
func sameRow(a, b []string) bool {
	return len(a) > 0 && len(b) > 0 && &a[0] == &b[0]
}

// CleanCityNames returns a copy of t whose city names are lowercased
// with runs of whitespace replaced by "_", keeping only cities with at
// least minCount samples.
func CleanCityNames(t *Table, minCount int) *Table {
	t = t.Copy()
	if !t.Has(ColCity) {
		return t
	}
	counts := make(map[string]int)
	t.AddColumn(ColCity, func(row []string) string {
		city := strings.Join(strings.Fields(strings.ToLower(t.Get(row, ColCity))), "_")
		counts[city]++
		return city
	})
	return t.Select(func(row []string) bool { return counts[t.Get(row, ColCity)] >= minCount })
}
