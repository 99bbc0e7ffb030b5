// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package athena describes the MetaSUB data layout on the Athena
// cluster at Weill Cornell Medicine, where raw data is received from
// the sequencing center and the core analysis pipeline runs.
package athena

import (
	"github.com/metasub/utils/config"
)

// Default locations on Athena.
const (
	DefaultResults = "/athena/masonlab/scratch/projects/metagenomics/metasub/analysis/new_metasub_cap/.module_ultra/core_results"
	DefaultData    = "/athena/masonlab/scratch/projects/metagenomics/metasub/data"
	DefaultLibrary = DefaultData + "/hudson_alpha_library"
)

// Paths locates MetaSUB data on the cluster.
type Paths struct {
	// Results holds core analysis results, one directory per sample.
	Results string
	// Data holds raw data.
	Data string
	// Library is the Hudson Alpha library:
	// <Library>/<HA project>/<flowcell>/<HA unique id>_[12].fastq.gz.
	Library string
}

// DefaultPaths returns the standard Athena locations.
func DefaultPaths() Paths {
	return Paths{Results: DefaultResults, Data: DefaultData, Library: DefaultLibrary}
}

func init() {
	config.Register("athena", func(constr *config.Constructor) {
		var p Paths
		constr.StringVar(&p.Results, "results", DefaultResults, "the core results directory")
		constr.StringVar(&p.Data, "data", DefaultData, "the raw data directory")
		constr.StringVar(&p.Library, "library", DefaultLibrary, "the Hudson Alpha library directory")
		constr.Doc = "data locations on the Athena cluster"
		constr.New = func() (interface{}, error) {
			return p, nil
		}
	})
}
