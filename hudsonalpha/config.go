// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package hudsonalpha

import (
	"os"

	"github.com/metasub/utils/athena"
	"github.com/metasub/utils/config"
	"github.com/metasub/utils/errors"
)

// Source describes the sequencing center as configured by the
// profile.
type Source struct {
	*Downloader
	// Flowcells is the path of the flowcell table.
	Flowcells string
}

// ReadFlowcells reads the configured flowcell table.
func (s *Source) ReadFlowcells() ([]Flowcell, error) {
	if s.Flowcells == "" {
		return nil, errors.E(errors.Invalid, "hudsonalpha: no flowcell table configured")
	}
	f, err := os.Open(s.Flowcells)
	if err != nil {
		return nil, errors.E("hudsonalpha: open flowcell table", err)
	}
	defer f.Close() // nolint: errcheck
	return ReadFlowcells(f)
}

func init() {
	config.Register("hudsonalpha", func(constr *config.Constructor) {
		d := NewDownloader("", "", athena.DefaultLibrary)
		s := &Source{Downloader: d}
		constr.StringVar(&d.URL, "url", DefaultURL, "the download server")
		constr.StringVar(&d.Username, "username", "", "the download server user name")
		constr.StringVar(&d.Password, "password", "", "the download server password")
		constr.StringVar(&d.Library, "library", athena.DefaultLibrary, "the library directory")
		constr.IntVar(&d.Workers, "workers", DefaultWorkers, "the number of concurrent downloads")
		constr.StringVar(&s.Flowcells, "flowcells", "", "the flowcell table")
		constr.Doc = "the Hudson Alpha sequencing center"
		constr.New = func() (interface{}, error) {
			return s, nil
		}
	})
}
