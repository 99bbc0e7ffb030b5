// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package bridges

import (
	"os"

	"github.com/metasub/utils/config"
	"github.com/metasub/utils/errors"
	"github.com/metasub/utils/naming"
)

// Paths locates MetaSUB data on Bridges.
type Paths struct {
	// Data is searched for assemblies.
	Data string
	// Assemblies holds renamed assemblies.
	Assemblies string
	// SLTable maps datasuper sample names to HA unique ids.
	SLTable string
}

// ReadSLTable reads the configured datasuper to HA unique id table.
func (p Paths) ReadSLTable() (map[string]string, error) {
	if p.SLTable == "" {
		return nil, errors.E(errors.Invalid, "bridges: no sl table configured")
	}
	f, err := os.Open(p.SLTable)
	if err != nil {
		return nil, errors.E("bridges: open sl table", err)
	}
	defer f.Close() // nolint: errcheck
	return naming.ParseSLTable(f)
}

func init() {
	config.Register("bridges", func(constr *config.Constructor) {
		var p Paths
		constr.StringVar(&p.Data, "data", DefaultData, "the directory searched for assemblies")
		constr.StringVar(&p.Assemblies, "assemblies", DefaultAssemblies, "the renamed assemblies directory")
		constr.StringVar(&p.SLTable, "sl_table", "", "the datasuper to HA unique id table")
		constr.Doc = "data locations on the Bridges cluster"
		constr.New = func() (interface{}, error) {
			return p, nil
		}
	})
}
