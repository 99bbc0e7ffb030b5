// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package main

import (
	"fmt"

	"github.com/metasub/utils/cmdutil"
	"github.com/metasub/utils/metadata"
	"v.io/x/lib/cmdline"
)

func newCmdMetadata() *cmdline.Command {
	return &cmdline.Command{
		Name:  "metadata",
		Short: "Query the MetaSUB metadata tables",
		Children: []*cmdline.Command{
			newCmdCities(),
			newCmdTable(),
			newCmdSamplesFromCity(),
		},
	}
}

func newCmdCities() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:  "cities",
		Short: "Print the canonical city names",
	}
	lower := cmd.Flags.Bool("lower", false, "print the names in lower case")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, args []string) error {
		if len(args) != 0 {
			return env.UsageErrorf("cities takes no arguments")
		}
		l, err := loader()
		if err != nil {
			return err
		}
		cities, err := l.CanonicalCities(background(), *lower)
		if err != nil {
			return err
		}
		for _, city := range cities {
			fmt.Fprintln(env.Stdout, city)
		}
		return nil
	})
	return cmd
}

func newCmdTable() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:  "table",
		Short: "Print the metadata table as CSV",
		Long: `
By default the complete table is printed. With -clean, CSD17 air samples
are dropped, ontology columns are added and rows are deduplicated on
ha_id.`,
	}
	uploadable := cmd.Flags.Bool("uploadable", false, "print the table trimmed for MetaGenScope")
	clean := cmd.Flags.Bool("clean", false, "clean the complete table")
	minCount := cmd.Flags.Int("min-city-count", 0, "with -clean, normalize city names and keep cities with at least this many samples")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, args []string) error {
		if *uploadable && *clean {
			return env.UsageErrorf("-uploadable and -clean are exclusive")
		}
		l, err := loader()
		if err != nil {
			return err
		}
		var tbl *metadata.Table
		if *uploadable {
			tbl, err = l.Uploadable(background())
		} else {
			tbl, err = l.Complete(background())
		}
		if err != nil {
			return err
		}
		if *clean {
			tbl = metadata.Clean(tbl).Deduped
			if *minCount > 0 {
				tbl = metadata.CleanCityNames(tbl, *minCount)
			}
		}
		return tbl.WriteCSV(env.Stdout)
	})
	return cmd
}

func newCmdSamplesFromCity() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "samples-from-city",
		Short:    "Print the names of the samples of a city",
		ArgsName: "<city>",
	}
	project := cmd.Flags.String("project", "", "only print samples of this project")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, args []string) error {
		if len(args) != 1 {
			return env.UsageErrorf("samples-from-city takes one argument")
		}
		l, err := loader()
		if err != nil {
			return err
		}
		names, err := l.SamplesFromCity(background(), args[0], *project)
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Fprintln(env.Stdout, name)
		}
		return nil
	})
	return cmd
}
