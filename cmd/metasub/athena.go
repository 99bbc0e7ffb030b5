// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/metasub/utils/athena"
	"github.com/metasub/utils/cmdutil"
	"github.com/metasub/utils/config"
	"github.com/metasub/utils/errors"
	"github.com/metasub/utils/metadata"
	"github.com/metasub/utils/naming"
	"v.io/x/lib/cmdline"
)

func newCmdAthena() *cmdline.Command {
	return &cmdline.Command{
		Name:  "athena",
		Short: "Commands run on the Athena cluster",
		Children: []*cmdline.Command{
			newCmdUploadResults(),
			newCmdUploadData(),
			newCmdMigrate(),
		},
	}
}

func athenaPaths() (athena.Paths, error) {
	var p athena.Paths
	err := config.Instance("athena", &p)
	return p, err
}

func newCmdUploadResults() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "upload-results",
		Short:    "Upload core analysis results to Wasabi",
		ArgsName: "[result dir]",
	}
	wetrun := wetrunFlag(cmd)
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, args []string) error {
		if len(args) > 1 {
			return env.UsageErrorf("upload-results takes at most one argument")
		}
		p, err := athenaPaths()
		if err != nil {
			return err
		}
		b, err := bucket(env)
		if err != nil {
			return err
		}
		return closeBucket(b, b.UploadResults(background(), arg(args, 0, p.Results), !*wetrun))
	})
	return cmd
}

func newCmdUploadData() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "upload-data",
		Short:    "Upload raw data from the Hudson Alpha library to Wasabi",
		ArgsName: "[data dir]",
	}
	wetrun := wetrunFlag(cmd)
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, args []string) error {
		if len(args) > 1 {
			return env.UsageErrorf("upload-data takes at most one argument")
		}
		p, err := athenaPaths()
		if err != nil {
			return err
		}
		b, err := bucket(env)
		if err != nil {
			return err
		}
		return closeBucket(b, b.UploadRawData(background(), arg(args, 0, p.Library), !*wetrun))
	})
	return cmd
}

func newCmdMigrate() *cmdline.Command {
	return &cmdline.Command{
		Name:  "migrate",
		Short: "Print renaming plans for the move to HA unique ids",
		Long: `
Each command prints a two column table, old name and new name, to be
reviewed and applied separately.`,
		Children: []*cmdline.Command{
			newCmdRenameSLFiles(),
			newCmdDatasuperToHAUniq(),
			newCmdNewCoreResults(),
		},
	}
}

func printPairs(w io.Writer, m map[string]string) {
	set := make(map[string]bool, len(m))
	for k := range m {
		set[k] = true
	}
	for _, k := range metadata.SortedKeys(set) {
		fmt.Fprintf(w, "%s %s\n", k, m[k])
	}
}

func readDatasuper(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.E("open", path, err)
	}
	defer f.Close() // nolint: errcheck
	return naming.DatasuperToHAUnique(f)
}

func newCmdRenameSLFiles() *cmdline.Command {
	return &cmdline.Command{
		Name:     "rename-sl-files",
		Short:    "Map SL fastq files of the library to their HA unique paths",
		ArgsName: "[library]",
		Runner: cmdutil.RunnerFunc(func(env *cmdline.Env, args []string) error {
			if len(args) > 1 {
				return env.UsageErrorf("rename-sl-files takes at most one argument")
			}
			p, err := athenaPaths()
			if err != nil {
				return err
			}
			paths, err := naming.RenameSLFiles(arg(args, 0, p.Library), func(path string) bool {
				_, err := os.Stat(path)
				return err == nil
			})
			if err != nil {
				return err
			}
			printPairs(env.Stdout, paths)
			return nil
		}),
	}
}

func newCmdDatasuperToHAUniq() *cmdline.Command {
	return &cmdline.Command{
		Name:     "datasuper-to-hauniq",
		Short:    "Map datasuper sample names to HA unique ids",
		ArgsName: "<source fastqs>",
		Runner: cmdutil.RunnerFunc(func(env *cmdline.Env, args []string) error {
			if len(args) != 1 {
				return env.UsageErrorf("datasuper-to-hauniq takes one argument")
			}
			names, err := readDatasuper(args[0])
			if err != nil {
				return err
			}
			printPairs(env.Stdout, names)
			return nil
		}),
	}
}

func newCmdNewCoreResults() *cmdline.Command {
	return &cmdline.Command{
		Name:     "new-core-results",
		Short:    "Map core results named by datasuper names to HA unique names",
		ArgsName: "<source fastqs> <old result dir>",
		Runner: cmdutil.RunnerFunc(func(env *cmdline.Env, args []string) error {
			if len(args) != 2 {
				return env.UsageErrorf("new-core-results takes two arguments")
			}
			names, err := readDatasuper(args[0])
			if err != nil {
				return err
			}
			paths, err := naming.RenameCoreResults(names, args[1])
			if err != nil {
				return err
			}
			printPairs(env.Stdout, paths)
			return nil
		}),
	}
}
