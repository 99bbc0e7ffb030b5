// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package main

import (
	"github.com/metasub/utils/cmdutil"
	"github.com/metasub/utils/config"
	"github.com/metasub/utils/hudsonalpha"
	"v.io/x/lib/cmdline"
)

func newCmdHudsonAlpha() *cmdline.Command {
	return &cmdline.Command{
		Name:     "hudsonalpha",
		Short:    "Download data from the Hudson Alpha sequencing center",
		Children: []*cmdline.Command{newCmdHADownload()},
	}
}

func newCmdHADownload() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "download",
		Short:    "Download flowcells into the library",
		ArgsName: "[username password]",
		Long: `
Each flowcell of the flowcell table (the hudsonalpha.flowcells profile
parameter, or -flowcells) is downloaded into
<library>/<HA project>/<flowcell>. Fastq files already in the library
are skipped. The credentials default to the hudsonalpha.username and
hudsonalpha.password profile parameters.`,
	}
	wetrun := wetrunFlag(cmd)
	flowcells := cmd.Flags.String("flowcells", "", "the flowcell table; overrides the profile")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, args []string) error {
		if len(args) != 0 && len(args) != 2 {
			return env.UsageErrorf("download takes a username and a password, or no arguments")
		}
		var src *hudsonalpha.Source
		if err := config.Instance("hudsonalpha", &src); err != nil {
			return err
		}
		if len(args) == 2 {
			src.Username, src.Password = args[0], args[1]
		}
		if *flowcells != "" {
			src.Flowcells = *flowcells
		}
		src.Out = env.Stdout
		fcs, err := src.ReadFlowcells()
		if err != nil {
			return err
		}
		return src.ProcessFlowcells(background(), fcs, !*wetrun)
	})
	return cmd
}
