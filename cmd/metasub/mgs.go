// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package main

import (
	"github.com/metasub/utils/cmdutil"
	"github.com/metasub/utils/config"
	"github.com/metasub/utils/metagenscope"
	"v.io/x/lib/cmdline"
)

func newCmdMGS() *cmdline.Command {
	return &cmdline.Command{
		Name:     "mgs",
		Short:    "Upload results to MetaGenScope",
		Children: []*cmdline.Command{newCmdUploadCity()},
	}
}

func newCmdUploadCity() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "upload-city",
		Short:    "Upload the results of one or more cities as a MetaGenScope group",
		ArgsName: "<city>...",
		Long: `
The group is named after the city's display name, or -display-name,
which is required when several cities are given. The results are taken
from the metagenscope.results profile parameter.`,
	}
	wetrun := wetrunFlag(cmd)
	uploadOnly := cmd.Flags.Bool("upload-only", false, "do not run the middleware after uploading")
	displayName := cmd.Flags.String("display-name", "", "the group name")
	suffix := cmd.Flags.String("display-name-suffix", "", "a suffix appended to the group name")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, args []string) error {
		name, err := metagenscope.DisplayName(args, *displayName, *suffix)
		if err != nil {
			return env.UsageErrorf("%v", err)
		}
		var u *metagenscope.Uploader
		if err := config.Instance("metagenscope", &u); err != nil {
			return err
		}
		if u.Metadata, err = loader(); err != nil {
			return err
		}
		u.Dryrun = !*wetrun
		u.UploadOnly = *uploadOnly
		u.Out = env.Stdout
		return u.UploadCities(background(), args, name)
	})
	return cmd
}
