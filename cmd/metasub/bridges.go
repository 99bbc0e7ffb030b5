// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package main

import (
	"github.com/metasub/utils/bridges"
	"github.com/metasub/utils/cmdutil"
	"github.com/metasub/utils/config"
	"github.com/metasub/utils/errors"
	"github.com/metasub/utils/zurich"
	"v.io/x/lib/cmdline"
)

func newCmdBridges() *cmdline.Command {
	return &cmdline.Command{
		Name:  "bridges",
		Short: "Commands run on the Bridges cluster",
		Children: []*cmdline.Command{
			newCmdUploadAssemblies(),
			newCmdUploadContigs(),
			newCmdCopyAssemblies(),
		},
	}
}

// assemblies returns the configured Bridges paths, the assembly
// directories found under their data directory and the SL table used
// to rename them.
func assemblies() (bridges.Paths, []string, map[string]string, error) {
	var p bridges.Paths
	if err := config.Instance("bridges", &p); err != nil {
		return p, nil, nil, err
	}
	slTable, err := p.ReadSLTable()
	if err != nil {
		return p, nil, nil, err
	}
	dirs, err := bridges.MetaspadesDirs(p.Data)
	return p, dirs, slTable, err
}

func newCmdUploadAssemblies() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "upload-assemblies-to-zurich",
		Short:    "Upload metaSPAdes assemblies to the Zurich SFTP server",
		ArgsName: "[username password]",
		Long: `
Assemblies are renamed after the HA unique ids of their samples.
Directories that cannot be renamed are reported as
NO_UPLOAD KEY_ERROR <dir> or NO_UPLOAD INDEX_ERROR <dir> and skipped.`,
	}
	wetrun := wetrunFlag(cmd)
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, args []string) (err error) {
		if len(args) != 0 && len(args) != 2 {
			return env.UsageErrorf("upload-assemblies-to-zurich takes a username and a password, or no arguments")
		}
		var server *zurich.Server
		if err := config.Instance("zurich", &server); err != nil {
			return err
		}
		if len(args) == 2 {
			server.Username, server.Password = args[0], args[1]
		}
		_, dirs, slTable, err := assemblies()
		if err != nil {
			return err
		}
		knex, err := server.Dial(!*wetrun)
		if err != nil {
			return err
		}
		defer errors.CleanUp(knex.Close, &err)
		knex.Out = env.Stdout
		return bridges.UploadAssemblies(knex, server.Assemblies, dirs, slTable, env.Stderr)
	})
	return cmd
}

func newCmdUploadContigs() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "upload-contigs",
		Short:    "Upload assembly contigs to Wasabi",
		ArgsName: "[result dir]",
	}
	wetrun := wetrunFlag(cmd)
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, args []string) error {
		if len(args) > 1 {
			return env.UsageErrorf("upload-contigs takes at most one argument")
		}
		var p bridges.Paths
		if err := config.Instance("bridges", &p); err != nil {
			return err
		}
		b, err := bucket(env)
		if err != nil {
			return err
		}
		return closeBucket(b, b.UploadContigs(background(), arg(args, 0, p.Assemblies), !*wetrun))
	})
	return cmd
}

func newCmdCopyAssemblies() *cmdline.Command {
	return &cmdline.Command{
		Name:     "copy-assemblies",
		Short:    "Copy metaSPAdes assemblies, renamed, to a directory",
		ArgsName: "<target dir>",
		Runner: cmdutil.RunnerFunc(func(env *cmdline.Env, args []string) error {
			if len(args) != 1 {
				return env.UsageErrorf("copy-assemblies takes one argument")
			}
			_, dirs, slTable, err := assemblies()
			if err != nil {
				return err
			}
			return bridges.CopyAssemblies(args[0], dirs, slTable, env.Stderr)
		}),
	}
}
