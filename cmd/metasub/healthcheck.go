// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package main

import (
	"github.com/metasub/utils/cmdutil"
	"github.com/metasub/utils/healthcheck"
	"v.io/x/lib/cmdline"
)

func newCmdHealthCheck() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "health-check",
		Short:    "Check gzipped fastq files",
		ArgsName: "<log> <error log> <file>...",
		Long: `
Each file must be valid gzip with a line count divisible by four; by
default files are checked in sorted pairs of mates, which must have
equal line counts. Passing files are appended to the log as
<path> <md5> <lines> and skipped by later checks; failures are appended
to the error log.`,
	}
	single := cmd.Flags.Bool("single", false, "check files without mates")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, args []string) error {
		if len(args) < 2 {
			return env.UsageErrorf("health-check takes a log, an error log and files")
		}
		return healthcheck.RunFiles(background(), !*single, args[0], args[1], args[2:])
	})
	return cmd
}
