// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// The following enables go generate to generate the doc.go file.
//go:generate go run v.io/x/lib/cmdline/gendoc "--build-cmd=go install" --copyright-notice= . -help

// Command metasub manages MetaSUB data: the metadata tables, the
// Wasabi bucket, downloads from Hudson Alpha, transfers on the Athena
// and Bridges clusters, the Zurich SFTP server, Pangea and
// MetaGenScope. Commands that transfer data print their plan and do
// nothing unless -wetrun is given.
package main

import (
	"context"
	"flag"

	"github.com/metasub/utils/cmdutil"
	"github.com/metasub/utils/config"
	"github.com/metasub/utils/log"
	"github.com/metasub/utils/metadata"
	"github.com/metasub/utils/wasabi"
	"v.io/x/lib/cmdline"
)

func newCmdRoot() *cmdline.Command {
	return &cmdline.Command{
		Name:     "metasub",
		Short:    "Manage MetaSUB data",
		LookPath: false,
		Children: []*cmdline.Command{
			newCmdMetadata(),
			newCmdWasabi(),
			newCmdHudsonAlpha(),
			newCmdAthena(),
			newCmdBridges(),
			newCmdPangea(),
			newCmdMGS(),
			newCmdDataPacket(),
			newCmdHealthCheck(),
			newCmdProfile(),
			cmdutil.CreateVersionCommand("version", "metasub"),
		},
	}
}

func main() {
	cmdutil.RegisterFlags(flag.CommandLine)
	cmdline.Main(newCmdRoot())
}

func newCmdProfile() *cmdline.Command {
	return &cmdline.Command{
		Name:  "profile",
		Short: "Print the effective profile",
		Runner: cmdutil.RunnerFunc(func(env *cmdline.Env, args []string) error {
			if len(args) != 0 {
				return env.UsageErrorf("profile takes no arguments")
			}
			return config.Application().PrintTo(env.Stdout)
		}),
	}
}

// wetrunFlag registers the -wetrun flag of a transfer command.
func wetrunFlag(cmd *cmdline.Command) *bool {
	return cmd.Flags.Bool("wetrun", false, "perform the transfers; by default they are only printed")
}

func loader() (*metadata.Loader, error) {
	var l *metadata.Loader
	err := config.Instance("metadata", &l)
	return l, err
}

// bucket returns the configured bucket, resolving samples with the
// configured metadata tables and printing transfers to env.Stdout.
func bucket(env *cmdline.Env) (*wasabi.Bucket, error) {
	var b *wasabi.Bucket
	if err := config.Instance("wasabi", &b); err != nil {
		return nil, err
	}
	l, err := loader()
	if err != nil {
		return nil, err
	}
	b.Metadata = l
	b.Out = env.Stdout
	return b, nil
}

// closeBucket waits for the bucket's transfers, returning the first
// error of err and the transfers.
func closeBucket(b *wasabi.Bucket, err error) error {
	if cerr := b.Close(); cerr != nil {
		if err == nil {
			return cerr
		}
		log.Error.Printf("wasabi: %v", cerr)
	}
	return err
}

// arg returns args[i], or def if there are too few arguments.
func arg(args []string, i int, def string) string {
	if i < len(args) {
		return args[i]
	}
	return def
}

func background() context.Context {
	return context.Background()
}
