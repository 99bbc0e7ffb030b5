// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package main

import (
	"os"

	"github.com/metasub/utils/cmdutil"
	"github.com/metasub/utils/config"
	"github.com/metasub/utils/errors"
	"github.com/metasub/utils/pangea"
	"v.io/x/lib/cmdline"
)

func newCmdPangea() *cmdline.Command {
	return &cmdline.Command{
		Name:     "pangea",
		Short:    "Create MetaSUB resources on Pangea",
		Children: []*cmdline.Command{newCmdCreateSamples()},
	}
}

func readTaxa(path string) (pangea.Taxa, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.E("open", path, err)
	}
	defer f.Close() // nolint: errcheck
	return pangea.ReadTaxa(f)
}

func newCmdCreateSamples() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "create-samples",
		Short:    "Create a Pangea sample for each sample with public nonhuman reads",
		ArgsName: "<email> <password>",
		Long: `
Each sample is created in the MetaSUB library with its metadata and a
nonhuman_reads result pointing at its reads in the Wasabi bucket. With
-taxa-table, a CSV of taxon abundances with one row per sample, each
sample also gets a krakenuniq_taxonomy result.`,
	}
	city := cmd.Flags.String("city", "", "only create samples from this city")
	project := cmd.Flags.String("project", "", "only create samples from this project")
	taxaTable := cmd.Flags.String("taxa-table", "", "a taxonomy table to upload")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, args []string) error {
		if len(args) != 2 {
			return env.UsageErrorf("create-samples takes an email and a password")
		}
		ctx := background()
		var knex *pangea.Knex
		if err := config.Instance("pangea", &knex); err != nil {
			return err
		}
		if err := knex.Login(ctx, args[0], args[1]); err != nil {
			return err
		}
		u := &pangea.Uploader{Knex: knex, Log: env.Stderr}
		if *taxaTable != "" {
			var err error
			if u.Taxa, err = readTaxa(*taxaTable); err != nil {
				return err
			}
		}
		l, err := loader()
		if err != nil {
			return err
		}
		if u.Metadata, err = l.Complete(ctx); err != nil {
			return err
		}
		b, err := bucket(env)
		if err != nil {
			return err
		}
		u.Bucket, u.StorageEndpoint = b.Name(), b.Endpoint()
		reads, err := b.NonhumanReads(ctx, nil, *city, *project)
		if err == nil {
			err = u.CreateSamples(ctx, reads)
		}
		return closeBucket(b, err)
	})
	return cmd
}
