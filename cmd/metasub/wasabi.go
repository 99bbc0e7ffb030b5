// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/metasub/utils/cmdutil"
	"github.com/metasub/utils/wasabi"
	"v.io/x/lib/cmdline"
)

const defaultContigFile = "contigs.fasta"

func newCmdWasabi() *cmdline.Command {
	return &cmdline.Command{
		Name:  "wasabi",
		Short: "List and transfer files of the Wasabi bucket",
		Long: `
The bucket is configured by the wasabi instance of the profile, e.g.

	param wasabi (
		bucket = "metasub"
		profile = "wasabi"
		threads = 8
	)`,
		Children: []*cmdline.Command{
			newCmdList("list", "List every file of the bucket",
				func(ctx context.Context, b *wasabi.Bucket, _ []string) ([]string, error) {
					return b.ListFiles(ctx)
				}),
			newCmdList("list-unassembled", "List the data files of samples without an assembly",
				func(ctx context.Context, b *wasabi.Bucket, _ []string) ([]string, error) {
					return b.ListUnassembled(ctx)
				}),
			newCmdListRaw(),
			newCmdList("list-contigs", "List the contig files of the assemblies",
				func(ctx context.Context, b *wasabi.Bucket, _ []string) ([]string, error) {
					return b.ListContigs(ctx, defaultContigFile)
				}),
			newCmdList("list-public", "List the public files",
				func(ctx context.Context, b *wasabi.Bucket, _ []string) ([]string, error) {
					return b.ListPublicFiles(ctx)
				}),
			newCmdNonhumanReads(),
			newCmdDownloadRaw(),
			newCmdDownload("download-unassembled", "Download the data files of samples without an assembly", "data",
				func(ctx context.Context, b *wasabi.Bucket, target string, dryrun bool) error {
					return b.DownloadUnassembled(ctx, target, dryrun)
				}),
			newCmdDownload("download-contigs", "Download the contig files of the assemblies", "assemblies",
				func(ctx context.Context, b *wasabi.Bucket, target string, dryrun bool) error {
					return b.DownloadContigs(ctx, target, defaultContigFile, dryrun)
				}),
		},
	}
}

func newCmdList(name, short string, list func(context.Context, *wasabi.Bucket, []string) ([]string, error)) *cmdline.Command {
	return &cmdline.Command{
		Name:  name,
		Short: short,
		Runner: cmdutil.RunnerFunc(func(env *cmdline.Env, args []string) error {
			if len(args) != 0 {
				return env.UsageErrorf("%s takes no arguments", name)
			}
			b, err := bucket(env)
			if err != nil {
				return err
			}
			keys, err := list(background(), b, args)
			if err == nil {
				for _, key := range keys {
					fmt.Fprintln(env.Stdout, key)
				}
			}
			return closeBucket(b, err)
		}),
	}
}

func newCmdListRaw() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:  "list-raw",
		Short: "List the raw reads, of a city and project if given",
	}
	city := cmd.Flags.String("city", "", "only list reads of samples from this city")
	project := cmd.Flags.String("project", "", "only list reads of samples from this project")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, args []string) error {
		if len(args) != 0 {
			return env.UsageErrorf("list-raw takes no arguments")
		}
		b, err := bucket(env)
		if err != nil {
			return err
		}
		keys, err := b.ListRaw(background(), *city, *project)
		if err == nil {
			for _, key := range keys {
				fmt.Fprintln(env.Stdout, key)
			}
		}
		return closeBucket(b, err)
	})
	return cmd
}

func newCmdNonhumanReads() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "nonhuman-reads",
		Short:    "List the public nonhuman reads of samples",
		ArgsName: "[sample...]",
	}
	city := cmd.Flags.String("city", "", "list reads of samples from this city")
	project := cmd.Flags.String("project", "", "list reads of samples from this project")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, args []string) error {
		b, err := bucket(env)
		if err != nil {
			return err
		}
		reads, err := b.NonhumanReads(background(), args, *city, *project)
		if err == nil {
			samples := make([]string, 0, len(reads))
			for sample := range reads {
				samples = append(samples, sample)
			}
			sort.Strings(samples)
			for _, sample := range samples {
				for _, key := range reads[sample] {
					fmt.Fprintf(env.Stdout, "%s\t%s\n", sample, key)
				}
			}
		}
		return closeBucket(b, err)
	})
	return cmd
}

func newCmdDownloadRaw() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "download-raw",
		Short:    "Download raw reads, of a city and project if given",
		ArgsName: "[target dir]",
	}
	wetrun := wetrunFlag(cmd)
	city := cmd.Flags.String("city", "", "only download reads of samples from this city")
	project := cmd.Flags.String("project", "", "only download reads of samples from this project")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, args []string) error {
		if len(args) > 1 {
			return env.UsageErrorf("download-raw takes at most one argument")
		}
		b, err := bucket(env)
		if err != nil {
			return err
		}
		return closeBucket(b, b.DownloadRaw(background(), *city, *project, arg(args, 0, "data"), !*wetrun))
	})
	return cmd
}

func newCmdDownload(name, short, target string, download func(context.Context, *wasabi.Bucket, string, bool) error) *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     name,
		Short:    short,
		ArgsName: "[target dir]",
		Long:     "The target directory defaults to " + target + ".",
	}
	wetrun := wetrunFlag(cmd)
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, args []string) error {
		if len(args) > 1 {
			return env.UsageErrorf("%s takes at most one argument", name)
		}
		b, err := bucket(env)
		if err != nil {
			return err
		}
		return closeBucket(b, download(background(), b, arg(args, 0, target), !*wetrun))
	})
	return cmd
}
