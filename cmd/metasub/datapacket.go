// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package main

import (
	"fmt"

	"github.com/metasub/utils/cmdutil"
	"github.com/metasub/utils/datapacket"
	"v.io/x/lib/cmdline"
)

func newCmdDataPacket() *cmdline.Command {
	return &cmdline.Command{
		Name:  "data-packet",
		Short: "Make sub packets of a MetaSUB data packet",
		Children: []*cmdline.Command{
			newCmdGenericSubPacket(),
			newCmdCitySubPacket(),
			newCmdCityTaxa(),
		},
	}
}

func packetDirFlag(cmd *cmdline.Command) *string {
	return cmd.Flags.String("packet-dir", ".", "the data packet directory")
}

func newCmdGenericSubPacket() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "generic-sub-packet",
		Short:    "Make a sub packet of the samples listed in a file",
		ArgsName: "<sample names> <sub packet dir>",
	}
	packetDir := packetDirFlag(cmd)
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, args []string) error {
		if len(args) != 2 {
			return env.UsageErrorf("generic-sub-packet takes two arguments")
		}
		names, err := datapacket.ReadSampleNames(args[0])
		if err != nil {
			return err
		}
		return datapacket.MakeSubPacket(*packetDir, names, args[1])
	})
	return cmd
}

func newCmdCitySubPacket() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "city-sub-packet",
		Short:    "Make a sub packet of the samples of a city",
		ArgsName: "<city>",
	}
	packetDir := packetDirFlag(cmd)
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, args []string) error {
		if len(args) != 1 {
			return env.UsageErrorf("city-sub-packet takes one argument")
		}
		l, err := loader()
		if err != nil {
			return err
		}
		dir, err := datapacket.MakeCityPacket(background(), l, *packetDir, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(env.Stdout, dir)
		return nil
	})
	return cmd
}

func newCmdCityTaxa() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:  "city-taxa",
		Short: "Write the species table of each city packet",
	}
	packetDir := packetDirFlag(cmd)
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, args []string) error {
		if len(args) != 0 {
			return env.UsageErrorf("city-taxa takes no arguments")
		}
		return datapacket.CityTaxa(*packetDir)
	})
	return cmd
}
