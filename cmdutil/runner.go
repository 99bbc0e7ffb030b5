// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package cmdutil provides utility routines for implementing the
// metasub command line tools.
package cmdutil

import (
	"flag"
	"sync"

	"github.com/metasub/utils/config"
	"github.com/metasub/utils/log"
	"v.io/x/lib/cmdline"
)

var (
	runnerOnce sync.Once
	runnerErr  error
)

// RegisterFlags registers the global logging and profile flags on fs,
// typically flag.CommandLine, which cmdline treats as the global flag
// set.
func RegisterFlags(fs *flag.FlagSet) {
	log.AddFlags(fs)
	config.Application().RegisterFlags(fs)
}

// RunnerFunc is an adapter that turns regular functions into cmdline.Runners.
type RunnerFunc func(*cmdline.Env, []string) error

// Run implements the cmdline.Runner interface method by calling f(env, args)
// after the application profile has been loaded from the flags
// registered by RegisterFlags.
func (f RunnerFunc) Run(env *cmdline.Env, args []string) error {
	runnerOnce.Do(func() {
		runnerErr = config.Application().ProcessFlags()
	})
	if runnerErr != nil {
		return runnerErr
	}
	return f(env, args)
}
