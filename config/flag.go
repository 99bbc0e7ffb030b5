// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package config

import (
	"flag"
	"os"
	"path/filepath"
	"strings"

	"github.com/metasub/utils/errors"
	"github.com/metasub/utils/log"
)

type listFlag []string

func (l *listFlag) String() string { return strings.Join(*l, ",") }

func (l *listFlag) Set(value string) error {
	*l = append(*l, value)
	return nil
}

// DefaultPath is the profile loaded by ProcessFlags when no -profile
// flag is given. It is skipped when it does not exist.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".metasub", "profile")
}

// RegisterFlags registers the profile flags on the provided FlagSet.
// The flags take effect when ProcessFlags is called after flag
// parsing. They are:
//
//	-profile path
//		Load the profile at path. May be repeated; profiles are
//		loaded in order. If no -profile flag is given, DefaultPath
//		is loaded if it exists.
//	-set instance.param=value
//		Set a profile parameter after all profiles are loaded. May
//		be repeated.
func (p *Profile) RegisterFlags(fs *flag.FlagSet) {
	fs.Var((*listFlag)(&p.flagPaths), "profile", "load the profile at the provided path; may be repeated")
	fs.Var((*listFlag)(&p.flagParams), "set", "set a profile parameter (instance.param=value); may be repeated")
}

// ProcessFlags loads the profiles and parameters named by the flags
// registered with RegisterFlags.
func (p *Profile) ProcessFlags() error {
	paths := p.flagPaths
	if len(paths) == 0 {
		if path := DefaultPath(); path != "" {
			if _, err := os.Stat(path); err == nil {
				paths = []string{path}
			}
		}
	}
	for _, path := range paths {
		log.Debug.Printf("config: loading profile %s", path)
		if err := p.ParseFile(path); err != nil {
			return err
		}
	}
	for _, set := range p.flagParams {
		parts := strings.SplitN(set, "=", 2)
		if len(parts) != 2 {
			return errors.E(errors.Invalid, "config: invalid -set value", set, "missing '='")
		}
		if err := p.Set(parts[0], parts[1]); err != nil {
			return err
		}
	}
	return nil
}
