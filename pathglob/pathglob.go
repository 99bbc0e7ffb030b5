// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package pathglob expands glob patterns against the local file
// system. Patterns follow https://github.com/gobwas/glob with '/' as
// the separator: '*' matches within one path element and '**'
// matches across elements.
package pathglob

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
	"github.com/gobwas/glob/syntax"
	"github.com/gobwas/glob/syntax/ast"
	"github.com/metasub/utils/errors"
)

// parseGlob parses a string that potentially contains glob
// metacharacters, and returns (nonglobprefix, hasglob). If the string
// does not contain any glob metacharacter, this function returns
// (str, false). Else, it returns the prefix of path elements up to the
// element containing a glob character.
//
// For example, parseGlob("foo/bar/baz*/*.txt") returns ("foo/bar/", true).
func parseGlob(str string) (string, bool, error) {
	node, err := syntax.Parse(str)
	if err != nil {
		return "", false, err
	}
	if node.Kind != ast.KindPattern || len(node.Children) == 0 {
		return str, false, nil
	}
	if node.Children[0].Kind != ast.KindText {
		return "", true, nil
	}
	if len(node.Children) == 1 {
		return str, false, nil
	}
	prefix := node.Children[0].Value.(ast.Text).Text
	if i := strings.LastIndexByte(prefix, '/'); i >= 0 {
		prefix = prefix[:i+1]
	} else {
		prefix = ""
	}
	return prefix, true, nil
}

// Expand returns the sorted paths that match pattern. A pattern
// without metacharacters matches itself if the path exists. Files and
// directories both match.
func Expand(pattern string) ([]string, error) {
	prefix, hasGlob, err := parseGlob(pattern)
	if err != nil {
		return nil, errors.E(errors.Invalid, "pathglob: parse", pattern, err)
	}
	if !hasGlob {
		if _, err := os.Lstat(pattern); err != nil {
			if os.IsNotExist(err) {
				return nil, nil
			}
			return nil, errors.E("pathglob: stat", pattern, err)
		}
		return []string{pattern}, nil
	}
	m, err := glob.Compile(pattern, '/')
	if err != nil {
		return nil, errors.E(errors.Invalid, "pathglob: compile", pattern, err)
	}
	suffix := strings.TrimSuffix(pattern[len(prefix):], "/")
	depth := strings.Count(suffix, "/") + 1
	if strings.Contains(suffix, "**") {
		depth = -1
	}
	root := prefix
	if root == "" {
		root = "."
	}
	strip := filepath.Clean(root)
	if !strings.HasSuffix(strip, "/") {
		strip += "/"
	}
	var matches []string
	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == root {
				return filepath.SkipDir
			}
			return err
		}
		if path == root {
			return nil
		}
		rel := prefix + strings.TrimPrefix(path, strip)
		if m.Match(rel) {
			matches = append(matches, rel)
		}
		if info.IsDir() && depth > 0 && strings.Count(strings.TrimPrefix(rel, prefix), "/")+1 >= depth {
			return filepath.SkipDir
		}
		return nil
	})
	if err != nil && err != filepath.SkipDir {
		return nil, errors.E("pathglob: walk", root, err)
	}
	sort.Strings(matches)
	return matches, nil
}

// Files is like Expand, but returns only regular files.
func Files(pattern string) ([]string, error) {
	paths, err := Expand(pattern)
	if err != nil {
		return nil, err
	}
	files := paths[:0]
	for _, path := range paths {
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			files = append(files, path)
		}
	}
	return files, nil
}

// Matcher compiles pattern into a path matcher.
func Matcher(pattern string) (glob.Glob, error) {
	m, err := glob.Compile(pattern, '/')
	if err != nil {
		return nil, errors.E(errors.Invalid, "pathglob: compile", pattern, err)
	}
	return m, nil
}
