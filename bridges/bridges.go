// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package bridges moves metaSPAdes assemblies off the Bridges cluster
// at PSC. Assemblies are found as directories containing a
// contigs.fasta file and are renamed after the HA unique id of the
// sample they assemble:
//
//	<root>/<HA project>/<flowcell>/<HA unique id>.metaspades/
package bridges

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/metasub/utils/errors"
	"github.com/metasub/utils/log"
	"github.com/metasub/utils/naming"
	"github.com/metasub/utils/pathglob"
)

// Default locations on Bridges.
const (
	DefaultData       = "/home/dcdanko/pylon5/MetaSUB"
	DefaultAssemblies = "/home/dcdanko/pylon5/metasub_assemblies"
)

// MetaspadesDirs returns the sorted directories under root that
// contain a contigs.fasta file.
func MetaspadesDirs(root string) ([]string, error) {
	files, err := pathglob.Expand(filepath.Join(root, "**", "contigs.fasta"))
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var dirs []string
	for _, file := range files {
		dir := filepath.Dir(file)
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}
	sort.Strings(dirs)
	return dirs, nil
}

// Knex is the remote server assemblies are uploaded to.
type Knex interface {
	MakeDirs(dir string) error
	UploadFile(local, remote string) error
}

// regularFiles returns the regular files directly inside dir.
func regularFiles(dir string) ([]string, error) {
	paths, err := pathglob.Expand(filepath.Join(dir, "*"))
	if err != nil {
		return nil, err
	}
	var files []string
	for _, path := range paths {
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			files = append(files, path)
		}
	}
	return files, nil
}

// assemblyDir returns the directory, relative to a root, of the
// renamed assembly in dir.
func assemblyDir(dir string, slTable map[string]string) (string, error) {
	uid, err := naming.HAUIDFromMetaspadesDir(dir, slTable)
	if err != nil {
		return "", err
	}
	return uid.Project + "/" + uid.Flowcell + "/" + uid.String() + ".metaspades", nil
}

// reportRename prints why an assembly directory cannot be renamed:
// KEY_ERROR if its sample is not in the table, INDEX_ERROR if its path
// or table entry is malformed.
func reportRename(w io.Writer, op, dir string, err error) {
	kind := "INDEX_ERROR"
	if errors.Is(errors.NotExist, err) {
		kind = "KEY_ERROR"
	}
	fmt.Fprintf(w, "%s %s %s\n", op, kind, dir)
	log.Debug.Printf("%s: %v", dir, err)
}

// UploadAssembly uploads the files of one assembly directory, and of
// its misc subdirectory, to the remote directory.
func UploadAssembly(knex Knex, dir, remote string) error {
	remote = strings.TrimSuffix(remote, "/") + "/"
	for _, sub := range []string{"", "misc/"} {
		if err := knex.MakeDirs(remote + sub); err != nil {
			return err
		}
		files, err := regularFiles(filepath.Join(dir, sub))
		if err != nil {
			return err
		}
		for _, file := range files {
			if err := knex.UploadFile(file, remote+sub+filepath.Base(file)); err != nil {
				return err
			}
		}
	}
	return nil
}

// UploadAssemblies uploads each assembly directory. Directories that
// cannot be renamed are reported to errOut as
// "NO_UPLOAD KEY_ERROR <dir>" or "NO_UPLOAD INDEX_ERROR <dir>" and
// skipped. Upload failures are logged and the first is returned after
// every directory has been tried.
func UploadAssemblies(knex Knex, remoteRoot string, dirs []string, slTable map[string]string, errOut io.Writer) error {
	var once errors.Once
	for _, dir := range dirs {
		rel, err := assemblyDir(dir, slTable)
		if err != nil {
			reportRename(errOut, "NO_UPLOAD", dir, err)
			continue
		}
		if err := UploadAssembly(knex, dir, remoteRoot+"/"+rel); err != nil {
			log.Error.Printf("upload %s: %v", dir, err)
			once.Set(err)
		}
	}
	return once.Err()
}

func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return errors.E("open", src, err)
	}
	defer in.Close() // nolint: errcheck
	out, err := os.Create(dst)
	if err != nil {
		return errors.E("create", dst, err)
	}
	defer errors.CleanUp(out.Close, &err)
	if _, err = io.Copy(out, in); err != nil {
		return errors.E("copy", src, dst, err)
	}
	return nil
}

// CopyAssembly copies the files of one assembly directory, and of its
// misc subdirectory, to dst. Files already present are not copied
// again.
func CopyAssembly(dir, dst string) error {
	for _, sub := range []string{"", "misc"} {
		dstDir := filepath.Join(dst, sub)
		if err := os.MkdirAll(dstDir, 0777); err != nil {
			return errors.E("create", dstDir, err)
		}
		files, err := regularFiles(filepath.Join(dir, sub))
		if err != nil {
			return err
		}
		for _, file := range files {
			path := filepath.Join(dstDir, filepath.Base(file))
			if _, err := os.Stat(path); err == nil {
				continue
			}
			if err := copyFile(file, path); err != nil {
				return err
			}
		}
	}
	return nil
}

// CopyAssemblies copies each assembly directory to target, reporting
// directories that cannot be renamed as "NO_COPY KEY_ERROR <dir>" or
// "NO_COPY INDEX_ERROR <dir>".
func CopyAssemblies(target string, dirs []string, slTable map[string]string, errOut io.Writer) error {
	var once errors.Once
	for _, dir := range dirs {
		rel, err := assemblyDir(dir, slTable)
		if err != nil {
			reportRename(errOut, "NO_COPY", dir, err)
			continue
		}
		if err := CopyAssembly(dir, filepath.Join(target, filepath.FromSlash(rel))); err != nil {
			log.Error.Printf("copy %s: %v", dir, err)
			once.Set(err)
		}
	}
	return once.Err()
}
