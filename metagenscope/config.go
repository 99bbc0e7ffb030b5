// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package metagenscope

import (
	"github.com/metasub/utils/athena"
	"github.com/metasub/utils/config"
	"github.com/metasub/utils/metadata"
)

func init() {
	config.Register("metagenscope", func(constr *config.Constructor) {
		results := constr.String("results", athena.DefaultResults, "the core results directory, one subdirectory per sample")
		command := constr.String("command", DefaultCommand, "the MetaGenScope client")
		constr.Doc = "the MetaGenScope uploader; its metadata loader is set by the caller"
		constr.New = func() (interface{}, error) {
			u := NewUploader(metadata.NewLoader(), *results)
			u.Command = *command
			return u, nil
		}
	})
}
