// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package pangea

import (
	"github.com/metasub/utils/config"
)

func init() {
	config.Register("pangea", func(constr *config.Constructor) {
		endpoint := constr.String("endpoint", DefaultEndpoint, "the Pangea API endpoint")
		constr.Doc = "the Pangea analysis platform"
		constr.New = func() (interface{}, error) {
			return New(*endpoint, nil), nil
		}
	})
}
