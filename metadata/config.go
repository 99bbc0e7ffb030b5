// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package metadata

import (
	"github.com/metasub/utils/config"
)

func init() {
	config.Register("metadata", func(constr *config.Constructor) {
		complete := constr.String("complete", CompleteTableURL, "location of the complete metadata table")
		uploadable := constr.String("uploadable", UploadableTableURL, "location of the uploadable metadata table")
		cities := constr.String("cities", CanonicalCitiesURL, "location of the canonical city names table")
		ttl := constr.Duration("ttl", DefaultTTL, "time for which fetched tables are reused")
		constr.Doc = "the MetaSUB metadata tables"
		constr.New = func() (interface{}, error) {
			l := NewLoader()
			l.CompleteURL = *complete
			l.UploadableURL = *uploadable
			l.CitiesURL = *cities
			l.SetTTL(*ttl)
			return l, nil
		}
	})
}
