// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package wasabi

import (
	"github.com/metasub/utils/config"
)

func init() {
	config.Register("wasabi", func(constr *config.Constructor) {
		var opts Options
		endpoint := constr.String("endpoint", DefaultEndpoint, "the S3 endpoint URL")
		region := constr.String("region", DefaultRegion, "the S3 region")
		bucket := constr.String("bucket", DefaultBucket, "the bucket name")
		profile := constr.String("profile", DefaultProfile, "the AWS credentials profile")
		threads := constr.Int("threads", 4, "the number of concurrent transfers")
		public := constr.String("public_files", "", "a file listing the public keys; empty if every key is public")
		constr.Doc = "the MetaSUB data bucket"
		constr.New = func() (interface{}, error) {
			opts.Endpoint = *endpoint
			opts.Region = *region
			opts.Bucket = *bucket
			opts.Profile = *profile
			opts.Threads = *threads
			b, err := New(opts)
			if err != nil {
				return nil, err
			}
			b.PublicFiles = *public
			return b, nil
		}
	})
}
