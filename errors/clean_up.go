// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package errors

import "fmt"

// CleanUp is defer-able syntactic sugar that calls f and reports an
// error, if any, to *dst. Pass the caller's named return error:
//
//	f, err := os.Create(path)
//	if err != nil { ... }
//	defer errors.CleanUp(f.Close, &err)
//
// If the caller already returns an error, the clean-up error is
// appended to its message.
func CleanUp(f func() error, dst *error) {
	err := f()
	if err == nil {
		return
	}
	if *dst == nil {
		*dst = err
		return
	}
	*dst = E(*dst, fmt.Sprintf("second error in clean up: %v", err))
}
