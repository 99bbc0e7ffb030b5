// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package httputil maps HTTP responses onto error kinds.
package httputil

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/metasub/utils/errors"
)

// CheckResponse returns nil for 2xx responses. Otherwise it returns an
// error whose kind follows the status: NotExist for 404, NotAllowed
// for 401 and 403, and Remote for the rest. Server errors and
// throttling are marked temporary. The first bytes of the body are
// included in the message.
func CheckResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	msg := fmt.Sprintf("%s: %s", resp.Status, strings.TrimSpace(string(body)))
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return errors.E(errors.NotExist, msg)
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return errors.E(errors.NotAllowed, msg)
	case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode >= 500:
		return errors.E(errors.Remote, errors.Temporary, msg)
	default:
		return errors.E(errors.Remote, msg)
	}
}
