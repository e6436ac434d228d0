// Copyright 2026 The TaskFlow Authors
// SPDX-License-Identifier: Apache-2.0

package netutil

import (
	"io"
	"strings"
)

// MaxErrorBody bounds how much of an error response is read.
const MaxErrorBody = 4 << 10

// ErrorBody returns the start of an error response body for logs and
// error messages. Read failures yield whatever was read.
func ErrorBody(body io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(body, MaxErrorBody))
	return strings.TrimSpace(string(data))
}
