// Copyright 2026 The TaskFlow Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// ExitError carries a specific exit status out of run().
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// Usage marks err as a command-line mistake (exit status 2).
func Usage(err error) error { return &ExitError{Code: 2, Err: err} }

// Fatal writes "error: err" to stderr and exits. The status is 1
// unless err wraps an *ExitError.
func Fatal(err error) {
	os.Exit(report(os.Stderr, err))
}

func report(w io.Writer, err error) int {
	code := 1
	var exit *ExitError
	if errors.As(err, &exit) {
		code = exit.Code
	}
	fmt.Fprintf(w, "error: %v\n", err)
	return code
}
