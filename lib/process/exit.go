// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"errors"
	"fmt"
	"os"
)

// ExitError carries a specific exit code out of run(). Commands return
// it for outcomes that are not failures of the tool itself, such as
// "object not found" from a lookup, so scripts can branch on the code.
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

// Exit returns an ExitError with the given code. A nil err exits
// silently.
func Exit(code int, err error) error {
	return &ExitError{Code: code, Err: err}
}

// Fatal writes "error: err" to stderr and exits with code 1, or with
// the code of an ExitError in err's chain. Use it in main() for errors
// from run() where the structured logger may not be initialized.
func Fatal(err error) {
	os.Exit(report(err))
}

// report prints err (unless it is a silent ExitError) and returns the
// exit code.
func report(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		if exitErr.Err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", exitErr.Err)
		}
		return exitErr.Code
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	return 1
}
