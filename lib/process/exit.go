// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process holds the entrypoint error handling shared by ftl
// binaries.
package process

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// Silent is implemented by errors whose message has already been
// shown to the user, such as a build that printed its own failures.
type Silent interface {
	error
	Silent() bool
}

// ExitCode returns the process exit code for err and writes
// "error: err" to stderr unless err is silent. A nil err yields 0. An
// error with an ExitCode method anywhere in its chain supplies the
// code; every other error exits with 1.
func ExitCode(stderr io.Writer, err error) int {
	if err == nil {
		return 0
	}
	var silent Silent
	if !errors.As(err, &silent) || !silent.Silent() {
		fmt.Fprintf(stderr, "error: %v\n", err)
	}
	var coder interface{ ExitCode() int }
	if errors.As(err, &coder) {
		return coder.ExitCode()
	}
	return 1
}

// Exit terminates the process with the exit code for err. Use it in
// main around the error returned by run.
func Exit(err error) {
	os.Exit(ExitCode(os.Stderr, err))
}
