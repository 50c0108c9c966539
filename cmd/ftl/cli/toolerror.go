// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"errors"
	"fmt"

	"github.com/bureau-foundation/ftl/lib/revision"
	"github.com/bureau-foundation/ftl/lib/store"
)

// ErrorCategory classifies command errors so scripts reading --json
// output or exit codes can tell bad input from missing data.
type ErrorCategory string

const (
	// CategoryValidation means the caller provided invalid input:
	// missing arguments, unparseable values, unknown flags.
	CategoryValidation ErrorCategory = "validation"

	// CategoryNotFound means a referenced revision does not exist.
	CategoryNotFound ErrorCategory = "not_found"

	// CategoryConflict means the operation conflicts with existing
	// state: an ambiguous prefix, a name held by another revision, a
	// writer already active.
	CategoryConflict ErrorCategory = "conflict"

	// CategoryInternal means an unexpected failure.
	CategoryInternal ErrorCategory = "internal"
)

// ToolError is a categorized command error. It wraps the underlying
// error so errors.Is and errors.As still see the full chain.
type ToolError struct {
	Category ErrorCategory
	Err      error
}

func (e *ToolError) Error() string { return e.Err.Error() }

func (e *ToolError) Unwrap() error { return e.Err }

// ExitCode maps the category to a process exit code.
func (e *ToolError) ExitCode() int {
	switch e.Category {
	case CategoryValidation:
		return 2
	case CategoryNotFound:
		return 3
	case CategoryConflict:
		return 4
	default:
		return 1
	}
}

// Validation creates a validation error.
func Validation(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryValidation, Err: fmt.Errorf(format, args...)}
}

// NotFound creates a not-found error.
func NotFound(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryNotFound, Err: fmt.Errorf(format, args...)}
}

// Conflict creates a conflict error.
func Conflict(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryConflict, Err: fmt.Errorf(format, args...)}
}

// Internal creates an internal error.
func Internal(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryInternal, Err: fmt.Errorf(format, args...)}
}

// Categorize wraps the user-facing errors of the revision manager and
// the store in their category. Other errors are returned unchanged.
func Categorize(err error) error {
	var (
		notFound  *revision.RevisionNotFoundError
		ambiguous *revision.AmbiguousRevisionError
		nameInUse *revision.NameInUseError
	)
	switch {
	case err == nil:
		return nil
	case errors.As(err, &notFound):
		return &ToolError{Category: CategoryNotFound, Err: err}
	case errors.As(err, &ambiguous), errors.As(err, &nameInUse), errors.Is(err, store.ErrWriterBusy):
		return &ToolError{Category: CategoryConflict, Err: err}
	default:
		return err
	}
}
