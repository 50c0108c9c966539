// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package revision

import (
	"fmt"
	"strings"

	"github.com/bureau-foundation/ftl/lib/model"
)

// RevisionNotFoundError is returned when a query matches no revision.
type RevisionNotFoundError struct {
	Query string
}

func (e *RevisionNotFoundError) Error() string {
	return fmt.Sprintf("no revision matches %q", e.Query)
}

// AmbiguousRevisionError is returned when a prefix matches more than
// one revision.
type AmbiguousRevisionError struct {
	Query   string
	Matches []model.Revision
}

func (e *AmbiguousRevisionError) Error() string {
	labels := make([]string, len(e.Matches))
	for i, match := range e.Matches {
		labels[i] = match.ID.Short()
	}
	return fmt.Sprintf("%q matches %d revisions: %s", e.Query, len(e.Matches), strings.Join(labels, ", "))
}

// NameInUseError is returned when naming a revision with a name
// another revision holds.
type NameInUseError struct {
	Name   string
	Holder model.Revision
}

func (e *NameInUseError) Error() string {
	return fmt.Sprintf("name %q is already used by revision %s", e.Name, e.Holder.ID.Short())
}
