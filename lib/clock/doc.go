// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source.
//
// Revision timestamps (created_at, built_at) and build durations are
// read through a Clock so that tests can pin them. Production code
// passes Real(); tests pass Fake() and move time with Advance or Set.
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	report, err := build.Build(ctx, build.Config{Clock: c, ...})
//	c.Advance(time.Minute)
package clock
