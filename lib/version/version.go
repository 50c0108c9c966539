// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports the version of the ftl binary.
//
// Release builds inject the variables below with -ldflags:
//
//	go build -ldflags "-X github.com/bureau-foundation/ftl/lib/version.Version=1.2.0" ./cmd/ftl
//
// Development builds fall back to the VCS stamp the Go toolchain
// records in the binary.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// These variables are set via -ldflags at build time.
var (
	// Version is the semantic version.
	Version = "0.1.0-dev"

	// GitCommit is the short git SHA of the build.
	GitCommit = ""
)

// Commit returns the commit the binary was built from: GitCommit when
// injected, otherwise the vcs.revision build setting shortened to
// twelve characters with a "-dirty" suffix for modified trees. It
// returns "unknown" when neither is available, as in test binaries.
func Commit() string {
	if GitCommit != "" {
		return GitCommit
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}
	return commitFromSettings(info.Settings)
}

func commitFromSettings(settings []debug.BuildSetting) string {
	var revision string
	var modified bool
	for _, setting := range settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			modified = setting.Value == "true"
		}
	}
	if revision == "" {
		return "unknown"
	}
	if len(revision) > 12 {
		revision = revision[:12]
	}
	if modified {
		revision += "-dirty"
	}
	return revision
}

// Full returns the version, commit, Go version and platform.
func Full() string {
	return fmt.Sprintf("%s (%s)\n  Go: %s\n  Platform: %s/%s",
		Version, Commit(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
