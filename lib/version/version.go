// Copyright 2026 The TaskFlow Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports build information for the TaskFlow binaries.
//
// The variables are set at link time:
//
//	go build -ldflags "-X github.com/yaswanth65/task3Backend/lib/version.GitCommit=$(git rev-parse --short HEAD)"
//
// When they are not, Commit falls back to the VCS stamp the Go
// toolchain records in the binary.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

var (
	// GitCommit is the short git SHA of the build.
	GitCommit = "unknown"
	// BuildTime is the UTC timestamp of the build.
	BuildTime = "unknown"
	// Version is the release version reported by GET /.
	Version = "1.0.0"
)

// Info returns the --version line.
func Info() string {
	return fmt.Sprintf("%s (%s, %s)", Version, Commit(), BuildTime)
}

// Full adds the Go toolchain and platform to Info.
func Full() string {
	return fmt.Sprintf("%s\n  Go: %s\n  Platform: %s/%s",
		Info(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// Commit returns GitCommit, or the recorded vcs.revision (shortened,
// with "-dirty" when modified) if GitCommit was not set.
func Commit() string {
	if GitCommit != "unknown" {
		return GitCommit
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return GitCommit
	}
	var revision, modified string
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			modified = setting.Value
		}
	}
	if revision == "" {
		return GitCommit
	}
	if len(revision) > 12 {
		revision = revision[:12]
	}
	if modified == "true" {
		revision += "-dirty"
	}
	return revision
}
