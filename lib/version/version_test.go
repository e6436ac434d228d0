// Copyright 2026 The TaskFlow Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"strings"
	"testing"
)

func TestInfoUsesLinkedCommit(t *testing.T) {
	saved := GitCommit
	t.Cleanup(func() { GitCommit = saved })

	GitCommit = "abc1234"
	if got := Info(); !strings.HasPrefix(got, Version+" (abc1234,") {
		t.Errorf("Info() = %q", got)
	}
	if got := Full(); !strings.Contains(got, "Go: go") {
		t.Errorf("Full() = %q, want the Go version", got)
	}
}

func TestCommitWithoutLinkedValue(t *testing.T) {
	saved := GitCommit
	t.Cleanup(func() { GitCommit = saved })

	GitCommit = "unknown"
	if Commit() == "" {
		t.Error("Commit() is empty")
	}
}
