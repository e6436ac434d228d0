// Copyright 2026 The TaskFlow Authors
// SPDX-License-Identifier: Apache-2.0

// taskflow-token manages the session tokens the gateway accepts:
// generating the signing keypair, minting tokens for users and for
// CRUD processes on the ingress socket, inspecting tokens, and
// revoking them on a running gateway.
package main

import (
	"github.com/yaswanth65/task3Backend/lib/process"
)

func main() {
	root := newRootCommand()
	if err := root.Execute(); err != nil {
		process.Fatal(err)
	}
}
