// Copyright 2026 The TaskFlow Authors
// SPDX-License-Identifier: Apache-2.0

// Package process holds entrypoint helpers shared by the TaskFlow
// binaries: reporting a fatal error before the structured logger
// exists, and exiting with the conventional status codes.
package process
