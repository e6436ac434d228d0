// Copyright 2026 The TaskFlow Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers.
//
// [RequireReceive], [RequireSend], [RequireClosed] and
// [RequireNoReceive] wrap the select-with-timeout pattern so tests
// never call time.After directly. They are the only place in the test
// suite that uses wall-clock timeouts; everything else drives time
// through clock.Fake.
//
// [SocketDir] returns a short /tmp directory for Unix sockets, whose
// paths are limited to 108 bytes.
package testutil
