// Copyright 2026 The TaskFlow Authors
// SPDX-License-Identifier: Apache-2.0

// Package sessiontoken mints and verifies the bearer credentials
// clients present when opening a realtime connection.
//
// A token is a CBOR-encoded [Token] followed by a 64-byte Ed25519
// signature over the CBOR bytes. The auth service holds the private
// key and mints tokens at login; the gateway holds only the public
// key. On the wire the token is base64url without padding ([Encode],
// [Decode]) so it fits in an Authorization header or a query
// parameter.
//
// Verification is local and stateless apart from the [Revocations]
// set, which the auth service feeds on logout.
package sessiontoken
