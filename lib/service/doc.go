// Copyright 2026 The TaskFlow Authors
// SPDX-License-Identifier: Apache-2.0

// Package service provides the process plumbing around the gateway:
//
//   - SocketServer: a CBOR request/response protocol on a Unix socket
//     with action dispatch. The TaskFlow CRUD processes use it to
//     publish events, revoke tokens, and query presence without going
//     through HTTP.
//   - Client: the caller side of the socket protocol.
//   - HTTPServer: a TCP HTTP server with graceful shutdown, used for
//     the websocket and health endpoints.
//   - SignHMAC and VerifyHMAC: body signatures on requests the gateway
//     forwards to the CRUD API.
//
// # Authentication
//
// Actions registered with HandleAuth require a "token" field holding
// a raw session token (CBOR payload plus Ed25519 signature) minted
// for the socket's audience. Actions registered with Handle are open
// to anyone who can reach the socket; file permissions on the socket
// are the only barrier for those.
package service
