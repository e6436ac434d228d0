// Copyright 2026 The TaskFlow Authors
// SPDX-License-Identifier: Apache-2.0

// Package wstransport carries the gateway over websockets.
//
// A client connects to the upgrade endpoint and presents its session
// token in one of three ways, checked in order: an Authorization
// header ("Bearer <token>"), a token query parameter, or an auth frame
// sent as the first message within the handshake timeout. Browsers
// cannot set headers on websocket requests, so the frame form is the
// one the TaskFlow frontend uses.
//
// All frames are JSON text messages with a "type" field.
//
// Client to server:
//
//	{"type":"auth","token":"..."}
//	{"type":"subscribe","topic":"task:42","ref":"1"}
//	{"type":"unsubscribe","topic":"task:42","ref":"2"}
//	{"type":"message","payload":{...},"ref":"3"}
//	{"type":"ping","ref":"4"}
//
// Server to client:
//
//	{"type":"ready","connectionId":"...","userId":"alice"}
//	{"type":"event","event":{"type":"task.updated","topics":[...],"payload":{...},"timestamp":"...","seq":7}}
//	{"type":"subscribed","topic":"task:42","ref":"1"}
//	{"type":"unsubscribed","topic":"task:42","ref":"2"}
//	{"type":"ack","ref":"3"}
//	{"type":"pong","ref":"4"}
//	{"type":"error","code":"unauthorized","message":"...","ref":"1"}
//
// ready is always the first server frame. Replies to client frames are
// written directly; events go through the gateway's per-connection
// queue, so a reply may overtake an event queued before it.
//
// The server pings every heartbeat interval; each pong, like every
// client frame, counts as activity for the gateway's reaper.
package wstransport
