// Copyright 2026 The TaskFlow Authors
// SPDX-License-Identifier: Apache-2.0

package wstransport

import (
	"encoding/json"

	"github.com/yaswanth65/task3Backend/lib/event"
)

// Client frame types.
const (
	frameAuth        = "auth"
	frameSubscribe   = "subscribe"
	frameUnsubscribe = "unsubscribe"
	frameMessage     = "message"
	framePing        = "ping"
)

// Server frame types.
const (
	frameReady        = "ready"
	frameEvent        = "event"
	frameSubscribed   = "subscribed"
	frameUnsubscribed = "unsubscribed"
	frameAck          = "ack"
	framePong         = "pong"
	frameError        = "error"
)

// Error codes carried by error frames.
const (
	CodeCredentialMissing  = "credential_missing"
	CodeCredentialInvalid  = "credential_invalid"
	CodeCredentialExpired  = "credential_expired"
	CodeHandshakeTimeout   = "handshake_timeout"
	CodeUnavailable        = "unavailable"
	CodeBadFrame           = "bad_frame"
	CodeInvalidTopic       = "invalid_topic"
	CodeUnauthorized       = "unauthorized"
	CodeInboundUnsupported = "inbound_unsupported"
	CodeInboundFailed      = "inbound_failed"
)

type clientFrame struct {
	Type    string          `json:"type"`
	Ref     string          `json:"ref,omitempty"`
	Token   string          `json:"token,omitempty"`
	Topic   string          `json:"topic,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type serverFrame struct {
	Type         string       `json:"type"`
	Ref          string       `json:"ref,omitempty"`
	ConnectionID string       `json:"connectionId,omitempty"`
	UserID       string       `json:"userId,omitempty"`
	Topic        string       `json:"topic,omitempty"`
	Event        *event.Event `json:"event,omitempty"`
	Code         string       `json:"code,omitempty"`
	Message      string       `json:"message,omitempty"`
}

func errorFrame(ref, code, message string) serverFrame {
	return serverFrame{Type: frameError, Ref: ref, Code: code, Message: message}
}
