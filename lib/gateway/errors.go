// Copyright 2026 The TaskFlow Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"errors"
	"fmt"

	"github.com/yaswanth65/task3Backend/lib/topic"
)

var (
	// ErrUnknownConnection is returned for operations naming a
	// connection that is not registered.
	ErrUnknownConnection = errors.New("unknown connection")

	// ErrUnauthorized is returned when the Authorizer refuses a
	// subscription.
	ErrUnauthorized = errors.New("not authorized for topic")

	// ErrConnectionUnavailable means an event could not be queued for
	// a connection: it is closed, or its outbox overflowed under the
	// disconnect policy. It never reaches publishers.
	ErrConnectionUnavailable = errors.New("connection unavailable")

	// ErrInboundUnsupported is returned by HandleInbound when no
	// InboundHandler is configured.
	ErrInboundUnsupported = errors.New("inbound client messages are not supported")

	// ErrHandshakeTimeout is returned by Connect when authentication
	// does not finish within Config.HandshakeTimeout.
	ErrHandshakeTimeout = errors.New("handshake timed out")

	// ErrShuttingDown is returned by Connect once Shutdown has begun.
	ErrShuttingDown = errors.New("gateway shutting down")
)

// SubscribeError reports a rejected subscription. The connection stays
// open. Err wraps ErrUnknownConnection or ErrUnauthorized.
type SubscribeError struct {
	Connection ConnectionID
	Topic      topic.Topic
	Err        error
}

func (e *SubscribeError) Error() string {
	return fmt.Sprintf("subscribe %s to %s: %v", e.Connection, e.Topic, e.Err)
}

func (e *SubscribeError) Unwrap() error { return e.Err }

// DispatchError records a failed hand-off to one connection. It is
// only ever logged; the connection is deregistered in response.
type DispatchError struct {
	Connection ConnectionID
	Err        error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch to %s: %v", e.Connection, e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }
