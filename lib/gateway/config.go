// Copyright 2026 The TaskFlow Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"errors"
	"fmt"
	"time"
)

// OverflowPolicy decides what happens when a connection's outbox is
// full.
type OverflowPolicy string

const (
	// OverflowDropOldest discards the oldest queued event to make room.
	OverflowDropOldest OverflowPolicy = "dropOldest"

	// OverflowDisconnect deregisters the connection.
	OverflowDisconnect OverflowPolicy = "disconnect"
)

// Config holds the gateway's tunables.
type Config struct {
	// HeartbeatInterval is how often the transport pings clients. A
	// connection silent for two intervals is deregistered. Zero
	// disables the reaper.
	HeartbeatInterval time.Duration

	// PresenceGraceWindow delays presence.offline after a user's last
	// connection closes. A reconnect inside the window suppresses both
	// the offline and the following online event.
	PresenceGraceWindow time.Duration

	// OutboundQueueCapacity bounds each connection's outbox.
	OutboundQueueCapacity int

	OverflowPolicy OverflowPolicy

	// HandshakeTimeout bounds authentication in Connect. The transport
	// applies the same bound to receiving the credential.
	HandshakeTimeout time.Duration
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		HeartbeatInterval:     25 * time.Second,
		PresenceGraceWindow:   5 * time.Second,
		OutboundQueueCapacity: 256,
		OverflowPolicy:        OverflowDropOldest,
		HandshakeTimeout:      10 * time.Second,
	}
}

// Validate reports every invalid field.
func (c Config) Validate() error {
	var errs []error
	if c.HeartbeatInterval < 0 {
		errs = append(errs, fmt.Errorf("heartbeat interval must not be negative, got %s", c.HeartbeatInterval))
	}
	if c.PresenceGraceWindow < 0 {
		errs = append(errs, fmt.Errorf("presence grace window must not be negative, got %s", c.PresenceGraceWindow))
	}
	if c.OutboundQueueCapacity < 1 {
		errs = append(errs, fmt.Errorf("outbound queue capacity must be at least 1, got %d", c.OutboundQueueCapacity))
	}
	switch c.OverflowPolicy {
	case OverflowDropOldest, OverflowDisconnect:
	default:
		errs = append(errs, fmt.Errorf("overflow policy must be %q or %q, got %q",
			OverflowDropOldest, OverflowDisconnect, c.OverflowPolicy))
	}
	if c.HandshakeTimeout < 0 {
		errs = append(errs, fmt.Errorf("handshake timeout must not be negative, got %s", c.HandshakeTimeout))
	}
	return errors.Join(errs...)
}
