// Copyright 2026 The TaskFlow Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yaswanth65/task3Backend/lib/event"
	"github.com/yaswanth65/task3Backend/lib/topic"
)

// ConnectionID identifies one live connection.
type ConnectionID string

// Handle is the read-only view of a connection handed to callers.
type Handle struct {
	ID        ConnectionID
	UserID    string
	CreatedAt time.Time
}

// Sink is the transport's per-connection send primitive. Send is only
// ever called from the connection's single writer goroutine, so
// implementations need not serialize it against itself. Close must be
// idempotent and must not block on the peer.
type Sink interface {
	Send(ctx context.Context, ev *event.Event) error
	Close(reason string) error
}

// State is a connection's lifecycle stage.
type State int32

const (
	StateConnecting State = iota
	StateAuthenticated
	StateActive
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticated:
		return "authenticated"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// next reports whether s may move to to. Every state may close;
// otherwise the machine only moves forward one step.
func (s State) next(to State) bool {
	if s == StateClosed {
		return false
	}
	return to == StateClosed || to == s+1
}

type connection struct {
	id        ConnectionID
	userID    string
	tokenID   string
	createdAt time.Time
	sink      Sink
	outbox    *outbox

	// ctx is cancelled when the connection closes; it bounds the
	// writer goroutine and any in-flight Send.
	ctx    context.Context
	cancel context.CancelFunc

	// topics is guarded by registry.mu.
	topics map[topic.Topic]struct{}

	// lastSeen is unix nanoseconds of the last inbound activity.
	lastSeen atomic.Int64

	stateMu sync.Mutex
	state   State

	// discarded is the number of queued events thrown away at close.
	discarded int
}

func newConnection(id ConnectionID, sink Sink, capacity int, policy OverflowPolicy, now time.Time) *connection {
	ctx, cancel := context.WithCancel(context.Background())
	c := &connection{
		id:        id,
		createdAt: now,
		sink:      sink,
		outbox:    newOutbox(capacity, policy),
		ctx:       ctx,
		cancel:    cancel,
		topics:    make(map[topic.Topic]struct{}),
	}
	c.lastSeen.Store(now.UnixNano())
	return c
}

func (c *connection) handle() Handle {
	return Handle{ID: c.id, UserID: c.userID, CreatedAt: c.createdAt}
}

func (c *connection) transition(to State) error {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	if !c.state.next(to) {
		return fmt.Errorf("connection %s: illegal transition %s -> %s", c.id, c.state, to)
	}
	c.state = to
	return nil
}

func (c *connection) currentState() State {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.state
}

// close moves the connection to Closed and discards its outbox. It
// reports false if the connection was already closed.
func (c *connection) close() bool {
	if err := c.transition(StateClosed); err != nil {
		return false
	}
	c.discarded = c.outbox.close()
	c.cancel()
	return true
}
