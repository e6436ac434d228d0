// Copyright 2026 The TaskFlow Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"context"
	"fmt"
	"sync"

	"github.com/yaswanth65/task3Backend/lib/event"
)

var errOutboxFull = fmt.Errorf("%w: outbound queue full", ErrConnectionUnavailable)

// outbox is a bounded FIFO ring between the dispatcher and one
// connection's writer. push never blocks.
type outbox struct {
	mu      sync.Mutex
	items   []*event.Event
	head    int
	size    int
	policy  OverflowPolicy
	closed  bool
	dropped uint64

	// ready has capacity 1 and is signalled on every push and on
	// close, waking a writer parked in pop.
	ready chan struct{}
}

func newOutbox(capacity int, policy OverflowPolicy) *outbox {
	return &outbox{
		items:  make([]*event.Event, capacity),
		policy: policy,
		ready:  make(chan struct{}, 1),
	}
}

// push appends ev. On a full queue it either evicts the oldest event
// (reporting dropped=true) or fails with errOutboxFull, per policy.
func (o *outbox) push(ev *event.Event) (dropped bool, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return false, ErrConnectionUnavailable
	}
	if o.size == len(o.items) {
		if o.policy == OverflowDisconnect {
			return false, errOutboxFull
		}
		o.items[o.head] = nil
		o.head = (o.head + 1) % len(o.items)
		o.size--
		o.dropped++
		dropped = true
	}

	o.items[(o.head+o.size)%len(o.items)] = ev
	o.size++
	o.signal()
	return dropped, nil
}

// pop removes the oldest event, waiting for one if the queue is empty.
// It fails with ErrConnectionUnavailable once the outbox is closed, or
// with ctx's error.
func (o *outbox) pop(ctx context.Context) (*event.Event, error) {
	for {
		o.mu.Lock()
		if o.closed {
			o.mu.Unlock()
			return nil, ErrConnectionUnavailable
		}
		if o.size > 0 {
			ev := o.items[o.head]
			o.items[o.head] = nil
			o.head = (o.head + 1) % len(o.items)
			o.size--
			o.mu.Unlock()
			return ev, nil
		}
		o.mu.Unlock()

		select {
		case <-o.ready:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// close discards everything queued and returns how many events that
// was. Later pushes fail.
func (o *outbox) close() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return 0
	}
	discarded := o.size
	o.closed = true
	o.items = nil
	o.head, o.size = 0, 0
	o.signal()
	return discarded
}

func (o *outbox) len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.size
}

func (o *outbox) droppedCount() uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.dropped
}

func (o *outbox) signal() {
	select {
	case o.ready <- struct{}{}:
	default:
	}
}
