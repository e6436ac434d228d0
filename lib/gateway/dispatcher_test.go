// Copyright 2026 The TaskFlow Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"errors"
	"testing"

	"github.com/yaswanth65/task3Backend/lib/event"
	"github.com/yaswanth65/task3Backend/lib/topic"
)

func TestDispatchReportsOnlyFullQueues(t *testing.T) {
	r := newRegistry()
	var reported []*DispatchError
	d := &dispatcher{
		registry:    r,
		logger:      testLogger(),
		unavailable: func(failure *DispatchError) { reported = append(reported, failure) },
	}

	open := registeredConnection(t, r, "open", "alice")
	closing := registeredConnection(t, r, "closing", "bob")
	closing.outbox.close()

	full := newConnection("full", newSink(), 1, OverflowDisconnect, testEpoch)
	full.userID = "carol"
	if err := full.transition(StateAuthenticated); err != nil {
		t.Fatalf("transition: %v", err)
	}
	if _, err := r.register(full); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := full.outbox.push(&event.Event{Type: event.TaskUpdated}); err != nil {
		t.Fatalf("filling queue: %v", err)
	}

	for _, c := range []*connection{open, closing, full} {
		if err := r.subscribe(c.id, "task:1"); err != nil {
			t.Fatalf("subscribe %s: %v", c.id, err)
		}
	}

	queued := d.dispatch(&event.Event{Type: event.TaskUpdated, Topics: []topic.Topic{"task:1"}})
	if queued != 1 {
		t.Errorf("queued = %d, want 1", queued)
	}
	if got := d.delivered.Load(); got != 1 {
		t.Errorf("delivered = %d, want 1", got)
	}
	if len(reported) != 1 || reported[0].Connection != full.id {
		t.Fatalf("reported %v, want only the full connection", reported)
	}
	if !errors.Is(reported[0], ErrConnectionUnavailable) {
		t.Errorf("reported error %v does not wrap ErrConnectionUnavailable", reported[0])
	}
}
