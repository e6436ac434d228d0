// Copyright 2026 The TaskFlow Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yaswanth65/task3Backend/lib/authgate"
	"github.com/yaswanth65/task3Backend/lib/clock"
	"github.com/yaswanth65/task3Backend/lib/event"
	"github.com/yaswanth65/task3Backend/lib/testutil"
	"github.com/yaswanth65/task3Backend/lib/topic"
)

var testEpoch = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

const receiveTimeout = 5 * time.Second

// fakeAuthenticator accepts any credential as the user id, except a
// few reserved values that map to each rejection reason. A "#suffix"
// distinguishes tabs of the same user: "alice#2" is user alice.
type fakeAuthenticator struct{}

func (fakeAuthenticator) Authenticate(ctx context.Context, credential string) (authgate.Identity, error) {
	switch credential {
	case "":
		return authgate.Identity{}, authgate.ErrCredentialMissing
	case "invalid":
		return authgate.Identity{}, authgate.ErrCredentialInvalid
	case "expired":
		return authgate.Identity{}, authgate.ErrCredentialExpired
	case "slow":
		<-ctx.Done()
		return authgate.Identity{}, ctx.Err()
	}
	user, _, _ := strings.Cut(credential, "#")
	return authgate.Identity{UserID: user, TokenID: "token-" + credential}, nil
}

// recordingSink collects delivered events. Presence events are
// dropped unless keepPresence is set, so fan-out tests see only the
// events they publish.
type recordingSink struct {
	events       chan *event.Event
	closed       chan struct{}
	closeOnce    sync.Once
	keepPresence bool

	// release, when non-nil, holds every Send until it is closed.
	release chan struct{}

	mu     sync.Mutex
	reason string
}

func newSink() *recordingSink {
	return &recordingSink{
		events: make(chan *event.Event, 1024),
		closed: make(chan struct{}),
	}
}

func (s *recordingSink) Send(ctx context.Context, ev *event.Event) error {
	if s.release != nil {
		select {
		case <-s.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if ev.Type.IsPresence() && !s.keepPresence {
		return nil
	}
	select {
	case s.events <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *recordingSink) Close(reason string) error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.reason = reason
		s.mu.Unlock()
		close(s.closed)
	})
	return nil
}

func (s *recordingSink) closeReason() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestGateway(t *testing.T, modify func(*Options)) (*Gateway, *clock.FakeClock) {
	t.Helper()
	fake := clock.Fake(testEpoch)
	options := Options{
		Config:        DefaultConfig(),
		Authenticator: fakeAuthenticator{},
		Clock:         fake,
		Logger:        testLogger(),
	}
	if modify != nil {
		modify(&options)
	}
	g, err := New(options)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(g.Shutdown)
	return g, fake
}

func connect(t *testing.T, g *Gateway, credential string) (Handle, *recordingSink) {
	t.Helper()
	sink := newSink()
	handle, err := g.Connect(context.Background(), credential, sink)
	if err != nil {
		t.Fatalf("Connect(%q): %v", credential, err)
	}
	return handle, sink
}

func connectSink(t *testing.T, g *Gateway, credential string, sink Sink) Handle {
	t.Helper()
	handle, err := g.Connect(context.Background(), credential, sink)
	if err != nil {
		t.Fatalf("Connect(%q): %v", credential, err)
	}
	return handle
}

func subscribe(t *testing.T, g *Gateway, id ConnectionID, topics ...string) {
	t.Helper()
	for _, raw := range topics {
		if err := g.Subscribe(context.Background(), id, topic.MustParse(raw)); err != nil {
			t.Fatalf("Subscribe(%s, %s): %v", id, raw, err)
		}
	}
}

func taskEvent(t *testing.T, eventType event.Type, taskID string, payload map[string]any) event.Event {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return event.Event{Type: eventType, Payload: data, Scope: event.Scope{TaskID: taskID}}
}

func publish(t *testing.T, g *Gateway, ev event.Event) {
	t.Helper()
	if err := g.Publish(ev); err != nil {
		t.Fatalf("Publish: %v", err)
	}
}

func receiveEvent(t *testing.T, sink *recordingSink) *event.Event {
	t.Helper()
	return testutil.RequireReceive(t, sink.events, receiveTimeout, "waiting for event")
}

var markerCounter atomic.Uint64

// flush proves that nothing published before it is still on its way to
// sink: it publishes a marker to userID's personal channel and
// requires the marker to be the next event sink receives. Outboxes are
// FIFO, so any earlier delivery would arrive first.
func flush(t *testing.T, g *Gateway, sink *recordingSink, userID string) {
	t.Helper()
	id := fmt.Sprintf("marker-%d", markerCounter.Add(1))
	publish(t, g, event.Event{
		Type:    event.TaskUpdated,
		Payload: json.RawMessage(fmt.Sprintf(`{"id":%q}`, id)),
		Scope:   event.Scope{TaskID: id, Users: []string{userID}},
	})
	got := receiveEvent(t, sink)
	if payloadID(t, got) != id {
		t.Fatalf("expected marker %s, got %s event %s", id, got.Type, got.Payload)
	}
}

func payloadID(t *testing.T, ev *event.Event) string {
	t.Helper()
	var payload struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(ev.Payload, &payload); err != nil {
		t.Fatalf("decoding payload %s: %v", ev.Payload, err)
	}
	var id string
	if err := json.Unmarshal(payload.ID, &id); err == nil {
		return id
	}
	return string(payload.ID)
}
