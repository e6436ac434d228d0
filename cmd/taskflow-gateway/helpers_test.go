// Copyright 2026 The TaskFlow Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"crypto/ed25519"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/yaswanth65/task3Backend/lib/authgate"
	"github.com/yaswanth65/task3Backend/lib/clock"
	"github.com/yaswanth65/task3Backend/lib/event"
	"github.com/yaswanth65/task3Backend/lib/gateway"
	"github.com/yaswanth65/task3Backend/lib/sessiontoken"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// chanSink collects delivered events for a test connection.
type chanSink struct {
	events chan *event.Event

	mu     sync.Mutex
	reason string
	closed chan struct{}
	once   sync.Once
}

func newChanSink() *chanSink {
	return &chanSink{events: make(chan *event.Event, 64), closed: make(chan struct{})}
}

func (s *chanSink) Send(ctx context.Context, ev *event.Event) error {
	select {
	case s.events <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *chanSink) Close(reason string) error {
	s.once.Do(func() {
		s.mu.Lock()
		s.reason = reason
		s.mu.Unlock()
		close(s.closed)
	})
	return nil
}

func (s *chanSink) closeReason() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason
}

type testGateway struct {
	gateway *gateway.Gateway
	gate    *authgate.Gate
	public  ed25519.PublicKey
	private ed25519.PrivateKey
	revoked *sessiontoken.Revocations
}

// newTestGateway builds a gateway where each user hears only their
// own presence, so tests see exactly the events they publish.
func newTestGateway(t *testing.T) *testGateway {
	t.Helper()
	public, private, err := sessiontoken.GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}
	revocations := sessiontoken.NewRevocations(16, time.Hour)
	gate := authgate.New(authgate.Config{
		PublicKey:   public,
		Revocations: revocations,
		Clock:       clock.Real(),
		Logger:      testLogger(),
	})

	config := gateway.DefaultConfig()
	config.HeartbeatInterval = 0
	config.PresenceGraceWindow = 0
	g, err := gateway.New(gateway.Options{
		Config:        config,
		Authenticator: gate,
		Audience:      gateway.AudienceFunc(func(string) []string { return nil }),
		Logger:        testLogger(),
	})
	if err != nil {
		t.Fatalf("gateway.New: %v", err)
	}
	t.Cleanup(g.Shutdown)
	return &testGateway{gateway: g, gate: gate, public: public, private: private, revoked: revocations}
}

func (tg *testGateway) mint(t *testing.T, subject, audience string) (*sessiontoken.Token, []byte) {
	t.Helper()
	token := sessiontoken.New(subject, audience, time.Now().Add(-time.Minute), time.Hour)
	raw, err := sessiontoken.Mint(tg.private, token)
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}
	return token, raw
}

// connect admits userID over a chanSink. On the user's first
// connection it consumes their own presence.online; later connections
// announce nothing.
func (tg *testGateway) connect(t *testing.T, userID string) (*sessiontoken.Token, string, *chanSink) {
	t.Helper()
	token, raw := tg.mint(t, userID, sessiontoken.DefaultAudience)
	credential := sessiontoken.Encode(raw)
	sink := newChanSink()
	wasOnline := tg.gateway.IsOnline(userID)
	if _, err := tg.gateway.Connect(context.Background(), credential, sink); err != nil {
		t.Fatalf("Connect(%s): %v", userID, err)
	}
	if wasOnline {
		return token, credential, sink
	}
	if ev := receiveEvent(t, sink); ev.Type != event.PresenceOnline {
		t.Fatalf("first event for %s = %s, want presence.online", userID, ev.Type)
	}
	return token, credential, sink
}

func receiveEvent(t *testing.T, sink *chanSink) *event.Event {
	t.Helper()
	select {
	case ev := <-sink.events:
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for an event")
		return nil
	}
}
