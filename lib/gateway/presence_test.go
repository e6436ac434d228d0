// Copyright 2026 The TaskFlow Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/yaswanth65/task3Backend/lib/event"
)

const testGrace = 5 * time.Second

// watch connects an observer that records presence events and drains
// its own presence.online.
func watch(t *testing.T, g *Gateway, userID string) *recordingSink {
	t.Helper()
	sink := newSink()
	sink.keepPresence = true
	connectSink(t, g, userID, sink)
	requirePresence(t, sink, event.PresenceOnline, userID)
	return sink
}

func requirePresence(t *testing.T, sink *recordingSink, eventType event.Type, userID string) {
	t.Helper()
	got := receiveEvent(t, sink)
	if got.Type != eventType {
		t.Fatalf("received %s %s, want %s for %s", got.Type, got.Payload, eventType, userID)
	}
	var payload struct {
		UserID string `json:"userId"`
	}
	if err := json.Unmarshal(got.Payload, &payload); err != nil {
		t.Fatalf("decoding presence payload: %v", err)
	}
	if payload.UserID != userID {
		t.Fatalf("%s for %q, want %q", got.Type, payload.UserID, userID)
	}
}

func TestPresenceTwoTabs(t *testing.T) {
	g, fake := newTestGateway(t, func(o *Options) { o.Config.PresenceGraceWindow = testGrace })
	watcher := watch(t, g, "watcher")

	tab1, _ := connect(t, g, "alice#1")
	requirePresence(t, watcher, event.PresenceOnline, "alice")

	tab2, _ := connect(t, g, "alice#2")
	flush(t, g, watcher, "watcher")

	g.Disconnect(tab1.ID, "tab closed")
	fake.Advance(2 * testGrace)
	flush(t, g, watcher, "watcher")
	if !g.IsOnline("alice") {
		t.Fatal("alice offline with one tab still open")
	}

	g.Disconnect(tab2.ID, "tab closed")
	flush(t, g, watcher, "watcher")
	fake.Advance(testGrace)
	requirePresence(t, watcher, event.PresenceOffline, "alice")

	fake.Advance(10 * testGrace)
	flush(t, g, watcher, "watcher")
}

func TestPresenceReconnectWithinGraceIsSilent(t *testing.T) {
	g, fake := newTestGateway(t, func(o *Options) { o.Config.PresenceGraceWindow = testGrace })
	watcher := watch(t, g, "watcher")

	first, _ := connect(t, g, "alice")
	requirePresence(t, watcher, event.PresenceOnline, "alice")

	g.Disconnect(first.ID, "network blip")
	if fake.PendingCount() != 1 {
		t.Fatalf("PendingCount = %d, want the offline timer", fake.PendingCount())
	}
	fake.Advance(testGrace / 2)

	connect(t, g, "alice")
	if fake.PendingCount() != 0 {
		t.Fatalf("offline timer not cancelled by reconnect")
	}
	fake.Advance(2 * testGrace)
	flush(t, g, watcher, "watcher")
}

func TestPresenceZeroGraceIsImmediate(t *testing.T) {
	g, _ := newTestGateway(t, func(o *Options) { o.Config.PresenceGraceWindow = 0 })
	watcher := watch(t, g, "watcher")

	handle, _ := connect(t, g, "alice")
	requirePresence(t, watcher, event.PresenceOnline, "alice")
	g.Disconnect(handle.ID, "bye")
	requirePresence(t, watcher, event.PresenceOffline, "alice")
}

func TestPresenceReachesOwnChannel(t *testing.T) {
	g, _ := newTestGateway(t, func(o *Options) {
		o.Audience = AudienceFunc(func(string) []string { return nil })
	})
	sink := newSink()
	sink.keepPresence = true
	connectSink(t, g, "alice", sink)
	requirePresence(t, sink, event.PresenceOnline, "alice")
}

func TestPresenceAudience(t *testing.T) {
	g, _ := newTestGateway(t, func(o *Options) {
		o.Config.PresenceGraceWindow = 0
		o.Audience = AudienceFunc(func(userID string) []string {
			if userID == "alice" {
				return []string{"bob", "alice"}
			}
			return nil
		})
	})
	bob := newSink()
	bob.keepPresence = true
	connectSink(t, g, "bob", bob)
	requirePresence(t, bob, event.PresenceOnline, "bob")

	carol := newSink()
	carol.keepPresence = true
	connectSink(t, g, "carol", carol)
	requirePresence(t, carol, event.PresenceOnline, "carol")

	connect(t, g, "alice")
	requirePresence(t, bob, event.PresenceOnline, "alice")
	flush(t, g, carol, "carol")
}

func TestPresenceStopsAtShutdown(t *testing.T) {
	g, fake := newTestGateway(t, func(o *Options) { o.Config.PresenceGraceWindow = testGrace })
	handle, _ := connect(t, g, "alice")
	g.Disconnect(handle.ID, "bye")

	g.Shutdown()
	if fake.PendingCount() != 0 {
		t.Fatalf("PendingCount after shutdown = %d, want 0", fake.PendingCount())
	}
	if stats := g.Stats(); stats.Published != 1 {
		t.Fatalf("Published = %d, want only the online event", stats.Published)
	}
}

func TestPresenceDefaultAudienceIsOnlineUsers(t *testing.T) {
	g, _ := newTestGateway(t, func(o *Options) { o.Config.PresenceGraceWindow = 0 })
	alice := watch(t, g, "alice")

	bob := newSink()
	bob.keepPresence = true
	connectSink(t, g, "bob", bob)
	requirePresence(t, bob, event.PresenceOnline, "bob")
	requirePresence(t, alice, event.PresenceOnline, "bob")

	handle, _ := connect(t, g, "carol")
	requirePresence(t, alice, event.PresenceOnline, "carol")
	requirePresence(t, bob, event.PresenceOnline, "carol")

	g.Disconnect(handle.ID, "bye")
	requirePresence(t, alice, event.PresenceOffline, "carol")
	requirePresence(t, bob, event.PresenceOffline, "carol")
}
