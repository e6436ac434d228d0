// Copyright 2026 The TaskFlow Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/yaswanth65/task3Backend/lib/authgate"
	"github.com/yaswanth65/task3Backend/lib/clock"
	"github.com/yaswanth65/task3Backend/lib/event"
	"github.com/yaswanth65/task3Backend/lib/gateway"
	"github.com/yaswanth65/task3Backend/lib/service"
	"github.com/yaswanth65/task3Backend/lib/sessiontoken"
	"github.com/yaswanth65/task3Backend/lib/testutil"
)

const ingressAudience = "taskflow-ingress"

func startIngress(t *testing.T, tg *testGateway) string {
	t.Helper()
	socketPath := filepath.Join(testutil.SocketDir(t), "gateway.sock")
	server := service.NewSocketServer(socketPath, testLogger(), &service.AuthConfig{
		PublicKey:   tg.public,
		Audience:    ingressAudience,
		Revocations: tg.revoked,
		Clock:       clock.Real(),
	})
	registerIngress(server, tg.gateway, tg.gate, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		if err := testutil.RequireReceive(t, done, 5*time.Second, "ingress Serve returns"); err != nil {
			t.Errorf("Serve: %v", err)
		}
	})
	testutil.RequireClosed(t, server.Ready(), 5*time.Second, "ingress ready")
	return socketPath
}

func (tg *testGateway) ingressClient(t *testing.T, socketPath string) *service.Client {
	t.Helper()
	_, raw := tg.mint(t, "task-api", ingressAudience)
	return service.NewClient(socketPath, raw)
}

func TestIngressPublish(t *testing.T) {
	tg := newTestGateway(t)
	client := tg.ingressClient(t, startIngress(t, tg))
	_, _, bob := tg.connect(t, "bob")
	ctx := context.Background()

	err := client.Call(ctx, "publish", map[string]any{
		"type":    event.TaskCreated,
		"payload": []byte(`{"id":"7","title":"Write docs"}`),
		"scope":   event.Scope{TaskID: "7", AssigneeID: "bob"},
	}, nil)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	ev := receiveEvent(t, bob)
	if ev.Type != event.TaskCreated || string(ev.Payload) != `{"id":"7","title":"Write docs"}` {
		t.Fatalf("bob received %s %s", ev.Type, ev.Payload)
	}

	err = client.Call(ctx, "publish", map[string]any{
		"type":    "task.archived",
		"payload": []byte(`{"id":"7"}`),
		"scope":   event.Scope{TaskID: "7"},
	}, nil)
	var serviceErr *service.ServiceError
	if !errors.As(err, &serviceErr) {
		t.Fatalf("unknown type: err = %v, want *ServiceError", err)
	}
}

func TestIngressPublishExplicitTopicsAndTimestamp(t *testing.T) {
	tg := newTestGateway(t)
	client := tg.ingressClient(t, startIngress(t, tg))
	_, _, bob := tg.connect(t, "bob")
	_, _, carol := tg.connect(t, "carol")
	ctx := context.Background()

	stamp := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	err := client.Call(ctx, "publish", map[string]any{
		"type":      event.TaskUpdated,
		"payload":   []byte(`{"id":"8","status":"done"}`),
		"scope":     event.Scope{TaskID: "8", AssigneeID: "bob"},
		"topics":    []string{"user:carol"},
		"timestamp": stamp,
	}, nil)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	for name, sink := range map[string]*chanSink{"bob": bob, "carol": carol} {
		ev := receiveEvent(t, sink)
		if ev.Type != event.TaskUpdated || !ev.Timestamp.Equal(stamp) {
			t.Errorf("%s received %s at %v, want task.updated at %v", name, ev.Type, ev.Timestamp, stamp)
		}
	}

	err = client.Call(ctx, "publish", map[string]any{
		"type":    event.TaskUpdated,
		"payload": []byte(`{"id":"8"}`),
		"scope":   event.Scope{TaskID: "8"},
		"topics":  []string{"board:1"},
	}, nil)
	if err == nil {
		t.Fatal("publish to an invalid topic succeeded")
	}
}

func TestIngressPresenceAndStats(t *testing.T) {
	tg := newTestGateway(t)
	client := tg.ingressClient(t, startIngress(t, tg))
	tg.connect(t, "alice")
	tg.connect(t, "alice")
	ctx := context.Background()

	var one presenceResponse
	if err := client.Call(ctx, "presence", map[string]any{"user_id": "alice"}, &one); err != nil {
		t.Fatalf("presence: %v", err)
	}
	if !one.Online || one.Connections != 2 {
		t.Errorf("presence(alice) = %+v, want online with 2 connections", one)
	}

	var nobody presenceResponse
	if err := client.Call(ctx, "presence", map[string]any{"user_id": "carol"}, &nobody); err != nil {
		t.Fatalf("presence: %v", err)
	}
	if nobody.Online {
		t.Errorf("presence(carol) = %+v", nobody)
	}

	var all presenceResponse
	if err := client.Call(ctx, "presence", nil, &all); err != nil {
		t.Fatalf("presence: %v", err)
	}
	if len(all.Users) != 1 || all.Users[0] != "alice" {
		t.Errorf("online users = %v", all.Users)
	}

	var stats gateway.Stats
	if err := client.Call(ctx, "stats", nil, &stats); err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Connections != 2 || stats.Users != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestIngressRevoke(t *testing.T) {
	tg := newTestGateway(t)
	client := tg.ingressClient(t, startIngress(t, tg))
	token, credential, sink := tg.connect(t, "alice")
	ctx := context.Background()

	var response revokeResponse
	if err := client.Call(ctx, "revoke", map[string]any{"token_id": token.ID}, &response); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if response.Disconnected != 1 {
		t.Errorf("disconnected = %d, want 1", response.Disconnected)
	}
	testutil.RequireClosed(t, sink.closed, 5*time.Second, "revoked connection closed")
	if reason := sink.closeReason(); reason != gateway.ReasonTokenRevoked {
		t.Errorf("close reason = %q", reason)
	}

	_, err := tg.gateway.Connect(ctx, credential, newChanSink())
	if !errors.Is(err, authgate.ErrCredentialInvalid) || !errors.Is(err, sessiontoken.ErrTokenRevoked) {
		t.Fatalf("reconnect with revoked token: %v", err)
	}

	err = client.Call(ctx, "revoke", nil, nil)
	var serviceErr *service.ServiceError
	if !errors.As(err, &serviceErr) {
		t.Fatalf("revoke without token_id: %v", err)
	}
}

func TestIngressRequiresIngressAudience(t *testing.T) {
	tg := newTestGateway(t)
	socketPath := startIngress(t, tg)
	_, raw := tg.mint(t, "alice", sessiontoken.DefaultAudience)

	err := service.NewClient(socketPath, raw).Call(context.Background(), "stats", nil, nil)
	var serviceErr *service.ServiceError
	if !errors.As(err, &serviceErr) {
		t.Fatalf("browser token on ingress: err = %v, want *ServiceError", err)
	}
}
