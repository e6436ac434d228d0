// Copyright 2026 The TaskFlow Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/yaswanth65/task3Backend/lib/codec"
	"github.com/yaswanth65/task3Backend/lib/event"
	"github.com/yaswanth65/task3Backend/lib/gateway"
	"github.com/yaswanth65/task3Backend/lib/service"
	"github.com/yaswanth65/task3Backend/lib/sessiontoken"
	"github.com/yaswanth65/task3Backend/lib/topic"
)

// The ingress socket is how CRUD processes reach the gateway. Every
// action requires a token minted for the ingress audience.
//
//	publish   {type, payload, scope, topics?, timestamp?, origin?} -> {}
//	revoke    {token_id}                       -> {disconnected}
//	presence  {user_id?}                       -> {online, connections} or {users}
//	stats     {}                               -> gateway.Stats

// publishRequest mirrors event.Event. Topics are added to those the
// scope resolves to; a zero Timestamp is stamped by the gateway.
type publishRequest struct {
	Type      event.Type    `cbor:"type"`
	Payload   []byte        `cbor:"payload"`
	Scope     event.Scope   `cbor:"scope"`
	Topics    []topic.Topic `cbor:"topics,omitempty"`
	Timestamp time.Time     `cbor:"timestamp,omitempty"`
	Origin    string        `cbor:"origin,omitempty"`
}

type revokeRequest struct {
	TokenID string `cbor:"token_id"`
}

type revokeResponse struct {
	Disconnected int `cbor:"disconnected"`
}

type presenceRequest struct {
	UserID string `cbor:"user_id,omitempty"`
}

type presenceResponse struct {
	UserID      string   `cbor:"user_id,omitempty"`
	Online      bool     `cbor:"online,omitempty"`
	Connections int      `cbor:"connections,omitempty"`
	Users       []string `cbor:"users,omitempty"`
}

// tokenRevoker is the part of authgate.Gate the revoke action needs.
type tokenRevoker interface {
	Revoke(tokenID string)
}

type ingress struct {
	gateway *gateway.Gateway
	revoker tokenRevoker
	logger  *slog.Logger
}

func registerIngress(server *service.SocketServer, g *gateway.Gateway, revoker tokenRevoker, logger *slog.Logger) {
	in := &ingress{gateway: g, revoker: revoker, logger: logger}
	server.HandleAuth("publish", in.publish)
	server.HandleAuth("revoke", in.revoke)
	server.HandleAuth("presence", in.presence)
	server.HandleAuth("stats", in.stats)
}

func (in *ingress) publish(_ context.Context, token *sessiontoken.Token, raw []byte) (any, error) {
	var request publishRequest
	if err := codec.Unmarshal(raw, &request); err != nil {
		return nil, fmt.Errorf("decoding publish request: %w", err)
	}
	ev := event.Event{
		Type:      request.Type,
		Topics:    request.Topics,
		Timestamp: request.Timestamp,
		Scope:     request.Scope,
		Origin:    request.Origin,
	}
	if len(request.Payload) > 0 {
		ev.Payload = json.RawMessage(request.Payload)
	}
	if err := in.gateway.Publish(ev); err != nil {
		in.logger.Info("ingress publish rejected", "caller", token.Subject, "type", request.Type, "error", err)
		return nil, err
	}
	return nil, nil
}

func (in *ingress) revoke(_ context.Context, token *sessiontoken.Token, raw []byte) (any, error) {
	var request revokeRequest
	if err := codec.Unmarshal(raw, &request); err != nil {
		return nil, fmt.Errorf("decoding revoke request: %w", err)
	}
	if request.TokenID == "" {
		return nil, errors.New("token_id is required")
	}
	in.revoker.Revoke(request.TokenID)
	n := in.gateway.RevokeToken(request.TokenID)
	in.logger.Info("token revoked", "caller", token.Subject, "token_id", request.TokenID, "disconnected", n)
	return revokeResponse{Disconnected: n}, nil
}

func (in *ingress) presence(_ context.Context, _ *sessiontoken.Token, raw []byte) (any, error) {
	var request presenceRequest
	if err := codec.Unmarshal(raw, &request); err != nil {
		return nil, fmt.Errorf("decoding presence request: %w", err)
	}
	if request.UserID == "" {
		return presenceResponse{Users: in.gateway.OnlineUsers()}, nil
	}
	connections := in.gateway.ConnectionsOf(request.UserID)
	return presenceResponse{
		UserID:      request.UserID,
		Online:      len(connections) > 0,
		Connections: len(connections),
	}, nil
}

func (in *ingress) stats(context.Context, *sessiontoken.Token, []byte) (any, error) {
	return in.gateway.Stats(), nil
}
