// Copyright 2026 The TaskFlow Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/yaswanth65/task3Backend/lib/clock"
	"github.com/yaswanth65/task3Backend/lib/codec"
	"github.com/yaswanth65/task3Backend/lib/sessiontoken"
)

// ActionFunc handles one request. raw is the complete CBOR request,
// including the "action" field; the handler decodes its own fields.
// A nil result produces {ok: true}; anything else is encoded into the
// response's data field.
type ActionFunc func(ctx context.Context, raw []byte) (any, error)

// AuthActionFunc is an ActionFunc that runs only after the request's
// token has been verified.
type AuthActionFunc func(ctx context.Context, token *sessiontoken.Token, raw []byte) (any, error)

// AuthConfig verifies tokens on HandleAuth actions.
type AuthConfig struct {
	PublicKey   ed25519.PublicKey
	Audience    string
	Revocations *sessiontoken.Revocations
	Clock       clock.Clock
}

// Response is the envelope of every socket response.
type Response struct {
	OK    bool             `cbor:"ok"`
	Error string           `cbor:"error,omitempty"`
	Data  codec.RawMessage `cbor:"data,omitempty"`
}

// SocketServer serves one request per connection: the client writes a
// CBOR map with an "action" key, the server writes a Response and
// closes the connection.
type SocketServer struct {
	socketPath string
	handlers   map[string]ActionFunc
	auth       *AuthConfig
	logger     *slog.Logger
	ready      chan struct{}

	active sync.WaitGroup
}

// NewSocketServer creates a server for socketPath. auth may be nil if
// no action is registered with HandleAuth.
func NewSocketServer(socketPath string, logger *slog.Logger, auth *AuthConfig) *SocketServer {
	if auth != nil && auth.Clock == nil {
		auth.Clock = clock.Real()
	}
	return &SocketServer{
		socketPath: socketPath,
		handlers:   make(map[string]ActionFunc),
		auth:       auth,
		logger:     logger,
		ready:      make(chan struct{}),
	}
}

// Handle registers an unauthenticated action. Registering the same
// action twice panics.
func (s *SocketServer) Handle(action string, handler ActionFunc) {
	if _, exists := s.handlers[action]; exists {
		panic(fmt.Sprintf("service.SocketServer: duplicate handler for action %q", action))
	}
	s.handlers[action] = handler
}

// HandleAuth registers an action that requires a valid token. It
// panics if the server has no AuthConfig.
func (s *SocketServer) HandleAuth(action string, handler AuthActionFunc) {
	if s.auth == nil {
		panic(fmt.Sprintf("service.SocketServer: HandleAuth(%q) without AuthConfig", action))
	}
	s.Handle(action, func(ctx context.Context, raw []byte) (any, error) {
		token, err := s.authenticate(raw)
		if err != nil {
			return nil, err
		}
		return handler(ctx, token, raw)
	})
}

// Ready is closed once the socket is listening.
func (s *SocketServer) Ready() <-chan struct{} { return s.ready }

// Serve listens on the socket until ctx is cancelled, then waits for
// in-flight requests. A stale socket file is replaced; the socket file
// is removed on return.
func (s *SocketServer) Serve(ctx context.Context) error {
	if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing stale socket %s: %w", s.socketPath, err)
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.socketPath, err)
	}
	defer func() {
		listener.Close()
		os.Remove(s.socketPath)
	}()
	if err := os.Chmod(s.socketPath, 0o660); err != nil {
		return fmt.Errorf("restricting socket permissions: %w", err)
	}

	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	s.logger.Info("socket server listening", "path", s.socketPath)
	close(s.ready)

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				break
			}
			s.logger.Error("accept failed", "error", err)
			continue
		}

		s.active.Add(1)
		go func() {
			defer s.active.Done()
			s.handleConnection(ctx, conn)
		}()
	}

	s.active.Wait()
	return nil
}

const (
	readTimeout    = 30 * time.Second
	writeTimeout   = 10 * time.Second
	maxRequestSize = 1024 * 1024
)

func (s *SocketServer) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(readTimeout))

	// CBOR is self-delimiting, so one Decode reads exactly one request.
	var raw codec.RawMessage
	if err := codec.NewDecoder(io.LimitReader(conn, maxRequestSize)).Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return
		}
		s.writeError(conn, fmt.Sprintf("invalid request: %v", err))
		return
	}

	var header struct {
		Action string `cbor:"action"`
	}
	if err := codec.Unmarshal(raw, &header); err != nil {
		s.writeError(conn, fmt.Sprintf("invalid request: %v", err))
		return
	}
	if header.Action == "" {
		s.writeError(conn, "missing required field: action")
		return
	}

	handler, exists := s.handlers[header.Action]
	if !exists {
		s.writeError(conn, fmt.Sprintf("unknown action %q", header.Action))
		return
	}

	result, err := handler(ctx, []byte(raw))
	if err != nil {
		s.logger.Debug("action failed", "action", header.Action, "error", err)
		s.writeError(conn, err.Error())
		return
	}
	s.writeSuccess(conn, result)
}

func (s *SocketServer) authenticate(raw []byte) (*sessiontoken.Token, error) {
	var request struct {
		Token []byte `cbor:"token"`
	}
	if err := codec.Unmarshal(raw, &request); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	if len(request.Token) == 0 {
		return nil, errors.New("authentication failed: missing token field")
	}

	token, err := sessiontoken.VerifyAudienceAt(s.auth.PublicKey, request.Token, s.auth.Audience, s.auth.Clock.Now())
	if err != nil {
		return nil, fmt.Errorf("authentication failed: %w", err)
	}
	if s.auth.Revocations != nil && s.auth.Revocations.IsRevoked(token.ID) {
		return nil, fmt.Errorf("authentication failed: %w", sessiontoken.ErrTokenRevoked)
	}
	return token, nil
}

func (s *SocketServer) writeError(conn net.Conn, message string) {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := codec.NewEncoder(conn).Encode(Response{Error: message}); err != nil {
		s.logger.Debug("failed to write error response", "error", err)
	}
}

func (s *SocketServer) writeSuccess(conn net.Conn, result any) {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))

	response := Response{OK: true}
	if result != nil {
		data, err := codec.Marshal(result)
		if err != nil {
			s.writeError(conn, fmt.Sprintf("internal: marshaling response: %v", err))
			return
		}
		response.Data = data
	}
	if err := codec.NewEncoder(conn).Encode(response); err != nil {
		s.logger.Debug("failed to write success response", "error", err)
	}
}
