// Copyright 2026 The TaskFlow Authors
// SPDX-License-Identifier: Apache-2.0

package wstransport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/yaswanth65/task3Backend/lib/authgate"
	"github.com/yaswanth65/task3Backend/lib/clock"
	"github.com/yaswanth65/task3Backend/lib/gateway"
	"github.com/yaswanth65/task3Backend/lib/netutil"
	"github.com/yaswanth65/task3Backend/lib/topic"
)

// Gateway is the part of *gateway.Gateway the transport drives.
type Gateway interface {
	Config() gateway.Config
	Connect(ctx context.Context, credential string, sink gateway.Sink) (gateway.Handle, error)
	Subscribe(ctx context.Context, id gateway.ConnectionID, t topic.Topic) error
	Unsubscribe(id gateway.ConnectionID, t topic.Topic)
	HandleInbound(ctx context.Context, id gateway.ConnectionID, payload []byte) error
	Touch(id gateway.ConnectionID)
	Disconnect(id gateway.ConnectionID, reason string)
}

// Options configures a Handler.
type Options struct {
	Gateway Gateway

	// AllowedOrigins lists the browser origins that may connect. An
	// entry of "*" admits every origin. Requests without an Origin
	// header (non-browser clients) are always accepted.
	AllowedOrigins []string

	// WriteTimeout bounds each frame write. Zero means 10 seconds.
	WriteTimeout time.Duration

	// MaxMessageSize bounds client frames. Zero means 64 KiB.
	MaxMessageSize int64

	Clock  clock.Clock
	Logger *slog.Logger
}

// Handler upgrades HTTP requests to gateway connections.
type Handler struct {
	gateway        Gateway
	upgrader       websocket.Upgrader
	origins        map[string]struct{}
	anyOrigin      bool
	writeTimeout   time.Duration
	maxMessageSize int64
	clock          clock.Clock
	logger         *slog.Logger
}

// NewHandler returns a Handler.
func NewHandler(options Options) *Handler {
	if options.Gateway == nil {
		panic("wstransport: Gateway is required")
	}
	if options.WriteTimeout == 0 {
		options.WriteTimeout = 10 * time.Second
	}
	if options.MaxMessageSize == 0 {
		options.MaxMessageSize = 64 << 10
	}
	if options.Clock == nil {
		options.Clock = clock.Real()
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}

	h := &Handler{
		gateway:        options.Gateway,
		origins:        make(map[string]struct{}, len(options.AllowedOrigins)),
		writeTimeout:   options.WriteTimeout,
		maxMessageSize: options.MaxMessageSize,
		clock:          options.Clock,
		logger:         options.Logger,
	}
	for _, origin := range options.AllowedOrigins {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		if origin == "*" {
			h.anyOrigin = true
		}
		h.origins[origin] = struct{}{}
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || h.anyOrigin {
		return true
	}
	_, ok := h.origins[strings.TrimRight(origin, "/")]
	if !ok {
		h.logger.Warn("websocket origin refused", "origin", origin, "remote_addr", r.RemoteAddr)
	}
	return ok
}

// ServeHTTP runs one connection to completion.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		h.logger.Debug("websocket upgrade failed", "remote_addr", r.RemoteAddr, "error", err)
		return
	}
	conn.SetReadLimit(h.maxMessageSize)

	ctx := r.Context()
	sink := newSink(conn, h.writeTimeout)
	config := h.gateway.Config()

	credential, err := h.credential(r, conn, config.HandshakeTimeout)
	if err != nil {
		h.reject(sink, err)
		return
	}

	handle, err := h.gateway.Connect(ctx, credential, sink)
	if err != nil {
		h.reject(sink, err)
		return
	}
	if err := sink.write(serverFrame{Type: frameReady, ConnectionID: string(handle.ID), UserID: handle.UserID}); err != nil {
		h.gateway.Disconnect(handle.ID, "ready frame failed")
		return
	}
	sink.start()

	session := &session{handler: h, handle: handle, conn: conn, sink: sink}
	session.run(ctx, config.HeartbeatInterval)
}

// credential finds the client's token. Header and query parameter
// are checked first; otherwise the first frame must be an auth frame.
func (h *Handler) credential(r *http.Request, conn *websocket.Conn, timeout time.Duration) (string, error) {
	if value := authgate.BearerCredential(r.Header.Get("Authorization")); value != "" {
		return value, nil
	}
	if value := r.URL.Query().Get("token"); value != "" {
		return value, nil
	}

	if timeout > 0 {
		conn.SetReadDeadline(time.Now().Add(timeout))
		defer conn.SetReadDeadline(time.Time{})
	}
	var frame clientFrame
	if err := conn.ReadJSON(&frame); err != nil {
		var netErr interface{ Timeout() bool }
		if errors.As(err, &netErr) && netErr.Timeout() {
			return "", gateway.ErrHandshakeTimeout
		}
		return "", fmt.Errorf("%w: reading auth frame: %w", authgate.ErrCredentialMissing, err)
	}
	if frame.Type != frameAuth {
		return "", fmt.Errorf("%w: first frame is %q, not auth", authgate.ErrCredentialMissing, frame.Type)
	}
	return frame.Token, nil
}

// reject reports a failed handshake to the client and closes.
func (h *Handler) reject(sink *sink, err error) {
	code := rejectCode(err)
	h.logger.Info("websocket handshake rejected", "code", code, "error", err)
	_ = sink.write(errorFrame("", code, err.Error()))
	message := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, code)
	_ = sink.conn.WriteControl(websocket.CloseMessage, message, time.Now().Add(h.writeTimeout))
	_ = sink.conn.Close()
}

func rejectCode(err error) string {
	switch {
	case errors.Is(err, gateway.ErrHandshakeTimeout):
		return CodeHandshakeTimeout
	case errors.Is(err, authgate.ErrCredentialMissing):
		return CodeCredentialMissing
	case errors.Is(err, authgate.ErrCredentialExpired):
		return CodeCredentialExpired
	case errors.Is(err, authgate.ErrCredentialInvalid):
		return CodeCredentialInvalid
	}
	return CodeUnavailable
}

// session is one admitted connection.
type session struct {
	handler *Handler
	handle  gateway.Handle
	conn    *websocket.Conn
	sink    *sink
}

func (s *session) run(ctx context.Context, heartbeat time.Duration) {
	var pinger sync.WaitGroup
	if heartbeat > 0 {
		// A peer that misses two pings is dead even if the gateway's
		// reaper has not run yet.
		deadline := 2*heartbeat + s.handler.writeTimeout
		s.conn.SetReadDeadline(time.Now().Add(deadline))
		s.conn.SetPongHandler(func(string) error {
			s.handler.gateway.Touch(s.handle.ID)
			return s.conn.SetReadDeadline(time.Now().Add(deadline))
		})

		pinger.Add(1)
		go func() {
			defer pinger.Done()
			s.pingLoop(heartbeat)
		}()
	}

	reason := s.readLoop(ctx)
	s.handler.gateway.Disconnect(s.handle.ID, reason)
	pinger.Wait()
}

func (s *session) pingLoop(interval time.Duration) {
	ticker := s.handler.clock.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := s.sink.ping(); err != nil {
				return
			}
		case <-s.sink.closed:
			return
		}
	}
}

// readLoop handles client frames until the socket fails and returns
// the disconnect reason.
func (s *session) readLoop(ctx context.Context) string {
	logger := s.handler.logger.With("connection_id", s.handle.ID, "user_id", s.handle.UserID)
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case <-s.sink.closed:
				return "closed by server"
			default:
			}
			if netutil.IsExpectedCloseError(err) {
				return "client closed"
			}
			logger.Info("websocket read failed", "error", err)
			return "read error"
		}
		s.handler.gateway.Touch(s.handle.ID)

		var frame clientFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			s.reply(errorFrame("", CodeBadFrame, "frame is not a JSON object"))
			continue
		}
		s.reply(s.dispatch(ctx, frame))
	}
}

func (s *session) dispatch(ctx context.Context, frame clientFrame) serverFrame {
	id := s.handle.ID
	switch frame.Type {
	case frameSubscribe, frameUnsubscribe:
		t, err := topic.Parse(frame.Topic)
		if err != nil {
			return errorFrame(frame.Ref, CodeInvalidTopic, err.Error())
		}
		if frame.Type == frameUnsubscribe {
			s.handler.gateway.Unsubscribe(id, t)
			return serverFrame{Type: frameUnsubscribed, Ref: frame.Ref, Topic: t.String()}
		}
		if err := s.handler.gateway.Subscribe(ctx, id, t); err != nil {
			code := CodeUnavailable
			if errors.Is(err, gateway.ErrUnauthorized) {
				code = CodeUnauthorized
			}
			return errorFrame(frame.Ref, code, err.Error())
		}
		return serverFrame{Type: frameSubscribed, Ref: frame.Ref, Topic: t.String()}

	case frameMessage:
		if len(frame.Payload) == 0 {
			return errorFrame(frame.Ref, CodeBadFrame, "message frame without payload")
		}
		err := s.handler.gateway.HandleInbound(ctx, id, frame.Payload)
		switch {
		case errors.Is(err, gateway.ErrInboundUnsupported):
			return errorFrame(frame.Ref, CodeInboundUnsupported, err.Error())
		case err != nil:
			s.handler.logger.Warn("inbound message failed", "connection_id", id, "error", err)
			return errorFrame(frame.Ref, CodeInboundFailed, "message was not accepted")
		}
		return serverFrame{Type: frameAck, Ref: frame.Ref}

	case framePing:
		return serverFrame{Type: framePong, Ref: frame.Ref}

	case frameAuth:
		return errorFrame(frame.Ref, CodeBadFrame, "already authenticated")
	}
	return errorFrame(frame.Ref, CodeBadFrame, fmt.Sprintf("unknown frame type %q", frame.Type))
}

func (s *session) reply(frame serverFrame) {
	if err := s.sink.write(frame); err != nil {
		s.handler.logger.Debug("writing reply", "connection_id", s.handle.ID, "type", frame.Type, "error", err)
	}
}
