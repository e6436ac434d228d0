// Copyright 2026 The TaskFlow Authors
// SPDX-License-Identifier: Apache-2.0

package wstransport

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/yaswanth65/task3Backend/lib/event"
	"github.com/yaswanth65/task3Backend/lib/gateway"
)

// sink is the gateway.Sink for one websocket. The gateway's writer
// goroutine and the read loop's replies both write through it, so data
// frames are serialized by writeMu. Control frames (ping, close) use
// WriteControl, which gorilla allows concurrently with everything.
type sink struct {
	conn         *websocket.Conn
	writeTimeout time.Duration

	writeMu sync.Mutex

	// started is closed once the ready frame is written; events wait
	// for it so ready is always first.
	started   chan struct{}
	startOnce sync.Once

	closeOnce sync.Once
	closed    chan struct{}
}

func newSink(conn *websocket.Conn, writeTimeout time.Duration) *sink {
	return &sink{
		conn:         conn,
		writeTimeout: writeTimeout,
		started:      make(chan struct{}),
		closed:       make(chan struct{}),
	}
}

func (s *sink) start() { s.startOnce.Do(func() { close(s.started) }) }

func (s *sink) Send(ctx context.Context, ev *event.Event) error {
	select {
	case <-s.started:
	case <-ctx.Done():
		return ctx.Err()
	}
	return s.write(serverFrame{Type: frameEvent, Event: ev})
}

func (s *sink) write(frame serverFrame) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	return s.conn.WriteJSON(frame)
}

func (s *sink) ping() error {
	return s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.writeTimeout))
}

// Close sends a close frame and closes the socket. Later calls are
// no-ops.
func (s *sink) Close(reason string) error {
	var err error
	s.closeOnce.Do(func() {
		message := websocket.FormatCloseMessage(closeCode(reason), truncateReason(reason))
		// Best effort: the peer may already be gone.
		_ = s.conn.WriteControl(websocket.CloseMessage, message, time.Now().Add(s.writeTimeout))
		err = s.conn.Close()
		close(s.closed)
	})
	return err
}

// closeCode maps gateway disconnect reasons to websocket close codes.
func closeCode(reason string) int {
	switch reason {
	case gateway.ReasonShutdown, gateway.ReasonIdle, gateway.ReasonSendFailed:
		return websocket.CloseGoingAway
	case gateway.ReasonTokenRevoked:
		return websocket.ClosePolicyViolation
	case gateway.ReasonDeliveryFailed:
		return websocket.CloseTryAgainLater
	}
	return websocket.CloseNormalClosure
}

// truncateReason keeps the close payload within the 123 bytes a
// control frame allows.
func truncateReason(reason string) string {
	const max = 123
	if len(reason) > max {
		return reason[:max]
	}
	return reason
}
