// Copyright 2026 The TaskFlow Authors
// SPDX-License-Identifier: Apache-2.0

package netutil

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"syscall"
	"testing"

	"github.com/gorilla/websocket"
)

func TestIsExpectedCloseError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"eof", io.EOF, true},
		{"wrapped closed", fmt.Errorf("reading: %w", net.ErrClosed), true},
		{"reset", &net.OpError{Op: "read", Err: syscall.ECONNRESET}, true},
		{"broken pipe", fmt.Errorf("write: %w", syscall.EPIPE), true},
		{"websocket going away", &websocket.CloseError{Code: websocket.CloseGoingAway}, true},
		{"websocket normal", &websocket.CloseError{Code: websocket.CloseNormalClosure}, true},
		{"websocket protocol error", &websocket.CloseError{Code: websocket.CloseProtocolError}, false},
		{"refused", syscall.ECONNREFUSED, false},
		{"other", errors.New("boom"), false},
	}
	for _, test := range tests {
		if got := IsExpectedCloseError(test.err); got != test.want {
			t.Errorf("%s: IsExpectedCloseError(%v) = %v, want %v", test.name, test.err, got, test.want)
		}
	}
}

func TestErrorBody(t *testing.T) {
	if got := ErrorBody(strings.NewReader(" {\"message\":\"forbidden\"}\n")); got != `{"message":"forbidden"}` {
		t.Errorf("ErrorBody = %q", got)
	}
	large := bytes.Repeat([]byte("x"), MaxErrorBody*2)
	if got := ErrorBody(bytes.NewReader(large)); len(got) != MaxErrorBody {
		t.Errorf("ErrorBody length = %d, want %d", len(got), MaxErrorBody)
	}
	if got := ErrorBody(&failReader{}); got != "" {
		t.Errorf("ErrorBody(failing reader) = %q, want empty", got)
	}
}

type failReader struct{}

func (*failReader) Read([]byte) (int, error) {
	return 0, fmt.Errorf("simulated read failure")
}
