// Copyright 2026 The TaskFlow Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"fmt"
	"io"
	"maps"
	"net"
	"time"

	"github.com/yaswanth65/task3Backend/lib/codec"
)

const (
	dialTimeout         = 5 * time.Second
	responseReadTimeout = readTimeout + writeTimeout + 5*time.Second
	maxResponseSize     = maxRequestSize
)

// ServiceError is a failure reported by the server (ok=false).
type ServiceError struct {
	Action  string
	Message string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("service error on %q: %s", e.Action, e.Message)
}

// Client calls a SocketServer. Each Call uses a fresh connection.
type Client struct {
	socketPath string
	token      []byte
}

// NewClient returns a client for socketPath. token is the raw session
// token sent with every request; nil sends none.
func NewClient(socketPath string, token []byte) *Client {
	return &Client{socketPath: socketPath, token: token}
}

// Call sends action with the given fields and decodes the response
// data into result, if both are non-nil. fields must not contain
// "action" or "token". A server-side failure is a *ServiceError;
// transport failures are plain errors.
func (c *Client) Call(ctx context.Context, action string, fields map[string]any, result any) error {
	request := make(map[string]any, len(fields)+2)
	maps.Copy(request, fields)
	request["action"] = action
	if c.token != nil {
		request["token"] = c.token
	}

	response, err := c.send(ctx, request)
	if err != nil {
		return fmt.Errorf("calling %q on %s: %w", action, c.socketPath, err)
	}
	if !response.OK {
		return &ServiceError{Action: action, Message: response.Error}
	}
	if result != nil && len(response.Data) > 0 {
		if err := codec.Unmarshal(response.Data, result); err != nil {
			return fmt.Errorf("decoding response data for %q: %w", action, err)
		}
	}
	return nil
}

func (c *Client) send(ctx context.Context, request any) (*Response, error) {
	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return nil, fmt.Errorf("connecting: %w", err)
	}
	defer conn.Close()

	if err := codec.NewEncoder(conn).Encode(request); err != nil {
		return nil, fmt.Errorf("writing request: %w", err)
	}
	if unixConn, ok := conn.(*net.UnixConn); ok {
		unixConn.CloseWrite()
	}

	deadline := time.Now().Add(responseReadTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	conn.SetReadDeadline(deadline)

	var response Response
	if err := codec.NewDecoder(io.LimitReader(conn, maxResponseSize)).Decode(&response); err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	return &response, nil
}
