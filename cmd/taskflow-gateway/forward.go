// Copyright 2026 The TaskFlow Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/yaswanth65/task3Backend/lib/gateway"
	"github.com/yaswanth65/task3Backend/lib/netutil"
	"github.com/yaswanth65/task3Backend/lib/service"
)

// UserHeader names the authenticated sender on forwarded messages.
const UserHeader = "X-TaskFlow-User"

const forwardTimeout = 10 * time.Second

// forwarder hands chat messages sent over the websocket to the CRUD
// API, which stores them and publishes message.created back through
// the ingress socket.
type forwarder struct {
	endpoint string
	secret   []byte
	client   *http.Client
	logger   *slog.Logger
}

func newForwarder(apiURL string, secret []byte, client *http.Client, logger *slog.Logger) *forwarder {
	if client == nil {
		client = &http.Client{Timeout: forwardTimeout}
	}
	return &forwarder{
		endpoint: strings.TrimRight(apiURL, "/") + "/api/messages",
		secret:   secret,
		client:   client,
		logger:   logger,
	}
}

func (f *forwarder) HandleInbound(ctx context.Context, from gateway.Handle, payload []byte) error {
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, f.endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set(UserHeader, from.UserID)
	if len(f.secret) > 0 {
		request.Header.Set(service.SignatureHeader, service.SignHMAC(f.secret, payload))
	}

	response, err := f.client.Do(request)
	if err != nil {
		return fmt.Errorf("forwarding message: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode/100 != 2 {
		return fmt.Errorf("forwarding message: %s: %s", response.Status, netutil.ErrorBody(response.Body))
	}
	f.logger.Debug("message forwarded", "connection_id", from.ID, "user_id", from.UserID, "status", response.StatusCode)
	return nil
}
