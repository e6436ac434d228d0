// Copyright 2026 The TaskFlow Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

// Disconnect reasons the gateway itself passes to Sink.Close.
// Transports may map them to protocol close codes.
const (
	ReasonShutdown       = "server shutting down"
	ReasonTokenRevoked   = "token revoked"
	ReasonIdle           = "heartbeat timeout"
	ReasonSendFailed     = "send failed"
	ReasonDeliveryFailed = "delivery failed"
)
