// Copyright 2026 The TaskFlow Authors
// SPDX-License-Identifier: Apache-2.0

// Package gateway is the realtime event gateway: it admits
// authenticated connections, tracks which topics each connection is
// subscribed to, and fans published domain events out to exactly the
// connections that should see them.
//
// # Components
//
// The [Gateway] facade owns four internal parts:
//
//   - the registry, the single source of truth for live connections
//     and user sessions (user id → connections). The topic index
//     (topic → connections) lives behind the same lock, so
//     deregistering a connection and removing it from every topic is
//     one atomic step with respect to concurrent publishes.
//   - the dispatcher, which resolves an event's topics to a
//     deduplicated set of connections and pushes the event onto each
//     connection's bounded outbox without blocking.
//   - the presence tracker, which derives online/offline state from
//     the registry and publishes presence events, debouncing
//     reconnects that land inside the grace window.
//   - the heartbeat reaper ([Gateway.Run]), which deregisters
//     connections that have been silent for two heartbeat intervals.
//
// # Ordering
//
// Dispatch holds a lock stripe for every topic an event targets while
// it enqueues. Two events that share a topic therefore reach every
// common subscriber's outbox in publish order, and each connection has
// exactly one writer goroutine draining its outbox in FIFO order.
// Events with disjoint topics dispatch in parallel and carry no
// relative ordering guarantee. Sequence numbers are assigned under the
// same stripe locks, so for any one topic a client sees them strictly
// increasing.
//
// # Slow consumers
//
// Each outbox holds at most Config.OutboundQueueCapacity events. When
// it is full the overflow policy decides: [OverflowDropOldest]
// discards the oldest queued event and counts the drop;
// [OverflowDisconnect] deregisters the connection. Neither ever blocks
// the dispatcher or affects other connections.
//
// # Lifecycle
//
// One Gateway exists per process. It is constructed at startup and
// passed to everything that publishes or queries it; [Gateway.Run]
// drives the reaper until its context is cancelled, after which every
// connection is closed.
package gateway
