// Copyright 2026 The TaskFlow Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"slices"

	"github.com/yaswanth65/task3Backend/lib/event"
)

// Publisher is the interface CRUD handlers depend on.
type Publisher interface {
	Publish(ev event.Event) error
}

var _ Publisher = (*Gateway)(nil)

// Publish validates ev, resolves its topics, and queues it for every
// connection subscribed to any of them. It returns once the event is
// queued; delivery happens on each connection's writer.
//
// Call Publish only after the write the event describes has committed:
// clients act on events immediately and there is no retraction.
//
// The only errors are for malformed events (event.ErrMalformed).
// Delivery failures are handled internally.
func (g *Gateway) Publish(ev event.Event) error {
	if err := ev.Validate(); err != nil {
		return err
	}
	topics, err := ev.Resolve()
	if err != nil {
		return err
	}

	// Detach from the caller's buffers: the published event is shared
	// by every recipient and must not change underneath them.
	published := ev
	published.Topics = topics
	published.Payload = slices.Clone(ev.Payload)
	published.Scope.Users = slices.Clone(ev.Scope.Users)
	if published.Timestamp.IsZero() {
		published.Timestamp = g.clock.Now().UTC()
	}

	g.published.Add(1)
	recipients := g.dispatcher.dispatch(&published)
	g.logger.Debug("event published",
		"type", published.Type,
		"seq", published.Sequence,
		"topics", published.Topics,
		"recipients", recipients,
	)
	return nil
}
