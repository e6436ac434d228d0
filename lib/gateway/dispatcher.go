// Copyright 2026 The TaskFlow Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"errors"
	"hash/fnv"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/yaswanth65/task3Backend/lib/event"
	"github.com/yaswanth65/task3Backend/lib/topic"
)

// stripeCount is the number of topic lock stripes. Events whose topics
// hash to disjoint stripes dispatch concurrently.
const stripeCount = 64

type dispatcher struct {
	stripes  [stripeCount]sync.Mutex
	registry *registry
	logger   *slog.Logger

	// unavailable is called, without any dispatcher lock held, for
	// each connection whose full queue refused an event. A connection
	// already closing is skipped silently.
	unavailable func(*DispatchError)

	sequence  atomic.Uint64
	delivered atomic.Uint64
	dropped   atomic.Uint64
}

func stripeOf(t topic.Topic) int {
	hash := fnv.New32a()
	_, _ = hash.Write([]byte(t))
	return int(hash.Sum32() % stripeCount)
}

// dispatch stamps ev with the next sequence number and queues it on
// every target connection. It returns the number of connections the
// event was queued for, which is also what the delivered counter
// accumulates. It never blocks on a connection.
func (d *dispatcher) dispatch(ev *event.Event) int {
	stripes := make([]int, 0, len(ev.Topics))
	for _, t := range ev.Topics {
		stripes = append(stripes, stripeOf(t))
	}
	slices.Sort(stripes)
	stripes = slices.Compact(stripes)

	// Ascending order, so two dispatches can never wait on each other.
	for _, stripe := range stripes {
		d.stripes[stripe].Lock()
	}

	ev.Sequence = d.sequence.Add(1)
	targets := d.registry.targets(ev.Topics, ConnectionID(ev.Origin))

	var failures []*DispatchError
	queued := 0
	for _, c := range targets {
		dropped, err := c.outbox.push(ev)
		if errors.Is(err, errOutboxFull) {
			failures = append(failures, &DispatchError{Connection: c.id, Err: err})
			continue
		}
		if err != nil {
			// Closed by a concurrent disconnect or shutdown.
			continue
		}
		queued++
		if dropped {
			d.dropped.Add(1)
			d.logger.Debug("outbound queue full, dropped oldest event",
				"connection_id", c.id,
				"user_id", c.userID,
			)
		}
	}

	for i := len(stripes) - 1; i >= 0; i-- {
		d.stripes[stripes[i]].Unlock()
	}

	d.delivered.Add(uint64(queued))
	for _, failure := range failures {
		d.unavailable(failure)
	}
	return queued
}
