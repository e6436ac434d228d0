// Copyright 2026 The TaskFlow Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"encoding/json"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/yaswanth65/task3Backend/lib/clock"
	"github.com/yaswanth65/task3Backend/lib/event"
)

// PresenceAudience returns the users who should hear about userID
// going online or offline. The user's own channel is always included
// and need not be returned.
type PresenceAudience interface {
	PresenceAudience(userID string) []string
}

// AudienceFunc adapts a function to PresenceAudience.
type AudienceFunc func(userID string) []string

func (f AudienceFunc) PresenceAudience(userID string) []string { return f(userID) }

// presenceTracker turns registry transitions into presence events.
// It keeps no presence state of its own beyond what has been
// announced: every decision re-reads the registry, so transitions
// delivered out of order still converge on the registry's view.
type presenceTracker struct {
	mu        sync.Mutex
	clock     clock.Clock
	grace     time.Duration
	announced map[string]struct{}
	pending   map[string]*offlineTimer
	stopped   bool

	isOnline func(userID string) bool
	audience func(userID string) []string
	publish  func(event.Event) error
	logger   *slog.Logger
}

type offlineTimer struct {
	timer *clock.Timer
}

// reconcile brings the announced state for userID in line with the
// registry. Called after a user's first connection registers and
// after their last one deregisters.
func (p *presenceTracker) reconcile(userID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return
	}

	_, announced := p.announced[userID]
	pending, hasPending := p.pending[userID]

	if p.isOnline(userID) {
		if hasPending {
			// Back within the grace window: the user never observably
			// went offline.
			pending.timer.Stop()
			delete(p.pending, userID)
		}
		if !announced {
			p.announced[userID] = struct{}{}
			p.publishLocked(event.PresenceOnline, userID)
		}
		return
	}

	if !announced || hasPending {
		return
	}
	if p.grace <= 0 {
		delete(p.announced, userID)
		p.publishLocked(event.PresenceOffline, userID)
		return
	}

	entry := &offlineTimer{}
	p.pending[userID] = entry
	entry.timer = p.clock.AfterFunc(p.grace, func() { p.expire(userID, entry) })
}

// expire runs when a grace window closes without a reconnect.
func (p *presenceTracker) expire(userID string, entry *offlineTimer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped || p.pending[userID] != entry {
		return
	}
	delete(p.pending, userID)
	if p.isOnline(userID) {
		return
	}
	delete(p.announced, userID)
	p.publishLocked(event.PresenceOffline, userID)
}

// stop cancels pending offline timers and suppresses further events.
func (p *presenceTracker) stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopped = true
	for userID, entry := range p.pending {
		entry.timer.Stop()
		delete(p.pending, userID)
	}
}

// publishLocked emits a presence event. Holding p.mu across the
// publish keeps one user's online/offline events in order.
func (p *presenceTracker) publishLocked(eventType event.Type, userID string) {
	now := p.clock.Now().UTC()
	payload, err := json.Marshal(map[string]string{
		"userId": userID,
		"at":     now.Format(time.RFC3339Nano),
	})
	if err != nil {
		p.logger.Error("encoding presence payload", "user_id", userID, "error", err)
		return
	}

	audience := slices.DeleteFunc(slices.Clone(p.audience(userID)), func(other string) bool { return other == userID })
	err = p.publish(event.Event{
		Type:      eventType,
		Payload:   payload,
		Timestamp: now,
		Scope:     event.Scope{UserID: userID, Users: audience},
	})
	if err != nil {
		p.logger.Error("publishing presence event", "type", eventType, "user_id", userID, "error", err)
		return
	}
	p.logger.Info("presence changed", "type", eventType, "user_id", userID)
}
