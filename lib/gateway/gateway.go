// Copyright 2026 The TaskFlow Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/yaswanth65/task3Backend/lib/authgate"
	"github.com/yaswanth65/task3Backend/lib/clock"
	"github.com/yaswanth65/task3Backend/lib/topic"
)

// Authenticator validates the credential presented at connect time.
// *authgate.Gate implements it.
type Authenticator interface {
	Authenticate(ctx context.Context, credential string) (authgate.Identity, error)
}

// Authorizer decides whether a user may subscribe to a topic. A nil
// error allows the subscription.
type Authorizer interface {
	Authorize(ctx context.Context, userID string, t topic.Topic) error
}

// InboundHandler receives client-initiated messages (chat sends) and
// routes them to the CRUD layer. The gateway does not interpret the
// payload.
type InboundHandler interface {
	HandleInbound(ctx context.Context, from Handle, payload []byte) error
}

// Options configures New. Authenticator is required. A nil Authorizer
// allows every subscription; a nil Audience announces presence to
// every online user.
type Options struct {
	Config        Config
	Authenticator Authenticator
	Authorizer    Authorizer
	Inbound       InboundHandler
	Audience      PresenceAudience
	Clock         clock.Clock
	Logger        *slog.Logger
}

// Gateway is the process-wide realtime gateway.
type Gateway struct {
	config        Config
	authenticator Authenticator
	authorizer    Authorizer
	inbound       InboundHandler
	clock         clock.Clock
	logger        *slog.Logger

	registry   *registry
	dispatcher *dispatcher
	presence   *presenceTracker

	published atomic.Uint64

	// lifecycleMu orders writers.Add against Shutdown's Wait.
	lifecycleMu sync.Mutex
	stopping    bool
	writers     sync.WaitGroup
}

// New builds a Gateway. Call Run to start the heartbeat reaper.
func New(options Options) (*Gateway, error) {
	if err := options.Config.Validate(); err != nil {
		return nil, fmt.Errorf("gateway config: %w", err)
	}
	if options.Authenticator == nil {
		return nil, errors.New("gateway: Authenticator is required")
	}
	if options.Clock == nil {
		options.Clock = clock.Real()
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}

	g := &Gateway{
		config:        options.Config,
		authenticator: options.Authenticator,
		authorizer:    options.Authorizer,
		inbound:       options.Inbound,
		clock:         options.Clock,
		logger:        options.Logger,
		registry:      newRegistry(),
	}
	g.dispatcher = &dispatcher{
		registry:    g.registry,
		logger:      g.logger,
		unavailable: g.connectionUnavailable,
	}

	audience := func(string) []string { return g.registry.onlineUsers() }
	if options.Audience != nil {
		audience = options.Audience.PresenceAudience
	}
	g.presence = &presenceTracker{
		clock:     g.clock,
		grace:     g.config.PresenceGraceWindow,
		announced: make(map[string]struct{}),
		pending:   make(map[string]*offlineTimer),
		isOnline:  g.registry.isOnline,
		audience:  audience,
		publish:   g.Publish,
		logger:    g.logger,
	}
	return g, nil
}

// Config returns the configuration the gateway was built with.
func (g *Gateway) Config() Config { return g.config }

// Connect authenticates credential and admits a new connection that
// delivers through sink. Authentication errors are returned unchanged
// (they wrap the authgate sentinels); the caller should reject the
// transport connection.
func (g *Gateway) Connect(ctx context.Context, credential string, sink Sink) (Handle, error) {
	c := newConnection(ConnectionID(uuid.NewString()), sink,
		g.config.OutboundQueueCapacity, g.config.OverflowPolicy, g.clock.Now())

	if g.config.HandshakeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.config.HandshakeTimeout)
		defer cancel()
	}

	identity, err := g.authenticator.Authenticate(ctx, credential)
	if err == nil {
		// Authenticated, but too late.
		err = ctx.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("%w: %w", ErrHandshakeTimeout, err)
	}
	if err != nil {
		c.close()
		g.logger.Info("connection rejected", "connection_id", c.id, "error", err)
		return Handle{}, err
	}

	c.userID = identity.UserID
	c.tokenID = identity.TokenID
	if err := c.transition(StateAuthenticated); err != nil {
		return Handle{}, err
	}

	// Count the writer before the connection becomes visible, so a
	// concurrent Shutdown always waits for it.
	if !g.addWriter() {
		c.close()
		return Handle{}, ErrShuttingDown
	}
	first, err := g.registry.register(c)
	if err != nil {
		g.writers.Done()
		c.close()
		return Handle{}, err
	}
	go g.writeLoop(c)

	if first {
		g.presence.reconcile(c.userID)
	}
	g.logger.Info("connection admitted",
		"connection_id", c.id,
		"user_id", c.userID,
		"first_for_user", first,
	)
	return c.handle(), nil
}

// writeLoop is the connection's only writer. It drains the outbox in
// order until the connection closes.
func (g *Gateway) writeLoop(c *connection) {
	defer g.writers.Done()
	for {
		ev, err := c.outbox.pop(c.ctx)
		if err != nil {
			return
		}
		if err := c.sink.Send(c.ctx, ev); err != nil {
			if c.ctx.Err() == nil {
				g.logger.Warn("send failed, dropping connection",
					"connection_id", c.id,
					"user_id", c.userID,
					"error", err,
				)
				g.Disconnect(c.id, ReasonSendFailed)
			}
			return
		}
	}
}

// Subscribe adds a topic subscription after consulting the Authorizer.
// Re-subscribing is a no-op. Failures are *SubscribeError.
func (g *Gateway) Subscribe(ctx context.Context, id ConnectionID, t topic.Topic) error {
	c, ok := g.registry.lookup(id)
	if !ok {
		return &SubscribeError{Connection: id, Topic: t, Err: ErrUnknownConnection}
	}

	if g.authorizer != nil {
		if err := g.authorizer.Authorize(ctx, c.userID, t); err != nil {
			g.logger.Info("subscription refused",
				"connection_id", id,
				"user_id", c.userID,
				"topic", t,
				"error", err,
			)
			return &SubscribeError{Connection: id, Topic: t, Err: fmt.Errorf("%w: %w", ErrUnauthorized, err)}
		}
	}

	// The connection may have closed while the authorizer ran.
	if err := g.registry.subscribe(id, t); err != nil {
		return &SubscribeError{Connection: id, Topic: t, Err: err}
	}
	g.logger.Debug("subscribed", "connection_id", id, "user_id", c.userID, "topic", t)
	return nil
}

// Unsubscribe removes a subscription. Unknown connections and topics
// are no-ops.
func (g *Gateway) Unsubscribe(id ConnectionID, t topic.Topic) {
	g.registry.unsubscribe(id, t)
}

// Disconnect deregisters the connection, discards its queue, and
// closes its sink. It is idempotent and safe to call from any
// goroutine, including the transport's read loop.
func (g *Gateway) Disconnect(id ConnectionID, reason string) {
	c, last := g.registry.deregister(id)
	if c == nil {
		return
	}
	if err := c.sink.Close(reason); err != nil {
		g.logger.Debug("closing sink", "connection_id", id, "error", err)
	}
	if last {
		g.presence.reconcile(c.userID)
	}
	g.logger.Info("connection closed",
		"connection_id", id,
		"user_id", c.userID,
		"reason", reason,
		"discarded", c.discarded,
		"dropped", c.outbox.droppedCount(),
	)
}

// HandleInbound routes a client-initiated message to the
// InboundHandler. It counts as activity for the heartbeat.
func (g *Gateway) HandleInbound(ctx context.Context, id ConnectionID, payload []byte) error {
	c, ok := g.registry.lookup(id)
	if !ok {
		return ErrUnknownConnection
	}
	c.lastSeen.Store(g.clock.Now().UnixNano())
	if g.inbound == nil {
		return ErrInboundUnsupported
	}
	return g.inbound.HandleInbound(ctx, c.handle(), payload)
}

// Touch records inbound activity (a pong or any client frame).
func (g *Gateway) Touch(id ConnectionID) {
	if c, ok := g.registry.lookup(id); ok {
		c.lastSeen.Store(g.clock.Now().UnixNano())
	}
}

// RevokeToken disconnects every connection authenticated with tokenID
// and returns how many there were.
func (g *Gateway) RevokeToken(tokenID string) int {
	ids := g.registry.withToken(tokenID)
	for _, id := range ids {
		g.Disconnect(id, ReasonTokenRevoked)
	}
	return len(ids)
}

// ConnectionsOf returns the user's live connections.
func (g *Gateway) ConnectionsOf(userID string) []Handle { return g.registry.connectionsOf(userID) }

// SubscribersOf returns the connections a delivery to t would reach.
// Unknown topics yield an empty slice.
func (g *Gateway) SubscribersOf(t topic.Topic) []Handle { return g.registry.subscribersOf(t) }

// IsOnline reports whether the user has at least one live connection.
func (g *Gateway) IsOnline(userID string) bool { return g.registry.isOnline(userID) }

// OnlineUsers returns every user with a live connection, sorted.
func (g *Gateway) OnlineUsers() []string { return g.registry.onlineUsers() }

// State returns the lifecycle state of a connection; unknown ids report
// StateClosed.
func (g *Gateway) State(id ConnectionID) State {
	if c, ok := g.registry.lookup(id); ok {
		return c.currentState()
	}
	return StateClosed
}

// Stats is a point-in-time summary.
type Stats struct {
	Connections int    `json:"connections" cbor:"connections"`
	Users       int    `json:"users" cbor:"users"`
	Topics      int    `json:"topics" cbor:"topics"`
	Published   uint64 `json:"published" cbor:"published"`
	// Delivered counts events queued on a connection's outbound queue,
	// not frames written; an event later dropped from a full queue or
	// lost to a disconnect is still counted.
	Delivered uint64 `json:"delivered" cbor:"delivered"`
	Dropped     uint64 `json:"dropped" cbor:"dropped"`
}

// Stats returns current counters.
func (g *Gateway) Stats() Stats {
	connections, users, topics := g.registry.counts()
	return Stats{
		Connections: connections,
		Users:       users,
		Topics:      topics,
		Published:   g.published.Load(),
		Delivered:   g.dispatcher.delivered.Load(),
		Dropped:     g.dispatcher.dropped.Load(),
	}
}

// Run reaps connections that miss heartbeats until ctx is cancelled,
// then shuts the gateway down.
func (g *Gateway) Run(ctx context.Context) error {
	defer g.Shutdown()

	if g.config.HeartbeatInterval <= 0 {
		<-ctx.Done()
		return nil
	}

	ticker := g.clock.NewTicker(g.config.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			g.reap()
		}
	}
}

// reap disconnects every connection idle for more than two heartbeat
// intervals.
func (g *Gateway) reap() {
	deadline := g.clock.Now().Add(-2 * g.config.HeartbeatInterval).UnixNano()
	for _, c := range g.registry.snapshot() {
		if c.lastSeen.Load() < deadline {
			g.logger.Info("heartbeat missed",
				"connection_id", c.id,
				"user_id", c.userID,
				"idle", time.Duration(g.clock.Now().UnixNano()-c.lastSeen.Load()),
			)
			g.Disconnect(c.id, ReasonIdle)
		}
	}
}

// Shutdown closes every connection and waits for their writers to
// exit. Later Connect calls fail with ErrShuttingDown. Safe to call
// more than once.
func (g *Gateway) Shutdown() {
	g.lifecycleMu.Lock()
	if g.stopping {
		g.lifecycleMu.Unlock()
		return
	}
	g.stopping = true
	g.lifecycleMu.Unlock()

	g.presence.stop()

	closed := g.registry.closeAll()
	for _, c := range closed {
		if err := c.sink.Close(ReasonShutdown); err != nil {
			g.logger.Debug("closing sink", "connection_id", c.id, "error", err)
		}
	}
	g.writers.Wait()
	g.logger.Info("gateway stopped", "closed_connections", len(closed))
}

func (g *Gateway) addWriter() bool {
	g.lifecycleMu.Lock()
	defer g.lifecycleMu.Unlock()
	if g.stopping {
		return false
	}
	g.writers.Add(1)
	return true
}

// connectionUnavailable deregisters a connection the dispatcher could
// not queue to. It runs on its own goroutine so dispatch never waits
// on teardown.
func (g *Gateway) connectionUnavailable(failure *DispatchError) {
	g.logger.Warn("connection unavailable", "connection_id", failure.Connection, "error", failure)
	go g.Disconnect(failure.Connection, ReasonDeliveryFailed)
}
