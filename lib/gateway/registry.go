// Copyright 2026 The TaskFlow Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"cmp"
	"maps"
	"slices"
	"sync"

	"github.com/yaswanth65/task3Backend/lib/topic"
)

// registry owns every live connection, the user sessions, and the
// topic index. One RWMutex covers all three, so a deregistration and
// its topic cleanup are observed together by any concurrent reader.
type registry struct {
	mu          sync.RWMutex
	connections map[ConnectionID]*connection
	sessions    map[string]map[ConnectionID]*connection
	index       topicIndex
	closed      bool
}

func newRegistry() *registry {
	return &registry{
		connections: make(map[ConnectionID]*connection),
		sessions:    make(map[string]map[ConnectionID]*connection),
		index:       newTopicIndex(),
	}
}

// register admits c into its user's session and moves it to Active.
// first reports whether c is the only connection of its user.
func (r *registry) register(c *connection) (first bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return false, ErrShuttingDown
	}
	if err := c.transition(StateActive); err != nil {
		return false, err
	}

	session, ok := r.sessions[c.userID]
	if !ok {
		session = make(map[ConnectionID]*connection)
		r.sessions[c.userID] = session
	}
	session[c.id] = c
	r.connections[c.id] = c
	return len(session) == 1, nil
}

// deregister removes the connection, its subscriptions, and (if it was
// the last one) its user's session, then closes it. Unknown ids return
// nil. Closing under the lock means no dispatch that starts after the
// removal can enqueue to the connection.
func (r *registry) deregister(id ConnectionID) (c *connection, last bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.connections[id]
	if !ok {
		return nil, false
	}
	delete(r.connections, id)
	r.index.removeConnection(c)

	session := r.sessions[c.userID]
	delete(session, id)
	if len(session) == 0 {
		delete(r.sessions, c.userID)
		last = true
	}

	c.close()
	return c, last
}

// closeAll deregisters every connection and refuses further
// registrations. The caller closes the sinks.
func (r *registry) closeAll() []*connection {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
	all := slices.Collect(maps.Values(r.connections))
	for _, c := range all {
		r.index.removeConnection(c)
		c.close()
	}
	clear(r.connections)
	clear(r.sessions)
	return all
}

func (r *registry) lookup(id ConnectionID) (*connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.connections[id]
	return c, ok
}

func (r *registry) subscribe(id ConnectionID, t topic.Topic) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.connections[id]
	if !ok {
		return ErrUnknownConnection
	}
	r.index.add(t, c)
	return nil
}

// unsubscribe is a no-op for unknown connections and topics.
func (r *registry) unsubscribe(id ConnectionID, t topic.Topic) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.connections[id]; ok {
		r.index.remove(t, c)
	}
}

func (r *registry) connectionsOf(userID string) []Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return handles(r.sessions[userID])
}

func (r *registry) isOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions[userID]) > 0
}

func (r *registry) onlineUsers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	users := slices.Collect(maps.Keys(r.sessions))
	slices.Sort(users)
	return users
}

// subscribersOf returns who a delivery to t reaches: its explicit
// subscribers, plus every connection of the user for user:<id> topics.
func (r *registry) subscribersOf(t topic.Topic) []Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	targets := make(map[ConnectionID]*connection)
	r.collectLocked(t, targets)
	return handles(targets)
}

// targets resolves topics to the deduplicated set of connections,
// leaving out origin.
func (r *registry) targets(topics []topic.Topic, origin ConnectionID) []*connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := make(map[ConnectionID]*connection)
	for _, t := range topics {
		r.collectLocked(t, set)
	}
	delete(set, origin)
	return slices.Collect(maps.Values(set))
}

func (r *registry) collectLocked(t topic.Topic, into map[ConnectionID]*connection) {
	if t.Kind() == topic.KindUser {
		maps.Copy(into, r.sessions[t.ID()])
	}
	maps.Copy(into, r.index.subscribers[t])
}

func (r *registry) snapshot() []*connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Collect(maps.Values(r.connections))
}

func (r *registry) withToken(tokenID string) []ConnectionID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var ids []ConnectionID
	for id, c := range r.connections {
		if c.tokenID == tokenID {
			ids = append(ids, id)
		}
	}
	return ids
}

func (r *registry) counts() (connections, users, topics int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.connections), len(r.sessions), r.index.len()
}

func handles(set map[ConnectionID]*connection) []Handle {
	result := make([]Handle, 0, len(set))
	for _, c := range set {
		result = append(result, c.handle())
	}
	slices.SortFunc(result, func(a, b Handle) int { return cmp.Compare(a.ID, b.ID) })
	return result
}
