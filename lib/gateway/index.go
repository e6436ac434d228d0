// Copyright 2026 The TaskFlow Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

import "github.com/yaswanth65/task3Backend/lib/topic"

// topicIndex maps topics to their explicit subscribers. It holds only
// back-references into the registry and is guarded by registry.mu;
// it has no lock of its own.
type topicIndex struct {
	subscribers map[topic.Topic]map[ConnectionID]*connection
}

func newTopicIndex() topicIndex {
	return topicIndex{subscribers: make(map[topic.Topic]map[ConnectionID]*connection)}
}

// add subscribes c to t. Adding an existing subscription is a no-op.
func (x *topicIndex) add(t topic.Topic, c *connection) {
	set, ok := x.subscribers[t]
	if !ok {
		set = make(map[ConnectionID]*connection)
		x.subscribers[t] = set
	}
	set[c.id] = c
	c.topics[t] = struct{}{}
}

// remove unsubscribes c from t and drops t once nobody is left.
func (x *topicIndex) remove(t topic.Topic, c *connection) {
	delete(c.topics, t)
	set, ok := x.subscribers[t]
	if !ok {
		return
	}
	delete(set, c.id)
	if len(set) == 0 {
		delete(x.subscribers, t)
	}
}

// removeConnection drops every subscription c holds.
func (x *topicIndex) removeConnection(c *connection) {
	for t := range c.topics {
		x.remove(t, c)
	}
}

func (x *topicIndex) len() int { return len(x.subscribers) }
