// Copyright 2026 The TaskFlow Authors
// SPDX-License-Identifier: Apache-2.0

// Package event defines the domain events the gateway distributes and
// how each one is addressed to topics.
//
// CRUD handlers build an Event after their write commits, fill in the
// Scope fields that matter for the type, and hand it to the gateway.
// Resolve turns the scope into the set of topics the event targets:
//
//	task.*            task:<TaskID>, user:<AssigneeID>
//	message.created   conversation:<ConversationID>
//	presence.*        user:<UserID>
//
// Every type additionally targets user:<id> for each id in
// Scope.Users, and any topics the caller listed explicitly.
package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/yaswanth65/task3Backend/lib/topic"
)

// ErrMalformed is returned for events that cannot be published: an
// unknown type, a missing scope id, or a payload that does not match
// its type's schema.
var ErrMalformed = errors.New("malformed event")

// Type is one of the closed set of event types.
type Type string

const (
	TaskCreated     Type = "task.created"
	TaskUpdated     Type = "task.updated"
	TaskDeleted     Type = "task.deleted"
	MessageCreated  Type = "message.created"
	PresenceOnline  Type = "presence.online"
	PresenceOffline Type = "presence.offline"
)

// Types lists every known type.
var Types = []Type{TaskCreated, TaskUpdated, TaskDeleted, MessageCreated, PresenceOnline, PresenceOffline}

// Known reports whether t is in the closed set.
func (t Type) Known() bool { return slices.Contains(Types, t) }

// IsTask reports whether t is a task.* type.
func (t Type) IsTask() bool { return t == TaskCreated || t == TaskUpdated || t == TaskDeleted }

// IsPresence reports whether t is a presence.* type.
func (t Type) IsPresence() bool { return t == PresenceOnline || t == PresenceOffline }

// Scope carries the ids that determine who receives an event. Only the
// fields relevant to the event's type are read.
type Scope struct {
	TaskID         string   `json:"taskId,omitempty" cbor:"task_id,omitempty"`
	AssigneeID     string   `json:"assigneeId,omitempty" cbor:"assignee_id,omitempty"`
	ConversationID string   `json:"conversationId,omitempty" cbor:"conversation_id,omitempty"`
	UserID         string   `json:"userId,omitempty" cbor:"user_id,omitempty"`
	Users          []string `json:"users,omitempty" cbor:"users,omitempty"`
}

// Event is one domain event. Once handed to the gateway it is shared
// read-only between every recipient and must not be modified.
//
// The JSON form is what clients receive.
type Event struct {
	Type      Type            `json:"type"`
	Topics    []topic.Topic   `json:"topics"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Sequence  uint64          `json:"seq"`

	Scope Scope `json:"-"`

	// Origin is the connection that caused the event, if any. The
	// dispatcher does not echo an event back to its origin.
	Origin string `json:"-"`
}

// Validate checks the type and payload shape. It does not check the
// scope; Resolve does.
func (e *Event) Validate() error {
	if !e.Type.Known() {
		return fmt.Errorf("%w: unknown type %q", ErrMalformed, e.Type)
	}
	return validatePayload(e.Type, e.Payload)
}

// Resolve returns the deduplicated, sorted set of topics the event
// targets.
func (e *Event) Resolve() ([]topic.Topic, error) {
	var topics []topic.Topic
	add := func(kind topic.Kind, id, field string) error {
		t, err := topic.New(kind, id)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrMalformed, field, err)
		}
		topics = append(topics, t)
		return nil
	}

	switch {
	case e.Type.IsTask():
		if e.Scope.TaskID == "" {
			return nil, fmt.Errorf("%w: %s requires scope.taskId", ErrMalformed, e.Type)
		}
		if err := add(topic.KindTask, e.Scope.TaskID, "scope.taskId"); err != nil {
			return nil, err
		}
		if e.Scope.AssigneeID != "" {
			if err := add(topic.KindUser, e.Scope.AssigneeID, "scope.assigneeId"); err != nil {
				return nil, err
			}
		}
	case e.Type == MessageCreated:
		if e.Scope.ConversationID == "" {
			return nil, fmt.Errorf("%w: %s requires scope.conversationId", ErrMalformed, e.Type)
		}
		if err := add(topic.KindConversation, e.Scope.ConversationID, "scope.conversationId"); err != nil {
			return nil, err
		}
	case e.Type.IsPresence():
		if e.Scope.UserID == "" {
			return nil, fmt.Errorf("%w: %s requires scope.userId", ErrMalformed, e.Type)
		}
		if err := add(topic.KindUser, e.Scope.UserID, "scope.userId"); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrMalformed, e.Type)
	}

	for _, user := range e.Scope.Users {
		if err := add(topic.KindUser, user, "scope.users"); err != nil {
			return nil, err
		}
	}
	for _, explicit := range e.Topics {
		parsed, err := topic.Parse(string(explicit))
		if err != nil {
			return nil, fmt.Errorf("%w: topics: %w", ErrMalformed, err)
		}
		topics = append(topics, parsed)
	}

	slices.Sort(topics)
	return slices.Compact(topics), nil
}
