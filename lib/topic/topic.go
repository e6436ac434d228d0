// Copyright 2026 The TaskFlow Authors
// SPDX-License-Identifier: Apache-2.0

// Package topic names the audiences events are addressed to: a task's
// board (task:<id>), a conversation (conversation:<id>), or a user's
// personal channel (user:<id>).
package topic

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// MaxIDLength bounds the id part of a topic. TaskFlow ids are Mongo
// ObjectIDs (24 hex characters); the bound leaves room for other id
// schemes without letting clients grow the index with huge keys.
const MaxIDLength = 128

// ErrInvalid is returned by Parse and the constructors for strings that
// are not well-formed topics.
var ErrInvalid = errors.New("invalid topic")

// Kind is the audience category of a topic.
type Kind string

const (
	KindTask         Kind = "task"
	KindConversation Kind = "conversation"
	KindUser         Kind = "user"
)

func (k Kind) valid() bool {
	switch k {
	case KindTask, KindConversation, KindUser:
		return true
	}
	return false
}

// Topic is a validated "<kind>:<id>" string. The zero value is not a
// valid topic.
type Topic string

// Task returns the topic for a task's board.
func Task(taskID string) (Topic, error) { return New(KindTask, taskID) }

// Conversation returns the topic for a conversation.
func Conversation(conversationID string) (Topic, error) {
	return New(KindConversation, conversationID)
}

// User returns a user's personal channel.
func User(userID string) (Topic, error) { return New(KindUser, userID) }

// New builds a topic from its parts.
func New(kind Kind, id string) (Topic, error) {
	if !kind.valid() {
		return "", fmt.Errorf("%w: unknown kind %q", ErrInvalid, kind)
	}
	if err := validateID(id); err != nil {
		return "", err
	}
	return Topic(string(kind) + ":" + id), nil
}

// Parse validates s as a topic.
func Parse(s string) (Topic, error) {
	kind, id, found := strings.Cut(s, ":")
	if !found {
		return "", fmt.Errorf("%w: %q has no kind prefix", ErrInvalid, s)
	}
	return New(Kind(kind), id)
}

// MustParse is Parse for constants and tests. It panics on error.
func MustParse(s string) Topic {
	t, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return t
}

// Kind returns the kind prefix.
func (t Topic) Kind() Kind {
	kind, _, _ := strings.Cut(string(t), ":")
	return Kind(kind)
}

// ID returns the part after the kind prefix.
func (t Topic) ID() string {
	_, id, _ := strings.Cut(string(t), ":")
	return id
}

func (t Topic) String() string { return string(t) }

// UnmarshalText validates topics arriving in client frames.
func (t *Topic) UnmarshalText(data []byte) error {
	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func validateID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty id", ErrInvalid)
	}
	if len(id) > MaxIDLength {
		return fmt.Errorf("%w: id is %d bytes, limit is %d", ErrInvalid, len(id), MaxIDLength)
	}
	for _, r := range id {
		if unicode.IsSpace(r) || unicode.IsControl(r) || r == unicode.ReplacementChar {
			return fmt.Errorf("%w: id %q contains %q", ErrInvalid, id, r)
		}
	}
	return nil
}
