// Copyright 2026 The TaskFlow Authors
// SPDX-License-Identifier: Apache-2.0

// Package membership decides which topics a user may subscribe to.
//
// Three authorizers are provided, selected by the gateway's
// membership.mode setting:
//
//   - [Open] admits every task and conversation topic. Suitable for
//     development and for deployments where the CRUD API already
//     filters what clients learn about.
//   - [Static] reads task and conversation member lists from a JSONC
//     file. Used by tests and small fixed deployments.
//   - [Mongo] looks membership up in the TaskFlow database: a user may
//     follow a task they created, are assigned to, or are listed as a
//     member of, and a conversation they participate in.
//
// All three restrict user:<id> topics to the user themselves.
package membership

import (
	"errors"
	"fmt"

	"github.com/yaswanth65/task3Backend/lib/topic"
)

// ErrNotMember is returned when the user has no access to the topic.
var ErrNotMember = errors.New("not a member")

// authorizeUserTopic handles the rule shared by every authorizer.
// handled is false for task and conversation topics.
func authorizeUserTopic(userID string, t topic.Topic) (handled bool, err error) {
	if t.Kind() != topic.KindUser {
		return false, nil
	}
	if t.ID() != userID {
		return true, fmt.Errorf("%w: %s belongs to another user", ErrNotMember, t)
	}
	return true, nil
}
