// Copyright 2026 The TaskFlow Authors
// SPDX-License-Identifier: Apache-2.0

package membership

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"slices"

	"github.com/tidwall/jsonc"

	"github.com/yaswanth65/task3Backend/lib/topic"
)

// StaticFile is the on-disk form read by LoadStatic. Comments and
// trailing commas are allowed.
//
//	{
//	  // task id -> users
//	  "tasks": {"42": ["alice", "bob"]},
//	  "conversations": {"c1": ["alice", "carol"]},
//	}
type StaticFile struct {
	Tasks         map[string][]string `json:"tasks"`
	Conversations map[string][]string `json:"conversations"`
}

// Static is an immutable in-memory membership table.
type Static struct {
	members map[topic.Topic]map[string]struct{}
	// peers maps each user to everyone they share a topic with.
	peers map[string]map[string]struct{}
}

// NewStatic builds a Static from file contents.
func NewStatic(file StaticFile) (*Static, error) {
	s := &Static{
		members: make(map[topic.Topic]map[string]struct{}),
		peers:   make(map[string]map[string]struct{}),
	}
	add := func(kind topic.Kind, entries map[string][]string) error {
		for id, users := range entries {
			t, err := topic.New(kind, id)
			if err != nil {
				return err
			}
			set := make(map[string]struct{}, len(users))
			for _, user := range users {
				if user == "" {
					return fmt.Errorf("%s: empty user id", t)
				}
				set[user] = struct{}{}
			}
			s.members[t] = set
			for user := range set {
				if s.peers[user] == nil {
					s.peers[user] = make(map[string]struct{})
				}
				maps.Copy(s.peers[user], set)
			}
		}
		return nil
	}
	if err := add(topic.KindTask, file.Tasks); err != nil {
		return nil, err
	}
	if err := add(topic.KindConversation, file.Conversations); err != nil {
		return nil, err
	}
	return s, nil
}

// LoadStatic reads a StaticFile from path.
func LoadStatic(path string) (*Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading membership file: %w", err)
	}
	var file StaticFile
	if err := json.Unmarshal(jsonc.ToJSON(data), &file); err != nil {
		return nil, fmt.Errorf("parsing membership file %s: %w", path, err)
	}
	s, err := NewStatic(file)
	if err != nil {
		return nil, fmt.Errorf("membership file %s: %w", path, err)
	}
	return s, nil
}

func (s *Static) Authorize(_ context.Context, userID string, t topic.Topic) error {
	if handled, err := authorizeUserTopic(userID, t); handled {
		return err
	}
	if _, ok := s.members[t][userID]; !ok {
		return fmt.Errorf("%w: %s", ErrNotMember, t)
	}
	return nil
}

// PresenceAudience returns every user who shares a task or
// conversation with userID, sorted.
func (s *Static) PresenceAudience(userID string) []string {
	peers := s.peers[userID]
	audience := make([]string, 0, len(peers))
	for peer := range peers {
		if peer != userID {
			audience = append(audience, peer)
		}
	}
	slices.Sort(audience)
	return audience
}
