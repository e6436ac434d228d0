// Copyright 2026 The TaskFlow Authors
// SPDX-License-Identifier: Apache-2.0

package membership

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/yaswanth65/task3Backend/lib/topic"
)

func TestOpen(t *testing.T) {
	ctx := context.Background()
	var open Open
	for _, allowed := range []string{"task:1", "conversation:c", "user:alice"} {
		if err := open.Authorize(ctx, "alice", topic.MustParse(allowed)); err != nil {
			t.Errorf("Authorize(alice, %s) = %v", allowed, err)
		}
	}
	if err := open.Authorize(ctx, "alice", topic.MustParse("user:bob")); !errors.Is(err, ErrNotMember) {
		t.Errorf("Authorize(alice, user:bob) = %v, want ErrNotMember", err)
	}
}

const staticFixture = `{
  // fixture
  "tasks": {
    "42": ["alice", "bob"],
    "43": ["carol"],
  },
  "conversations": {
    "c1": ["alice", "carol"],
  },
}`

func loadFixture(t *testing.T) *Static {
	t.Helper()
	path := filepath.Join(t.TempDir(), "membership.jsonc")
	if err := os.WriteFile(path, []byte(staticFixture), 0o600); err != nil {
		t.Fatal(err)
	}
	s, err := LoadStatic(path)
	if err != nil {
		t.Fatalf("LoadStatic: %v", err)
	}
	return s
}

func TestStaticAuthorize(t *testing.T) {
	s := loadFixture(t)
	ctx := context.Background()

	tests := []struct {
		user, topic string
		allowed     bool
	}{
		{"alice", "task:42", true},
		{"bob", "task:42", true},
		{"carol", "task:42", false},
		{"carol", "task:43", true},
		{"alice", "task:404", false},
		{"carol", "conversation:c1", true},
		{"bob", "conversation:c1", false},
		{"bob", "user:bob", true},
		{"bob", "user:alice", false},
	}
	for _, test := range tests {
		err := s.Authorize(ctx, test.user, topic.MustParse(test.topic))
		if test.allowed && err != nil {
			t.Errorf("Authorize(%s, %s) = %v, want allowed", test.user, test.topic, err)
		}
		if !test.allowed && !errors.Is(err, ErrNotMember) {
			t.Errorf("Authorize(%s, %s) = %v, want ErrNotMember", test.user, test.topic, err)
		}
	}
}

func TestStaticPresenceAudience(t *testing.T) {
	s := loadFixture(t)
	if got, want := s.PresenceAudience("alice"), []string{"bob", "carol"}; !slices.Equal(got, want) {
		t.Errorf("PresenceAudience(alice) = %v, want %v", got, want)
	}
	if got := s.PresenceAudience("nobody"); len(got) != 0 {
		t.Errorf("PresenceAudience(nobody) = %v, want empty", got)
	}
}

func TestLoadStaticErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := LoadStatic(filepath.Join(dir, "missing.jsonc")); err == nil {
		t.Error("LoadStatic on a missing file succeeded")
	}

	bad := filepath.Join(dir, "bad.jsonc")
	if err := os.WriteFile(bad, []byte(`{"tasks": {"has space": ["alice"]}}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadStatic(bad); !errors.Is(err, topic.ErrInvalid) {
		t.Errorf("LoadStatic with an invalid task id = %v, want topic.ErrInvalid", err)
	}

	if _, err := NewStatic(StaticFile{Tasks: map[string][]string{"1": {""}}}); err == nil {
		t.Error("NewStatic accepted an empty user id")
	}
}

func TestTaskFilter(t *testing.T) {
	oid := primitive.NewObjectID()

	filter := taskFilter(oid.Hex(), "alice")
	if filter[0].Key != "_id" {
		t.Fatalf("first key = %q, want _id", filter[0].Key)
	}
	in, ok := filter[0].Value.(bson.D)
	if !ok || in[0].Key != "$in" {
		t.Fatalf("_id matcher = %#v, want $in over ObjectID and string", filter[0].Value)
	}
	if ids := in[0].Value.(bson.A); ids[0] != oid || ids[1] != oid.Hex() {
		t.Fatalf("_id candidates = %v", ids)
	}

	or := filter[1].Value.(bson.A)
	var fields []string
	for _, clause := range or {
		element := clause.(bson.D)[0]
		fields = append(fields, element.Key)
		if element.Value != "alice" {
			t.Errorf("%s matches %v, want alice", element.Key, element.Value)
		}
	}
	if want := []string{"assignedTo", "createdBy", "members"}; !slices.Equal(fields, want) {
		t.Errorf("$or fields = %v, want %v", fields, want)
	}

	if plain := taskFilter("42", "alice"); plain[0].Value != "42" {
		t.Errorf("non-hex id matcher = %#v, want the plain string", plain[0].Value)
	}
}

func TestConversationFilter(t *testing.T) {
	filter := conversationFilter("c1", "alice")
	if filter[0].Value != "c1" || filter[1].Key != "participants" || filter[1].Value != "alice" {
		t.Errorf("conversationFilter = %#v", filter)
	}
}

func TestConnectMongoRequiresURI(t *testing.T) {
	if _, err := ConnectMongo(context.Background(), MongoConfig{}, nil); err == nil {
		t.Error("ConnectMongo without a URI succeeded")
	}
}
