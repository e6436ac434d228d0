// Copyright 2026 The TaskFlow Authors
// SPDX-License-Identifier: Apache-2.0

package sessiontoken

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Revocations is the set of token ids revoked before their natural
// expiry (logout, password change). Entries are kept for the maximum
// token lifetime; after that the token would be rejected as expired
// anyway. The set is bounded: under a revocation storm the oldest
// entries are evicted first.
//
// Safe for concurrent use.
type Revocations struct {
	entries *expirable.LRU[string, struct{}]
}

// NewRevocations returns a set holding at most capacity ids, each for
// ttl.
func NewRevocations(capacity int, ttl time.Duration) *Revocations {
	return &Revocations{entries: expirable.NewLRU[string, struct{}](capacity, nil, ttl)}
}

// Revoke records id as revoked. Empty ids are ignored.
func (r *Revocations) Revoke(id string) {
	if id == "" {
		return
	}
	r.entries.Add(id, struct{}{})
}

// IsRevoked reports whether id has been revoked.
func (r *Revocations) IsRevoked(id string) bool {
	return r.entries.Contains(id)
}

// Len returns the number of live entries.
func (r *Revocations) Len() int { return r.entries.Len() }
