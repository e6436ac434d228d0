// Copyright 2026 The TaskFlow Authors
// SPDX-License-Identifier: Apache-2.0

// Package authgate validates the credential a client presents when it
// opens a realtime connection.
//
// The gate is deliberately stateless apart from the revocation set:
// every connect re-verifies the credential, and nothing about a
// successful verification is remembered for the next connection.
package authgate

import (
	"context"
	"crypto/ed25519"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/yaswanth65/task3Backend/lib/clock"
	"github.com/yaswanth65/task3Backend/lib/sessiontoken"
)

// Rejection reasons. Every error Authenticate returns wraps exactly one
// of these.
var (
	ErrCredentialMissing = errors.New("credential missing")
	ErrCredentialInvalid = errors.New("credential invalid")
	ErrCredentialExpired = errors.New("credential expired")
)

// Identity is the result of a successful authentication.
type Identity struct {
	UserID    string
	TokenID   string
	Role      string
	ExpiresAt time.Time
}

// Config configures a Gate.
type Config struct {
	PublicKey   ed25519.PublicKey
	Audience    string
	Revocations *sessiontoken.Revocations
	Clock       clock.Clock
	Logger      *slog.Logger
}

// Gate verifies session tokens.
type Gate struct {
	publicKey   ed25519.PublicKey
	audience    string
	revocations *sessiontoken.Revocations
	clock       clock.Clock
	logger      *slog.Logger
}

// New returns a Gate. An empty audience defaults to
// sessiontoken.DefaultAudience and a nil revocation set disables
// revocation checks. A nil Clock or Logger means the real clock and
// slog.Default().
func New(config Config) *Gate {
	audience := config.Audience
	if audience == "" {
		audience = sessiontoken.DefaultAudience
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Gate{
		publicKey:   config.PublicKey,
		audience:    audience,
		revocations: config.Revocations,
		clock:       config.Clock,
		logger:      config.Logger,
	}
}

// Authenticate verifies credential and returns the identity it names.
// The credential is the base64url token, optionally with a "Bearer "
// prefix.
func (g *Gate) Authenticate(ctx context.Context, credential string) (Identity, error) {
	credential = BearerCredential(credential)
	if credential == "" {
		return Identity{}, ErrCredentialMissing
	}

	identity, err := g.verify(credential)
	if err != nil {
		g.logger.DebugContext(ctx, "credential rejected",
			"fingerprint", Fingerprint(credential),
			"error", err,
		)
		return Identity{}, err
	}
	return identity, nil
}

func (g *Gate) verify(credential string) (Identity, error) {
	tokenBytes, err := sessiontoken.Decode(credential)
	if err != nil {
		return Identity{}, errors.Join(ErrCredentialInvalid, err)
	}

	token, err := sessiontoken.VerifyAudienceAt(g.publicKey, tokenBytes, g.audience, g.clock.Now())
	switch {
	case errors.Is(err, sessiontoken.ErrTokenExpired):
		return Identity{}, errors.Join(ErrCredentialExpired, err)
	case err != nil:
		return Identity{}, errors.Join(ErrCredentialInvalid, err)
	}

	if g.revocations != nil && g.revocations.IsRevoked(token.ID) {
		return Identity{}, errors.Join(ErrCredentialInvalid, sessiontoken.ErrTokenRevoked)
	}

	return Identity{
		UserID:    token.Subject,
		TokenID:   token.ID,
		Role:      token.Role,
		ExpiresAt: token.Expires(),
	}, nil
}

// Revoke marks a token id as revoked for future connects. Live
// connections authenticated with it are the gateway's concern.
func (g *Gate) Revoke(tokenID string) {
	if g.revocations != nil {
		g.revocations.Revoke(tokenID)
	}
}

// BearerCredential trims whitespace and an optional case-insensitive
// "Bearer " scheme prefix.
func BearerCredential(value string) string {
	value = strings.TrimSpace(value)
	if strings.EqualFold(value, "bearer") {
		return ""
	}
	if len(value) > 7 && strings.EqualFold(value[:7], "bearer ") {
		value = strings.TrimSpace(value[7:])
	}
	return value
}
