// Copyright 2026 The TaskFlow Authors
// SPDX-License-Identifier: Apache-2.0

package sessiontoken

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yaswanth65/task3Backend/lib/codec"
)

const signatureSize = ed25519.SignatureSize

// DefaultAudience is the audience the gateway accepts unless
// configured otherwise.
const DefaultAudience = "taskflow"

// Token is the signed payload.
type Token struct {
	// Subject is the user id the token was issued to. It becomes the
	// session key in the gateway.
	Subject string `cbor:"1,keyasint"`

	// ID uniquely identifies this token for revocation.
	ID string `cbor:"2,keyasint"`

	Audience string `cbor:"3,keyasint"`

	// IssuedAt and ExpiresAt are Unix seconds.
	IssuedAt  int64 `cbor:"4,keyasint"`
	ExpiresAt int64 `cbor:"5,keyasint"`

	Role string `cbor:"6,keyasint,omitempty"`
}

// Expires returns ExpiresAt as a time.
func (t *Token) Expires() time.Time { return time.Unix(t.ExpiresAt, 0) }

var (
	ErrTokenTooShort    = errors.New("sessiontoken: token too short for signature")
	ErrInvalidSignature = errors.New("sessiontoken: invalid Ed25519 signature")
	ErrTokenExpired     = errors.New("sessiontoken: token has expired")
	ErrAudienceMismatch = errors.New("sessiontoken: audience does not match")
	ErrTokenRevoked     = errors.New("sessiontoken: token has been revoked")
	ErrMalformed        = errors.New("sessiontoken: malformed token")
)

// New returns an unsigned token for subject with a fresh random id.
func New(subject, audience string, issuedAt time.Time, lifetime time.Duration) *Token {
	return &Token{
		Subject:   subject,
		ID:        uuid.NewString(),
		Audience:  audience,
		IssuedAt:  issuedAt.Unix(),
		ExpiresAt: issuedAt.Add(lifetime).Unix(),
	}
}

// Mint signs token and returns payload ‖ signature.
func Mint(privateKey ed25519.PrivateKey, token *Token) ([]byte, error) {
	if token.Subject == "" {
		return nil, fmt.Errorf("%w: empty subject", ErrMalformed)
	}
	payload, err := codec.Marshal(token)
	if err != nil {
		return nil, fmt.Errorf("sessiontoken: encoding payload: %w", err)
	}

	signed := make([]byte, len(payload), len(payload)+signatureSize)
	copy(signed, payload)
	return append(signed, ed25519.Sign(privateKey, payload)...), nil
}

// Verify checks the signature and expiry against the current time.
func Verify(publicKey ed25519.PublicKey, tokenBytes []byte) (*Token, error) {
	return VerifyAt(publicKey, tokenBytes, time.Now())
}

// VerifyAt checks the signature, decodes the payload, and rejects the
// token if now is at or past its expiry. The audience is not checked;
// see VerifyAudienceAt.
func VerifyAt(publicKey ed25519.PublicKey, tokenBytes []byte, now time.Time) (*Token, error) {
	if len(tokenBytes) <= signatureSize {
		return nil, ErrTokenTooShort
	}

	split := len(tokenBytes) - signatureSize
	payload, signature := tokenBytes[:split], tokenBytes[split:]
	if !ed25519.Verify(publicKey, payload, signature) {
		return nil, ErrInvalidSignature
	}

	var token Token
	if err := codec.Unmarshal(payload, &token); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if token.Subject == "" {
		return nil, fmt.Errorf("%w: empty subject", ErrMalformed)
	}
	if now.Unix() >= token.ExpiresAt {
		return nil, ErrTokenExpired
	}
	return &token, nil
}

// VerifyAudienceAt is VerifyAt plus an audience check.
func VerifyAudienceAt(publicKey ed25519.PublicKey, tokenBytes []byte, audience string, now time.Time) (*Token, error) {
	token, err := VerifyAt(publicKey, tokenBytes, now)
	if err != nil {
		return nil, err
	}
	if token.Audience != audience {
		return nil, fmt.Errorf("%w: got %q, want %q", ErrAudienceMismatch, token.Audience, audience)
	}
	return token, nil
}

// Encode renders raw token bytes as an unpadded base64url string.
func Encode(tokenBytes []byte) string {
	return base64.RawURLEncoding.EncodeToString(tokenBytes)
}

// Decode reverses Encode. Trailing padding is tolerated for clients
// that use the padded alphabet.
func Decode(credential string) ([]byte, error) {
	for len(credential) > 0 && credential[len(credential)-1] == '=' {
		credential = credential[:len(credential)-1]
	}
	tokenBytes, err := base64.RawURLEncoding.DecodeString(credential)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return tokenBytes, nil
}
