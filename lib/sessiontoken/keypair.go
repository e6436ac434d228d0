// Copyright 2026 The TaskFlow Authors
// SPDX-License-Identifier: Apache-2.0

package sessiontoken

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"
)

// Key file names inside a key directory.
const (
	PrivateKeyFile = "session-signing-key"
	PublicKeyFile  = "session-signing-key.pub"
)

// GenerateKeypair creates a new signing keypair.
func GenerateKeypair() (ed25519.PublicKey, ed25519.PrivateKey, error) {
	public, private, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("generating Ed25519 keypair: %w", err)
	}
	return public, private, nil
}

// SaveKeypair writes the keypair into directory, creating it if
// needed. The private key is written 0600, the public key 0644.
func SaveKeypair(directory string, public ed25519.PublicKey, private ed25519.PrivateKey) error {
	if err := os.MkdirAll(directory, 0o700); err != nil {
		return fmt.Errorf("creating key directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(directory, PrivateKeyFile), private, 0o600); err != nil {
		return fmt.Errorf("writing private key: %w", err)
	}
	if err := os.WriteFile(filepath.Join(directory, PublicKeyFile), public, 0o644); err != nil {
		return fmt.Errorf("writing public key: %w", err)
	}
	return nil
}

// LoadPrivateKey reads the private key from directory.
func LoadPrivateKey(directory string) (ed25519.PrivateKey, error) {
	data, err := os.ReadFile(filepath.Join(directory, PrivateKeyFile))
	if err != nil {
		return nil, fmt.Errorf("reading private key: %w", err)
	}
	if len(data) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("private key has %d bytes, want %d", len(data), ed25519.PrivateKeySize)
	}
	return ed25519.PrivateKey(data), nil
}

// LoadPublicKey reads a public key file. The gateway is deployed with
// only this file.
func LoadPublicKey(path string) (ed25519.PublicKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading public key: %w", err)
	}
	if len(data) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("public key %s has %d bytes, want %d", path, len(data), ed25519.PublicKeySize)
	}
	return ed25519.PublicKey(data), nil
}
