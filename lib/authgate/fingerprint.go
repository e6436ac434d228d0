// Copyright 2026 The TaskFlow Authors
// SPDX-License-Identifier: Apache-2.0

package authgate

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// fingerprintKey domain-separates credential fingerprints from any
// other BLAKE3 use.
var fingerprintKey = [32]byte{
	't', 'a', 's', 'k', 'f', 'l', 'o', 'w', '/', 'c', 'r', 'e', 'd', 'e', 'n', 't',
	'i', 'a', 'l', '-', 'f', 'i', 'n', 'g', 'e', 'r', 'p', 'r', 'i', 'n', 't', '1',
}

// Fingerprint returns a short stable digest of credential for log
// correlation. Credentials themselves are never logged.
func Fingerprint(credential string) string {
	hasher, err := blake3.NewKeyed(fingerprintKey[:])
	if err != nil {
		// Only fails for a key that is not 32 bytes.
		panic("authgate: " + err.Error())
	}
	_, _ = hasher.Write([]byte(credential))
	return hex.EncodeToString(hasher.Sum(nil)[:8])
}
