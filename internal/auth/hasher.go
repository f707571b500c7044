// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Skill-Up Contributors

package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"

	"github.com/samber/oops"
	"golang.org/x/crypto/scrypt"
)

// scrypt work factors. These are fixed constants rather than caller-supplied
// parameters so every stored artifact in the system is derived identically
// and the cost cannot be weakened by a caller.
const (
	scryptN       = 1 << 14 // CPU/memory cost factor
	scryptR       = 8       // block size
	scryptP       = 8       // parallelism
	scryptSaltLen = 32      // salt length in bytes
	scryptKeyLen  = 32      // derived key length in bytes
)

// ErrEmptyPassword is returned when attempting to hash an empty password.
var ErrEmptyPassword = oops.Code("AUTH_EMPTY_PASSWORD").Errorf("password cannot be empty")

// PasswordHasher provides password hashing and verification.
type PasswordHasher interface {
	// Hash produces a storage-safe artifact from the password.
	Hash(password string) (string, error)

	// Verify checks if the password matches the stored artifact.
	// Returns (true, nil) on match, (false, nil) on mismatch, or an error
	// wrapping ErrCorruptHash when the artifact fails to decode.
	Verify(password, stored string) (bool, error)
}

// ScryptHasher implements PasswordHasher using scrypt.
//
// The stored artifact is base64(salt || key): a 32-byte random salt
// concatenated with the 32-byte derived key. Keeping the salt inside the
// artifact makes it self-describing, and any artifact with a different
// decoded length is rejected as corrupt rather than silently re-split.
type ScryptHasher struct{}

// NewScryptHasher creates a new ScryptHasher.
func NewScryptHasher() *ScryptHasher {
	return &ScryptHasher{}
}

// Hash produces a base64(salt || key) artifact from the password.
func (h *ScryptHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	salt := make([]byte, scryptSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", oops.Code("AUTH_SALT_FAILED").Wrap(err)
	}

	key, err := scrypt.Key([]byte(password), salt, scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return "", oops.Code("AUTH_DERIVE_FAILED").Wrap(err)
	}

	artifact := make([]byte, 0, scryptSaltLen+scryptKeyLen)
	artifact = append(artifact, salt...)
	artifact = append(artifact, key...)

	return base64.StdEncoding.EncodeToString(artifact), nil
}

// Verify checks if the password matches the stored artifact.
func (h *ScryptHasher) Verify(password, stored string) (bool, error) {
	data, err := base64.StdEncoding.DecodeString(stored)
	if err != nil {
		return false, oops.Code("AUTH_CORRUPT_HASH").
			With("operation", "decode stored hash").
			Wrap(ErrCorruptHash)
	}
	if len(data) != scryptSaltLen+scryptKeyLen {
		return false, oops.Code("AUTH_CORRUPT_HASH").
			With("decoded_length", len(data)).
			Wrap(ErrCorruptHash)
	}

	salt, storedKey := data[:scryptSaltLen], data[scryptSaltLen:]

	key, err := scrypt.Key([]byte(password), salt, scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return false, oops.Code("AUTH_DERIVE_FAILED").Wrap(err)
	}

	// Constant-time comparison; never a short-circuiting byte compare.
	return subtle.ConstantTimeCompare(key, storedKey) == 1, nil
}

// Compile-time interface check.
var _ PasswordHasher = (*ScryptHasher)(nil)
