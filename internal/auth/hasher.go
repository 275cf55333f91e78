// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keyrack Contributors

package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/samber/oops"
	"golang.org/x/crypto/argon2"
)

// ErrEmptyPassword is returned when attempting to hash an empty password.
var ErrEmptyPassword = oops.Code("AUTH_EMPTY_PASSWORD").Errorf("password cannot be empty")

// PasswordHasher provides password hashing and verification.
type PasswordHasher interface {
	// Hash produces a storable hash of the password.
	Hash(password string) (string, error)

	// Verify checks if the password matches the hash.
	// Returns (true, nil) on match, (false, nil) on mismatch, or error on invalid hash.
	Verify(password, hash string) (bool, error)

	// NeedsUpgrade returns true if the hash should be recomputed with the
	// hasher's current scheme on the next successful verification.
	NeedsUpgrade(hash string) bool
}

// DigestHasher implements PasswordHasher as an unsalted SHA-256 digest
// rendered as 64 lowercase hex characters. The digest is deterministic:
// identical plaintexts always produce identical output, and verification
// re-hashes the candidate and compares digests in constant time. This is the
// default scheme for the Service.
type DigestHasher struct{}

// NewDigestHasher creates a new DigestHasher.
func NewDigestHasher() *DigestHasher {
	return &DigestHasher{}
}

// Hash produces the hex-encoded SHA-256 digest of the password.
func (h *DigestHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:]), nil
}

// Verify re-hashes the candidate and compares digests in constant time.
// Mismatched digest lengths compare as false rather than erroring, so an
// empty or malformed candidate is simply a failed match.
func (h *DigestHasher) Verify(password, digest string) (bool, error) {
	sum := sha256.Sum256([]byte(password))
	computed := hex.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(computed), []byte(digest)) == 1, nil
}

// NeedsUpgrade always returns false: the digest scheme is the baseline.
func (h *DigestHasher) NeedsUpgrade(string) bool {
	return false
}

// OWASP-recommended argon2id parameters.
const (
	argon2Time    = 1         // iterations
	argon2Memory  = 64 * 1024 // 64 MB
	argon2Threads = 4         // parallelism
	argon2SaltLen = 16        // salt length in bytes
	argon2KeyLen  = 32        // output length in bytes
)

// Argon2idHasher implements PasswordHasher using salted argon2id in PHC
// string format. It is an opt-in replacement for DigestHasher: embedders that
// swap it in can migrate stored digests on login via NeedsUpgrade.
type Argon2idHasher struct{}

// NewArgon2idHasher creates a new Argon2idHasher.
func NewArgon2idHasher() *Argon2idHasher {
	return &Argon2idHasher{}
}

// Hash produces an argon2id hash of the password.
func (h *Argon2idHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	salt := make([]byte, argon2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", oops.Code("AUTH_SALT_FAILED").Wrap(err)
	}

	hash := argon2.IDKey([]byte(password), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)

	// PHC string format: $argon2id$v=19$m=65536,t=1,p=4$<salt>$<hash>
	encoded := fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		argon2Memory,
		argon2Time,
		argon2Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	)

	return encoded, nil
}

// Verify checks if the password matches the PHC-encoded hash.
func (h *Argon2idHasher) Verify(password, encodedHash string) (bool, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 {
		return false, oops.Code("AUTH_INVALID_HASH").Errorf("invalid hash format")
	}

	if parts[1] != "argon2id" {
		return false, oops.Code("AUTH_INVALID_HASH").Errorf("unsupported hash algorithm: %s", parts[1])
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return false, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}

	var memory, time, threads uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return false, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}

	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}

	// Threads must fit in uint8 to prevent silent truncation.
	if threads > 255 {
		return false, oops.Code("AUTH_INVALID_HASH").Errorf("threads value %d exceeds uint8 max", threads)
	}

	keyLen := len(expected)
	if keyLen <= 0 || keyLen > 1<<30 {
		return false, oops.Code("AUTH_INVALID_HASH").Errorf("invalid hash key length: %d", keyLen)
	}

	computed := argon2.IDKey([]byte(password), salt, time, memory, uint8(threads), uint32(keyLen))

	return subtle.ConstantTimeCompare(computed, expected) == 1, nil
}

// NeedsUpgrade returns true for any hash not already in argon2id form,
// which covers digests produced by DigestHasher.
func (h *Argon2idHasher) NeedsUpgrade(hash string) bool {
	return !strings.HasPrefix(hash, "$argon2id$")
}

// MigratingHasher verifies against a current scheme, falling back to a
// legacy one for hashes the current scheme cannot parse. New hashes always
// use the current scheme, so combined with NeedsUpgrade a store migrates to
// the current scheme one successful login at a time.
type MigratingHasher struct {
	Current PasswordHasher
	Legacy  PasswordHasher
}

// NewMigratingHasher creates a MigratingHasher.
func NewMigratingHasher(current, legacy PasswordHasher) *MigratingHasher {
	return &MigratingHasher{Current: current, Legacy: legacy}
}

// Hash produces a hash in the current scheme.
func (h *MigratingHasher) Hash(password string) (string, error) {
	return h.Current.Hash(password)
}

// Verify checks the password against the current scheme first and falls back
// to the legacy scheme when the stored hash is not in current form.
func (h *MigratingHasher) Verify(password, hash string) (bool, error) {
	if !h.Current.NeedsUpgrade(hash) {
		return h.Current.Verify(password, hash)
	}
	return h.Legacy.Verify(password, hash)
}

// NeedsUpgrade reports whether the stored hash is still in the legacy scheme.
func (h *MigratingHasher) NeedsUpgrade(hash string) bool {
	return h.Current.NeedsUpgrade(hash)
}
