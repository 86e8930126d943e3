package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Outcome classifies the result of verifying a credential.
type Outcome int

const (
	// NoMatch means the credential was rejected.
	NoMatch Outcome = iota
	// Matched means the credential was accepted.
	Matched
	// MatchedNeedsUpgrade means the credential was accepted against a
	// legacy-format hash; the caller must persist UpgradedHash.
	MatchedNeedsUpgrade
)

// Verification is the tagged result of VerifyCredential. The verifier never
// touches storage; persisting an upgraded hash is the caller's job.
type Verification struct {
	Outcome      Outcome
	UpgradedHash string
}

// legacyDelay is the deliberate minimum duration of a verification against a
// legacy SHA-256 hash. Plain SHA-256 verifies in microseconds, which would
// hand an attacker a much faster brute-force oracle than bcrypt during the
// upgrade window.
const legacyDelay = 250 * time.Millisecond

// dummyHash absorbs verification time when no credential is stored, so an
// empty hash is not distinguishable from a wrong credential by timing alone.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("minemanage-dummy"), bcrypt.DefaultCost)

// HashCredential hashes a plain text credential using bcrypt.
func HashCredential(secret string) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("credential must not be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash credential: %w", err)
	}
	return string(hash), nil
}

// VerifyCredential compares a plain text credential with a stored hash.
// Stored hashes in the legacy hex-encoded SHA-256 format still verify, but
// report MatchedNeedsUpgrade carrying a fresh bcrypt hash.
func VerifyCredential(secret, stored string) (Verification, error) {
	if stored == "" {
		bcrypt.CompareHashAndPassword(dummyHash, []byte(secret))
		return Verification{Outcome: NoMatch}, nil
	}

	if isLegacyHash(stored) {
		return verifyLegacy(secret, stored)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(stored), []byte(secret)); err != nil {
		return Verification{Outcome: NoMatch}, nil
	}
	return Verification{Outcome: Matched}, nil
}

func verifyLegacy(secret, stored string) (Verification, error) {
	started := time.Now()
	defer func() {
		if remaining := legacyDelay - time.Since(started); remaining > 0 {
			time.Sleep(remaining)
		}
	}()

	sum := sha256.Sum256([]byte(secret))
	computed := hex.EncodeToString(sum[:])
	if subtle.ConstantTimeCompare([]byte(computed), []byte(strings.ToLower(stored))) != 1 {
		return Verification{Outcome: NoMatch}, nil
	}

	upgraded, err := HashCredential(secret)
	if err != nil {
		// Accepted but not upgradable; callers keep the legacy hash.
		return Verification{Outcome: Matched}, nil
	}
	return Verification{Outcome: MatchedNeedsUpgrade, UpgradedHash: upgraded}, nil
}

// isLegacyHash reports whether stored looks like a hex-encoded SHA-256
// digest rather than a bcrypt hash.
func isLegacyHash(stored string) bool {
	if len(stored) != sha256.Size*2 {
		return false
	}
	_, err := hex.DecodeString(stored)
	return err == nil
}
