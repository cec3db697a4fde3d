package otp

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"github.com/google/uuid"
)

// Key namespaces. Hybrid and email-only challenges are hashed with
// independently derived keys; changing a namespace invalidates every
// outstanding challenge of that kind.
const (
	NamespaceHybrid = "otp-hybrid-v1"
	NamespaceEmail  = "otp-email-v1"
)

// ErrEmptySecret is returned when no hashing secret is configured
var ErrEmptySecret = errors.New("otp: hashing secret is empty")

// DeriveKey derives a per-namespace key from the application secret
func DeriveKey(secret, namespace string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(namespace))
	return mac.Sum(nil)
}

// Hasher computes keyed digests of codes
type Hasher struct {
	key []byte
}

// NewHasher creates a hasher keyed by DeriveKey(secret, namespace)
func NewHasher(secret, namespace string) (*Hasher, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	return &Hasher{key: DeriveKey(secret, namespace)}, nil
}

// Hash returns the hex HMAC-SHA256 of "<challengeID>:<code>"
func (h *Hasher) Hash(challengeID uuid.UUID, code string) string {
	mac := hmac.New(sha256.New, h.key)
	mac.Write([]byte(challengeID.String() + ":" + code))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify recomputes the digest and compares in constant time
func (h *Hasher) Verify(challengeID uuid.UUID, code, digest string) bool {
	expected := h.Hash(challengeID, code)
	return hmac.Equal([]byte(expected), []byte(digest))
}
