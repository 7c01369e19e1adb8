package models

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

// CredentialPrefix marks every credential issued for the gateway.
const CredentialPrefix = "waro_"

const (
	minSecretLen = 16
	maxSecretLen = 256
)

// ErrMalformedCredential is returned when a credential is not shaped like one
// we issue. It is detected without touching the store.
var ErrMalformedCredential = errors.New("malformed credential")

// Credential is a shared-secret API key. Its String form is redacted; use
// Hash for lookups and never log the raw value.
type Credential struct {
	raw string
}

// ParseCredential checks the prefix, length and alphabet of raw.
func ParseCredential(raw string) (Credential, error) {
	secret, ok := strings.CutPrefix(raw, CredentialPrefix)
	if !ok {
		return Credential{}, ErrMalformedCredential
	}
	if len(secret) < minSecretLen || len(secret) > maxSecretLen {
		return Credential{}, ErrMalformedCredential
	}
	for i := 0; i < len(secret); i++ {
		if !isSecretByte(secret[i]) {
			return Credential{}, ErrMalformedCredential
		}
	}
	return Credential{raw: raw}, nil
}

func isSecretByte(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == '_' || c == '-':
		return true
	}
	return false
}

// Hash returns the lowercase hex SHA-256 of the full credential, which is the
// key_hash column in the credential store.
func (c Credential) Hash() string {
	return HashKey(c.raw)
}

// HashKey hashes a raw key the way the credential store expects.
func HashKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// IsZero reports whether c was never parsed.
func (c Credential) IsZero() bool {
	return c.raw == ""
}

// String redacts everything but the prefix.
func (c Credential) String() string {
	if c.raw == "" {
		return ""
	}
	return CredentialPrefix + "***"
}
