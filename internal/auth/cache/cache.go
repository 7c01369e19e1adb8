// Package cache holds recent credential verification results.
//
// A positive entry carries the verified identity; a negative entry records
// that the store rejected the key. Entries older than their TTL are treated
// as absent by every implementation.
package cache

import (
	"context"
	"fmt"
	"time"

	"schemagate/internal/auth/models"
	"schemagate/internal/sentinel"
)

// ErrNotFound is returned on a cache miss, including expired entries.
var ErrNotFound = fmt.Errorf("cache entry %w", sentinel.ErrNotFound)

// Entry is one cached verification result.
type Entry struct {
	Identity  *models.Identity `json:"identity,omitempty"`
	Negative  bool             `json:"negative,omitempty"`
	FetchedAt time.Time        `json:"fetched_at"`
}

// Positive builds an entry for a verified identity.
func Positive(identity *models.Identity, now time.Time) Entry {
	return Entry{Identity: identity.Clone(), FetchedAt: now}
}

// Negative builds an entry recording a rejected key.
func Negative(now time.Time) Entry {
	return Entry{Negative: true, FetchedAt: now}
}

// Cache stores entries keyed by credential hash. Implementations must be
// safe for concurrent use; Set replaces any previous entry for the key.
type Cache interface {
	// Get returns the live entry for key or ErrNotFound.
	Get(ctx context.Context, key string) (Entry, error)
	// Set inserts or refreshes the entry for key, expiring it after ttl.
	Set(ctx context.Context, key string, entry Entry, ttl time.Duration) error
	// Delete removes key; deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
