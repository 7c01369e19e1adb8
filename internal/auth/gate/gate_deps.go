package gate

import (
	"context"
	"time"

	"schemagate/internal/auth/cache"
	"schemagate/internal/auth/models"
)

// CredentialStore looks up identities by credential hash.
// Error Contract: returns store.ErrNotFound when no credential has the hash;
// any other error means the store could not be consulted.
type CredentialStore interface {
	FindByHash(ctx context.Context, keyHash string) (*models.Identity, error)
}

// Cache holds verification results by credential hash.
// Error Contract: Get returns cache.ErrNotFound on a miss.
type Cache interface {
	Get(ctx context.Context, key string) (cache.Entry, error)
	Set(ctx context.Context, key string, entry cache.Entry, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
