// Package store reads credential records from the credential store.
//
// The gateway never writes credentials: issuing and revoking keys belongs to
// the system that owns the api_tokens table.
package store

import (
	"context"
	"fmt"

	"schemagate/internal/auth/models"
	"schemagate/internal/sentinel"
)

// ErrNotFound is returned when no credential has the given key hash.
var ErrNotFound = fmt.Errorf("credential %w", sentinel.ErrNotFound)

// CredentialStore looks up identities by credential hash. Any error other than
// ErrNotFound means the store could not be consulted.
type CredentialStore interface {
	FindByHash(ctx context.Context, keyHash string) (*models.Identity, error)
}
