package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"

	"schemagate/internal/auth/models"
)

const findByHashQuery = `SELECT id::text, tenant_id::text, scopes, expires_at, is_active
FROM api_tokens
WHERE key_hash = $1`

// PostgresStore reads credentials from the api_tokens table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (p *PostgresStore) FindByHash(ctx context.Context, keyHash string) (*models.Identity, error) {
	var (
		identity  models.Identity
		scopes    []string
		expiresAt sql.NullTime
	)
	// pgtype.Map caches scan plans and is not safe for concurrent use.
	err := p.db.QueryRowContext(ctx, findByHashQuery, keyHash).
		Scan(&identity.TokenID, &identity.OwnerID, pgtype.NewMap().SQLScanner(&scopes), &expiresAt, &identity.Active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find credential by hash: %w", err)
	}

	identity.Scopes = scopes
	if expiresAt.Valid {
		t := expiresAt.Time.UTC()
		identity.ExpiresAt = &t
	}
	return &identity, nil
}
