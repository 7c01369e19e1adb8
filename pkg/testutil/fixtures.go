package testutil

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"schemagate/internal/auth/models"
)

// TestIDs provides fixed identifiers for deterministic test data.
var TestIDs = struct {
	TenantID1 string
	TenantID2 string
	TokenID1  string
	TokenID2  string
}{
	TenantID1: "aaaa0000-0000-0000-0000-000000000001",
	TenantID2: "aaaa0000-0000-0000-0000-000000000002",
	TokenID1:  "cccc0000-0000-0000-0000-000000000001",
	TokenID2:  "cccc0000-0000-0000-0000-000000000002",
}

// CredentialKey returns a well-formed credential derived from seed.
func CredentialKey(seed string) string {
	body := strings.ReplaceAll(seed, " ", "-")
	if len(body) < 16 {
		body += strings.Repeat("0", 16-len(body))
	}
	return models.CredentialPrefix + body
}

// IdentityBuilder provides a fluent interface for building test identities.
type IdentityBuilder struct {
	identity *models.Identity
}

// NewIdentityBuilder starts from an active, non-expiring identity in tenant 1.
func NewIdentityBuilder() *IdentityBuilder {
	return &IdentityBuilder{
		identity: &models.Identity{
			TokenID: uuid.NewString(),
			OwnerID: TestIDs.TenantID1,
			Scopes:  []string{"extract", "chat"},
			Active:  true,
		},
	}
}

func (b *IdentityBuilder) WithTokenID(id string) *IdentityBuilder {
	b.identity.TokenID = id
	return b
}

func (b *IdentityBuilder) WithOwner(tenantID string) *IdentityBuilder {
	b.identity.OwnerID = tenantID
	return b
}

func (b *IdentityBuilder) WithScopes(scopes ...string) *IdentityBuilder {
	b.identity.Scopes = scopes
	return b
}

func (b *IdentityBuilder) Inactive() *IdentityBuilder {
	b.identity.Active = false
	return b
}

func (b *IdentityBuilder) ExpiresAt(t time.Time) *IdentityBuilder {
	b.identity.ExpiresAt = &t
	return b
}

func (b *IdentityBuilder) Build() *models.Identity {
	return b.identity.Clone()
}

// SchemaJSON renders name/type pairs as an ordered JSON schema declaration.
func SchemaJSON(pairs ...string) string {
	if len(pairs)%2 != 0 {
		panic("SchemaJSON needs name/type pairs")
	}
	parts := make([]string, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		parts = append(parts, fmt.Sprintf("%q:%q", pairs[i], pairs[i+1]))
	}
	return "{" + strings.Join(parts, ",") + "}"
}
