package models

import (
	"slices"
	"time"
)

// Identity is the verified owner of a credential, as recorded in the store.
type Identity struct {
	TokenID   string     `json:"token_id"`
	OwnerID   string     `json:"tenant_id"`
	Scopes    []string   `json:"scopes,omitempty"`
	Active    bool       `json:"active"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Usable reports whether the identity may authenticate at now.
func (i *Identity) Usable(now time.Time) bool {
	if i == nil || !i.Active {
		return false
	}
	return i.ExpiresAt == nil || i.ExpiresAt.After(now)
}

// HasScope reports whether scope was granted to the credential.
func (i *Identity) HasScope(scope string) bool {
	return i != nil && slices.Contains(i.Scopes, scope)
}

// Clone returns a deep copy so cached identities are never shared mutably.
func (i *Identity) Clone() *Identity {
	if i == nil {
		return nil
	}
	out := *i
	out.Scopes = slices.Clone(i.Scopes)
	if i.ExpiresAt != nil {
		t := *i.ExpiresAt
		out.ExpiresAt = &t
	}
	return &out
}
