package testutil

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"schemagate/internal/auth/models"
)

func TestCredentialKeyIsWellFormed(t *testing.T) {
	for _, seed := range []string{"a", "tenant one", "0123456789abcdefXYZ"} {
		_, err := models.ParseCredential(CredentialKey(seed))
		assert.NoError(t, err, seed)
	}
}

func TestIdentityBuilder(t *testing.T) {
	exp := time.Now().Add(-time.Hour)
	id := NewIdentityBuilder().WithOwner(TestIDs.TenantID2).Inactive().ExpiresAt(exp).Build()

	assert.Equal(t, TestIDs.TenantID2, id.OwnerID)
	assert.False(t, id.Active)
	assert.False(t, id.Usable(time.Now()))
}

func TestSchemaJSON(t *testing.T) {
	assert.Equal(t, `{"name":"string","age":"number"}`, SchemaJSON("name", "string", "age", "number"))
}

func TestRunConcurrent(t *testing.T) {
	res := RunConcurrent(10, func(idx int) error {
		if idx%2 == 0 {
			return errors.New("even")
		}
		return nil
	})
	assert.Equal(t, int32(5), res.Successes)
	assert.Equal(t, int32(5), res.Errors)
	assert.Equal(t, int32(10), res.Total())
}
