package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schemagate/internal/auth/models"
)

func TestGenerateKey(t *testing.T) {
	key, err := generateKey()
	require.NoError(t, err)

	cred, err := models.ParseCredential(key)
	require.NoError(t, err)
	assert.Len(t, cred.Hash(), 64)

	other, err := generateKey()
	require.NoError(t, err)
	assert.NotEqual(t, key, other)
}

func TestNullTime(t *testing.T) {
	assert.False(t, nullTime(nil).Valid)
}
