package database

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithoutURL(t *testing.T) {
	pool, err := New(context.Background(), DefaultConfig(""))
	require.NoError(t, err)
	assert.Nil(t, pool)
}

func TestNilPool(t *testing.T) {
	var p *Pool
	assert.ErrorIs(t, p.Health(context.Background()), ErrNotConfigured)
	assert.NoError(t, p.Close())
	assert.Zero(t, p.Stats().OpenConnections)
}

func TestHealth(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	pool := Wrap(db)

	mock.ExpectPing()
	assert.NoError(t, pool.Health(context.Background()))

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	assert.Error(t, pool.Health(context.Background()))

	mock.ExpectClose()
	require.NoError(t, pool.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}
