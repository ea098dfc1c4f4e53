package repository_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderaudit/internal/config"
	"orderaudit/internal/repository"
)

func TestOpen_SQLite(t *testing.T) {
	store, err := repository.Open(&config.DBConfig{Driver: "sqlite", SQLitePath: filepath.Join(t.TempDir(), "a.db")})
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.DB.PingContext(context.Background()))
	exists, err := store.Records.Exists(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := repository.Open(&config.DBConfig{Driver: "mysql"})
	assert.Error(t, err)
}
