package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateIsIdempotent(t *testing.T) {
	conn, err := Open(filepath.Join(t.TempDir(), "nested", "test.db"))
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, Migrate(conn))
	require.NoError(t, Migrate(conn))

	var applied int
	require.NoError(t, conn.QueryRow(`SELECT COUNT(1) FROM _migrations`).Scan(&applied))
	assert.Equal(t, 1, applied)

	var tables int
	require.NoError(t, conn.QueryRow(`SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='claims'`).Scan(&tables))
	assert.Equal(t, 1, tables)
}
