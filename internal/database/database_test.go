package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequiresPath(t *testing.T) {
	_, err := New(" ")
	assert.Error(t, err)
}

func TestMigrateCreatesSchema(t *testing.T) {
	db, err := New(filepath.Join(t.TempDir(), "carlist.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, Migrate(context.Background(), db))
	// A second run is a no-op.
	require.NoError(t, Migrate(context.Background(), db))

	for _, table := range []string{"users", "listings", "events"} {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&name)
		require.NoError(t, err, table)
		assert.Equal(t, table, name)
	}
}

func TestMigrateEnforcesUniqueEmail(t *testing.T) {
	db, err := New(MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, Migrate(context.Background(), db))

	const insert = "INSERT INTO users (id, username, email, password_hash, created_at) VALUES (?, ?, ?, ?, 0)"
	_, err = db.Exec(insert, "1", "a", "a@b.com", "h")
	require.NoError(t, err)
	_, err = db.Exec(insert, "2", "b", "a@b.com", "h")
	assert.Error(t, err)
}
