package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenForTestingAppliesMigrations(t *testing.T) {
	d, err := OpenForTesting()
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, d.Close()) })

	for _, table := range []string{"records", "files", "schema_migrations"} {
		var got string
		err := d.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&got)
		require.NoError(t, err, table)
		assert.Equal(t, table, got)
	}

	v, dirty, err := Version(d)
	require.NoError(t, err)
	assert.Equal(t, uint(2), v)
	assert.False(t, dirty)
}

func TestOpenForTestingIsolated(t *testing.T) {
	a, err := OpenForTesting()
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	b, err := OpenForTesting()
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })

	_, err = a.Exec(`INSERT INTO records (id, kind, data, created_date, updated_date) VALUES ('x', 'Owner', '{}', '', '')`)
	require.NoError(t, err)

	var n int
	require.NoError(t, b.QueryRow("SELECT COUNT(*) FROM records").Scan(&n))
	assert.Zero(t, n)
}

func TestMigrateIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "propdesk.db")

	d, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, Migrate(d))
	require.NoError(t, d.Close())

	d, err = Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	v, _, err := Version(d)
	require.NoError(t, err)
	assert.Equal(t, uint(2), v)
}

func TestRecordsRejectInvalidJSON(t *testing.T) {
	d, err := OpenForTesting()
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	_, err = d.Exec(`INSERT INTO records (id, kind, data, created_date, updated_date) VALUES ('x', 'Owner', 'not json', '', '')`)
	assert.Error(t, err)
}
