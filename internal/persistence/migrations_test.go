package persistence

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMigrationNamesSorted(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/0002_b.sql": {Data: []byte("SELECT 2;")},
		"migrations/0001_a.sql": {Data: []byte("SELECT 1;")},
		"migrations/nested/x":   {Data: []byte("ignored")},
	}

	names, err := migrationNames(fsys)
	require.NoError(t, err)
	assert.Equal(t, []string{"0001_a.sql", "0002_b.sql"}, names)
}

func TestEmbeddedMigrationsPresent(t *testing.T) {
	names, err := migrationNames(migrationFiles)
	require.NoError(t, err)
	assert.Contains(t, names, "0001_create_users.sql")
}

func TestRunMigrationsWithoutPool(t *testing.T) {
	assert.NoError(t, RunMigrations(context.Background(), nil, zap.NewNop()))
}
