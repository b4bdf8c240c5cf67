package persistence

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/sla-governance/internal/config"
	"github.com/spec-kit/sla-governance/internal/domain"
)

func TestOpenStoresMemory(t *testing.T) {
	stores, err := OpenStores(context.Background(), config.Config{Store: config.StoreConfig{Driver: config.StoreMemory}}, zap.NewNop())
	require.NoError(t, err)
	defer stores.Close()

	assert.Equal(t, config.StoreMemory, stores.Driver)
	assert.NoError(t, stores.Ping(context.Background()))
}

func TestOpenStoresSQLitePersistsAcrossHandles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "sla.sqlite")
	cfg := config.Config{Store: config.StoreConfig{Driver: config.StoreSQLite, SQLitePath: path}}
	ctx := context.Background()

	stores, err := OpenStores(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, stores.Ping(ctx))
	user := domain.User{
		ID: "u-1", Name: "Sam Lite", Email: "sam@example.com", Role: domain.RoleEmployee,
		Department: domain.DepartmentLegal, CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, stores.Users.Save(ctx, user))
	stores.Close()

	reopened, err := OpenStores(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	defer reopened.Close()
	got, err := reopened.Users.Get(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, "sam@example.com", got.Email)
	assert.True(t, user.CreatedAt.Equal(got.CreatedAt))
}

func TestOpenStoresPostgresNeedsDSN(t *testing.T) {
	_, err := OpenStores(context.Background(), config.Config{Store: config.StoreConfig{Driver: config.StorePostgres}}, zap.NewNop())
	assert.Error(t, err)
}

func TestMigrationFilesDefaultsToEmbeddedSchema(t *testing.T) {
	names, err := fs.Glob(MigrationFiles(""), "*.sql")
	require.NoError(t, err)
	assert.Contains(t, names, "0001_init.sql")
	assert.Contains(t, names, "0002_history_ticket_scoped_ids.sql")

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "0002_extra.sql"), []byte("SELECT 1;"), 0o600))
	names, err = fs.Glob(MigrationFiles(dir), "*.sql")
	require.NoError(t, err)
	assert.Equal(t, []string{"0002_extra.sql"}, names)
}

func TestRunMigrationsNeedsPool(t *testing.T) {
	assert.Error(t, RunMigrations(context.Background(), nil, MigrationFiles(""), zap.NewNop()))
}

func TestOpenPostgresRejectsBadDSN(t *testing.T) {
	_, err := OpenPostgres(context.Background(), config.PostgresConfig{}, zap.NewNop())
	assert.Error(t, err)

	_, err = OpenPostgres(context.Background(), config.PostgresConfig{DSN: "postgres://%zz"}, zap.NewNop())
	assert.Error(t, err)
}

func TestDisabledRedis(t *testing.T) {
	r := NewRedis(context.Background(), config.RedisConfig{Enabled: false, Addr: "127.0.0.1:6379"}, zap.NewNop())
	assert.False(t, r.Enabled())
	assert.Error(t, r.Ping(context.Background()))
	r.Close()
}
