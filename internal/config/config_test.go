package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statspub/dataapi/dataapi/storage"
	"github.com/statspub/dataapi/dataapi/storage/postgres"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Backend)
	assert.Equal(t, "dataapi.db", cfg.SQLite.Path)
	assert.Equal(t, "sqlite", cfg.SQLite.Driver)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, 30*time.Second, cfg.HTTP.QueryTimeout)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.MigrateOnStart)
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
backend: postgres
postgres:
  dsn: postgres://localhost/stats
  schema: stats
http:
  addr: ":9090"
  query_timeout: 5s
`), 0o644))
	t.Setenv("DATAAPI_HTTP_ADDR", ":7070")
	t.Setenv("DATAAPI_HTTP_RATE_LIMIT", "10")

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Backend)
	assert.Equal(t, "stats", cfg.Postgres.Schema)
	assert.Equal(t, ":7070", cfg.HTTP.Addr)
	assert.Equal(t, 10, cfg.HTTP.RateLimit)
	assert.Equal(t, 5*time.Second, cfg.HTTP.QueryTimeout)

	adapter, err := cfg.Adapter()
	require.NoError(t, err)
	assert.Equal(t, storage.BackendPostgres, adapter.Backend())
	pg, ok := adapter.(*postgres.Adapter)
	require.True(t, ok)
	assert.Equal(t, "stats", pg.Schema)
}

func TestLoadExplicitFileMustExist(t *testing.T) {
	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	chdir(t, t.TempDir())

	t.Setenv("DATAAPI_BACKEND", "mysql")
	_, err := Load(viper.New(), "")
	assert.ErrorContains(t, err, "unsupported backend")

	t.Setenv("DATAAPI_BACKEND", "sqlite")
	t.Setenv("DATAAPI_SQLITE_DRIVER", "sqlcipher")
	_, err = Load(viper.New(), "")
	assert.ErrorContains(t, err, "sqlite.driver")

	t.Setenv("DATAAPI_SQLITE_DRIVER", "sqlite3")
	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)
	adapter, err := cfg.Adapter()
	require.NoError(t, err)
	assert.Equal(t, storage.BackendSQLite, adapter.Backend())
}
