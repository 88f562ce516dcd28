package config

import (
	"io/fs"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Address())
	assert.Equal(t, StorageDisk, cfg.Storage.Backend)
	assert.Equal(t, "assets", cfg.Storage.AssetsDir)
	assert.Equal(t, int64(100*1024*1024), cfg.Storage.MaxFileSize)
	assert.Equal(t, CatalogFile, cfg.Catalog.Backend)
	assert.Equal(t, "meta", cfg.Catalog.MetaDir)
	assert.Equal(t, fs.FileMode(0644), cfg.Storage.FileMode)
	assert.Equal(t, fs.FileMode(0755), cfg.Storage.DirMode)
	assert.Equal(t, "/metrics", cfg.Metrics.PrometheusPath)
	assert.False(t, cfg.UsesPostgres())
	assert.False(t, cfg.UsesMinIO())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("FILEDROP_API_PORT", "9090")
	t.Setenv("FILEDROP_API_READ_TIMEOUT", "30s")
	t.Setenv("FILEDROP_MAX_FILE_SIZE", "2MiB")
	t.Setenv("FILEDROP_STORAGE_BACKEND", "MinIO")
	t.Setenv("FILEDROP_CATALOG_BACKEND", "postgres")
	t.Setenv("MINIO_USE_SSL", "yes")
	t.Setenv("POSTGRES_PORT", "not-a-number")
	t.Setenv("FILEDROP_FILE_MODE", "0640")
	t.Setenv("FILEDROP_DIR_MODE", "750")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, int64(2*1024*1024), cfg.Storage.MaxFileSize)
	assert.True(t, cfg.UsesMinIO())
	assert.True(t, cfg.UsesPostgres())
	assert.True(t, cfg.MinIO.UseSSL)
	assert.Equal(t, 5432, cfg.Postgres.Port, "invalid ints fall back to the default")
	assert.Equal(t, fs.FileMode(0640), cfg.Storage.FileMode)
	assert.Equal(t, fs.FileMode(0750), cfg.Storage.DirMode)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Run("size", func(t *testing.T) {
		t.Setenv("FILEDROP_MAX_FILE_SIZE", "lots")
		_, err := Load()
		assert.Error(t, err)
	})
	t.Run("zero size", func(t *testing.T) {
		t.Setenv("FILEDROP_MAX_FILE_SIZE", "0")
		_, err := Load()
		assert.Error(t, err)
	})
	t.Run("file mode", func(t *testing.T) {
		t.Setenv("FILEDROP_FILE_MODE", "rw-r--r--")
		_, err := Load()
		assert.ErrorContains(t, err, "FILEDROP_FILE_MODE")
	})
	t.Run("dir mode out of range", func(t *testing.T) {
		t.Setenv("FILEDROP_DIR_MODE", "7777")
		_, err := Load()
		assert.ErrorContains(t, err, "FILEDROP_DIR_MODE")
	})
	t.Run("storage backend", func(t *testing.T) {
		t.Setenv("FILEDROP_STORAGE_BACKEND", "tape")
		_, err := Load()
		assert.ErrorContains(t, err, "storage backend")
	})
	t.Run("catalog backend", func(t *testing.T) {
		t.Setenv("FILEDROP_CATALOG_BACKEND", "sqlite")
		_, err := Load()
		assert.ErrorContains(t, err, "catalog backend")
	})
}

func TestPostgresDSN(t *testing.T) {
	p := PostgresConfig{Host: "db", Port: 5433, User: "u", Password: "p", Database: "d", SSLMode: "require"}
	assert.Equal(t, "postgres://u:p@db:5433/d?sslmode=require", p.DSN())
}
