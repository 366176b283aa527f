package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func missingFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "absent.env")
}

func TestLoadFile_Defaults(t *testing.T) {
	cfg, err := LoadFile(missingFile(t))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, "http://localhost:8080", cfg.App.BaseURL)
	assert.Equal(t, BackendMemory, cfg.Storage.Backend)
	assert.Equal(t, 6, cfg.Links.CodeLength)
	assert.Equal(t, 10, cfg.Links.CodeMaxRetries)
	assert.Equal(t, 30.0, cfg.Links.DefaultValidityMinutes)
	assert.Equal(t, float64(365*24*60), cfg.Links.MaxValidityMinutes)
	assert.Empty(t, cfg.Auth.APIKeys)
	assert.EqualValues(t, 25, cfg.DB.MaxConns)
	assert.EqualValues(t, 5, cfg.DB.MinConns)
	assert.Equal(t, 100, cfg.Redis.PoolSize)
}

func TestLoadFile_DotenvAndEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(
		"APP_PORT=9090\nBASE_URL=https://sho.rt/\nSTORAGE_BACKEND=Postgres\nDB_USER=app\nDB_NAME=links\n",
	), 0o600))
	t.Setenv("APP_PORT", "7070")
	t.Setenv("API_KEYS", "k1:ci, k2 : ops ,broken")

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.App.Port, "environment wins over the file")
	assert.Equal(t, "https://sho.rt", cfg.App.BaseURL)
	assert.Equal(t, BackendPostgres, cfg.Storage.Backend)
	assert.Equal(t, "postgres://app:@localhost:5432/links?sslmode=disable", cfg.DB.DSN())
	assert.Equal(t, map[string]string{"k1": "ci", "k2": "ops"}, cfg.Auth.APIKeys)
}

func TestLoadFile_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown backend", map[string]string{"STORAGE_BACKEND": "mongo"}},
		{"code too short", map[string]string{"CODE_LENGTH": "2"}},
		{"code too long", map[string]string{"CODE_LENGTH": "11"}},
		{"no retries", map[string]string{"CODE_MAX_RETRIES": "0"}},
		{"default above max", map[string]string{"DEFAULT_VALIDITY_MINUTES": "100", "MAX_VALIDITY_MINUTES": "50"}},
		{"zero rate", map[string]string{"RATE_LIMIT_RPS": "0"}},
		{"min conns above max", map[string]string{"DB_MIN_CONNS": "30", "DB_MAX_CONNS": "10"}},
		{"zero redis pool", map[string]string{"REDIS_POOL_SIZE": "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadFile(missingFile(t))
			assert.Error(t, err)
		})
	}
}

func TestParseAPIKeys(t *testing.T) {
	assert.Empty(t, parseAPIKeys(""))
	assert.Equal(t, map[string]string{"a": "b:c"}, parseAPIKeys("a:b:c"))
}
