package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSigningKey = "0123456789abcdef0123"

func TestEnvReader_Defaults(t *testing.T) {
	t.Setenv("ENV", EnvLocal)
	t.Setenv("JWT_SIGNING_KEY", testSigningKey)

	cfg, err := NewEnvReader().Read()
	require.NoError(t, err)

	assert.Equal(t, StorageDriverPostgres, cfg.StorageDriver)
	assert.Equal(t, 5*time.Second, cfg.LockTimeout)
	assert.Equal(t, "8080", cfg.HTTP.Port)
	assert.Equal(t, 5*time.Second, cfg.HTTP.ShutdownTimeout)
	assert.Equal(t, []string{"*"}, cfg.HTTP.AllowOrigins)
	assert.Equal(t, 24*time.Hour, cfg.JWT.AccessTokenTTL)
	assert.Empty(t, cfg.Redis.Addr)
	assert.True(t, cfg.Mongo.Transactions)
}

func TestEnvReader_Rejects(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{
			name: "unknown env",
			env:  map[string]string{"ENV": "staging", "JWT_SIGNING_KEY": testSigningKey},
		},
		{
			name: "unknown driver",
			env: map[string]string{
				"ENV":             EnvDev,
				"JWT_SIGNING_KEY": testSigningKey,
				"STORAGE_DRIVER":  "mysql",
			},
		},
		{
			name: "short signing key",
			env:  map[string]string{"ENV": EnvDev, "JWT_SIGNING_KEY": "short"},
		},
		{
			name: "missing signing key",
			env:  map[string]string{"ENV": EnvDev},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("JWT_SIGNING_KEY", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := NewEnvReader().Read()
			assert.Error(t, err)
		})
	}
}

func TestFileReader_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
env: dev
storage_driver: sqlite
lock_timeout: 2s
http:
  port: "9090"
  allow_origins:
    - http://localhost:3000
jwt:
  signing_key: `+testSigningKey+`
sqlite:
  path: /tmp/board.db
`), 0o600))
	t.Setenv("HTTP_PORT", "9191")

	cfg, err := NewFileReader(path).Read()
	require.NoError(t, err)

	assert.Equal(t, EnvDev, cfg.Env)
	assert.Equal(t, StorageDriverSQLite, cfg.StorageDriver)
	assert.Equal(t, 2*time.Second, cfg.LockTimeout)
	assert.Equal(t, "9191", cfg.HTTP.Port)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.HTTP.AllowOrigins)
	assert.Equal(t, "/tmp/board.db", cfg.SQLite.Path)
}

func TestFileReader_MissingFile(t *testing.T) {
	_, err := NewFileReader(filepath.Join(t.TempDir(), "nope.yaml")).Read()
	assert.Error(t, err)
}
