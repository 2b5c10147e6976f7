package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noEnvFile(t *testing.T) {
	t.Helper()
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
}

func TestLoadDefaults(t *testing.T) {
	noEnvFile(t)
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3001, cfg.ServerPort)
	assert.Equal(t, DriverSQLite, cfg.StoreDriver)
	assert.Equal(t, 7, cfg.BcryptCost)
	assert.Equal(t, 100*time.Hour, cfg.TokenTTL())
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.CORSOrigins)
	assert.False(t, cfg.IsProduction())
}

func TestLoadRequiresSecret(t *testing.T) {
	noEnvFile(t)
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoadReadsEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("JWT_SECRET=from-file\nSTORE_DRIVER=mongo\nCORS_ORIGINS=http://a.test,http://b.test\n"), 0o600))
	t.Setenv("ENV_FILE", path)
	// Ensure the file values are not shadowed by the test runner's environment.
	for _, key := range []string{"JWT_SECRET", "STORE_DRIVER", "CORS_ORIGINS"} {
		if old, ok := os.LookupEnv(key); ok {
			require.NoError(t, os.Unsetenv(key))
			t.Cleanup(func() { os.Setenv(key, old) })
		}
	}
	t.Cleanup(func() {
		os.Unsetenv("JWT_SECRET")
		os.Unsetenv("STORE_DRIVER")
		os.Unsetenv("CORS_ORIGINS")
	})

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.JWTSecret)
	assert.Equal(t, DriverMongo, cfg.StoreDriver)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)
}

func TestValidate(t *testing.T) {
	base := Config{
		JWTSecret:          "k",
		TokenExpirySeconds: 60,
		BcryptCost:         7,
		StoreDriver:        DriverSQLite,
		DatabasePath:       "x.db",
		EventRetentionDays: 30,
	}
	require.NoError(t, base.Validate())

	bad := base
	bad.BcryptCost = 2
	assert.Error(t, bad.Validate())

	bad = base
	bad.StoreDriver = "postgres"
	assert.Error(t, bad.Validate())

	bad = base
	bad.TokenExpirySeconds = 0
	assert.Error(t, bad.Validate())

	bad = base
	bad.EventRetentionDays = 0
	assert.Error(t, bad.Validate())
	assert.Equal(t, 30*24*time.Hour, base.EventRetention())
}
