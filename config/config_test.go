package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("FORECAST_SEED", "")
	t.Setenv("FORECAST_TREES", "")
	t.Setenv("PORT", "")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.DatabaseURL)
	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, int64(42), cfg.ForecastSeed)
	assert.Equal(t, 100, cfg.ForecastTrees)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("DATABASE_URL", "sqlite://cakes.db")
	t.Setenv("FORECAST_SEED", "7")
	t.Setenv("FORECAST_TREES", "not-a-number")
	t.Setenv("GEMINI_API_KEY", " key ")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "sqlite://cakes.db", cfg.DatabaseURL)
	assert.Equal(t, int64(7), cfg.ForecastSeed)
	assert.Equal(t, 100, cfg.ForecastTrees, "unparsable values fall back to the default")
	assert.Equal(t, "key", cfg.GeminiAPIKey)
}

func TestFromEnvRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := FromEnv()
	assert.EqualError(t, err, "JWT_SECRET is not set")

	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("FORECAST_TREES", "-1")
	_, err = FromEnv()
	assert.Error(t, err)
}

func TestLoadCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
regions: [Whitehouse, Kabachia]
cake_types:
  - Heart Cakes
users:
  - username: wanjiku
    role: manager
    password_hash: $2a$10$abcdefghijklmnopqrstuv
`), 0o600))

	c, err := LoadCatalog(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Whitehouse", "Kabachia"}, c.Regions)
	assert.Equal(t, []string{"Heart Cakes"}, c.CakeTypes)

	u, ok := c.FindUser("wanjiku")
	require.True(t, ok)
	assert.Equal(t, "manager", u.Role)
	assert.NotEmpty(t, u.PasswordHash)

	_, ok = c.FindUser("nobody")
	assert.False(t, ok)
}

func TestLoadCatalogErrors(t *testing.T) {
	_, err := LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("users:\n  - username: x\n"), 0o600))
	_, err = LoadCatalog(path)
	assert.Error(t, err)
}

func TestDefaultCatalog(t *testing.T) {
	c, err := LoadCatalog("")
	require.NoError(t, err)
	assert.Len(t, c.Regions, 4)
	assert.Len(t, c.CakeTypes, 7)
	assert.Empty(t, c.Users)
}
