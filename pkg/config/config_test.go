package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Port     int    `env:"TEST_CFG_PORT" envDefault:"8080"`
	ShopID   string `env:"TEST_CFG_SHOP_ID" envDefault:"test_shop_001"`
	LogLevel string `env:"TEST_CFG_LOG_LEVEL" envDefault:"info"`
	Seed     bool   `env:"TEST_CFG_SEED" envDefault:"false"`
}

func TestLoad_Defaults(t *testing.T) {
	var cfg testConfig
	err := Load(&cfg)

	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "test_shop_001", cfg.ShopID)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.Seed)
}

func TestLoad_FromEnvVars(t *testing.T) {
	t.Setenv("TEST_CFG_PORT", "3000")
	t.Setenv("TEST_CFG_SHOP_ID", "shop-9")
	t.Setenv("TEST_CFG_SEED", "true")

	var cfg testConfig
	err := Load(&cfg)

	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, "shop-9", cfg.ShopID)
	assert.True(t, cfg.Seed)
}

type requiredConfig struct {
	APIKey string `env:"TEST_CFG_API_KEY,required"`
}

func TestLoad_RequiredFieldMissing(t *testing.T) {
	var cfg requiredConfig
	err := Load(&cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestLoad_InvalidType(t *testing.T) {
	t.Setenv("TEST_CFG_PORT", "not-a-number")

	var cfg testConfig
	err := Load(&cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestLoadDotEnv_MissingFileIsSkipped(t *testing.T) {
	err := LoadDotEnv(filepath.Join(t.TempDir(), "nope.env"))
	assert.NoError(t, err)
}

func TestLoadDotEnv_DoesNotOverrideExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("TEST_CFG_DOTENV_A=from-file\nTEST_CFG_DOTENV_B=from-file\n"), 0o600))

	t.Setenv("TEST_CFG_DOTENV_A", "from-env")
	t.Setenv("TEST_CFG_DOTENV_B", "")
	require.NoError(t, os.Unsetenv("TEST_CFG_DOTENV_B"))

	require.NoError(t, LoadDotEnv(path))

	assert.Equal(t, "from-env", os.Getenv("TEST_CFG_DOTENV_A"))
	assert.Equal(t, "from-file", os.Getenv("TEST_CFG_DOTENV_B"))
}
