package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shadowfund/internal/campaign"
)

func TestLoadConfigCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "shadowfund.json")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.FileExists(t, path)

	cfg.FeeBasisPoints = 42
	cfg.KeyDir = "elsewhere"
	require.NoError(t, SaveConfig(cfg, path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, uint16(42), loaded.FeeBasisPoints)
	assert.Equal(t, "elsewhere", loaded.KeyDir)
}

func TestLoadConfigKeepsDefaultsForMissingFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"fee_basis_points": 100}`), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, uint16(100), cfg.FeeBasisPoints)
	assert.Equal(t, DefaultConfig().TargetAmount, cfg.TargetAmount)
}

func TestLoadConfigRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0644))
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("SHADOWFUND_FEE_BPS=250\nSHADOWFUND_KEY_DIR=/tmp/keys\n"), 0644))

	// Process variables win over the file.
	t.Setenv(EnvLogLevel, "debug")
	t.Setenv(EnvKeyDir, "/opt/keys")
	t.Setenv(EnvFeeBps, "")
	require.NoError(t, os.Unsetenv(EnvFeeBps))

	cfg := DefaultConfig()
	require.NoError(t, cfg.ApplyEnv(envFile, filepath.Join(dir, "missing.env")))
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, uint16(250), cfg.FeeBasisPoints)
	assert.Equal(t, "/opt/keys", cfg.KeyDir)
}

func TestApplyEnvRejectsBadFee(t *testing.T) {
	t.Setenv(EnvFeeBps, "lots")
	assert.Error(t, DefaultConfig().ApplyEnv())

	t.Setenv(EnvFeeBps, "70000")
	assert.Error(t, DefaultConfig().ApplyEnv())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"default", func(*Config) {}, true},
		{"full fee", func(c *Config) { c.FeeBasisPoints = 10000 }, true},
		{"fee over 100%", func(c *Config) { c.FeeBasisPoints = 10001 }, false},
		{"bad admin", func(c *Config) { c.Admin = "nope" }, false},
		{"bad treasury", func(c *Config) { c.Treasury = "0x1234" }, false},
		{"zero target", func(c *Config) { c.TargetAmount = 0 }, false},
		{"zero deadline", func(c *Config) { c.DeadlineSeconds = 0 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}

	cfg := DefaultConfig()
	cfg.FeeBasisPoints = 10001
	assert.ErrorIs(t, cfg.Validate(), campaign.ErrInvalidFee)
}

func TestPlatformConfig(t *testing.T) {
	cfg := DefaultConfig()
	p, err := cfg.PlatformConfig()
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(cfg.Admin), p.Admin)
	assert.Equal(t, common.HexToAddress(cfg.Treasury), p.Treasury)
	assert.Equal(t, cfg.FeeBasisPoints, p.FeeBasisPoints)
}
