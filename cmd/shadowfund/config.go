// config.go - shadowfund.json plus .env and SHADOWFUND_* overrides.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"

	"shadowfund/internal/campaign"
	"shadowfund/internal/funding"
)

// Environment overrides, read after the config file.
const (
	EnvLogLevel = "SHADOWFUND_LOG_LEVEL"
	EnvFeeBps   = "SHADOWFUND_FEE_BPS"
	EnvKeyDir   = "SHADOWFUND_KEY_DIR"
)

// Config is the CLI configuration. Platform settings feed the funding
// engine; the rest drive the simulate and setup-keys commands.
type Config struct {
	// Platform settings
	Admin          string `json:"admin"`
	Treasury       string `json:"treasury"`
	FeeBasisPoints uint16 `json:"fee_basis_points"`

	// Simulation settings
	TargetAmount    uint64 `json:"target_amount"`
	DeadlineSeconds int64  `json:"deadline_seconds"`

	// File paths
	KeyDir        string `json:"key_dir"`
	NullifierPath string `json:"nullifier_path"`

	// Logging
	LogLevel string `json:"log_level"`
	AppEnv   string `json:"app_env"`
}

// DefaultConfig is the configuration written to a fresh shadowfund.json:
// the demo admin and treasury, a 5% fee and the 1000-unit, 100-second
// campaign used by simulate.
func DefaultConfig() *Config {
	return &Config{
		Admin:           "0x00000000000000000000000000000000000000ad",
		Treasury:        "0x0000000000000000000000000000000000007ea5",
		FeeBasisPoints:  500,
		TargetAmount:    1000,
		DeadlineSeconds: 100,
		KeyDir:          "keys",
		NullifierPath:   "nullifiers.json",
		LogLevel:        "info",
		AppEnv:          "development",
	}
}

// LoadConfig reads path over the defaults, so fields absent from the file
// keep their default values. A missing file is created with the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if err := SaveConfig(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to write default config: %w", err)
		}
		return cfg, nil
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := json.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}
	return cfg, nil
}

// SaveConfig writes cfg to path as indented JSON, creating parent
// directories as needed.
func SaveConfig(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	raw, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return os.WriteFile(path, append(raw, '\n'), 0644)
}

// ApplyEnv loads the given .env files, when present, and applies the
// environment overrides. Variables already set in the process win over the
// files.
func (c *Config) ApplyEnv(files ...string) error {
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvFeeBps); v != "" {
		bps, err := strconv.ParseUint(v, 10, 16)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvFeeBps, err)
		}
		c.FeeBasisPoints = uint16(bps)
	}
	if v := os.Getenv(EnvKeyDir); v != "" {
		c.KeyDir = v
	}
	return nil
}

// Validate checks the platform addresses, the fee range and the simulated
// campaign parameters.
func (c *Config) Validate() error {
	if !common.IsHexAddress(c.Admin) {
		return fmt.Errorf("admin must be a hex address")
	}
	if !common.IsHexAddress(c.Treasury) {
		return fmt.Errorf("treasury must be a hex address")
	}
	if c.FeeBasisPoints > campaign.MaxBasisPoints {
		return fmt.Errorf("fee_basis_points must be at most %d: %w", campaign.MaxBasisPoints, campaign.ErrInvalidFee)
	}
	if c.TargetAmount == 0 {
		return fmt.Errorf("target_amount must be positive")
	}
	if c.DeadlineSeconds <= 0 {
		return fmt.Errorf("deadline_seconds must be positive")
	}
	return nil
}

// PlatformConfig converts the platform settings for the engine.
func (c *Config) PlatformConfig() (funding.PlatformConfig, error) {
	if err := c.Validate(); err != nil {
		return funding.PlatformConfig{}, err
	}
	return funding.NewPlatformConfig(common.HexToAddress(c.Admin), common.HexToAddress(c.Treasury), c.FeeBasisPoints)
}
