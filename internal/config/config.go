// Package config provides configuration management for the Warder
// wallet client.
package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	warderr "github.com/Warder-Sonic/warder-wallet/pkg/errors"
)

// Config represents the application configuration.
type Config struct {
	Version   int             `yaml:"version"`
	Home      string          `yaml:"home"`
	Network   NetworkConfig   `yaml:"network"`
	Contracts ContractsConfig `yaml:"contracts"`
	Claim     ClaimConfig     `yaml:"claim"`
	API       APIConfig       `yaml:"api"`
	Account   AccountConfig   `yaml:"account"`
	Output    OutputConfig    `yaml:"output"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// NetworkConfig defines the target chain.
type NetworkConfig struct {
	ChainID      int64          `yaml:"chain_id"`
	Name         string         `yaml:"name"`
	RPC          string         `yaml:"rpc"`
	Explorer     string         `yaml:"explorer"`
	CurrencyName string         `yaml:"currency_name"`
	Symbol       string         `yaml:"symbol"`
	Decimals     int            `yaml:"decimals"`
}

// ContractsConfig defines deployed contract addresses.
type ContractsConfig struct {
	CashbackWallet string `yaml:"cashback_wallet"`
	Token          string `yaml:"token,omitempty"`
	FeeManager     string `yaml:"fee_manager,omitempty"`
}

// ClaimConfig defines the claim data-source strategy and the values the
// REST and fee-manager strategies compute client-side.
type ClaimConfig struct {
	Strategy        string  `yaml:"strategy"` // contract, feemanager, or rest
	MinimumClaim    string  `yaml:"minimum_claim"`
	FeeRateBps      int64   `yaml:"fee_rate_bps"`
	RequireApproval bool    `yaml:"require_approval"`
}

// APIConfig defines the backing REST API.
type APIConfig struct {
	BaseURL string `yaml:"base_url"`
}

// AccountConfig defines the headless account used by the CLI when no
// injected wallet is available.
type AccountConfig struct {
	Address string `yaml:"address,omitempty"`
}

// OutputConfig defines output formatting settings.
type OutputConfig struct {
	DefaultFormat string `yaml:"default_format"`
	Verbose       bool   `yaml:"verbose"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Load reads configuration from the specified file, applying defaults
// for anything the file omits.
func Load(path string) (*Config, error) {
	// #nosec G304 -- config file path is from validated user input
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, warderr.WithCause(warderr.ErrConfigInvalid, err)
	}

	return cfg, nil
}

// Save writes the configuration to the specified file.
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return warderr.Wrap(err, "marshaling config")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return warderr.Wrap(err, "creating config directory")
	}

	return os.WriteFile(path, data, 0o600)
}

// Path returns the config file path for a home directory.
func Path(home string) string {
	return filepath.Join(home, "config.yaml")
}

// DefaultHome returns the default home directory.
func DefaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".warder"
	}
	return filepath.Join(home, ".warder")
}
