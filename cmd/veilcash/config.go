// config.go - Configuration for the veilcash demo binary.
package main

import (
	"encoding/json"
	"fmt"
	"os"
)

// Config represents the demo configuration
type Config struct {
	// Spentbook settings
	Threshold int `json:"threshold"`
	Nodes     int `json:"nodes"`

	// Spend scenario
	SplitAmount    uint64 `json:"split_amount"`
	DecoysPerInput int    `json:"decoys_per_input"`

	// Range proofs (slow: Groth16 setup on first run)
	EnableRangeProofs bool   `json:"enable_range_proofs"`
	ProvingKeyPath    string `json:"proving_key_path"`
	VerifyingKeyPath  string `json:"verifying_key_path"`

	// Logging
	LogLevel string `json:"log_level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Threshold:         1,
		Nodes:             3,
		SplitAmount:       100,
		DecoysPerInput:    5,
		EnableRangeProofs: false,
		ProvingKeyPath:    "range_proving.key",
		VerifyingKeyPath:  "range_verifying.key",
		LogLevel:          "info",
	}
}

// LoadConfig loads configuration from file or falls back to defaults.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	config := DefaultConfig()
	if err := json.NewDecoder(f).Decode(config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.Threshold < 0 {
		return fmt.Errorf("threshold must be non-negative, got %d", c.Threshold)
	}
	if c.Nodes < c.Threshold+1 {
		return fmt.Errorf("nodes (%d) must be at least threshold+1 (%d)", c.Nodes, c.Threshold+1)
	}
	if c.SplitAmount == 0 {
		return fmt.Errorf("split_amount must be positive")
	}
	if c.DecoysPerInput < 0 {
		return fmt.Errorf("decoys_per_input must be non-negative, got %d", c.DecoysPerInput)
	}
	return nil
}
