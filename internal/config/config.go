// Package config loads the startup configuration for secwalletd: the
// endpoint and agent names the servers bind under, and the paths to the
// three JSON data files the servers persist to.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/systmms/secwallet/internal/logging"
)

// Definition is the YAML-authored startup configuration.
type Definition struct {
	Version int `yaml:"version"`

	// Endpoint is the transport endpoint address (a stand-in for the
	// broker mailbox address in the original system). The in-process
	// transport does not bind to it; `run` only logs it.
	Endpoint string `yaml:"endpoint"`

	// SWSAgentName, CAMSAgentName, and SRRAgentName are the sender
	// identities the dispatcher registers under.
	SWSAgentName  string `yaml:"swsAgentName"`
	CAMSAgentName string `yaml:"camsAgentName"`
	SRRAgentName  string `yaml:"srrAgentName"`

	// WalletDatabasePath is where the portfolio store's database.json lives.
	WalletDatabasePath string `yaml:"walletDatabasePath"`

	// WalletConfigurationPath is the configuration.json holding one usage
	// catalog + consumer/producer rule set per portfolio, keyed by
	// portfolio_name (internal/policyconfig.ParseConfigs).
	WalletConfigurationPath string `yaml:"walletConfigurationPath"`

	// MappingDatabasePath is where the mapping store's mapping.json lives.
	MappingDatabasePath string `yaml:"mappingDatabasePath"`

	// MetricsEnabled turns on the Prometheus metrics HTTP endpoint.
	MetricsEnabled bool `yaml:"metricsEnabled,omitempty"`

	// MetricsAddr is the listen address for the metrics endpoint
	// (default ":9090" if unset and MetricsEnabled is true).
	MetricsAddr string `yaml:"metricsAddr,omitempty"`

	Verbose bool `yaml:"verbose,omitempty"`
}

// Config wraps the loaded Definition with the path it was read from and the
// logger the command layer built from the parsed global flags.
type Config struct {
	Path       string
	Definition *Definition
	Logger     *logging.Logger
}

// New returns a Config that will load from path on Load.
func New(path string) *Config {
	return &Config{Path: path}
}

// Load reads and parses the startup configuration file.
func (c *Config) Load() error {
	data, err := os.ReadFile(c.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("configuration file %q not found", c.Path)
		}
		return fmt.Errorf("reading configuration file %q: %w", c.Path, err)
	}

	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return fmt.Errorf("invalid YAML in configuration file %q: %w", c.Path, err)
	}

	if err := def.validate(); err != nil {
		return fmt.Errorf("configuration file %q: %w", c.Path, err)
	}

	c.Definition = &def
	return nil
}

func (d *Definition) validate() error {
	if d.Version != 1 {
		return fmt.Errorf("unsupported configuration version %d, expected 1", d.Version)
	}
	if d.Endpoint == "" {
		return fmt.Errorf("endpoint must be set")
	}
	if d.SWSAgentName == "" {
		return fmt.Errorf("swsAgentName must be set")
	}
	if d.CAMSAgentName == "" {
		return fmt.Errorf("camsAgentName must be set")
	}
	if d.SRRAgentName == "" {
		return fmt.Errorf("srrAgentName must be set")
	}
	if d.WalletDatabasePath == "" {
		return fmt.Errorf("walletDatabasePath must be set")
	}
	if d.WalletConfigurationPath == "" {
		return fmt.Errorf("walletConfigurationPath must be set")
	}
	if d.MappingDatabasePath == "" {
		return fmt.Errorf("mappingDatabasePath must be set")
	}
	return nil
}
