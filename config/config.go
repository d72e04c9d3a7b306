package config

import (
	"fmt"

	"github.com/skillsenselab/containerkit/logger"
)

// Config contains the configuration fields for the container access layer.
// Projects extend this by embedding it in their own config structs.
//
// Example:
//
//	type AppConfig struct {
//	    ckconfig.Config `yaml:",inline" mapstructure:",squash"`
//	    Database database.Config `yaml:"database" mapstructure:"database"`
//	}
type Config struct {
	Name        string         `yaml:"name" mapstructure:"name"`
	Environment string         `yaml:"environment" mapstructure:"environment"`
	Debug       bool           `yaml:"debug" mapstructure:"debug"`
	Logging     logger.Config  `yaml:"logging" mapstructure:"logging"`
	Provider    ProviderConfig `yaml:"provider" mapstructure:"provider"`
}

// ProviderConfig controls provider discovery and selection behavior.
type ProviderConfig struct {
	// Preferred names a provider to probe before the rest of the
	// discovered set. Empty means pure discovery order.
	Preferred string `yaml:"preferred" mapstructure:"preferred"`

	// AllowOverrideReplace restores the legacy behavior of silently
	// replacing an explicit override on a repeated SetProvider call.
	// By default a second override attempt fails.
	AllowOverrideReplace bool `yaml:"allow_override_replace" mapstructure:"allow_override_replace"`

	// ManagedShutdown marks the process as running in an environment
	// where container shutdown is managed externally. Manual shutdown
	// calls fail while this is set.
	ManagedShutdown bool `yaml:"managed_shutdown" mapstructure:"managed_shutdown"`
}

// GetConfig returns the base Config. When embedded in a larger config
// struct, this method is promoted so the embedding struct automatically
// satisfies the loader's expectations.
func (c *Config) GetConfig() *Config {
	return c
}

// ApplyDefaults applies default values to the configuration.
// Override this in embedding structs and call c.Config.ApplyDefaults() first.
func (c *Config) ApplyDefaults() {
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Environment == "development" {
		c.Debug = true
	}
	// Propagate the name into logging so Init() uses the right tag.
	if c.Logging.ServiceName == "" && c.Name != "" {
		c.Logging.ServiceName = c.Name
	}
	c.Logging.ApplyDefaults()
}

// Validate validates the configuration fields.
// Override this in embedding structs and call c.Config.Validate() first.
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("config.name is required")
	}
	validEnvs := []string{"development", "staging", "production"}
	found := false
	for _, v := range validEnvs {
		if c.Environment == v {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("config.environment must be one of [development, staging, production] (got: %s)", c.Environment)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("config.logging: %w", err)
	}
	return nil
}
