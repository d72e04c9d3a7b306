package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// envPrefix is the prefix for environment variable overrides,
// e.g. CONTAINERKIT_PROVIDER_PREFERRED -> provider.preferred.
const envPrefix = "CONTAINERKIT"

// FileSystem interface for file operations (useful for testing).
type FileSystem interface {
	Exists(path string) bool
	LoadEnv(path string) error
}

// RealFileSystem implements FileSystem using actual file operations.
type RealFileSystem struct{}

func (rfs *RealFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (rfs *RealFileSystem) LoadEnv(path string) error {
	return godotenv.Load(path)
}

// LoaderConfig holds dependencies and optional file overrides.
type LoaderConfig struct {
	FileSystem FileSystem
	ConfigFile string // Direct config file path (optional)
	EnvFile    string // Direct .env file path (optional)
}

// LoaderOption is a functional option for Load.
type LoaderOption func(*LoaderConfig)

// WithFileSystem sets a custom filesystem for the loader.
func WithFileSystem(fs FileSystem) LoaderOption {
	return func(lc *LoaderConfig) { lc.FileSystem = fs }
}

// WithConfigFile sets an explicit config file path.
func WithConfigFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.ConfigFile = path }
}

// WithEnvFile sets an explicit .env file path.
func WithEnvFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvFile = path }
}

// Load loads configuration for a service into the provided cfg struct.
// It reads the config file if one is found, loads a .env file, binds
// CONTAINERKIT_-prefixed environment variables, and unmarshals the
// result into cfg.
func Load(serviceName string, cfg interface{}, opts ...LoaderOption) error {
	var lc LoaderConfig
	for _, opt := range opts {
		opt(&lc)
	}
	if lc.FileSystem == nil {
		lc.FileSystem = &RealFileSystem{}
	}
	if lc.ConfigFile == "" {
		lc.ConfigFile = findConfigFile(serviceName, lc.FileSystem)
	}
	if lc.EnvFile == "" {
		lc.EnvFile = findEnvFile(serviceName, lc.FileSystem)
	}

	v := viper.New()

	// 1. YAML config file is the base layer.
	if lc.ConfigFile != "" && lc.FileSystem.Exists(lc.ConfigFile) {
		v.SetConfigFile(lc.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file %s: %w", lc.ConfigFile, err)
		}
	}

	// 2. .env file fills the process environment before env binding.
	if lc.EnvFile != "" && lc.FileSystem.Exists(lc.EnvFile) {
		if err := lc.FileSystem.LoadEnv(lc.EnvFile); err != nil {
			return fmt.Errorf("failed to load env file %s: %w", lc.EnvFile, err)
		}
	}

	// 3. Environment variables win over file values.
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvKeys(v)

	// 4. Unmarshal into the config struct.
	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config for service %s: %w", serviceName, err)
	}

	return nil
}

// findConfigFile searches for config.yml in standard locations.
func findConfigFile(serviceName string, fs FileSystem) string {
	searchPaths := []string{
		fmt.Sprintf("./cmd/%s/config.yml", serviceName),
		"./config/config.yml",
		"./config.yml",
	}
	for _, path := range searchPaths {
		if fs.Exists(path) {
			return path
		}
	}
	return ""
}

// findEnvFile searches for a .env file in standard locations.
func findEnvFile(serviceName string, fs FileSystem) string {
	searchPaths := []string{
		fmt.Sprintf(".env.%s", serviceName),
		".env",
	}
	for _, path := range searchPaths {
		if fs.Exists(path) {
			return path
		}
	}
	return ""
}

// bindEnvKeys explicitly binds the known config keys so AutomaticEnv
// resolves them even when no config file set the key first.
func bindEnvKeys(v *viper.Viper) {
	keys := []string{
		"name",
		"environment",
		"debug",
		"logging.level",
		"logging.format",
		"logging.output",
		"logging.no_color",
		"provider.preferred",
		"provider.allow_override_replace",
		"provider.managed_shutdown",
	}
	for _, key := range keys {
		// BindEnv only fails on an empty key.
		_ = v.BindEnv(key)
	}
}
