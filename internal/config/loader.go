package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Loader provides configuration loading capabilities.
type Loader interface {
	// Load loads configuration from file and environment variables.
	// Priority: defaults → config file → environment variables (env wins)
	Load() (*Config, error)
}

type loader struct {
	rootDir string
}

// NewLoader creates a new configuration loader for the given root directory.
func NewLoader(rootDir string) Loader {
	return &loader{
		rootDir: rootDir,
	}
}

// Load loads configuration with the following priority (highest to lowest):
// 1. Environment variables (LPLENS_*)
// 2. Config file (.lplens/config.yml or .lplens/config.yaml)
// 3. Default values
func (l *loader) Load() (*Config, error) {
	v := viper.New()

	configDir := filepath.Join(l.rootDir, ".lplens")
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)

	v.SetEnvPrefix("LPLENS")
	v.AutomaticEnv()
	// Replace . with _ in env var names (e.g., LPLENS_SOURCE_ROOT)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.BindEnv("source.root")
	v.BindEnv("storage.location")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// Config file not found is acceptable - we'll use defaults + env vars
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setDefaults configures viper with default values.
func setDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("paths.programs", defaults.Paths.Programs)
	v.SetDefault("paths.ignore", defaults.Paths.Ignore)
	v.SetDefault("source.root", defaults.Source.Root)
	v.SetDefault("storage.location", defaults.Storage.Location)
}

// LoadConfig is a convenience function that creates a loader and loads
// config from the current working directory.
func LoadConfig() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	return NewLoader(wd).Load()
}

// LoadConfigFromDir loads configuration from a specific directory.
func LoadConfigFromDir(rootDir string) (*Config, error) {
	return NewLoader(rootDir).Load()
}

// StorageLocation resolves the database path for a project root,
// falling back to .lplens/lplens.db under the root.
func (c *Config) StorageLocation(rootDir string) string {
	if c.Storage.Location != "" {
		return c.Storage.Location
	}
	return filepath.Join(rootDir, ".lplens", "lplens.db")
}

// SourceRoot resolves the source root for a project root.
func (c *Config) SourceRoot(rootDir string) string {
	if c.Source.Root != "" {
		if filepath.IsAbs(c.Source.Root) {
			return c.Source.Root
		}
		return filepath.Join(rootDir, c.Source.Root)
	}
	return rootDir
}
