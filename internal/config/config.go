// Package config loads lplens configuration from .lplens/config.yml
// with environment variable overrides.
package config

// Config represents the complete lplens configuration.
type Config struct {
	Paths   PathsConfig   `yaml:"paths" mapstructure:"paths"`
	Source  SourceConfig  `yaml:"source" mapstructure:"source"`
	Storage StorageConfig `yaml:"storage" mapstructure:"storage"`
}

// PathsConfig defines which files to analyze and which to ignore.
type PathsConfig struct {
	Programs []string `yaml:"programs" mapstructure:"programs"` // glob patterns for program files
	Ignore   []string `yaml:"ignore" mapstructure:"ignore"`     // glob patterns to ignore
}

// SourceConfig anchors multi-file analysis.
type SourceConfig struct {
	Root string `yaml:"root" mapstructure:"root"` // source root for prefix derivation; empty means the project root
}

// StorageConfig defines where analysis runs are persisted.
type StorageConfig struct {
	Location string `yaml:"location" mapstructure:"location"` // Override default .lplens/lplens.db
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Paths: PathsConfig{
			Programs: []string{
				"**/*.lp",
			},
			Ignore: []string{
				".git/**",
				".lplens/**",
				"vendor/**",
				"node_modules/**",
			},
		},
		Source: SourceConfig{
			Root: "",
		},
		Storage: StorageConfig{
			Location: "", // Empty means use default .lplens/lplens.db
		},
	}
}
