// Package config loads ctxextract settings from defaults, .ctxextract/config.yml
// and CTXEXTRACT_* environment variables.
package config

import (
	"path/filepath"
	"runtime"
)

// DirName is the per-project settings and data directory
const DirName = ".ctxextract"

// Config represents the complete ctxextract configuration
type Config struct {
	Storage StorageConfig `yaml:"storage" mapstructure:"storage"`
	HTTP    HTTPConfig    `yaml:"http" mapstructure:"http"`
	Cache   CacheConfig   `yaml:"cache" mapstructure:"cache"`
	Indexer IndexerConfig `yaml:"indexer" mapstructure:"indexer"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// StorageConfig locates the SQLite database
type StorageConfig struct {
	DBPath string `yaml:"db_path" mapstructure:"db_path"`
}

// HTTPConfig configures the JSON API server
type HTTPConfig struct {
	Addr         string `yaml:"addr" mapstructure:"addr"`
	MaxBodyBytes int64  `yaml:"max_body_bytes" mapstructure:"max_body_bytes"` // request body limit
}

// CacheConfig sizes the extraction cache
type CacheConfig struct {
	Size int `yaml:"size" mapstructure:"size"` // entries, not bytes
}

// IndexerConfig controls batch and directory extraction
type IndexerConfig struct {
	Workers     int      `yaml:"workers" mapstructure:"workers"`
	BatchSize   int      `yaml:"batch_size" mapstructure:"batch_size"`
	MaxFileSize int64    `yaml:"max_file_size" mapstructure:"max_file_size"`
	Ignore      []string `yaml:"ignore" mapstructure:"ignore"` // glob patterns, slash-separated
}

// LogConfig configures the slog handler
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // text or json
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			DBPath: filepath.Join(DirName, "ctxextract.db"),
		},
		HTTP: HTTPConfig{
			Addr:         ":8080",
			MaxBodyBytes: 5 << 20,
		},
		Cache: CacheConfig{
			Size: 4096,
		},
		Indexer: IndexerConfig{
			Workers:     runtime.NumCPU(),
			BatchSize:   20,
			MaxFileSize: 1 << 20,
			Ignore: []string{
				"node_modules/**",
				"vendor/**",
				"dist/**",
				"build/**",
				"**/*.min.js",
			},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
