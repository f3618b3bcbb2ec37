package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. CTXEXTRACT_HTTP_ADDR
const EnvPrefix = "CTXEXTRACT"

// Loader provides configuration loading capabilities
type Loader interface {
	// Load loads configuration from file and environment variables.
	// Priority: defaults → config file → environment variables (env wins)
	Load() (*Config, error)
}

type loader struct {
	rootDir    string
	configFile string
}

// NewLoader searches rootDir/.ctxextract for config.yml or config.yaml
func NewLoader(rootDir string) Loader {
	return &loader{rootDir: rootDir}
}

// NewFileLoader reads an explicit config file, which must exist
func NewFileLoader(path string) Loader {
	return &loader{configFile: path}
}

// Load loads configuration with the following priority (highest to lowest):
// 1. Environment variables (CTXEXTRACT_*, plus LOG_LEVEL)
// 2. Config file
// 3. Default values
func (l *loader) Load() (*Config, error) {
	v := viper.New()

	if l.configFile != "" {
		v.SetConfigFile(l.configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(filepath.Join(l.rootDir, DirName))
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// LOG_LEVEL is honoured for parity with other services
	_ = v.BindEnv("log.level", EnvPrefix+"_LOG_LEVEL", "LOG_LEVEL")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if l.configFile != "" || !errors.As(err, &notFound) {
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

// setDefaults registers every key so AutomaticEnv can override it
func setDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("storage.db_path", defaults.Storage.DBPath)

	v.SetDefault("http.addr", defaults.HTTP.Addr)
	v.SetDefault("http.max_body_bytes", defaults.HTTP.MaxBodyBytes)

	v.SetDefault("cache.size", defaults.Cache.Size)

	v.SetDefault("indexer.workers", defaults.Indexer.Workers)
	v.SetDefault("indexer.batch_size", defaults.Indexer.BatchSize)
	v.SetDefault("indexer.max_file_size", defaults.Indexer.MaxFileSize)
	v.SetDefault("indexer.ignore", defaults.Indexer.Ignore)

	v.SetDefault("log.level", defaults.Log.Level)
	v.SetDefault("log.format", defaults.Log.Format)
}

// LoadConfig loads configuration rooted at the current working directory
func LoadConfig() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	return NewLoader(wd).Load()
}
