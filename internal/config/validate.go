package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dshills/ctxextract/internal/logging"
)

var (
	// ErrEmptyDBPath indicates a missing database location
	ErrEmptyDBPath = errors.New("empty storage db_path")

	// ErrEmptyAddr indicates a missing HTTP listen address
	ErrEmptyAddr = errors.New("empty http addr")

	// ErrInvalidSize indicates a non-positive size or count
	ErrInvalidSize = errors.New("invalid size")

	// ErrInvalidLog indicates an unknown log level or format
	ErrInvalidLog = errors.New("invalid log settings")
)

// Validate checks that the configuration is valid and complete.
// Every problem is reported, joined into one error.
func Validate(cfg *Config) error {
	var errs []error

	if strings.TrimSpace(cfg.Storage.DBPath) == "" {
		errs = append(errs, ErrEmptyDBPath)
	}
	if strings.TrimSpace(cfg.HTTP.Addr) == "" {
		errs = append(errs, ErrEmptyAddr)
	}

	positive := []struct {
		key   string
		value int64
	}{
		{"http.max_body_bytes", cfg.HTTP.MaxBodyBytes},
		{"cache.size", int64(cfg.Cache.Size)},
		{"indexer.workers", int64(cfg.Indexer.Workers)},
		{"indexer.batch_size", int64(cfg.Indexer.BatchSize)},
		{"indexer.max_file_size", cfg.Indexer.MaxFileSize},
	}
	for _, p := range positive {
		if p.value <= 0 {
			errs = append(errs, fmt.Errorf("%w: %s must be positive, got %d", ErrInvalidSize, p.key, p.value))
		}
	}

	if _, err := logging.ParseLevel(cfg.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("%w: %v", ErrInvalidLog, err))
	}
	switch strings.ToLower(cfg.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("%w: format must be 'text' or 'json', got '%s'", ErrInvalidLog, cfg.Log.Format))
	}

	return errors.Join(errs...)
}
