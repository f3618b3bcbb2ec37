// Package cli wires configuration, storage and the extractor into the ctxextract commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/dshills/ctxextract/internal/cache"
	"github.com/dshills/ctxextract/internal/config"
	"github.com/dshills/ctxextract/internal/indexer"
	"github.com/dshills/ctxextract/internal/logging"
	"github.com/dshills/ctxextract/internal/storage"
)

// rootOptions holds the persistent flags shared by every subcommand
type rootOptions struct {
	configFile string
	logLevel   string
}

// NewRootCmd builds the command tree
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "ctxextract",
		Short: "Extract functions, imports, exports and classes from source files",
		Long: `ctxextract scans source files with per-language patterns and stores the
result keyed by the SHA-256 of the content. Records are served over an HTTP
JSON API and as MCP tools for coding assistants.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadDotEnv(".env")
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file (default is ./.ctxextract/config.yml)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")

	cmd.AddCommand(
		newServeCmd(opts),
		newMCPCmd(opts),
		newExtractCmd(opts),
		newIndexCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

// Execute runs the root command and exits non-zero on failure
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// loadDotEnv exports variables from path without overriding the environment.
// A missing file is not an error.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func (o *rootOptions) loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if o.configFile != "" {
		cfg, err = config.NewFileLoader(o.configFile).Load()
	} else {
		cfg, err = config.LoadConfig()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if o.logLevel != "" {
		if _, err := logging.ParseLevel(o.logLevel); err != nil {
			return nil, err
		}
		cfg.Log.Level = o.logLevel
	}
	return cfg, nil
}

// app holds the dependencies a subcommand works with
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   storage.Storage
	indexer *indexer.Indexer
}

// newApp loads configuration, opens the store and builds the indexer.
// Logs go to logOut; stdout stays free for command output and the MCP protocol.
func (o *rootOptions) newApp(logOut io.Writer) (*app, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, logOut)
	if err != nil {
		return nil, err
	}

	if cfg.Storage.DBPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Storage.DBPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	store, err := storage.NewSQLiteStorage(cfg.Storage.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	idx := indexer.New(store,
		indexer.WithLogger(logger),
		indexer.WithCache(cache.New(cfg.Cache.Size)),
		indexer.WithWorkers(cfg.Indexer.Workers),
	)

	logger.Debug("storage opened", "path", cfg.Storage.DBPath, "driver", storage.DriverName, "build", storage.BuildMode)

	return &app{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		indexer: idx,
	}, nil
}

// indexConfig translates the indexer section of the config
func (a *app) indexConfig() *indexer.Config {
	return &indexer.Config{
		Workers:     a.cfg.Indexer.Workers,
		BatchSize:   a.cfg.Indexer.BatchSize,
		MaxFileSize: a.cfg.Indexer.MaxFileSize,
		Ignore:      append([]string{}, a.cfg.Indexer.Ignore...),
	}
}

func (a *app) Close() error {
	return a.store.Close()
}
