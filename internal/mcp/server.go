package mcp

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/ctxextract/internal/indexer"
	"github.com/dshills/ctxextract/internal/logging"
	"github.com/dshills/ctxextract/internal/storage"
)

const (
	// ServerName is the MCP server name
	ServerName = "ctxextract"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp      *server.MCPServer
	storage  storage.Storage
	indexer  *indexer.Indexer
	logger   *slog.Logger
	indexCfg *indexer.Config
	watcher  *indexer.Watcher
}

// Option configures a Server
type Option func(*Server)

// WithLogger sets the logger used by tool handlers
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithIndexConfig sets the defaults used by index_directory
func WithIndexConfig(cfg *indexer.Config) Option {
	return func(s *Server) {
		s.indexCfg = cfg
	}
}

// WithWatcher runs w for the lifetime of Serve
func WithWatcher(w *indexer.Watcher) Option {
	return func(s *Server) {
		s.watcher = w
	}
}

// NewServer creates a new MCP server instance over idx and store
func NewServer(idx *indexer.Indexer, store storage.Storage, opts ...Option) *Server {
	s := &Server{
		mcp: server.NewMCPServer(
			ServerName,
			ServerVersion,
			server.WithToolCapabilities(true),
		),
		storage: store,
		indexer: idx,
		logger:  logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.registerTools()
	return s
}

// Serve runs the MCP protocol on stdio until ctx is cancelled or stdin closes
func (s *Server) Serve(ctx context.Context) error {
	if s.watcher != nil {
		s.watcher.Start(ctx)
		defer s.watcher.Stop()
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting MCP server on stdio", "name", ServerName, "version", ServerVersion)
		errCh <- server.ServeStdio(s.mcp)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("MCP server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		s.logger.Info("MCP server stopping")
		return nil
	}
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(extractContextTool(), s.handleExtractContext)
	s.mcp.AddTool(getContextTool(), s.handleGetContext)
	s.mcp.AddTool(listContextsTool(), s.handleListContexts)
	s.mcp.AddTool(searchSymbolsTool(), s.handleSearchSymbols)
	s.mcp.AddTool(findImportersTool(), s.handleFindImporters)
	s.mcp.AddTool(indexDirectoryTool(), s.handleIndexDirectory)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
}
