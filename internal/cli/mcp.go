package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dshills/ctxextract/internal/indexer"
	"github.com/dshills/ctxextract/internal/mcp"
)

func newMCPCmd(opts *rootOptions) *cobra.Command {
	var (
		watchDir  string
		projectID string
	)

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server on stdio",
		Long: `Start the Model Context Protocol (MCP) server that lets coding assistants
extract, list and search stored contexts.

With --watch, files created or modified under the directory are re-extracted
while the server runs.

Example:
  ctxextract mcp --watch . --project web`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// stdout carries the protocol
			a, err := opts.newApp(os.Stderr)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			serverOpts := []mcp.Option{
				mcp.WithLogger(a.logger),
				mcp.WithIndexConfig(a.indexConfig()),
			}

			if watchDir != "" {
				root, err := filepath.Abs(watchDir)
				if err != nil {
					return fmt.Errorf("failed to resolve watch directory: %w", err)
				}
				if projectID == "" {
					projectID = filepath.Base(root)
				}
				w, err := indexer.NewWatcher(a.indexer, projectID, root, a.indexConfig())
				if err != nil {
					return fmt.Errorf("failed to create file watcher: %w", err)
				}
				serverOpts = append(serverOpts, mcp.WithWatcher(w))
				a.logger.Info("watching directory", "root", root, "project_id", projectID)
			}

			return mcp.NewServer(a.indexer, a.store, serverOpts...).Serve(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&watchDir, "watch", "", "re-extract files changed under this directory")
	cmd.Flags().StringVar(&projectID, "project", "", "project id for watched files (default: directory name)")
	return cmd
}
