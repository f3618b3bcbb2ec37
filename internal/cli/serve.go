package cli

import (
	"github.com/spf13/cobra"

	"github.com/dshills/ctxextract/internal/api"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP JSON API",
		Long: `Serve extraction records over HTTP:

  POST /api/mcp/context          extract and store one file
  GET  /api/mcp/context          list records (projectId, language, limit, offset)
  GET  /api/mcp/context/{id}     fetch one record
  GET  /api/mcp/context/stats    counts per project and language`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.newApp(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			if addr == "" {
				addr = a.cfg.HTTP.Addr
			}

			srv := api.NewServer(a.indexer, a.store,
				api.WithLogger(a.logger),
				api.WithMaxBodyBytes(a.cfg.HTTP.MaxBodyBytes),
			)
			return srv.ListenAndServe(cmd.Context(), addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides http.addr)")
	return cmd
}
