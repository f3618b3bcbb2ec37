package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
)

func newIndexCmd(opts *rootOptions) *cobra.Command {
	var (
		projectID string
		ignore    []string
		quiet     bool
	)

	cmd := &cobra.Command{
		Use:   "index <dir>",
		Short: "Extract every recognised source file under a directory",
		Long: `Walk a directory and extract every file whose extension maps to a known
language. Hidden directories, ignore patterns and files above
indexer.max_file_size are skipped.

Example:
  ctxextract index ./web --project web --ignore 'fixtures/**'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("failed to resolve %s: %w", args[0], err)
			}
			info, err := os.Stat(root)
			if err != nil {
				return err
			}
			if !info.IsDir() {
				return fmt.Errorf("%s is not a directory", root)
			}
			if projectID == "" {
				projectID = filepath.Base(root)
			}

			a, err := opts.newApp(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			progress := newProgressReporter(cmd.ErrOrStderr(), quiet)
			cfg := a.indexConfig()
			cfg.Ignore = append(cfg.Ignore, ignore...)
			cfg.Progress = progress.Update

			stats, err := a.indexer.IndexDirectory(cmd.Context(), projectID, root, cfg)
			progress.Finish()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Project:   %s\n", projectID)
			fmt.Fprintf(out, "Extracted: %d (%d new, %d updated)\n", stats.FilesExtracted, stats.FilesCreated, stats.FilesUpdated)
			fmt.Fprintf(out, "Skipped:   %d\n", stats.FilesSkipped)
			fmt.Fprintf(out, "Failed:    %d\n", stats.FilesFailed)
			fmt.Fprintf(out, "Duration:  %s\n", stats.Duration.Round(time.Millisecond))
			for _, msg := range stats.ErrorMessages {
				fmt.Fprintf(out, "  error: %s\n", msg)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "project id for the records (default: directory name)")
	cmd.Flags().StringSliceVar(&ignore, "ignore", nil, "extra glob patterns to skip, relative to dir")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "hide the progress bar")
	return cmd
}
