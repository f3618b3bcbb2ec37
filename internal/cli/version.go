package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/ctxextract/internal/extractor"
	"github.com/dshills/ctxextract/internal/storage"
)

var (
	// Version information - typically set via ldflags at build time
	Version   = "dev"
	GitCommit = "none"
	BuildDate = "unknown"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ctxextract %s\n", Version)
			fmt.Fprintf(out, "Git commit: %s\n", GitCommit)
			fmt.Fprintf(out, "Build date: %s\n", BuildDate)
			fmt.Fprintf(out, "Extractor: %s\n", extractor.PatternVersion)
			fmt.Fprintf(out, "Extensions: %s\n", strings.Join(extractor.SupportedExtensions(), ", "))
			fmt.Fprintf(out, "Schema: %s\n", storage.CurrentSchemaVersion)
			fmt.Fprintf(out, "SQLite driver: %s (%s)\n", storage.DriverName, storage.BuildMode)
		},
	}
}
