package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dshills/ctxextract/internal/extractor"
	"github.com/dshills/ctxextract/internal/indexer"
	"github.com/dshills/ctxextract/pkg/types"
)

// extractOutput is what the extract command prints
type extractOutput struct {
	ID               string                 `json:"id,omitempty" yaml:"id,omitempty"`
	Created          *bool                  `json:"created,omitempty" yaml:"created,omitempty"`
	ProjectID        string                 `json:"projectId,omitempty" yaml:"projectId,omitempty"`
	FileName         string                 `json:"fileName" yaml:"fileName"`
	FilePath         string                 `json:"filePath" yaml:"filePath"`
	CodeHash         string                 `json:"codeHash" yaml:"codeHash"`
	ExtractorVersion string                 `json:"extractorVersion" yaml:"extractorVersion"`
	Context          types.ExtractedContext `json:"extractedContext" yaml:"extractedContext"`
}

func newExtractCmd(opts *rootOptions) *cobra.Command {
	var (
		format    string
		projectID string
		store     bool
	)

	cmd := &cobra.Command{
		Use:   "extract <file>",
		Short: "Print the extracted context of one file",
		Long: `Extract functions, imports, exports and classes from a file and print them.
With --store the result is also saved, keyed by the content hash.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format = strings.ToLower(format)
			if format != "json" && format != "yaml" {
				return fmt.Errorf("%w: unknown format %q (want json or yaml)", types.ErrInvalidRequest, format)
			}

			path := args[0]
			content, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", path, err)
			}

			out := extractOutput{
				FileName: filepath.Base(path),
				FilePath: filepath.ToSlash(path),
			}

			if !store {
				ec, hash := extractor.Extract(string(content), out.FileName)
				out.CodeHash = hash
				out.ExtractorVersion = extractor.PatternVersion
				out.Context = ec
				return writeOutput(cmd.OutOrStdout(), format, out)
			}

			a, err := opts.newApp(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			res, err := a.indexer.Extract(cmd.Context(), indexer.Request{
				ProjectID: projectID,
				FileName:  out.FileName,
				FilePath:  out.FilePath,
				Content:   string(content),
			})
			if err != nil {
				return err
			}

			rec := res.Record
			out.ID = rec.ID
			out.Created = &res.Created
			out.ProjectID = rec.ProjectID
			out.CodeHash = rec.CodeHash
			out.ExtractorVersion = rec.ExtractorVersion
			out.Context = rec.Context
			return writeOutput(cmd.OutOrStdout(), format, out)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "json", "output format: json or yaml")
	cmd.Flags().StringVar(&projectID, "project", "cli", "project id used with --store")
	cmd.Flags().BoolVar(&store, "store", false, "save the result in the database")
	return cmd
}

func writeOutput(w io.Writer, format string, v interface{}) error {
	if format == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		return enc.Close()
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
