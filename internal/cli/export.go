package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/ContentImport/internal/core"
)

func newExportCmd() *cobra.Command {
	var (
		model  string
		format string
		output string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export every entry of a content model",
		Long: `Export every entry of a model as JSON, YAML or CSV. The output can be
imported again with the same format.`,
		Example: `  # Print articles as JSON
  contentctl export --model api::article.article

  # Write a CSV file
  contentctl export --model api::article.article --format csv --output articles.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := exportFormat(format)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			svc, cleanup, err := openService(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			data, err := svc.Export(ctx, model, f)
			if err != nil {
				return err
			}

			if output == "" || output == "-" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d bytes to %s\n", len(data), output)
			return nil
		},
	}

	cmd.Flags().StringVar(&model, "model", "", "Model UID (required)")
	cmd.Flags().StringVar(&format, "format", "json", "Output format: json, yaml or csv")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to a file instead of stdout")

	_ = cmd.MarkFlagRequired("model")

	return cmd
}

// exportFormat validates the --format flag.
func exportFormat(s string) (core.Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return core.FormatJSON, nil
	case "yaml", "yml":
		return core.FormatYAML, nil
	case "csv":
		return core.FormatCSV, nil
	default:
		return "", fmt.Errorf("unsupported format %q: want json, yaml or csv", s)
	}
}
