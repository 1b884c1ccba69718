package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/ContentImport/internal/core"
)

func newParseCmd() *cobra.Command {
	var model string

	cmd := &cobra.Command{
		Use:   "parse <file>",
		Short: "Parse a file and show its fields without importing",
		Long: `Parse a JSON, YAML or CSV file and print what an import would see:
the detected shape, the record count, the fields of the first record and
any skipped CSV rows.

With --model the default mapping onto that model is shown as well.`,
		Example: `  # Inspect a CSV export
  contentctl parse posts.csv

  # Preview the mapping onto the article model
  contentctl parse posts.json --model api::article.article`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadModels(); err != nil {
				return err
			}

			src, err := readSource(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			shape := "single object"
			if src.Collection {
				shape = "collection"
			}
			fmt.Fprintf(out, "format:   %s\n", src.Format)
			fmt.Fprintf(out, "shape:    %s\n", shape)
			fmt.Fprintf(out, "records:  %d\n", src.Len())

			sample, ok := src.Sample()
			if ok {
				fmt.Fprintf(out, "fields:   %s\n", strings.Join(sample.Keys(), ", "))
			}
			for _, w := range src.Warnings {
				fmt.Fprintf(out, "warning:  line %d: %s\n", w.Line, w.Reason)
			}

			if model == "" {
				return nil
			}
			desc, err := core.Lookup(model)
			if err != nil {
				return err
			}
			if desc.Kind == core.SingleType {
				fmt.Fprintf(out, "\n%s is a single type; fields are stored as they are\n", desc.UID)
				return nil
			}

			mapping := core.ProposeDefaultMapping(src, desc.Fields)
			fmt.Fprintf(out, "\nmapping onto %s:\n", desc.UID)
			printMapping(cmd, mapping)
			return nil
		},
	}

	cmd.Flags().StringVar(&model, "model", "", "Model UID to propose a mapping for")

	return cmd
}

// printMapping writes one "source -> target" line per field.
func printMapping(cmd *cobra.Command, m *core.FieldMapping) {
	out := cmd.OutOrStdout()
	for _, src := range m.Fields() {
		dst, _ := m.Target(src)
		if dst == "" {
			dst = "(skipped)"
		}
		fmt.Fprintf(out, "  %s -> %s\n", src, dst)
	}
}
