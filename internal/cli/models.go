package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/ContentImport/internal/core"
)

func newModelsCmd() *cobra.Command {
	var count bool

	cmd := &cobra.Command{
		Use:   "models",
		Short: "List the content models that can be imported into",
		Example: `  # List built-in models
  contentctl models

  # List models from a custom catalogue
  MODELS_PATH=./models.yaml contentctl models

  # Include the number of stored entries per model
  contentctl models --count`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !count {
				if err := loadModels(); err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "GROUP\tUID\tKIND\tFIELDS")
				for _, group := range core.Groups() {
					for _, m := range core.ByGroup(group) {
						fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", group, m.UID, m.Kind, strings.Join(m.Fields, ", "))
					}
				}
				return tw.Flush()
			}

			ctx := cmd.Context()
			svc, cleanup, err := openService(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "GROUP\tUID\tKIND\tENTRIES\tFIELDS")
			for _, m := range svc.ListModels() {
				n, err := svc.CountEntries(ctx, m.UID)
				if err != nil {
					return err
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", m.Group, m.UID, m.Kind, n, strings.Join(m.Fields, ", "))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&count, "count", false, "Connect to the store and show how many entries each model holds")

	return cmd
}
