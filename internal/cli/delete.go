package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newDeleteAllCmd() *cobra.Command {
	var (
		model string
		yes   bool
	)

	cmd := &cobra.Command{
		Use:   "delete-all",
		Short: "Delete every entry of a content model",
		Long: `Delete every entry of a model. This cannot be undone; the deletion is
recorded in the audit log as a critical action.`,
		Example: `  contentctl delete-all --model api::article.article --yes`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to delete without --yes")
			}

			ctx := withActor(cmd.Context())
			svc, cleanup, err := openService(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			n, err := svc.DeleteAllData(ctx, model)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d entr%s from %s\n", n, plural(n, "y", "ies"), model)
			return nil
		},
	}

	cmd.Flags().StringVar(&model, "model", "", "Model UID (required)")
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the deletion")

	_ = cmd.MarkFlagRequired("model")

	return cmd
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
