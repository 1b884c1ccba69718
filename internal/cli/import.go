package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/ContentImport/internal/core"
)

func newImportCmd() *cobra.Command {
	var (
		model      string
		templateID string
		maps       []string
		noMapping  bool
	)

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a file into a content model",
		Long: `Import every record of a JSON, YAML or CSV file into a model.

For collection models each record is mapped and created in file order.
The mapping starts from the default proposal (fields whose names match a
model field), then a saved template is applied if --template is given,
then each --map override. The first record the store rejects stops the
import; records created before it are kept and the store's message is
printed.

Single-type models take exactly one record, stored as it is.`,
		Example: `  # Import articles with the default mapping
  contentctl import posts.csv --model api::article.article

  # Rename one field and drop another
  contentctl import posts.json --model api::article.article --map Headline=title --map Notes=

  # Start from a saved template
  contentctl import posts.csv --model api::article.article --template 6f1c...`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			overrides, err := parseOverrides(maps)
			if err != nil {
				return err
			}
			if noMapping && (templateID != "" || len(overrides) > 0) {
				return errors.New("--no-mapping cannot be combined with --template or --map")
			}

			ctx := withActor(cmd.Context())
			svc, cleanup, err := openService(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			desc, err := svc.GetModel(model)
			if err != nil {
				return err
			}

			src, err := readSource(ctx, args[0])
			if err != nil {
				return err
			}
			for _, w := range src.Warnings {
				fmt.Fprintf(cmd.ErrOrStderr(), "skipped line %d: %s\n", w.Line, w.Reason)
			}

			req := core.ImportRequest{TargetModel: desc.UID, Source: src}
			if desc.Kind == core.CollectionType && !noMapping {
				var tpl *core.MappingTemplate
				if templateID != "" {
					if tpl, err = svc.GetTemplate(ctx, templateID); err != nil {
						return err
					}
					if tpl.Model != desc.UID {
						return fmt.Errorf("template %s belongs to %s", tpl.ID, tpl.Model)
					}
				}
				if req.Mapping, err = buildMapping(src, desc, tpl, overrides); err != nil {
					return err
				}
			}

			result, err := svc.ImportData(ctx, req)
			if err != nil {
				var importErr *core.ImportError
				if errors.As(err, &importErr) {
					fmt.Fprintf(cmd.ErrOrStderr(), "record %d rejected; %d created before it were kept\n", importErr.Index+1, importErr.Index)
				}
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "imported %d record(s) into %s in %s (import %s)\n",
				result.Imported, result.TargetModel, result.Duration.Round(time.Millisecond), result.ImportID)
			return nil
		},
	}

	cmd.Flags().StringVar(&model, "model", "", "Target model UID (required)")
	cmd.Flags().StringVar(&templateID, "template", "", "Apply a saved mapping template")
	cmd.Flags().StringArrayVar(&maps, "map", nil, "Field override source=target; empty target drops the field (repeatable)")
	cmd.Flags().BoolVar(&noMapping, "no-mapping", false, "Store field names as they appear in the file")

	_ = cmd.MarkFlagRequired("model")

	return cmd
}
