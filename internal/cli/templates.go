package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newTemplatesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "templates",
		Short: "Manage saved mapping templates",
	}

	cmd.AddCommand(newTemplatesListCmd())
	cmd.AddCommand(newTemplatesSaveCmd())
	cmd.AddCommand(newTemplatesDeleteCmd())

	return cmd
}

func newTemplatesListCmd() *cobra.Command {
	var model string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List templates for a model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, cleanup, err := openService(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			desc, err := svc.GetModel(model)
			if err != nil {
				return err
			}
			templates, err := svc.ListTemplates(ctx, desc.UID)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tSOURCE FIELDS\tUPDATED")
			for _, t := range templates {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", t.ID, t.Name, strings.Join(t.SourceFields, ", "), t.UpdatedAt.Format("2006-01-02 15:04"))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&model, "model", "", "Model UID (required)")
	_ = cmd.MarkFlagRequired("model")

	return cmd
}

func newTemplatesSaveCmd() *cobra.Command {
	var (
		model string
		name  string
		file  string
		maps  []string
	)

	cmd := &cobra.Command{
		Use:   "save",
		Short: "Save a mapping template built from a sample file",
		Long: `Save a named mapping for a model. The mapping is proposed from the
fields of --file and adjusted with --map overrides, the same way import
builds it.`,
		Example: `  contentctl templates save --model api::article.article --name legacy-blog \
    --file posts.csv --map Headline=title --map Permalink=slug`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			overrides, err := parseOverrides(maps)
			if err != nil {
				return err
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
			src, err := readSource(ctx, file)
			if err != nil {
				return err
			}
			mapping, err := buildMapping(src, desc, nil, overrides)
			if err != nil {
				return err
			}

			tpl, err := svc.CreateTemplate(ctx, desc.UID, name, mapping)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved template %q (%s)\n", tpl.Name, tpl.ID)
			printMapping(cmd, tpl.Mapping)
			return nil
		},
	}

	cmd.Flags().StringVar(&model, "model", "", "Model UID (required)")
	cmd.Flags().StringVar(&name, "name", "", "Template name (required)")
	cmd.Flags().StringVar(&file, "file", "", "Sample file whose fields the template maps (required)")
	cmd.Flags().StringArrayVar(&maps, "map", nil, "Field override source=target (repeatable)")
	_ = cmd.MarkFlagRequired("model")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func newTemplatesDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := withActor(cmd.Context())
			svc, cleanup, err := openService(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := svc.DeleteTemplate(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted template %s\n", args[0])
			return nil
		},
	}
}
