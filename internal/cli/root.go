// Package cli implements contentctl, the command-line front end to the
// content import service. It shares the service, store and model catalogue
// with the HTTP server, so imports made here are audited and published the
// same way.
package cli

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// NewRootCmd builds the contentctl command tree.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contentctl",
		Short: "Import, export and manage content from JSON, YAML and CSV files",
		Long: `contentctl loads structured files into content models.

Files are parsed, their fields mapped onto the target model, and each
record is created in order. A collection import stops at the first record
the store rejects; records created before it are kept.

Configuration is read from the environment (and a .env file if present),
the same variables the server uses.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
	}

	cmd.AddCommand(newModelsCmd())
	cmd.AddCommand(newParseCmd())
	cmd.AddCommand(newImportCmd())
	cmd.AddCommand(newDeleteAllCmd())
	cmd.AddCommand(newExportCmd())
	cmd.AddCommand(newTemplatesCmd())

	return cmd
}
