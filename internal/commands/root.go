package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/budgetbox/budgetbox/internal/buildinfo"
	"github.com/budgetbox/budgetbox/internal/config"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "budgetbox",
		Short:   "Personal budget book with balanced splits and fund allocations",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		newInitCommand(),
		newServeCommand(),
		newReconcileCommand(),
		newImportCommand(),
		newImportCategoriesCommand(),
		newExportCommand(),
		newFundsCommand(),
		newSuggestCommand(),
	)

	return rootCmd
}

// bookFlag registers --book, defaulting to $BUDGETBOX_BOOK or ".".
func bookFlag(cmd *cobra.Command, dst *string) {
	def := os.Getenv(config.EnvBook)
	if def == "" {
		def = "."
	}
	cmd.Flags().StringVar(dst, "book", def, "book directory (env "+config.EnvBook+")")
}
