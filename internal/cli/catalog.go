package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/build-brain/internal/core"
)

var catalogFormat string

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect the task template catalog",
}

var catalogShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the active catalog as YAML or TOML",
	Long: `Print the active catalog: the built-in templates merged with any
catalog.path overrides from .buildconfig. The output is a valid catalog file
and can be edited and pointed to with catalog.path.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Catalog == nil {
			return fmt.Errorf("catalog not initialized")
		}
		return core.ExportCatalog(cmd.OutOrStdout(), Catalog, core.CatalogFormat(catalogFormat))
	},
}

var catalogValidateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Validate the active catalog or a catalog file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := Catalog
		if len(args) == 1 {
			loaded, err := core.LoadCatalogFile(core.BuiltinCatalog(), args[0])
			if err != nil {
				return err
			}
			c = loaded
		}
		if c == nil {
			return fmt.Errorf("catalog not initialized")
		}
		if err := core.ValidateCatalog(c); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Catalog OK: %d project type(s), %d task template(s), %d recurring, %d milestone(s)\n",
			len(c.ProjectTypes()), len(c.AllTaskTemplates()), len(c.RecurringTemplates()), len(c.MilestoneTemplates()))
		return nil
	},
}

func init() {
	catalogShowCmd.Flags().StringVar(&catalogFormat, "format", "yaml", "Output format (yaml or toml)")
	catalogCmd.AddCommand(catalogShowCmd, catalogValidateCmd)
	rootCmd.AddCommand(catalogCmd)
}
