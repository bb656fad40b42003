package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/build-brain/internal/core"
)

var initCatalog string

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Initialize a bdb workspace",
	Long: `Write a starter .buildconfig into the given directory (default: current).

With --catalog, the built-in template catalog is also exported to that file
(YAML or TOML by extension) so it can be edited and referenced from
catalog.path.

Safe to run on existing workspaces -- files that already exist are skipped
and not overwritten.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		basePath := "."
		if len(args) > 0 {
			basePath = args[0]
		}
		absPath, err := filepath.Abs(basePath)
		if err != nil {
			return fmt.Errorf("resolving path: %w", err)
		}

		written, err := core.InitWorkspace(absPath, initCatalog)
		if err != nil {
			return fmt.Errorf("initializing workspace: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(written) == 0 {
			fmt.Fprintf(out, "Workspace at %s is already initialized.\n", absPath)
			return nil
		}
		fmt.Fprintln(out, "Created:")
		for _, p := range written {
			rel, err := filepath.Rel(absPath, p)
			if err != nil {
				rel = p
			}
			fmt.Fprintf(out, "  %s\n", rel)
		}
		return nil
	},
}

func init() {
	initCmd.Flags().StringVar(&initCatalog, "catalog", "", "Also export the built-in catalog to this file (.yaml, .yml or .toml)")
	rootCmd.AddCommand(initCmd)
}
