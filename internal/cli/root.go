package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	appVersion = "dev"
	appCommit  = "none"
	appDate    = "unknown"
)

// SetVersionInfo sets the version information injected via ldflags.
func SetVersionInfo(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

// Version returns the version injected via ldflags.
func Version() string {
	return appVersion
}

var rootCmd = &cobra.Command{
	Use:   "bdb",
	Short: "Build Brain - construction project task generator",
	Long: `Build Brain (bdb) turns a construction project's title and description into a
scheduled list of tasks drawn from residential, commercial and renovation
template catalogs.

It expands recurring site tasks over date ranges, adds milestone and
dependency-triggered tasks as work completes, and tracks progress, metrics
and alerts for every project.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "bdb %s\ncommit: %s\nbuilt:  %s\n", appVersion, appCommit, appDate)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
