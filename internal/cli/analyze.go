package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var analyzeJSON bool

var analyzeCmd = &cobra.Command{
	Use:   "analyze <title> [description]",
	Short: "Classify a project by type and scale",
	Long: `Classify a construction project from its title and description.

The project type is commercial, renovation or residential depending on the
keywords found. The scale is small, medium or large depending on keywords and
the length of the description.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Generator == nil {
			return fmt.Errorf("task generator not initialized")
		}
		description := ""
		if len(args) > 1 {
			description = args[1]
		}

		analysis := Generator.Analyze(args[0], description)
		out := cmd.OutOrStdout()
		if analyzeJSON {
			return printJSON(out, analysis)
		}
		fmt.Fprintf(out, "  %-10s %s\n", "Type:", analysis.ProjectType)
		fmt.Fprintf(out, "  %-10s %s\n", "Scale:", analysis.Scale)
		fmt.Fprintf(out, "  %-10s %s\n", "Keywords:", strings.Join(analysis.Keywords, ", "))
		return nil
	},
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "Output the analysis as JSON")
	rootCmd.AddCommand(analyzeCmd)
}
