package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	bdbmcp "github.com/valter-silva-au/build-brain/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  "Commands for running the bdb MCP (Model Context Protocol) server.",
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the bdb MCP server on stdio",
	Long: `Start the bdb MCP server on stdio transport.

The server exposes the task generator and project store as MCP tools that AI
assistants can call: analyze_project, generate_project_tasks,
generate_recurring_tasks, generate_milestone_tasks, generate_dependency_tasks,
create_project, list_tasks, update_task_progress, get_metrics, get_alerts.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Generator == nil || Projects == nil {
			return fmt.Errorf("task generator not initialized")
		}

		srv := bdbmcp.NewServer(Generator, Projects, MetricsCalc, AlertEngine, appVersion)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		if err := srv.Run(ctx); err != nil {
			return fmt.Errorf("running MCP server: %w", err)
		}

		return nil
	},
}

func init() {
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}
