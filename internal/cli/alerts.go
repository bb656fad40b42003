package cli

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/build-brain/internal/observability"
)

var (
	alertsProject string
	alertsNotify  bool
	alertsJSON    bool
	alertsPending bool
)

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Show active schedule alerts",
	Long: `Evaluate alert conditions against stored tasks and display any triggered alerts.

Alerts check for overdue tasks, tasks blocked by unfinished dependencies,
high-probability risks on open tasks, and projects with too many open tasks.
With --notify the alerts are also posted to the configured Slack webhook.
With --pending the notifications still waiting in the outbox are listed
instead.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if alertsPending {
			return printPendingNotifications(cmd.OutOrStdout())
		}

		engine, err := alertEngine()
		if err != nil {
			return err
		}

		alerts, err := engine.Evaluate(alertsProject)
		if err != nil {
			return fmt.Errorf("evaluating alerts: %w", err)
		}

		if alertsNotify {
			if Notifier == nil {
				return fmt.Errorf("notifications are not configured (set notifications.enabled and notifications.slack.webhook_url)")
			}
			if err := Notifier.Notify(cmd.Context(), alerts); err != nil {
				Logger.Warn("sending alert notification", slog.String("error", err.Error()))
			}
		}

		out := cmd.OutOrStdout()
		if alertsJSON {
			return printJSON(out, alerts)
		}
		if len(alerts) == 0 {
			fmt.Fprintln(out, "No active alerts.")
			return nil
		}

		fmt.Fprintf(out, "%d active alert(s):\n\n", len(alerts))
		for _, alert := range alerts {
			severity := strings.ToUpper(string(alert.Severity))
			fmt.Fprintf(out, "  [%s] %s\n", severity, alert.Message)
			where := "project " + alert.ProjectID
			if alert.TaskID != "" {
				where += ", task " + alert.TaskID
			}
			fmt.Fprintf(out, "         %s, triggered at %s\n\n", where, alert.TriggeredAt.Format("2006-01-02 15:04 UTC"))
		}

		return nil
	},
}

// alertEngine returns the configured engine, or one over Projects using the
// configured thresholds (built-in defaults when no config is loaded).
func alertEngine() (observability.AlertEngine, error) {
	if AlertEngine != nil {
		return AlertEngine, nil
	}
	if Projects == nil {
		return nil, fmt.Errorf("alert engine not initialized")
	}
	thresholds := observability.DefaultAlertThresholds()
	if Config != nil {
		thresholds = observability.ThresholdsFromConfig(Config.Alerts)
	}
	return observability.NewAlertEngine(Projects, thresholds, nil), nil
}

func printPendingNotifications(out io.Writer) error {
	pending, err := observability.PendingNotifications(BasePath)
	if err != nil {
		return err
	}
	if alertsJSON {
		if pending == nil {
			pending = []observability.QueuedNotification{}
		}
		return printJSON(out, pending)
	}
	if len(pending) == 0 {
		fmt.Fprintln(out, "No pending notifications.")
		return nil
	}

	fmt.Fprintf(out, "%d pending notification(s), oldest first:\n\n", len(pending))
	for _, batch := range pending {
		fmt.Fprintf(out, "  %s  queued %s  %d alert(s)  %d attempt(s)\n",
			batch.ID, batch.QueuedAt.Format("2006-01-02 15:04 UTC"), len(batch.Alerts), batch.Attempts)
	}
	return nil
}

func init() {
	alertsCmd.Flags().StringVar(&alertsProject, "project", "", "Only evaluate this project")
	alertsCmd.Flags().BoolVar(&alertsNotify, "notify", false, "Post the alerts to Slack")
	alertsCmd.Flags().BoolVar(&alertsJSON, "json", false, "Output alerts as JSON")
	alertsCmd.Flags().BoolVar(&alertsPending, "pending", false, "List notifications waiting in the outbox")
	rootCmd.AddCommand(alertsCmd)
}
