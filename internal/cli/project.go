package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/build-brain/internal/core"
	"github.com/valter-silva-au/build-brain/pkg/models"
)

var (
	projectJSON    bool
	projectType    string
	projectStart   string
	reportOutput   string
	reportTemplate string
	recurringFrom  string
	recurringTo    string
	recurringWeeks int
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Create and inspect construction projects",
}

var projectCreateCmd = &cobra.Command{
	Use:   "create <title> [description]",
	Short: "Create a project and generate its task schedule",
	Long: `Classify the project, generate its template tasks starting at --start
(default: defaults.start_date from .buildconfig, else today) and save both.

--type overrides the classified project type. It is case-insensitive and
must name a project type in the catalog.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Projects == nil {
			return fmt.Errorf("project service not initialized")
		}
		description := ""
		if len(args) > 1 {
			description = args[1]
		}
		opts := core.CreateProjectOpts{StartDate: projectStart}
		if projectType != "" {
			if Generator == nil {
				return fmt.Errorf("generator not initialized")
			}
			pt, err := Generator.Catalog().ResolveProjectType(projectType)
			if err != nil {
				return err
			}
			opts.ProjectType = pt
		}
		if Config != nil {
			if opts.ProjectType == "" {
				opts.ProjectType = Config.DefaultProjectType
			}
			if opts.StartDate == "" {
				opts.StartDate = Config.DefaultStartDate
			}
		}
		if opts.StartDate != "" {
			if _, err := time.Parse(models.DateLayout, opts.StartDate); err != nil {
				return fmt.Errorf("invalid start date %q: expected YYYY-MM-DD", opts.StartDate)
			}
		}

		project, tasks, err := Projects.CreateProject(cmd.Context(), args[0], description, opts)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if projectJSON {
			return printJSON(out, map[string]any{"project": project, "tasks": tasks})
		}
		printProject(out, *project, 0)
		fmt.Fprintln(out)
		printTasks(out, tasks)
		return nil
	},
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all projects",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Projects == nil {
			return fmt.Errorf("project service not initialized")
		}
		projects, err := Projects.ListProjects()
		if err != nil {
			return fmt.Errorf("listing projects: %w", err)
		}

		out := cmd.OutOrStdout()
		if projectJSON {
			return printJSON(out, projects)
		}
		if len(projects) == 0 {
			fmt.Fprintln(out, "No projects found.")
			return nil
		}
		fmt.Fprintf(out, "  %-36s %-12s %-7s %-10s %5s  %s\n", "ID", "TYPE", "SCALE", "START", "DONE", "TITLE")
		for _, p := range projects {
			completion, err := Projects.ProjectCompletion(p.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "  %-36s %-12s %-7s %-10s %4d%%  %s\n", p.ID, p.ProjectType, p.Scale, p.StartDate, completion, p.Title)
		}
		return nil
	},
}

var projectShowCmd = &cobra.Command{
	Use:   "show <project-id>",
	Short: "Show a project with its tasks",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Projects == nil {
			return fmt.Errorf("project service not initialized")
		}
		project, err := Projects.GetProject(args[0])
		if err != nil {
			return fmt.Errorf("getting project: %w", err)
		}
		tasks, err := Projects.ListTasks(core.TaskFilter{ProjectID: project.ID})
		if err != nil {
			return fmt.Errorf("listing tasks: %w", err)
		}
		completion, err := Projects.ProjectCompletion(project.ID)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if projectJSON {
			return printJSON(out, map[string]any{"project": project, "completion": completion, "tasks": tasks})
		}
		printProject(out, *project, completion)
		fmt.Fprintln(out)
		printTasks(out, tasks)
		return nil
	},
}

var projectReportCmd = &cobra.Command{
	Use:   "report <project-id>",
	Short: "Render a Markdown schedule report",
	Long: `Render the project schedule as Markdown: a summary, a phase table, every
task with its dates, hours and three-point estimate, and the open risks.

--template replaces the built-in report template with a text/template file.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Projects == nil || ReportGen == nil {
			return fmt.Errorf("report generator not initialized")
		}
		if reportTemplate != "" {
			if err := ReportGen.RegisterTemplate(reportTemplate); err != nil {
				return err
			}
		}
		project, err := Projects.GetProject(args[0])
		if err != nil {
			return fmt.Errorf("getting project: %w", err)
		}
		tasks, err := Projects.ListTasks(core.TaskFilter{ProjectID: project.ID})
		if err != nil {
			return fmt.Errorf("listing tasks: %w", err)
		}

		report, err := ReportGen.Render(*project, tasks)
		if err != nil {
			return err
		}
		if reportOutput == "" {
			fmt.Fprint(cmd.OutOrStdout(), report)
			return nil
		}
		if err := os.WriteFile(reportOutput, []byte(report), 0o644); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s\n", reportOutput)
		return nil
	},
}

var projectRecurringCmd = &cobra.Command{
	Use:   "recurring <project-id>",
	Short: "Add recurring site tasks for a date range",
	Long: `Expand the recurring templates (safety walks, progress meetings, quality
audits, budget reviews) that apply to the project's phases between --from and
--to inclusive, and save the instances.

--from defaults to the project start date; --to defaults to --weeks weeks
after --from.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Projects == nil {
			return fmt.Errorf("project service not initialized")
		}
		project, err := Projects.GetProject(args[0])
		if err != nil {
			return fmt.Errorf("getting project: %w", err)
		}

		from := recurringFrom
		if from == "" {
			from = project.StartDate
		}
		start, err := time.Parse(models.DateLayout, from)
		if err != nil {
			return fmt.Errorf("invalid --from %q: expected YYYY-MM-DD", from)
		}
		end := start.AddDate(0, 0, 7*recurringWeeks-1)
		if recurringTo != "" {
			end, err = time.Parse(models.DateLayout, recurringTo)
			if err != nil {
				return fmt.Errorf("invalid --to %q: expected YYYY-MM-DD", recurringTo)
			}
		}

		tasks, err := Projects.AddRecurringTasks(cmd.Context(), project.ID, start, end)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if projectJSON {
			return printJSON(out, tasks)
		}
		fmt.Fprintf(out, "Added %d recurring task(s) from %s to %s\n\n",
			len(tasks), start.Format(models.DateLayout), end.Format(models.DateLayout))
		printTasks(out, tasks)
		return nil
	},
}

func init() {
	projectCmd.PersistentFlags().BoolVar(&projectJSON, "json", false, "Output as JSON")

	projectCreateCmd.Flags().StringVar(&projectType, "type", "", "Project type override (residential, commercial, renovation)")
	projectCreateCmd.Flags().StringVar(&projectStart, "start", "", "Schedule start date YYYY-MM-DD")

	projectReportCmd.Flags().StringVarP(&reportOutput, "output", "o", "", "Write the report to this file instead of stdout")
	projectReportCmd.Flags().StringVar(&reportTemplate, "template", "", "Custom report template file")

	projectRecurringCmd.Flags().StringVar(&recurringFrom, "from", "", "First date YYYY-MM-DD (default: project start)")
	projectRecurringCmd.Flags().StringVar(&recurringTo, "to", "", "Last date YYYY-MM-DD, inclusive")
	projectRecurringCmd.Flags().IntVar(&recurringWeeks, "weeks", 4, "Range length in weeks when --to is not given")

	projectCmd.AddCommand(projectCreateCmd, projectListCmd, projectShowCmd, projectReportCmd, projectRecurringCmd)
	rootCmd.AddCommand(projectCmd)
}
