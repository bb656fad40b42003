package cli

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/build-brain/internal/core"
	"github.com/valter-silva-au/build-brain/pkg/models"
)

var (
	taskJSON    bool
	taskProject string
	taskStatus  string
	taskPhase   string
	taskSource  string
	progressTo  string
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "List tasks and record progress",
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks with optional filters",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Projects == nil {
			return fmt.Errorf("project service not initialized")
		}
		tasks, err := Projects.ListTasks(core.TaskFilter{
			ProjectID: taskProject,
			Status:    models.TaskStatus(taskStatus),
			Phase:     taskPhase,
			Source:    models.TaskSource(taskSource),
		})
		if err != nil {
			return fmt.Errorf("listing tasks: %w", err)
		}

		out := cmd.OutOrStdout()
		if taskJSON {
			return printJSON(out, tasks)
		}
		printTasks(out, tasks)
		return nil
	},
}

var validTaskStatuses = []models.TaskStatus{
	models.StatusNotStarted,
	models.StatusInProgress,
	models.StatusOnHold,
	models.StatusCompleted,
	models.StatusCancelled,
}

func parseTaskStatus(s string) (models.TaskStatus, error) {
	if s == "" {
		return "", nil
	}
	for _, status := range validTaskStatuses {
		if string(status) == s {
			return status, nil
		}
	}
	names := make([]string, len(validTaskStatuses))
	for i, status := range validTaskStatuses {
		names[i] = string(status)
	}
	return "", fmt.Errorf("invalid status %q: must be one of %s", s, strings.Join(names, ", "))
}

var taskProgressCmd = &cobra.Command{
	Use:   "progress <task-id> <percent>",
	Short: "Record progress on a task",
	Long: `Set a task's completion percentage (clamped to 0-100).

Reaching 100, or passing --status completed, completes the task. Completing a
task adds any tasks that depend on it; when the project's overall completion
passes a milestone (25, 50, 75, 100) the milestone's tasks are added once.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Projects == nil {
			return fmt.Errorf("project service not initialized")
		}
		percent, err := strconv.Atoi(strings.TrimSuffix(args[1], "%"))
		if err != nil {
			return fmt.Errorf("invalid percent %q: %w", args[1], err)
		}
		status, err := parseTaskStatus(progressTo)
		if err != nil {
			return err
		}

		result, err := Projects.UpdateTaskProgress(cmd.Context(), args[0], percent, status)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if taskJSON {
			return printJSON(out, result)
		}
		fmt.Fprintf(out, "Task %s is %d%% complete (%s)\n", result.Task.ID, result.Task.CompletionPercentage, result.Task.Status)
		fmt.Fprintf(out, "Project is %d%% complete\n", result.ProjectCompletion)
		if len(result.DependencyTasks) > 0 {
			fmt.Fprintf(out, "\nUnlocked %d dependent task(s):\n", len(result.DependencyTasks))
			printTasks(out, result.DependencyTasks)
		}
		for _, m := range result.MilestonesTriggered {
			fmt.Fprintf(out, "\nMilestone %d%% reached\n", m)
		}
		if len(result.MilestoneTasks) > 0 {
			printTasks(out, result.MilestoneTasks)
		}
		return nil
	},
}

// taskDependencies is the JSON shape of task deps.
type taskDependencies struct {
	Task          models.Task   `json:"task"`
	Level         int           `json:"level"`
	Prerequisites []models.Task `json:"prerequisites"`
	Dependents    []models.Task `json:"dependents"`
}

var taskDepsCmd = &cobra.Command{
	Use:   "deps <task-id>",
	Short: "Show the tasks a task waits on and the tasks waiting on it",
	Long: `Build the dependency graph of the task's project and show the task's
dependency level, its prerequisites and its dependents.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Projects == nil {
			return fmt.Errorf("project service not initialized")
		}
		all, err := Projects.ListTasks(core.TaskFilter{})
		if err != nil {
			return fmt.Errorf("listing tasks: %w", err)
		}
		var task *models.Task
		for i := range all {
			if all[i].ID == args[0] {
				task = &all[i]
				break
			}
		}
		if task == nil {
			return fmt.Errorf("task %s: %w", args[0], core.ErrTaskNotFound)
		}

		var projectTasks []models.Task
		byID := make(map[string]models.Task)
		for _, t := range all {
			if t.ProjectID == task.ProjectID {
				projectTasks = append(projectTasks, t)
				byID[t.ID] = t
			}
		}
		g := core.BuildDependencyGraph(projectTasks)
		deps := taskDependencies{Task: *task, Level: -1, Prerequisites: []models.Task{}, Dependents: []models.Task{}}
		for _, id := range g.Prerequisites(task.ID) {
			deps.Prerequisites = append(deps.Prerequisites, byID[id])
		}
		for _, id := range g.Dependents(task.ID) {
			deps.Dependents = append(deps.Dependents, byID[id])
		}
		levels, err := g.Phases()
		for i, ids := range levels {
			if slices.Contains(ids, task.ID) {
				deps.Level = i
			}
		}

		out := cmd.OutOrStdout()
		if taskJSON {
			return printJSON(out, deps)
		}
		fmt.Fprintf(out, "Task %s: %s\n", task.ID, task.Title)
		if deps.Level >= 0 {
			fmt.Fprintf(out, "Dependency level %d of %d\n", deps.Level, len(levels)-1)
		} else if errors.Is(err, core.ErrDependencyCycle) {
			fmt.Fprintln(out, "Task is part of a dependency cycle")
		}
		fmt.Fprintln(out, "\nPrerequisites:")
		printTasks(out, deps.Prerequisites)
		fmt.Fprintln(out, "\nDependents:")
		printTasks(out, deps.Dependents)
		return nil
	},
}

func init() {
	taskCmd.PersistentFlags().BoolVar(&taskJSON, "json", false, "Output as JSON")

	taskListCmd.Flags().StringVar(&taskProject, "project", "", "Only tasks of this project")
	taskListCmd.Flags().StringVar(&taskStatus, "status", "", "Filter by status")
	taskListCmd.Flags().StringVar(&taskPhase, "phase", "", "Filter by exact phase name")
	taskListCmd.Flags().StringVar(&taskSource, "source", "", "Filter by source (template, recurring, milestone, dependency)")

	taskProgressCmd.Flags().StringVar(&progressTo, "status", "", "Explicit status (not_started, in_progress, on_hold, completed, cancelled)")

	taskCmd.AddCommand(taskListCmd, taskProgressCmd, taskDepsCmd)
	rootCmd.AddCommand(taskCmd)
}
