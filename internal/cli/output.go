package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/valter-silva-au/build-brain/pkg/models"
)

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("formatting as JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// printTasks writes one line per task in a fixed-width table.
func printTasks(w io.Writer, tasks []models.Task) {
	if len(tasks) == 0 {
		fmt.Fprintln(w, "No tasks found.")
		return
	}
	fmt.Fprintf(w, "  %-36s %-11s %-8s %4s %-10s %-10s %5s  %s\n", "ID", "STATUS", "PRIORITY", "DONE", "START", "DUE", "HOURS", "TITLE")
	fmt.Fprintf(w, "  %-36s %-11s %-8s %4s %-10s %-10s %5s  %s\n", "--", "------", "--------", "----", "-----", "---", "-----", "-----")
	for _, t := range tasks {
		fmt.Fprintf(w, "  %-36s %-11s %-8s %3d%% %-10s %-10s %5d  %s\n",
			t.ID, t.Status, t.Priority, t.CompletionPercentage, t.StartDate, t.DueDate, t.EstimatedHours, t.Title)
	}
	fmt.Fprintf(w, "\n  %d task(s)\n", len(tasks))
}

// printProject writes the project header block.
func printProject(w io.Writer, p models.Project, completion int) {
	fmt.Fprintf(w, "Project %s\n", p.ID)
	fmt.Fprintf(w, "  %-12s %s\n", "Title:", p.Title)
	fmt.Fprintf(w, "  %-12s %s\n", "Type:", p.ProjectType)
	fmt.Fprintf(w, "  %-12s %s\n", "Scale:", p.Scale)
	fmt.Fprintf(w, "  %-12s %s\n", "Start:", p.StartDate)
	fmt.Fprintf(w, "  %-12s %d%%\n", "Completion:", completion)
	if len(p.Phases) > 0 {
		fmt.Fprintf(w, "  %-12s %s\n", "Phases:", strings.Join(p.Phases, ", "))
	}
	if len(p.MilestonesFired) > 0 {
		fired := make([]string, len(p.MilestonesFired))
		for i, m := range p.MilestonesFired {
			fired[i] = fmt.Sprintf("%d%%", m)
		}
		fmt.Fprintf(w, "  %-12s %s\n", "Milestones:", strings.Join(fired, ", "))
	}
}
