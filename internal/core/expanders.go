package core

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/valter-silva-au/build-brain/pkg/models"
)

// MaxRecurringInstances caps how many instances a single recurring template
// can produce in one call. Longer ranges are truncated silently.
const MaxRecurringInstances = 100

// milestoneTaskDays is how long milestone-triggered tasks are given.
const milestoneTaskDays = 3

// recurrenceIntervalDays maps a pattern to its tick length. Months are
// approximated as 30 days.
var recurrenceIntervalDays = map[models.RecurrencePattern]int{
	models.RecurDaily:    1,
	models.RecurWeekly:   7,
	models.RecurBiweekly: 14,
	models.RecurMonthly:  30,
}

// GenerateRecurringTasks emits one instance per interval tick from startDate
// through endDate inclusive for every recurring template that applies to one
// of the project phases.
func (g *taskGenerator) GenerateRecurringTasks(projectID string, startDate, endDate time.Time, projectPhases []string) []models.Task {
	start := dateOnly(startDate)
	end := dateOnly(endDate)
	created := g.now().UTC()

	var tasks []models.Task
	for _, rt := range g.catalog.RecurringTemplates() {
		if !phasesOverlap(rt.ApplicablePhases, projectPhases) {
			continue
		}
		interval, ok := recurrenceIntervalDays[rt.Pattern]
		if !ok {
			continue
		}

		for i := 0; i < MaxRecurringInstances; i++ {
			instanceStart := start.AddDate(0, 0, i*interval)
			if instanceStart.After(end) {
				break
			}
			task := g.newTask(projectID, rt.TaskTemplate, models.SourceRecurring, instanceStart, instanceStart.AddDate(0, 0, 1), created)
			task.Title = fmt.Sprintf("%s (Instance %d)", rt.Title, i+1)
			tasks = append(tasks, task)
		}
	}
	return tasks
}

// phasesOverlap reports whether any project phase contains any of the
// applicable phase fragments, ignoring case.
func phasesOverlap(applicable, projectPhases []string) bool {
	for _, phase := range projectPhases {
		lp := strings.ToLower(phase)
		for _, a := range applicable {
			if a == "" {
				continue
			}
			if strings.Contains(lp, strings.ToLower(a)) {
				return true
			}
		}
	}
	return false
}

// GenerateMilestoneTasks emits the triggered tasks of every milestone whose
// threshold is at or below completionPercentage. The check is cumulative, so
// repeated calls regenerate the same tasks; deduplication is up to the caller.
func (g *taskGenerator) GenerateMilestoneTasks(projectID string, completionPercentage int) []models.Task {
	return g.milestoneTasks(projectID, completionPercentage, nil)
}

// GenerateNewMilestoneTasks is GenerateMilestoneTasks restricted to the
// milestones whose threshold is not listed in fired.
func (g *taskGenerator) GenerateNewMilestoneTasks(projectID string, completionPercentage int, fired []int) []models.Task {
	return g.milestoneTasks(projectID, completionPercentage, fired)
}

func (g *taskGenerator) milestoneTasks(projectID string, completionPercentage int, skip []int) []models.Task {
	start := g.today()
	due := start.AddDate(0, 0, milestoneTaskDays)
	created := g.now().UTC()

	var tasks []models.Task
	for _, mt := range g.catalog.MilestoneTemplates() {
		if mt.CompletionPercentage > completionPercentage || slices.Contains(skip, mt.CompletionPercentage) {
			continue
		}
		for _, tmpl := range mt.TriggeredTasks {
			tasks = append(tasks, g.newTask(projectID, tmpl, models.SourceMilestone, start, due, created))
		}
	}
	return tasks
}

// MilestonesReached returns the thresholds at or below completionPercentage,
// in catalog order.
func MilestonesReached(c *Catalog, completionPercentage int) []int {
	var reached []int
	for _, mt := range c.MilestoneTemplates() {
		if mt.CompletionPercentage <= completionPercentage {
			reached = append(reached, mt.CompletionPercentage)
		}
	}
	return reached
}

// GenerateDependencyBasedTasks emits tasks for templates, across every project
// type, that declare the completed task in depends_on. Titles that already
// exist in the project are skipped.
func (g *taskGenerator) GenerateDependencyBasedTasks(projectID, completedTaskTitle string, allProjectTasks []models.Task) []models.Task {
	existing := make(map[string]bool)
	completedRef := models.DependencyRef{
		Title:                completedTaskTitle,
		Status:               models.StatusCompleted,
		CompletionPercentage: 100,
	}
	for _, t := range allProjectTasks {
		if t.ProjectID != projectID {
			continue
		}
		existing[t.Title] = true
		if t.Title == completedTaskTitle && completedRef.ID == "" {
			completedRef.ID = t.ID
		}
	}

	start := g.today().AddDate(0, 0, 1)
	created := g.now().UTC()

	var tasks []models.Task
	for _, tmpl := range g.catalog.AllTaskTemplates() {
		if !slices.Contains(tmpl.DependsOn, completedTaskTitle) {
			continue
		}
		if existing[tmpl.Title] {
			continue
		}
		due := start.AddDate(0, 0, durationDays(tmpl.EstimatedHours))
		task := g.newTask(projectID, tmpl, models.SourceDependency, start, due, created)
		task.Dependencies = []models.DependencyRef{completedRef}
		tasks = append(tasks, task)
		existing[tmpl.Title] = true
	}
	return tasks
}
