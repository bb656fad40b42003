package observability

import (
	"fmt"
	"time"

	"github.com/valter-silva-au/build-brain/internal/core"
	"github.com/valter-silva-au/build-brain/pkg/models"
)

// AlertSeverity represents the urgency of an alert.
type AlertSeverity string

const (
	SeverityHigh   AlertSeverity = "high"
	SeverityMedium AlertSeverity = "medium"
	SeverityLow    AlertSeverity = "low"
)

// Alert represents a triggered alert condition.
type Alert struct {
	ID          string        `json:"id"`
	Condition   string        `json:"condition"`
	Severity    AlertSeverity `json:"severity"`
	ProjectID   string        `json:"project_id"`
	TaskID      string        `json:"task_id,omitempty"`
	Message     string        `json:"message"`
	TriggeredAt time.Time     `json:"triggered_at"`
}

// AlertThresholds configures when alerts should fire.
type AlertThresholds struct {
	// OverdueDays is the grace period after a due date before a task is
	// reported overdue.
	OverdueDays         int `yaml:"overdue_days" json:"overdue_days"`
	HighRiskProbability int `yaml:"high_risk_probability" json:"high_risk_probability"`
	// MaxOpenTasks of zero disables the open task check.
	MaxOpenTasks int `yaml:"max_open_tasks" json:"max_open_tasks"`
}

// DefaultAlertThresholds returns sensible defaults for alert thresholds.
func DefaultAlertThresholds() AlertThresholds {
	return AlertThresholds{
		OverdueDays:         0,
		HighRiskProbability: 70,
		MaxOpenTasks:        50,
	}
}

// ThresholdsFromConfig converts the alerts section of the global config.
func ThresholdsFromConfig(cfg models.AlertConfig) AlertThresholds {
	return AlertThresholds{
		OverdueDays:         cfg.OverdueDays,
		HighRiskProbability: cfg.HighRiskProbability,
		MaxOpenTasks:        cfg.MaxOpenTasks,
	}
}

// TaskLister is the read side of the task store the alert engine needs.
type TaskLister interface {
	ListTasks(filter core.TaskFilter) ([]models.Task, error)
}

// AlertEngine evaluates alert conditions against the current schedule.
type AlertEngine interface {
	// Evaluate checks the tasks of projectID, or of every project when
	// projectID is empty.
	Evaluate(projectID string) ([]Alert, error)
}

type alertEngine struct {
	tasks      TaskLister
	thresholds AlertThresholds
	now        func() time.Time
}

// NewAlertEngine creates an AlertEngine reading from tasks. now defaults to
// time.Now.
func NewAlertEngine(tasks TaskLister, thresholds AlertThresholds, now func() time.Time) AlertEngine {
	if now == nil {
		now = time.Now
	}
	return &alertEngine{
		tasks:      tasks,
		thresholds: thresholds,
		now:        now,
	}
}

// Evaluate lists tasks and checks all alert conditions, returning any
// triggered alerts grouped by condition.
func (ae *alertEngine) Evaluate(projectID string) ([]Alert, error) {
	tasks, err := ae.tasks.ListTasks(core.TaskFilter{ProjectID: projectID})
	if err != nil {
		return nil, fmt.Errorf("listing tasks for alerts: %w", err)
	}
	now := ae.now().UTC()

	var alerts []Alert
	alerts = append(alerts, ae.checkOverdue(tasks, now)...)
	alerts = append(alerts, ae.checkBlocked(tasks, now)...)
	alerts = append(alerts, ae.checkHighRisk(tasks, now)...)
	alerts = append(alerts, ae.checkOpenTasks(tasks, now)...)
	return alerts, nil
}

func isOpen(t models.Task) bool {
	return t.Status != models.StatusCompleted && t.Status != models.StatusCancelled
}

// checkOverdue reports open tasks whose due date plus the grace period is
// before today. Tasks with an unparseable due date are skipped.
func (ae *alertEngine) checkOverdue(tasks []models.Task, now time.Time) []Alert {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	var alerts []Alert
	for _, t := range tasks {
		if !isOpen(t) || t.DueDate == "" {
			continue
		}
		due, err := time.Parse(models.DateLayout, t.DueDate)
		if err != nil {
			continue
		}
		if !due.AddDate(0, 0, ae.thresholds.OverdueDays).Before(today) {
			continue
		}
		severity := SeverityMedium
		if t.Priority == models.PriorityCritical || t.Priority == models.PriorityHigh {
			severity = SeverityHigh
		}
		days := int(today.Sub(due).Hours() / 24)
		alerts = append(alerts, Alert{
			ID:          fmt.Sprintf("overdue-%s", t.ID),
			Condition:   "task_overdue",
			Severity:    severity,
			ProjectID:   t.ProjectID,
			TaskID:      t.ID,
			Message:     fmt.Sprintf("task %q was due %s and is %d days overdue (%d%% complete)", t.Title, t.DueDate, days, t.CompletionPercentage),
			TriggeredAt: now,
		})
	}
	return alerts
}

// checkBlocked reports in-progress tasks whose prerequisites are unfinished.
func (ae *alertEngine) checkBlocked(tasks []models.Task, now time.Time) []Alert {
	byID := make(map[string]models.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}
	var alerts []Alert
	for _, id := range core.BlockedTasks(tasks) {
		t := byID[id]
		alerts = append(alerts, Alert{
			ID:          fmt.Sprintf("blocked-%s", t.ID),
			Condition:   "task_blocked",
			Severity:    SeverityHigh,
			ProjectID:   t.ProjectID,
			TaskID:      t.ID,
			Message:     fmt.Sprintf("task %q is in progress but a prerequisite is not completed", t.Title),
			TriggeredAt: now,
		})
	}
	return alerts
}

// checkHighRisk reports open tasks carrying a risk at or above the
// probability threshold. One alert is raised per task, for its most probable
// risk.
func (ae *alertEngine) checkHighRisk(tasks []models.Task, now time.Time) []Alert {
	var alerts []Alert
	for _, t := range tasks {
		if !isOpen(t) {
			continue
		}
		worst := -1
		for i, r := range t.Risks {
			if r.Probability < ae.thresholds.HighRiskProbability {
				continue
			}
			if worst < 0 || r.Probability > t.Risks[worst].Probability {
				worst = i
			}
		}
		if worst < 0 {
			continue
		}
		r := t.Risks[worst]
		severity := SeverityMedium
		if r.Impact == models.ImpactCritical || r.Impact == models.ImpactHigh {
			severity = SeverityHigh
		}
		alerts = append(alerts, Alert{
			ID:          fmt.Sprintf("risk-%s", t.ID),
			Condition:   "high_risk",
			Severity:    severity,
			ProjectID:   t.ProjectID,
			TaskID:      t.ID,
			Message:     fmt.Sprintf("task %q has a %d%% %s risk: %s", t.Title, r.Probability, r.Type, r.Description),
			TriggeredAt: now,
		})
	}
	return alerts
}

// checkOpenTasks reports projects with more open tasks than allowed.
func (ae *alertEngine) checkOpenTasks(tasks []models.Task, now time.Time) []Alert {
	if ae.thresholds.MaxOpenTasks <= 0 {
		return nil
	}
	counts := make(map[string]int)
	var order []string
	for _, t := range tasks {
		if !isOpen(t) {
			continue
		}
		if _, seen := counts[t.ProjectID]; !seen {
			order = append(order, t.ProjectID)
		}
		counts[t.ProjectID]++
	}

	var alerts []Alert
	for _, projectID := range order {
		n := counts[projectID]
		if n <= ae.thresholds.MaxOpenTasks {
			continue
		}
		alerts = append(alerts, Alert{
			ID:          fmt.Sprintf("open-tasks-%s", projectID),
			Condition:   "too_many_open_tasks",
			Severity:    SeverityLow,
			ProjectID:   projectID,
			Message:     fmt.Sprintf("project has %d open tasks, exceeding the maximum of %d", n, ae.thresholds.MaxOpenTasks),
			TriggeredAt: now,
		})
	}
	return alerts
}
