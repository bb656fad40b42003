package observability

import (
	"fmt"
	"time"
)

// Metrics holds figures derived from the event log.
type Metrics struct {
	ProjectsCreated     int            `json:"projects_created"`
	ProjectsByType      map[string]int `json:"projects_by_type"`
	TasksGenerated      int            `json:"tasks_generated"`
	TasksBySource       map[string]int `json:"tasks_by_source"`
	TasksByProjectType  map[string]int `json:"tasks_by_project_type"`
	GeneratedHours      int            `json:"generated_hours"`
	TasksCompleted      int            `json:"tasks_completed"`
	ProgressUpdates     int            `json:"progress_updates"`
	MilestonesTriggered int            `json:"milestones_triggered"`
	DependencyTriggers  int            `json:"dependency_triggers"`
	EventCount          int            `json:"event_count"`
	OldestEvent         *time.Time     `json:"oldest_event,omitempty"`
	NewestEvent         *time.Time     `json:"newest_event,omitempty"`
}

// MetricsCalculator derives metrics from the event log.
type MetricsCalculator interface {
	Calculate(since time.Time) (*Metrics, error)
}

type metricsCalculator struct {
	eventLog EventLog
}

// NewMetricsCalculator creates a MetricsCalculator that reads from eventLog.
func NewMetricsCalculator(eventLog EventLog) MetricsCalculator {
	return &metricsCalculator{eventLog: eventLog}
}

// Calculate aggregates every event at or after since.
func (mc *metricsCalculator) Calculate(since time.Time) (*Metrics, error) {
	events, err := mc.eventLog.Read(EventFilter{Since: &since})
	if err != nil {
		return nil, fmt.Errorf("reading events for metrics: %w", err)
	}

	m := &Metrics{
		ProjectsByType:     make(map[string]int),
		TasksBySource:      make(map[string]int),
		TasksByProjectType: make(map[string]int),
		EventCount:         len(events),
	}

	for i, event := range events {
		t := event.Time
		if i == 0 {
			m.OldestEvent = &t
		}
		m.NewestEvent = &t

		switch event.Type {
		case "project.created":
			m.ProjectsCreated++
			if pt, ok := event.Data["project_type"].(string); ok {
				m.ProjectsByType[pt]++
			}
		case "tasks.generated":
			n := intField(event.Data, "task_count")
			m.TasksGenerated += n
			if source, ok := event.Data["source"].(string); ok {
				m.TasksBySource[source] += n
			}
			if pt, ok := event.Data["project_type"].(string); ok {
				m.TasksByProjectType[pt] += n
			}
			m.GeneratedHours += intField(event.Data, "estimated_hours")
		case "task.completed":
			m.TasksCompleted++
		case "task.progress_updated":
			m.ProgressUpdates++
		case "milestone.triggered":
			m.MilestonesTriggered++
		case "dependency.triggered":
			m.DependencyTriggers++
		}
	}

	return m, nil
}

// intField reads a numeric event field. JSON decoding yields float64; events
// built in-process may carry int.
func intField(data map[string]any, key string) int {
	switch v := data[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	default:
		return 0
	}
}
