package observability

import (
	"testing"
	"time"
)

func TestMetricsCalculator_Empty(t *testing.T) {
	log, _ := newTestEventLog(t)

	m, err := NewMetricsCalculator(log).Calculate(time.Time{})
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if m.EventCount != 0 || m.TasksGenerated != 0 {
		t.Errorf("expected empty metrics, got %+v", m)
	}
	if m.OldestEvent != nil || m.NewestEvent != nil {
		t.Error("expected nil event bounds")
	}
}

func TestMetricsCalculator_AggregatesEvents(t *testing.T) {
	log, _ := newTestEventLog(t)
	at := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	clock := func() time.Time { at = at.Add(time.Minute); return at }
	rec := NewEventRecorder(log, clock)

	logs := []struct {
		typ  string
		data map[string]any
	}{
		{"project.created", map[string]any{"project_id": "p1", "project_type": "residential"}},
		{"tasks.generated", map[string]any{"project_id": "p1", "project_type": "residential", "source": "template", "task_count": 7, "estimated_hours": 300}},
		{"project.created", map[string]any{"project_id": "p2", "project_type": "commercial"}},
		{"tasks.generated", map[string]any{"project_id": "p2", "project_type": "commercial", "source": "template", "task_count": 4, "estimated_hours": 500}},
		{"tasks.generated", map[string]any{"project_id": "p2", "project_type": "commercial", "source": "recurring", "task_count": 3, "estimated_hours": 6}},
		{"task.progress_updated", map[string]any{"project_id": "p1", "task_id": "t1"}},
		{"task.completed", map[string]any{"project_id": "p1", "task_id": "t1"}},
		{"dependency.triggered", map[string]any{"project_id": "p1", "task_count": 1}},
		{"milestone.triggered", map[string]any{"project_id": "p1", "threshold": 25}},
	}
	for _, l := range logs {
		if err := rec.LogEvent(l.typ, l.data); err != nil {
			t.Fatalf("LogEvent: %v", err)
		}
	}

	m, err := NewMetricsCalculator(log).Calculate(time.Time{})
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}

	checks := []struct {
		name      string
		got, want int
	}{
		{"ProjectsCreated", m.ProjectsCreated, 2},
		{"ProjectsByType[residential]", m.ProjectsByType["residential"], 1},
		{"TasksGenerated", m.TasksGenerated, 14},
		{"TasksBySource[template]", m.TasksBySource["template"], 11},
		{"TasksBySource[recurring]", m.TasksBySource["recurring"], 3},
		{"TasksByProjectType[commercial]", m.TasksByProjectType["commercial"], 7},
		{"GeneratedHours", m.GeneratedHours, 806},
		{"ProgressUpdates", m.ProgressUpdates, 1},
		{"TasksCompleted", m.TasksCompleted, 1},
		{"DependencyTriggers", m.DependencyTriggers, 1},
		{"MilestonesTriggered", m.MilestonesTriggered, 1},
		{"EventCount", m.EventCount, len(logs)},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %d, want %d", c.name, c.got, c.want)
		}
	}
	if m.OldestEvent == nil || m.NewestEvent == nil || !m.NewestEvent.After(*m.OldestEvent) {
		t.Errorf("event bounds wrong: %v .. %v", m.OldestEvent, m.NewestEvent)
	}
}

func TestMetricsCalculator_Since(t *testing.T) {
	log, _ := newTestEventLog(t)
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		err := log.Write(Event{
			Time: base.AddDate(0, 0, i),
			Type: "task.completed",
		})
		if err != nil {
			t.Fatalf("writing event: %v", err)
		}
	}

	m, err := NewMetricsCalculator(log).Calculate(base.AddDate(0, 0, 3))
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if m.TasksCompleted != 2 {
		t.Errorf("TasksCompleted = %d, want 2", m.TasksCompleted)
	}
}

func TestIntField(t *testing.T) {
	data := map[string]any{"f": 3.0, "i": 4, "i64": int64(5), "s": "6"}
	for key, want := range map[string]int{"f": 3, "i": 4, "i64": 5, "s": 0, "missing": 0} {
		if got := intField(data, key); got != want {
			t.Errorf("intField(%q) = %d, want %d", key, got, want)
		}
	}
}
