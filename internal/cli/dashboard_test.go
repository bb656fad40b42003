package cli

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/valter-silva-au/build-brain/internal/observability"
)

func loadedDashboard(t *testing.T, msg dataLoadedMsg) dashboardModel {
	t.Helper()
	updated, _ := newDashboardModel().Update(msg)
	return updated.(dashboardModel)
}

func sampleDashboardData() dataLoadedMsg {
	return dataLoadedMsg{
		projects: []projectSnapshot{
			{id: "p1", title: "Garden Shed", projectType: "residential", completion: 40},
			{id: "p2", title: "Office Fit-Out", projectType: "commercial", completion: 0},
		},
		taskCounts: map[string]map[string]int{
			allProjects: {"in_progress": 2, "not_started": 5, "completed": 1},
			"p1":        {"in_progress": 2, "completed": 1},
			"p2":        {"not_started": 5},
		},
		metrics: &metricsSnapshot{
			projectsCreated: 2,
			tasksGenerated:  8,
			generatedHours:  320,
			eventCount:      42,
		},
		alerts: []alertSnapshot{
			{severity: "high", message: "task blocked", time: "2024-03-15 10:30 UTC"},
			{severity: "low", message: "too many open tasks", time: "2024-03-15 10:30 UTC"},
		},
	}
}

func TestDashboardModel_Init(t *testing.T) {
	m := newDashboardModel()

	if m.activePanel != panelProjects {
		t.Errorf("expected activePanel = %d, got %d", panelProjects, m.activePanel)
	}
	if !m.loading {
		t.Error("expected loading = true on init")
	}
	if m.taskCounts == nil {
		t.Error("expected taskCounts to be initialized")
	}
	if m.Init() == nil {
		t.Error("expected Init to return a non-nil command")
	}
}

func TestDashboardModel_Quit(t *testing.T) {
	for _, key := range []tea.KeyMsg{
		{Type: tea.KeyRunes, Runes: []rune{'q'}},
		{Type: tea.KeyEscape},
		{Type: tea.KeyCtrlC},
	} {
		m := newDashboardModel()
		m.loading = false

		_, cmd := m.Update(key)
		if cmd == nil {
			t.Fatalf("expected quit command from %s", key)
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Errorf("expected tea.QuitMsg from %s", key)
		}
	}
}

func TestDashboardModel_TabCycles(t *testing.T) {
	var model tea.Model = newDashboardModel()
	for i := 1; i <= panelCount; i++ {
		model, _ = model.Update(tea.KeyMsg{Type: tea.KeyTab})
		if got := model.(dashboardModel).activePanel; got != i%panelCount {
			t.Fatalf("after %d tabs activePanel = %d, want %d", i, got, i%panelCount)
		}
	}

	model, _ = model.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	if got := model.(dashboardModel).activePanel; got != panelAlerts {
		t.Errorf("shift+tab from projects = %d, want %d", got, panelAlerts)
	}
	if model.(dashboardModel).projects.Focused() {
		t.Error("project table should lose focus off its panel")
	}
}

func TestDashboardModel_Refresh(t *testing.T) {
	m := newDashboardModel()
	m.loading = false

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}})
	if !updated.(dashboardModel).loading {
		t.Error("expected loading = true after r")
	}
	if cmd == nil {
		t.Error("expected a reload command from r key")
	}
}

func TestDashboardModel_SpinnerStopsAfterLoad(t *testing.T) {
	m := loadedDashboard(t, sampleDashboardData())

	_, cmd := m.Update(spinner.TickMsg{})
	if cmd != nil {
		t.Error("spinner should not keep ticking once data is loaded")
	}
}

func TestDashboardModel_DataLoaded(t *testing.T) {
	m := loadedDashboard(t, sampleDashboardData())

	if m.loading || m.err != nil {
		t.Fatalf("unexpected state: loading=%v err=%v", m.loading, m.err)
	}
	if rows := m.projects.Rows(); len(rows) != 2 || rows[0][3] != "40%" {
		t.Errorf("unexpected project rows: %v", rows)
	}
	if got := m.selectedProjectID(); got != "p1" {
		t.Errorf("selectedProjectID = %q, want p1", got)
	}
	if m.metricsData == nil || m.metricsData.tasksGenerated != 8 {
		t.Errorf("unexpected metrics: %+v", m.metricsData)
	}
	if len(m.alerts) != 2 {
		t.Errorf("expected 2 alerts, got %d", len(m.alerts))
	}
}

func TestDashboardModel_SelectProject(t *testing.T) {
	m := loadedDashboard(t, sampleDashboardData())
	m.width = 100

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyDown})
	dm := updated.(dashboardModel)
	if got := dm.selectedProjectID(); got != "p2" {
		t.Fatalf("selectedProjectID after down = %q, want p2", got)
	}
	panel := dm.renderTasksPanel()
	if !strings.Contains(panel, "Tasks: p2") || !strings.Contains(panel, "not_started") {
		t.Errorf("tasks panel should show p2 counts:\n%s", panel)
	}
	if strings.Contains(panel, "in_progress") {
		t.Errorf("tasks panel leaked p1 counts:\n%s", panel)
	}
}

func TestDashboardModel_ArrowKeysIgnoredOffProjects(t *testing.T) {
	m := loadedDashboard(t, sampleDashboardData())
	m.activePanel = panelAlerts
	m.syncTableFocus()

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyDown})
	if got := updated.(dashboardModel).selectedProjectID(); got != "p1" {
		t.Errorf("selection moved while alerts panel active: %q", got)
	}
}

func TestDashboardModel_DataLoadedError(t *testing.T) {
	m := loadedDashboard(t, dataLoadedMsg{err: errors.New("connection failed")})
	if m.loading {
		t.Error("expected loading = false after error")
	}
	if m.err == nil || m.err.Error() != "connection failed" {
		t.Fatalf("expected error 'connection failed', got %v", m.err)
	}
	m.width = 100
	if !strings.Contains(m.View(), "Error: connection failed") {
		t.Error("expected error in view")
	}
}

func TestDashboardModel_WindowResize(t *testing.T) {
	updated, cmd := newDashboardModel().Update(tea.WindowSizeMsg{Width: 200, Height: 50})
	if cmd != nil {
		t.Error("expected no command from window resize")
	}
	dm := updated.(dashboardModel)
	if dm.width != 200 || dm.height != 50 {
		t.Errorf("size = %dx%d, want 200x50", dm.width, dm.height)
	}
}

func TestDashboardModel_ViewLoading(t *testing.T) {
	m := newDashboardModel()
	if m.View() != "Loading..." {
		t.Errorf("expected placeholder before first resize, got %q", m.View())
	}
	m.width = 100
	if !strings.Contains(m.View(), "Loading data") {
		t.Error("expected loading view to contain 'Loading data'")
	}
}

func TestDashboardModel_ViewLayouts(t *testing.T) {
	for _, width := range []int{80, 160} {
		m := loadedDashboard(t, sampleDashboardData())
		m.width = width
		m.height = 40

		view := m.View()
		for _, want := range []string{"bdb Dashboard", "Projects", "Garden Shed", "Tasks: p1", "in_progress", "Metrics", "Alerts", "[HIGH]"} {
			if !strings.Contains(view, want) {
				t.Errorf("width %d: view missing %q", width, want)
			}
		}
	}
}

func TestDashboardModel_ViewEmpty(t *testing.T) {
	m := loadedDashboard(t, dataLoadedMsg{taskCounts: map[string]map[string]int{allProjects: {}}})
	m.width = 100

	view := m.View()
	for _, want := range []string{"No projects yet", "No tasks found.", "No metrics available.", "No active alerts."} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestDashboardLoadData(t *testing.T) {
	svc := withTestServices(t)
	project, tasks := createTestProject(t, svc)
	if _, err := svc.UpdateTaskProgress(context.Background(), tasks[0].ID, 100, ""); err != nil {
		t.Fatalf("UpdateTaskProgress: %v", err)
	}

	now := time.Now().UTC()
	withMetrics(t, &metricsMock{calcFn: func(time.Time) (*observability.Metrics, error) {
		return &observability.Metrics{ProjectsCreated: 1, TasksGenerated: 5, EventCount: 3}, nil
	}})
	withAlerts(t, &alertsMock{alerts: []observability.Alert{
		{Severity: observability.SeverityLow, Message: "low one", TriggeredAt: now},
		{Severity: observability.SeverityHigh, Message: "high one", TriggeredAt: now},
	}}, nil)

	data, ok := loadData().(dataLoadedMsg)
	if !ok {
		t.Fatal("expected dataLoadedMsg")
	}
	if data.err != nil {
		t.Fatalf("unexpected error: %v", data.err)
	}
	if len(data.projects) != 1 || data.projects[0].id != project.ID {
		t.Fatalf("unexpected projects: %+v", data.projects)
	}
	if data.taskCounts[project.ID]["completed"] != 1 {
		t.Errorf("expected 1 completed task, got %v", data.taskCounts[project.ID])
	}
	if data.taskCounts[allProjects]["completed"] != 1 {
		t.Errorf("expected totals to include the project, got %v", data.taskCounts[allProjects])
	}
	if data.metrics == nil || data.metrics.tasksGenerated != 5 {
		t.Errorf("unexpected metrics: %+v", data.metrics)
	}
	if len(data.alerts) != 2 || data.alerts[0].severity != "high" {
		t.Errorf("expected high alert first, got %+v", data.alerts)
	}
}

func TestDashboardLoadData_MetricsError(t *testing.T) {
	withTestServices(t)
	withMetrics(t, &metricsMock{calcFn: func(time.Time) (*observability.Metrics, error) {
		return nil, errors.New("bad log")
	}})
	withAlerts(t, nil, nil)

	data := loadData().(dataLoadedMsg)
	if data.err == nil || !strings.Contains(data.err.Error(), "loading metrics") {
		t.Errorf("expected metrics error, got %v", data.err)
	}
}

func TestDashboardCmd_NilProjects(t *testing.T) {
	orig := Projects
	defer func() { Projects = orig }()
	Projects = nil

	_, err := runCommand(t, "dashboard")
	if err == nil || !strings.Contains(err.Error(), "project service not initialized") {
		t.Fatalf("expected not initialized error, got %v", err)
	}
}
