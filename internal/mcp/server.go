// Package mcp provides an MCP (Model Context Protocol) server that exposes
// bdb project analysis, task generation and progress tracking as MCP tools.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"time"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/valter-silva-au/build-brain/internal/core"
	"github.com/valter-silva-au/build-brain/internal/observability"
	"github.com/valter-silva-au/build-brain/pkg/models"
)

// previewProjectID is stamped on tasks generated without a project.
const previewProjectID = "preview"

// Server wraps bdb services and exposes them as MCP tools.
type Server struct {
	server      *gomcp.Server
	generator   core.TaskGenerator
	projects    core.ProjectService
	metricsCalc observability.MetricsCalculator
	alertEngine observability.AlertEngine
}

// NewServer creates a new MCP server with the given bdb service dependencies.
// metricsCalc and alertEngine may be nil if observability is disabled.
func NewServer(generator core.TaskGenerator, projects core.ProjectService, metricsCalc observability.MetricsCalculator, alertEngine observability.AlertEngine, version string) *Server {
	if version == "" {
		version = "dev"
	}

	s := &Server{
		generator:   generator,
		projects:    projects,
		metricsCalc: metricsCalc,
		alertEngine: alertEngine,
	}

	s.server = gomcp.NewServer(
		&gomcp.Implementation{Name: "bdb", Version: version},
		nil,
	)

	s.registerTools()

	return s
}

// Run starts the MCP server on stdio, blocking until the client disconnects
// or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &gomcp.StdioTransport{})
}

// MCPServer returns the underlying mcp.Server for testing purposes.
func (s *Server) MCPServer() *gomcp.Server {
	return s.server
}

// --- Tool input/output types ---

type analyzeProjectInput struct {
	Title       string `json:"title" jsonschema:"the project title"`
	Description string `json:"description,omitempty" jsonschema:"free-form project description"`
}

type analysisOutput struct {
	ProjectType string   `json:"project_type"`
	Scale       string   `json:"scale"`
	Keywords    []string `json:"keywords,omitempty"`
}

type generateProjectTasksInput struct {
	ProjectID   string `json:"project_id,omitempty" jsonschema:"project ID stamped on the generated tasks. Defaults to preview."`
	Title       string `json:"title" jsonschema:"the project title"`
	Description string `json:"description,omitempty" jsonschema:"free-form project description"`
	ProjectType string `json:"project_type,omitempty" jsonschema:"override the classified type (residential, commercial, renovation), case-insensitive"`
	StartDate   string `json:"start_date,omitempty" jsonschema:"schedule start date YYYY-MM-DD. Defaults to today."`
}

type generateRecurringTasksInput struct {
	ProjectID string   `json:"project_id" jsonschema:"the project the tasks belong to"`
	StartDate string   `json:"start_date" jsonschema:"first date of the range YYYY-MM-DD"`
	EndDate   string   `json:"end_date" jsonschema:"last date of the range YYYY-MM-DD, inclusive"`
	Phases    []string `json:"phases,omitempty" jsonschema:"project phase names. Defaults to the stored project's phases."`
}

type generateMilestoneTasksInput struct {
	ProjectID            string `json:"project_id" jsonschema:"the project the tasks belong to"`
	CompletionPercentage int    `json:"completion_percentage" jsonschema:"overall project completion 0-100"`
}

type generateDependencyTasksInput struct {
	ProjectID          string `json:"project_id" jsonschema:"the stored project whose tasks are checked"`
	CompletedTaskTitle string `json:"completed_task_title" jsonschema:"title of the task that was just completed"`
}

type createProjectInput struct {
	Title       string `json:"title" jsonschema:"the project title"`
	Description string `json:"description,omitempty" jsonschema:"free-form project description"`
	ProjectType string `json:"project_type,omitempty" jsonschema:"override the classified type (residential, commercial, renovation), case-insensitive"`
	StartDate   string `json:"start_date,omitempty" jsonschema:"schedule start date YYYY-MM-DD. Defaults to today."`
}

type projectOutput struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Description     string   `json:"description,omitempty"`
	ProjectType     string   `json:"project_type"`
	Scale           string   `json:"scale"`
	StartDate       string   `json:"start_date"`
	Phases          []string `json:"phases,omitempty"`
	MilestonesFired []int    `json:"milestones_fired,omitempty"`
	Created         string   `json:"created"`
}

type createProjectOutput struct {
	Project projectOutput `json:"project"`
	Tasks   []taskOutput  `json:"tasks"`
	Count   int           `json:"count"`
}

type dependencyOutput struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Status string `json:"status"`
}

type riskOutput struct {
	Level       string `json:"level"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Probability int    `json:"probability"`
	Impact      string `json:"impact"`
}

type taskOutput struct {
	ID                   string             `json:"id"`
	ProjectID            string             `json:"project_id"`
	Title                string             `json:"title"`
	Status               string             `json:"status"`
	Priority             string             `json:"priority"`
	CompletionPercentage int                `json:"completion_percentage"`
	PhaseName            string             `json:"phase_name"`
	StartDate            string             `json:"start_date"`
	DueDate              string             `json:"due_date"`
	EstimatedHours       int                `json:"estimated_hours"`
	OptimisticHours      float64            `json:"optimistic_hours"`
	MostLikelyHours      float64            `json:"most_likely_hours"`
	PessimisticHours     float64            `json:"pessimistic_hours"`
	WeatherDependent     bool               `json:"weather_dependent"`
	RequiresInspection   bool               `json:"requires_inspection"`
	Dependencies         []dependencyOutput `json:"dependencies,omitempty"`
	Risks                []riskOutput       `json:"risks,omitempty"`
	Source               string             `json:"source"`
	Created              string             `json:"created"`
}

type tasksOutput struct {
	Tasks []taskOutput `json:"tasks"`
	Count int          `json:"count"`
}

type listTasksInput struct {
	ProjectID string `json:"project_id,omitempty" jsonschema:"only tasks of this project"`
	Status    string `json:"status,omitempty" jsonschema:"filter by status (not_started, in_progress, on_hold, completed, cancelled)"`
	Phase     string `json:"phase,omitempty" jsonschema:"filter by exact phase name"`
	Source    string `json:"source,omitempty" jsonschema:"filter by source (template, recurring, milestone, dependency)"`
}

type updateTaskProgressInput struct {
	TaskID               string `json:"task_id" jsonschema:"the task to update"`
	CompletionPercentage int    `json:"completion_percentage" jsonschema:"new completion 0-100. 100 completes the task."`
	Status               string `json:"status,omitempty" jsonschema:"optional explicit status (not_started, in_progress, on_hold, completed, cancelled)"`
}

type updateTaskProgressOutput struct {
	Task                taskOutput   `json:"task"`
	ProjectCompletion   int          `json:"project_completion"`
	MilestonesTriggered []int        `json:"milestones_triggered,omitempty"`
	GeneratedTasks      []taskOutput `json:"generated_tasks,omitempty"`
	Message             string       `json:"message"`
}

type getMetricsInput struct {
	Since string `json:"since,omitempty" jsonschema:"time window for metrics (e.g. 7d, 30d, 24h). Defaults to 7d."`
}

type metricsOutput struct {
	ProjectsCreated     int            `json:"projects_created"`
	ProjectsByType      map[string]int `json:"projects_by_type"`
	TasksGenerated      int            `json:"tasks_generated"`
	TasksBySource       map[string]int `json:"tasks_by_source"`
	TasksByProjectType  map[string]int `json:"tasks_by_project_type"`
	GeneratedHours      int            `json:"generated_hours"`
	TasksCompleted      int            `json:"tasks_completed"`
	MilestonesTriggered int            `json:"milestones_triggered"`
	EventCount          int            `json:"event_count"`
	OldestEvent         string         `json:"oldest_event,omitempty"`
	NewestEvent         string         `json:"newest_event,omitempty"`
}

type getAlertsInput struct {
	ProjectID string `json:"project_id,omitempty" jsonschema:"only evaluate this project"`
}

type alertOutput struct {
	ID          string `json:"id"`
	Condition   string `json:"condition"`
	Severity    string `json:"severity"`
	ProjectID   string `json:"project_id"`
	TaskID      string `json:"task_id,omitempty"`
	Message     string `json:"message"`
	TriggeredAt string `json:"triggered_at"`
}

type getAlertsOutput struct {
	Alerts []alertOutput `json:"alerts"`
	Count  int           `json:"count"`
}

// --- Tool registration ---

func (s *Server) registerTools() {
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "analyze_project",
		Description: "Classify a construction project from its title and description. Returns the project type, scale and keywords.",
	}, s.handleAnalyzeProject)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "generate_project_tasks",
		Description: "Generate the scheduled template tasks for a project without saving them.",
	}, s.handleGenerateProjectTasks)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "generate_recurring_tasks",
		Description: "Generate recurring task instances (safety walks, meetings, audits, budget reviews) for a date range without saving them.",
	}, s.handleGenerateRecurringTasks)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "generate_milestone_tasks",
		Description: "Generate the tasks triggered by every milestone reached at the given completion percentage, without saving them.",
	}, s.handleGenerateMilestoneTasks)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "generate_dependency_tasks",
		Description: "Generate the tasks that become available once the named task of a stored project is completed, without saving them.",
	}, s.handleGenerateDependencyTasks)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "create_project",
		Description: "Create a project, generate its template schedule and save both.",
	}, s.handleCreateProject)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "list_tasks",
		Description: "List saved tasks with optional project, status, phase and source filters.",
	}, s.handleListTasks)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "update_task_progress",
		Description: "Record progress on a saved task. Completing a task generates dependent tasks, and reaching a milestone generates its tasks once.",
	}, s.handleUpdateTaskProgress)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_metrics",
		Description: "Get aggregated metrics from the event log, including projects created, tasks generated by source and milestones reached.",
	}, s.handleGetMetrics)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_alerts",
		Description: "Evaluate and return active alerts (overdue tasks, blocked tasks, high-risk tasks, too many open tasks).",
	}, s.handleGetAlerts)
}

// --- Tool handlers ---

func (s *Server) handleAnalyzeProject(_ context.Context, _ *gomcp.CallToolRequest, input analyzeProjectInput) (*gomcp.CallToolResult, analysisOutput, error) {
	a := s.generator.Analyze(input.Title, input.Description)
	return nil, analysisOutput{
		ProjectType: string(a.ProjectType),
		Scale:       string(a.Scale),
		Keywords:    a.Keywords,
	}, nil
}

func (s *Server) handleGenerateProjectTasks(_ context.Context, _ *gomcp.CallToolRequest, input generateProjectTasksInput) (*gomcp.CallToolResult, tasksOutput, error) {
	if input.Title == "" {
		return errorResult("title is required"), emptyTasksOutput(), nil
	}
	projectType, err := s.generator.Catalog().ResolveProjectType(input.ProjectType)
	if err != nil {
		return errorResult(err.Error()), emptyTasksOutput(), nil
	}
	projectID := input.ProjectID
	if projectID == "" {
		projectID = previewProjectID
	}
	tasks := s.generator.GenerateTasksFromProject(projectID, input.Title, input.Description, core.GenerateOpts{
		ProjectType: projectType,
		StartDate:   input.StartDate,
	})
	return nil, tasksToOutput(tasks), nil
}

func (s *Server) handleGenerateRecurringTasks(_ context.Context, _ *gomcp.CallToolRequest, input generateRecurringTasksInput) (*gomcp.CallToolResult, tasksOutput, error) {
	start, err := time.Parse(models.DateLayout, input.StartDate)
	if err != nil {
		return errorResult(fmt.Sprintf("invalid start_date %q: expected YYYY-MM-DD", input.StartDate)), emptyTasksOutput(), nil
	}
	end, err := time.Parse(models.DateLayout, input.EndDate)
	if err != nil {
		return errorResult(fmt.Sprintf("invalid end_date %q: expected YYYY-MM-DD", input.EndDate)), emptyTasksOutput(), nil
	}

	phases := input.Phases
	if len(phases) == 0 && s.projects != nil {
		project, err := s.projects.GetProject(input.ProjectID)
		if err != nil {
			return errorResult(fmt.Sprintf("phases not given and project unavailable: %s", err)), emptyTasksOutput(), nil
		}
		phases = project.Phases
	}

	tasks := s.generator.GenerateRecurringTasks(input.ProjectID, start, end, phases)
	return nil, tasksToOutput(tasks), nil
}

func (s *Server) handleGenerateMilestoneTasks(_ context.Context, _ *gomcp.CallToolRequest, input generateMilestoneTasksInput) (*gomcp.CallToolResult, tasksOutput, error) {
	tasks := s.generator.GenerateMilestoneTasks(input.ProjectID, input.CompletionPercentage)
	return nil, tasksToOutput(tasks), nil
}

func (s *Server) handleGenerateDependencyTasks(_ context.Context, _ *gomcp.CallToolRequest, input generateDependencyTasksInput) (*gomcp.CallToolResult, tasksOutput, error) {
	if s.projects == nil {
		return errorResult("project store not available"), emptyTasksOutput(), nil
	}
	if input.CompletedTaskTitle == "" {
		return errorResult("completed_task_title is required"), emptyTasksOutput(), nil
	}
	existing, err := s.projects.ListTasks(core.TaskFilter{ProjectID: input.ProjectID})
	if err != nil {
		return errorResult(fmt.Sprintf("listing tasks of %s: %s", input.ProjectID, err)), emptyTasksOutput(), nil
	}
	tasks := s.generator.GenerateDependencyBasedTasks(input.ProjectID, input.CompletedTaskTitle, existing)
	return nil, tasksToOutput(tasks), nil
}

func (s *Server) handleCreateProject(ctx context.Context, _ *gomcp.CallToolRequest, input createProjectInput) (*gomcp.CallToolResult, createProjectOutput, error) {
	if s.projects == nil {
		return errorResult("project store not available"), createProjectOutput{}, nil
	}
	projectType, err := s.generator.Catalog().ResolveProjectType(input.ProjectType)
	if err != nil {
		return errorResult(err.Error()), createProjectOutput{}, nil
	}
	project, tasks, err := s.projects.CreateProject(ctx, input.Title, input.Description, core.CreateProjectOpts{
		ProjectType: projectType,
		StartDate:   input.StartDate,
	})
	if err != nil {
		return errorResult(fmt.Sprintf("creating project: %s", err)), createProjectOutput{}, nil
	}
	out := tasksToOutput(tasks)
	return nil, createProjectOutput{
		Project: projectToOutput(project),
		Tasks:   out.Tasks,
		Count:   out.Count,
	}, nil
}

func (s *Server) handleListTasks(_ context.Context, _ *gomcp.CallToolRequest, input listTasksInput) (*gomcp.CallToolResult, tasksOutput, error) {
	if s.projects == nil {
		return errorResult("project store not available"), emptyTasksOutput(), nil
	}
	tasks, err := s.projects.ListTasks(core.TaskFilter{
		ProjectID: input.ProjectID,
		Status:    models.TaskStatus(input.Status),
		Phase:     input.Phase,
		Source:    models.TaskSource(input.Source),
	})
	if err != nil {
		return errorResult(fmt.Sprintf("listing tasks: %s", err)), emptyTasksOutput(), nil
	}
	return nil, tasksToOutput(tasks), nil
}

var validStatuses = map[models.TaskStatus]bool{
	models.StatusNotStarted: true,
	models.StatusInProgress: true,
	models.StatusOnHold:     true,
	models.StatusCompleted:  true,
	models.StatusCancelled:  true,
}

func (s *Server) handleUpdateTaskProgress(ctx context.Context, _ *gomcp.CallToolRequest, input updateTaskProgressInput) (*gomcp.CallToolResult, updateTaskProgressOutput, error) {
	if s.projects == nil {
		return errorResult("project store not available"), updateTaskProgressOutput{}, nil
	}
	if input.TaskID == "" {
		return errorResult("task_id is required"), updateTaskProgressOutput{}, nil
	}
	status := models.TaskStatus(input.Status)
	if status != "" && !validStatuses[status] {
		return errorResult(fmt.Sprintf("invalid status %q: must be one of not_started, in_progress, on_hold, completed, cancelled", input.Status)), updateTaskProgressOutput{}, nil
	}

	result, err := s.projects.UpdateTaskProgress(ctx, input.TaskID, input.CompletionPercentage, status)
	if err != nil {
		if errors.Is(err, core.ErrTaskNotFound) {
			return errorResult(fmt.Sprintf("task %s not found", input.TaskID)), updateTaskProgressOutput{}, nil
		}
		return errorResult(fmt.Sprintf("updating task %s: %s", input.TaskID, err)), updateTaskProgressOutput{}, nil
	}

	generated := append(append([]models.Task{}, result.DependencyTasks...), result.MilestoneTasks...)
	out := updateTaskProgressOutput{
		Task:                taskToOutput(*result.Task),
		ProjectCompletion:   result.ProjectCompletion,
		MilestonesTriggered: result.MilestonesTriggered,
		GeneratedTasks:      tasksToOutput(generated).Tasks,
		Message: fmt.Sprintf("task %s is %d%% complete (%s); project is %d%% complete",
			result.Task.ID, result.Task.CompletionPercentage, result.Task.Status, result.ProjectCompletion),
	}
	return nil, out, nil
}

func (s *Server) handleGetMetrics(_ context.Context, _ *gomcp.CallToolRequest, input getMetricsInput) (*gomcp.CallToolResult, metricsOutput, error) {
	if s.metricsCalc == nil {
		return errorResult("metrics calculator not available (observability may be disabled)"), emptyMetricsOutput(), nil
	}

	sinceStr := input.Since
	if sinceStr == "" {
		sinceStr = "7d"
	}

	sinceTime, err := ParseSince(sinceStr, time.Now())
	if err != nil {
		return errorResult(fmt.Sprintf("parsing since duration: %s", err)), emptyMetricsOutput(), nil
	}

	metrics, err := s.metricsCalc.Calculate(sinceTime)
	if err != nil {
		return errorResult(fmt.Sprintf("calculating metrics: %s", err)), emptyMetricsOutput(), nil
	}

	out := metricsOutput{
		ProjectsCreated:     metrics.ProjectsCreated,
		ProjectsByType:      metrics.ProjectsByType,
		TasksGenerated:      metrics.TasksGenerated,
		TasksBySource:       metrics.TasksBySource,
		TasksByProjectType:  metrics.TasksByProjectType,
		GeneratedHours:      metrics.GeneratedHours,
		TasksCompleted:      metrics.TasksCompleted,
		MilestonesTriggered: metrics.MilestonesTriggered,
		EventCount:          metrics.EventCount,
	}
	if metrics.OldestEvent != nil {
		out.OldestEvent = metrics.OldestEvent.Format(time.RFC3339)
	}
	if metrics.NewestEvent != nil {
		out.NewestEvent = metrics.NewestEvent.Format(time.RFC3339)
	}

	return nil, out, nil
}

func (s *Server) handleGetAlerts(_ context.Context, _ *gomcp.CallToolRequest, input getAlertsInput) (*gomcp.CallToolResult, getAlertsOutput, error) {
	if s.alertEngine == nil {
		return errorResult("alert engine not available (observability may be disabled)"), getAlertsOutput{Alerts: []alertOutput{}}, nil
	}

	alerts, err := s.alertEngine.Evaluate(input.ProjectID)
	if err != nil {
		return errorResult(fmt.Sprintf("evaluating alerts: %s", err)), getAlertsOutput{Alerts: []alertOutput{}}, nil
	}

	out := getAlertsOutput{
		Alerts: make([]alertOutput, len(alerts)),
		Count:  len(alerts),
	}
	for i, a := range alerts {
		out.Alerts[i] = alertOutput{
			ID:          a.ID,
			Condition:   a.Condition,
			Severity:    string(a.Severity),
			ProjectID:   a.ProjectID,
			TaskID:      a.TaskID,
			Message:     a.Message,
			TriggeredAt: a.TriggeredAt.Format(time.RFC3339),
		}
	}

	return nil, out, nil
}

// --- Helpers ---

func taskToOutput(t models.Task) taskOutput {
	out := taskOutput{
		ID:                   t.ID,
		ProjectID:            t.ProjectID,
		Title:                t.Title,
		Status:               string(t.Status),
		Priority:             string(t.Priority),
		CompletionPercentage: t.CompletionPercentage,
		PhaseName:            t.PhaseName,
		StartDate:            t.StartDate,
		DueDate:              t.DueDate,
		EstimatedHours:       t.EstimatedHours,
		OptimisticHours:      t.LOE.OptimisticHours,
		MostLikelyHours:      t.LOE.MostLikelyHours,
		PessimisticHours:     t.LOE.PessimisticHours,
		WeatherDependent:     t.WeatherDependent,
		RequiresInspection:   t.RequiresInspection,
		Source:               string(t.Source),
		Created:              t.Created.Format(time.RFC3339),
	}
	for _, d := range t.Dependencies {
		out.Dependencies = append(out.Dependencies, dependencyOutput{ID: d.ID, Title: d.Title, Status: string(d.Status)})
	}
	for _, r := range t.Risks {
		out.Risks = append(out.Risks, riskOutput{
			Level:       string(r.Level),
			Type:        r.Type,
			Description: r.Description,
			Probability: r.Probability,
			Impact:      string(r.Impact),
		})
	}
	return out
}

func tasksToOutput(tasks []models.Task) tasksOutput {
	out := tasksOutput{
		Tasks: make([]taskOutput, len(tasks)),
		Count: len(tasks),
	}
	for i, t := range tasks {
		out.Tasks[i] = taskToOutput(t)
	}
	return out
}

func projectToOutput(p *models.Project) projectOutput {
	return projectOutput{
		ID:              p.ID,
		Title:           p.Title,
		Description:     p.Description,
		ProjectType:     string(p.ProjectType),
		Scale:           string(p.Scale),
		StartDate:       p.StartDate,
		Phases:          p.Phases,
		MilestonesFired: p.MilestonesFired,
		Created:         p.Created.Format(time.RFC3339),
	}
}

func emptyTasksOutput() tasksOutput {
	return tasksOutput{Tasks: []taskOutput{}}
}

func emptyMetricsOutput() metricsOutput {
	return metricsOutput{
		ProjectsByType:     make(map[string]int),
		TasksBySource:      make(map[string]int),
		TasksByProjectType: make(map[string]int),
	}
}

func errorResult(msg string) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: msg}},
		IsError: true,
	}
}

// ParseSince parses a human-friendly duration string like "7d", "30d", or
// "24h" into the corresponding time before now.
func ParseSince(s string, now time.Time) (time.Time, error) {
	now = now.UTC()

	if len(s) < 2 {
		return time.Time{}, fmt.Errorf("invalid duration %q", s)
	}

	suffix := s[len(s)-1]
	numStr := s[:len(s)-1]
	var num int
	if _, err := fmt.Sscanf(numStr, "%d", &num); err != nil {
		return time.Time{}, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	if num < 0 {
		return time.Time{}, fmt.Errorf("invalid duration %q: must not be negative", s)
	}

	switch suffix {
	case 'd':
		return now.AddDate(0, 0, -num), nil
	case 'h':
		return now.Add(-time.Duration(num) * time.Hour), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported duration suffix %q (use d or h)", string(suffix))
	}
}
