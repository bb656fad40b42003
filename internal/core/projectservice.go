package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/valter-silva-au/build-brain/pkg/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/valter-silva-au/build-brain/internal/core"

// CreateProjectOpts holds optional inputs for CreateProject.
type CreateProjectOpts struct {
	ProjectType models.ProjectType
	StartDate   string
}

// ProgressResult describes everything that changed after a progress update.
type ProgressResult struct {
	Task                *models.Task
	DependencyTasks     []models.Task
	MilestoneTasks      []models.Task
	MilestonesTriggered []int
	ProjectCompletion   int
}

// ProjectService coordinates the generator and the task store.
type ProjectService interface {
	CreateProject(ctx context.Context, title, description string, opts CreateProjectOpts) (*models.Project, []models.Task, error)
	AddRecurringTasks(ctx context.Context, projectID string, startDate, endDate time.Time) ([]models.Task, error)
	UpdateTaskProgress(ctx context.Context, taskID string, completion int, status models.TaskStatus) (*ProgressResult, error)
	ProjectCompletion(projectID string) (int, error)
	ListTasks(filter TaskFilter) ([]models.Task, error)
	GetProject(projectID string) (*models.Project, error)
	ListProjects() ([]models.Project, error)
}

type projectService struct {
	generator   TaskGenerator
	store       TaskStore
	eventLogger EventLogger
	now         func() time.Time

	tracer         trace.Tracer
	tasksGenerated metric.Int64Counter
}

// NewProjectService creates a ProjectService. eventLogger may be nil; now
// defaults to time.Now.
func NewProjectService(generator TaskGenerator, store TaskStore, eventLogger EventLogger, now func() time.Time) ProjectService {
	if now == nil {
		now = time.Now
	}
	counter, err := otel.Meter(instrumentationName).Int64Counter("bdb.tasks.generated",
		metric.WithDescription("Number of tasks generated"),
		metric.WithUnit("{task}"))
	if err != nil {
		counter = noop.Int64Counter{}
	}
	return &projectService{
		generator:      generator,
		store:          store,
		eventLogger:    eventLogger,
		now:            now,
		tracer:         otel.Tracer(instrumentationName),
		tasksGenerated: counter,
	}
}

// CreateProject classifies the project, generates its template schedule and
// persists both.
func (s *projectService) CreateProject(ctx context.Context, title, description string, opts CreateProjectOpts) (*models.Project, []models.Task, error) {
	ctx, span := s.tracer.Start(ctx, "ProjectService.CreateProject")
	defer span.End()

	if strings.TrimSpace(title) == "" {
		return nil, nil, s.fail(span, fmt.Errorf("creating project: title must not be empty"))
	}

	analysis := s.generator.Analyze(title, description)
	if opts.ProjectType != "" && s.generator.Catalog().HasProjectType(opts.ProjectType) {
		analysis.ProjectType = opts.ProjectType
	}

	now := s.now().UTC()
	project := models.Project{
		ID:              uuid.NewString(),
		Title:           title,
		Description:     description,
		ProjectType:     analysis.ProjectType,
		Scale:           analysis.Scale,
		MilestonesFired: []int{},
		Created:         now,
		Updated:         now,
	}

	tasks := s.generator.GenerateTasksFromProject(project.ID, title, description, GenerateOpts{
		ProjectType: analysis.ProjectType,
		StartDate:   opts.StartDate,
	})
	project.Phases = phasesOf(tasks)
	if len(tasks) > 0 {
		project.StartDate = tasks[0].StartDate
	} else {
		project.StartDate = dateOnly(now).Format(models.DateLayout)
	}

	err := s.store.Update(func(tx TaskTx) error {
		if err := tx.SaveProject(project); err != nil {
			return fmt.Errorf("saving project: %w", err)
		}
		if err := tx.AddTasks(tasks); err != nil {
			return fmt.Errorf("adding tasks: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, s.fail(span, fmt.Errorf("creating project: %w", err))
	}

	span.SetAttributes(
		attribute.String("project.id", project.ID),
		attribute.String("project.type", string(project.ProjectType)),
		attribute.String("project.scale", string(project.Scale)),
		attribute.Int("tasks.count", len(tasks)),
	)
	s.recordGenerated(ctx, project, models.SourceTemplate, tasks)
	s.logEvent("project.created", map[string]any{
		"project_id":   project.ID,
		"title":        project.Title,
		"project_type": string(project.ProjectType),
		"scale":        string(project.Scale),
	})

	return &project, tasks, nil
}

// AddRecurringTasks expands the catalog's recurring templates over the
// project's phases between startDate and endDate and stores the result.
func (s *projectService) AddRecurringTasks(ctx context.Context, projectID string, startDate, endDate time.Time) ([]models.Task, error) {
	ctx, span := s.tracer.Start(ctx, "ProjectService.AddRecurringTasks",
		trace.WithAttributes(attribute.String("project.id", projectID)))
	defer span.End()

	if endDate.Before(startDate) {
		return nil, s.fail(span, fmt.Errorf("adding recurring tasks: end date %s is before start date %s",
			endDate.Format(models.DateLayout), startDate.Format(models.DateLayout)))
	}

	var (
		project *models.Project
		tasks   []models.Task
	)
	err := s.store.Update(func(tx TaskTx) error {
		var err error
		project, err = tx.GetProject(projectID)
		if err != nil {
			return err
		}
		tasks = s.generator.GenerateRecurringTasks(projectID, startDate, endDate, project.Phases)
		if len(tasks) == 0 {
			return nil
		}
		return tx.AddTasks(tasks)
	})
	if err != nil {
		return nil, s.fail(span, fmt.Errorf("adding recurring tasks: %w", err))
	}

	s.recordGenerated(ctx, *project, models.SourceRecurring, tasks)
	return tasks, nil
}

// UpdateTaskProgress records progress on a task. Completion is clamped to
// 0..100. Reaching 100 completes the task and an explicit completed status
// sets completion to 100; dropping a completed task below 100 reopens it.
// Completing a task expands dependency-triggered templates; any newly
// reached milestone expands its triggered tasks once. All changes are
// stored as one unit.
func (s *projectService) UpdateTaskProgress(ctx context.Context, taskID string, completion int, status models.TaskStatus) (*ProgressResult, error) {
	ctx, span := s.tracer.Start(ctx, "ProjectService.UpdateTaskProgress",
		trace.WithAttributes(attribute.String("task.id", taskID)))
	defer span.End()

	var (
		result       *ProgressResult
		project      *models.Project
		completedNow bool
	)
	err := s.store.Update(func(tx TaskTx) error {
		task, err := tx.GetTask(taskID)
		if err != nil {
			return err
		}
		project, err = tx.GetProject(task.ProjectID)
		if err != nil {
			return err
		}

		wasCompleted := task.Status == models.StatusCompleted
		applyProgress(task, completion, status)
		if err := tx.UpdateTask(*task); err != nil {
			return err
		}
		result = &ProgressResult{Task: task}
		completedNow = task.Status == models.StatusCompleted && !wasCompleted

		if completedNow {
			all, err := tx.ListTasks(TaskFilter{ProjectID: task.ProjectID})
			if err != nil {
				return fmt.Errorf("listing project tasks: %w", err)
			}
			result.DependencyTasks = s.generator.GenerateDependencyBasedTasks(task.ProjectID, task.Title, all)
			if len(result.DependencyTasks) > 0 {
				if err := tx.AddTasks(result.DependencyTasks); err != nil {
					return fmt.Errorf("adding dependency tasks: %w", err)
				}
			}
		}

		all, err := tx.ListTasks(TaskFilter{ProjectID: task.ProjectID})
		if err != nil {
			return fmt.Errorf("listing project tasks: %w", err)
		}
		result.ProjectCompletion = completionOf(all)

		for _, threshold := range MilestonesReached(s.generator.Catalog(), result.ProjectCompletion) {
			if !project.HasFiredMilestone(threshold) {
				result.MilestonesTriggered = append(result.MilestonesTriggered, threshold)
			}
		}
		if len(result.MilestonesTriggered) > 0 {
			result.MilestoneTasks = s.generator.GenerateNewMilestoneTasks(task.ProjectID, result.ProjectCompletion, project.MilestonesFired)
			if err := tx.AddTasks(result.MilestoneTasks); err != nil {
				return fmt.Errorf("adding milestone tasks: %w", err)
			}
			project.MilestonesFired = append(project.MilestonesFired, result.MilestonesTriggered...)
		}

		project.Updated = s.now().UTC()
		if err := tx.SaveProject(*project); err != nil {
			return fmt.Errorf("saving project: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, s.fail(span, fmt.Errorf("updating task %s: %w", taskID, err))
	}

	task := result.Task
	s.logEvent("task.progress_updated", map[string]any{
		"project_id": task.ProjectID,
		"task_id":    task.ID,
		"completion": task.CompletionPercentage,
		"status":     string(task.Status),
	})
	if completedNow {
		s.logEvent("task.completed", map[string]any{
			"project_id": task.ProjectID,
			"task_id":    task.ID,
			"title":      task.Title,
		})
	}
	if len(result.DependencyTasks) > 0 {
		s.recordGenerated(ctx, *project, models.SourceDependency, result.DependencyTasks)
		s.logEvent("dependency.triggered", map[string]any{
			"project_id":      task.ProjectID,
			"completed_title": task.Title,
			"task_count":      len(result.DependencyTasks),
		})
	}
	if len(result.MilestonesTriggered) > 0 {
		s.recordGenerated(ctx, *project, models.SourceMilestone, result.MilestoneTasks)
		for _, threshold := range result.MilestonesTriggered {
			s.logEvent("milestone.triggered", map[string]any{
				"project_id": project.ID,
				"threshold":  threshold,
				"completion": result.ProjectCompletion,
			})
		}
	}

	span.SetAttributes(attribute.Int("project.completion", result.ProjectCompletion))
	return result, nil
}

// applyProgress clamps completion and reconciles it with status.
func applyProgress(task *models.Task, completion int, status models.TaskStatus) {
	completion = max(0, min(100, completion))
	task.CompletionPercentage = completion

	switch {
	case status == models.StatusCompleted || completion == 100:
		task.Status = models.StatusCompleted
		task.CompletionPercentage = 100
	case status != "":
		task.Status = status
	case completion > 0 && task.Status == models.StatusNotStarted:
		task.Status = models.StatusInProgress
	case task.Status == models.StatusCompleted:
		// Reopened: completion dropped below 100.
		task.Status = models.StatusInProgress
	}
}

// completionOf is the integer mean of task completion percentages, ignoring
// cancelled tasks. The mean is truncated so a milestone only fires once it
// has actually been reached.
func completionOf(tasks []models.Task) int {
	total, n := 0, 0
	for _, t := range tasks {
		if t.Status == models.StatusCancelled {
			continue
		}
		total += t.CompletionPercentage
		n++
	}
	if n == 0 {
		return 0
	}
	return total / n
}

// phasesOf returns the distinct phase names of tasks in first-seen order.
func phasesOf(tasks []models.Task) []string {
	seen := make(map[string]bool)
	phases := []string{}
	for _, t := range tasks {
		if t.PhaseName == "" || seen[t.PhaseName] {
			continue
		}
		seen[t.PhaseName] = true
		phases = append(phases, t.PhaseName)
	}
	return phases
}

func (s *projectService) ProjectCompletion(projectID string) (int, error) {
	if err := s.store.Load(); err != nil {
		return 0, fmt.Errorf("computing completion for %s: loading store: %w", projectID, err)
	}
	if _, err := s.store.GetProject(projectID); err != nil {
		return 0, fmt.Errorf("computing completion for %s: %w", projectID, err)
	}
	tasks, err := s.store.ListTasks(TaskFilter{ProjectID: projectID})
	if err != nil {
		return 0, fmt.Errorf("computing completion for %s: %w", projectID, err)
	}
	return completionOf(tasks), nil
}

func (s *projectService) ListTasks(filter TaskFilter) ([]models.Task, error) {
	if err := s.store.Load(); err != nil {
		return nil, fmt.Errorf("listing tasks: loading store: %w", err)
	}
	return s.store.ListTasks(filter)
}

func (s *projectService) GetProject(projectID string) (*models.Project, error) {
	if err := s.store.Load(); err != nil {
		return nil, fmt.Errorf("getting project %s: loading store: %w", projectID, err)
	}
	return s.store.GetProject(projectID)
}

func (s *projectService) ListProjects() ([]models.Project, error) {
	if err := s.store.Load(); err != nil {
		return nil, fmt.Errorf("listing projects: loading store: %w", err)
	}
	return s.store.ListProjects()
}

// recordGenerated counts generated tasks and emits tasks.generated.
func (s *projectService) recordGenerated(ctx context.Context, project models.Project, source models.TaskSource, tasks []models.Task) {
	if len(tasks) == 0 {
		return
	}
	hours := 0
	for _, t := range tasks {
		hours += t.EstimatedHours
	}
	s.tasksGenerated.Add(ctx, int64(len(tasks)), metric.WithAttributes(
		attribute.String("source", string(source)),
		attribute.String("project_type", string(project.ProjectType)),
	))
	s.logEvent("tasks.generated", map[string]any{
		"project_id":      project.ID,
		"project_type":    string(project.ProjectType),
		"source":          string(source),
		"task_count":      len(tasks),
		"estimated_hours": hours,
	})
}

func (s *projectService) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// logEvent emits an event if an EventLogger is configured.
func (s *projectService) logEvent(eventType string, data map[string]any) {
	if s.eventLogger != nil {
		_ = s.eventLogger.LogEvent(eventType, data)
	}
}
