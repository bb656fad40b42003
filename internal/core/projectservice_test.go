package core

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/valter-silva-au/build-brain/pkg/models"
)

// --- In-memory TaskStore ---

type inMemoryStore struct {
	mu       sync.Mutex
	projects map[string]models.Project
	order    []string
	tasks    []models.Task
	addErr   error
	updates  int
}

func newInMemoryStore() *inMemoryStore {
	return &inMemoryStore{projects: make(map[string]models.Project)}
}

func (s *inMemoryStore) SaveProject(p models.Project) error {
	if _, ok := s.projects[p.ID]; !ok {
		s.order = append(s.order, p.ID)
	}
	s.projects[p.ID] = p
	return nil
}

func (s *inMemoryStore) GetProject(id string) (*models.Project, error) {
	p, ok := s.projects[id]
	if !ok {
		return nil, fmt.Errorf("project %s: %w", id, ErrProjectNotFound)
	}
	return &p, nil
}

func (s *inMemoryStore) ListProjects() ([]models.Project, error) {
	out := make([]models.Project, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.projects[id])
	}
	return out, nil
}

func (s *inMemoryStore) AddTasks(tasks []models.Task) error {
	if s.addErr != nil {
		return s.addErr
	}
	s.tasks = append(s.tasks, tasks...)
	return nil
}

func (s *inMemoryStore) UpdateTask(task models.Task) error {
	for i := range s.tasks {
		if s.tasks[i].ID == task.ID {
			s.tasks[i] = task
			return nil
		}
	}
	return fmt.Errorf("task %s: %w", task.ID, ErrTaskNotFound)
}

func (s *inMemoryStore) GetTask(id string) (*models.Task, error) {
	for _, t := range s.tasks {
		if t.ID == id {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("task %s: %w", id, ErrTaskNotFound)
}

func (s *inMemoryStore) ListTasks(filter TaskFilter) ([]models.Task, error) {
	var out []models.Task
	for _, t := range s.tasks {
		if filter.Matches(t) {
			out = append(out, t)
		}
	}
	return out, nil
}

// Update restores the previous state when fn fails.
func (s *inMemoryStore) Update(fn func(tx TaskTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	projects, order, tasks := maps.Clone(s.projects), slices.Clone(s.order), slices.Clone(s.tasks)
	if err := fn(s); err != nil {
		s.projects, s.order, s.tasks = projects, order, tasks
		return err
	}
	s.updates++
	return nil
}

func (s *inMemoryStore) Load() error  { return nil }
func (s *inMemoryStore) Save() error  { return nil }
func (s *inMemoryStore) Close() error { return nil }

// --- Recording EventLogger ---

type recordedEvent struct {
	Type string
	Data map[string]any
}

type recordingLogger struct {
	events []recordedEvent
}

func (r *recordingLogger) LogEvent(eventType string, data map[string]any) error {
	r.events = append(r.events, recordedEvent{Type: eventType, Data: data})
	return nil
}

func (r *recordingLogger) count(eventType string) int {
	n := 0
	for _, e := range r.events {
		if e.Type == eventType {
			n++
		}
	}
	return n
}

func newTestService(catalog *Catalog) (ProjectService, *inMemoryStore, *recordingLogger) {
	store := newInMemoryStore()
	logger := &recordingLogger{}
	return NewProjectService(newTestGenerator(catalog), store, logger, fixedClock), store, logger
}

const mediumDescription = "A two storey family home with four bedrooms, a double garage and a landscaped garden, on a gently sloping suburban block."

// --- Tests ---

func TestCreateProject_PersistsProjectAndTasks(t *testing.T) {
	svc, store, logger := newTestService(nil)

	project, tasks, err := svc.CreateProject(context.Background(), "Family Home", mediumDescription, CreateProjectOpts{StartDate: "2024-02-01"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if project.ProjectType != models.ProjectResidential || project.Scale != models.ScaleMedium {
		t.Errorf("project classified as %s/%s, want residential/medium", project.ProjectType, project.Scale)
	}
	if project.StartDate != "2024-02-01" {
		t.Errorf("StartDate = %q, want 2024-02-01", project.StartDate)
	}
	if len(tasks) != len(builtinResidentialTemplates()) {
		t.Errorf("len(tasks) = %d, want %d", len(tasks), len(builtinResidentialTemplates()))
	}
	if len(store.tasks) != len(tasks) {
		t.Errorf("stored %d tasks, want %d", len(store.tasks), len(tasks))
	}
	if project.Phases[0] != "Pre-Construction" {
		t.Errorf("Phases[0] = %q, want Pre-Construction", project.Phases[0])
	}
	for i, p := range project.Phases {
		for _, q := range project.Phases[i+1:] {
			if p == q {
				t.Errorf("phase %q listed twice", p)
			}
		}
	}
	if logger.count("project.created") != 1 || logger.count("tasks.generated") != 1 {
		t.Errorf("events = %+v, want one project.created and one tasks.generated", logger.events)
	}
}

func TestCreateProject_TypeOverrideAndEmptyTitle(t *testing.T) {
	svc, _, _ := newTestService(nil)

	project, tasks, err := svc.CreateProject(context.Background(), "Family Home", mediumDescription, CreateProjectOpts{ProjectType: models.ProjectCommercial})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if project.ProjectType != models.ProjectCommercial || tasks[0].Title != "Site Analysis and Preparation" {
		t.Errorf("override ignored: type %s, first task %q", project.ProjectType, tasks[0].Title)
	}

	if _, _, err := svc.CreateProject(context.Background(), "  ", "", CreateProjectOpts{}); err == nil {
		t.Error("expected error for empty title")
	}
}

func TestAddRecurringTasks_UsesProjectPhases(t *testing.T) {
	svc, store, _ := newTestService(nil)
	project, tasks, err := svc.CreateProject(context.Background(), "Family Home", mediumDescription, CreateProjectOpts{StartDate: "2024-01-01"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	recurring, err := svc.AddRecurringTasks(context.Background(), project.ID, start, start.AddDate(0, 0, 6))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(recurring) == 0 {
		t.Fatal("expected recurring tasks for a residential project")
	}
	if len(store.tasks) != len(tasks)+len(recurring) {
		t.Errorf("stored %d tasks, want %d", len(store.tasks), len(tasks)+len(recurring))
	}

	if _, err := svc.AddRecurringTasks(context.Background(), "missing", start, start); !errors.Is(err, ErrProjectNotFound) {
		t.Errorf("err = %v, want ErrProjectNotFound", err)
	}
	if _, err := svc.AddRecurringTasks(context.Background(), project.ID, start, start.AddDate(0, 0, -1)); err == nil {
		t.Error("expected error for end before start")
	}
}

func TestUpdateTaskProgress_ClampsAndDerivesStatus(t *testing.T) {
	svc, _, _ := newTestService(nil)
	_, tasks, err := svc.CreateProject(context.Background(), "Family Home", mediumDescription, CreateProjectOpts{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	res, err := svc.UpdateTaskProgress(context.Background(), tasks[0].ID, -20, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Task.CompletionPercentage != 0 || res.Task.Status != models.StatusNotStarted {
		t.Errorf("task = %d%%/%s, want 0%%/not_started", res.Task.CompletionPercentage, res.Task.Status)
	}

	res, err = svc.UpdateTaskProgress(context.Background(), tasks[0].ID, 40, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Task.Status != models.StatusInProgress {
		t.Errorf("Status = %s, want in_progress", res.Task.Status)
	}

	res, err = svc.UpdateTaskProgress(context.Background(), tasks[0].ID, 250, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Task.CompletionPercentage != 100 || res.Task.Status != models.StatusCompleted {
		t.Errorf("task = %d%%/%s, want 100%%/completed", res.Task.CompletionPercentage, res.Task.Status)
	}

	res, err = svc.UpdateTaskProgress(context.Background(), tasks[1].ID, 10, models.StatusCompleted)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Task.CompletionPercentage != 100 {
		t.Errorf("completed status should force 100%%, got %d", res.Task.CompletionPercentage)
	}

	if _, err := svc.UpdateTaskProgress(context.Background(), "missing", 10, ""); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("err = %v, want ErrTaskNotFound", err)
	}
}

func TestUpdateTaskProgress_MilestonesFireOnce(t *testing.T) {
	svc, store, logger := newTestService(nil)
	project, tasks, err := svc.CreateProject(context.Background(), "Family Home", mediumDescription, CreateProjectOpts{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Completing three of nine tasks reaches 33%.
	var res *ProgressResult
	for _, task := range tasks[:3] {
		res, err = svc.UpdateTaskProgress(context.Background(), task.ID, 100, "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if res.ProjectCompletion != 33 {
		t.Fatalf("ProjectCompletion = %d, want 33", res.ProjectCompletion)
	}
	fired, _ := svc.GetProject(project.ID)
	if !fired.HasFiredMilestone(25) {
		t.Fatalf("milestone 25 not recorded, MilestonesFired = %v", fired.MilestonesFired)
	}
	if logger.count("milestone.triggered") != 1 {
		t.Errorf("milestone.triggered events = %d, want 1", logger.count("milestone.triggered"))
	}

	milestoneTasks, _ := store.ListTasks(TaskFilter{ProjectID: project.ID, Source: models.SourceMilestone})
	if len(milestoneTasks) != 2 {
		t.Fatalf("milestone tasks = %d, want 2", len(milestoneTasks))
	}

	// Further progress below 50% does not fire 25 again.
	res, err = svc.UpdateTaskProgress(context.Background(), tasks[3].ID, 50, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.MilestonesTriggered) != 0 || len(res.MilestoneTasks) != 0 {
		t.Errorf("milestone re-fired: %v", res.MilestonesTriggered)
	}

	completion, err := svc.ProjectCompletion(project.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if completion != res.ProjectCompletion {
		t.Errorf("ProjectCompletion = %d, want %d", completion, res.ProjectCompletion)
	}
}

func TestUpdateTaskProgress_TriggersDependencyTasks(t *testing.T) {
	catalog := NewCatalog(map[models.ProjectType][]models.TaskTemplate{
		models.ProjectResidential: {
			{Title: "Foundation Pour", Priority: models.PriorityHigh, EstimatedHours: 32, PhaseName: "Foundation"},
			{Title: "Framing", Priority: models.PriorityHigh, EstimatedHours: 80, PhaseName: "Framing"},
		},
		models.ProjectCommercial: {
			{Title: "Foundation Cure Check", Priority: models.PriorityMedium, EstimatedHours: 12, DependsOn: []string{"Foundation Pour"}},
		},
	}, nil, nil)
	svc, store, logger := newTestService(catalog)

	project, tasks, err := svc.CreateProject(context.Background(), "Family Home", mediumDescription, CreateProjectOpts{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	res, err := svc.UpdateTaskProgress(context.Background(), tasks[0].ID, 100, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.DependencyTasks) != 1 || res.DependencyTasks[0].Title != "Foundation Cure Check" {
		t.Fatalf("DependencyTasks = %v, want [Foundation Cure Check]", titlesOf(res.DependencyTasks))
	}
	if logger.count("dependency.triggered") != 1 || logger.count("task.completed") != 1 {
		t.Errorf("events = %+v", logger.events)
	}

	// Completing again is not a new completion.
	if res, err = svc.UpdateTaskProgress(context.Background(), tasks[0].ID, 100, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.DependencyTasks) != 0 {
		t.Errorf("re-completion triggered %v", titlesOf(res.DependencyTasks))
	}

	all, _ := store.ListTasks(TaskFilter{ProjectID: project.ID, Source: models.SourceDependency})
	if len(all) != 1 {
		t.Errorf("dependency tasks stored = %d, want 1", len(all))
	}
}

func TestCompletionOf(t *testing.T) {
	tasks := []models.Task{
		{CompletionPercentage: 100},
		{CompletionPercentage: 50},
		{CompletionPercentage: 0},
		{CompletionPercentage: 80, Status: models.StatusCancelled},
	}
	if got := completionOf(tasks); got != 50 {
		t.Errorf("completionOf = %d, want 50", got)
	}
	if got := completionOf(nil); got != 0 {
		t.Errorf("completionOf(nil) = %d, want 0", got)
	}
}

func TestListProjectsAndTasks(t *testing.T) {
	svc, _, _ := newTestService(nil)
	a, _, _ := svc.CreateProject(context.Background(), "Family Home", mediumDescription, CreateProjectOpts{})
	b, _, _ := svc.CreateProject(context.Background(), "Kitchen Remodel", "Small renovation of kitchen", CreateProjectOpts{})

	projects, err := svc.ListProjects()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(projects) != 2 || projects[0].ID != a.ID || projects[1].ID != b.ID {
		t.Errorf("ListProjects returned %d projects in wrong order", len(projects))
	}

	tasks, err := svc.ListTasks(TaskFilter{ProjectID: b.ID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, task := range tasks {
		if task.ProjectID != b.ID {
			t.Errorf("task %q from project %s leaked into filter", task.Title, task.ProjectID)
		}
	}
	if !strings.Contains(b.Title, "Kitchen") || b.ProjectType != models.ProjectRenovation {
		t.Errorf("project b = %+v", b)
	}
}

func TestUpdateTaskProgress_ReopensCompletedTask(t *testing.T) {
	svc, _, logger := newTestService(nil)
	_, tasks, err := svc.CreateProject(context.Background(), "Family Home", mediumDescription, CreateProjectOpts{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := svc.UpdateTaskProgress(context.Background(), tasks[0].ID, 100, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	res, err := svc.UpdateTaskProgress(context.Background(), tasks[0].ID, 50, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Task.Status != models.StatusInProgress || res.Task.CompletionPercentage != 50 {
		t.Fatalf("task = %d%%/%s, want 50%%/in_progress", res.Task.CompletionPercentage, res.Task.Status)
	}

	// Finishing the reopened task is a new completion.
	if res, err = svc.UpdateTaskProgress(context.Background(), tasks[0].ID, 100, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Task.Status != models.StatusCompleted {
		t.Errorf("Status = %s, want completed", res.Task.Status)
	}
	if logger.count("task.completed") != 2 {
		t.Errorf("task.completed events = %d, want 2", logger.count("task.completed"))
	}
}

func TestApplyProgress(t *testing.T) {
	tests := []struct {
		name       string
		from       models.TaskStatus
		completion int
		status     models.TaskStatus
		want       models.TaskStatus
		wantPct    int
	}{
		{"start work", models.StatusNotStarted, 30, "", models.StatusInProgress, 30},
		{"finish", models.StatusInProgress, 100, "", models.StatusCompleted, 100},
		{"reopen partially", models.StatusCompleted, 50, "", models.StatusInProgress, 50},
		{"reopen to zero", models.StatusCompleted, 0, "", models.StatusInProgress, 0},
		{"explicit hold", models.StatusCompleted, 50, models.StatusOnHold, models.StatusOnHold, 50},
		{"explicit completion", models.StatusInProgress, 10, models.StatusCompleted, models.StatusCompleted, 100},
		{"zero stays not started", models.StatusNotStarted, 0, "", models.StatusNotStarted, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := models.Task{Status: tt.from}
			applyProgress(&task, tt.completion, tt.status)
			if task.Status != tt.want || task.CompletionPercentage != tt.wantPct {
				t.Errorf("got %d%%/%s, want %d%%/%s", task.CompletionPercentage, task.Status, tt.wantPct, tt.want)
			}
		})
	}
}

func TestCreateProject_StoreFailureLeavesNoProject(t *testing.T) {
	svc, store, logger := newTestService(nil)
	store.addErr = errors.New("disk full")

	if _, _, err := svc.CreateProject(context.Background(), "Family Home", mediumDescription, CreateProjectOpts{}); err == nil {
		t.Fatal("expected error when tasks cannot be stored")
	}
	if len(store.projects) != 0 || len(store.tasks) != 0 {
		t.Errorf("store kept %d projects and %d tasks after a failed create", len(store.projects), len(store.tasks))
	}
	if len(logger.events) != 0 {
		t.Errorf("events logged for a failed create: %+v", logger.events)
	}
}

func TestUpdateTaskProgress_StoreFailureKeepsMilestonePending(t *testing.T) {
	svc, store, _ := newTestService(nil)
	project, tasks, err := svc.CreateProject(context.Background(), "Family Home", mediumDescription, CreateProjectOpts{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, task := range tasks[:2] {
		if _, err := svc.UpdateTaskProgress(context.Background(), task.ID, 100, ""); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	// The third completion reaches 33% and must store milestone tasks.
	store.addErr = errors.New("disk full")
	if _, err := svc.UpdateTaskProgress(context.Background(), tasks[2].ID, 100, ""); err == nil {
		t.Fatal("expected error when milestone tasks cannot be stored")
	}
	task, _ := store.GetTask(tasks[2].ID)
	if task.Status == models.StatusCompleted {
		t.Error("task completion persisted although the update failed")
	}
	p, _ := store.GetProject(project.ID)
	if len(p.MilestonesFired) != 0 {
		t.Errorf("MilestonesFired = %v after a failed update", p.MilestonesFired)
	}

	store.addErr = nil
	res, err := svc.UpdateTaskProgress(context.Background(), tasks[2].ID, 100, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.MilestonesTriggered) != 1 || len(res.MilestoneTasks) != 2 {
		t.Errorf("retry triggered %v with %d tasks, want [25] with 2", res.MilestonesTriggered, len(res.MilestoneTasks))
	}
}

func TestCreateProject_ConcurrentCallsAllPersist(t *testing.T) {
	store := newInMemoryStore()
	svc := NewProjectService(NewTaskGenerator(BuiltinCatalog(), NewProjectClassifier(), GeneratorOptions{Now: fixedClock}), store, nil, fixedClock)

	const n = 12
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, err := svc.CreateProject(context.Background(), fmt.Sprintf("Home %d", i), mediumDescription, CreateProjectOpts{})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if store.updates != n || len(store.projects) != n {
		t.Errorf("updates = %d, projects = %d, want %d each", store.updates, len(store.projects), n)
	}
}
