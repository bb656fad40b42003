package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/valter-silva-au/build-brain/internal/core"
	"github.com/valter-silva-au/build-brain/pkg/models"
	"gopkg.in/yaml.v3"
)

// ProjectsFileName is the YAML store file inside the base directory.
const ProjectsFileName = "projects.yaml"

// lockFileName guards concurrent writers of ProjectsFileName.
const lockFileName = ".projects.lock"

// ProjectFile represents the top-level structure of projects.yaml. Tasks are
// kept in a list so generation order survives a round trip.
type ProjectFile struct {
	Version  string                    `yaml:"version"`
	Projects map[string]models.Project `yaml:"projects"`
	Tasks    []models.Task             `yaml:"tasks"`
}

type fileProjectStore struct {
	basePath string

	mu   sync.RWMutex
	data ProjectFile
}

// NewFileProjectStore creates a TaskStore backed by projects.yaml in basePath.
// Direct writes are held in memory until Save; Update reads, changes and
// writes the file under the store lock.
func NewFileProjectStore(basePath string) core.TaskStore {
	return &fileProjectStore{
		basePath: basePath,
		data:     emptyProjectFile(),
	}
}

func emptyProjectFile() ProjectFile {
	return ProjectFile{
		Version:  "1.0",
		Projects: make(map[string]models.Project),
		Tasks:    []models.Task{},
	}
}

func (s *fileProjectStore) filePath() string {
	return filepath.Join(s.basePath, ProjectsFileName)
}

func (s *fileProjectStore) SaveProject(project models.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fileTx{&s.data}.SaveProject(project)
}

func (s *fileProjectStore) GetProject(projectID string) (*models.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fileTx{&s.data}.GetProject(projectID)
}

func (s *fileProjectStore) ListProjects() ([]models.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fileTx{&s.data}.ListProjects()
}

func (s *fileProjectStore) AddTasks(tasks []models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fileTx{&s.data}.AddTasks(tasks)
}

func (s *fileProjectStore) UpdateTask(task models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fileTx{&s.data}.UpdateTask(task)
}

func (s *fileProjectStore) GetTask(taskID string) (*models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fileTx{&s.data}.GetTask(taskID)
}

func (s *fileProjectStore) ListTasks(filter core.TaskFilter) ([]models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fileTx{&s.data}.ListTasks(filter)
}

// Update holds the store lock from reading projects.yaml until the changed
// file is written, so writers in other processes cannot interleave. A
// failing fn leaves both the file and the in-memory state untouched.
func (s *fileProjectStore) Update(fn func(tx core.TaskTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := s.lock()
	if err != nil {
		return err
	}
	defer func() { _ = unlock() }()

	pf, err := s.readFile()
	if err != nil {
		return err
	}
	if err := fn(fileTx{&pf}); err != nil {
		return err
	}
	if err := s.writeFile(&pf); err != nil {
		return err
	}
	s.data = pf
	return nil
}

func (s *fileProjectStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	pf, err := s.readFile()
	if err != nil {
		return err
	}
	s.data = pf
	return nil
}

// Save writes the in-memory state over projects.yaml while holding the
// store lock.
func (s *fileProjectStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := s.lock()
	if err != nil {
		return err
	}
	defer func() { _ = unlock() }()
	return s.writeFile(&s.data)
}

func (s *fileProjectStore) Close() error {
	return nil
}

func (s *fileProjectStore) lock() (func() error, error) {
	if err := os.MkdirAll(s.basePath, 0o750); err != nil {
		return nil, fmt.Errorf("locking projects: creating directory: %w", err)
	}
	unlock, err := lockFile(filepath.Join(s.basePath, lockFileName))
	if err != nil {
		return nil, fmt.Errorf("locking projects: %w", err)
	}
	return unlock, nil
}

func (s *fileProjectStore) readFile() (ProjectFile, error) {
	data, err := os.ReadFile(s.filePath())
	if err != nil {
		if os.IsNotExist(err) {
			return emptyProjectFile(), nil
		}
		return ProjectFile{}, fmt.Errorf("loading projects: %w", err)
	}

	var pf ProjectFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return ProjectFile{}, fmt.Errorf("loading projects: parsing YAML: %w", err)
	}
	if pf.Projects == nil {
		pf.Projects = make(map[string]models.Project)
	}
	if pf.Tasks == nil {
		pf.Tasks = []models.Task{}
	}
	return pf, nil
}

// writeFile writes pf to a temp file and renames it over projects.yaml, so
// readers never see a partial file. The caller holds the store lock.
func (s *fileProjectStore) writeFile(pf *ProjectFile) error {
	data, err := yaml.Marshal(pf)
	if err != nil {
		return fmt.Errorf("saving projects: marshaling YAML: %w", err)
	}
	tmp := s.filePath() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("saving projects: writing file: %w", err)
	}
	if err := os.Rename(tmp, s.filePath()); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("saving projects: replacing file: %w", err)
	}
	return nil
}

// fileTx applies store operations to one ProjectFile with no locking.
type fileTx struct {
	data *ProjectFile
}

func (t fileTx) SaveProject(project models.Project) error {
	if project.ID == "" {
		return fmt.Errorf("saving project: ID must not be empty")
	}
	t.data.Projects[project.ID] = project
	return nil
}

func (t fileTx) GetProject(projectID string) (*models.Project, error) {
	p, ok := t.data.Projects[projectID]
	if !ok {
		return nil, fmt.Errorf("project %s: %w", projectID, core.ErrProjectNotFound)
	}
	return &p, nil
}

// ListProjects returns projects oldest first, ties broken by ID.
func (t fileTx) ListProjects() ([]models.Project, error) {
	projects := make([]models.Project, 0, len(t.data.Projects))
	for _, p := range t.data.Projects {
		projects = append(projects, p)
	}
	sort.Slice(projects, func(i, j int) bool {
		if !projects[i].Created.Equal(projects[j].Created) {
			return projects[i].Created.Before(projects[j].Created)
		}
		return projects[i].ID < projects[j].ID
	})
	return projects, nil
}

func (t fileTx) AddTasks(tasks []models.Task) error {
	seen := make(map[string]bool, len(t.data.Tasks)+len(tasks))
	for _, task := range t.data.Tasks {
		seen[task.ID] = true
	}
	for _, task := range tasks {
		if task.ID == "" {
			return fmt.Errorf("adding task %q: ID must not be empty", task.Title)
		}
		if seen[task.ID] {
			return fmt.Errorf("adding task: task %s already exists", task.ID)
		}
		if _, ok := t.data.Projects[task.ProjectID]; !ok {
			return fmt.Errorf("adding task %s: project %s: %w", task.ID, task.ProjectID, core.ErrProjectNotFound)
		}
		seen[task.ID] = true
	}
	t.data.Tasks = append(t.data.Tasks, tasks...)
	return nil
}

func (t fileTx) UpdateTask(task models.Task) error {
	for i := range t.data.Tasks {
		if t.data.Tasks[i].ID == task.ID {
			t.data.Tasks[i] = task
			return nil
		}
	}
	return fmt.Errorf("updating task %s: %w", task.ID, core.ErrTaskNotFound)
}

func (t fileTx) GetTask(taskID string) (*models.Task, error) {
	for _, task := range t.data.Tasks {
		if task.ID == taskID {
			return &task, nil
		}
	}
	return nil, fmt.Errorf("task %s: %w", taskID, core.ErrTaskNotFound)
}

func (t fileTx) ListTasks(filter core.TaskFilter) ([]models.Task, error) {
	var result []models.Task
	for _, task := range t.data.Tasks {
		if filter.Matches(task) {
			result = append(result, task)
		}
	}
	return result, nil
}
