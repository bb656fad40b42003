package core

import (
	"errors"

	"github.com/valter-silva-au/build-brain/pkg/models"
)

var (
	// ErrProjectNotFound is returned when a project ID is unknown to the store.
	ErrProjectNotFound = errors.New("project not found")
	// ErrTaskNotFound is returned when a task ID is unknown to the store.
	ErrTaskNotFound = errors.New("task not found")
)

// TaskTx is the read/write view of a store handed to TaskStore.Update.
type TaskTx interface {
	SaveProject(project models.Project) error
	GetProject(projectID string) (*models.Project, error)
	ListProjects() ([]models.Project, error)
	AddTasks(tasks []models.Task) error
	UpdateTask(task models.Task) error
	GetTask(taskID string) (*models.Task, error)
	ListTasks(filter TaskFilter) ([]models.Task, error)
}

// TaskStore persists projects and their generated tasks. It is defined here
// so core does not import the storage package; every storage driver
// satisfies it.
//
// Update runs fn against the latest persisted state as one unit of work:
// calls are serialized, and the changes fn makes through tx are persisted
// only when fn returns nil.
type TaskStore interface {
	TaskTx
	Update(fn func(tx TaskTx) error) error
	Load() error
	Save() error
	Close() error
}

// TaskFilter narrows ListTasks. Empty fields match everything.
type TaskFilter struct {
	ProjectID string
	Status    models.TaskStatus
	Phase     string
	Source    models.TaskSource
}

// Matches reports whether t passes every set field of the filter.
func (f TaskFilter) Matches(t models.Task) bool {
	if f.ProjectID != "" && t.ProjectID != f.ProjectID {
		return false
	}
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.Phase != "" && t.PhaseName != f.Phase {
		return false
	}
	if f.Source != "" && t.Source != f.Source {
		return false
	}
	return true
}
