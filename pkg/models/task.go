package models

import "time"

// TaskStatus represents the current lifecycle state of a construction task.
type TaskStatus string

const (
	StatusNotStarted TaskStatus = "not_started"
	StatusInProgress TaskStatus = "in_progress"
	StatusOnHold     TaskStatus = "on_hold"
	StatusCompleted  TaskStatus = "completed"
	StatusCancelled  TaskStatus = "cancelled"
)

// Priority represents the urgency level of a task.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// TaskSource records which generator produced a task.
type TaskSource string

const (
	SourceTemplate   TaskSource = "template"
	SourceRecurring  TaskSource = "recurring"
	SourceMilestone  TaskSource = "milestone"
	SourceDependency TaskSource = "dependency"
)

// DateLayout is the ISO calendar date format used for task start and due dates.
const DateLayout = "2006-01-02"

// DependencyRef is a snapshot of a prerequisite task taken when the dependent
// task was generated. It is not kept in sync with the referenced task.
type DependencyRef struct {
	ID                   string     `yaml:"id" json:"id"`
	Title                string     `yaml:"title" json:"title"`
	Status               TaskStatus `yaml:"status" json:"status"`
	CompletionPercentage int        `yaml:"completion_percentage" json:"completion_percentage"`
}

// Task is a materialized unit of construction work that belongs to exactly
// one project.
type Task struct {
	ID                   string          `yaml:"id" json:"id"`
	ProjectID            string          `yaml:"project_id" json:"project_id"`
	Title                string          `yaml:"title" json:"title"`
	Description          string          `yaml:"description" json:"description"`
	Status               TaskStatus      `yaml:"status" json:"status"`
	Priority             Priority        `yaml:"priority" json:"priority"`
	CompletionPercentage int             `yaml:"completion_percentage" json:"completion_percentage"`
	StartDate            string          `yaml:"start_date" json:"start_date"`
	DueDate              string          `yaml:"due_date" json:"due_date"`
	EstimatedHours       int             `yaml:"estimated_hours" json:"estimated_hours"`
	ActualHours          float64         `yaml:"actual_hours" json:"actual_hours"`
	WeatherDependent     bool            `yaml:"weather_dependent" json:"weather_dependent"`
	RequiresInspection   bool            `yaml:"requires_inspection" json:"requires_inspection"`
	InspectionPassed     *bool           `yaml:"inspection_passed,omitempty" json:"inspection_passed,omitempty"`
	SafetyRequirements   []string        `yaml:"safety_requirements" json:"safety_requirements"`
	EquipmentNeeded      []string        `yaml:"equipment_needed" json:"equipment_needed"`
	MaterialsNeeded      []string        `yaml:"materials_needed" json:"materials_needed"`
	Dependencies         []DependencyRef `yaml:"dependencies" json:"dependencies"`
	BeforePhotos         []string        `yaml:"before_photos" json:"before_photos"`
	ProgressPhotos       []string        `yaml:"progress_photos" json:"progress_photos"`
	AfterPhotos          []string        `yaml:"after_photos" json:"after_photos"`
	TimeEntriesCount     int             `yaml:"time_entries_count" json:"time_entries_count"`
	BillableHours        float64         `yaml:"billable_hours" json:"billable_hours"`
	QualityScore         *float64        `yaml:"quality_score,omitempty" json:"quality_score,omitempty"`
	ReworkRequired       bool            `yaml:"rework_required" json:"rework_required"`
	PhaseName            string          `yaml:"phase_name" json:"phase_name"`
	Subtasks             []string        `yaml:"subtasks" json:"subtasks"`
	LOE                  LOE             `yaml:"loe" json:"loe"`
	Risks                []Risk          `yaml:"risks" json:"risks"`
	Source               TaskSource      `yaml:"source" json:"source"`
	Created              time.Time       `yaml:"created" json:"created"`
}

// Snapshot returns a DependencyRef describing the task as it is right now.
func (t Task) Snapshot() DependencyRef {
	return DependencyRef{
		ID:                   t.ID,
		Title:                t.Title,
		Status:               t.Status,
		CompletionPercentage: t.CompletionPercentage,
	}
}
