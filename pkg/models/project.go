package models

import "time"

// ProjectType selects which template catalog a project draws its tasks from.
type ProjectType string

const (
	ProjectResidential ProjectType = "residential"
	ProjectCommercial  ProjectType = "commercial"
	ProjectRenovation  ProjectType = "renovation"
)

// Scale is the coarse sizing heuristic applied to a project.
type Scale string

const (
	ScaleSmall  Scale = "small"
	ScaleMedium Scale = "medium"
	ScaleLarge  Scale = "large"
)

// ProjectAnalysis is the result of classifying a project description.
type ProjectAnalysis struct {
	ProjectType ProjectType `yaml:"project_type" json:"project_type"`
	Scale       Scale       `yaml:"scale" json:"scale"`
	Keywords    []string    `yaml:"keywords" json:"keywords"`
}

// Project is the owner of a set of generated tasks.
type Project struct {
	ID              string      `yaml:"id" json:"id"`
	Title           string      `yaml:"title" json:"title"`
	Description     string      `yaml:"description" json:"description"`
	ProjectType     ProjectType `yaml:"project_type" json:"project_type"`
	Scale           Scale       `yaml:"scale" json:"scale"`
	StartDate       string      `yaml:"start_date" json:"start_date"`
	Phases          []string    `yaml:"phases" json:"phases"`
	MilestonesFired []int       `yaml:"milestones_fired" json:"milestones_fired"`
	Created         time.Time   `yaml:"created" json:"created"`
	Updated         time.Time   `yaml:"updated" json:"updated"`
}

// HasFiredMilestone reports whether the milestone at threshold has already
// been expanded for this project.
func (p Project) HasFiredMilestone(threshold int) bool {
	for _, m := range p.MilestonesFired {
		if m == threshold {
			return true
		}
	}
	return false
}
