package models

// ComplexityFactor grades how involved a piece of work is.
type ComplexityFactor string

const (
	ComplexityLow      ComplexityFactor = "low"
	ComplexityModerate ComplexityFactor = "moderate"
	ComplexityComplex  ComplexityFactor = "complex"
)

// SkillLevel is the crew experience a task calls for.
type SkillLevel string

const (
	SkillBasic        SkillLevel = "basic"
	SkillIntermediate SkillLevel = "intermediate"
	SkillSenior       SkillLevel = "senior"
)

// RiskLevel classifies the likelihood band of a risk.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// RiskImpact classifies the consequence of a risk materializing.
type RiskImpact string

const (
	ImpactLow      RiskImpact = "low"
	ImpactMedium   RiskImpact = "medium"
	ImpactHigh     RiskImpact = "high"
	ImpactCritical RiskImpact = "critical"
)

// RecurrencePattern is how often a recurring template repeats.
type RecurrencePattern string

const (
	RecurDaily    RecurrencePattern = "daily"
	RecurWeekly   RecurrencePattern = "weekly"
	RecurBiweekly RecurrencePattern = "biweekly"
	RecurMonthly  RecurrencePattern = "monthly"
)

// LOE is a three-point level-of-effort estimate in hours.
type LOE struct {
	OptimisticHours    float64          `yaml:"optimistic_hours" json:"optimistic_hours" toml:"optimistic_hours"`
	MostLikelyHours    float64          `yaml:"most_likely_hours" json:"most_likely_hours" toml:"most_likely_hours"`
	PessimisticHours   float64          `yaml:"pessimistic_hours" json:"pessimistic_hours" toml:"pessimistic_hours"`
	ConfidenceLevel    int              `yaml:"confidence_level" json:"confidence_level" toml:"confidence_level"`
	ComplexityFactor   ComplexityFactor `yaml:"complexity_factor" json:"complexity_factor" toml:"complexity_factor"`
	SkillLevelRequired SkillLevel       `yaml:"skill_level_required" json:"skill_level_required" toml:"skill_level_required"`
}

// Risk describes something that may go wrong while carrying out a task.
type Risk struct {
	Level       RiskLevel  `yaml:"level" json:"level" toml:"level"`
	Type        string     `yaml:"type" json:"type" toml:"type"`
	Description string     `yaml:"description" json:"description" toml:"description"`
	Mitigation  string     `yaml:"mitigation" json:"mitigation" toml:"mitigation"`
	Probability int        `yaml:"probability" json:"probability" toml:"probability"`
	Impact      RiskImpact `yaml:"impact" json:"impact" toml:"impact"`
}

// TaskTemplate is authored reference data describing a kind of construction
// task. Templates are never mutated after a catalog is built.
type TaskTemplate struct {
	Title              string   `yaml:"title" json:"title" toml:"title"`
	Description        string   `yaml:"description" json:"description" toml:"description"`
	Priority           Priority `yaml:"priority" json:"priority" toml:"priority"`
	EstimatedHours     int      `yaml:"estimated_hours" json:"estimated_hours" toml:"estimated_hours"`
	PhaseName          string   `yaml:"phase_name" json:"phase_name" toml:"phase_name"`
	WeatherDependent   bool     `yaml:"weather_dependent" json:"weather_dependent" toml:"weather_dependent"`
	RequiresInspection bool     `yaml:"requires_inspection" json:"requires_inspection" toml:"requires_inspection"`
	SafetyRequirements []string `yaml:"safety_requirements,omitempty" json:"safety_requirements,omitempty" toml:"safety_requirements,omitempty"`
	EquipmentNeeded    []string `yaml:"equipment_needed,omitempty" json:"equipment_needed,omitempty" toml:"equipment_needed,omitempty"`
	MaterialsNeeded    []string `yaml:"materials_needed,omitempty" json:"materials_needed,omitempty" toml:"materials_needed,omitempty"`
	Subtasks           []string `yaml:"subtasks,omitempty" json:"subtasks,omitempty" toml:"subtasks,omitempty"`
	LOE                *LOE     `yaml:"loe,omitempty" json:"loe,omitempty" toml:"loe,omitempty"`
	Risks              []Risk   `yaml:"risks,omitempty" json:"risks,omitempty" toml:"risks,omitempty"`

	// Automation hints.
	DependsOn        []string `yaml:"depends_on,omitempty" json:"depends_on,omitempty" toml:"depends_on,omitempty"`
	TriggersTasks    []string `yaml:"triggers_tasks,omitempty" json:"triggers_tasks,omitempty" toml:"triggers_tasks,omitempty"`
	MilestoneTrigger int      `yaml:"milestone_trigger,omitempty" json:"milestone_trigger,omitempty" toml:"milestone_trigger,omitempty"`
}

// RecurringTemplate is a task template that repeats on a fixed interval while
// the project is in one of its applicable phases.
type RecurringTemplate struct {
	TaskTemplate     `yaml:",inline"`
	Pattern          RecurrencePattern `yaml:"pattern" json:"pattern" toml:"pattern"`
	ApplicablePhases []string          `yaml:"applicable_phases" json:"applicable_phases" toml:"applicable_phases"`
}

// MilestoneTemplate lists tasks to emit once project completion reaches a
// percentage threshold.
type MilestoneTemplate struct {
	Name                 string         `yaml:"name" json:"name" toml:"name"`
	CompletionPercentage int            `yaml:"completion_percentage" json:"completion_percentage" toml:"completion_percentage"`
	TriggeredTasks       []TaskTemplate `yaml:"triggered_tasks" json:"triggered_tasks" toml:"triggered_tasks"`
}
