package core

import (
	"math"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/valter-silva-au/build-brain/pkg/models"
)

const (
	hoursPerWorkDay = 8

	// Days of slack added after a task before the next one starts.
	bufferDays           = 1
	inspectionBufferDays = 2

	smallScaleFactor = 0.7
	largeScaleFactor = 1.5
)

// GenerateOpts holds optional inputs for GenerateTasksFromProject.
type GenerateOpts struct {
	// ProjectType overrides classification when set to a type the catalog knows.
	ProjectType models.ProjectType
	// StartDate is the schedule base date (YYYY-MM-DD). Empty or malformed
	// values fall back to today.
	StartDate string
}

// GeneratorOptions configures a TaskGenerator. Zero values select the
// system clock and random UUIDs.
type GeneratorOptions struct {
	Now   func() time.Time
	NewID func() string
}

// TaskGenerator turns templates into concrete tasks. Every method is a total
// function: unknown inputs degrade to an empty or default result, never an error.
type TaskGenerator interface {
	GenerateTasksFromProject(projectID, title, description string, opts GenerateOpts) []models.Task
	GenerateRecurringTasks(projectID string, startDate, endDate time.Time, projectPhases []string) []models.Task
	GenerateMilestoneTasks(projectID string, completionPercentage int) []models.Task
	GenerateNewMilestoneTasks(projectID string, completionPercentage int, fired []int) []models.Task
	GenerateDependencyBasedTasks(projectID, completedTaskTitle string, allProjectTasks []models.Task) []models.Task
	Analyze(title, description string) models.ProjectAnalysis
	Catalog() *Catalog
}

type taskGenerator struct {
	catalog    *Catalog
	classifier ProjectClassifier
	now        func() time.Time
	newID      func() string
}

// NewTaskGenerator creates a TaskGenerator over the given catalog.
func NewTaskGenerator(catalog *Catalog, classifier ProjectClassifier, opts GeneratorOptions) TaskGenerator {
	g := &taskGenerator{
		catalog:    catalog,
		classifier: classifier,
		now:        opts.Now,
		newID:      opts.NewID,
	}
	if g.now == nil {
		g.now = time.Now
	}
	if g.newID == nil {
		g.newID = uuid.NewString
	}
	return g
}

func (g *taskGenerator) Catalog() *Catalog {
	return g.catalog
}

func (g *taskGenerator) Analyze(title, description string) models.ProjectAnalysis {
	return g.classifier.AnalyzeProject(title, description)
}

// GenerateTasksFromProject builds a strictly serial schedule from the
// template list for the project's type. Each task starts after the previous
// one finishes plus a buffer, and depends on the task before it.
func (g *taskGenerator) GenerateTasksFromProject(projectID, title, description string, opts GenerateOpts) []models.Task {
	analysis := g.classifier.AnalyzeProject(title, description)
	projectType := analysis.ProjectType
	if opts.ProjectType != "" && g.catalog.HasProjectType(opts.ProjectType) {
		projectType = opts.ProjectType
	}

	templates := selectForScale(g.catalog.TemplatesFor(projectType), analysis.Scale)

	base := g.today()
	if opts.StartDate != "" {
		if parsed, err := time.Parse(models.DateLayout, opts.StartDate); err == nil {
			base = parsed
		}
	}

	created := g.now().UTC()
	tasks := make([]models.Task, 0, len(templates))
	offset := 0
	for _, tmpl := range templates {
		hours := scaleEstimatedHours(tmpl.EstimatedHours, analysis.Scale)
		duration := durationDays(hours)

		start := base.AddDate(0, 0, offset)
		due := start.AddDate(0, 0, duration)

		task := g.newTask(projectID, tmpl, models.SourceTemplate, start, due, created)
		task.EstimatedHours = hours
		task.LOE = materializeLOE(tmpl, hours, analysis.Scale)
		tasks = append(tasks, task)

		offset += duration + bufferAfter(tmpl)
	}

	linkSequentialDependencies(tasks)
	return tasks
}

// selectForScale keeps every other template for small projects, starting
// with the first. Medium and large projects keep the full list.
func selectForScale(templates []models.TaskTemplate, scale models.Scale) []models.TaskTemplate {
	if scale != models.ScaleSmall {
		return templates
	}
	kept := make([]models.TaskTemplate, 0, (len(templates)+1)/2)
	for i, tmpl := range templates {
		if i%2 == 0 {
			kept = append(kept, tmpl)
		}
	}
	return kept
}

func bufferAfter(tmpl models.TaskTemplate) int {
	if tmpl.RequiresInspection {
		return inspectionBufferDays
	}
	return bufferDays
}

// linkSequentialDependencies gives every task but the first a single
// dependency on the task immediately before it.
func linkSequentialDependencies(tasks []models.Task) {
	for i := 1; i < len(tasks); i++ {
		tasks[i].Dependencies = []models.DependencyRef{tasks[i-1].Snapshot()}
	}
}

func scaleFactor(scale models.Scale) float64 {
	switch scale {
	case models.ScaleSmall:
		return smallScaleFactor
	case models.ScaleLarge:
		return largeScaleFactor
	default:
		return 1
	}
}

// scaleHours applies the scale factor and rounds up. Medium leaves the value
// untouched. The product is rounded to six decimals first so that float
// noise such as 10*0.7 = 7.000000000000001 does not push the ceiling up.
func scaleHours(hours float64, scale models.Scale) float64 {
	if scale != models.ScaleSmall && scale != models.ScaleLarge {
		return hours
	}
	scaled := math.Round(hours*scaleFactor(scale)*1e6) / 1e6
	return math.Ceil(scaled)
}

func scaleEstimatedHours(hours int, scale models.Scale) int {
	return int(scaleHours(float64(hours), scale))
}

func durationDays(hours int) int {
	if hours <= 0 {
		return 0
	}
	return (hours + hoursPerWorkDay - 1) / hoursPerWorkDay
}

// synthesizeLOE derives a three-point estimate from a single hour figure.
func synthesizeLOE(hours int) models.LOE {
	h := float64(hours)
	return models.LOE{
		OptimisticHours:    roundTenth(h * 0.8),
		MostLikelyHours:    h,
		PessimisticHours:   roundTenth(h * 1.3),
		ConfidenceLevel:    75,
		ComplexityFactor:   models.ComplexityModerate,
		SkillLevelRequired: models.SkillIntermediate,
	}
}

// materializeLOE scales the template's estimate (or a synthesized one) and
// pins most-likely to the scaled task hours. The result always satisfies
// optimistic <= most_likely <= pessimistic.
func materializeLOE(tmpl models.TaskTemplate, scaledHours int, scale models.Scale) models.LOE {
	loe := synthesizeLOE(tmpl.EstimatedHours)
	if tmpl.LOE != nil {
		loe = *tmpl.LOE
	}

	loe.OptimisticHours = scaleHours(loe.OptimisticHours, scale)
	loe.PessimisticHours = scaleHours(loe.PessimisticHours, scale)
	loe.MostLikelyHours = float64(scaledHours)

	if loe.OptimisticHours > loe.MostLikelyHours {
		loe.OptimisticHours = loe.MostLikelyHours
	}
	if loe.PessimisticHours < loe.MostLikelyHours {
		loe.PessimisticHours = loe.MostLikelyHours
	}
	return loe
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}

func defaultRisks() []models.Risk {
	return []models.Risk{{
		Level:       models.RiskMedium,
		Type:        "schedule",
		Description: "Potential schedule delays",
		Mitigation:  "Regular progress monitoring and resource allocation",
		Probability: 30,
		Impact:      models.ImpactMedium,
	}}
}

// newTask copies a template into a fresh, not-started task. Hours and LOE are
// taken from the template unscaled; callers that scale overwrite them.
func (g *taskGenerator) newTask(projectID string, tmpl models.TaskTemplate, source models.TaskSource, start, due time.Time, created time.Time) models.Task {
	risks := slices.Clone(tmpl.Risks)
	if len(risks) == 0 {
		risks = defaultRisks()
	}

	return models.Task{
		ID:                   g.newID(),
		ProjectID:            projectID,
		Title:                tmpl.Title,
		Description:          tmpl.Description,
		Status:               models.StatusNotStarted,
		Priority:             tmpl.Priority,
		CompletionPercentage: 0,
		StartDate:            start.Format(models.DateLayout),
		DueDate:              due.Format(models.DateLayout),
		EstimatedHours:       tmpl.EstimatedHours,
		WeatherDependent:     tmpl.WeatherDependent,
		RequiresInspection:   tmpl.RequiresInspection,
		SafetyRequirements:   cloneOrEmpty(tmpl.SafetyRequirements),
		EquipmentNeeded:      cloneOrEmpty(tmpl.EquipmentNeeded),
		MaterialsNeeded:      cloneOrEmpty(tmpl.MaterialsNeeded),
		Dependencies:         []models.DependencyRef{},
		BeforePhotos:         []string{},
		ProgressPhotos:       []string{},
		AfterPhotos:          []string{},
		PhaseName:            tmpl.PhaseName,
		Subtasks:             cloneOrEmpty(tmpl.Subtasks),
		LOE:                  materializeLOE(tmpl, tmpl.EstimatedHours, models.ScaleMedium),
		Risks:                risks,
		Source:               source,
		Created:              created,
	}
}

func cloneOrEmpty(s []string) []string {
	if len(s) == 0 {
		return []string{}
	}
	return slices.Clone(s)
}

// today returns the current calendar date at midnight UTC.
func (g *taskGenerator) today() time.Time {
	return dateOnly(g.now())
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
