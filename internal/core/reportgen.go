package core

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"text/template"

	"github.com/valter-silva-au/build-brain/pkg/models"
)

// ScheduleReportGenerator renders a project's schedule as Markdown.
type ScheduleReportGenerator interface {
	Render(project models.Project, tasks []models.Task) (string, error)
	RegisterTemplate(templatePath string) error
}

type scheduleReportGenerator struct {
	basePath       string
	customTemplate string
}

// NewScheduleReportGenerator creates a ScheduleReportGenerator. Relative custom
// template paths are resolved against basePath.
func NewScheduleReportGenerator(basePath string) ScheduleReportGenerator {
	return &scheduleReportGenerator{basePath: basePath}
}

// RegisterTemplate replaces the built-in schedule template with the file at
// templatePath.
func (rg *scheduleReportGenerator) RegisterTemplate(templatePath string) error {
	absPath := templatePath
	if !filepath.IsAbs(templatePath) {
		absPath = filepath.Join(rg.basePath, templatePath)
	}
	if _, err := os.Stat(absPath); err != nil {
		return fmt.Errorf("custom template file %s: %w", absPath, err)
	}
	rg.customTemplate = absPath
	return nil
}

type phaseSummary struct {
	Name      string
	TaskCount int
	Start     string
	Finish    string
	Hours     int
}

type riskRow struct {
	Task        string
	Level       models.RiskLevel
	Probability int
	Impact      models.RiskImpact
	Mitigation  string
}

// dependencyLevel lists the tasks whose prerequisites all sit in lower levels.
type dependencyLevel struct {
	Level int
	Tasks []string
}

type reportData struct {
	Project         models.Project
	Tasks           []models.Task
	Phases          []phaseSummary
	Levels          []dependencyLevel
	DependencyCycle bool
	Risks           []riskRow
	Finish          string
	Completion      int
	TotalHours      int
}

var reportFuncs = template.FuncMap{
	"inc":  func(i int) int { return i + 1 },
	"join": strings.Join,
	"hours": func(h float64) string {
		return strconv.FormatFloat(h, 'f', -1, 64)
	},
}

// Render executes the schedule template. Tasks are listed by start date,
// then in their given order.
func (rg *scheduleReportGenerator) Render(project models.Project, tasks []models.Task) (string, error) {
	raw, err := rg.rawTemplate()
	if err != nil {
		return "", err
	}

	tmpl, err := template.New("schedule").Funcs(reportFuncs).Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parsing schedule template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, buildReportData(project, tasks)); err != nil {
		return "", fmt.Errorf("executing schedule template for %s: %w", project.ID, err)
	}
	return buf.String(), nil
}

func (rg *scheduleReportGenerator) rawTemplate() (string, error) {
	if rg.customTemplate == "" {
		return GetEmbeddedTemplate("schedule.md")
	}
	raw, err := os.ReadFile(rg.customTemplate)
	if err != nil {
		return "", fmt.Errorf("reading custom template %s: %w", rg.customTemplate, err)
	}
	return string(raw), nil
}

func buildReportData(project models.Project, tasks []models.Task) reportData {
	sorted := make([]models.Task, len(tasks))
	copy(sorted, tasks)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].StartDate < sorted[j].StartDate })

	data := reportData{
		Project:    project,
		Tasks:      sorted,
		Completion: completionOf(sorted),
	}

	index := make(map[string]int)
	for _, t := range sorted {
		data.TotalHours += t.EstimatedHours
		if t.DueDate > data.Finish {
			data.Finish = t.DueDate
		}

		name := t.PhaseName
		if name == "" {
			name = "Unphased"
		}
		i, ok := index[name]
		if !ok {
			i = len(data.Phases)
			index[name] = i
			data.Phases = append(data.Phases, phaseSummary{Name: name, Start: t.StartDate})
		}
		p := &data.Phases[i]
		p.TaskCount++
		p.Hours += t.EstimatedHours
		if t.StartDate < p.Start {
			p.Start = t.StartDate
		}
		if t.DueDate > p.Finish {
			p.Finish = t.DueDate
		}

		for _, r := range t.Risks {
			data.Risks = append(data.Risks, riskRow{
				Task:        t.Title,
				Level:       r.Level,
				Probability: r.Probability,
				Impact:      r.Impact,
				Mitigation:  r.Mitigation,
			})
		}
	}
	if data.Finish == "" {
		data.Finish = project.StartDate
	}
	data.Levels, data.DependencyCycle = dependencyLevels(sorted)
	return data
}

// dependencyLevels groups task titles by dependency level. Tasks caught in a
// cycle are left out and reported through the second return value.
func dependencyLevels(tasks []models.Task) ([]dependencyLevel, bool) {
	g := BuildDependencyGraph(tasks)
	if g.Len() == 0 {
		return nil, false
	}
	titles := make(map[string]string, len(tasks))
	for _, t := range tasks {
		titles[t.ID] = t.Title
	}

	phases, err := g.Phases()
	levels := make([]dependencyLevel, len(phases))
	for i, ids := range phases {
		levels[i].Level = i
		for _, id := range ids {
			levels[i].Tasks = append(levels[i].Tasks, titles[id])
		}
	}
	return levels, errors.Is(err, ErrDependencyCycle)
}
