package core

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/valter-silva-au/build-brain/pkg/models"
	"gopkg.in/yaml.v3"
)

// CatalogFormat names a serialization format for catalog files.
type CatalogFormat string

const (
	CatalogYAML CatalogFormat = "yaml"
	CatalogTOML CatalogFormat = "toml"
)

// Catalog holds the template tables the generators draw from. A Catalog is
// never mutated after it is built and can be shared freely.
type Catalog struct {
	projectTemplates map[models.ProjectType][]models.TaskTemplate
	recurring        []models.RecurringTemplate
	milestones       []models.MilestoneTemplate
}

// catalogFile is the on-disk shape of a catalog override file.
type catalogFile struct {
	ProjectTypes map[string][]models.TaskTemplate `yaml:"project_types" toml:"project_types"`
	Recurring    []models.RecurringTemplate       `yaml:"recurring,omitempty" toml:"recurring,omitempty"`
	Milestones   []models.MilestoneTemplate       `yaml:"milestones,omitempty" toml:"milestones,omitempty"`
}

// knownProjectTypes lists project types in catalog order.
var knownProjectTypes = []models.ProjectType{
	models.ProjectResidential,
	models.ProjectCommercial,
	models.ProjectRenovation,
}

// BuiltinCatalog returns the catalog shipped with bdb.
func BuiltinCatalog() *Catalog {
	return &Catalog{
		projectTemplates: map[models.ProjectType][]models.TaskTemplate{
			models.ProjectResidential: builtinResidentialTemplates(),
			models.ProjectCommercial:  builtinCommercialTemplates(),
			models.ProjectRenovation:  builtinRenovationTemplates(),
		},
		recurring:  builtinRecurringTemplates(),
		milestones: builtinMilestoneTemplates(),
	}
}

// NewCatalog builds a catalog from explicit tables. Missing project types
// are left empty.
func NewCatalog(projectTemplates map[models.ProjectType][]models.TaskTemplate, recurring []models.RecurringTemplate, milestones []models.MilestoneTemplate) *Catalog {
	c := &Catalog{
		projectTemplates: make(map[models.ProjectType][]models.TaskTemplate, len(projectTemplates)),
		recurring:        slices.Clone(recurring),
		milestones:       slices.Clone(milestones),
	}
	for pt, tmpls := range projectTemplates {
		c.projectTemplates[pt] = slices.Clone(tmpls)
	}
	return c
}

// TemplatesFor returns the template list for projectType, falling back to
// the residential list for unknown types.
func (c *Catalog) TemplatesFor(projectType models.ProjectType) []models.TaskTemplate {
	if tmpls, ok := c.projectTemplates[projectType]; ok {
		return tmpls
	}
	return c.projectTemplates[models.ProjectResidential]
}

// HasProjectType reports whether the catalog has a template list for projectType.
func (c *Catalog) HasProjectType(projectType models.ProjectType) bool {
	_, ok := c.projectTemplates[projectType]
	return ok
}

// ResolveProjectType lower-cases name and checks it against the catalog. An
// empty name resolves to "" so the caller falls back to classification.
func (c *Catalog) ResolveProjectType(name string) (models.ProjectType, error) {
	pt := models.ProjectType(strings.ToLower(strings.TrimSpace(name)))
	if pt == "" {
		return "", nil
	}
	if !c.HasProjectType(pt) {
		var valid []string
		for _, known := range c.ProjectTypes() {
			valid = append(valid, string(known))
		}
		return "", fmt.Errorf("unknown project type %q: must be one of %s", name, strings.Join(valid, ", "))
	}
	return pt, nil
}

// ProjectTypes returns the project types present in the catalog, known types
// first in their canonical order, then any extra types sorted by name.
func (c *Catalog) ProjectTypes() []models.ProjectType {
	var types []models.ProjectType
	for _, pt := range knownProjectTypes {
		if _, ok := c.projectTemplates[pt]; ok {
			types = append(types, pt)
		}
	}
	var extra []models.ProjectType
	for pt := range c.projectTemplates {
		if !slices.Contains(knownProjectTypes, pt) {
			extra = append(extra, pt)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	return append(types, extra...)
}

// AllTaskTemplates returns every project template across all project types,
// in ProjectTypes order.
func (c *Catalog) AllTaskTemplates() []models.TaskTemplate {
	var all []models.TaskTemplate
	for _, pt := range c.ProjectTypes() {
		all = append(all, c.projectTemplates[pt]...)
	}
	return all
}

// RecurringTemplates returns the recurring template table.
func (c *Catalog) RecurringTemplates() []models.RecurringTemplate {
	return c.recurring
}

// MilestoneTemplates returns the milestone template table.
func (c *Catalog) MilestoneTemplates() []models.MilestoneTemplate {
	return c.milestones
}

// withOverrides returns a new catalog in which every table present in the
// file replaces the corresponding table of c.
func (c *Catalog) withOverrides(f catalogFile) *Catalog {
	merged := NewCatalog(c.projectTemplates, c.recurring, c.milestones)
	for name, tmpls := range f.ProjectTypes {
		merged.projectTemplates[models.ProjectType(strings.ToLower(name))] = slices.Clone(tmpls)
	}
	if len(f.Recurring) > 0 {
		merged.recurring = slices.Clone(f.Recurring)
	}
	if len(f.Milestones) > 0 {
		merged.milestones = slices.Clone(f.Milestones)
	}
	return merged
}

// LoadCatalogFile reads a YAML or TOML override file and layers it over base.
// The format is chosen from the file extension.
func LoadCatalogFile(base *Catalog, path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog file %s: %w", path, err)
	}

	format, err := catalogFormatFromPath(path)
	if err != nil {
		return nil, err
	}

	f, err := decodeCatalog(data, format)
	if err != nil {
		return nil, fmt.Errorf("parsing catalog file %s: %w", path, err)
	}

	return base.withOverrides(f), nil
}

func catalogFormatFromPath(path string) (CatalogFormat, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return CatalogYAML, nil
	case ".toml":
		return CatalogTOML, nil
	default:
		return "", fmt.Errorf("unsupported catalog file extension %q (use .yaml, .yml or .toml)", filepath.Ext(path))
	}
}

func decodeCatalog(data []byte, format CatalogFormat) (catalogFile, error) {
	var f catalogFile
	switch format {
	case CatalogYAML:
		if err := yaml.Unmarshal(data, &f); err != nil {
			return catalogFile{}, err
		}
	case CatalogTOML:
		if _, err := toml.Decode(string(data), &f); err != nil {
			return catalogFile{}, err
		}
	default:
		return catalogFile{}, fmt.Errorf("unsupported catalog format %q", format)
	}
	return f, nil
}

// ExportCatalog writes the full catalog to w in the given format.
func ExportCatalog(w io.Writer, c *Catalog, format CatalogFormat) error {
	f := catalogFile{
		ProjectTypes: make(map[string][]models.TaskTemplate, len(c.projectTemplates)),
		Recurring:    c.recurring,
		Milestones:   c.milestones,
	}
	for pt, tmpls := range c.projectTemplates {
		f.ProjectTypes[string(pt)] = tmpls
	}

	switch format {
	case CatalogYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(&f); err != nil {
			return fmt.Errorf("encoding catalog as YAML: %w", err)
		}
		return enc.Close()
	case CatalogTOML:
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(f); err != nil {
			return fmt.Errorf("encoding catalog as TOML: %w", err)
		}
		_, err := w.Write(buf.Bytes())
		return err
	default:
		return fmt.Errorf("unsupported catalog format %q", format)
	}
}

var validTemplatePriorities = map[models.Priority]bool{
	models.PriorityLow:      true,
	models.PriorityMedium:   true,
	models.PriorityHigh:     true,
	models.PriorityCritical: true,
}

// ValidateCatalog checks every template in the catalog and returns a single
// error listing all problems found.
func ValidateCatalog(c *Catalog) error {
	var errs []string

	for _, pt := range c.ProjectTypes() {
		for i, tmpl := range c.projectTemplates[pt] {
			errs = append(errs, validateTemplate(fmt.Sprintf("%s[%d]", pt, i), tmpl)...)
		}
	}

	for i, rt := range c.recurring {
		label := fmt.Sprintf("recurring[%d]", i)
		errs = append(errs, validateTemplate(label, rt.TaskTemplate)...)
		if _, ok := recurrenceIntervalDays[rt.Pattern]; !ok {
			errs = append(errs, fmt.Sprintf("%s: recurrence pattern %q is invalid, must be one of: daily, weekly, biweekly, monthly", label, rt.Pattern))
		}
		if len(rt.ApplicablePhases) == 0 {
			errs = append(errs, fmt.Sprintf("%s: applicable_phases must not be empty", label))
		}
	}

	for i, mt := range c.milestones {
		label := fmt.Sprintf("milestones[%d]", i)
		if mt.CompletionPercentage < 0 || mt.CompletionPercentage > 100 {
			errs = append(errs, fmt.Sprintf("%s: completion_percentage %d must be between 0 and 100", label, mt.CompletionPercentage))
		}
		for j, tmpl := range mt.TriggeredTasks {
			errs = append(errs, validateTemplate(fmt.Sprintf("%s.triggered_tasks[%d]", label, j), tmpl)...)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("catalog validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func validateTemplate(label string, tmpl models.TaskTemplate) []string {
	var errs []string
	if strings.TrimSpace(tmpl.Title) == "" {
		errs = append(errs, fmt.Sprintf("%s: title must not be empty", label))
	}
	if tmpl.EstimatedHours < 0 {
		errs = append(errs, fmt.Sprintf("%s: estimated_hours must be non-negative, got %d", label, tmpl.EstimatedHours))
	}
	if !validTemplatePriorities[tmpl.Priority] {
		errs = append(errs, fmt.Sprintf("%s: priority %q is invalid, must be one of: low, medium, high, critical", label, tmpl.Priority))
	}
	if l := tmpl.LOE; l != nil {
		if l.OptimisticHours > l.MostLikelyHours || l.MostLikelyHours > l.PessimisticHours {
			errs = append(errs, fmt.Sprintf("%s: loe must satisfy optimistic <= most_likely <= pessimistic, got %.1f/%.1f/%.1f",
				label, l.OptimisticHours, l.MostLikelyHours, l.PessimisticHours))
		}
		if l.ConfidenceLevel < 0 || l.ConfidenceLevel > 100 {
			errs = append(errs, fmt.Sprintf("%s: loe confidence_level %d must be between 0 and 100", label, l.ConfidenceLevel))
		}
	}
	for k, r := range tmpl.Risks {
		if r.Probability < 0 || r.Probability > 100 {
			errs = append(errs, fmt.Sprintf("%s.risks[%d]: probability %d must be between 0 and 100", label, k, r.Probability))
		}
	}
	return errs
}
