package cli

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/valter-silva-au/build-brain/internal/core"
	"github.com/valter-silva-au/build-brain/pkg/models"
)

func TestProjectCreate_NilService(t *testing.T) {
	orig := Projects
	defer func() { Projects = orig }()
	Projects = nil

	_, err := runCommand(t, "project", "create", "Shed")
	if err == nil || !strings.Contains(err.Error(), "not initialized") {
		t.Fatalf("expected not initialized error, got %v", err)
	}
}

func TestProjectCreate_PrintsTasks(t *testing.T) {
	withTestServices(t)

	out, err := runCommand(t, "project", "create", "Shed", "A garden shed", "--start", "2024-03-18")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	for _, want := range []string{"Shed", "residential", "small", "2024-03-18", "Permits and Site Survey", "5 task(s)"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestProjectCreate_JSONWithTypeOverride(t *testing.T) {
	withTestServices(t)

	out, err := runCommand(t, "project", "create", "Shed", "A garden shed", "--type", "commercial", "--json")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	var got struct {
		Project models.Project `json:"project"`
		Tasks   []models.Task  `json:"tasks"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decoding output: %v\n%s", err, out)
	}
	if got.Project.ProjectType != models.ProjectCommercial {
		t.Errorf("ProjectType = %q, want commercial", got.Project.ProjectType)
	}
	if len(got.Tasks) == 0 || got.Tasks[0].Title != "Site Analysis and Preparation" {
		t.Errorf("expected commercial templates, got %+v", got.Tasks)
	}
	// No --start and no config default: the schedule begins on the generator's today.
	if got.Project.StartDate != "2024-03-15" {
		t.Errorf("StartDate = %q, want 2024-03-15", got.Project.StartDate)
	}
}

func TestProjectCreate_TypeIsCaseInsensitive(t *testing.T) {
	withTestServices(t)

	out, err := runCommand(t, "project", "create", "Shed", "A garden shed", "--type", "Commercial", "--json")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	var got struct {
		Project models.Project `json:"project"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decoding output: %v", err)
	}
	if got.Project.ProjectType != models.ProjectCommercial {
		t.Errorf("ProjectType = %q, want commercial", got.Project.ProjectType)
	}
}

func TestProjectCreate_UnknownType(t *testing.T) {
	withTestServices(t)

	_, err := runCommand(t, "project", "create", "Shed", "--type", "skyscraper")
	if err == nil || !strings.Contains(err.Error(), "unknown project type") {
		t.Fatalf("expected unknown project type error, got %v", err)
	}
	projects, _ := Projects.ListProjects()
	if len(projects) != 0 {
		t.Errorf("rejected create saved %d projects", len(projects))
	}
}

func TestProjectCreate_ConfigDefaults(t *testing.T) {
	withTestServices(t)
	Config = &models.GlobalConfig{
		DefaultProjectType: models.ProjectRenovation,
		DefaultStartDate:   "2024-04-01",
	}

	out, err := runCommand(t, "project", "create", "Shed", "A garden shed", "--json")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	var got struct {
		Project models.Project `json:"project"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decoding output: %v", err)
	}
	if got.Project.ProjectType != models.ProjectRenovation {
		t.Errorf("ProjectType = %q, want renovation", got.Project.ProjectType)
	}
	if got.Project.StartDate != "2024-04-01" {
		t.Errorf("StartDate = %q, want 2024-04-01", got.Project.StartDate)
	}
}

func TestProjectCreate_InvalidStart(t *testing.T) {
	withTestServices(t)

	_, err := runCommand(t, "project", "create", "Shed", "--start", "18/03/2024")
	if err == nil || !strings.Contains(err.Error(), "invalid start date") {
		t.Fatalf("expected invalid start date error, got %v", err)
	}
}

func TestProjectList(t *testing.T) {
	svc := withTestServices(t)

	out, err := runCommand(t, "project", "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "No projects found.") {
		t.Errorf("expected empty message, got:\n%s", out)
	}

	project, _ := createTestProject(t, svc)
	out, err = runCommand(t, "project", "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, project.ID) || !strings.Contains(out, "0%") {
		t.Errorf("expected project row, got:\n%s", out)
	}
}

func TestProjectShow(t *testing.T) {
	svc := withTestServices(t)
	project, tasks := createTestProject(t, svc)
	if _, err := svc.UpdateTaskProgress(context.Background(), tasks[0].ID, 50, ""); err != nil {
		t.Fatalf("UpdateTaskProgress: %v", err)
	}

	out, err := runCommand(t, "project", "show", project.ID)
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if !strings.Contains(out, "Completion: 10%") {
		t.Errorf("expected 10%% completion, got:\n%s", out)
	}
	if !strings.Contains(out, "in_progress") {
		t.Errorf("expected in-progress task, got:\n%s", out)
	}
}

func TestProjectShow_NotFound(t *testing.T) {
	withTestServices(t)

	if _, err := runCommand(t, "project", "show", "missing"); err == nil {
		t.Fatal("expected error for unknown project")
	}
}

func TestProjectReport_ToFile(t *testing.T) {
	svc := withTestServices(t)
	project, _ := createTestProject(t, svc)
	path := filepath.Join(t.TempDir(), "report.md")

	out, err := runCommand(t, "project", "report", project.ID, "-o", path)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if !strings.Contains(out, "Report written to") {
		t.Errorf("unexpected output:\n%s", out)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading report: %v", err)
	}
	for _, want := range []string{"Shed", "Permits and Site Survey", "Foundation"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("report missing %q", want)
		}
	}
}

func TestProjectReport_CustomTemplate(t *testing.T) {
	svc := withTestServices(t)
	project, _ := createTestProject(t, svc)
	tmpl := filepath.Join(t.TempDir(), "brief.md")
	if err := os.WriteFile(tmpl, []byte("{{.Project.Title}} has {{len .Tasks}} tasks\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	out, err := runCommand(t, "project", "report", project.ID, "--template", tmpl)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if strings.TrimSpace(out) != "Shed has 5 tasks" {
		t.Errorf("custom report = %q", out)
	}
}

func TestProjectRecurring(t *testing.T) {
	svc := withTestServices(t)
	project, _ := createTestProject(t, svc)

	out, err := runCommand(t, "project", "recurring", project.ID, "--from", "2024-03-18", "--to", "2024-03-24")
	if err != nil {
		t.Fatalf("recurring: %v", err)
	}
	if !strings.Contains(out, "from 2024-03-18 to 2024-03-24") {
		t.Errorf("unexpected output:\n%s", out)
	}

	recurring, err := svc.ListTasks(core.TaskFilter{ProjectID: project.ID, Source: models.SourceRecurring})
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if len(recurring) == 0 {
		t.Fatal("expected recurring tasks to be stored")
	}
	for _, task := range recurring {
		if task.StartDate < "2024-03-18" || task.StartDate > "2024-03-24" {
			t.Errorf("task %s starts %s outside range", task.Title, task.StartDate)
		}
	}
}

func TestProjectRecurring_DefaultRange(t *testing.T) {
	svc := withTestServices(t)
	project, _ := createTestProject(t, svc)

	out, err := runCommand(t, "project", "recurring", project.ID, "--weeks", "1")
	if err != nil {
		t.Fatalf("recurring: %v", err)
	}
	if !strings.Contains(out, "from 2024-03-18 to 2024-03-24") {
		t.Errorf("expected range from project start, got:\n%s", out)
	}
}

func TestProjectRecurring_InvalidDate(t *testing.T) {
	svc := withTestServices(t)
	project, _ := createTestProject(t, svc)

	_, err := runCommand(t, "project", "recurring", project.ID, "--to", "soon")
	if err == nil || !strings.Contains(err.Error(), "invalid --to") {
		t.Fatalf("expected invalid --to error, got %v", err)
	}
}
