package cli

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/valter-silva-au/build-brain/internal/core"
	"github.com/valter-silva-au/build-brain/internal/storage"
	"github.com/valter-silva-au/build-brain/pkg/models"
)

var testNow = time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

// withTestServices points the package-level services at a real generator and
// a file store in a temp directory, restoring the originals on cleanup.
func withTestServices(t *testing.T) core.ProjectService {
	t.Helper()

	origGen, origProjects, origCatalog := Generator, Projects, Catalog
	origReport, origConfig, origBase := ReportGen, Config, BasePath
	t.Cleanup(func() {
		Generator, Projects, Catalog = origGen, origProjects, origCatalog
		ReportGen, Config, BasePath = origReport, origConfig, origBase
	})

	dir := t.TempDir()
	n := 0
	catalog := core.BuiltinCatalog()
	Generator = core.NewTaskGenerator(catalog, core.NewProjectClassifier(), core.GeneratorOptions{
		Now: func() time.Time { return testNow },
		NewID: func() string {
			n++
			return fmt.Sprintf("task-%d", n)
		},
	})
	Projects = core.NewProjectService(Generator, storage.NewFileProjectStore(dir), nil, func() time.Time { return testNow })
	Catalog = catalog
	ReportGen = core.NewScheduleReportGenerator(dir)
	Config = nil
	BasePath = dir
	return Projects
}

// createTestProject stores a small residential project starting 2024-03-18.
func createTestProject(t *testing.T, svc core.ProjectService) (*models.Project, []models.Task) {
	t.Helper()
	project, tasks, err := svc.CreateProject(context.Background(), "Shed", "A garden shed", core.CreateProjectOpts{StartDate: "2024-03-18"})
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	return project, tasks
}

// runCommand executes the root command with args and returns its output.
// Every flag is reset to its default first so runs do not leak into each other.
func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	return out.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}
