package core

import (
	"errors"
	"reflect"
	"testing"

	"github.com/valter-silva-au/build-brain/pkg/models"
)

func taskWithDeps(id string, status models.TaskStatus, deps ...string) models.Task {
	t := models.Task{ID: id, Title: "Task " + id, Status: status}
	for _, d := range deps {
		t.Dependencies = append(t.Dependencies, models.DependencyRef{ID: d})
	}
	return t
}

func TestDependencyGraph_Phases(t *testing.T) {
	tasks := []models.Task{
		taskWithDeps("a", models.StatusNotStarted),
		taskWithDeps("b", models.StatusNotStarted, "a"),
		taskWithDeps("c", models.StatusNotStarted, "a"),
		taskWithDeps("d", models.StatusNotStarted, "b", "c"),
		taskWithDeps("e", models.StatusNotStarted),
	}

	phases, err := BuildDependencyGraph(tasks).Phases()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := [][]string{{"a", "e"}, {"b", "c"}, {"d"}}
	if !reflect.DeepEqual(phases, want) {
		t.Errorf("Phases = %v, want %v", phases, want)
	}
}

func TestDependencyGraph_PrerequisitesAndDependents(t *testing.T) {
	g := BuildDependencyGraph([]models.Task{
		taskWithDeps("a", models.StatusNotStarted),
		taskWithDeps("b", models.StatusNotStarted, "a", "a", "ghost"),
	})

	if got := g.Prerequisites("b"); !reflect.DeepEqual(got, []string{"a"}) {
		t.Errorf("Prerequisites(b) = %v, want [a]", got)
	}
	if got := g.Dependents("a"); !reflect.DeepEqual(got, []string{"b"}) {
		t.Errorf("Dependents(a) = %v, want [b]", got)
	}
	if g.Len() != 2 {
		t.Errorf("Len = %d, want 2", g.Len())
	}
}

func TestDependencyGraph_Cycle(t *testing.T) {
	g := BuildDependencyGraph([]models.Task{
		taskWithDeps("root", models.StatusNotStarted),
		taskWithDeps("x", models.StatusNotStarted, "y"),
		taskWithDeps("y", models.StatusNotStarted, "x"),
	})

	phases, err := g.Phases()
	if !errors.Is(err, ErrDependencyCycle) {
		t.Fatalf("err = %v, want ErrDependencyCycle", err)
	}
	if !reflect.DeepEqual(phases, [][]string{{"root"}}) {
		t.Errorf("partial phases = %v, want [[root]]", phases)
	}
}

func TestDependencyGraph_GeneratedScheduleIsAChain(t *testing.T) {
	g := newTestGenerator(nil)
	tasks := g.GenerateTasksFromProject("p1", "Family Home", "a two storey family home with a garage and a garden, built on a sloping block near the river", GenerateOpts{StartDate: "2024-01-01"})

	phases, err := BuildDependencyGraph(tasks).Phases()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(phases) != len(tasks) {
		t.Fatalf("len(phases) = %d, want one level per task (%d)", len(phases), len(tasks))
	}
	for i, level := range phases {
		if len(level) != 1 || level[0] != tasks[i].ID {
			t.Errorf("phases[%d] = %v, want [%s]", i, level, tasks[i].ID)
		}
	}
}

func TestBlockedTasks(t *testing.T) {
	tasks := []models.Task{
		taskWithDeps("a", models.StatusCompleted),
		taskWithDeps("b", models.StatusInProgress, "a"),
		taskWithDeps("c", models.StatusInProgress, "b"),
		taskWithDeps("d", models.StatusNotStarted, "b"),
	}

	got := BlockedTasks(tasks)
	if !reflect.DeepEqual(got, []string{"c"}) {
		t.Errorf("BlockedTasks = %v, want [c]", got)
	}
}
