package core

import (
	"errors"
	"sort"

	"github.com/valter-silva-au/build-brain/pkg/models"
)

// ErrDependencyCycle is returned by Phases when the task dependencies form a cycle.
var ErrDependencyCycle = errors.New("dependency cycle detected")

// DependencyGraph is a directed graph of task prerequisites keyed by task ID.
// Edges run from a prerequisite to the tasks that depend on it.
type DependencyGraph struct {
	order         []string
	prerequisites map[string][]string
	dependents    map[string][]string
}

// BuildDependencyGraph builds a graph from each task's dependency snapshots.
// References to tasks outside the given set are ignored.
func BuildDependencyGraph(tasks []models.Task) *DependencyGraph {
	g := &DependencyGraph{
		order:         make([]string, 0, len(tasks)),
		prerequisites: make(map[string][]string, len(tasks)),
		dependents:    make(map[string][]string, len(tasks)),
	}
	for _, t := range tasks {
		if _, seen := g.prerequisites[t.ID]; seen {
			continue
		}
		g.order = append(g.order, t.ID)
		g.prerequisites[t.ID] = nil
	}
	for _, t := range tasks {
		for _, dep := range t.Dependencies {
			if _, known := g.prerequisites[dep.ID]; !known || dep.ID == "" {
				continue
			}
			g.addEdge(dep.ID, t.ID)
		}
	}
	return g
}

func (g *DependencyGraph) addEdge(from, to string) {
	for _, existing := range g.prerequisites[to] {
		if existing == from {
			return
		}
	}
	g.prerequisites[to] = append(g.prerequisites[to], from)
	g.dependents[from] = append(g.dependents[from], to)
}

// Prerequisites returns the IDs of tasks that must finish before id.
func (g *DependencyGraph) Prerequisites(id string) []string {
	return g.prerequisites[id]
}

// Dependents returns the IDs of tasks waiting on id.
func (g *DependencyGraph) Dependents(id string) []string {
	return g.dependents[id]
}

// Len returns the number of tasks in the graph.
func (g *DependencyGraph) Len() int {
	return len(g.order)
}

// Phases groups task IDs into levels using Kahn's algorithm. Level 0 holds
// tasks with no prerequisites; level N holds tasks whose prerequisites all sit
// in levels below N. Tasks within a level keep their input order.
func (g *DependencyGraph) Phases() ([][]string, error) {
	position := make(map[string]int, len(g.order))
	indegree := make(map[string]int, len(g.order))
	for i, id := range g.order {
		position[id] = i
		indegree[id] = len(g.prerequisites[id])
	}

	var current []string
	for _, id := range g.order {
		if indegree[id] == 0 {
			current = append(current, id)
		}
	}

	var phases [][]string
	placed := 0
	for len(current) > 0 {
		phases = append(phases, current)
		placed += len(current)

		var next []string
		for _, id := range current {
			for _, dep := range g.dependents[id] {
				indegree[dep]--
				if indegree[dep] == 0 {
					next = append(next, dep)
				}
			}
		}
		sort.Slice(next, func(i, j int) bool { return position[next[i]] < position[next[j]] })
		current = next
	}

	if placed != len(g.order) {
		return phases, ErrDependencyCycle
	}
	return phases, nil
}

// BlockedTasks returns the IDs of tasks that have started while at least one
// prerequisite is not yet completed.
func BlockedTasks(tasks []models.Task) []string {
	g := BuildDependencyGraph(tasks)
	byID := make(map[string]models.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}

	var blocked []string
	for _, id := range g.order {
		t := byID[id]
		if t.Status != models.StatusInProgress {
			continue
		}
		for _, pre := range g.Prerequisites(id) {
			if byID[pre].Status != models.StatusCompleted {
				blocked = append(blocked, id)
				break
			}
		}
	}
	return blocked
}
