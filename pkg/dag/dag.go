// Package dag validates and orders job manifests by their declared
// dependencies. Validation runs before any scheduling: every depends_on id
// must reference a manifest in the same set, and the set must be acyclic.
package dag

import (
	"errors"
	"fmt"
	"sort"

	"github.com/renderstack/maestro/pkg/models"
)

var (
	ErrDanglingDependency = errors.New("dependency references unknown manifest")
	ErrCyclicDependency   = errors.New("manifest set contains a dependency cycle")
	ErrDuplicateID        = errors.New("duplicate manifest id")
)

// Validate checks that manifest ids are unique, that every depends_on id
// exists in the set, and that the dependency relation forms a DAG.
func Validate(manifests []*models.JobManifest) error {
	byID := make(map[string]*models.JobManifest, len(manifests))

	for _, m := range manifests {
		if _, dup := byID[m.ID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateID, m.ID)
		}

		byID[m.ID] = m
	}

	for _, m := range manifests {
		for _, dep := range m.DependsOn {
			if _, ok := byID[dep]; !ok {
				return fmt.Errorf("%w: %s depends on %s", ErrDanglingDependency, m.ID, dep)
			}
		}
	}

	if _, err := Order(manifests); err != nil {
		return err
	}

	return nil
}

// Order returns a topological order of the manifest set using Kahn's
// algorithm. Ties are broken by generation order so that the result is
// deterministic and, for generator output, identical to generation order.
func Order(manifests []*models.JobManifest) ([]*models.JobManifest, error) {
	position := make(map[string]int, len(manifests))
	indegree := make(map[string]int, len(manifests))
	dependents := make(map[string][]string, len(manifests))
	byID := make(map[string]*models.JobManifest, len(manifests))

	for i, m := range manifests {
		position[m.ID] = i
		byID[m.ID] = m
		indegree[m.ID] = len(m.DependsOn)
	}

	for _, m := range manifests {
		for _, dep := range m.DependsOn {
			dependents[dep] = append(dependents[dep], m.ID)
		}
	}

	ready := make([]string, 0, len(manifests))

	for _, m := range manifests {
		if indegree[m.ID] == 0 {
			ready = append(ready, m.ID)
		}
	}

	ordered := make([]*models.JobManifest, 0, len(manifests))

	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool { return position[ready[i]] < position[ready[j]] })

		next := ready[0]
		ready = ready[1:]
		ordered = append(ordered, byID[next])

		for _, dependent := range dependents[next] {
			indegree[dependent]--
			if indegree[dependent] == 0 {
				ready = append(ready, dependent)
			}
		}
	}

	if len(ordered) != len(manifests) {
		var stuck []string

		for id, deg := range indegree {
			if deg > 0 {
				stuck = append(stuck, id)
			}
		}

		sort.Strings(stuck)

		return nil, fmt.Errorf("%w: %v", ErrCyclicDependency, stuck)
	}

	return ordered, nil
}

// Ready returns the manifests whose dependencies all have a completed result
// and which have no result of their own yet. Used by the bounded-parallel
// scheduler to pull runnable work.
func Ready(manifests []*models.JobManifest, results map[string]*models.JobResult) []*models.JobManifest {
	var ready []*models.JobManifest

	for _, m := range manifests {
		if _, done := results[m.ID]; done {
			continue
		}

		if DependenciesCompleted(m, results) {
			ready = append(ready, m)
		}
	}

	return ready
}

// DependenciesCompleted reports whether every dependency of m has a
// completed result in results.
func DependenciesCompleted(m *models.JobManifest, results map[string]*models.JobResult) bool {
	for _, dep := range m.DependsOn {
		if !results[dep].Completed() {
			return false
		}
	}

	return true
}
