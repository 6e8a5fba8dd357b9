// Package hierarchy computes a safe processing order for tasks: parents
// strictly before children, so a child's parent link can always be resolved
// to an existing target record.
package hierarchy

import (
	"sort"

	"github.com/mesh-intelligence/opsync/pkg/types"
)

// Edge is one parent → child relation, derived per run from task data.
// Edges are never persisted; they exist only to compute ordering.
type Edge struct {
	ParentSourceID string
	ChildSourceID  string
}

// Edges extracts the in-scope parent/child relations from tasks. A parent
// outside the task set produces no edge; the child is ordered as a root.
func Edges(tasks []*types.Task) []Edge {
	inScope := make(map[string]bool, len(tasks))
	for _, task := range tasks {
		inScope[task.ID] = true
	}
	var edges []Edge
	for _, task := range tasks {
		if task.ParentID != "" && inScope[task.ParentID] {
			edges = append(edges, Edge{ParentSourceID: task.ParentID, ChildSourceID: task.ID})
		}
	}
	return edges
}

// visit states for the depth-first walk.
const (
	unvisited = iota
	visiting
	done
)

// Order returns tasks in parent-first order. Ties among siblings are broken
// by ascending source ID so runs are deterministic. A parent chain that
// references itself transitively yields a *types.CycleError naming the
// offending chain, and no ordering is produced.
func Order(tasks []*types.Task) ([]*types.Task, error) {
	byID := make(map[string]*types.Task, len(tasks))
	ids := make([]string, 0, len(tasks))
	for _, task := range tasks {
		byID[task.ID] = task
		ids = append(ids, task.ID)
	}
	sort.Strings(ids)

	state := make(map[string]int, len(tasks))
	ordered := make([]*types.Task, 0, len(tasks))
	var chain []string

	var visit func(id string) *types.CycleError
	visit = func(id string) *types.CycleError {
		switch state[id] {
		case done:
			return nil
		case visiting:
			// Trim the chain to the cycle itself.
			for i, seen := range chain {
				if seen == id {
					return &types.CycleError{Chain: append([]string(nil), chain[i:]...)}
				}
			}
			return &types.CycleError{Chain: []string{id}}
		}
		state[id] = visiting
		chain = append(chain, id)

		task := byID[id]
		if parent := task.ParentID; parent != "" {
			if _, ok := byID[parent]; ok {
				if cycleErr := visit(parent); cycleErr != nil {
					return cycleErr
				}
			}
			// An out-of-scope parent makes this task a root for ordering;
			// the parent link itself is preserved in the payload.
		}

		chain = chain[:len(chain)-1]
		state[id] = done
		ordered = append(ordered, task)
		return nil
	}

	for _, id := range ids {
		if cycleErr := visit(id); cycleErr != nil {
			return nil, cycleErr
		}
	}
	return ordered, nil
}
