// Package dag builds and validates the directed acyclic graph of Tasks a
// simulation runs over, per spec §4.1.
package dag

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/hashicorp/go-multierror"
	"github.com/forecastry/montecarlo/pkg/models"
)

// Sentinel errors, satisfying errors.Is against the wrapped values below.
var (
	ErrDuplicateID        = errors.New("duplicate task id")
	ErrUnknownPredecessor = errors.New("unknown predecessor")
	ErrCyclicDependency   = errors.New("cyclic dependency")
	ErrInvalidEstimate    = errors.New("invalid estimate")
	ErrEmpty              = errors.New("empty task set")
)

// DuplicateIDError reports a task id that appears more than once.
type DuplicateIDError struct {
	ID string
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("duplicate task id: %s", e.ID)
}
func (e *DuplicateIDError) Unwrap() error { return ErrDuplicateID }

// UnknownPredecessorError reports a predecessor id that does not resolve
// to any task in the set.
type UnknownPredecessorError struct {
	Task    string
	Missing string
}

func (e *UnknownPredecessorError) Error() string {
	return fmt.Sprintf("task %s depends on unknown predecessor: %s", e.Task, e.Missing)
}
func (e *UnknownPredecessorError) Unwrap() error { return ErrUnknownPredecessor }

// InvalidEstimateError reports a three-point estimate violating
// 0 <= O <= M <= P, or a non-finite value.
type InvalidEstimateError struct {
	Task   string
	Reason string
}

func (e *InvalidEstimateError) Error() string {
	return fmt.Sprintf("task %s has invalid estimate: %s", e.Task, e.Reason)
}
func (e *InvalidEstimateError) Unwrap() error { return ErrInvalidEstimate }

// CyclicDependencyError reports at least one task id participating in a
// cycle found by the topological sort.
type CyclicDependencyError struct {
	Involved []string
}

func (e *CyclicDependencyError) Error() string {
	return fmt.Sprintf("cyclic dependency involving tasks: %v", e.Involved)
}
func (e *CyclicDependencyError) Unwrap() error { return ErrCyclicDependency }

// EmptyError reports a zero-task input.
type EmptyError struct{}

func (e *EmptyError) Error() string  { return "task set is empty" }
func (e *EmptyError) Unwrap() error  { return ErrEmpty }

// DAG is the index-based adjacency-list representation spec §9 mandates:
// tasks are stored in insertion order, predecessors as indices not names,
// so no shared ownership of task nodes is ever required downstream.
type DAG struct {
	tasks []models.Task

	// idIndex maps a task id to its position in tasks (== insertion order).
	idIndex map[string]int

	// predecessors[i] holds the indices of task i's direct predecessors.
	predecessors [][]int

	// successors[i] holds the indices of tasks that directly depend on i.
	successors [][]int

	// order is a topological order over indices, stable across trials and
	// deterministic given insertion order (ties broken by lowest index).
	order []int
}

// Build constructs a DAG from a sequence of tasks, validating every
// invariant spec.md §4.1 names. Every violation found is accumulated into
// a *multierror.Error and returned together, except CyclicDependency and
// Empty, each of which is returned standalone since the rest of
// validation is meaningless once either holds.
func Build(tasks []models.Task) (*DAG, error) {
	if len(tasks) == 0 {
		return nil, &EmptyError{}
	}

	idIndex := make(map[string]int, len(tasks))
	var verr *multierror.Error

	for i, t := range tasks {
		if _, exists := idIndex[t.ID]; exists {
			verr = multierror.Append(verr, &DuplicateIDError{ID: t.ID})
			continue
		}
		idIndex[t.ID] = i
	}

	predecessors := make([][]int, len(tasks))
	for i, t := range tasks {
		for _, predID := range t.Predecessors {
			predIdx, ok := idIndex[predID]
			if !ok {
				verr = multierror.Append(verr, &UnknownPredecessorError{Task: t.ID, Missing: predID})
				continue
			}
			predecessors[i] = append(predecessors[i], predIdx)
		}
		sort.Ints(predecessors[i])
	}

	for i, t := range tasks {
		if err := validateEstimate(t); err != nil {
			verr = multierror.Append(verr, err)
		}
		_ = i
	}

	if verr.ErrorOrNil() != nil {
		return nil, verr.ErrorOrNil()
	}

	successors := make([][]int, len(tasks))
	for i, preds := range predecessors {
		for _, p := range preds {
			successors[p] = append(successors[p], i)
		}
	}

	order, involved, err := topologicalOrder(predecessors, successors)
	if err != nil {
		ids := make([]string, len(involved))
		for i, idx := range involved {
			ids[i] = tasks[idx].ID
		}
		return nil, &CyclicDependencyError{Involved: ids}
	}

	return &DAG{
		tasks:        tasks,
		idIndex:      idIndex,
		predecessors: predecessors,
		successors:   successors,
		order:        order,
	}, nil
}

// validateEstimate checks 0 <= O <= M <= P and finiteness, per spec §3/§4.1.
func validateEstimate(t models.Task) error {
	for _, v := range []float64{t.Optimistic, t.MostLikely, t.Pessimistic} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &InvalidEstimateError{Task: t.ID, Reason: "non-finite value"}
		}
	}
	if t.Optimistic < 0 {
		return &InvalidEstimateError{Task: t.ID, Reason: "O<0"}
	}
	if t.Optimistic > t.MostLikely {
		return &InvalidEstimateError{Task: t.ID, Reason: "O>M"}
	}
	if t.MostLikely > t.Pessimistic {
		return &InvalidEstimateError{Task: t.ID, Reason: "M>P"}
	}
	return nil
}

// topologicalOrder runs Kahn's algorithm over index-based adjacency,
// breaking ties by lowest insertion index so the result is deterministic
// (spec.md §4.1).
func topologicalOrder(predecessors, successors [][]int) (order []int, involved []int, err error) {
	n := len(predecessors)
	inDegree := make([]int, n)
	for i, preds := range predecessors {
		inDegree[i] = len(preds)
	}

	ready := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if inDegree[i] == 0 {
			ready = append(ready, i)
		}
	}

	order = make([]int, 0, n)
	for len(ready) > 0 {
		// Lowest insertion index first, amongst those currently ready:
		// newly-ready successors are appended in the order they are
		// reached, not in index order, so ready is scanned for its
		// minimum index and that entry is removed.
		minPos := 0
		for i := 1; i < len(ready); i++ {
			if ready[i] < ready[minPos] {
				minPos = i
			}
		}
		cur := ready[minPos]
		ready = append(ready[:minPos], ready[minPos+1:]...)
		order = append(order, cur)

		for _, succ := range successors[cur] {
			inDegree[succ]--
			if inDegree[succ] == 0 {
				ready = append(ready, succ)
			}
		}
	}

	if len(order) != n {
		visited := make(map[int]bool, len(order))
		for _, idx := range order {
			visited[idx] = true
		}
		for i := 0; i < n; i++ {
			if !visited[i] {
				involved = append(involved, i)
			}
		}
		return nil, involved, ErrCyclicDependency
	}

	return order, nil, nil
}

// TaskCount returns the number of tasks in the DAG.
func (d *DAG) TaskCount() int { return len(d.tasks) }

// Tasks returns the tasks in insertion order. The returned slice must not
// be mutated by callers.
func (d *DAG) Tasks() []models.Task { return d.tasks }

// Task returns the task at insertion index i.
func (d *DAG) Task(i int) models.Task { return d.tasks[i] }

// IndexOf returns the insertion index of a task id.
func (d *DAG) IndexOf(id string) (int, bool) {
	i, ok := d.idIndex[id]
	return i, ok
}

// TopologicalOrder returns the deterministic topological order (insertion
// indices), stable across trials as spec.md §3 requires.
func (d *DAG) TopologicalOrder() []int { return d.order }

// Predecessors returns the indices of task i's direct predecessors, sorted
// ascending so that a tie-break over predecessor finish times (spec §4.3)
// deterministically prefers the lowest insertion index.
func (d *DAG) Predecessors(i int) []int { return d.predecessors[i] }

// Successors returns the indices of tasks that directly depend on task i.
func (d *DAG) Successors(i int) []int { return d.successors[i] }
