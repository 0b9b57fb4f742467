package dag

// This file holds general graph-introspection helpers retained from the
// whole-graph traversal style of the teacher's Graph type, generalized to
// the index-based DAG. Critical-path reconstruction is deliberately not
// here: a trial only ever needs one forward pass and one backward walk
// over its own sampled durations, not a standing whole-graph slack table,
// so that logic lives in internal/trial instead.

// GetParallelTasks returns the ids of tasks that are not yet completed but
// whose predecessors all are, i.e. the ids eligible to run next given the
// completed set.
func (d *DAG) GetParallelTasks(completed map[string]bool) []string {
	var ready []string

	for i, t := range d.tasks {
		if completed[t.ID] {
			continue
		}

		allDepsCompleted := true
		for _, predIdx := range d.predecessors[i] {
			if !completed[d.tasks[predIdx].ID] {
				allDepsCompleted = false
				break
			}
		}

		if allDepsCompleted {
			ready = append(ready, t.ID)
		}
	}

	return ready
}

// GetUpstreamTasks returns the ids of every task that the given task
// depends on, directly or indirectly.
func (d *DAG) GetUpstreamTasks(taskID string) ([]string, error) {
	idx, ok := d.idIndex[taskID]
	if !ok {
		return nil, &UnknownPredecessorError{Task: "", Missing: taskID}
	}

	upstream := make(map[int]bool)
	visited := make(map[int]bool)

	var walk func(int)
	walk = func(i int) {
		if visited[i] {
			return
		}
		visited[i] = true
		for _, p := range d.predecessors[i] {
			upstream[p] = true
			walk(p)
		}
	}
	walk(idx)

	result := make([]string, 0, len(upstream))
	for i := range upstream {
		result = append(result, d.tasks[i].ID)
	}
	return result, nil
}

// GetDownstreamTasks returns the ids of every task that depends on the
// given task, directly or indirectly.
func (d *DAG) GetDownstreamTasks(taskID string) ([]string, error) {
	idx, ok := d.idIndex[taskID]
	if !ok {
		return nil, &UnknownPredecessorError{Task: "", Missing: taskID}
	}

	downstream := make(map[int]bool)
	visited := make(map[int]bool)

	var walk func(int)
	walk = func(i int) {
		if visited[i] {
			return
		}
		visited[i] = true
		for _, s := range d.successors[i] {
			downstream[s] = true
			walk(s)
		}
	}
	walk(idx)

	result := make([]string, 0, len(downstream))
	for i := range downstream {
		result = append(result, d.tasks[i].ID)
	}
	return result, nil
}

// GetImmediateDependencies returns the ids of the task's direct predecessors.
func (d *DAG) GetImmediateDependencies(taskID string) ([]string, error) {
	idx, ok := d.idIndex[taskID]
	if !ok {
		return nil, &UnknownPredecessorError{Task: "", Missing: taskID}
	}
	return d.idsOf(d.predecessors[idx]), nil
}

// GetImmediateDependents returns the ids of tasks that directly depend on
// the given task.
func (d *DAG) GetImmediateDependents(taskID string) ([]string, error) {
	idx, ok := d.idIndex[taskID]
	if !ok {
		return nil, &UnknownPredecessorError{Task: "", Missing: taskID}
	}
	return d.idsOf(d.successors[idx]), nil
}

// GetRootTasks returns the ids of tasks with no predecessors.
func (d *DAG) GetRootTasks() []string {
	var roots []string
	for i, t := range d.tasks {
		if len(d.predecessors[i]) == 0 {
			roots = append(roots, t.ID)
		}
	}
	return roots
}

// GetLeafTasks returns the ids of tasks with no dependents.
func (d *DAG) GetLeafTasks() []string {
	var leaves []string
	for i, t := range d.tasks {
		if len(d.successors[i]) == 0 {
			leaves = append(leaves, t.ID)
		}
	}
	return leaves
}

func (d *DAG) idsOf(indices []int) []string {
	ids := make([]string, len(indices))
	for i, idx := range indices {
		ids[i] = d.tasks[idx].ID
	}
	return ids
}
