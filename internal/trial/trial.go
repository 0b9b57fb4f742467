// Package trial runs one Monte Carlo iteration over a DAG: sampling every
// task duration, computing earliest-finish times with a single forward
// pass, and reconstructing one critical path, per spec §4.3.
package trial

import (
	"fmt"
	"math"

	"github.com/forecastry/montecarlo/internal/dag"
	"github.com/forecastry/montecarlo/internal/sampler"
)

// NumericOverflowError reports a non-finite sample or finish time found
// mid-trial. This is a runtime error, not an input error: it aborts the
// whole simulation run rather than producing a partial Result (spec §7).
type NumericOverflowError struct {
	TaskIndex int
	Trial     int
	Reason    string
}

func (e *NumericOverflowError) Error() string {
	return fmt.Sprintf("numeric overflow at task %d (trial %d): %s", e.TaskIndex, e.Trial, e.Reason)
}

// Result is one trial's outcome. Durations and Finishes are indexed by
// insertion index, matching d.Tasks()/d.TopologicalOrder().
type Result struct {
	Durations []float64
	Finishes  []float64
	Duration  float64 // D = max_i Finishes[i]
	Critical  []bool  // Critical[i] true iff task i lies on the reconstructed critical path
}

// Executor runs trials against one DAG, reusing scratch buffers across
// calls so that N trials in a worker allocate once, per the ownership
// model spec §3 describes ("private scratch buffer... and a bitset").
type Executor struct {
	d        *dag.DAG
	pert     *sampler.PERT
	scratch  Result
}

// New returns an Executor for d, sampling durations with pert.
func New(d *dag.DAG, pert *sampler.PERT) *Executor {
	n := d.TaskCount()
	return &Executor{
		d:    d,
		pert: pert,
		scratch: Result{
			Durations: make([]float64, n),
			Finishes:  make([]float64, n),
			Critical:  make([]bool, n),
		},
	}
}

// Run executes one trial, numbered trialNum purely for error reporting,
// and returns a Result backed by the Executor's private scratch buffers.
// The returned Result is only valid until the next call to Run.
func (e *Executor) Run(trialNum int) (*Result, error) {
	n := e.d.TaskCount()
	tasks := e.d.Tasks()

	for i := range e.scratch.Critical {
		e.scratch.Critical[i] = false
	}

	for i, t := range tasks {
		d := e.pert.Sample(t.Optimistic, t.MostLikely, t.Pessimistic)
		if math.IsNaN(d) || math.IsInf(d, 0) {
			return nil, &NumericOverflowError{TaskIndex: i, Trial: trialNum, Reason: "non-finite sampled duration"}
		}
		e.scratch.Durations[i] = d
	}

	for _, i := range e.d.TopologicalOrder() {
		maxPredFinish := 0.0
		for _, p := range e.d.Predecessors(i) {
			if e.scratch.Finishes[p] > maxPredFinish {
				maxPredFinish = e.scratch.Finishes[p]
			}
		}
		f := e.scratch.Durations[i] + maxPredFinish
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, &NumericOverflowError{TaskIndex: i, Trial: trialNum, Reason: "non-finite finish time"}
		}
		e.scratch.Finishes[i] = f
	}

	sink := 0
	for i := 1; i < n; i++ {
		if e.scratch.Finishes[i] > e.scratch.Finishes[sink] {
			sink = i
		}
	}
	e.scratch.Duration = e.scratch.Finishes[sink]

	cur := sink
	for {
		e.scratch.Critical[cur] = true
		preds := e.d.Predecessors(cur)
		if len(preds) == 0 {
			break
		}
		next := preds[0]
		for _, p := range preds[1:] {
			if e.scratch.Finishes[p] > e.scratch.Finishes[next] {
				next = p
			}
		}
		cur = next
	}

	return &e.scratch, nil
}
