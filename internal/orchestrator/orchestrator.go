// Package orchestrator drives N Monte Carlo trials across W workers with
// deterministic parallel seeding, merges their aggregate state, and
// produces the final Result, per spec §4.5.
package orchestrator

import (
	"context"
	"runtime"
	"time"

	"golang.org/x/exp/rand"
	"golang.org/x/sync/errgroup"

	"github.com/forecastry/montecarlo/internal/aggregator"
	"github.com/forecastry/montecarlo/internal/dag"
	"github.com/forecastry/montecarlo/internal/sampler"
	"github.com/forecastry/montecarlo/internal/trial"
	"github.com/forecastry/montecarlo/pkg/models"
)

// Result is the orchestrator's output: the merged aggregate state plus
// the run metadata spec §6's meta block names.
type Result struct {
	State            *aggregator.State
	NTrialsCompleted int
	SeedUsed          int64
	Partial          bool
}

// OverflowHook is called, before Run returns the error, with the worker
// index and deterministic sub-seed of a trial batch that aborted with a
// NumericOverflow runtime error — the host's chance to park the batch in
// a dead-letter queue instead of letting it vanish with the error.
type OverflowHook func(workerIndex int, subSeed uint64, err error)

// Run executes cfg.SimulationRuns trials over d, split across
// cfg.Workers workers (or runtime.NumCPU() if unset), and merges their
// aggregate state into one Result. Run cooperatively honors ctx: if ctx
// is cancelled between trials, workers stop early and Run returns a
// partial Result rather than an error (spec §7, "Cancellation (not an
// error)").
//
// A NumericOverflowError from any worker aborts the entire run and is
// returned as an error with no Result, since spec §7 distinguishes fatal
// runtime errors from cancellation: no partial result is produced for a
// numeric fault. onOverflow, if given, is invoked with the failing
// worker's batch identity before the error is returned.
func Run(ctx context.Context, d *dag.DAG, cfg models.Config, onOverflow ...OverflowHook) (*Result, error) {
	var hook OverflowHook
	if len(onOverflow) > 0 {
		hook = onOverflow[0]
	}
	n := cfg.SimulationRuns
	if n <= 0 {
		n = models.DefaultConfig().SimulationRuns
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > n {
		workers = n
	}

	seed := resolveSeed(cfg.Seed)

	trialsPerWorker := (n + workers - 1) / workers

	g, gctx := errgroup.WithContext(ctx)
	states := make([]*aggregator.State, workers)
	completed := make([]int, workers)

	assigned := 0
	for w := 0; w < workers; w++ {
		count := trialsPerWorker
		if assigned+count > n {
			count = n - assigned
		}
		assigned += count
		if count <= 0 {
			continue
		}

		workerID := w
		workerTrials := count

		g.Go(func() error {
			workerSubSeed := subSeed(uint64(seed), workerID)
			src := rand.NewSource(workerSubSeed)
			pert := sampler.New(src)
			exec := trial.New(d, pert)
			state := aggregator.New(d.Tasks())

			for t := 0; t < workerTrials; t++ {
				select {
				case <-gctx.Done():
					states[workerID] = state
					completed[workerID] = t
					return nil
				default:
				}

				res, err := exec.Run(t)
				if err != nil {
					if hook != nil {
						hook(workerID, workerSubSeed, err)
					}
					return err
				}
				state.Fold(res)
			}

			states[workerID] = state
			completed[workerID] = workerTrials
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := aggregator.New(d.Tasks())
	nCompleted := 0
	for i, s := range states {
		if s == nil {
			continue
		}
		merged.Merge(s)
		nCompleted += completed[i]
	}

	return &Result{
		State:            merged,
		NTrialsCompleted: nCompleted,
		SeedUsed:         seed,
		Partial:          nCompleted < n,
	}, nil
}

func resolveSeed(seed *int64) int64 {
	if seed != nil {
		return *seed
	}
	return time.Now().UnixNano()
}
