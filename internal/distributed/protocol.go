// Package distributed runs a simulation's trials across multiple NATS
// JetStream workers instead of in-process goroutines, for projects where
// N is large enough to want more than one machine's CPUs. It is the
// distributed counterpart to internal/orchestrator: the sequential
// trial-loop and seeding scheme are identical, only the transport differs.
package distributed

import "time"

const (
	// TrialBatchStream and TrialBatchResultStream are the JetStream
	// stream names, adapted from the teacher's TASKS_PENDING/TASKS_RESULTS.
	TrialBatchStream       = "TRIAL_BATCHES"
	TrialBatchResultStream = "TRIAL_BATCH_RESULTS"

	TrialBatchSubject       = "trials.batches"
	TrialBatchResultSubject = "trials.results"
	WorkerHeartbeatSubject  = "trials.workers.heartbeat"
)

// TrialBatchMessage assigns one worker a contiguous range of trials to
// run against one simulation run, with its own deterministic sub-seed.
type TrialBatchMessage struct {
	RunID       string `json:"run_id"`
	WorkerIndex int    `json:"worker_index"`
	SubSeed     uint64 `json:"sub_seed"`
	TrialCount  int    `json:"trial_count"`
}

// TrialBatchResultMessage carries one worker's folded aggregate state
// back to the coordinator, serialized as JSON rather than a DB row: the
// coordinator only needs to Merge it in memory, never persist it
// per-worker.
type TrialBatchResultMessage struct {
	RunID         string `json:"run_id"`
	WorkerIndex   int    `json:"worker_index"`
	WorkerID      string `json:"worker_id"`
	StateJSON     []byte `json:"state_json"`
	TrialsRun     int    `json:"trials_run"`
	NumericError  string `json:"numeric_error,omitempty"`
}

// WorkerHeartbeat reports a live trial worker, mirroring the teacher's
// WorkerHeartbeat shape.
type WorkerHeartbeat struct {
	WorkerID    string    `json:"worker_id"`
	Hostname    string    `json:"hostname"`
	ActiveBatch string    `json:"active_batch,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}
