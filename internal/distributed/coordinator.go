package distributed

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/forecastry/montecarlo/internal/aggregator"
	"github.com/forecastry/montecarlo/internal/dag"
)

// Coordinator submits trial batches to NATS workers and merges their
// results, adapted from the teacher's DistributedExecutor (stream setup,
// result subscription, worker heartbeat tracking) retargeted from task
// dispatch to trial-batch dispatch.
type Coordinator struct {
	nc *nats.Conn
	js nats.JetStreamContext
	d  *dag.DAG

	workersMu sync.RWMutex
	workers   map[string]time.Time

	heartbeatSub *nats.Subscription
}

// NewCoordinator connects to NATS and initializes the trial-batch streams.
func NewCoordinator(natsURL string, d *dag.DAG) (*Coordinator, error) {
	nc, err := nats.Connect(natsURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	c := &Coordinator{nc: nc, js: js, d: d, workers: make(map[string]time.Time)}
	if err := c.initStreams(); err != nil {
		nc.Close()
		return nil, err
	}

	c.heartbeatSub, err = nc.Subscribe(WorkerHeartbeatSubject, c.handleHeartbeat)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to subscribe to heartbeats: %w", err)
	}

	return c, nil
}

func (c *Coordinator) initStreams() error {
	_, err := c.js.AddStream(&nats.StreamConfig{
		Name:      TrialBatchStream,
		Subjects:  []string{TrialBatchSubject},
		Retention: nats.WorkQueuePolicy,
		MaxAge:    1 * time.Hour,
	})
	if err != nil && err != nats.ErrStreamNameAlreadyInUse {
		return fmt.Errorf("failed to create trial batch stream: %w", err)
	}

	_, err = c.js.AddStream(&nats.StreamConfig{
		Name:      TrialBatchResultStream,
		Subjects:  []string{TrialBatchResultSubject + ".>"},
		Retention: nats.LimitsPolicy,
		MaxAge:    1 * time.Hour,
	})
	if err != nil && err != nats.ErrStreamNameAlreadyInUse {
		return fmt.Errorf("failed to create trial batch result stream: %w", err)
	}

	return nil
}

// Dispatch splits n trials into len(subSeeds) batches, publishes one
// TrialBatchMessage per batch, waits for every worker's result (or ctx
// cancellation), and returns the merged aggregate state. A worker
// reporting NumericError aborts the whole dispatch, matching spec §7's
// "no partial result on numeric fault" policy.
func (c *Coordinator) Dispatch(ctx context.Context, runID string, n int, subSeeds []uint64) (*aggregator.State, int, error) {
	workers := len(subSeeds)
	trialsPerWorker := (n + workers - 1) / workers

	resultSubject := TrialBatchResultSubject + "." + runID
	resultCh := make(chan TrialBatchResultMessage, workers)

	sub, err := c.js.Subscribe(resultSubject, func(msg *nats.Msg) {
		var result TrialBatchResultMessage
		if err := json.Unmarshal(msg.Data, &result); err != nil {
			log.Printf("failed to unmarshal trial batch result: %v", err)
			msg.Nak()
			return
		}
		msg.Ack()
		resultCh <- result
	}, nats.Durable("coordinator-"+runID), nats.ManualAck())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to subscribe to trial batch results: %w", err)
	}
	defer sub.Unsubscribe()

	assigned := 0
	published := 0
	for w := 0; w < workers; w++ {
		count := trialsPerWorker
		if assigned+count > n {
			count = n - assigned
		}
		assigned += count
		if count <= 0 {
			continue
		}

		msg := TrialBatchMessage{RunID: runID, WorkerIndex: w, SubSeed: subSeeds[w], TrialCount: count}
		data, err := json.Marshal(msg)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to marshal trial batch: %w", err)
		}
		if _, err := c.js.Publish(TrialBatchSubject, data); err != nil {
			return nil, 0, fmt.Errorf("failed to publish trial batch: %w", err)
		}
		published++
	}

	merged := aggregator.New(c.d.Tasks())
	completed := 0

	for i := 0; i < published; i++ {
		select {
		case <-ctx.Done():
			return merged, completed, nil
		case result := <-resultCh:
			if result.NumericError != "" {
				return nil, 0, fmt.Errorf("worker %d reported numeric overflow: %s", result.WorkerIndex, result.NumericError)
			}
			var state aggregator.State
			if err := json.Unmarshal(result.StateJSON, &state); err != nil {
				return nil, 0, fmt.Errorf("failed to unmarshal worker %d state: %w", result.WorkerIndex, err)
			}
			merged.Merge(&state)
			completed += result.TrialsRun
		}
	}

	return merged, completed, nil
}

func (c *Coordinator) handleHeartbeat(msg *nats.Msg) {
	var hb WorkerHeartbeat
	if err := json.Unmarshal(msg.Data, &hb); err != nil {
		return
	}
	c.workersMu.Lock()
	c.workers[hb.WorkerID] = hb.Timestamp
	c.workersMu.Unlock()
}

// ActiveWorkers returns the ids of workers that sent a heartbeat within
// the last 30 seconds.
func (c *Coordinator) ActiveWorkers() []string {
	c.workersMu.RLock()
	defer c.workersMu.RUnlock()

	var active []string
	cutoff := time.Now().Add(-30 * time.Second)
	for id, last := range c.workers {
		if last.After(cutoff) {
			active = append(active, id)
		}
	}
	return active
}

// Close releases the NATS connection.
func (c *Coordinator) Close() {
	if c.heartbeatSub != nil {
		c.heartbeatSub.Unsubscribe()
	}
	c.nc.Close()
}
