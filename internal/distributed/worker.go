package distributed

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"golang.org/x/exp/rand"

	"github.com/forecastry/montecarlo/internal/aggregator"
	"github.com/forecastry/montecarlo/internal/dag"
	"github.com/forecastry/montecarlo/internal/sampler"
	"github.com/forecastry/montecarlo/internal/trial"
)

// Worker runs trial batches dispatched by a Coordinator, adapted from the
// teacher's Worker (subscription lifecycle, heartbeats, graceful
// shutdown) retargeted from dispatching named task executors to running
// PERT trials against one DAG.
type Worker struct {
	id string
	nc *nats.Conn
	js nats.JetStreamContext
	d  *dag.DAG

	sub *nats.Subscription

	mu          sync.Mutex
	activeBatch string

	stopHeartbeat chan struct{}
	wg            sync.WaitGroup
}

// NewWorker connects to NATS and derives a stable worker id from the
// host name and a random suffix, mirroring the teacher's ID scheme.
func NewWorker(natsURL string, d *dag.DAG) (*Worker, error) {
	nc, err := nats.Connect(natsURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	hostname, _ := os.Hostname()
	id := fmt.Sprintf("%s-%s", hostname, uuid.New().String()[:8])

	return &Worker{
		id:            id,
		nc:            nc,
		js:            js,
		d:             d,
		stopHeartbeat: make(chan struct{}),
	}, nil
}

// Start subscribes to the trial batch subject and begins heartbeating.
func (w *Worker) Start() error {
	sub, err := w.js.QueueSubscribe(TrialBatchSubject, "trial-workers", w.handleBatch,
		nats.Durable("trial-workers"), nats.ManualAck(), nats.AckWait(10*time.Minute))
	if err != nil {
		return fmt.Errorf("failed to subscribe to trial batches: %w", err)
	}
	w.sub = sub

	w.wg.Add(1)
	go w.sendHeartbeats()

	return nil
}

// Stop unsubscribes, stops heartbeating, and closes the NATS connection.
func (w *Worker) Stop() {
	if w.sub != nil {
		w.sub.Unsubscribe()
	}
	close(w.stopHeartbeat)
	w.wg.Wait()
	w.nc.Close()
}

func (w *Worker) handleBatch(msg *nats.Msg) {
	var batch TrialBatchMessage
	if err := json.Unmarshal(msg.Data, &batch); err != nil {
		log.Printf("worker %s: failed to unmarshal trial batch: %v", w.id, err)
		msg.Nak()
		return
	}

	w.mu.Lock()
	w.activeBatch = fmt.Sprintf("%s/%d", batch.RunID, batch.WorkerIndex)
	w.mu.Unlock()

	result := w.runBatch(batch)

	w.mu.Lock()
	w.activeBatch = ""
	w.mu.Unlock()

	data, err := json.Marshal(result)
	if err != nil {
		log.Printf("worker %s: failed to marshal trial batch result: %v", w.id, err)
		msg.Nak()
		return
	}

	resultSubject := TrialBatchResultSubject + "." + batch.RunID
	if _, err := w.js.Publish(resultSubject, data); err != nil {
		log.Printf("worker %s: failed to publish trial batch result: %v", w.id, err)
		msg.Nak()
		return
	}

	msg.Ack()
}

func (w *Worker) runBatch(batch TrialBatchMessage) TrialBatchResultMessage {
	src := rand.NewSource(batch.SubSeed)
	pert := sampler.New(src)
	exec := trial.New(w.d, pert)
	state := aggregator.New(w.d.Tasks())

	for t := 0; t < batch.TrialCount; t++ {
		r, err := exec.Run(t)
		if err != nil {
			return TrialBatchResultMessage{
				RunID:        batch.RunID,
				WorkerIndex:  batch.WorkerIndex,
				WorkerID:     w.id,
				NumericError: err.Error(),
			}
		}
		state.Fold(r)
	}

	stateJSON, err := json.Marshal(state)
	if err != nil {
		return TrialBatchResultMessage{
			RunID:        batch.RunID,
			WorkerIndex:  batch.WorkerIndex,
			WorkerID:     w.id,
			NumericError: fmt.Sprintf("failed to marshal aggregate state: %v", err),
		}
	}

	return TrialBatchResultMessage{
		RunID:       batch.RunID,
		WorkerIndex: batch.WorkerIndex,
		WorkerID:    w.id,
		StateJSON:   stateJSON,
		TrialsRun:   batch.TrialCount,
	}
}

func (w *Worker) sendHeartbeats() {
	defer w.wg.Done()
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	hostname, _ := os.Hostname()

	for {
		select {
		case <-w.stopHeartbeat:
			return
		case <-ticker.C:
			w.mu.Lock()
			active := w.activeBatch
			w.mu.Unlock()

			hb := WorkerHeartbeat{
				WorkerID:    w.id,
				Hostname:    hostname,
				ActiveBatch: active,
				Timestamp:   time.Now(),
			}
			data, err := json.Marshal(hb)
			if err != nil {
				continue
			}
			if err := w.nc.Publish(WorkerHeartbeatSubject, data); err != nil {
				log.Printf("worker %s: failed to publish heartbeat: %v", w.id, err)
			}
		}
	}
}

// ID returns this worker's identifier.
func (w *Worker) ID() string {
	return w.id
}
