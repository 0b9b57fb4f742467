package scheduler

import (
	"testing"
	"time"
)

func TestPriorityQueue(t *testing.T) {
	t.Run("NewPriorityQueue creates empty queue", func(t *testing.T) {
		pq := NewPriorityQueue()
		if pq == nil {
			t.Fatal("expected non-nil priority queue")
		}
		if pq.Len() != 0 {
			t.Errorf("expected empty queue, got length %d", pq.Len())
		}
		if !pq.IsEmpty() {
			t.Error("expected queue to be empty")
		}
	})

	t.Run("Push and Pop single item", func(t *testing.T) {
		pq := NewPriorityQueue()
		item := &PriorityQueueItem{
			SimulationRunID: "run-1",
			ProjectID:       "project-1",
			ScheduledAt:     time.Now(),
			Priority:        PriorityMedium,
			EnqueuedAt:      time.Now(),
		}

		pq.Push(item)
		if pq.Len() != 1 {
			t.Errorf("expected length 1, got %d", pq.Len())
		}

		popped := pq.Pop()
		if popped == nil {
			t.Fatal("expected non-nil item")
		}
		if popped.SimulationRunID != "run-1" {
			t.Errorf("expected SimulationRunID run-1, got %s", popped.SimulationRunID)
		}
		if pq.Len() != 0 {
			t.Errorf("expected empty queue, got length %d", pq.Len())
		}
	})

	t.Run("Items ordered by priority", func(t *testing.T) {
		pq := NewPriorityQueue()
		now := time.Now()

		lowItem := &PriorityQueueItem{
			SimulationRunID: "run-low",
			ProjectID:       "project-1",
			ScheduledAt:     now,
			Priority:        PriorityLow,
			EnqueuedAt:      now,
		}
		medItem := &PriorityQueueItem{
			SimulationRunID: "run-med",
			ProjectID:       "project-1",
			ScheduledAt:     now,
			Priority:        PriorityMedium,
			EnqueuedAt:      now,
		}
		highItem := &PriorityQueueItem{
			SimulationRunID: "run-high",
			ProjectID:       "project-1",
			ScheduledAt:     now,
			Priority:        PriorityHigh,
			EnqueuedAt:      now,
		}

		pq.Push(lowItem)
		pq.Push(medItem)
		pq.Push(highItem)

		first := pq.Pop()
		if first.SimulationRunID != "run-high" {
			t.Errorf("expected run-high first, got %s", first.SimulationRunID)
		}

		second := pq.Pop()
		if second.SimulationRunID != "run-med" {
			t.Errorf("expected run-med second, got %s", second.SimulationRunID)
		}

		third := pq.Pop()
		if third.SimulationRunID != "run-low" {
			t.Errorf("expected run-low third, got %s", third.SimulationRunID)
		}
	})

	t.Run("FIFO order for same priority", func(t *testing.T) {
		pq := NewPriorityQueue()
		now := time.Now()

		item1 := &PriorityQueueItem{
			SimulationRunID: "run-1",
			ProjectID:       "project-1",
			ScheduledAt:     now,
			Priority:        PriorityMedium,
			EnqueuedAt:      now,
		}
		item2 := &PriorityQueueItem{
			SimulationRunID: "run-2",
			ProjectID:       "project-1",
			ScheduledAt:     now,
			Priority:        PriorityMedium,
			EnqueuedAt:      now.Add(1 * time.Second),
		}

		pq.Push(item1)
		pq.Push(item2)

		first := pq.Pop()
		if first.SimulationRunID != "run-1" {
			t.Errorf("expected run-1 first, got %s", first.SimulationRunID)
		}
	})

	t.Run("Peek without removing", func(t *testing.T) {
		pq := NewPriorityQueue()
		item := &PriorityQueueItem{
			SimulationRunID: "run-1",
			ProjectID:       "project-1",
			ScheduledAt:     time.Now(),
			Priority:        PriorityHigh,
			EnqueuedAt:      time.Now(),
		}

		pq.Push(item)

		peeked := pq.Peek()
		if peeked == nil {
			t.Fatal("expected non-nil item")
		}
		if peeked.SimulationRunID != "run-1" {
			t.Errorf("expected SimulationRunID run-1, got %s", peeked.SimulationRunID)
		}

		if pq.Len() != 1 {
			t.Errorf("expected length 1 after peek, got %d", pq.Len())
		}
	})

	t.Run("Clear removes all items", func(t *testing.T) {
		pq := NewPriorityQueue()
		now := time.Now()

		for i := 0; i < 5; i++ {
			pq.Push(&PriorityQueueItem{
				SimulationRunID: "run",
				ProjectID:       "project-1",
				ScheduledAt:     now,
				Priority:        PriorityMedium,
				EnqueuedAt:      now,
			})
		}

		if pq.Len() != 5 {
			t.Errorf("expected length 5, got %d", pq.Len())
		}

		pq.Clear()

		if pq.Len() != 0 {
			t.Errorf("expected length 0 after clear, got %d", pq.Len())
		}
		if !pq.IsEmpty() {
			t.Error("expected queue to be empty after clear")
		}
	})

	t.Run("Pop from empty queue returns nil", func(t *testing.T) {
		pq := NewPriorityQueue()
		item := pq.Pop()
		if item != nil {
			t.Error("expected nil from empty queue")
		}
	})

	t.Run("Peek empty queue returns nil", func(t *testing.T) {
		pq := NewPriorityQueue()
		item := pq.Peek()
		if item != nil {
			t.Error("expected nil from empty queue")
		}
	})

	t.Run("Items returns copy of queue", func(t *testing.T) {
		pq := NewPriorityQueue()
		now := time.Now()

		pq.Push(&PriorityQueueItem{
			SimulationRunID: "run-1",
			ProjectID:       "project-1",
			ScheduledAt:     now,
			Priority:        PriorityHigh,
			EnqueuedAt:      now,
		})

		items := pq.Items()
		if len(items) != 1 {
			t.Errorf("expected 1 item, got %d", len(items))
		}

		if pq.Len() != 1 {
			t.Error("Items() should not modify queue")
		}
	})
}

func TestPriorityQueueConcurrency(t *testing.T) {
	t.Run("Concurrent push and pop", func(t *testing.T) {
		pq := NewPriorityQueue()
		now := time.Now()
		done := make(chan bool)

		for i := 0; i < 100; i++ {
			go func(id int) {
				pq.Push(&PriorityQueueItem{
					SimulationRunID: "run",
					ProjectID:       "project-1",
					ScheduledAt:     now,
					Priority:        PriorityMedium,
					EnqueuedAt:      now,
				})
			}(i)
		}

		go func() {
			for i := 0; i < 100; i++ {
				pq.Pop()
			}
			done <- true
		}()

		<-done

		if !pq.IsEmpty() {
			t.Error("expected empty queue after concurrent operations")
		}
	})
}
