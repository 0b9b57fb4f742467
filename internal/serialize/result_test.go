package serialize

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/forecastry/montecarlo/internal/dag"
	"github.com/forecastry/montecarlo/internal/orchestrator"
	"github.com/forecastry/montecarlo/pkg/models"
)

func buildOrchestratorResult(t *testing.T) *orchestrator.Result {
	t.Helper()
	tasks := []models.Task{
		{ID: "A", Name: "Design", Category: "design", Optimistic: 1, MostLikely: 2, Pessimistic: 3},
		{ID: "B", Name: "Build", Category: "engineering", Predecessors: []string{"A"}, Optimistic: 2, MostLikely: 4, Pessimistic: 8},
	}
	d, err := dag.Build(tasks)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	seed := int64(11)
	r, err := orchestrator.Run(context.Background(), d, models.Config{SimulationRuns: 1000, Seed: &seed, Workers: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return r
}

func TestFromOrchestratorResult_PercentilesMonotonic(t *testing.T) {
	res := FromOrchestratorResult(buildOrchestratorResult(t))

	order := []string{"10", "25", "50", "75", "80", "90", "95"}
	last := -1.0
	for _, k := range order {
		v, ok := res.Percentiles[k]
		if !ok {
			t.Fatalf("missing percentile %s", k)
		}
		if v < last {
			t.Fatalf("percentile %s=%v is less than previous %v", k, v, last)
		}
		last = v
	}
}

func TestFromOrchestratorResult_BufferLabelsPresent(t *testing.T) {
	res := FromOrchestratorResult(buildOrchestratorResult(t))
	for _, k := range []string{"10", "25", "50", "75", "80", "90", "95"} {
		b, ok := res.Buffers[k]
		if !ok {
			t.Fatalf("missing buffer for %s", k)
		}
		if b.UseCaseLabel == "" {
			t.Errorf("missing use case label for percentile %s", k)
		}
		if b.BufferDays < 0 {
			t.Errorf("buffer days must be non-negative, got %v", b.BufferDays)
		}
	}
}

func TestFromOrchestratorResult_TaskCriticalityBounds(t *testing.T) {
	res := FromOrchestratorResult(buildOrchestratorResult(t))
	if len(res.TaskCriticality) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(res.TaskCriticality))
	}
	for _, tc := range res.TaskCriticality {
		if tc.CriticalityPct < 0 || tc.CriticalityPct > 100 {
			t.Errorf("criticality out of bounds: %v", tc.CriticalityPct)
		}
		if tc.PriorityLevel == "" {
			t.Errorf("missing priority level for %s", tc.ID)
		}
	}
}

func TestFromOrchestratorResult_MetaReflectsCompletion(t *testing.T) {
	res := FromOrchestratorResult(buildOrchestratorResult(t))
	if res.Meta.NTrialsCompleted != 1000 {
		t.Errorf("expected 1000 completed trials, got %d", res.Meta.NTrialsCompleted)
	}
	if res.Meta.Partial {
		t.Error("expected a non-partial result")
	}
	if res.Meta.SeedUsed != 11 {
		t.Errorf("expected seed 11, got %d", res.Meta.SeedUsed)
	}
}

func TestWriteTaskCriticalityCSV_HasHeaderAndRows(t *testing.T) {
	rows := []TaskCriticality{
		{ID: "A", Name: "Design", Category: "design", CriticalityPct: 100, PriorityLevel: "Critical", ResourceAllocationHint: "Best resources"},
	}
	var buf bytes.Buffer
	if err := WriteTaskCriticalityCSV(&buf, rows); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "criticality_pct") {
		t.Error("expected header row with criticality_pct")
	}
	if !strings.Contains(out, "Design") {
		t.Error("expected data row with task name")
	}
}

func TestPriorityLevelThresholds(t *testing.T) {
	cases := map[float64]string{
		90: "Critical",
		81: "Critical",
		80: "High",
		60: "High",
		50: "High",
		40: "Medium",
		20: "Medium",
		19: "Low",
		0:  "Low",
	}
	for pct, want := range cases {
		if got := priorityLevel(pct); got != want {
			t.Errorf("priorityLevel(%v) = %s, want %s", pct, got, want)
		}
	}
}

func TestRiskLevelThresholds(t *testing.T) {
	cases := map[float64]string{
		1.5: "High",
		1.0: "Medium",
		0.7: "Medium",
		0.4: "Medium",
		0.1: "Low",
	}
	for score, want := range cases {
		if got := riskLevel(score); got != want {
			t.Errorf("riskLevel(%v) = %s, want %s", score, got, want)
		}
	}
}
