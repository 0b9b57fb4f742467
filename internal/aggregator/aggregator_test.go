package aggregator

import (
	"math"
	"testing"

	"github.com/forecastry/montecarlo/internal/trial"
	"github.com/forecastry/montecarlo/pkg/models"
)

func fixedTasks() []models.Task {
	return []models.Task{
		{ID: "A", Name: "A", Category: "design"},
		{ID: "B", Name: "B", Category: "engineering"},
	}
}

func TestFold_AccumulatesCorrectly(t *testing.T) {
	s := New(fixedTasks())

	s.Fold(&trial.Result{
		Durations: []float64{1, 2},
		Duration:  5,
		Critical:  []bool{true, false},
	})
	s.Fold(&trial.Result{
		Durations: []float64{3, 4},
		Duration:  7,
		Critical:  []bool{false, true},
	})

	if s.N != 2 {
		t.Fatalf("expected N=2, got %d", s.N)
	}
	if s.Criticality[0] != 1 || s.Criticality[1] != 1 {
		t.Errorf("expected criticality counts [1,1], got %v", s.Criticality)
	}
	if s.SumD != 12 {
		t.Errorf("expected SumD=12, got %v", s.SumD)
	}
}

func TestMerge_IsOrderIndependent(t *testing.T) {
	resultsA := []*trial.Result{
		{Durations: []float64{1, 2}, Duration: 5, Critical: []bool{true, false}},
		{Durations: []float64{2, 2}, Duration: 6, Critical: []bool{false, true}},
	}
	resultsB := []*trial.Result{
		{Durations: []float64{3, 1}, Duration: 4, Critical: []bool{true, true}},
	}

	merge1 := New(fixedTasks())
	s1a := New(fixedTasks())
	for _, r := range resultsA {
		s1a.Fold(r)
	}
	s1b := New(fixedTasks())
	for _, r := range resultsB {
		s1b.Fold(r)
	}
	merge1.Merge(s1a)
	merge1.Merge(s1b)

	merge2 := New(fixedTasks())
	s2b := New(fixedTasks())
	for _, r := range resultsB {
		s2b.Fold(r)
	}
	s2a := New(fixedTasks())
	for _, r := range resultsA {
		s2a.Fold(r)
	}
	merge2.Merge(s2b)
	merge2.Merge(s2a)

	if merge1.N != merge2.N {
		t.Fatalf("N mismatch: %d vs %d", merge1.N, merge2.N)
	}
	if merge1.SumD != merge2.SumD {
		t.Errorf("SumD mismatch: %v vs %v", merge1.SumD, merge2.SumD)
	}
	for i := range merge1.Criticality {
		if merge1.Criticality[i] != merge2.Criticality[i] {
			t.Errorf("criticality mismatch at %d: %v vs %v", i, merge1.Criticality, merge2.Criticality)
		}
	}
}

func TestPercentile_MonotonicNonDecreasing(t *testing.T) {
	sorted := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	last := -math.MaxFloat64
	for _, p := range []float64{10, 25, 50, 75, 80, 90, 95} {
		v := Percentile(sorted, p)
		if v < last {
			t.Fatalf("percentile %v=%v is less than previous %v", p, v, last)
		}
		last = v
	}
}

func TestPercentile_NearestRank(t *testing.T) {
	sorted := []float64{10, 20, 30, 40, 50}
	if got := Percentile(sorted, 50); got != 30 {
		t.Errorf("expected P50=30, got %v", got)
	}
	if got := Percentile(sorted, 0); got != 10 {
		t.Errorf("expected P0=10, got %v", got)
	}
	if got := Percentile(sorted, 100); got != 50 {
		t.Errorf("expected P100=50, got %v", got)
	}
}

func TestCriticalityPct_Bounds(t *testing.T) {
	s := New(fixedTasks())
	for i := 0; i < 10; i++ {
		s.Fold(&trial.Result{
			Durations: []float64{1, 1},
			Duration:  2,
			Critical:  []bool{i%2 == 0, true},
		})
	}
	if pct := s.CriticalityPct(1); pct != 100 {
		t.Errorf("expected 100%% criticality for always-critical task, got %v", pct)
	}
	if pct := s.CriticalityPct(0); pct < 0 || pct > 100 {
		t.Errorf("criticality out of bounds: %v", pct)
	}
}

func TestSensitivity_PerfectPositiveCorrelation(t *testing.T) {
	s := New(fixedTasks())
	for i := 1; i <= 10; i++ {
		d := float64(i)
		s.Fold(&trial.Result{
			Durations: []float64{d, 1},
			Duration:  d + 1,
			Critical:  []bool{true, false},
		})
	}
	sens := s.Sensitivity()
	if diff := sens[0].Correlation - 1.0; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("expected correlation ~1.0 for perfectly correlated task, got %v", sens[0].Correlation)
	}
	if sens[1].Variance != 0 {
		t.Errorf("expected zero variance for constant-duration task, got %v", sens[1].Variance)
	}
}

func TestCategories_GroupsByCategory(t *testing.T) {
	s := New(fixedTasks())
	for i := 0; i < 5; i++ {
		s.Fold(&trial.Result{
			Durations: []float64{2, 3},
			Duration:  5,
			Critical:  []bool{true, true},
		})
	}
	cats := s.Categories()
	if len(cats) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(cats))
	}
}
