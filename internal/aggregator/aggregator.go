// Package aggregator accumulates trial results into the running
// statistics spec §4.4 defines: the duration sample, per-task
// criticality counts, per-task sensitivity moments, and per-category
// rollups.
package aggregator

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/forecastry/montecarlo/internal/trial"
	"github.com/forecastry/montecarlo/pkg/models"
)

// State accumulates trials for one worker (or, after Merge, for a whole
// simulation run). All fields are exported so Merge can combine two
// States with plain arithmetic; nothing here holds a mutex, since the
// orchestrator owns each worker's State exclusively until merge time.
type State struct {
	Tasks []models.Task

	// Samples holds one project duration D per folded trial. Sorted only
	// at extraction time (see Sorted), never during accumulation.
	Samples []float64

	// Criticality[i] counts trials where task i was on the critical path.
	Criticality []int

	// SumD, SumD2 accumulate D and D^2 across all folded trials.
	SumD, SumD2 float64

	// SumDur[i], SumDur2[i] accumulate d_i and d_i^2 for task i.
	SumDur, SumDur2 []float64

	// SumDDur[i] accumulates D*d_i for task i.
	SumDDur []float64

	// N is the number of trials folded into this State.
	N int
}

// New returns an empty State sized for the given task set.
func New(tasks []models.Task) *State {
	n := len(tasks)
	return &State{
		Tasks:       tasks,
		Criticality: make([]int, n),
		SumDur:      make([]float64, n),
		SumDur2:     make([]float64, n),
		SumDDur:     make([]float64, n),
	}
}

// Fold accumulates one trial result into the state.
func (s *State) Fold(r *trial.Result) {
	D := r.Duration
	s.Samples = append(s.Samples, D)
	s.SumD += D
	s.SumD2 += D * D
	s.N++

	for i, d := range r.Durations {
		if r.Critical[i] {
			s.Criticality[i]++
		}
		s.SumDur[i] += d
		s.SumDur2[i] += d * d
		s.SumDDur[i] += D * d
	}
}

// Merge folds other into s, associatively and commutatively as spec §4.5
// requires: plain addition of counters and concatenation of samples, with
// no dependency on merge order.
func (s *State) Merge(other *State) {
	s.Samples = append(s.Samples, other.Samples...)
	s.SumD += other.SumD
	s.SumD2 += other.SumD2
	s.N += other.N

	for i := range s.Criticality {
		s.Criticality[i] += other.Criticality[i]
		s.SumDur[i] += other.SumDur[i]
		s.SumDur2[i] += other.SumDur2[i]
		s.SumDDur[i] += other.SumDDur[i]
	}
}

// DurationStats is the {mean, std_dev, min, max, n} shape of spec §6.
type DurationStats struct {
	Mean   float64
	StdDev float64
	Min    float64
	Max    float64
	N      int
}

// TaskSensitivity is the per-task correlation/impact shape of spec §4.4/§6.
type TaskSensitivity struct {
	TaskID      string
	Name        string
	Category    string
	ImpactScore float64
	Correlation float64
	Variance    float64
}

// CategoryRollup is the per-category shape of spec §4.4/§6.
type CategoryRollup struct {
	Name             string
	TaskCount        int
	MeanDuration     float64
	StdDuration      float64
	RiskContribution float64
	AvgCriticalityPct float64
}

// Sorted returns a sorted copy of the duration sample, for percentile
// extraction (spec §4.4: "Sorted after ingestion").
func (s *State) Sorted() []float64 {
	sorted := make([]float64, len(s.Samples))
	copy(sorted, s.Samples)
	sort.Float64s(sorted)
	return sorted
}

// DurationStats computes {mean, std_dev, min, max, n} over the sample.
// The running SumD/SumD2 accumulators are the primary source (so Merge
// never needs the full sample); gonum/stat.MeanStdDev is used here only
// as an independent cross-check against catastrophic cancellation in the
// running moments, recomputed once at extraction time, not per trial.
func (s *State) DurationStats() DurationStats {
	if s.N == 0 {
		return DurationStats{}
	}

	// Sample (N-1) variance, the same estimator stat.MeanStdDev uses, so
	// the two only differ by rounding unless SumD2 has cancelled badly.
	mean := s.SumD / float64(s.N)
	variance := 0.0
	if s.N > 1 {
		variance = (s.SumD2 - float64(s.N)*mean*mean) / float64(s.N-1)
	}
	if variance < 0 {
		variance = 0
	}
	stdDev := math.Sqrt(variance)

	if crossCheckMean, crossCheckStd := stat.MeanStdDev(s.Samples, nil); !math.IsNaN(crossCheckMean) {
		// Use the numerically independent computation when it disagrees
		// wildly with the running moments, which would indicate
		// cancellation error in SumD2 rather than real variance.
		if math.Abs(crossCheckStd-stdDev) > 1e-6*math.Max(1, stdDev) {
			stdDev = crossCheckStd
			mean = crossCheckMean
		}
	}

	sorted := s.Sorted()
	return DurationStats{
		Mean:   mean,
		StdDev: stdDev,
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		N:      s.N,
	}
}

// Percentile extracts the nearest-rank percentile P (0..100) from a
// pre-sorted sample, per spec §4.4: S[floor((P/100)*(N-1))].
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	idx := int(math.Floor((p / 100.0) * float64(n-1)))
	if idx < 0 {
		idx = 0
	}
	if idx >= n {
		idx = n - 1
	}
	return sorted[idx]
}

// CriticalityPct returns the fraction of trials (as a percentage) where
// task i appeared on the selected critical path.
func (s *State) CriticalityPct(i int) float64 {
	if s.N == 0 {
		return 0
	}
	return 100 * float64(s.Criticality[i]) / float64(s.N)
}

// Sensitivity computes Pearson correlation, impact score, and variance
// for every task, per spec §4.4.
func (s *State) Sensitivity() []TaskSensitivity {
	n := float64(s.N)
	result := make([]TaskSensitivity, len(s.Tasks))

	for i, t := range s.Tasks {
		meanDur := s.SumDur[i] / n
		variance := s.SumDur2[i]/n - meanDur*meanDur
		if variance < 0 {
			variance = 0
		}
		stdDur := math.Sqrt(variance)

		numerator := n*s.SumDDur[i] - s.SumD*s.SumDur[i]
		denomD := n*s.SumD2 - s.SumD*s.SumD
		denomDur := n*s.SumDur2[i] - s.SumDur[i]*s.SumDur[i]

		var correlation float64
		denom := denomD * denomDur
		if denom > 0 {
			correlation = numerator / math.Sqrt(denom)
		}

		result[i] = TaskSensitivity{
			TaskID:      t.ID,
			Name:        t.Name,
			Category:    t.Category,
			ImpactScore: correlation * stdDur,
			Correlation: correlation,
			Variance:    variance,
		}
	}

	return result
}

// Categories computes the per-category rollups of spec §4.4, summing
// per-task impact scores (unweighted by criticality, per the Open
// Question decision recorded in the design notes) for risk contribution.
func (s *State) Categories() []CategoryRollup {
	sensitivities := s.Sensitivity()

	// sumDur/sumDur2 pool every trial's per-task duration sample across
	// every task in the category (count*N points), per spec §4.4's
	// "sample std of durations pooled across tasks and trials" — not the
	// mean of each task's own variance, which drops the spread between
	// tasks' mean durations.
	type accum struct {
		count             int
		sumDur, sumDur2   float64
		sumCriticalityPct float64
		riskContribution  float64
	}
	byCategory := make(map[string]*accum)
	var order []string

	for i, t := range s.Tasks {
		a, ok := byCategory[t.Category]
		if !ok {
			a = &accum{}
			byCategory[t.Category] = a
			order = append(order, t.Category)
		}
		a.count++
		a.sumDur += s.SumDur[i]
		a.sumDur2 += s.SumDur2[i]
		a.sumCriticalityPct += s.CriticalityPct(i)
		a.riskContribution += sensitivities[i].ImpactScore
	}

	rollups := make([]CategoryRollup, 0, len(order))
	for _, name := range order {
		a := byCategory[name]
		pooledN := float64(a.count * s.N)
		mean := a.sumDur / pooledN
		variance := 0.0
		if pooledN > 1 {
			variance = (a.sumDur2 - pooledN*mean*mean) / (pooledN - 1)
		}
		if variance < 0 {
			variance = 0
		}
		rollups = append(rollups, CategoryRollup{
			Name:              name,
			TaskCount:         a.count,
			MeanDuration:      mean,
			StdDuration:       math.Sqrt(variance),
			RiskContribution:  a.riskContribution,
			AvgCriticalityPct: a.sumCriticalityPct / float64(a.count),
		})
	}

	return rollups
}
