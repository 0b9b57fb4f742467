// Package serialize converts the orchestrator's merged aggregate state
// into the externally defined hierarchical and tabular shapes of spec
// §6. It performs no computation beyond formatting and threshold
// labeling, following the teacher's pkg/api/dto conversion-function idiom
// (ToDAGResponse, ToTaskDTO) generalized from one-struct-to-one-struct
// conversion to the richer multi-table Result shape this domain needs.
package serialize

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/forecastry/montecarlo/internal/aggregator"
	"github.com/forecastry/montecarlo/internal/orchestrator"
)

// reportedPercentiles and their fixed buffer use-case labels, in the
// order spec §6 lists them.
var reportedPercentiles = []float64{10, 25, 50, 75, 80, 90, 95}

var bufferLabels = map[float64]string{
	10: "Optimistic scenario",
	25: "Aggressive planning",
	50: "Baseline estimate",
	75: "Internal planning",
	80: "Moderate buffer",
	90: "External commitments",
	95: "Conservative buffer",
}

// DurationSummary is the {mean, std_dev, min, max, n} shape.
type DurationSummary struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	N      int     `json:"n"`
}

// Buffer is one entry of the buffers mapping.
type Buffer struct {
	Percentile   float64 `json:"-"`
	Days         float64 `json:"days"`
	BufferDays   float64 `json:"buffer_days"`
	BufferPct    float64 `json:"buffer_pct"`
	UseCaseLabel string  `json:"use_case_label"`
}

// TaskCriticality is one entry of task_criticality[].
type TaskCriticality struct {
	ID                      string  `json:"id"`
	Name                    string  `json:"name"`
	Category                string  `json:"category"`
	CriticalityPct          float64 `json:"criticality_pct"`
	PriorityLevel           string  `json:"priority_level"`
	ResourceAllocationHint  string  `json:"resource_allocation_hint"`
}

// Sensitivity is one entry of sensitivity[].
type Sensitivity struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Category    string  `json:"category"`
	ImpactScore float64 `json:"impact_score"`
	Correlation float64 `json:"correlation"`
	Variance    float64 `json:"variance"`
	RiskLevel   string  `json:"risk_level"`
}

// Category is one entry of categories[].
type Category struct {
	Name               string  `json:"name"`
	TaskCount          int     `json:"task_count"`
	MeanDuration       float64 `json:"mean_duration"`
	StdDuration        float64 `json:"std_duration"`
	RiskContribution   float64 `json:"risk_contribution"`
	AvgCriticalityPct  float64 `json:"avg_criticality_pct"`
}

// Scenario is one entry of scenarios[].
type Scenario struct {
	Name               string  `json:"name"`
	Target             float64 `json:"target"`
	SuccessProbability float64 `json:"success_probability"`
	Buffer             float64 `json:"buffer"`
	RecommendedFor     string  `json:"recommended_for"`
}

// Meta is the {n_trials_completed, seed_used, partial} shape.
type Meta struct {
	NTrialsCompleted int   `json:"n_trials_completed"`
	SeedUsed         int64 `json:"seed_used"`
	Partial          bool  `json:"partial"`
}

// Result is the full externally defined Result object of spec §6.
type Result struct {
	Duration              DurationSummary   `json:"duration"`
	Percentiles           map[string]float64 `json:"percentiles"`
	Buffers               map[string]Buffer  `json:"buffers"`
	TaskCriticality       []TaskCriticality  `json:"task_criticality"`
	Sensitivity           []Sensitivity      `json:"sensitivity"`
	Categories            []Category         `json:"categories"`
	Scenarios             []Scenario         `json:"scenarios"`
	DurationDistribution  []float64          `json:"duration_distribution"`
	Meta                  Meta               `json:"meta"`
}

// FromOrchestratorResult builds the external Result shape from the
// orchestrator's merged aggregate state. No statistics are recomputed
// here; every number comes from aggregator.State's own accumulators.
func FromOrchestratorResult(r *orchestrator.Result) *Result {
	s := r.State
	sorted := s.Sorted()

	percentiles := make(map[string]float64, len(reportedPercentiles))
	buffers := make(map[string]Buffer, len(reportedPercentiles))
	p50 := aggregator.Percentile(sorted, 50)

	for _, p := range reportedPercentiles {
		v := aggregator.Percentile(sorted, p)
		key := formatPercentileKey(p)
		percentiles[key] = v

		bufferDays := v - p50
		if bufferDays < 0 {
			bufferDays = 0
		}
		bufferPct := 0.0
		if p50 != 0 {
			bufferPct = bufferDays / p50 * 100
		}

		buffers[key] = Buffer{
			Percentile:   p,
			Days:         v,
			BufferDays:   bufferDays,
			BufferPct:    bufferPct,
			UseCaseLabel: bufferLabels[p],
		}
	}

	durStats := s.DurationStats()

	taskCriticality := make([]TaskCriticality, len(s.Tasks))
	for i, t := range s.Tasks {
		pct := s.CriticalityPct(i)
		taskCriticality[i] = TaskCriticality{
			ID:                     t.ID,
			Name:                   t.Name,
			Category:               t.Category,
			CriticalityPct:         pct,
			PriorityLevel:          priorityLevel(pct),
			ResourceAllocationHint: resourceAllocationHint(pct),
		}
	}

	sens := s.Sensitivity()
	sensitivity := make([]Sensitivity, len(sens))
	for i, sv := range sens {
		sensitivity[i] = Sensitivity{
			ID:          sv.TaskID,
			Name:        sv.Name,
			Category:    sv.Category,
			ImpactScore: sv.ImpactScore,
			Correlation: sv.Correlation,
			Variance:    sv.Variance,
			RiskLevel:   riskLevel(sv.ImpactScore),
		}
	}

	cats := s.Categories()
	categories := make([]Category, len(cats))
	for i, c := range cats {
		categories[i] = Category{
			Name:              c.Name,
			TaskCount:         c.TaskCount,
			MeanDuration:      c.MeanDuration,
			StdDuration:       c.StdDuration,
			RiskContribution:  c.RiskContribution,
			AvgCriticalityPct: c.AvgCriticalityPct,
		}
	}

	scenarios := []Scenario{
		{Name: "Aggressive", Target: percentiles["50"], SuccessProbability: 0.50, Buffer: buffers["50"].BufferDays, RecommendedFor: "internal stretch targets"},
		{Name: "Moderate", Target: percentiles["75"], SuccessProbability: 0.75, Buffer: buffers["75"].BufferDays, RecommendedFor: "internal planning"},
		{Name: "Conservative", Target: percentiles["90"], SuccessProbability: 0.90, Buffer: buffers["90"].BufferDays, RecommendedFor: "external commitments"},
		{Name: "Very_Conservative", Target: percentiles["95"], SuccessProbability: 0.95, Buffer: buffers["95"].BufferDays, RecommendedFor: "contractual deadlines"},
	}

	return &Result{
		Duration: DurationSummary{
			Mean:   durStats.Mean,
			StdDev: durStats.StdDev,
			Min:    durStats.Min,
			Max:    durStats.Max,
			N:      durStats.N,
		},
		Percentiles:          percentiles,
		Buffers:              buffers,
		TaskCriticality:      taskCriticality,
		Sensitivity:          sensitivity,
		Categories:           categories,
		Scenarios:            scenarios,
		DurationDistribution: sorted,
		Meta: Meta{
			NTrialsCompleted: r.NTrialsCompleted,
			SeedUsed:         r.SeedUsed,
			Partial:          r.Partial,
		},
	}
}

func priorityLevel(pct float64) string {
	switch {
	case pct > 80:
		return "Critical"
	case pct >= 50:
		return "High"
	case pct >= 20:
		return "Medium"
	default:
		return "Low"
	}
}

func resourceAllocationHint(pct float64) string {
	switch {
	case pct > 80:
		return "Best resources"
	case pct >= 20:
		return "Monitor closely"
	default:
		return "Standard"
	}
}

func riskLevel(impactScore float64) string {
	switch {
	case impactScore > 1.0:
		return "High"
	case impactScore >= 0.4:
		return "Medium"
	default:
		return "Low"
	}
}

func formatPercentileKey(p float64) string {
	if p == float64(int(p)) {
		return strconv.Itoa(int(p))
	}
	return fmt.Sprintf("%g", p)
}

// WriteTaskCriticalityCSV emits task_criticality[] as a CSV table.
func WriteTaskCriticalityCSV(w io.Writer, rows []TaskCriticality) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"id", "name", "category", "criticality_pct", "priority_level", "resource_allocation_hint"}); err != nil {
		return err
	}
	for _, r := range rows {
		if err := writer.Write([]string{
			r.ID, r.Name, r.Category,
			strconv.FormatFloat(r.CriticalityPct, 'f', 4, 64),
			r.PriorityLevel, r.ResourceAllocationHint,
		}); err != nil {
			return err
		}
	}
	return writer.Error()
}

// WriteSensitivityCSV emits sensitivity[] as a CSV table.
func WriteSensitivityCSV(w io.Writer, rows []Sensitivity) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"id", "name", "category", "impact_score", "correlation", "variance", "risk_level"}); err != nil {
		return err
	}
	for _, r := range rows {
		if err := writer.Write([]string{
			r.ID, r.Name, r.Category,
			strconv.FormatFloat(r.ImpactScore, 'f', 6, 64),
			strconv.FormatFloat(r.Correlation, 'f', 6, 64),
			strconv.FormatFloat(r.Variance, 'f', 6, 64),
			r.RiskLevel,
		}); err != nil {
			return err
		}
	}
	return writer.Error()
}

// WriteCategoriesCSV emits categories[] as a CSV table.
func WriteCategoriesCSV(w io.Writer, rows []Category) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"name", "task_count", "mean_duration", "std_duration", "risk_contribution", "avg_criticality_pct"}); err != nil {
		return err
	}
	for _, r := range rows {
		if err := writer.Write([]string{
			r.Name, strconv.Itoa(r.TaskCount),
			strconv.FormatFloat(r.MeanDuration, 'f', 6, 64),
			strconv.FormatFloat(r.StdDuration, 'f', 6, 64),
			strconv.FormatFloat(r.RiskContribution, 'f', 6, 64),
			strconv.FormatFloat(r.AvgCriticalityPct, 'f', 4, 64),
		}); err != nil {
			return err
		}
	}
	return writer.Error()
}

// WriteDurationDistributionCSV emits duration_distribution[] as a
// single-column CSV of the full sorted sample.
func WriteDurationDistributionCSV(w io.Writer, sample []float64) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"duration"}); err != nil {
		return err
	}
	for _, v := range sample {
		if err := writer.Write([]string{strconv.FormatFloat(v, 'f', 6, 64)}); err != nil {
			return err
		}
	}
	return writer.Error()
}
