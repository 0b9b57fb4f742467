package dag

import (
	"bytes"
	"strings"
	"testing"

	"github.com/forecastry/montecarlo/pkg/models"
)

func TestParseCSV_ValidTable(t *testing.T) {
	input := `Task_ID,Task_Name,Category,Predecessors,Optimistic,Most_Likely,Pessimistic,Resources
A,Design,design,,2,4,8,design-team
B,Build,engineering,A,5,8,15,eng-team
C,Ship,ops,B,1,2,4,
`
	p := NewParser()
	tasks, err := p.ParseCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tasks) != 3 {
		t.Fatalf("expected 3 tasks, got %d", len(tasks))
	}
	if tasks[1].Predecessors[0] != "A" {
		t.Errorf("expected B's predecessor to be A, got %v", tasks[1].Predecessors)
	}
	if tasks[0].Resources != "design-team" {
		t.Errorf("expected design-team resources, got %s", tasks[0].Resources)
	}
}

func TestParseCSV_MissingRequiredColumn(t *testing.T) {
	input := `Task_ID,Task_Name
A,Design
`
	p := NewParser()
	_, err := p.ParseCSV(strings.NewReader(input))
	if err == nil {
		t.Fatal("expected error for missing required columns")
	}
}

func TestParseCSV_InvalidEstimateValue(t *testing.T) {
	input := `Task_ID,Task_Name,Category,Predecessors,Optimistic,Most_Likely,Pessimistic,Resources
A,Design,design,,notanumber,4,8,
`
	p := NewParser()
	_, err := p.ParseCSV(strings.NewReader(input))
	if err == nil {
		t.Fatal("expected error for non-numeric estimate")
	}
}

func TestWriteCSV_RoundTrip(t *testing.T) {
	tasks := []models.Task{
		{ID: "A", Name: "Design", Category: "design", Optimistic: 2, MostLikely: 4, Pessimistic: 8},
		{ID: "B", Name: "Build", Category: "engineering", Predecessors: []string{"A"}, Optimistic: 5, MostLikely: 8, Pessimistic: 15},
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, tasks); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	p := NewParser()
	parsed, err := p.ParseCSV(&buf)
	if err != nil {
		t.Fatalf("unexpected error re-parsing: %v", err)
	}
	if len(parsed) != 2 {
		t.Fatalf("expected 2 tasks after round trip, got %d", len(parsed))
	}
	if parsed[1].Predecessors[0] != "A" {
		t.Errorf("expected predecessor A to survive round trip, got %v", parsed[1].Predecessors)
	}
}

func TestParseConfig_DefaultsPreserved(t *testing.T) {
	p := NewParser()
	cfg, err := p.ParseConfig([]byte(`simulation_runs: 5000`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.SimulationRuns != 5000 {
		t.Errorf("expected 5000 simulation runs, got %d", cfg.SimulationRuns)
	}
	if len(cfg.ConfidenceLevels) != 3 {
		t.Errorf("expected default confidence levels to survive, got %v", cfg.ConfidenceLevels)
	}
}

func TestSplitPredecessors(t *testing.T) {
	cases := map[string][]string{
		"":        nil,
		"A":       {"A"},
		"A;B":     {"A", "B"},
		"A, B,C ": {"A", "B", "C"},
	}
	for input, want := range cases {
		got := splitPredecessors(input)
		if len(got) != len(want) {
			t.Fatalf("splitPredecessors(%q) = %v, want %v", input, got, want)
		}
		for i := range got {
			if got[i] != want[i] {
				t.Fatalf("splitPredecessors(%q) = %v, want %v", input, got, want)
			}
		}
	}
}
