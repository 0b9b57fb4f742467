package dag

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/forecastry/montecarlo/pkg/models"
)

// csvColumns is the canonical task-table header spec.md §6 defines. Column
// order in the input file is not significant; headers are matched
// case-insensitively and by underscore/space-insensitive comparison.
var csvColumns = struct {
	id, name, category, predecessors, optimistic, mostLikely, pessimistic, resources string
}{
	id:           "task_id",
	name:         "task_name",
	category:     "category",
	predecessors: "predecessors",
	optimistic:   "optimistic",
	mostLikely:   "most_likely",
	pessimistic:  "pessimistic",
	resources:    "resources",
}

// Parser reads task tables and project configuration from disk.
type Parser struct{}

// NewParser creates a new Parser.
func NewParser() *Parser {
	return &Parser{}
}

// ParseCSVFile reads a task table from a CSV file at path.
func (p *Parser) ParseCSVFile(path string) ([]models.Task, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open task table: %w", err)
	}
	defer f.Close()

	return p.ParseCSV(f)
}

// ParseCSV reads a task table per spec.md §6: one row per task, with a
// header row naming Task_ID, Task_Name, Category, Predecessors,
// Optimistic, Most_Likely, Pessimistic, and an optional Resources column.
// Predecessors is a single field holding a delimited list of task ids
// (';' or ',' separated); an empty field means no predecessors.
func (p *Parser) ParseCSV(r io.Reader) ([]models.Task, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read task table header: %w", err)
	}

	colIdx := make(map[string]int, len(header))
	for i, h := range header {
		colIdx[normalizeHeader(h)] = i
	}

	required := []string{csvColumns.id, csvColumns.name, csvColumns.optimistic, csvColumns.mostLikely, csvColumns.pessimistic}
	for _, c := range required {
		if _, ok := colIdx[c]; !ok {
			return nil, fmt.Errorf("task table missing required column: %s", c)
		}
	}

	var tasks []models.Task
	rowNum := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read task table row %d: %w", rowNum, err)
		}
		rowNum++

		task, err := p.parseRow(row, colIdx)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", rowNum, err)
		}
		tasks = append(tasks, task)
	}

	return tasks, nil
}

func (p *Parser) parseRow(row []string, colIdx map[string]int) (models.Task, error) {
	get := func(col string) string {
		idx, ok := colIdx[col]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	optimistic, err := parseFloat(get(csvColumns.optimistic))
	if err != nil {
		return models.Task{}, fmt.Errorf("invalid optimistic value: %w", err)
	}
	mostLikely, err := parseFloat(get(csvColumns.mostLikely))
	if err != nil {
		return models.Task{}, fmt.Errorf("invalid most_likely value: %w", err)
	}
	pessimistic, err := parseFloat(get(csvColumns.pessimistic))
	if err != nil {
		return models.Task{}, fmt.Errorf("invalid pessimistic value: %w", err)
	}

	return models.Task{
		ID:           get(csvColumns.id),
		Name:         get(csvColumns.name),
		Category:     get(csvColumns.category),
		Predecessors: splitPredecessors(get(csvColumns.predecessors)),
		Optimistic:   optimistic,
		MostLikely:   mostLikely,
		Pessimistic:  pessimistic,
		Resources:    get(csvColumns.resources),
	}, nil
}

// WriteCSV writes a task table in the same column layout ParseCSV reads.
func WriteCSV(w io.Writer, tasks []models.Task) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	header := []string{"Task_ID", "Task_Name", "Category", "Predecessors", "Optimistic", "Most_Likely", "Pessimistic", "Resources"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, t := range tasks {
		row := []string{
			t.ID,
			t.Name,
			t.Category,
			strings.Join(t.Predecessors, ";"),
			strconv.FormatFloat(t.Optimistic, 'g', -1, 64),
			strconv.FormatFloat(t.MostLikely, 'g', -1, 64),
			strconv.FormatFloat(t.Pessimistic, 'g', -1, 64),
			t.Resources,
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	return writer.Error()
}

// ParseConfigFile reads a simulation Config from a YAML file, falling back
// to models.DefaultConfig() for any field the file omits.
func (p *Parser) ParseConfigFile(path string) (models.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	return p.ParseConfig(data)
}

// ParseConfig reads a simulation Config from YAML bytes.
func (p *Parser) ParseConfig(data []byte) (models.Config, error) {
	cfg := models.DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return models.Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.ReplaceAll(h, " ", "_")
	return h
}

func splitPredecessors(field string) []string {
	if field == "" {
		return nil
	}
	field = strings.ReplaceAll(field, ",", ";")
	parts := strings.Split(field, ";")
	preds := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			preds = append(preds, p)
		}
	}
	return preds
}

func parseFloat(s string) (float64, error) {
	if s == "" {
		return 0, fmt.Errorf("empty value")
	}
	return strconv.ParseFloat(s, 64)
}
