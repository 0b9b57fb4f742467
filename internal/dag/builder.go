package dag

import (
	"fmt"
	"time"

	"github.com/forecastry/montecarlo/pkg/models"
)

// Builder provides a fluent API for building Projects.
type Builder struct {
	project *models.Project
	tasks   map[string]*models.Task
	order   []string
}

// NewBuilder creates a new project builder.
func NewBuilder(name string) *Builder {
	now := time.Now()
	return &Builder{
		project: &models.Project{
			Name:      name,
			Tags:      []string{},
			CreatedAt: now,
			UpdatedAt: now,
		},
		tasks: make(map[string]*models.Task),
	}
}

// ID sets the project ID.
func (b *Builder) ID(id string) *Builder {
	b.project.ID = id
	return b
}

// Description sets the project description.
func (b *Builder) Description(desc string) *Builder {
	b.project.Description = desc
	return b
}

// Tags adds tags to the project.
func (b *Builder) Tags(tags ...string) *Builder {
	b.project.Tags = append(b.project.Tags, tags...)
	return b
}

// Task adds a task to the project, built from a TaskBuilder.
func (b *Builder) Task(id string, taskBuilder *TaskBuilder) *Builder {
	if _, exists := b.tasks[id]; !exists {
		b.order = append(b.order, id)
	}
	b.tasks[id] = taskBuilder.build(id)
	return b
}

// Build constructs the final Project and validates its DAG.
func (b *Builder) Build() (*models.Project, *DAG, error) {
	b.project.Tasks = make([]models.Task, 0, len(b.order))
	for _, id := range b.order {
		b.project.Tasks = append(b.project.Tasks, *b.tasks[id])
	}
	b.project.UpdatedAt = time.Now()

	d, err := Build(b.project.Tasks)
	if err != nil {
		return nil, nil, fmt.Errorf("project validation failed: %w", err)
	}

	return b.project, d, nil
}

// MustBuild builds the project and panics if there's an error. Useful in
// tests and static fixture construction, never in request-handling paths.
func (b *Builder) MustBuild() (*models.Project, *DAG) {
	project, d, err := b.Build()
	if err != nil {
		panic(err)
	}
	return project, d
}

// TaskBuilder provides a fluent API for building a single estimated task.
type TaskBuilder struct {
	name         string
	category     string
	predecessors []string
	optimistic   float64
	mostLikely   float64
	pessimistic  float64
	resources    string
}

// Estimate creates a new task builder from a three-point duration estimate.
func Estimate(optimistic, mostLikely, pessimistic float64) *TaskBuilder {
	return &TaskBuilder{
		optimistic:  optimistic,
		mostLikely:  mostLikely,
		pessimistic: pessimistic,
	}
}

// Name sets the task name.
func (tb *TaskBuilder) Name(name string) *TaskBuilder {
	tb.name = name
	return tb
}

// Category sets the task's risk-rollup category.
func (tb *TaskBuilder) Category(category string) *TaskBuilder {
	tb.category = category
	return tb
}

// DependsOn sets the task's predecessors.
func (tb *TaskBuilder) DependsOn(taskIDs ...string) *TaskBuilder {
	tb.predecessors = append(tb.predecessors, taskIDs...)
	return tb
}

// Resources sets the free-form resource label for the task.
func (tb *TaskBuilder) Resources(resources string) *TaskBuilder {
	tb.resources = resources
	return tb
}

// build constructs the final task.
func (tb *TaskBuilder) build(id string) *models.Task {
	name := tb.name
	if name == "" {
		name = id
	}

	return &models.Task{
		ID:           id,
		Name:         name,
		Category:     tb.category,
		Predecessors: tb.predecessors,
		Optimistic:   tb.optimistic,
		MostLikely:   tb.mostLikely,
		Pessimistic:  tb.pessimistic,
		Resources:    tb.resources,
	}
}
