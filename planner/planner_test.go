package planner

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yaverhq/yaver/task"
)

// scriptedGenerator returns a fixed response (or error) for every call.
type scriptedGenerator struct {
	response string
	err      error
}

func (g *scriptedGenerator) Generate(ctx context.Context, tmpl string, vars map[string]any) (string, error) {
	return g.response, g.err
}

func (g *scriptedGenerator) GenerateStructured(ctx context.Context, tmpl string, vars map[string]any, schema map[string]any) (map[string]any, error) {
	return nil, errors.New("unused")
}

func TestPlan_WellFormedResponse(t *testing.T) {
	p := New(&scriptedGenerator{response: `{
		"main_task": "add caching",
		"subtasks": ["add the cache type", "wire the cache into the handler"],
		"priorities": {"add the cache type": "HIGH"},
		"dependencies": {"wire the cache into the handler": ["add the cache type"]},
		"estimated_complexity": "low"
	}`}, 9)

	d := p.Plan(context.Background(), "add caching", Context{})

	assert.Equal(t, "add caching", d.MainTask)
	require.Len(t, d.Subtasks, 2)
	assert.Equal(t, "HIGH", d.Priorities["add the cache type"])
	assert.Equal(t, []string{"add the cache type"}, d.Dependencies["wire the cache into the handler"])
	assert.Equal(t, "low", d.EstimatedComplexity)
}

func TestPlan_TasksArrayInsteadOfSubtasks(t *testing.T) {
	p := New(&scriptedGenerator{response: `{
		"main_task": "refactor",
		"tasks": ["first", {"title": "second"}]
	}`}, 9)

	d := p.Plan(context.Background(), "refactor", Context{})

	assert.Equal(t, []string{"first", "second"}, d.Subtasks)
}

func TestPlan_SingleTaskObject(t *testing.T) {
	p := New(&scriptedGenerator{response: `{"title": "just do it", "description": "one step"}`}, 9)

	d := p.Plan(context.Background(), "whatever", Context{})

	assert.Equal(t, []string{"just do it"}, d.Subtasks)
	assert.Equal(t, "one step", d.MainTask)
}

func TestPlan_BareListUsesUserRequestAsMainTask(t *testing.T) {
	p := New(&scriptedGenerator{response: `["step one", "step two"]`}, 9)

	d := p.Plan(context.Background(), "split the work", Context{})

	assert.Equal(t, "split the work", d.MainTask)
	assert.Equal(t, []string{"step one", "step two"}, d.Subtasks)
	assert.Equal(t, "medium", d.EstimatedComplexity)
}

func TestPlan_MissingFieldsGetDefaults(t *testing.T) {
	p := New(&scriptedGenerator{response: `{"main_task": "m", "subtasks": ["a"]}`}, 9)

	d := p.Plan(context.Background(), "m", Context{})

	assert.Empty(t, d.Priorities)
	assert.Empty(t, d.Dependencies)
	assert.Equal(t, "medium", d.EstimatedComplexity)
}

func TestPlan_GeneratorErrorFallsBack(t *testing.T) {
	p := New(&scriptedGenerator{err: errors.New("model unavailable")}, 9)

	d := p.Plan(context.Background(), "fix the login bug", Context{})

	assert.Equal(t, "fix the login bug", d.MainTask)
	assert.Equal(t, []string{"fix the login bug"}, d.Subtasks)
	assert.Equal(t, "unknown", d.EstimatedComplexity)
}

func TestPlan_GarbageResponseFallsBack(t *testing.T) {
	p := New(&scriptedGenerator{response: "Sure! Here is a plan for you:"}, 9)

	d := p.Plan(context.Background(), "noop", Context{})

	assert.Equal(t, "noop", d.MainTask)
	assert.Equal(t, []string{"noop"}, d.Subtasks)
}

func TestPlan_CapsSubtasksAtThreeTimesDepth(t *testing.T) {
	p := New(&scriptedGenerator{response: `{
		"main_task": "huge plan",
		"subtasks": ["a","b","c","d","e"]
	}`}, 3)

	d := p.Plan(context.Background(), "huge plan", Context{})

	assert.Len(t, d.Subtasks, 3)
}

func TestMaterialize_BuildsRootAndChildren(t *testing.T) {
	d := Decomposition{
		MainTask:   "build the pipeline",
		Subtasks:   []string{"reader", "writer"},
		Priorities: map[string]string{"reader": "critical"},
		Dependencies: map[string][]string{
			"writer": {"reader", "not a subtask"},
		},
	}

	tasks := Materialize(d)

	require.Len(t, tasks, 3)
	root := tasks[0]
	assert.True(t, root.IsRoot())
	assert.Equal(t, task.StatusInProgress, root.Status)
	assert.Equal(t, task.PriorityHigh, root.Priority)
	assert.Len(t, root.Subtasks, 2)

	reader, writer := tasks[1], tasks[2]
	assert.Equal(t, task.PriorityCritical, reader.Priority)
	assert.Equal(t, task.PriorityMedium, writer.Priority)
	assert.Equal(t, task.StatusPending, reader.Status)
	assert.Equal(t, root.ID, reader.ParentTaskID)

	// The unresolved dependency name is dropped silently.
	assert.Equal(t, []string{reader.ID}, writer.Dependencies)
}

func TestMaterialize_EmptyDecompositionStillHasRoot(t *testing.T) {
	tasks := Materialize(Decomposition{MainTask: "noop"})

	require.Len(t, tasks, 1)
	assert.True(t, tasks[0].IsRoot())
}
