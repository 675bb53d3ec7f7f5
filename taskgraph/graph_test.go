package taskgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yaverhq/yaver/task"
)

func newTask(id string, status task.Status, deps ...string) *task.Task {
	return &task.Task{ID: id, Status: status, Dependencies: deps, Priority: task.PriorityMedium}
}

func TestGraph_RootAndAll(t *testing.T) {
	g := New()
	root := &task.Task{ID: "root", Status: task.StatusInProgress}
	child := &task.Task{ID: "child", ParentTaskID: "root", Status: task.StatusPending}
	g.Add(root)
	g.Add(child)

	assert.Equal(t, root, g.Root())
	assert.Equal(t, []*task.Task{root, child}, g.All())
}

func TestGraph_DependenciesSatisfied(t *testing.T) {
	g := New()
	g.Add(newTask("a", task.StatusPending))
	b := newTask("b", task.StatusPending, "a")
	g.Add(b)

	assert.False(t, g.DependenciesSatisfied(b))

	require.NoError(t, g.Transition("a", task.StatusInProgress))
	require.NoError(t, g.Transition("a", task.StatusCompleted))

	assert.True(t, g.DependenciesSatisfied(b))
}

func TestGraph_Transition_Monotonic(t *testing.T) {
	g := New()
	g.Add(newTask("a", task.StatusPending))

	require.NoError(t, g.Transition("a", task.StatusInProgress))
	require.NoError(t, g.Transition("a", task.StatusCompleted))

	err := g.Transition("a", task.StatusFailed)
	assert.Error(t, err, "terminal task must not accept further transitions")

	err = g.Transition("a", task.StatusPending)
	assert.Error(t, err)
}

func TestGraph_Transition_UnknownTask(t *testing.T) {
	g := New()
	err := g.Transition("missing", task.StatusInProgress)
	assert.Error(t, err)
}

func TestGraph_Blocked_DoesNotAutoTransition(t *testing.T) {
	g := New()
	g.Add(newTask("a", task.StatusPending))
	b := newTask("b", task.StatusPending, "a")
	g.Add(b)

	require.NoError(t, g.Transition("a", task.StatusInProgress))
	require.NoError(t, g.Transition("a", task.StatusFailed))

	blocked := g.Blocked()
	require.Len(t, blocked, 1)
	assert.Equal(t, "b", blocked[0].ID)
	// Blocked() is read-only: b's actual status is untouched.
	assert.Equal(t, task.StatusPending, g.Get("b").Status)
}

func TestGraph_HasOpenWork(t *testing.T) {
	g := New()
	g.Add(newTask("a", task.StatusPending))
	assert.True(t, g.HasOpenWork())

	require.NoError(t, g.Transition("a", task.StatusInProgress))
	assert.True(t, g.HasOpenWork())

	require.NoError(t, g.Transition("a", task.StatusCompleted))
	assert.False(t, g.HasOpenWork())
}

func TestGraph_Pending_InsertionOrder(t *testing.T) {
	g := New()
	g.Add(newTask("a", task.StatusPending))
	g.Add(newTask("b", task.StatusPending))
	g.Add(newTask("c", task.StatusCompleted))

	pending := g.Pending()
	require.Len(t, pending, 2)
	assert.Equal(t, "a", pending[0].ID)
	assert.Equal(t, "b", pending[1].ID)
}
