// Package scheduler selects the next runnable task from a taskgraph under
// dependency and priority constraints.
package scheduler

import (
	"sort"

	"github.com/yaverhq/yaver/task"
	"github.com/yaverhq/yaver/taskgraph"
)

// Scheduler selects the next PENDING task whose dependencies are all
// COMPLETED, preferring higher priority and, among equal priorities, the
// task created earlier.
type Scheduler struct{}

// New creates a Scheduler. It holds no state: graph and task status are the
// only inputs to scheduling.
func New() *Scheduler {
	return &Scheduler{}
}

// Next returns the next task to run, or nil if nothing is currently
// runnable (either the plan is complete or every remaining task is waiting
// on an unmet or failed dependency).
func (s *Scheduler) Next(g *taskgraph.Graph) *task.Task {
	pending := g.Pending()

	runnable := make([]*task.Task, 0, len(pending))
	for _, t := range pending {
		if g.DependenciesSatisfied(t) {
			runnable = append(runnable, t)
		}
	}
	if len(runnable) == 0 {
		return nil
	}

	// Stable sort preserves taskgraph insertion order among equal
	// priorities, so the first task created wins a tie.
	sort.SliceStable(runnable, func(i, j int) bool {
		return runnable[i].Priority.Less(runnable[j].Priority)
	})

	return runnable[0]
}
