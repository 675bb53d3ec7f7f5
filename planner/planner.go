package planner

import (
	"context"
	"fmt"

	yaverrors "github.com/yaverhq/yaver/errors"
	"github.com/yaverhq/yaver/generator"
	"github.com/yaverhq/yaver/logging"
	"github.com/yaverhq/yaver/task"
)

// Context carries the repository and memory information the planner folds
// into its prompt.
type Context struct {
	TotalFiles       int
	TotalLines       int
	Languages        []string
	ArchitectureType string
	MemoryBlob       string
}

// Planner turns a user request into a materialized set of tasks.
type Planner struct {
	gen         generator.Generator
	maxSubtasks int // 3 x max_task_depth; default 9
}

// New creates a Planner. maxSubtasks bounds how many subtasks a single
// decomposition may contain (3 x the configured max task depth).
func New(gen generator.Generator, maxSubtasks int) *Planner {
	if maxSubtasks <= 0 {
		maxSubtasks = 9
	}
	return &Planner{gen: gen, maxSubtasks: maxSubtasks}
}

// Plan produces a TaskDecomposition for userRequest, applying the robust
// parsing policy to whatever shape the generator returns and falling back
// to a one-subtask decomposition on any unrecoverable failure.
func (p *Planner) Plan(ctx context.Context, userRequest string, rc Context) Decomposition {
	log := logging.GetLogger().WithName("planner")

	raw, err := p.gen.Generate(ctx, generator.DecompositionPrompt, map[string]any{
		"user_request": userRequest,
		"context":      contextString(rc),
		"max_tasks":    p.maxSubtasks,
	})
	if err != nil {
		planErr := yaverrors.NewPlanningError(userRequest, err)
		log.Warn(ctx, "decomposition generation failed, falling back", logging.F("error", planErr.Error()))
		return fallback(userRequest)
	}

	d, ok := parse(raw, userRequest)
	if !ok {
		log.Warn(ctx, "decomposition response had an unrecoverable shape, falling back")
		return fallback(userRequest)
	}

	d = dedupeSubtasks(d)
	if len(d.Subtasks) > p.maxSubtasks {
		d.Subtasks = d.Subtasks[:p.maxSubtasks]
	}
	return d
}

// Materialize builds the root task plus one PENDING subtask per decomposition
// entry, resolving dependencies by subtask-description lookup. Unresolved
// dependency names are silently dropped, matching the planner's tolerance
// for a generator that invents names it never declared as subtasks.
func Materialize(d Decomposition) []*task.Task {
	rootID := task.NewID()
	root := &task.Task{
		ID:          rootID,
		Title:       truncate(d.MainTask, 100),
		Description: d.MainTask,
		Priority:    task.PriorityHigh,
		Status:      task.StatusInProgress,
	}

	tasks := []*task.Task{root}
	idByDescription := make(map[string]string, len(d.Subtasks))

	for i, desc := range d.Subtasks {
		id := task.NewID()
		priority := task.ParsePriority(d.Priorities[desc])
		t := &task.Task{
			ID:           id,
			Title:        fmt.Sprintf("Subtask %d: %s", i+1, truncate(desc, 80)),
			Description:  desc,
			Priority:     priority,
			Status:       task.StatusPending,
			ParentTaskID: rootID,
		}
		tasks = append(tasks, t)
		idByDescription[desc] = id
	}

	for desc, depNames := range d.Dependencies {
		id, ok := idByDescription[desc]
		if !ok {
			continue
		}
		var t *task.Task
		for _, candidate := range tasks {
			if candidate.ID == id {
				t = candidate
				break
			}
		}
		if t == nil {
			continue
		}
		for _, depName := range depNames {
			if depID, ok := idByDescription[depName]; ok {
				t.Dependencies = append(t.Dependencies, depID)
			}
		}
	}

	for _, t := range tasks {
		if t.ParentTaskID == rootID {
			root.Subtasks = append(root.Subtasks, t.ID)
		}
	}

	return tasks
}

func contextString(rc Context) string {
	s := ""
	if rc.TotalFiles > 0 {
		s += fmt.Sprintf("Project Info:\n- File count: %d\n- Total lines: %d\n- Languages: %v\n", rc.TotalFiles, rc.TotalLines, rc.Languages)
	}
	if rc.ArchitectureType != "" {
		s += fmt.Sprintf("- Architecture: %s\n", rc.ArchitectureType)
	}
	if rc.MemoryBlob != "" {
		s += "\nRelevant memory:\n" + rc.MemoryBlob + "\n"
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
