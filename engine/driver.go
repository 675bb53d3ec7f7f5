package engine

import (
	"context"
	"fmt"
	"time"

	yaverrors "github.com/yaverhq/yaver/errors"
	"github.com/yaverhq/yaver/executor"
	"github.com/yaverhq/yaver/logging"
	"github.com/yaverhq/yaver/metrics"
	"github.com/yaverhq/yaver/observability"
	"github.com/yaverhq/yaver/planner"
	"github.com/yaverhq/yaver/prmonitor"
	"github.com/yaverhq/yaver/scheduler"
	"github.com/yaverhq/yaver/sideeffects"
	"github.com/yaverhq/yaver/task"
	"github.com/yaverhq/yaver/vcs"
)

// Driver runs the engine's outer iteration loop. It owns no state itself;
// every session's mutable state lives in a *State passed to Run.
type Driver struct {
	planner       *planner.Planner
	scheduler     *scheduler.Scheduler
	executor      *executor.Executor
	applier       *sideeffects.Applier
	monitor       *prmonitor.Monitor
	vcs           vcs.VersionControl
	maxIterations int
	defaultBranch string
}

// Config bundles the collaborators a Driver needs. All fields are
// required except DefaultBranch (defaults to "main") and MaxIterations
// (defaults to 25).
type Config struct {
	Planner       *planner.Planner
	Scheduler     *scheduler.Scheduler
	Executor      *executor.Executor
	Applier       *sideeffects.Applier
	Monitor       *prmonitor.Monitor
	VCS           vcs.VersionControl
	MaxIterations int
	DefaultBranch string
}

// NewDriver creates a Driver from its collaborators.
func NewDriver(cfg Config) *Driver {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = 25
	}
	if cfg.DefaultBranch == "" {
		cfg.DefaultBranch = "main"
	}
	return &Driver{
		planner:       cfg.Planner,
		scheduler:     cfg.Scheduler,
		executor:      cfg.Executor,
		applier:       cfg.Applier,
		monitor:       cfg.Monitor,
		vcs:           cfg.VCS,
		maxIterations: cfg.MaxIterations,
		defaultBranch: cfg.DefaultBranch,
	}
}

// Run drives state.Graph to completion: materialising the plan on first
// call, then iterating monitor -> scheduler -> executor -> side-effects ->
// status update until no task is runnable or the iteration budget is
// exhausted, bundling every write into exactly one commit at session end.
func (d *Driver) Run(ctx context.Context, state *State) error {
	log := logging.GetLogger().WithName("engine")

	if state.UserRequest == "" {
		return fmt.Errorf("engine: user_request must not be empty")
	}

	if state.Graph.Root() == nil {
		d.materialize(ctx, state)
	}

	sessionCtx, sessionSpan := observability.StartSessionSpan(ctx, state.UserRequest)
	metrics.GetMetrics().Counter(metrics.MetricSessionsTotal, nil).Inc()

	for {
		if state.IterationCount >= d.maxIterations {
			budgetErr := yaverrors.NewBudgetExceededError("iteration", d.maxIterations, state.IterationCount)
			state.logf("%s", budgetErr.Error())
			state.recordError(budgetErr.Error())
			state.ShouldContinue = false
			break
		}

		d.runMonitor(sessionCtx, state)

		next := d.scheduler.Next(state.Graph)
		if next == nil {
			state.ShouldContinue = false
			break
		}

		if err := state.Graph.Transition(next.ID, task.StatusInProgress); err != nil {
			log.Warn(ctx, "invalid transition to IN_PROGRESS", logging.F("task_id", next.ID), logging.F("error", err.Error()))
			state.recordError(err.Error())
			continue
		}
		next.Iteration = state.IterationCount

		d.runTask(sessionCtx, state, next)

		state.IterationCount++
		metrics.GetMetrics().Counter(metrics.MetricIterationsTotal, nil).Inc()
	}

	err := d.terminate(sessionCtx, state)
	observability.EndSpan(sessionSpan, err)
	return err
}

// runTask performs the conflict-reproduction, execute, apply, and status
// update steps for one already-IN_PROGRESS task, recording a span and the
// per-task duration histogram around them.
func (d *Driver) runTask(ctx context.Context, state *State, t *task.Task) {
	log := logging.GetLogger().WithName("engine")
	m := metrics.GetMetrics()

	taskCtx, span := observability.StartTaskSpan(ctx, t.ID, t.Title, string(t.Priority))
	started := time.Now()

	if t.MetadataBool("is_conflict_resolution") {
		d.reproduceConflict(taskCtx, state, t)
	}

	depResults := d.dependencyResults(state, t)
	result := d.executor.Execute(taskCtx, t, executor.ProjectInfo{
		RepoPath:         state.RepoPath,
		TotalFiles:       state.RepoInfo.TotalFiles,
		TotalLines:       state.RepoInfo.TotalLines,
		Languages:        state.RepoInfo.Languages,
		ArchitectureType: state.RepoInfo.ArchitectureType,
	}, depResults)

	applyResult := d.applier.Apply(taskCtx, t, sideeffects.ExecutionResult{
		Success: result.Success,
		Output:  result.Output,
	}, state.UserRequest)
	state.StagedFiles = append(state.StagedFiles, applyResult.WrittenPaths...)
	if n := len(applyResult.WrittenPaths); n > 0 {
		m.Counter(metrics.MetricFilesWritten, nil).Add(float64(n))
	}

	if result.Success {
		t.Result = result.Output
		if err := state.Graph.Transition(t.ID, task.StatusCompleted); err != nil {
			log.Warn(taskCtx, "invalid transition to COMPLETED", logging.F("task_id", t.ID), logging.F("error", err.Error()))
		}
		t.CompletedAt = time.Now()
		m.Counter(metrics.MetricTasksCompleted, nil).Inc()
		state.logf("task %s completed", t.ID)
		observability.EndSpan(span, nil)
	} else {
		t.Error = result.Error
		if err := state.Graph.Transition(t.ID, task.StatusFailed); err != nil {
			log.Warn(taskCtx, "invalid transition to FAILED", logging.F("task_id", t.ID), logging.F("error", err.Error()))
		}
		m.Counter(metrics.MetricTasksFailed, nil).Inc()
		state.logf("task %s failed: %s", t.ID, result.Error)
		observability.EndSpan(span, fmt.Errorf("%s", result.Error))
	}

	m.Histogram(metrics.MetricTaskDuration, nil).Observe(time.Since(started).Seconds())
}

// ExecuteSpecificTask runs one externally-supplied task directly, bypassing
// the scheduler entirely, for callers that already know which task should
// run next.
func (d *Driver) ExecuteSpecificTask(ctx context.Context, state *State, t *task.Task) error {
	if t.Status == task.StatusPending {
		if err := state.Graph.Transition(t.ID, task.StatusInProgress); err != nil {
			return err
		}
		t.Iteration = state.IterationCount
	}

	d.runTask(ctx, state, t)

	if t.Status == task.StatusFailed {
		return fmt.Errorf("engine: task %s failed: %s", t.ID, t.Error)
	}
	return nil
}

// RunTask materialises state's plan if it hasn't been already, executes the
// single task identified by taskID via ExecuteSpecificTask, and bundles the
// result with the same commit-and-push terminate step Run uses. It backs
// `yaver task run <id>`.
func (d *Driver) RunTask(ctx context.Context, state *State, taskID string) error {
	if state.Graph.Root() == nil {
		d.materialize(ctx, state)
	}

	t := state.Graph.Get(taskID)
	if t == nil {
		return fmt.Errorf("engine: no task with id %q", taskID)
	}

	if err := d.ExecuteSpecificTask(ctx, state, t); err != nil {
		state.recordError(err.Error())
	}
	state.ShouldContinue = false

	return d.terminate(ctx, state)
}

func (d *Driver) materialize(ctx context.Context, state *State) {
	decomposition := d.planner.Plan(ctx, state.UserRequest, planner.Context{
		TotalFiles:       state.RepoInfo.TotalFiles,
		TotalLines:       state.RepoInfo.TotalLines,
		Languages:        state.RepoInfo.Languages,
		ArchitectureType: state.RepoInfo.ArchitectureType,
	})
	for _, t := range planner.Materialize(decomposition) {
		state.Graph.Add(t)
	}
	state.logf("planned %d tasks for request %q", len(state.Graph.All()), state.UserRequest)
}

func (d *Driver) runMonitor(ctx context.Context, state *State) {
	if d.monitor == nil {
		return
	}
	branch, err := d.vcs.ActiveBranch(ctx)
	if err != nil {
		branch = ""
	}
	state.ActivePR = d.monitor.Run(ctx, state.Graph, state.ActivePR, branch, state.UserRequest)
}

// reproduceConflict prepares a conflict-resolution task: checkout the
// PR's own branch, fetch the remote, and attempt a merge of the base ref
// so the working copy contains conflict markers by the time the executor
// builds its prompt.
func (d *Driver) reproduceConflict(ctx context.Context, state *State, t *task.Task) {
	log := logging.GetLogger().WithName("engine")
	prBranch := t.MetadataString("pr_branch")
	if prBranch == "" {
		return
	}
	if err := d.vcs.Checkout(ctx, prBranch); err != nil {
		log.Warn(ctx, "conflict reproduction: checkout failed", logging.F("branch", prBranch), logging.F("error", err.Error()))
		return
	}
	if err := d.vcs.Fetch(ctx, "origin"); err != nil {
		log.Warn(ctx, "conflict reproduction: fetch failed", logging.F("error", err.Error()))
	}
	base := d.defaultBranch
	if state.ActivePR != nil && state.ActivePR.BaseRef != "" {
		base = state.ActivePR.BaseRef
	}
	if err := d.vcs.Merge(ctx, base); err != nil {
		log.Warn(ctx, "conflict reproduction: merge failed", logging.F("base", base), logging.F("error", err.Error()))
	}
}

// dependencyResults collects the truncated result of every COMPLETED
// dependency of t, keyed by id, for the executor's context assembly.
func (d *Driver) dependencyResults(state *State, t *task.Task) map[string]string {
	results := make(map[string]string, len(t.Dependencies))
	for _, depID := range t.Dependencies {
		if dep := state.Graph.Get(depID); dep != nil && dep.Status == task.StatusCompleted {
			results[depID] = dep.Result
		}
	}
	return results
}

// terminate closes out a session: one bundled commit covering every staged
// write, pushed to origin on the branch the writes landed on, plus a
// mergeability warning when the session leaves its active PR conflicted.
// The root task is completed here once every child has reached a terminal
// status, so that between sessions no task is left IN_PROGRESS.
func (d *Driver) terminate(ctx context.Context, state *State) error {
	log := logging.GetLogger().WithName("engine")

	if !state.ShouldContinue && len(state.StagedFiles) > 0 {
		root := state.Graph.Root()
		var message string
		if root != nil {
			message = fmt.Sprintf("feat: %s (Task %s)", root.Title, root.ID)
		} else {
			message = "feat: automated changes"
		}
		if err := d.vcs.Commit(ctx, message); err != nil {
			log.Warn(ctx, "bundled commit failed", logging.F("error", err.Error()))
			state.recordError("commit failed: " + err.Error())
		} else {
			branch, berr := d.vcs.ActiveBranch(ctx)
			if berr != nil || branch == "" {
				branch = d.defaultBranch
			}
			if err := d.vcs.Push(ctx, "origin", branch); err != nil {
				log.Warn(ctx, "push failed", logging.F("branch", branch), logging.F("error", err.Error()))
				state.recordError("push failed: " + err.Error())
			} else {
				state.logf("pushed bundled commit covering %d file(s)", len(state.StagedFiles))
			}
		}
	}

	for _, blocked := range state.Graph.Blocked() {
		state.logf("task %s is unreachable: a dependency failed", blocked.ID)
	}

	d.completeRoot(ctx, state)

	if state.ActivePR != nil && !state.ActivePR.Mergeable {
		log.Warn(ctx, "active PR is not cleanly mergeable", logging.F("pr_number", state.ActivePR.Number))
		state.logf("warning: PR #%d is not cleanly mergeable", state.ActivePR.Number)
	}

	return nil
}

// completeRoot marks the plan's root COMPLETED once every one of its
// subtasks is terminal. The root stays IN_PROGRESS for the whole session
// otherwise, which is what makes it the plan's umbrella rather than a
// schedulable unit of work.
func (d *Driver) completeRoot(ctx context.Context, state *State) {
	root := state.Graph.Root()
	if root == nil || root.Status != task.StatusInProgress {
		return
	}
	for _, childID := range root.Subtasks {
		child := state.Graph.Get(childID)
		if child == nil || !child.Status.Terminal() {
			return
		}
	}
	if err := state.Graph.Transition(root.ID, task.StatusCompleted); err != nil {
		logging.GetLogger().WithName("engine").Warn(ctx, "could not complete root task", logging.F("error", err.Error()))
		return
	}
	root.CompletedAt = time.Now()
}
