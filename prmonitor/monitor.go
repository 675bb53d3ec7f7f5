// Package prmonitor watches the session's active pull request: it
// discovers (or refreshes) the PR, reacts to new reviewer comments, and
// spawns feedback tasks that run on the PR's own branch without creating
// a new one.
package prmonitor

import (
	"context"
	"strings"
	"time"

	"github.com/yaverhq/yaver/forge"
	"github.com/yaverhq/yaver/logging"
	"github.com/yaverhq/yaver/metrics"
	"github.com/yaverhq/yaver/task"
	"github.com/yaverhq/yaver/taskgraph"
)

// ActivePR is the engine's view of the pull request a session reacts to.
// ProcessedCommentIDs is the one piece of state that survives across
// iterations independent of the task graph.
type ActivePR struct {
	ID                  int64
	Number              int
	HeadRef             string
	BaseRef             string
	Mergeable           bool
	ProcessedCommentIDs map[int64]bool
}

func newActivePR(pr forge.PullRequest) *ActivePR {
	return &ActivePR{
		ID:                  pr.ID,
		Number:              pr.Number,
		HeadRef:             pr.HeadRef,
		BaseRef:             pr.BaseRef,
		Mergeable:           pr.Mergeable,
		ProcessedCommentIDs: make(map[int64]bool),
	}
}

func (a *ActivePR) markProcessed(id int64) {
	if a.ProcessedCommentIDs == nil {
		a.ProcessedCommentIDs = make(map[int64]bool)
	}
	a.ProcessedCommentIDs[id] = true
}

// conflictKeywords classify a reviewer comment as requesting conflict
// resolution.
var conflictKeywords = []string{"conflict", "merge", "resolve"}

// Monitor is the ReactivePRMonitor. AgentUsername identifies the engine's
// own forge account so it never reacts to its own ack comments.
type Monitor struct {
	client        forge.ForgeClient
	agentUsername string
	defaultBranch string
}

// New creates a Monitor. defaultBranch is the base ref proactive discovery
// matches against; empty defaults to "main".
func New(client forge.ForgeClient, agentUsername, defaultBranch string) *Monitor {
	if defaultBranch == "" {
		defaultBranch = "main"
	}
	return &Monitor{client: client, agentUsername: agentUsername, defaultBranch: defaultBranch}
}

// Run executes one monitoring pass: proactive discovery if active is nil,
// refresh, comment classification, reactive task creation. It returns the
// (possibly newly discovered) ActivePR; a nil return means no PR is
// associated with this session and nothing else need happen.
//
// currentBranch is the working tree's current branch, consulted only for
// proactive discovery.
func (m *Monitor) Run(ctx context.Context, g *taskgraph.Graph, active *ActivePR, currentBranch, userRequest string) *ActivePR {
	log := logging.GetLogger().WithName("prmonitor")

	if active == nil {
		if currentBranch == "" || currentBranch == m.defaultBranch {
			return nil
		}
		found, err := m.client.FindPRByBranch(ctx, currentBranch, m.defaultBranch)
		if err != nil {
			log.Warn(ctx, "proactive PR discovery failed", logging.F("error", err.Error()))
			return nil
		}
		if found == nil {
			return nil
		}
		active = newActivePR(*found)
		log.Info(ctx, "adopted active PR", logging.F("pr_number", active.Number))
	}

	pr, err := m.client.GetPR(ctx, active.Number)
	if err != nil {
		log.Warn(ctx, "failed to refresh PR, skipping this iteration", logging.F("error", err.Error()))
		return active
	}
	active.applySnapshot(pr)
	if pr.State != "open" {
		return active
	}

	comments, err := m.client.ListComments(ctx, active.Number)
	if err != nil {
		log.Warn(ctx, "failed to list PR comments, skipping this iteration", logging.F("error", err.Error()))
		return active
	}

	for _, c := range comments {
		if active.ProcessedCommentIDs[c.ID] {
			continue
		}
		if c.Author == m.agentUsername {
			active.markProcessed(c.ID)
			continue
		}

		if err := m.client.AddReaction(ctx, c.ID, "eyes"); err != nil {
			log.Warn(ctx, "eyes reaction failed", logging.F("comment_id", c.ID), logging.F("error", err.Error()))
		}

		ack, err := m.client.Comment(ctx, active.Number, "On it — working on this now.")
		if err != nil {
			log.Warn(ctx, "ack comment failed", logging.F("comment_id", c.ID), logging.F("error", err.Error()))
		} else {
			active.markProcessed(ack.ID)
		}

		conflict := classifyConflict(c.Body)
		newTask := &task.Task{
			ID:          task.NewID(),
			Title:       "PR feedback: " + truncate(c.Body, 80),
			Description: c.Body,
			Priority:    task.PriorityHigh,
			Status:      task.StatusPending,
			Metadata: map[string]any{
				"is_pr_feedback":         true,
				"is_conflict_resolution": conflict,
				"pr_id":                  active.ID,
				"pr_branch":              active.HeadRef,
				"skip_branch_creation":   true,
				"originating_comment_id": c.ID,
			},
			Comments: []task.Comment{{Author: c.Author, Content: c.Body, Timestamp: time.Now()}},
		}
		g.Add(newTask)
		metrics.GetMetrics().Counter(metrics.MetricFeedbackTasks, nil).Inc()
		log.Info(ctx, "created reactive task from PR comment", logging.F("task_id", newTask.ID), logging.F("comment_id", c.ID), logging.F("conflict", conflict))

		active.markProcessed(c.ID)
	}

	return active
}

// applySnapshot updates the mutable PR fields from a freshly fetched
// snapshot without disturbing ProcessedCommentIDs.
func (a *ActivePR) applySnapshot(pr forge.PullRequest) {
	a.HeadRef = pr.HeadRef
	a.BaseRef = pr.BaseRef
	a.Mergeable = pr.Mergeable
}

func classifyConflict(body string) bool {
	low := strings.ToLower(body)
	for _, kw := range conflictKeywords {
		if strings.Contains(low, kw) {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
