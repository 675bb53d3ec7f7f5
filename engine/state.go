// Package engine holds a session's mutable state (task graph, active PR,
// staged-file bundle) and the driver loop that runs planner, scheduler,
// executor, side-effect applier, and reactive PR monitor to completion.
package engine

import (
	"fmt"
	"time"

	"github.com/yaverhq/yaver/prmonitor"
	"github.com/yaverhq/yaver/task"
	"github.com/yaverhq/yaver/taskgraph"
)

// RepoInfo carries the repository statistics folded by the planner and
// executor into every prompt context.
type RepoInfo struct {
	TotalFiles       int
	TotalLines       int
	Languages        []string
	ArchitectureType string
}

// LogEntry is one line of the driver's own session log, independent of
// the structured logging package: it is the
// user-facing narrative of what the session did, suitable for display or
// audit, not a replacement for logging.Logger.
type LogEntry struct {
	Time    time.Time
	Message string
}

// State is the engine's single mutable run. The driver is its only
// writer; every other component receives a read view and returns a
// result the driver applies back.
type State struct {
	UserRequest    string
	Graph          *taskgraph.Graph
	IterationCount int
	RepoPath       string
	RepoInfo       RepoInfo
	ActivePR       *prmonitor.ActivePR
	StagedFiles    []string
	Log            []LogEntry
	Errors         []string
	ShouldContinue bool
}

// NewState creates a State for a fresh session.
func NewState(userRequest, repoPath string, repoInfo RepoInfo) *State {
	return &State{
		UserRequest:    userRequest,
		Graph:          taskgraph.New(),
		RepoPath:       repoPath,
		RepoInfo:       repoInfo,
		ShouldContinue: true,
	}
}

func (s *State) logf(format string, args ...any) {
	s.Log = append(s.Log, LogEntry{Time: time.Now(), Message: fmt.Sprintf(format, args...)})
}

func (s *State) recordError(msg string) {
	s.Errors = append(s.Errors, msg)
}

// CompletedTasks returns every COMPLETED task in the session. It is a
// read derived from Graph rather than a
// second source of truth, since Graph already owns task status.
func (s *State) CompletedTasks() []*task.Task {
	var out []*task.Task
	for _, t := range s.Graph.All() {
		if t.Status == task.StatusCompleted {
			out = append(out, t)
		}
	}
	return out
}
