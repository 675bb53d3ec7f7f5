// Package task defines the engine's central data model: a Task and its
// transitions. Every other package (taskgraph, scheduler, planner, executor,
// sideeffects, prmonitor, driver) operates on these types.
package task

import (
	"strings"
	"time"
)

// Priority orders tasks for scheduling. CRITICAL always wins a tie.
type Priority string

const (
	PriorityCritical Priority = "CRITICAL"
	PriorityHigh     Priority = "HIGH"
	PriorityMedium   Priority = "MEDIUM"
	PriorityLow      Priority = "LOW"
)

// rank returns a lower-is-more-urgent ordinal for Priority, used by the
// scheduler's stable sort.
func (p Priority) rank() int {
	switch p {
	case PriorityCritical:
		return 0
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 3
	default:
		return 4
	}
}

// Less reports whether p is strictly more urgent than other.
func (p Priority) Less(other Priority) bool {
	return p.rank() < other.rank()
}

// ParsePriority normalizes a free-form string (case-insensitive, as produced
// by a language model) into a Priority, defaulting to MEDIUM.
func ParsePriority(s string) Priority {
	switch normalize(s) {
	case "critical":
		return PriorityCritical
	case "high":
		return PriorityHigh
	case "low":
		return PriorityLow
	case "medium", "":
		return PriorityMedium
	default:
		return PriorityMedium
	}
}

// Status is a Task's place in its lifecycle. Transitions are monotonic:
// PENDING -> IN_PROGRESS -> {COMPLETED, FAILED}. BLOCKED is reserved for
// tasks a caller marks unreachable; the engine itself never assigns it
// automatically (see taskgraph.Blocked).
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
	StatusBlocked    Status = "BLOCKED"
)

// Terminal reports whether a status accepts no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Comment is one reviewer remark accumulated from the forge.
type Comment struct {
	Author    string
	Content   string
	Timestamp time.Time
}

// Task is a single unit of work in the plan. Tasks are identified by ID and
// referenced by ID everywhere else in the engine (taskgraph.Graph, not raw
// pointers) so that status mutation has one owner.
type Task struct {
	ID           string
	Title        string
	Description  string
	Priority     Priority
	Status       Status
	ParentTaskID string   // empty for the root task
	Subtasks     []string // child task ids, ordered; only populated on the root
	Dependencies []string // task ids that must be COMPLETED before this may run
	Iteration    int      // cycle number this task was last selected in; 0 until then
	Result       string   // captured generator output on success
	Error        string   // captured error message on failure
	CompletedAt  time.Time
	Metadata     map[string]any
	Comments     []Comment
}

// IsRoot reports whether t is the single task with no parent in its plan.
func (t *Task) IsRoot() bool {
	return t.ParentTaskID == ""
}

// MetadataBool reads a boolean metadata flag, defaulting to false when the
// key is absent or not a bool.
func (t *Task) MetadataBool(key string) bool {
	if t.Metadata == nil {
		return false
	}
	v, ok := t.Metadata[key].(bool)
	return ok && v
}

// MetadataString reads a string metadata value, defaulting to "" when the
// key is absent or not a string.
func (t *Task) MetadataString(key string) string {
	if t.Metadata == nil {
		return ""
	}
	v, _ := t.Metadata[key].(string)
	return v
}

// SetMetadata records a metadata value, allocating the map if needed.
func (t *Task) SetMetadata(key string, value any) {
	if t.Metadata == nil {
		t.Metadata = make(map[string]any)
	}
	t.Metadata[key] = value
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
