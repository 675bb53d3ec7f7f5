package planner

import (
	"strings"

	"github.com/bits-and-blooms/bloom/v3"
)

// dedupeSubtasks drops subtasks whose normalized description the decomposer
// already proposed, a defense against an LLM that restates the same piece
// of work under slightly different numbering. A bloom filter is checked
// first as a cheap pre-filter over normalized descriptions; only a
// positive hit pays for the exact seen-set comparison that follows.
func dedupeSubtasks(d Decomposition) Decomposition {
	if len(d.Subtasks) < 2 {
		return d
	}

	filter := bloom.NewWithEstimates(uint(len(d.Subtasks))*4, 0.01)
	seen := make(map[string]bool, len(d.Subtasks))

	kept := make([]string, 0, len(d.Subtasks))
	for _, desc := range d.Subtasks {
		key := normalize(desc)
		if filter.TestString(key) && seen[key] {
			continue
		}
		filter.AddString(key)
		seen[key] = true
		kept = append(kept, desc)
	}

	if len(kept) == len(d.Subtasks) {
		return d
	}

	droppedDesc := make(map[string]bool, len(d.Subtasks)-len(kept))
	keptSet := make(map[string]bool, len(kept))
	for _, desc := range kept {
		keptSet[desc] = true
	}
	for _, desc := range d.Subtasks {
		if !keptSet[desc] {
			droppedDesc[desc] = true
		}
	}

	priorities := make(map[string]string, len(kept))
	for _, desc := range kept {
		priorities[desc] = d.Priorities[desc]
	}
	dependencies := make(map[string][]string, len(kept))
	for desc, deps := range d.Dependencies {
		if droppedDesc[desc] {
			continue
		}
		dependencies[desc] = deps
	}

	d.Subtasks = kept
	d.Priorities = priorities
	d.Dependencies = dependencies
	return d
}

// normalize folds a subtask description to the form compared for duplicate
// detection: lowercased, trimmed, with internal whitespace collapsed.
func normalize(s string) string {
	fields := strings.Fields(strings.ToLower(s))
	return strings.Join(fields, " ")
}
