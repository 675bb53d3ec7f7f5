package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDedupeSubtasks_DropsExactRestatement(t *testing.T) {
	d := Decomposition{
		MainTask: "add retries",
		Subtasks: []string{
			"Add retry logic to the HTTP client",
			"add retry logic to the http client",
			"Write tests for the retry logic",
		},
		Priorities: map[string]string{
			"Add retry logic to the HTTP client": "HIGH",
			"add retry logic to the http client":  "HIGH",
			"Write tests for the retry logic":     "MEDIUM",
		},
		Dependencies: map[string][]string{
			"Write tests for the retry logic": {"Add retry logic to the HTTP client"},
		},
	}

	got := dedupeSubtasks(d)

	require.Len(t, got.Subtasks, 2)
	assert.Equal(t, "Add retry logic to the HTTP client", got.Subtasks[0])
	assert.Equal(t, "Write tests for the retry logic", got.Subtasks[1])
	assert.Len(t, got.Priorities, 2)
	assert.Contains(t, got.Dependencies, "Write tests for the retry logic")
}

func TestDedupeSubtasks_NoDuplicatesIsUntouched(t *testing.T) {
	d := Decomposition{
		Subtasks: []string{"write the reader", "write the writer"},
	}

	got := dedupeSubtasks(d)

	assert.Equal(t, d.Subtasks, got.Subtasks)
}

func TestDedupeSubtasks_FewerThanTwoIsNoop(t *testing.T) {
	d := Decomposition{Subtasks: []string{"only task"}}

	got := dedupeSubtasks(d)

	assert.Equal(t, d, got)
}
