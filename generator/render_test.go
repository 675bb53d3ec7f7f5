package generator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender_DecompositionPrompt(t *testing.T) {
	out, err := render(DecompositionPrompt, map[string]any{
		"user_request": "add rate limiting to the API",
		"context":      "Go module, net/http handlers",
		"max_tasks":    9,
	})
	require.NoError(t, err)
	assert.Contains(t, out, "add rate limiting to the API")
	assert.Contains(t, out, "net/http handlers")
	assert.Contains(t, out, "9")
}

func TestRender_OmitsEmptyOptionalSections(t *testing.T) {
	out, err := render(DecompositionPrompt, map[string]any{
		"user_request": "fix flaky test",
		"context":      "",
		"max_tasks":    3,
	})
	require.NoError(t, err)
	assert.False(t, strings.Contains(out, "Repository context:"))
}

func TestRender_FixCodePrompt(t *testing.T) {
	out, err := render(FixCodePrompt, map[string]any{
		"path":  "main.go",
		"error": "unexpected EOF",
		"code":  "func main() {",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "main.go")
	assert.Contains(t, out, "unexpected EOF")
}
