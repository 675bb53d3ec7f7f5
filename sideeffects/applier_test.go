package sideeffects

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yaverhq/yaver/scanner"
	"github.com/yaverhq/yaver/task"
)

// fakeVCS records calls instead of touching a real repository.
type fakeVCS struct {
	branches  map[string]bool
	checkouts []string
	created   []string
	merged    []string
	added     [][]string
}

func newFakeVCS() *fakeVCS {
	return &fakeVCS{branches: map[string]bool{}}
}

func (f *fakeVCS) Checkout(ctx context.Context, ref string) error {
	f.checkouts = append(f.checkouts, ref)
	return nil
}
func (f *fakeVCS) CheckoutForce(ctx context.Context, ref string) error { return f.Checkout(ctx, ref) }
func (f *fakeVCS) CreateBranch(ctx context.Context, name string) error {
	f.created = append(f.created, name)
	f.branches[name] = true
	return nil
}
func (f *fakeVCS) BranchExists(ctx context.Context, name string) (bool, error) {
	return f.branches[name], nil
}
func (f *fakeVCS) Add(ctx context.Context, paths []string) error {
	f.added = append(f.added, paths)
	return nil
}
func (f *fakeVCS) Commit(ctx context.Context, message string) error      { return nil }
func (f *fakeVCS) Push(ctx context.Context, remote, ref string) error    { return nil }
func (f *fakeVCS) Fetch(ctx context.Context, remote string) error       { return nil }
func (f *fakeVCS) Merge(ctx context.Context, ref string) error {
	f.merged = append(f.merged, ref)
	return nil
}
func (f *fakeVCS) IsDirty(ctx context.Context) (bool, error)          { return true, nil }
func (f *fakeVCS) ActiveBranch(ctx context.Context) (string, error)   { return "main", nil }
func (f *fakeVCS) Diff(ctx context.Context, target string) (string, error) { return "", nil }
func (f *fakeVCS) CheckoutPR(ctx context.Context, id int) error        { return nil }

// fakeScanner reports the file at failPath as invalid exactly once, then
// valid -- modeling a repairable syntax error.
type fakeScanner struct {
	failPath string
	failed   bool
}

func (s *fakeScanner) Syntax(ctx context.Context, path string) (scanner.SyntaxResult, error) {
	if path == s.failPath && !s.failed {
		s.failed = true
		return scanner.SyntaxResult{Valid: false, Error: "unexpected EOF", Tool: "fake"}, nil
	}
	return scanner.SyntaxResult{Valid: true, Tool: "fake"}, nil
}
func (s *fakeScanner) Complexity(ctx context.Context, path, body string) ([]scanner.Finding, error) {
	return nil, nil
}
func (s *fakeScanner) Security(ctx context.Context, path string) ([]scanner.Finding, error) {
	return nil, nil
}
func (s *fakeScanner) Lint(ctx context.Context, path string) ([]scanner.Finding, error) {
	return nil, nil
}

// fakeGenerator returns a fixed fenced body for any fix_code call.
type fakeGenerator struct {
	fixedBody string
}

func (g *fakeGenerator) Generate(ctx context.Context, tmpl string, vars map[string]any) (string, error) {
	return "```go:" + vars["path"].(string) + "\n" + g.fixedBody + "```", nil
}
func (g *fakeGenerator) GenerateStructured(ctx context.Context, tmpl string, vars map[string]any, schema map[string]any) (map[string]any, error) {
	return nil, nil
}

func TestApplier_Apply_WritesFencedBlocksAndStages(t *testing.T) {
	dir := t.TempDir()
	v := newFakeVCS()
	s := &fakeScanner{}
	g := &fakeGenerator{}
	a := New(v, s, g, dir, "main")

	tk := &task.Task{ID: "abcd1234", Title: "Add greeting"}
	result := ExecutionResult{Success: true, Output: "```go:main.go\npackage main\n```"}

	out := a.Apply(context.Background(), tk, result, "implement the feature")

	require.Equal(t, []string{"main.go"}, out.WrittenPaths)
	data, err := os.ReadFile(filepath.Join(dir, "main.go"))
	require.NoError(t, err)
	assert.Equal(t, "package main\n", string(data))
	require.Len(t, v.added, 1)
	assert.Equal(t, []string{"main.go"}, v.added[0])
}

func TestApplier_Apply_NoOpOnFailedExecution(t *testing.T) {
	dir := t.TempDir()
	a := New(newFakeVCS(), &fakeScanner{}, &fakeGenerator{}, dir, "main")
	tk := &task.Task{ID: "deadbeef"}

	out := a.Apply(context.Background(), tk, ExecutionResult{Success: false}, "")

	assert.Empty(t, out.WrittenPaths)
}

func TestApplier_Apply_RepairsSyntaxErrorOnce(t *testing.T) {
	dir := t.TempDir()
	v := newFakeVCS()
	s := &fakeScanner{failPath: filepath.Join(dir, "broken.go")}
	g := &fakeGenerator{fixedBody: "package main\n\nfunc main() {}\n"}
	a := New(v, s, g, dir, "main")

	tk := &task.Task{ID: "11112222"}
	result := ExecutionResult{Success: true, Output: "```go:broken.go\npackage main\nfunc main() {\n```"}

	out := a.Apply(context.Background(), tk, result, "")

	require.Equal(t, []string{"broken.go"}, out.WrittenPaths)
	data, err := os.ReadFile(filepath.Join(dir, "broken.go"))
	require.NoError(t, err)
	assert.Equal(t, g.fixedBody, string(data))
	require.Len(t, tk.Comments, 2)
	assert.Contains(t, tk.Comments[1].Content, "Auto-fix successful")
}

func TestApplier_Apply_BranchPolicySkipsCreationWhenFlagged(t *testing.T) {
	dir := t.TempDir()
	v := newFakeVCS()
	v.branches["existing-pr-branch"] = true
	a := New(v, &fakeScanner{}, &fakeGenerator{}, dir, "main")

	tk := &task.Task{
		ID:       "cafef00d",
		Metadata: map[string]any{"skip_branch_creation": true, "pr_branch": "existing-pr-branch"},
	}
	result := ExecutionResult{Success: true, Output: "```go:x.go\npackage x\n```"}

	a.Apply(context.Background(), tk, result, "")

	assert.Equal(t, []string{"existing-pr-branch"}, v.checkouts)
	assert.Empty(t, v.created)
}

func TestApplier_Apply_CreatesFeatureBranchOnPRIntent(t *testing.T) {
	dir := t.TempDir()
	v := newFakeVCS()
	a := New(v, &fakeScanner{}, &fakeGenerator{}, dir, "main")

	tk := &task.Task{ID: "f00dcafe1", Title: "Open a pull request for this"}
	result := ExecutionResult{Success: true, Output: "```go:y.go\npackage y\n```"}

	a.Apply(context.Background(), tk, result, "")

	require.Len(t, v.created, 1)
	assert.Equal(t, "yaver-task-f00dcafe", v.created[0])
}
