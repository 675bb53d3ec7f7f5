// Package enginetest provides in-memory fakes for the engine's five
// external interfaces (Generator, ContextRetriever, CodeScanner,
// VersionControl, ForgeClient), shared across package test suites so
// whole-session scenarios can run without a real LLM, git checkout, or
// forge account.
package enginetest

import (
	"context"
	"fmt"
	"sync"

	"github.com/yaverhq/yaver/forge"
	"github.com/yaverhq/yaver/scanner"
)

// Generator is a scripted generator.Generator: callers enqueue responses
// per prompt template, returned in FIFO order; an unscripted template
// returns a recognisable error rather than a zero value.
type Generator struct {
	mu        sync.Mutex
	responses map[string][]string
	errs      map[string][]error
	Calls     []GeneratorCall
}

// GeneratorCall records one Generate invocation for assertions.
type GeneratorCall struct {
	Template  string
	Variables map[string]any
}

// NewGenerator creates an empty scripted generator.
func NewGenerator() *Generator {
	return &Generator{responses: map[string][]string{}, errs: map[string][]error{}}
}

// Enqueue schedules resp as the next response to a Generate call for
// template.
func (g *Generator) Enqueue(template, resp string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.responses[template] = append(g.responses[template], resp)
}

// EnqueueError schedules err as the next response to a Generate call for
// template.
func (g *Generator) EnqueueError(template string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.errs[template] = append(g.errs[template], err)
}

// Generate implements generator.Generator.
func (g *Generator) Generate(ctx context.Context, template string, variables map[string]any) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Calls = append(g.Calls, GeneratorCall{Template: template, Variables: variables})

	if errs := g.errs[template]; len(errs) > 0 {
		err := errs[0]
		g.errs[template] = errs[1:]
		return "", err
	}
	resps := g.responses[template]
	if len(resps) == 0 {
		return "", fmt.Errorf("enginetest: no scripted response for template %q", template)
	}
	g.responses[template] = resps[1:]
	return resps[0], nil
}

// GenerateStructured implements generator.Generator; unused by current
// engine flows but kept to satisfy the interface.
func (g *Generator) GenerateStructured(ctx context.Context, template string, variables map[string]any, schema map[string]any) (map[string]any, error) {
	return nil, fmt.Errorf("enginetest: GenerateStructured not scripted")
}

// Retriever is a fixed-response retriever.ContextRetriever.
type Retriever struct {
	Blob string
	Err  error
}

// Retrieve implements retriever.ContextRetriever.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) (string, error) {
	return r.Blob, r.Err
}

// Scanner is a scripted scanner.CodeScanner. Invalid maps a path to the
// SyntaxResult it should report exactly once; subsequent checks of that
// path report valid, modelling a file fixed by the repair loop.
type Scanner struct {
	mu      sync.Mutex
	Invalid map[string]scanner.SyntaxResult
	seen    map[string]bool
}

// NewScanner creates a scanner that reports every file as syntactically
// valid except the ones pre-registered as invalid.
func NewScanner() *Scanner {
	return &Scanner{Invalid: map[string]scanner.SyntaxResult{}, seen: map[string]bool{}}
}

// Syntax implements scanner.CodeScanner.
func (s *Scanner) Syntax(ctx context.Context, path string) (scanner.SyntaxResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if res, ok := s.Invalid[path]; ok && !s.seen[path] {
		s.seen[path] = true
		return res, nil
	}
	return scanner.SyntaxResult{Valid: true, Tool: "enginetest"}, nil
}

// Complexity implements scanner.CodeScanner.
func (s *Scanner) Complexity(ctx context.Context, path, body string) ([]scanner.Finding, error) {
	return nil, nil
}

// Security implements scanner.CodeScanner.
func (s *Scanner) Security(ctx context.Context, path string) ([]scanner.Finding, error) {
	return nil, nil
}

// Lint implements scanner.CodeScanner.
func (s *Scanner) Lint(ctx context.Context, path string) ([]scanner.Finding, error) {
	return nil, nil
}

// VersionControl is an in-memory vcs.VersionControl recording every call
// instead of touching a real working tree.
type VersionControl struct {
	mu            sync.Mutex
	branches      map[string]bool
	Branch        string
	Checkouts     []string
	Created       []string
	Merged        []string
	Added         [][]string
	Commits       []string
	Pushes        []string
	Dirty         bool
	CheckoutErr   error
	MergeErr      error
	FetchErr      error
}

// NewVersionControl creates a fake starting on branch "main".
func NewVersionControl() *VersionControl {
	return &VersionControl{branches: map[string]bool{"main": true}, Branch: "main"}
}

func (v *VersionControl) Checkout(ctx context.Context, ref string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.CheckoutErr != nil {
		return v.CheckoutErr
	}
	v.Checkouts = append(v.Checkouts, ref)
	v.Branch = ref
	return nil
}

func (v *VersionControl) CheckoutForce(ctx context.Context, ref string) error {
	return v.Checkout(ctx, ref)
}

func (v *VersionControl) CreateBranch(ctx context.Context, name string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.Created = append(v.Created, name)
	v.branches[name] = true
	v.Branch = name
	return nil
}

func (v *VersionControl) BranchExists(ctx context.Context, name string) (bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.branches[name], nil
}

func (v *VersionControl) Add(ctx context.Context, paths []string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.Added = append(v.Added, paths)
	return nil
}

func (v *VersionControl) Commit(ctx context.Context, message string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.Commits = append(v.Commits, message)
	return nil
}

func (v *VersionControl) Push(ctx context.Context, remote, ref string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.Pushes = append(v.Pushes, remote+"/"+ref)
	return nil
}

func (v *VersionControl) Fetch(ctx context.Context, remote string) error {
	return v.FetchErr
}

func (v *VersionControl) Merge(ctx context.Context, ref string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.Merged = append(v.Merged, ref)
	return v.MergeErr
}

func (v *VersionControl) IsDirty(ctx context.Context) (bool, error) {
	return v.Dirty, nil
}

func (v *VersionControl) ActiveBranch(ctx context.Context) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.Branch, nil
}

func (v *VersionControl) Diff(ctx context.Context, target string) (string, error) {
	return "", nil
}

func (v *VersionControl) CheckoutPR(ctx context.Context, id int) error {
	return v.Checkout(ctx, fmt.Sprintf("pr-%d", id))
}

// Forge is an in-memory forge.ForgeClient.
type Forge struct {
	mu         sync.Mutex
	PR         forge.PullRequest
	Comments   []forge.Comment
	Reactions  []int64
	Posted     []string
	FindResult *forge.PullRequest
	nextID     int64
}

func (f *Forge) ListRepositories(ctx context.Context) ([]forge.Repository, error) { return nil, nil }
func (f *Forge) SetRepo(ctx context.Context, owner, name string) error             { return nil }
func (f *Forge) GetUser(ctx context.Context) (forge.User, error) { return forge.User{Login: "yaver-bot"}, nil }
func (f *Forge) GetPR(ctx context.Context, id int) (forge.PullRequest, error) { return f.PR, nil }

func (f *Forge) FindPRByBranch(ctx context.Context, head, base string) (*forge.PullRequest, error) {
	return f.FindResult, nil
}

func (f *Forge) ListComments(ctx context.Context, prID int) ([]forge.Comment, error) {
	return f.Comments, nil
}

func (f *Forge) Comment(ctx context.Context, prID int, body string) (forge.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.Posted = append(f.Posted, body)
	return forge.Comment{ID: 1000 + f.nextID, Author: "yaver-bot", Body: body}, nil
}

func (f *Forge) AddReaction(ctx context.Context, commentID int64, kind string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Reactions = append(f.Reactions, commentID)
	return nil
}

func (f *Forge) ListMentions(ctx context.Context) ([]forge.Issue, error) { return nil, nil }
func (f *Forge) ListAssignedIssues(ctx context.Context) ([]forge.Issue, error) { return nil, nil }
func (f *Forge) ListReviewRequests(ctx context.Context) ([]forge.Issue, error) { return nil, nil }
