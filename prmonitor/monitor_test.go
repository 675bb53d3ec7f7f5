package prmonitor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yaverhq/yaver/forge"
	"github.com/yaverhq/yaver/taskgraph"
)

// fakeForge is a minimal in-memory ForgeClient exercising only what the
// monitor calls.
type fakeForge struct {
	pr         forge.PullRequest
	comments   []forge.Comment
	reactions  []int64
	posted     []string
	nextID     int64
	findResult *forge.PullRequest
}

func (f *fakeForge) ListRepositories(ctx context.Context) ([]forge.Repository, error) { return nil, nil }
func (f *fakeForge) SetRepo(ctx context.Context, owner, name string) error             { return nil }
func (f *fakeForge) GetUser(ctx context.Context) (forge.User, error) { return forge.User{}, nil }
func (f *fakeForge) GetPR(ctx context.Context, id int) (forge.PullRequest, error) { return f.pr, nil }
func (f *fakeForge) FindPRByBranch(ctx context.Context, head, base string) (*forge.PullRequest, error) {
	return f.findResult, nil
}
func (f *fakeForge) ListComments(ctx context.Context, prID int) ([]forge.Comment, error) {
	return f.comments, nil
}
func (f *fakeForge) Comment(ctx context.Context, prID int, body string) (forge.Comment, error) {
	f.nextID++
	f.posted = append(f.posted, body)
	return forge.Comment{ID: 1000 + f.nextID, Author: "yaver-bot", Body: body}, nil
}
func (f *fakeForge) AddReaction(ctx context.Context, commentID int64, kind string) error {
	f.reactions = append(f.reactions, commentID)
	return nil
}
func (f *fakeForge) ListMentions(ctx context.Context) ([]forge.Issue, error) { return nil, nil }
func (f *fakeForge) ListAssignedIssues(ctx context.Context) ([]forge.Issue, error) { return nil, nil }
func (f *fakeForge) ListReviewRequests(ctx context.Context) ([]forge.Issue, error) { return nil, nil }

func TestMonitor_Run_SpawnsFeedbackTaskForNewComment(t *testing.T) {
	fc := &fakeForge{
		pr:       forge.PullRequest{ID: 1, Number: 42, HeadRef: "yaver-task-abcd1234", BaseRef: "main", State: "open"},
		comments: []forge.Comment{{ID: 1, Author: "reviewer", Body: "please fix typo"}},
	}
	m := New(fc, "yaver-bot", "main")
	g := taskgraph.New()
	active := newActivePR(fc.pr)

	result := m.Run(context.Background(), g, active, "yaver-task-abcd1234", "fix the readme")

	require.NotNil(t, result)
	assert.True(t, result.ProcessedCommentIDs[1])
	assert.True(t, result.ProcessedCommentIDs[1001], "the ack comment's own id must be marked processed")
	assert.Len(t, fc.reactions, 1)
	assert.Len(t, fc.posted, 1)

	tasks := g.All()
	require.Len(t, tasks, 1)
	newTask := tasks[0]
	assert.Equal(t, "please fix typo", newTask.Description)
	require.Len(t, newTask.Comments, 1)
	assert.Equal(t, "reviewer", newTask.Comments[0].Author)
	assert.Equal(t, true, newTask.Metadata["is_pr_feedback"])
	assert.Equal(t, false, newTask.Metadata["is_conflict_resolution"])
	assert.Equal(t, true, newTask.Metadata["skip_branch_creation"])
	assert.Equal(t, "yaver-task-abcd1234", newTask.Metadata["pr_branch"])
}

func TestMonitor_Run_ClassifiesConflictComment(t *testing.T) {
	fc := &fakeForge{
		pr:       forge.PullRequest{ID: 1, Number: 42, HeadRef: "yaver-task-abcd1234", BaseRef: "main", State: "open"},
		comments: []forge.Comment{{ID: 2, Author: "reviewer", Body: "please resolve merge conflict"}},
	}
	m := New(fc, "yaver-bot", "main")
	g := taskgraph.New()
	active := newActivePR(fc.pr)

	m.Run(context.Background(), g, active, "yaver-task-abcd1234", "")

	tasks := g.All()
	require.Len(t, tasks, 1)
	assert.Equal(t, true, tasks[0].Metadata["is_conflict_resolution"])
}

func TestMonitor_Run_SkipsAlreadyProcessedAndAgentComments(t *testing.T) {
	fc := &fakeForge{
		pr: forge.PullRequest{ID: 1, Number: 42, State: "open"},
		comments: []forge.Comment{
			{ID: 1, Author: "reviewer", Body: "noted"},
			{ID: 2, Author: "yaver-bot", Body: "own ack"},
		},
	}
	m := New(fc, "yaver-bot", "main")
	g := taskgraph.New()
	active := newActivePR(fc.pr)
	active.markProcessed(1)

	m.Run(context.Background(), g, active, "some-branch", "")

	assert.Empty(t, g.All())
}

func TestMonitor_Run_NoActivePRAndDefaultBranchIsNoOp(t *testing.T) {
	fc := &fakeForge{}
	m := New(fc, "yaver-bot", "main")
	g := taskgraph.New()

	result := m.Run(context.Background(), g, nil, "main", "")

	assert.Nil(t, result)
	assert.Empty(t, g.All())
}

func TestMonitor_Run_ProactiveDiscoveryAdoptsPR(t *testing.T) {
	found := &forge.PullRequest{ID: 9, Number: 7, HeadRef: "feature-x", BaseRef: "main", State: "open"}
	fc := &fakeForge{pr: *found, findResult: found}
	m := New(fc, "yaver-bot", "main")
	g := taskgraph.New()

	result := m.Run(context.Background(), g, nil, "feature-x", "")

	require.NotNil(t, result)
	assert.Equal(t, 7, result.Number)
}
