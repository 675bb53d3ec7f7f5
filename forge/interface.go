// Package forge defines the remote-forge boundary and normalizing
// adapters for Gitea and GitHub.
package forge

import "context"

// User is the normalized identity of a forge account.
type User struct {
	ID    int64
	Login string // normalized from the provider's "login"/"username" field
}

// Repository is the subset of forge repository metadata the engine needs.
type Repository struct {
	Name     string
	FullName string
	Owner    string
	Archived bool
	CloneURL string
}

// PullRequest is the normalized subset of forge PR metadata the engine
// needs: `number`, `head.ref`, `base.ref`, `state`, `mergeable`.
type PullRequest struct {
	ID        int64
	Number    int
	HeadRef   string
	BaseRef   string
	State     string // "open", "closed", "merged"
	Mergeable bool
}

// Comment is one issue/PR comment.
type Comment struct {
	ID     int64
	Author string
	Body   string
}

// Issue is a minimal normalized issue/assignment record used by the
// reactive discovery flow (assigned issues, review requests).
type Issue struct {
	Number     int
	Title      string
	Repository Repository
}

// ForgeClient is the opaque remote-forge boundary. Adapters normalize
// field names across providers (Gitea's vs GitHub's `login`,
// `number`, `head.ref` placement) so the engine only ever deals with the
// types above.
type ForgeClient interface {
	ListRepositories(ctx context.Context) ([]Repository, error)
	SetRepo(ctx context.Context, owner, name string) error
	GetUser(ctx context.Context) (User, error)
	GetPR(ctx context.Context, id int) (PullRequest, error)
	FindPRByBranch(ctx context.Context, head, base string) (*PullRequest, error)
	ListComments(ctx context.Context, prID int) ([]Comment, error)
	Comment(ctx context.Context, prID int, body string) (Comment, error)
	AddReaction(ctx context.Context, commentID int64, kind string) error
	ListMentions(ctx context.Context) ([]Issue, error)
	ListAssignedIssues(ctx context.Context) ([]Issue, error)
	ListReviewRequests(ctx context.Context) ([]Issue, error)
}
