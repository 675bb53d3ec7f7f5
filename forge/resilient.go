package forge

import (
	"context"

	"github.com/yaverhq/yaver/metrics"
	"github.com/yaverhq/yaver/resilience"
)

// ResilientClient decorates a ForgeClient with a circuit breaker and a rate
// limiter. The reactive monitor polls the forge every iteration; when the
// forge flaps, the breaker turns repeated timeouts into an immediate
// circuit-open error the monitor logs and skips, and the token bucket keeps
// the polling cadence within the forge's request budget. Either primitive
// may be nil to disable it.
type ResilientClient struct {
	inner   ForgeClient
	breaker *resilience.CircuitBreaker
	limiter resilience.RateLimiter
}

// NewResilientClient wraps inner. breaker and limiter may each be nil.
func NewResilientClient(inner ForgeClient, breaker *resilience.CircuitBreaker, limiter resilience.RateLimiter) *ResilientClient {
	return &ResilientClient{inner: inner, breaker: breaker, limiter: limiter}
}

func (c *ResilientClient) do(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	m := metrics.GetMetrics()
	labels := metrics.Labels{"operation": operation}
	m.Counter(metrics.MetricForgeRequestsTotal, labels).Inc()

	err := resilience.Do(ctx, c.limiter, c.breaker, fn)
	if err != nil {
		m.Counter(metrics.MetricForgeErrors, labels).Inc()
	}
	return err
}

// ListRepositories implements ForgeClient.
func (c *ResilientClient) ListRepositories(ctx context.Context) ([]Repository, error) {
	var out []Repository
	err := c.do(ctx, "list_repositories", func(ctx context.Context) error {
		var err error
		out, err = c.inner.ListRepositories(ctx)
		return err
	})
	return out, err
}

// SetRepo implements ForgeClient.
func (c *ResilientClient) SetRepo(ctx context.Context, owner, name string) error {
	return c.do(ctx, "set_repo", func(ctx context.Context) error {
		return c.inner.SetRepo(ctx, owner, name)
	})
}

// GetUser implements ForgeClient.
func (c *ResilientClient) GetUser(ctx context.Context) (User, error) {
	var out User
	err := c.do(ctx, "get_user", func(ctx context.Context) error {
		var err error
		out, err = c.inner.GetUser(ctx)
		return err
	})
	return out, err
}

// GetPR implements ForgeClient.
func (c *ResilientClient) GetPR(ctx context.Context, id int) (PullRequest, error) {
	var out PullRequest
	err := c.do(ctx, "get_pr", func(ctx context.Context) error {
		var err error
		out, err = c.inner.GetPR(ctx, id)
		return err
	})
	return out, err
}

// FindPRByBranch implements ForgeClient.
func (c *ResilientClient) FindPRByBranch(ctx context.Context, head, base string) (*PullRequest, error) {
	var out *PullRequest
	err := c.do(ctx, "find_pr_by_branch", func(ctx context.Context) error {
		var err error
		out, err = c.inner.FindPRByBranch(ctx, head, base)
		return err
	})
	return out, err
}

// ListComments implements ForgeClient.
func (c *ResilientClient) ListComments(ctx context.Context, prID int) ([]Comment, error) {
	var out []Comment
	err := c.do(ctx, "list_comments", func(ctx context.Context) error {
		var err error
		out, err = c.inner.ListComments(ctx, prID)
		return err
	})
	return out, err
}

// Comment implements ForgeClient.
func (c *ResilientClient) Comment(ctx context.Context, prID int, body string) (Comment, error) {
	var out Comment
	err := c.do(ctx, "comment", func(ctx context.Context) error {
		var err error
		out, err = c.inner.Comment(ctx, prID, body)
		return err
	})
	return out, err
}

// AddReaction implements ForgeClient.
func (c *ResilientClient) AddReaction(ctx context.Context, commentID int64, kind string) error {
	return c.do(ctx, "add_reaction", func(ctx context.Context) error {
		return c.inner.AddReaction(ctx, commentID, kind)
	})
}

// ListMentions implements ForgeClient.
func (c *ResilientClient) ListMentions(ctx context.Context) ([]Issue, error) {
	var out []Issue
	err := c.do(ctx, "list_mentions", func(ctx context.Context) error {
		var err error
		out, err = c.inner.ListMentions(ctx)
		return err
	})
	return out, err
}

// ListAssignedIssues implements ForgeClient.
func (c *ResilientClient) ListAssignedIssues(ctx context.Context) ([]Issue, error) {
	var out []Issue
	err := c.do(ctx, "list_assigned_issues", func(ctx context.Context) error {
		var err error
		out, err = c.inner.ListAssignedIssues(ctx)
		return err
	})
	return out, err
}

// ListReviewRequests implements ForgeClient.
func (c *ResilientClient) ListReviewRequests(ctx context.Context) ([]Issue, error) {
	var out []Issue
	err := c.do(ctx, "list_review_requests", func(ctx context.Context) error {
		var err error
		out, err = c.inner.ListReviewRequests(ctx)
		return err
	})
	return out, err
}
