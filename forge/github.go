package forge

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	yaverrors "github.com/yaverhq/yaver/errors"
)

// GitHubClient implements ForgeClient against the GitHub REST API (v3).
// It mirrors GiteaClient's shape closely: same net/http + gjson/sjson
// approach and the same user and pull-request field decoding, differing
// mainly in endpoint paths and request headers.
type GitHubClient struct {
	token string
	owner string
	repo  string
	hc    *http.Client
}

// NewGitHubClient creates a client scoped to owner/repo, authenticated with
// a personal access token.
func NewGitHubClient(token, owner, repo string) *GitHubClient {
	return &GitHubClient{token: token, owner: owner, repo: repo, hc: &http.Client{}}
}

// SetTimeout bounds every request the client makes. Zero means no bound.
func (c *GitHubClient) SetTimeout(d time.Duration) {
	c.hc.Timeout = d
}

const githubAPI = "https://api.github.com"

func (c *GitHubClient) repoURL(format string, args ...any) string {
	return fmt.Sprintf("%s/repos/%s/%s%s", githubAPI, c.owner, c.repo, fmt.Sprintf(format, args...))
}

func (c *GitHubClient) do(ctx context.Context, method, url string, body []byte) (gjson.Result, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return gjson.Result{}, yaverrors.NewForgeError(method+" "+url, 0, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/vnd.github+json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return gjson.Result{}, yaverrors.NewForgeError(method+" "+url, 0, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, yaverrors.NewForgeError(method+" "+url, resp.StatusCode, err)
	}
	if resp.StatusCode >= 400 {
		return gjson.Result{}, yaverrors.NewForgeError(method+" "+url, resp.StatusCode, fmt.Errorf("%s", strings.TrimSpace(string(respBody))))
	}
	return gjson.ParseBytes(respBody), nil
}

// SetRepo implements ForgeClient.
func (c *GitHubClient) SetRepo(ctx context.Context, owner, name string) error {
	c.owner, c.repo = owner, name
	return nil
}

// ListRepositories implements ForgeClient.
func (c *GitHubClient) ListRepositories(ctx context.Context) ([]Repository, error) {
	result, err := c.do(ctx, http.MethodGet, githubAPI+"/user/repos", nil)
	if err != nil {
		return nil, err
	}
	var repos []Repository
	for _, r := range result.Array() {
		repos = append(repos, Repository{
			Name:     r.Get("name").String(),
			FullName: r.Get("full_name").String(),
			Owner:    loginOf(r.Get("owner")),
			Archived: r.Get("archived").Bool(),
			CloneURL: r.Get("clone_url").String(),
		})
	}
	return repos, nil
}

// GetUser implements ForgeClient.
func (c *GitHubClient) GetUser(ctx context.Context) (User, error) {
	result, err := c.do(ctx, http.MethodGet, githubAPI+"/user", nil)
	if err != nil {
		return User{}, err
	}
	return User{ID: result.Get("id").Int(), Login: loginOf(result)}, nil
}

// GetPR implements ForgeClient.
func (c *GitHubClient) GetPR(ctx context.Context, id int) (PullRequest, error) {
	result, err := c.do(ctx, http.MethodGet, c.repoURL("/pulls/%d", id), nil)
	if err != nil {
		return PullRequest{}, err
	}
	return githubPRFromJSON(result), nil
}

// FindPRByBranch implements ForgeClient using GitHub's `head` query filter
// (owner:branch syntax).
func (c *GitHubClient) FindPRByBranch(ctx context.Context, head, base string) (*PullRequest, error) {
	url := fmt.Sprintf("%s?state=open&head=%s:%s", c.repoURL("/pulls"), c.owner, head)
	result, err := c.do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	for _, r := range result.Array() {
		pr := githubPRFromJSON(r)
		if base == "" || pr.BaseRef == base {
			return &pr, nil
		}
	}
	return nil, nil
}

// ListComments implements ForgeClient. GitHub, like Gitea, serves PR
// comments off the issues endpoint.
func (c *GitHubClient) ListComments(ctx context.Context, prID int) ([]Comment, error) {
	result, err := c.do(ctx, http.MethodGet, c.repoURL("/issues/%d/comments", prID), nil)
	if err != nil {
		return nil, err
	}
	var comments []Comment
	for _, r := range result.Array() {
		comments = append(comments, Comment{
			ID:     r.Get("id").Int(),
			Author: loginOf(r.Get("user")),
			Body:   r.Get("body").String(),
		})
	}
	return comments, nil
}

// Comment implements ForgeClient.
func (c *GitHubClient) Comment(ctx context.Context, prID int, body string) (Comment, error) {
	payload, _ := sjson.Set("{}", "body", body)
	result, err := c.do(ctx, http.MethodPost, c.repoURL("/issues/%d/comments", prID), []byte(payload))
	if err != nil {
		return Comment{}, err
	}
	return Comment{ID: result.Get("id").Int(), Author: loginOf(result.Get("user")), Body: body}, nil
}

// AddReaction implements ForgeClient.
func (c *GitHubClient) AddReaction(ctx context.Context, commentID int64, kind string) error {
	payload, _ := sjson.Set("{}", "content", githubReactionName(kind))
	_, err := c.do(ctx, http.MethodPost, fmt.Sprintf("%s/repos/%s/%s/issues/comments/%d/reactions", githubAPI, c.owner, c.repo, commentID), []byte(payload))
	return err
}

// ListMentions implements ForgeClient via GitHub's notifications endpoint.
func (c *GitHubClient) ListMentions(ctx context.Context) ([]Issue, error) {
	result, err := c.do(ctx, http.MethodGet, githubAPI+"/notifications?participating=true", nil)
	if err != nil {
		return nil, err
	}
	var out []Issue
	for _, el := range result.Array() {
		if el.Get("reason").String() != "mention" {
			continue
		}
		out = append(out, Issue{
			Title: el.Get("subject.title").String(),
			Repository: Repository{
				FullName: el.Get("repository.full_name").String(),
			},
		})
	}
	return out, nil
}

// ListAssignedIssues implements ForgeClient.
func (c *GitHubClient) ListAssignedIssues(ctx context.Context) ([]Issue, error) {
	result, err := c.do(ctx, http.MethodGet, githubAPI+"/issues?filter=assigned", nil)
	if err != nil {
		return nil, err
	}
	return githubIssuesFromArray(result), nil
}

// ListReviewRequests implements ForgeClient.
func (c *GitHubClient) ListReviewRequests(ctx context.Context) ([]Issue, error) {
	result, err := c.do(ctx, http.MethodGet, c.repoURL("/pulls?state=open"), nil)
	if err != nil {
		return nil, err
	}
	return githubIssuesFromArray(result), nil
}

func githubPRFromJSON(r gjson.Result) PullRequest {
	return PullRequest{
		ID:        r.Get("id").Int(),
		Number:    int(r.Get("number").Int()),
		HeadRef:   r.Get("head.ref").String(),
		BaseRef:   r.Get("base.ref").String(),
		State:     r.Get("state").String(),
		Mergeable: r.Get("mergeable").Bool(),
	}
}

func githubIssuesFromArray(r gjson.Result) []Issue {
	var out []Issue
	for _, el := range r.Array() {
		out = append(out, Issue{
			Number: int(el.Get("number").Int()),
			Title:  el.Get("title").String(),
		})
	}
	return out
}

// githubReactionName maps the engine's provider-neutral reaction kind
// ("eyes") to GitHub's own content identifier, which happens to match.
func githubReactionName(kind string) string {
	return kind
}
