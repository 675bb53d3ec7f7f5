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

// GiteaClient implements ForgeClient against the Gitea REST API (v1),
// using net/http and ad hoc JSON construction/extraction via gjson/sjson
// rather than a generated OpenAPI client -- the payload surface the
// engine touches is a handful of fields per endpoint.
type GiteaClient struct {
	baseURL string
	token   string
	owner   string
	repo    string
	hc      *http.Client
}

// NewGiteaClient creates a client against a Gitea instance at baseURL
// (e.g. "https://gitea.example.com"), scoped to owner/repo.
func NewGiteaClient(baseURL, token, owner, repo string) *GiteaClient {
	return &GiteaClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		owner:   owner,
		repo:    repo,
		hc:      &http.Client{},
	}
}

// SetTimeout bounds every request the client makes. Zero means no bound.
func (c *GiteaClient) SetTimeout(d time.Duration) {
	c.hc.Timeout = d
}

func (c *GiteaClient) apiURL(format string, args ...any) string {
	return fmt.Sprintf("%s/api/v1/repos/%s/%s%s", c.baseURL, c.owner, c.repo, fmt.Sprintf(format, args...))
}

func (c *GiteaClient) do(ctx context.Context, method, url string, body []byte) (gjson.Result, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return gjson.Result{}, yaverrors.NewForgeError(method+" "+url, 0, err)
	}
	req.Header.Set("Authorization", "token "+c.token)
	req.Header.Set("Accept", "application/json")
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

// SetRepo switches the client's owner/repo scope.
func (c *GiteaClient) SetRepo(ctx context.Context, owner, name string) error {
	c.owner, c.repo = owner, name
	return nil
}

// ListRepositories implements ForgeClient.
func (c *GiteaClient) ListRepositories(ctx context.Context) ([]Repository, error) {
	result, err := c.do(ctx, http.MethodGet, c.baseURL+"/api/v1/user/repos", nil)
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
func (c *GiteaClient) GetUser(ctx context.Context) (User, error) {
	result, err := c.do(ctx, http.MethodGet, c.baseURL+"/api/v1/user", nil)
	if err != nil {
		return User{}, err
	}
	return User{ID: result.Get("id").Int(), Login: loginOf(result)}, nil
}

// GetPR implements ForgeClient.
func (c *GiteaClient) GetPR(ctx context.Context, id int) (PullRequest, error) {
	result, err := c.do(ctx, http.MethodGet, c.apiURL("/pulls/%d", id), nil)
	if err != nil {
		return PullRequest{}, err
	}
	return prFromJSON(result), nil
}

// FindPRByBranch implements ForgeClient by listing open PRs and matching
// head/base ref, since Gitea's API has no direct head/base query filter.
func (c *GiteaClient) FindPRByBranch(ctx context.Context, head, base string) (*PullRequest, error) {
	result, err := c.do(ctx, http.MethodGet, c.apiURL("/pulls?state=open"), nil)
	if err != nil {
		return nil, err
	}
	for _, r := range result.Array() {
		pr := prFromJSON(r)
		if pr.HeadRef == head && (base == "" || pr.BaseRef == base) {
			return &pr, nil
		}
	}
	return nil, nil
}

// ListComments implements ForgeClient. Gitea serves PR comments off the
// shared issue-comments endpoint.
func (c *GiteaClient) ListComments(ctx context.Context, prID int) ([]Comment, error) {
	result, err := c.do(ctx, http.MethodGet, c.apiURL("/issues/%d/comments", prID), nil)
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
func (c *GiteaClient) Comment(ctx context.Context, prID int, body string) (Comment, error) {
	payload, _ := sjson.Set("{}", "body", body)
	result, err := c.do(ctx, http.MethodPost, c.apiURL("/issues/%d/comments", prID), []byte(payload))
	if err != nil {
		return Comment{}, err
	}
	return Comment{ID: result.Get("id").Int(), Author: loginOf(result.Get("user")), Body: body}, nil
}

// AddReaction implements ForgeClient.
func (c *GiteaClient) AddReaction(ctx context.Context, commentID int64, kind string) error {
	payload, _ := sjson.Set("{}", "content", kind)
	_, err := c.do(ctx, http.MethodPost, c.apiURL("/issues/comments/%d/reactions", commentID), []byte(payload))
	return err
}

// ListMentions implements ForgeClient. Gitea's notifications endpoint
// covers mentions; a failed request is returned to the caller as an error.
func (c *GiteaClient) ListMentions(ctx context.Context) ([]Issue, error) {
	result, err := c.do(ctx, http.MethodGet, c.baseURL+"/api/v1/notifications?subject-type=pull_request", nil)
	if err != nil {
		return nil, err
	}
	return issuesFromNotifications(result), nil
}

// ListAssignedIssues implements ForgeClient.
func (c *GiteaClient) ListAssignedIssues(ctx context.Context) ([]Issue, error) {
	result, err := c.do(ctx, http.MethodGet, c.baseURL+"/api/v1/repos/issues/search?assigned=true", nil)
	if err != nil {
		return nil, err
	}
	return issuesFromArray(result), nil
}

// ListReviewRequests implements ForgeClient.
func (c *GiteaClient) ListReviewRequests(ctx context.Context) ([]Issue, error) {
	result, err := c.do(ctx, http.MethodGet, c.baseURL+"/api/v1/repos/issues/search?review_requested=true", nil)
	if err != nil {
		return nil, err
	}
	return issuesFromArray(result), nil
}

func prFromJSON(r gjson.Result) PullRequest {
	return PullRequest{
		ID:        r.Get("id").Int(),
		Number:    int(r.Get("number").Int()),
		HeadRef:   r.Get("head.ref").String(),
		BaseRef:   r.Get("base.ref").String(),
		State:     r.Get("state").String(),
		Mergeable: r.Get("mergeable").Bool(),
	}
}

func issuesFromArray(r gjson.Result) []Issue {
	var out []Issue
	for _, el := range r.Array() {
		out = append(out, Issue{
			Number: int(el.Get("number").Int()),
			Title:  el.Get("title").String(),
			Repository: Repository{
				Name:     el.Get("repository.name").String(),
				FullName: el.Get("repository.full_name").String(),
			},
		})
	}
	return out
}

func issuesFromNotifications(r gjson.Result) []Issue {
	var out []Issue
	for _, el := range r.Array() {
		out = append(out, Issue{
			Title: el.Get("subject.title").String(),
			Repository: Repository{
				FullName: el.Get("repository.full_name").String(),
			},
		})
	}
	return out
}

// loginOf normalizes Gitea's "login" field and GitHub's "login" field into
// one accessor; Gitea and GitHub both use "login", but some Gitea mirrors
// and older API versions serve "username" instead.
func loginOf(user gjson.Result) string {
	if login := user.Get("login"); login.Exists() {
		return login.String()
	}
	return user.Get("username").String()
}
