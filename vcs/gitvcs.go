package vcs

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport/http"

	yaverrors "github.com/yaverhq/yaver/errors"
	"github.com/yaverhq/yaver/logging"
	"github.com/yaverhq/yaver/resilience"
)

// GitVCS implements VersionControl against a local working tree using
// go-git, the ecosystem's pure-Go git implementation. go-git has no
// public merge API and no unified-diff text output, so Merge and Diff
// shell out to the `git` binary directly.
type GitVCS struct {
	repoPath string
	repo     *git.Repository
	auth     *http.BasicAuth
	timeouts *resilience.TimeoutManager
}

// Config configures a GitVCS instance.
type Config struct {
	RepoPath string
	// AuthToken, when set, is used as HTTP basic-auth password (with a
	// placeholder username) for Push/Fetch against remotes requiring auth.
	AuthToken string
	// ShellTimeout bounds the operations that shell out to the git binary
	// (Merge, Diff). Zero defaults to 60 seconds.
	ShellTimeout time.Duration
}

// New opens the git repository at cfg.RepoPath.
func New(cfg Config) (*GitVCS, error) {
	repo, err := git.PlainOpen(cfg.RepoPath)
	if err != nil {
		return nil, yaverrors.NewGitOpError("open", cfg.RepoPath, err)
	}
	shellTimeout := cfg.ShellTimeout
	if shellTimeout == 0 {
		shellTimeout = 60 * time.Second
	}
	log := logging.GetLogger().WithName("vcs")
	v := &GitVCS{
		repoPath: cfg.RepoPath,
		repo:     repo,
		timeouts: resilience.NewTimeoutManager(&resilience.TimeoutConfig{
			DefaultTimeout:         shellTimeout,
			SlowOperationThreshold: shellTimeout / 2,
			OnTimeout: func(operation string, duration time.Duration) {
				log.Warn(context.Background(), "git operation timed out", logging.F("operation", operation), logging.F("duration", duration.String()))
			},
			OnSlowOperation: func(operation string, duration time.Duration) {
				log.Warn(context.Background(), "git operation was slow", logging.F("operation", operation), logging.F("duration", duration.String()))
			},
		}),
	}
	if cfg.AuthToken != "" {
		v.auth = &http.BasicAuth{Username: "yaver", Password: cfg.AuthToken}
	}
	return v, nil
}

// Checkout switches to an existing local branch.
func (v *GitVCS) Checkout(ctx context.Context, ref string) error {
	wt, err := v.repo.Worktree()
	if err != nil {
		return yaverrors.NewGitOpError("checkout", ref, err)
	}
	err = wt.Checkout(&git.CheckoutOptions{Branch: plumbing.NewBranchReferenceName(ref)})
	if err != nil {
		return yaverrors.NewGitOpError("checkout", ref, err)
	}
	return nil
}

// CheckoutForce switches branches, discarding local modifications that
// would otherwise block the checkout.
func (v *GitVCS) CheckoutForce(ctx context.Context, ref string) error {
	wt, err := v.repo.Worktree()
	if err != nil {
		return yaverrors.NewGitOpError("checkout_force", ref, err)
	}
	err = wt.Checkout(&git.CheckoutOptions{Branch: plumbing.NewBranchReferenceName(ref), Force: true})
	if err != nil {
		return yaverrors.NewGitOpError("checkout_force", ref, err)
	}
	return nil
}

// CreateBranch creates name from the current HEAD and switches to it.
func (v *GitVCS) CreateBranch(ctx context.Context, name string) error {
	wt, err := v.repo.Worktree()
	if err != nil {
		return yaverrors.NewGitOpError("create_branch", name, err)
	}
	err = wt.Checkout(&git.CheckoutOptions{Branch: plumbing.NewBranchReferenceName(name), Create: true})
	if err != nil {
		return yaverrors.NewGitOpError("create_branch", name, err)
	}
	return nil
}

// BranchExists reports whether a local branch named name exists.
func (v *GitVCS) BranchExists(ctx context.Context, name string) (bool, error) {
	_, err := v.repo.Reference(plumbing.NewBranchReferenceName(name), true)
	if err == plumbing.ErrReferenceNotFound {
		return false, nil
	}
	if err != nil {
		return false, yaverrors.NewGitOpError("branch_exists", name, err)
	}
	return true, nil
}

// Add stages paths for the next commit.
func (v *GitVCS) Add(ctx context.Context, paths []string) error {
	wt, err := v.repo.Worktree()
	if err != nil {
		return yaverrors.NewGitOpError("add", "", err)
	}
	for _, p := range paths {
		if _, err := wt.Add(p); err != nil {
			return yaverrors.NewGitOpError("add", p, err)
		}
	}
	return nil
}

// Commit creates a commit from the current index with message.
func (v *GitVCS) Commit(ctx context.Context, message string) error {
	wt, err := v.repo.Worktree()
	if err != nil {
		return yaverrors.NewGitOpError("commit", "", err)
	}
	_, err = wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{Name: "yaver", Email: "yaver@users.noreply", When: time.Now()},
	})
	if err != nil {
		return yaverrors.NewGitOpError("commit", "", err)
	}
	return nil
}

// Push pushes ref to remote. Pushing is retried a few times with backoff:
// it is the one network write the bundled-commit flow cannot recover from
// later in the session, and transient remote failures are common enough
// that a single attempt loses work.
func (v *GitVCS) Push(ctx context.Context, remote, ref string) error {
	refSpec := config.RefSpec(fmt.Sprintf("refs/heads/%s:refs/heads/%s", ref, ref))
	return resilience.Retry(ctx, pushRetryPolicy(), func() error {
		err := v.repo.PushContext(ctx, &git.PushOptions{
			RemoteName: remote,
			RefSpecs:   []config.RefSpec{refSpec},
			Auth:       v.authOrNil(),
		})
		if err != nil && err != git.NoErrAlreadyUpToDate {
			return yaverrors.NewGitOpError("push", ref, err)
		}
		return nil
	})
}

func pushRetryPolicy() *resilience.RetryPolicy {
	return &resilience.RetryPolicy{
		MaxAttempts:  3,
		InitialDelay: 2 * time.Second,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
	}
}

// Fetch fetches all refs from remote.
func (v *GitVCS) Fetch(ctx context.Context, remote string) error {
	err := v.repo.FetchContext(ctx, &git.FetchOptions{RemoteName: remote, Auth: v.authOrNil()})
	if err != nil && err != git.NoErrAlreadyUpToDate {
		return yaverrors.NewGitOpError("fetch", remote, err)
	}
	return nil
}

// Merge merges ref into the current branch. go-git exposes no merge
// plumbing, so this shells to the system git binary. A merge-conflict
// exit is not treated as a GitOpError: the reactive conflict-resolution
// flow depends on conflict markers being left in the working tree for
// the generator to see.
func (v *GitVCS) Merge(ctx context.Context, ref string) error {
	return v.timeouts.Execute(ctx, "merge", 0, func(ctx context.Context) error {
		cmd := exec.CommandContext(ctx, "git", "merge", "--no-edit", ref)
		cmd.Dir = v.repoPath
		out, err := cmd.CombinedOutput()
		if err != nil {
			if strings.Contains(strings.ToLower(string(out)), "conflict") {
				logging.GetLogger().WithName("vcs").Info(ctx, "merge produced conflicts, leaving markers for generator",
					logging.F("ref", ref))
				return nil
			}
			return yaverrors.NewGitOpError("merge", ref, fmt.Errorf("%s: %w", strings.TrimSpace(string(out)), err))
		}
		return nil
	})
}

// IsDirty reports whether the working tree has uncommitted changes.
func (v *GitVCS) IsDirty(ctx context.Context) (bool, error) {
	wt, err := v.repo.Worktree()
	if err != nil {
		return false, yaverrors.NewGitOpError("status", "", err)
	}
	status, err := wt.Status()
	if err != nil {
		return false, yaverrors.NewGitOpError("status", "", err)
	}
	return !status.IsClean(), nil
}

// ActiveBranch returns the current branch's short name.
func (v *GitVCS) ActiveBranch(ctx context.Context) (string, error) {
	head, err := v.repo.Head()
	if err != nil {
		return "", yaverrors.NewGitOpError("active_branch", "", err)
	}
	if !head.Name().IsBranch() {
		return "", nil
	}
	return head.Name().Short(), nil
}

// Diff returns the unified diff of the working tree against target
// (a branch, tag, or commit-ish). go-git's object-level diff API does not
// produce unified-diff text directly, so this shells to `git diff` --
// acceptable for a read-only reporting call exercised only by the social
// review flow, not the core orchestration loop.
func (v *GitVCS) Diff(ctx context.Context, target string) (string, error) {
	return resilience.ExecuteWithResult(v.timeouts, ctx, "diff", 0, func(ctx context.Context) (string, error) {
		cmd := exec.CommandContext(ctx, "git", "diff", target)
		cmd.Dir = v.repoPath
		out, err := cmd.Output()
		if err != nil {
			return "", yaverrors.NewGitOpError("diff", target, err)
		}
		return string(out), nil
	})
}

// CheckoutPR fetches and checks out a pull request's head ref (GitHub/Gitea
// convention: refs/pull/<id>/head) into a local branch named pr-<id>.
func (v *GitVCS) CheckoutPR(ctx context.Context, id int) error {
	prRef := fmt.Sprintf("refs/pull/%d/head", id)
	localBranch := fmt.Sprintf("pr-%d", id)
	refSpec := config.RefSpec(fmt.Sprintf("%s:refs/heads/%s", prRef, localBranch))

	err := v.repo.FetchContext(ctx, &git.FetchOptions{
		RemoteName: "origin",
		RefSpecs:   []config.RefSpec{refSpec},
		Auth:       v.authOrNil(),
	})
	if err != nil && err != git.NoErrAlreadyUpToDate {
		return yaverrors.NewGitOpError("checkout_pr", localBranch, err)
	}
	return v.CheckoutForce(ctx, localBranch)
}

func (v *GitVCS) authOrNil() *http.BasicAuth {
	return v.auth
}
