package sideeffects

import (
	"context"
	"fmt"
	"strings"

	"github.com/yaverhq/yaver/logging"
	"github.com/yaverhq/yaver/task"
	"github.com/yaverhq/yaver/vcs"
)

// DefaultBaseBranch is used when no base branch is configured.
const DefaultBaseBranch = "main"

// applyBranchPolicy decides which branch a task's writes land on.
// Failures are logged and swallowed: writing proceeds on whatever branch
// the working tree ends up on.
func applyBranchPolicy(ctx context.Context, v vcs.VersionControl, t *task.Task, userRequest, baseBranch string) {
	log := logging.GetLogger().WithName("sideeffects.branch")
	if baseBranch == "" {
		baseBranch = DefaultBaseBranch
	}

	if t.MetadataBool("skip_branch_creation") {
		prBranch := t.MetadataString("pr_branch")
		if prBranch == "" {
			return
		}
		if err := v.Checkout(ctx, prBranch); err != nil {
			log.Warn(ctx, "checkout of pr branch failed, retrying with force", logging.F("branch", prBranch), logging.F("error", err.Error()))
			if err := v.CheckoutForce(ctx, prBranch); err != nil {
				log.Warn(ctx, "forced checkout of pr branch failed, staying on current branch", logging.F("branch", prBranch), logging.F("error", err.Error()))
			}
		}
		return
	}

	if !hasPRIntent(t, userRequest) {
		return
	}

	branchName := fmt.Sprintf("yaver-task-%s", shortID(t.ID))
	exists, err := v.BranchExists(ctx, branchName)
	if err != nil {
		log.Warn(ctx, "branch existence check failed", logging.F("branch", branchName), logging.F("error", err.Error()))
		return
	}

	if exists {
		if err := v.Checkout(ctx, branchName); err != nil {
			log.Warn(ctx, "checkout of existing feature branch failed", logging.F("branch", branchName), logging.F("error", err.Error()))
			return
		}
		if err := v.Merge(ctx, baseBranch); err != nil {
			log.Warn(ctx, "non-interactive merge of base branch failed", logging.F("branch", baseBranch), logging.F("error", err.Error()))
		}
		return
	}

	if err := v.CreateBranch(ctx, branchName); err != nil {
		log.Warn(ctx, "feature branch creation failed", logging.F("branch", branchName), logging.F("error", err.Error()))
	}
}

// hasPRIntent reports whether the task's own text or the session's
// original user request signals an intent to open a pull request: a
// case-insensitive substring match on "pull request" or the standalone
// token "pr".
func hasPRIntent(t *task.Task, userRequest string) bool {
	for _, text := range []string{t.Title, t.Description, userRequest} {
		low := strings.ToLower(text)
		if strings.Contains(low, "pull request") {
			return true
		}
		for _, word := range strings.Fields(low) {
			if strings.Trim(word, ".,:;!?") == "pr" {
				return true
			}
		}
	}
	return false
}

func shortID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}
