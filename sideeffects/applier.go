// Package sideeffects applies generator output to the working tree: it
// parses fenced code blocks, writes them out, runs the one-shot
// syntax-repair loop, manages feature branches, and stages written paths
// for the session's bundled commit.
package sideeffects

import (
	"context"
	"os"
	"path/filepath"
	"time"

	yaverrors "github.com/yaverhq/yaver/errors"
	"github.com/yaverhq/yaver/generator"
	"github.com/yaverhq/yaver/logging"
	"github.com/yaverhq/yaver/metrics"
	"github.com/yaverhq/yaver/scanner"
	"github.com/yaverhq/yaver/task"
	"github.com/yaverhq/yaver/vcs"
)

// ExecutionResult is the subset of executor.Result the applier needs: it
// only ever inspects successful output. Kept as its own tiny type so
// sideeffects does not import executor (the driver wires the two
// together).
type ExecutionResult struct {
	Success bool
	Output  string
}

// ApplyResult reports what Apply actually did, for the driver to fold into
// EngineState.
type ApplyResult struct {
	WrittenPaths []string
}

// Applier mutates the working tree and a task's Comments slice; folding
// written paths into the session state is the caller's responsibility
// (the driver owns session state).
type Applier struct {
	vcs        vcs.VersionControl
	scan       scanner.CodeScanner
	gen        generator.Generator
	repoPath   string
	baseBranch string
}

// New creates an Applier rooted at repoPath. baseBranch is the branch fed
// to the non-interactive merge step of the branch policy; empty defaults
// to DefaultBaseBranch.
func New(v vcs.VersionControl, s scanner.CodeScanner, gen generator.Generator, repoPath, baseBranch string) *Applier {
	return &Applier{vcs: v, scan: s, gen: gen, repoPath: repoPath, baseBranch: baseBranch}
}

// Apply runs the pre-write branch policy, fenced-block extraction and
// write, per-file syntax repair, then staging. userRequest is the
// session's original request, consulted by the PR-intent heuristic.
func (a *Applier) Apply(ctx context.Context, t *task.Task, result ExecutionResult, userRequest string) ApplyResult {
	log := logging.GetLogger().WithName("sideeffects")

	if !result.Success {
		return ApplyResult{}
	}

	applyBranchPolicy(ctx, a.vcs, t, userRequest, a.baseBranch)

	blocks := extractWritable(result.Output, a.repoPath)
	var written []string

	for _, blk := range blocks {
		full := filepath.Join(a.repoPath, blk.Path)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			a.recordFailure(t, blk.Path, err)
			continue
		}
		if err := os.WriteFile(full, []byte(blk.Body), 0o644); err != nil {
			a.recordFailure(t, blk.Path, err)
			continue
		}

		a.repairIfInvalid(ctx, t, full, blk.Path)

		log.Info(ctx, "applied changes", logging.F("task_id", t.ID), logging.F("path", blk.Path))
		written = append(written, blk.Path)
	}

	if len(written) > 0 {
		if err := a.vcs.Add(ctx, written); err != nil {
			log.Warn(ctx, "staging failed", logging.F("error", err.Error()))
		}
	}

	return ApplyResult{WrittenPaths: written}
}

// repairIfInvalid runs the scanner on full (the just-written file). If it
// fails, it asks the generator for a correction exactly once, overwrites
// the file, and re-checks -- logging success or leaving the defective
// file with a recorded comment either way. The repair budget is one
// attempt per file.
func (a *Applier) repairIfInvalid(ctx context.Context, t *task.Task, fullPath, relPath string) {
	log := logging.GetLogger().WithName("sideeffects.syntax")

	res, err := a.scan.Syntax(ctx, fullPath)
	if err != nil {
		log.Warn(ctx, "syntax check itself failed, leaving file as written", logging.F("path", relPath), logging.F("error", err.Error()))
		return
	}
	if res.Valid {
		return
	}

	log.Warn(ctx, "syntax error detected, attempting one auto-fix", logging.F("path", relPath), logging.F("tool", res.Tool), logging.F("syntax_error", res.Error))
	metrics.GetMetrics().Counter(metrics.MetricSyntaxRepairs, nil).Inc()
	addComment(t, "SyntaxGuard", "Syntax error detected ("+res.Tool+"). Attempting auto-fix. Error: "+res.Error)

	current, readErr := os.ReadFile(fullPath)
	if readErr != nil {
		log.Warn(ctx, "could not re-read file for repair", logging.F("path", relPath), logging.F("error", readErr.Error()))
		return
	}

	fixed, genErr := a.gen.Generate(ctx, generator.FixCodePrompt, map[string]any{
		"path":  relPath,
		"error": res.Error,
		"code":  string(current),
	})
	if genErr != nil {
		log.Warn(ctx, "fix_code generation failed, leaving defective file", logging.F("path", relPath), logging.F("error", genErr.Error()))
		addComment(t, "SyntaxGuard", "Auto-fix failed: generator error: "+genErr.Error())
		return
	}

	body, ok := firstFencedBody(fixed)
	if !ok {
		log.Warn(ctx, "could not extract fixed code from generator response", logging.F("path", relPath))
		addComment(t, "SyntaxGuard", "Auto-fix failed: no fenced block in generator response")
		return
	}

	if err := os.WriteFile(fullPath, []byte(body), 0o644); err != nil {
		log.Warn(ctx, "failed to write repaired file", logging.F("path", relPath), logging.F("error", err.Error()))
		return
	}

	recheck, err := a.scan.Syntax(ctx, fullPath)
	if err != nil || !recheck.Valid {
		msg := "remaining error unknown"
		if err == nil {
			msg = recheck.Error
		}
		log.Warn(ctx, "auto-fix failed", logging.F("path", relPath))
		addComment(t, "SyntaxGuard", "Auto-fix failed. Remaining error: "+msg)
		return
	}

	log.Info(ctx, "auto-fix successful", logging.F("path", relPath))
	addComment(t, "SyntaxGuard", "Auto-fix successful for "+relPath+".")
}

func (a *Applier) recordFailure(t *task.Task, path string, err error) {
	applyErr := yaverrors.NewApplyError(t.ID, path, err)
	logging.GetLogger().WithName("sideeffects").Error(context.Background(), "failed to write file",
		logging.F("path", path), logging.F("error", applyErr.Error()))
	addComment(t, "yaver", "Failed to write file "+path+": "+err.Error())
}

func addComment(t *task.Task, author, content string) {
	t.Comments = append(t.Comments, task.Comment{Author: author, Content: content, Timestamp: time.Now()})
}
