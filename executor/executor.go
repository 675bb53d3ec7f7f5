// Package executor builds prompt context for a task and invokes the
// Generator to produce its raw output. It never writes files; that is
// sideeffects' job.
package executor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/yaverhq/yaver/buildhints"
	yaverrors "github.com/yaverhq/yaver/errors"
	"github.com/yaverhq/yaver/generator"
	"github.com/yaverhq/yaver/logging"
	"github.com/yaverhq/yaver/retriever"
	"github.com/yaverhq/yaver/task"
)

// ProjectInfo carries the repository statistics the executor folds into
// every task's prompt context.
type ProjectInfo struct {
	RepoPath         string
	TotalFiles       int
	TotalLines       int
	Languages        []string
	ArchitectureType string
}

// Result is what Execute returns: either successful generator output, or a
// captured error. The executor does not retry; a failure here becomes a
// FAILED task.
type Result struct {
	Success bool
	Output  string
	Error   string
}

// Executor builds deterministic prompt context and invokes the Generator.
type Executor struct {
	gen       generator.Generator
	retriever retriever.ContextRetriever
	build     *buildhints.Analyzer
}

// New creates an Executor. build may be nil if build-hint lookup is not
// desired for this session.
func New(gen generator.Generator, ret retriever.ContextRetriever, build *buildhints.Analyzer) *Executor {
	if ret == nil {
		ret = retriever.NullRetriever{}
	}
	return &Executor{gen: gen, retriever: ret, build: build}
}

// resolvedDep is the truncated result of one COMPLETED dependency, folded
// into the prompt context.
type resolvedDep struct {
	id     string
	result string
}

// Execute assembles the deterministic context for task t and invokes the
// Generator, returning its raw output. depResults supplies the first 200
// characters of each COMPLETED dependency's result, keyed by task id.
func (e *Executor) Execute(ctx context.Context, t *task.Task, info ProjectInfo, depResults map[string]string) Result {
	log := logging.GetLogger().WithName("executor")

	var b strings.Builder

	// 1. Project info.
	if info.TotalFiles > 0 {
		fmt.Fprintf(&b, "Project Info:\n- File count: %d\n- Total lines: %d\n- Languages: %v\n- Repo path: %s\n",
			info.TotalFiles, info.TotalLines, info.Languages, info.RepoPath)
	}

	// 2. Architecture tag.
	if info.ArchitectureType != "" {
		fmt.Fprintf(&b, "- Architecture: %s\n", info.ArchitectureType)
	}

	// 3. Completed-dependency results, truncated to 200 chars, in
	// dependency-declaration order.
	if len(t.Dependencies) > 0 {
		var deps []resolvedDep
		for _, depID := range t.Dependencies {
			if result, ok := depResults[depID]; ok {
				deps = append(deps, resolvedDep{id: depID, result: truncate(result, 200)})
			}
		}
		if len(deps) > 0 {
			b.WriteString("\nDependency Results:\n")
			for _, d := range deps {
				fmt.Fprintf(&b, "- %s: %s\n", d.id, d.result)
			}
		}
	}

	// 4. Retrieved memory blob, top-k = 3, for "{title}\n{description}".
	memory, err := e.retriever.Retrieve(ctx, t.Title+"\n"+t.Description, 3)
	if err != nil {
		log.Warn(ctx, "context retrieval failed, continuing without memory", logging.F("error", err.Error()))
	} else if memory != "" {
		b.WriteString("\nRelevant memory/code:\n" + memory + "\n")
	}

	// 5. Build-system hints for any mentioned files that exist.
	if e.build != nil {
		if hints := e.buildContext(t); hints != "" {
			b.WriteString("\nBuild context (how to compile/test):\n" + hints + "\n")
		}
	}

	// 6. Accumulated user-visible comments (not authored by the agent;
	// filtering that out is the caller's responsibility when populating
	// t.Comments, since Executor has no notion of the agent's username).
	if len(t.Comments) > 0 {
		b.WriteString("\nReviewer comments:\n")
		for _, c := range t.Comments {
			fmt.Fprintf(&b, "- %s: %s\n", c.Author, c.Content)
		}
	}

	raw, err := e.gen.Generate(ctx, generator.TaskSolverPrompt, map[string]any{
		"task_title":       t.Title,
		"task_description": t.Description,
		"repo_context":     b.String(),
		"instructions":     "Follow the plan and implement changes.",
	})
	if err != nil {
		return Result{Success: false, Error: yaverrors.NewExecutionError(t.ID, "generate", err).Error()}
	}
	return Result{Success: true, Output: raw}
}

var filenamePattern = regexp.MustCompile(`\b[\w-]+\.\w+\b`)

// buildContext resolves per-file build hints for any filenames mentioned in
// the task's title/description that exist under the repo root.
func (e *Executor) buildContext(t *task.Task) string {
	candidates := filenamePattern.FindAllString(t.Title+" "+t.Description, -1)
	var lines []string
	for _, name := range candidates {
		full := filepath.Join(e.build.RepoPath, name)
		if _, err := os.Stat(full); err != nil {
			continue
		}
		hint := e.build.ForFile(name)
		if hint.System == buildhints.SystemUnknown {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s -> %v", name, hint.Commands))
	}
	return strings.Join(lines, "\n")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
