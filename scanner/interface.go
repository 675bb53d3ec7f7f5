// Package scanner defines the static-analysis boundary: syntax checking
// (used by the side-effect applier's one-shot repair loop), plus the
// complexity/security/lint checks the engine's Non-goals keep opaque.
package scanner

import "context"

// SyntaxResult reports whether a file parses, and which tool decided that.
type SyntaxResult struct {
	Valid bool
	Error string
	Tool  string
}

// Finding is one complexity/security/lint result. Severity is tool-defined
// (e.g. "low", "medium", "high", "critical").
type Finding struct {
	Severity string
	Message  string
}

// CodeScanner is the opaque static-analysis boundary. Only Syntax is
// called by the core engine today (the side-effect applier's repair
// loop); Complexity/Security/Lint are part of the external contract for
// callers that run deeper scans.
type CodeScanner interface {
	Syntax(ctx context.Context, path string) (SyntaxResult, error)
	Complexity(ctx context.Context, path, body string) ([]Finding, error)
	Security(ctx context.Context, path string) ([]Finding, error)
	Lint(ctx context.Context, path string) ([]Finding, error)
}
