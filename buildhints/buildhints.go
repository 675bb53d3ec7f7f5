// Package buildhints resolves per-file build/test commands from common
// project markers (go.mod, package.json, Cargo.toml, pyproject.toml) so
// the executor can tell the generator how a mentioned file is compiled
// and tested.
package buildhints

import (
	"os"
	"path/filepath"
)

// System identifies the build tooling detected for a repository.
type System string

const (
	SystemGo      System = "go"
	SystemNode    System = "node"
	SystemRust    System = "rust"
	SystemPython  System = "python"
	SystemUnknown System = "unknown"
)

// marker associates a root-relative file with the build system it implies
// and the commands that system uses to build and test.
type marker struct {
	file     string
	system   System
	commands []string
}

var markers = []marker{
	{file: "go.mod", system: SystemGo, commands: []string{"go build ./...", "go test ./..."}},
	{file: "package.json", system: SystemNode, commands: []string{"npm install", "npm test"}},
	{file: "Cargo.toml", system: SystemRust, commands: []string{"cargo build", "cargo test"}},
	{file: "pyproject.toml", system: SystemPython, commands: []string{"pip install -e .", "pytest"}},
	{file: "requirements.txt", system: SystemPython, commands: []string{"pip install -r requirements.txt", "pytest"}},
}

// Analyzer resolves build-system hints for a repository rooted at RepoPath.
type Analyzer struct {
	RepoPath string
}

// New creates an Analyzer rooted at repoPath.
func New(repoPath string) *Analyzer {
	return &Analyzer{RepoPath: repoPath}
}

// Detect reports the first build system whose marker file exists at the
// repository root, or SystemUnknown if none do.
func (a *Analyzer) Detect() System {
	for _, m := range markers {
		if _, err := os.Stat(filepath.Join(a.RepoPath, m.file)); err == nil {
			return m.system
		}
	}
	return SystemUnknown
}

// FileContext is the per-file build information the executor folds into
// its prompt: which build system governs the file and the commands that
// exercise it.
type FileContext struct {
	System   System
	Commands []string
}

// ForFile returns build hints for path (relative to the repository root),
// based on the repository's detected build system. relPath need not exist
// for detection purposes; the caller (executor) is responsible for only
// calling this when the file is actually mentioned in the task.
func (a *Analyzer) ForFile(relPath string) FileContext {
	system := a.Detect()
	for _, m := range markers {
		if m.system == system {
			return FileContext{System: system, Commands: m.commands}
		}
	}
	return FileContext{System: SystemUnknown}
}
