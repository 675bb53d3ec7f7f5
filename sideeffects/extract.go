package sideeffects

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// fencedBlock is one extracted ```lang:path\nbody``` block from generator
// output. Path is empty when the block carried no `:<path>` header, which
// the extraction rule treats as "not meant to be written".
type fencedBlock struct {
	Path string
	Body string
}

// fencePattern matches a fenced code block whose opening fence may carry
// a language tag and a `:<path>` header.
var fencePattern = regexp.MustCompile("(?s)```[a-zA-Z0-9_+-]*(?::([^\n]+))?\n(.*?)```")

// extractFencedBlocks scans output for fenced code blocks and returns every
// one found, whether or not it carries a path header -- callers filter for
// path-bearing blocks themselves (extractWritable) since one caller (the
// fix_code repair step) wants the first block regardless of header).
func extractFencedBlocks(output string) []fencedBlock {
	matches := fencePattern.FindAllStringSubmatch(output, -1)
	blocks := make([]fencedBlock, 0, len(matches))
	for _, m := range matches {
		blocks = append(blocks, fencedBlock{Path: strings.TrimSpace(m[1]), Body: m[2]})
	}
	return blocks
}

// extractWritable returns only blocks carrying a path header that passes
// the safety rules: no whitespace/"("/"=" in the path, not one of
// {".", "./", ""}, not ending in "/", and not an existing directory once
// joined with repoPath.
func extractWritable(output, repoPath string) []fencedBlock {
	var out []fencedBlock
	for _, blk := range extractFencedBlocks(output) {
		if blk.Path == "" {
			continue
		}
		if !validWritePath(blk.Path, repoPath) {
			continue
		}
		out = append(out, blk)
	}
	return out
}

func validWritePath(path, repoPath string) bool {
	if strings.ContainsAny(path, " \t(=") {
		return false
	}
	if path == "." || path == "./" || path == "" {
		return false
	}
	if strings.HasSuffix(path, "/") {
		return false
	}
	full := filepath.Join(repoPath, path)
	if info, err := os.Stat(full); err == nil && info.IsDir() {
		return false
	}
	return true
}

// firstFencedBody returns the body of the first fenced block in output,
// regardless of whether it carries a path header -- used by the fix_code
// repair step, whose response is the corrected file contents in one
// fenced block with no other commentary.
func firstFencedBody(output string) (string, bool) {
	blocks := extractFencedBlocks(output)
	if len(blocks) == 0 {
		return "", false
	}
	return blocks[0].Body, true
}
