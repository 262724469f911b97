package activity

import (
	"regexp"
	"strings"
)

// Commit is a git commit detected in shell tool output.
type Commit struct {
	Hash    string
	Message string
}

// commitOutputPattern matches git's confirmation line, e.g.
// "[main 4f2a91c] fix decoder fragment handling" or
// "[main (root-commit) 4f2a91c] initial".
var commitOutputPattern = regexp.MustCompile(`\[[^\]\s]+(?:\s+\([^)]+\))?\s+([0-9a-f]{7,40})\]\s*(.*)`)

// detectCommit inspects a completed shell tool invocation for a git commit.
// Both conditions must hold: the invocation command is a git-commit, and the
// output contains the bracketed short hash followed by the subject line.
func detectCommit(command, output string) (Commit, bool) {
	if !strings.Contains(command, "git commit") {
		return Commit{}, false
	}
	m := commitOutputPattern.FindStringSubmatch(output)
	if m == nil {
		return Commit{}, false
	}
	return Commit{Hash: m[1], Message: strings.TrimSpace(m[2])}, true
}
