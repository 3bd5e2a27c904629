// Package pacman shells out to the system package manager for the fallback
// lookups the remote search API cannot answer.
package pacman

import (
	"strings"

	"github.com/openforge/reposync/internal/shell"
	"github.com/openforge/reposync/internal/utils/logger"
)

// Candidate is one "repo/name [version]" entry parsed from tool output.
type Candidate struct {
	Repo    string
	Name    string
	Version string
}

// Tool wraps the pacman invocations. The runner indirection exists so tests
// can substitute canned output without a pacman binary.
type Tool struct {
	run func(argv []string, opts shell.Options) (*shell.Result, error)
}

// New returns a Tool backed by the real process engine.
func New() *Tool {
	return &Tool{run: shell.Run}
}

// NewWithRunner returns a Tool with a custom process runner.
func NewWithRunner(run func(argv []string, opts shell.Options) (*shell.Result, error)) *Tool {
	return &Tool{run: run}
}

// FileIndex queries the package-file index (pacman -F) for the package
// owning the given name and parses the repo/name header lines. An empty
// result is not an error; a missing pacman binary is.
func (t *Tool) FileIndex(name string) ([]Candidate, error) {
	log := logger.Logger()
	log.Debugf("file-index lookup for %s", name)

	// pacman exits non-zero when the index has no match; only a missing
	// binary is fatal here.
	result, err := t.run([]string{"pacman", "-F", name}, shell.Options{IgnoreExitCode: true})
	if err != nil {
		return nil, err
	}
	return parseCandidates(result.Lines()), nil
}

// Search runs the package manager's free-text search (pacman -Ss) and parses
// the repo/name version header lines.
func (t *Tool) Search(name string) ([]Candidate, error) {
	log := logger.Logger()
	log.Debugf("free-text search for %s", name)

	result, err := t.run([]string{"pacman", "-Ss", name}, shell.Options{IgnoreExitCode: true})
	if err != nil {
		return nil, err
	}
	return parseCandidates(result.Lines()), nil
}

// parseCandidates keeps the header lines of pacman's line-oriented output:
// unindented "repo/name" optionally followed by a version field. Indented
// lines (file paths, descriptions) are skipped.
func parseCandidates(lines []string) []Candidate {
	var candidates []Candidate
	for _, line := range lines {
		if strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		repo, name, ok := strings.Cut(fields[0], "/")
		if !ok || repo == "" || name == "" {
			continue
		}
		candidate := Candidate{Repo: repo, Name: name}
		if len(fields) > 1 {
			candidate.Version = fields[1]
		}
		candidates = append(candidates, candidate)
	}
	return candidates
}
