// Package repodb keeps each repository's database index consistent with the
// artifact files on disk by driving the external repo-add tool.
package repodb

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/openforge/reposync/internal/shell"
	"github.com/openforge/reposync/internal/utils/logger"
)

// ArtifactExtensions are the archive suffixes repo-add is fed.
var ArtifactExtensions = []string{".pkg.tar.xz", ".pkg.tar.zst"}

// acceptedCodes for repo-add: the tool historically signals ignorable
// conditions (already-present or absent packages) with exit 1 alongside the
// regular 0.
var acceptedCodes = []int{0, 1}

// RepositoryError reports a failed database rebuild. Fatal to the run.
type RepositoryError struct {
	Repo     string
	ExitCode int
	Output   string
}

func (e *RepositoryError) Error() string {
	return fmt.Sprintf("could not update repository %s: [%d] %s", e.Repo, e.ExitCode, e.Output)
}

// Manager rebuilds and initializes repository databases under a fixed
// architecture and signing policy.
type Manager struct {
	arch    string
	signKey string
	run     func(argv []string, opts shell.Options) (*shell.Result, error)
}

// NewManager returns a Manager. An empty signKey disables database signing.
func NewManager(arch, signKey string) *Manager {
	return &Manager{arch: arch, signKey: signKey, run: shell.Run}
}

// NewManagerWithRunner returns a Manager with a custom process runner.
func NewManagerWithRunner(arch, signKey string, run func(argv []string, opts shell.Options) (*shell.Result, error)) *Manager {
	return &Manager{arch: arch, signKey: signKey, run: run}
}

// Dir returns the artifact directory for a repository under the tree root.
func (m *Manager) Dir(root, repo string) string {
	return filepath.Join(root, repo, "os", m.arch)
}

// DatabasePath returns the repository's database file path.
func (m *Manager) DatabasePath(root, repo string) string {
	return filepath.Join(m.Dir(root, repo), repo+".db.tar.gz")
}

// Rebuild folds every artifact under root/<repo>/os/<arch>/ into the
// repository database. Unaccepted exit codes from the builder escalate to a
// RepositoryError; a missing repo-add binary propagates as-is.
func (m *Manager) Rebuild(repo, root string) error {
	log := logger.Logger()

	dir := m.Dir(root, repo)
	database := m.DatabasePath(root, repo)

	var artifacts []string
	for _, ext := range ArtifactExtensions {
		matches, err := filepath.Glob(filepath.Join(dir, "*"+ext))
		if err != nil {
			return fmt.Errorf("enumerating artifacts in %s: %w", dir, err)
		}
		artifacts = append(artifacts, matches...)
	}

	log.Infof("updating repository %s with %d artifacts", repo, len(artifacts))

	for _, artifact := range artifacts {
		argv := []string{"repo-add", "--new", "--remove", "--prevent-downgrade"}
		if m.signKey != "" {
			argv = append(argv, "--sign", "--key", m.signKey)
		}
		argv = append(argv, database, artifact)

		result, err := m.run(argv, shell.Options{AcceptedCodes: acceptedCodes})
		if err != nil {
			var sysErr *shell.SysCallError
			if errors.As(err, &sysErr) {
				return &RepositoryError{Repo: repo, ExitCode: sysErr.ExitCode, Output: sysErr.Output}
			}
			return err
		}
		log.Debugf("repo-add %s took %s", filepath.Base(artifact), result.Duration)
	}
	return nil
}

// Initialize creates the repository's directory chain and an empty database
// stub so mirrors have a consistent tree to serve before the first artifact
// arrives. Invoking the builder with a placeholder entry is how an empty
// database comes into existence.
func (m *Manager) Initialize(repo, root string) error {
	log := logger.Logger()

	dir := m.Dir(root, repo)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating repository directory %s: %w", dir, err)
	}

	database := m.DatabasePath(root, repo)
	if _, err := os.Stat(database); err == nil {
		return nil
	}

	log.Infof("initializing empty database for repository %s", repo)

	argv := []string{"repo-add", database, filepath.Join(dir, "__init__")}
	if _, err := m.run(argv, shell.Options{AcceptedCodes: acceptedCodes}); err != nil {
		var sysErr *shell.SysCallError
		if errors.As(err, &sysErr) {
			return &RepositoryError{Repo: repo, ExitCode: sysErr.ExitCode, Output: sysErr.Output}
		}
		return err
	}
	return nil
}
