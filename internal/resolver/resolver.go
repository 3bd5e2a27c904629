// Package resolver turns package specifications into verified artifacts: it
// drives the remote search, the fallback lookups, version-constraint
// checks, mirror downloads and the final database rebuilds.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/openforge/reposync/internal/config"
	"github.com/openforge/reposync/internal/pacman"
	"github.com/openforge/reposync/internal/pkginfo"
	"github.com/openforge/reposync/internal/search"
	"github.com/openforge/reposync/internal/shell"
	"github.com/openforge/reposync/internal/utils/logger"
	"github.com/openforge/reposync/internal/version"
)

// PackageError reports a resolution, constraint or download failure for one
// specific package. The top-level sync treats it as fatal (fail-fast).
type PackageError struct {
	Package string
	Reason  string
}

func (e *PackageError) Error() string {
	return fmt.Sprintf("package %s: %s", e.Package, e.Reason)
}

// SearchClient is the remote primary-lookup surface.
type SearchClient interface {
	Find(ctx context.Context, name string) (*search.Result, error)
}

// FallbackTool is the layered local lookup surface: the structured
// package-file index first, the free-text search second.
type FallbackTool interface {
	FileIndex(name string) ([]pacman.Candidate, error)
	Search(name string) ([]pacman.Candidate, error)
}

// ArtifactFetcher attempts a single mirror.
type ArtifactFetcher interface {
	Fetch(ctx context.Context, template, repo, filename, root string) error
}

// DatabaseManager rebuilds repository databases after a run.
type DatabaseManager interface {
	Rebuild(repo, root string) error
}

// Resolver maps package specifications to downloaded artifacts and the set
// of repositories needing a rebuild. All collaborators are injected; the
// configuration is immutable for the resolver's lifetime.
type Resolver struct {
	cfg       *config.Config
	search    SearchClient
	fallback  FallbackTool
	fetcher   ArtifactFetcher
	databases DatabaseManager
}

// New wires a Resolver from its collaborators.
func New(cfg *config.Config, searchClient SearchClient, fallback FallbackTool, fetcher ArtifactFetcher, databases DatabaseManager) *Resolver {
	return &Resolver{
		cfg:       cfg,
		search:    searchClient,
		fallback:  fallback,
		fetcher:   fetcher,
		databases: databases,
	}
}

// Sync resolves and downloads every specification, then rebuilds the
// database of each repository that received artifacts. The first package
// failure aborts the whole run; artifacts already on disk stay in place.
func (r *Resolver) Sync(ctx context.Context, tokens []string) error {
	log := logger.Logger()

	rc := NewContext()
	for _, token := range tokens {
		if err := r.resolve(ctx, token, rc); err != nil {
			return err
		}
	}

	for _, repo := range rc.TouchedRepos() {
		log.Infof("updating repository %s with any new packages", repo)
		if err := r.databases.Rebuild(repo, r.cfg.Path); err != nil {
			return err
		}
	}
	return nil
}

// resolve handles one specification token and recurses into its declared
// dependencies, sharing the same Context so duplicates and cycles are
// processed at most once.
func (r *Resolver) resolve(ctx context.Context, token string, rc *Context) error {
	log := logger.Logger()

	spec, err := version.ParseSpec(token)
	if err != nil {
		return &PackageError{Package: token, Reason: err.Error()}
	}
	if rc.Visited(spec.Name) {
		log.Debugf("skipping %s, already processed", spec.Name)
		return nil
	}

	log.Infof("synchronizing package: %s", token)

	result, err := r.search.Find(ctx, spec.Name)
	switch {
	case err == nil:
	case isGroup(err):
		log.Warnf("%s is a group, not supported yet", spec.Name)
		rc.MarkVisited(spec.Name)
		return nil
	case errors.Is(err, search.ErrNotFound):
		return r.resolveFallback(ctx, spec, rc)
	default:
		return err
	}

	log.Debugf("found package %s, version %s in repo %s", spec.Name, result.Version, result.Repo)
	return r.resolveResult(ctx, spec, result, rc)
}

// resolveResult runs the post-lookup steps for a located package: the
// constraint check, the repository-enablement check, the mirror loop and
// recursion into declared dependencies.
func (r *Resolver) resolveResult(ctx context.Context, spec version.Spec, result *search.Result, rc *Context) error {
	if spec.Constraint != nil {
		resolved, err := version.Parse(result.Version)
		if err != nil {
			return &PackageError{
				Package: spec.Name,
				Reason:  fmt.Sprintf("cannot check constraint %s against unparseable version %q", spec.Constraint, result.Version),
			}
		}
		if !spec.Constraint.Admits(resolved) {
			return &PackageError{
				Package: spec.Name,
				Reason:  fmt.Sprintf("resolved version %s violates constraint %s", result.Version, spec.Constraint),
			}
		}
	}

	if !r.cfg.RepoEnabled(result.Repo) {
		return &PackageError{
			Package: spec.Name,
			Reason:  fmt.Sprintf("repository %s is not enabled", result.Repo),
		}
	}

	if err := r.fetchFromMirrors(ctx, result); err != nil {
		return err
	}
	r.verifyArtifact(result)

	rc.MarkVisited(spec.Name)
	rc.Touch(result.Repo)

	for _, dep := range result.Depends {
		if err := r.resolve(ctx, dep, rc); err != nil {
			return err
		}
	}
	return nil
}

// resolveFallback works through the fallback chain: the package-file index
// first because its output is structured and unambiguous, the free-text
// search second. The first candidate from an enabled repository re-enters
// resolution under the original constraint.
func (r *Resolver) resolveFallback(ctx context.Context, spec version.Spec, rc *Context) error {
	log := logger.Logger()

	sources := []struct {
		name   string
		lookup func(string) ([]pacman.Candidate, error)
	}{
		{"file index", r.fallback.FileIndex},
		{"package-manager search", r.fallback.Search},
	}

	for _, source := range sources {
		candidates, err := source.lookup(spec.Name)
		if err != nil {
			var reqErr *shell.RequirementError
			if errors.As(err, &reqErr) {
				return err
			}
			log.Warnf("%s lookup for %s failed: %v", source.name, spec.Name, err)
			continue
		}
		for _, candidate := range candidates {
			if !r.cfg.RepoEnabled(candidate.Repo) {
				log.Debugf("%s candidate %s/%s skipped, repository disabled",
					source.name, candidate.Repo, candidate.Name)
				continue
			}
			log.Infof("resolved %s to %s/%s via %s", spec.Name, candidate.Repo, candidate.Name, source.name)
			if candidate.Name != spec.Name {
				rc.MarkVisited(spec.Name)
				return r.resolve(ctx, candidate.Name+constraintSuffix(spec), rc)
			}
			// The primary lookup already failed for this exact name, so
			// re-entering it would loop. The fallback output carries
			// everything needed to proceed directly.
			if candidate.Version == "" {
				log.Debugf("%s candidate %s/%s has no version, skipping",
					source.name, candidate.Repo, candidate.Name)
				continue
			}
			return r.resolveResult(ctx, spec, &search.Result{
				Name:     candidate.Name,
				Version:  candidate.Version,
				Repo:     candidate.Repo,
				Arch:     r.cfg.Architecture,
				Filename: fmt.Sprintf("%s-%s-%s.pkg.tar.zst", candidate.Name, candidate.Version, r.cfg.Architecture),
			}, rc)
		}
	}

	return &PackageError{
		Package: spec.Name,
		Reason:  "could not locate package while looking for repository category",
	}
}

// constraintSuffix re-attaches the original constraint text to a substitute
// package name.
func constraintSuffix(spec version.Spec) string {
	return strings.TrimPrefix(spec.Raw, spec.Name)
}

// fetchFromMirrors walks the configured mirror list in order; the first
// mirror that completes wins and later ones are never attempted.
func (r *Resolver) fetchFromMirrors(ctx context.Context, result *search.Result) error {
	log := logger.Logger()

	for _, template := range r.cfg.Mirrors {
		log.Debugf("attempting download of %s from mirror %s", result.Filename, template)
		err := r.fetcher.Fetch(ctx, template, result.Repo, result.Filename, r.cfg.Path)
		if err == nil {
			return nil
		}
		log.Warnf("mirror %s failed for %s: %v", template, result.Name, err)
	}

	return &PackageError{
		Package: result.Name,
		Reason:  fmt.Sprintf("all %d mirrors exhausted", len(r.cfg.Mirrors)),
	}
}

// verifyArtifact cross-checks the downloaded archive's embedded metadata
// against the search result. Mismatches are surfaced in the log; an
// unreadable archive is left to repo-add to reject.
func (r *Resolver) verifyArtifact(result *search.Result) {
	log := logger.Logger()

	path := filepath.Join(r.cfg.Path, result.Repo, "os", r.cfg.Architecture, result.Filename)
	info, err := pkginfo.Read(path)
	if err != nil {
		log.Debugf("could not inspect %s: %v", result.Filename, err)
		return
	}
	if info.Name != result.Name {
		log.Warnf("artifact %s declares pkgname %s, expected %s", result.Filename, info.Name, result.Name)
	}
	if info.Version != result.Version {
		log.Warnf("artifact %s declares pkgver %s, expected %s", result.Filename, info.Version, result.Version)
	}
}

func isGroup(err error) bool {
	var groupErr *search.GroupError
	return errors.As(err, &groupErr)
}
