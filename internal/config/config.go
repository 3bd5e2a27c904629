// Package config assembles the immutable run configuration consumed by every
// component: destination path, architecture, enabled repositories, mirror
// templates and signature policy.
package config

import (
	"fmt"
	"strings"
)

// DefaultRepositories is the fallback enablement map when neither flags nor
// a config file say otherwise.
func DefaultRepositories() map[string]bool {
	return map[string]bool{
		"core":      true,
		"extra":     true,
		"community": true,
		"testing":   false,
	}
}

// Config is built once at startup and read-only during a sync run.
type Config struct {
	// Path is the repository tree root (artifacts land under
	// Path/<repo>/os/<arch>/).
	Path string
	// Architecture substitutes $arch in mirror templates and names the
	// on-disk artifact directory.
	Architecture string
	// Repositories maps repository name to whether it may receive
	// artifacts and participate in fallback resolution.
	Repositories map[string]bool
	// Mirrors are templated base URLs, tried in order, first success wins.
	Mirrors []string
	// Packages are the raw specification tokens to synchronize.
	Packages []string
	// SkipSignatures disables fetching detached .sig companions.
	SkipSignatures bool
	// SignKey, when set, is passed to the database builder for signing.
	SignKey string
}

// Validate rejects configurations no sync run could act on. Repository
// names are checked here so a typo fails at load time instead of silently
// disabling a fallback path.
func (c *Config) Validate() error {
	if c.Path == "" {
		return fmt.Errorf("destination path must not be empty")
	}
	if c.Architecture == "" {
		return fmt.Errorf("architecture must not be empty")
	}
	if len(c.Repositories) == 0 {
		return fmt.Errorf("no repositories configured")
	}
	for name := range c.Repositories {
		if name == "" || strings.ContainsAny(name, "/ \t") {
			return fmt.Errorf("invalid repository name %q", name)
		}
	}
	for _, mirror := range c.Mirrors {
		if strings.TrimSpace(mirror) == "" {
			return fmt.Errorf("empty mirror template in mirror list")
		}
	}
	return nil
}

// RepoEnabled reports whether a repository may receive artifacts. Unknown
// names are disabled.
func (c *Config) RepoEnabled(name string) bool {
	return c.Repositories[name]
}

// EnabledRepositories returns the names of all enabled repositories.
func (c *Config) EnabledRepositories() []string {
	var names []string
	for name, enabled := range c.Repositories {
		if enabled {
			names = append(names, name)
		}
	}
	return names
}
