package resolver

import (
	"sort"
	"sync"
)

// Context is the mutable state threaded through one recursive resolution
// run: the names already processed and the repositories that received new
// artifacts. It is owned by the top-level sync call, passed into every
// recursive step and never persisted. The mutex keeps it safe should
// independent branches ever be resolved concurrently.
type Context struct {
	mu      sync.Mutex
	visited map[string]struct{}
	touched map[string]struct{}
}

// NewContext returns an empty resolution context.
func NewContext() *Context {
	return &Context{
		visited: make(map[string]struct{}),
		touched: make(map[string]struct{}),
	}
}

// Visited reports whether a package name has already been processed.
func (c *Context) Visited(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.visited[name]
	return ok
}

// MarkVisited records a package name as processed.
func (c *Context) MarkVisited(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.visited[name] = struct{}{}
}

// Touch records that a repository received a new artifact this run.
func (c *Context) Touch(repo string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touched[repo] = struct{}{}
}

// TouchedRepos returns the repositories needing a database rebuild, sorted
// for deterministic processing.
func (c *Context) TouchedRepos() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	repos := make([]string, 0, len(c.touched))
	for repo := range c.touched {
		repos = append(repos, repo)
	}
	sort.Strings(repos)
	return repos
}
