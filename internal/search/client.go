// Package search talks to the remote package-search API and the
// per-architecture group pages.
package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/openforge/reposync/internal/utils/logger"
)

const (
	defaultSearchURL = "https://archlinux.org/packages/search/json/?name=%s"
	// The groups endpoint has no JSON variant; only the status code is
	// usable until upstream grows one.
	defaultGroupURL = "https://archlinux.org/groups/%s/%s/"
)

// ErrNotFound means the search endpoint had no entry for the name and the
// name is not a group either. Callers proceed to their fallback sources.
var ErrNotFound = errors.New("package not found")

// GroupError signals that a name refers to a package group rather than a
// single package. Group expansion is unsupported; this is a control signal,
// not a failure.
type GroupError struct {
	Name string
}

func (e *GroupError) Error() string {
	return fmt.Sprintf("%s is a package group, not a single package", e.Name)
}

// Result is one entry from the search endpoint's results array.
type Result struct {
	Name     string   `json:"pkgname"`
	Version  string   `json:"pkgver"`
	Repo     string   `json:"repo"`
	Arch     string   `json:"arch"`
	Filename string   `json:"filename"`
	Depends  []string `json:"depends"`
}

type searchResponse struct {
	Results []Result `json:"results"`
}

// Client queries the remote search API. The URL templates are printf-style
// and overridable so tests can point at a local server.
type Client struct {
	HTTP      *http.Client
	SearchURL string
	GroupURL  string
	Arch      string
}

// NewClient returns a search client for the given architecture.
func NewClient(httpClient *http.Client, arch string) *Client {
	return &Client{
		HTTP:      httpClient,
		SearchURL: defaultSearchURL,
		GroupURL:  defaultGroupURL,
		Arch:      arch,
	}
}

// Find looks a package name up on the search endpoint and returns the entry
// whose pkgname matches exactly. When the endpoint has no match the group
// endpoint is probed: a hit yields a GroupError, a 404 yields ErrNotFound.
func (c *Client) Find(ctx context.Context, name string) (*Result, error) {
	log := logger.Logger()

	endpoint := fmt.Sprintf(c.SearchURL, url.QueryEscape(name))
	log.Debugf("searching for %s via %s", name, endpoint)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("package search for %s: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("package search for %s: unexpected status %s", name, resp.Status)
	}

	var payload searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("package search for %s: decoding response: %w", name, err)
	}

	for i := range payload.Results {
		if payload.Results[i].Name == name {
			return &payload.Results[i], nil
		}
	}

	isGroup, err := c.isGroup(ctx, name)
	if err != nil {
		return nil, err
	}
	if isGroup {
		return nil, &GroupError{Name: name}
	}
	return nil, ErrNotFound
}

// isGroup probes the group page for the client's architecture. 404 means
// "not a group"; 200 means "is a group"; anything else propagates.
func (c *Client) isGroup(ctx context.Context, name string) (bool, error) {
	endpoint := fmt.Sprintf(c.GroupURL, url.PathEscape(c.Arch), url.PathEscape(name))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return false, fmt.Errorf("group probe for %s: %w", name, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotFound:
		return false, nil
	case http.StatusOK:
		return true, nil
	default:
		return false, fmt.Errorf("group probe for %s: unexpected status %s", name, resp.Status)
	}
}
