// Package mirror materializes artifacts from templated mirror URLs.
package mirror

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"

	"github.com/openforge/reposync/internal/repodb"
	"github.com/openforge/reposync/internal/utils/logger"
)

// ExpandTemplate substitutes $repo, $arch and $package in a mirror
// template. A template without $package gets it appended as a path segment.
func ExpandTemplate(template, repo, arch, pkg string) string {
	if !strings.Contains(template, "$package") {
		template = strings.TrimRight(template, "/") + "/$package"
	}
	expanded := strings.ReplaceAll(template, "$repo", repo)
	expanded = strings.ReplaceAll(expanded, "$arch", arch)
	return strings.ReplaceAll(expanded, "$package", pkg)
}

// Downloader fetches artifacts (and their detached signatures) into the
// repository tree, initializing database stubs on first contact with a
// repository.
type Downloader struct {
	client    *http.Client
	arch      string
	skipSig   bool
	databases *repodb.Manager
}

// NewDownloader returns a Downloader writing under the given architecture.
func NewDownloader(client *http.Client, arch string, skipSig bool, databases *repodb.Manager) *Downloader {
	return &Downloader{client: client, arch: arch, skipSig: skipSig, databases: databases}
}

// Fetch attempts one mirror: expand the template, download the artifact to
// root/<repo>/os/<arch>/<filename> and, unless disabled, its .sig
// companion. A failure is returned, never escalated; the caller moves on to
// the next mirror.
func (d *Downloader) Fetch(ctx context.Context, template, repo, filename, root string) error {
	log := logger.Logger()

	target := ExpandTemplate(template, repo, d.arch, filename)
	log.Debugf("mirror template %s expanded to %s", template, target)

	parsed, err := url.Parse(target)
	if err != nil {
		return fmt.Errorf("mirror %s: %w", template, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("unknown or unsupported URL scheme %q for mirror %s", parsed.Scheme, template)
	}

	destDir := d.databases.Dir(root, repo)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("creating destination %s: %w", destDir, err)
	}
	if _, err := os.Stat(d.databases.DatabasePath(root, repo)); os.IsNotExist(err) {
		if err := d.databases.Initialize(repo, root); err != nil {
			return err
		}
	}

	if err := d.download(ctx, parsed.String(), filepath.Join(destDir, filename), true); err != nil {
		return err
	}

	if !d.skipSig {
		sigURL := parsed.String() + ".sig"
		if err := d.download(ctx, sigURL, filepath.Join(destDir, filename+".sig"), false); err != nil {
			return err
		}
	}
	return nil
}

// download streams a URL into place through a uniquely named staging file so
// a failed attempt never leaves a truncated artifact under the repo tree.
func (d *Downloader) download(ctx context.Context, target, dest string, showProgress bool) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("downloading %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("downloading %s: unexpected status %s", target, resp.Status)
	}

	staging := dest + ".partial." + uuid.NewString()
	out, err := os.Create(staging)
	if err != nil {
		return fmt.Errorf("creating %s: %w", staging, err)
	}

	var sink io.Writer = out
	var bar *progressbar.ProgressBar
	if showProgress {
		bar = progressbar.DefaultBytes(resp.ContentLength, filepath.Base(dest))
		sink = io.MultiWriter(out, bar)
	}

	_, copyErr := io.Copy(sink, resp.Body)
	closeErr := out.Close()
	if bar != nil {
		_ = bar.Finish()
	}
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(staging)
		if copyErr != nil {
			return fmt.Errorf("downloading %s: %w", target, copyErr)
		}
		return fmt.Errorf("writing %s: %w", staging, closeErr)
	}

	if err := os.Rename(staging, dest); err != nil {
		_ = os.Remove(staging)
		return fmt.Errorf("renaming %s into place: %w", staging, err)
	}
	return nil
}
