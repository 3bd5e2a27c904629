package mirror

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/openforge/reposync/internal/repodb"
	"github.com/openforge/reposync/internal/shell"
)

func TestExpandTemplate(t *testing.T) {
	tests := []struct {
		template string
		want     string
	}{
		{
			"https://m.example.org/$repo/os/$arch/$package",
			"https://m.example.org/core/os/x86_64/base-1.0-1-x86_64.pkg.tar.zst",
		},
		{
			// $package is appended when the template omits it.
			"https://m.example.org/$repo/os/$arch",
			"https://m.example.org/core/os/x86_64/base-1.0-1-x86_64.pkg.tar.zst",
		},
		{
			"https://m.example.org/$repo/os/$arch/",
			"https://m.example.org/core/os/x86_64/base-1.0-1-x86_64.pkg.tar.zst",
		},
	}
	for _, tt := range tests {
		got := ExpandTemplate(tt.template, "core", "x86_64", "base-1.0-1-x86_64.pkg.tar.zst")
		if got != tt.want {
			t.Errorf("ExpandTemplate(%q) = %q, want %q", tt.template, got, tt.want)
		}
	}
}

// stubDatabases returns a Manager whose repo-add invocations just create the
// database file they point at.
func stubDatabases(t *testing.T) (*repodb.Manager, *int) {
	t.Helper()
	initialized := 0
	manager := repodb.NewManagerWithRunner("x86_64", "", func(argv []string, opts shell.Options) (*shell.Result, error) {
		initialized++
		if err := os.WriteFile(argv[len(argv)-2], []byte("db"), 0o644); err != nil {
			t.Fatal(err)
		}
		return &shell.Result{Argv: argv}, nil
	})
	return manager, &initialized
}

func TestFetch(t *testing.T) {
	var requested []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requested = append(requested, r.URL.Path)
		if strings.HasSuffix(r.URL.Path, ".sig") {
			w.Write([]byte("signature"))
			return
		}
		w.Write([]byte("artifact-bytes"))
	}))
	defer server.Close()

	root := t.TempDir()
	databases, initialized := stubDatabases(t)
	downloader := NewDownloader(server.Client(), "x86_64", false, databases)

	template := server.URL + "/$repo/os/$arch/$package"
	err := downloader.Fetch(context.Background(), template, "core", "base-1.0-1-x86_64.pkg.tar.zst", root)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	dest := filepath.Join(root, "core", "os", "x86_64", "base-1.0-1-x86_64.pkg.tar.zst")
	data, err := os.ReadFile(dest)
	if err != nil || string(data) != "artifact-bytes" {
		t.Errorf("artifact = %q, %v", data, err)
	}
	sig, err := os.ReadFile(dest + ".sig")
	if err != nil || string(sig) != "signature" {
		t.Errorf("signature = %q, %v", sig, err)
	}
	if *initialized != 1 {
		t.Errorf("database initialized %d times, want 1", *initialized)
	}
	if len(requested) != 2 {
		t.Errorf("requests = %v, want artifact and signature", requested)
	}

	// No staging leftovers.
	entries, _ := os.ReadDir(filepath.Dir(dest))
	for _, entry := range entries {
		if strings.Contains(entry.Name(), ".partial.") {
			t.Errorf("staging file left behind: %s", entry.Name())
		}
	}
}

func TestFetchSkipsSignature(t *testing.T) {
	var requested []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requested = append(requested, r.URL.Path)
		w.Write([]byte("artifact-bytes"))
	}))
	defer server.Close()

	databases, _ := stubDatabases(t)
	downloader := NewDownloader(server.Client(), "x86_64", true, databases)

	err := downloader.Fetch(context.Background(), server.URL+"/$repo/os/$arch/$package",
		"core", "base-1.0-1-x86_64.pkg.tar.zst", t.TempDir())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	for _, path := range requested {
		if strings.HasSuffix(path, ".sig") {
			t.Errorf("signature requested despite skip: %s", path)
		}
	}
}

func TestFetchRejectsScheme(t *testing.T) {
	databases, _ := stubDatabases(t)
	downloader := NewDownloader(http.DefaultClient, "x86_64", true, databases)

	err := downloader.Fetch(context.Background(), "ftp://m.example.org/$repo/$arch/$package",
		"core", "base.pkg.tar.zst", t.TempDir())
	if err == nil || !strings.Contains(err.Error(), "scheme") {
		t.Fatalf("Fetch = %v, want scheme rejection", err)
	}
}

func TestFetchHTTPFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	root := t.TempDir()
	databases, _ := stubDatabases(t)
	downloader := NewDownloader(server.Client(), "x86_64", true, databases)

	err := downloader.Fetch(context.Background(), server.URL+"/$repo/os/$arch/$package",
		"core", "missing.pkg.tar.zst", root)
	if err == nil {
		t.Fatal("Fetch succeeded against 404 server")
	}
	if _, statErr := os.Stat(filepath.Join(root, "core", "os", "x86_64", "missing.pkg.tar.zst")); statErr == nil {
		t.Error("artifact file exists after failed fetch")
	}
}

func TestFetchSkipsInitializeWhenDatabaseExists(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("artifact-bytes"))
	}))
	defer server.Close()

	root := t.TempDir()
	databases, initialized := stubDatabases(t)

	dbPath := databases.DatabasePath(root, "core")
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(dbPath, []byte("db"), 0o644); err != nil {
		t.Fatal(err)
	}

	downloader := NewDownloader(server.Client(), "x86_64", true, databases)
	err := downloader.Fetch(context.Background(), server.URL+"/$repo/os/$arch/$package",
		"core", "base-1.0-1-x86_64.pkg.tar.zst", root)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if *initialized != 0 {
		t.Errorf("Initialize invoked %d times for existing database", *initialized)
	}
}
