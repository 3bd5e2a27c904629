package config

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
)

func validConfig() *Config {
	return &Config{
		Path:         "/srv/repo",
		Architecture: "x86_64",
		Repositories: DefaultRepositories(),
		Mirrors:      []string{"https://mirror.example.org/$repo/os/$arch"},
		Packages:     []string{"base"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"empty path", func(c *Config) { c.Path = "" }, "destination path"},
		{"empty arch", func(c *Config) { c.Architecture = "" }, "architecture"},
		{"no repositories", func(c *Config) { c.Repositories = nil }, "no repositories"},
		{"bad repo name", func(c *Config) { c.Repositories["bad/name"] = true }, "invalid repository name"},
		{"blank mirror", func(c *Config) { c.Mirrors = []string{"  "} }, "empty mirror"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestRepoEnabled(t *testing.T) {
	cfg := validConfig()
	if !cfg.RepoEnabled("core") {
		t.Error("core should be enabled by default")
	}
	if cfg.RepoEnabled("testing") {
		t.Error("testing should be disabled by default")
	}
	if cfg.RepoEnabled("unknown") {
		t.Error("unknown repositories must be disabled")
	}
}

func TestEnabledRepositories(t *testing.T) {
	cfg := validConfig()
	repos := cfg.EnabledRepositories()
	sort.Strings(repos)
	want := []string{"community", "core", "extra"}
	if len(repos) != len(want) {
		t.Fatalf("EnabledRepositories = %v, want %v", repos, want)
	}
	for i := range want {
		if repos[i] != want[i] {
			t.Fatalf("EnabledRepositories = %v, want %v", repos, want)
		}
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reposync.yml")
	doc := `path: /srv/mirror
architecture: aarch64
repositories:
  core: true
  testing: true
mirrors:
  - https://m1.example.org/$repo/os/$arch/$package
packages:
  - base
  - linux>=5.10
skipSignatures: true
signKey: ABCDEF
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Path != "/srv/mirror" || cfg.Architecture != "aarch64" {
		t.Errorf("unexpected path/arch: %q %q", cfg.Path, cfg.Architecture)
	}
	if !cfg.Repositories["testing"] {
		t.Error("testing should be enabled")
	}
	if len(cfg.Mirrors) != 1 || len(cfg.Packages) != 2 {
		t.Errorf("mirrors/packages = %v / %v", cfg.Mirrors, cfg.Packages)
	}
	if !cfg.SkipSignatures || cfg.SignKey != "ABCDEF" {
		t.Errorf("signature policy not loaded: %v %q", cfg.SkipSignatures, cfg.SignKey)
	}
}

func TestLoadFileSchemaViolation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reposync.yml")
	// repositories must map to booleans.
	doc := "repositories:\n  core: \"yes please\"\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Fatal("LoadFile accepted schema-violating document")
	}
}

func TestLoadFileUnknownKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reposync.yml")
	if err := os.WriteFile(path, []byte("mirorrs: []\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Fatal("LoadFile accepted unknown key")
	}
}

func TestParseMirrorlist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mirrorlist")
	doc := `## Arch Linux mirrorlist
# Server = https://commented.example.org/$repo/os/$arch

Server = https://m1.example.org/$repo/os/$arch
Server=https://m2.example.org/$repo/os/$arch
NotAServer = https://ignored.example.org
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	mirrors, err := ParseMirrorlist(path)
	if err != nil {
		t.Fatalf("ParseMirrorlist: %v", err)
	}
	want := []string{
		"https://m1.example.org/$repo/os/$arch",
		"https://m2.example.org/$repo/os/$arch",
	}
	if len(mirrors) != len(want) {
		t.Fatalf("ParseMirrorlist = %v, want %v", mirrors, want)
	}
	for i := range want {
		if mirrors[i] != want[i] {
			t.Errorf("mirror[%d] = %q, want %q", i, mirrors[i], want[i])
		}
	}
}

func TestParsePackageList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "packages.txt")
	doc := "# comment\nbase\n\nlinux>=5.10\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	packages, err := ParsePackageList(path)
	if err != nil {
		t.Fatalf("ParsePackageList: %v", err)
	}
	if len(packages) != 2 || packages[0] != "base" || packages[1] != "linux>=5.10" {
		t.Errorf("ParsePackageList = %v", packages)
	}
}
