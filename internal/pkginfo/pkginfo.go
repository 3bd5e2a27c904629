// Package pkginfo reads the .PKGINFO metadata embedded in downloaded
// package archives, used to sanity-check artifacts after a mirror fetch.
package pkginfo

import (
	"archive/tar"
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// Info is the subset of .PKGINFO fields this tool cares about.
type Info struct {
	Name    string
	Version string
	Arch    string
	Depends []string
}

// Read opens a .pkg.tar.zst or .pkg.tar.xz archive and parses its .PKGINFO
// entry.
func Read(path string) (*Info, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening artifact: %w", err)
	}
	defer file.Close()

	var reader io.Reader
	switch {
	case strings.HasSuffix(path, ".zst"):
		zr, err := zstd.NewReader(file)
		if err != nil {
			return nil, fmt.Errorf("artifact %s: %w", path, err)
		}
		defer zr.Close()
		reader = zr
	case strings.HasSuffix(path, ".xz"):
		xr, err := xz.NewReader(bufio.NewReader(file))
		if err != nil {
			return nil, fmt.Errorf("artifact %s: %w", path, err)
		}
		reader = xr
	default:
		return nil, fmt.Errorf("artifact %s: unsupported archive extension", path)
	}

	tr := tar.NewReader(reader)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("artifact %s: %w", path, err)
		}
		if hdr.Name == ".PKGINFO" {
			return parse(tr)
		}
	}
	return nil, fmt.Errorf("artifact %s has no .PKGINFO entry", path)
}

// parse handles the "key = value" lines of a .PKGINFO stream. The depend
// key repeats, one dependency specification per line.
func parse(r io.Reader) (*Info, error) {
	info := &Info{}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		switch key {
		case "pkgname":
			info.Name = value
		case "pkgver":
			info.Version = value
		case "arch":
			info.Arch = value
		case "depend":
			info.Depends = append(info.Depends, value)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading .PKGINFO: %w", err)
	}
	if info.Name == "" {
		return nil, fmt.Errorf(".PKGINFO has no pkgname")
	}
	return info, nil
}
