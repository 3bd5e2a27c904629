package shell

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// vt100Escapes matches ANSI/VT100 control sequences (CSI sequences and
// two-byte escapes) so tool output can be scanned as plain text.
var vt100Escapes = regexp.MustCompile(`\x1b(?:\[[0-?]*[ -/]*[@-~]|[@-Z\\-_])`)

// StripEscapes removes VT100 escape sequences from a line of output.
func StripEscapes(line []byte) []byte {
	return vt100Escapes.ReplaceAll(line, nil)
}

// LocateBinary resolves a bare command name against the inherited search
// path. Each PATH directory is scanned non-recursively and the first regular,
// executable match wins. Returns a RequirementError when nothing matches.
func LocateBinary(name string) (string, error) {
	for _, dir := range filepath.SplitList(os.Getenv("PATH")) {
		if dir == "" {
			continue
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() || entry.Name() != name {
				continue
			}
			full := filepath.Join(dir, name)
			if info, err := os.Stat(full); err == nil && info.Mode().Perm()&0o111 != 0 {
				return full, nil
			}
		}
	}
	return "", &RequirementError{Binary: name}
}

// resolveArgv0 expands the command name to an absolute path unless the
// caller already supplied an absolute or explicitly relative one.
func resolveArgv0(argv0 string) (string, error) {
	if filepath.IsAbs(argv0) || strings.HasPrefix(argv0, "./") || strings.HasPrefix(argv0, "../") {
		return argv0, nil
	}
	return LocateBinary(argv0)
}
