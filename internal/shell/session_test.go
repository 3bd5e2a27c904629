package shell

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLocateBinary(t *testing.T) {
	dir := t.TempDir()
	binary := filepath.Join(dir, "fake-tool")
	if err := os.WriteFile(binary, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PATH", dir)

	found, err := LocateBinary("fake-tool")
	if err != nil {
		t.Fatalf("LocateBinary: %v", err)
	}
	if found != binary {
		t.Errorf("LocateBinary = %q, want %q", found, binary)
	}
}

func TestLocateBinaryMissing(t *testing.T) {
	t.Setenv("PATH", t.TempDir())

	_, err := LocateBinary("definitely-not-a-binary")
	var reqErr *RequirementError
	if !errors.As(err, &reqErr) {
		t.Fatalf("LocateBinary error = %v, want RequirementError", err)
	}
	if reqErr.Binary != "definitely-not-a-binary" {
		t.Errorf("RequirementError.Binary = %q", reqErr.Binary)
	}
}

func TestSessionCollectsOutput(t *testing.T) {
	session, err := NewSession([]string{"sh", "-c", "printf 'hello world'"}, Options{})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	session.Wait()
	defer session.Close()

	if !bytes.Contains(session.Output(), []byte("hello world")) {
		t.Errorf("trace log %q does not contain output", session.Output())
	}
	code, exited := session.ExitCode()
	if !exited || code != 0 {
		t.Errorf("ExitCode = %d, %v; want 0, true", code, exited)
	}
}

func TestSessionMissingBinary(t *testing.T) {
	t.Setenv("PATH", t.TempDir())

	_, err := NewSession([]string{"no-such-command"}, Options{})
	var reqErr *RequirementError
	if !errors.As(err, &reqErr) {
		t.Fatalf("NewSession error = %v, want RequirementError", err)
	}
}

func TestSessionContainsAdvancesCursor(t *testing.T) {
	session, err := NewSession([]string{"sh", "-c", "printf 'working...done...rest'"}, Options{})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	defer session.Close()
	session.Wait()

	if !session.Contains([]byte("done")) {
		t.Fatal("first Contains(done) = false, want true")
	}
	// The cursor moved past the match; without new output the same bytes
	// must never match again.
	if session.Contains([]byte("done")) {
		t.Error("second Contains(done) = true, want false")
	}
	if session.Contains([]byte("done")) {
		t.Error("third Contains(done) = true, want false")
	}
	if !session.Contains([]byte("rest")) {
		t.Error("Contains(rest) = false, want true")
	}
}

func TestSessionTellSeek(t *testing.T) {
	session, err := NewSession([]string{"sh", "-c", "printf 'abcdef'"}, Options{})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	defer session.Close()
	session.Wait()

	if pos := session.Tell(); pos != 0 {
		t.Errorf("initial Tell = %d, want 0", pos)
	}
	session.Contains([]byte("cd"))
	if pos := session.Tell(); pos != 4 {
		t.Errorf("Tell after Contains(cd) = %d, want 4", pos)
	}
	session.Seek(0)
	if !session.Contains([]byte("ab")) {
		t.Error("Contains(ab) after Seek(0) = false, want true")
	}
	session.Seek(-10)
	if pos := session.Tell(); pos != 0 {
		t.Errorf("Seek(-10) clamped to %d, want 0", pos)
	}
	session.Seek(1 << 20)
	if pos := session.Tell(); pos != len(session.Output()) {
		t.Errorf("Seek past end clamped to %d, want %d", pos, len(session.Output()))
	}
}

func TestSessionLines(t *testing.T) {
	session, err := NewSession([]string{"sh", "-c", "printf 'one\\ntwo\\npartial'"}, Options{})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	defer session.Close()
	session.Wait()

	lines := session.Lines()
	if len(lines) != 2 {
		t.Fatalf("Lines returned %d lines (%q), want 2", len(lines), lines)
	}
	if string(lines[0]) != "one" || string(lines[1]) != "two" {
		t.Errorf("Lines = %q, want [one two]", lines)
	}
	// Data after the last newline stays buffered for the next read.
	if lines := session.Lines(); lines != nil {
		t.Errorf("second Lines = %q, want none", lines)
	}
	if !session.Contains([]byte("partial")) {
		t.Error("partial tail missing from trace log")
	}
}

func TestSessionCloseReportsExitCode(t *testing.T) {
	session, err := NewSession([]string{"sh", "-c", "echo oops; exit 7"}, Options{})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	session.Wait()

	err = session.Close()
	var sysErr *SysCallError
	if !errors.As(err, &sysErr) {
		t.Fatalf("Close error = %v, want SysCallError", err)
	}
	if sysErr.ExitCode != 7 {
		t.Errorf("SysCallError.ExitCode = %d, want 7", sysErr.ExitCode)
	}
	if len(sysErr.Output) > 100 {
		t.Errorf("output excerpt is %d bytes, want at most 100", len(sysErr.Output))
	}
}

func TestSessionCloseAcceptedCodes(t *testing.T) {
	session, err := NewSession([]string{"sh", "-c", "exit 1"}, Options{AcceptedCodes: []int{0, 1}})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	session.Wait()
	if err := session.Close(); err != nil {
		t.Errorf("Close with accepted code = %v, want nil", err)
	}
}

func TestSessionCloseIgnoreExitCode(t *testing.T) {
	session, err := NewSession([]string{"sh", "-c", "exit 3"}, Options{IgnoreExitCode: true})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	session.Wait()
	if err := session.Close(); err != nil {
		t.Errorf("Close with IgnoreExitCode = %v, want nil", err)
	}
}

func TestSessionWorkingDirAndEnv(t *testing.T) {
	dir := t.TempDir()
	session, err := NewSession(
		[]string{"sh", "-c", "pwd; printf '%s' \"$REPOSYNC_TEST\""},
		Options{WorkingDir: dir, Env: map[string]string{"REPOSYNC_TEST": "overlay-value"}},
	)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	defer session.Close()
	session.Wait()

	output := session.Output()
	if !bytes.Contains(output, []byte(filepath.Base(dir))) {
		t.Errorf("output %q does not mention working dir %q", output, dir)
	}
	if !bytes.Contains(output, []byte("overlay-value")) {
		t.Errorf("output %q does not contain env overlay value", output)
	}
}

func TestWaitContextDeadline(t *testing.T) {
	session, err := NewSession([]string{"sh", "-c", "sleep 30"}, Options{IgnoreExitCode: true})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	defer func() {
		_ = session.cmd.Process.Kill()
		session.Close()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	if err := session.WaitContext(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("WaitContext = %v, want deadline exceeded", err)
	}
}

func TestStripEscapes(t *testing.T) {
	in := []byte("\x1b[1;31merror\x1b[0m plain \x1b[K")
	if got := string(StripEscapes(in)); got != "error plain " {
		t.Errorf("StripEscapes = %q", got)
	}
}
