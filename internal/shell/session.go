package shell

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/creack/pty"
	"golang.org/x/sys/unix"

	"github.com/openforge/reposync/internal/utils/logger"
)

const (
	// readChunk bounds a single read from the child's terminal.
	readChunk = 8192
	// pollInterval is how long a single Poll lingers in the multiplexer
	// before giving up. Wait loops on this, so it doubles as the spin-poll
	// sleep.
	pollInterval = 100 * time.Millisecond
)

// Options control how a Session spawns and classifies its command.
type Options struct {
	// WorkingDir is the child's working directory. Empty means inherit.
	WorkingDir string
	// Env is overlaid onto the inherited environment.
	Env map[string]string
	// KeepEscapes retains VT100 escape sequences in Lines output.
	KeepEscapes bool
	// AcceptedCodes are exit codes treated as success. Defaults to {0}.
	AcceptedCodes []int
	// IgnoreExitCode opts out of the exit-code check on Close.
	IgnoreExitCode bool
}

// Session runs one external command through a pseudo-terminal and captures
// everything it writes into a growing trace log. Callers drive it by polling;
// no call blocks longer than a single poll interval. Sessions are exclusively
// owned: spawn with NewSession, always Close.
type Session struct {
	argv   []string
	opts   Options
	cmd    *exec.Cmd
	tty    *os.File
	events poller

	// pollMu serializes Poll against itself; mu guards the trace log and
	// lifecycle state so cursor reads may interleave with polling.
	pollMu sync.Mutex
	mu     sync.Mutex

	trace    []byte
	pos      int
	started  time.Time
	ended    time.Time
	exitCode int
	exited   bool
	closed   bool
}

// NewSession resolves argv[0], spawns the command behind a pty pair and
// registers its output descriptor for readiness polling. A missing binary is
// a RequirementError.
func NewSession(argv []string, opts Options) (*Session, error) {
	log := logger.Logger()

	resolved, err := resolveArgv0(argv[0])
	if err != nil {
		return nil, err
	}

	cmd := exec.Command(resolved, argv[1:]...)
	cmd.Dir = opts.WorkingDir
	if len(opts.Env) > 0 {
		env := os.Environ()
		for key, value := range opts.Env {
			env = append(env, key+"="+value)
		}
		cmd.Env = env
	}

	tty, err := pty.Start(cmd)
	if err != nil {
		return nil, err
	}

	events, err := newPoller()
	if err != nil {
		_ = tty.Close()
		return nil, err
	}
	if err := events.register(int(tty.Fd())); err != nil {
		_ = events.close()
		_ = tty.Close()
		return nil, err
	}

	log.Debugf("executing: %v", argv)

	return &Session{
		argv:    argv,
		opts:    opts,
		cmd:     cmd,
		tty:     tty,
		events:  events,
		started: time.Now(),
	}, nil
}

// Poll performs one non-blocking readiness check. When output is ready it
// reads up to a fixed chunk and appends it to the trace log; when the
// terminal is gone or the child has died it records the end timestamp and
// reaps the exit status. Reports whether new output was consumed.
func (s *Session) Poll() bool {
	s.pollMu.Lock()
	defer s.pollMu.Unlock()

	if s.Ended() {
		return false
	}

	gotOutput := false
	ready, err := s.events.wait(pollInterval)
	if err == nil && ready {
		buf := make([]byte, readChunk)
		n, readErr := s.tty.Read(buf)
		if n > 0 {
			gotOutput = true
			s.mu.Lock()
			s.trace = append(s.trace, buf[:n]...)
			s.mu.Unlock()
		}
		if readErr != nil {
			// EIO on Linux ptys means the child closed its side.
			s.finish()
			return gotOutput
		}
	}

	if !gotOutput && !s.alive() {
		s.finish()
	}
	return gotOutput
}

// Wait spin-polls until the child has exited. It has no timeout of its own;
// use WaitContext when the caller needs a deadline.
func (s *Session) Wait() {
	for !s.Ended() {
		s.Poll()
	}
}

// WaitContext is Wait with a cancellation point between polls.
func (s *Session) WaitContext(ctx context.Context) error {
	for !s.Ended() {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.Poll()
	}
	return nil
}

func (s *Session) alive() bool {
	if s.cmd.Process == nil {
		return false
	}
	return unix.Kill(s.cmd.Process.Pid, 0) == nil
}

func (s *Session) finish() {
	s.mu.Lock()
	if !s.ended.IsZero() {
		s.mu.Unlock()
		return
	}
	s.ended = time.Now()
	s.mu.Unlock()

	code := 0
	if err := s.cmd.Wait(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			code = exitErr.ExitCode()
		} else {
			code = 1
		}
	}

	s.mu.Lock()
	s.exitCode = code
	s.exited = true
	s.mu.Unlock()
}

// Ended reports whether the child has exited and been reaped.
func (s *Session) Ended() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.ended.IsZero()
}

// Started returns the spawn timestamp.
func (s *Session) Started() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

// ExitCode returns the child's exit code; ok is false while it still runs.
func (s *Session) ExitCode() (code int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exitCode, s.exited
}

// Tell returns the current trace-log cursor position.
func (s *Session) Tell() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos
}

// Seek repositions the trace-log cursor, clamped to the log bounds.
func (s *Session) Seek(pos int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pos = min(max(0, pos), len(s.trace))
}

// Contains scans forward from the cursor for needle and, on a match,
// advances the cursor past it. Repeated scanning is monotonic: the same
// bytes are never matched twice.
func (s *Session) Contains(needle []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := bytes.Index(s.trace[s.pos:], needle)
	if idx < 0 {
		return false
	}
	s.pos += idx + len(needle)
	return true
}

// Lines yields the complete lines between the cursor and the last newline in
// the trace log, advancing the cursor past them. Bytes after the last
// newline are retained for the next call. Escape sequences are stripped
// unless the session keeps them.
func (s *Session) Lines() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	lastNL := bytes.LastIndexByte(s.trace[s.pos:], '\n')
	if lastNL < 0 {
		return nil
	}

	var lines [][]byte
	for _, line := range bytes.Split(s.trace[s.pos:s.pos+lastNL], []byte{'\n'}) {
		// The terminal turns "\n" into "\r\n" on the way through.
		line = bytes.TrimSuffix(line, []byte{'\r'})
		if len(line) == 0 {
			continue
		}
		if !s.opts.KeepEscapes {
			line = StripEscapes(line)
		}
		lines = append(lines, append([]byte(nil), line...))
	}

	s.pos += lastNL + 1
	return lines
}

// Output returns a copy of the full trace log without moving the cursor.
func (s *Session) Output() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.trace...)
}

// Decode returns the trace log as a string.
func (s *Session) Decode() string {
	return string(s.Output())
}

// Write sends bytes to the child's terminal.
func (s *Session) Write(p []byte) (int, error) {
	return s.tty.Write(p)
}

// Close releases the terminal descriptor on every exit path. If the child
// exited with an unaccepted code the error is a SysCallError carrying the
// code and the first 100 decoded bytes of output, unless the session was
// created with IgnoreExitCode.
func (s *Session) Close() error {
	s.mu.Lock()
	alreadyClosed := s.closed
	s.closed = true
	s.mu.Unlock()

	if !alreadyClosed {
		_ = s.events.close()
		_ = s.tty.Close()
	}

	if s.opts.IgnoreExitCode {
		return nil
	}
	code, exited := s.ExitCode()
	if !exited || s.accepted(code) {
		return nil
	}
	excerpt := s.Decode()
	if len(excerpt) > 100 {
		excerpt = excerpt[:100]
	}
	return &SysCallError{Argv: s.argv, ExitCode: code, Output: excerpt}
}

func (s *Session) accepted(code int) bool {
	accepted := s.opts.AcceptedCodes
	if len(accepted) == 0 {
		accepted = []int{0}
	}
	for _, ok := range accepted {
		if code == ok {
			return true
		}
	}
	return false
}
