package shell

import (
	"context"
	"strings"
	"time"
)

// Result holds everything a run-and-collect invocation hands back.
type Result struct {
	Argv     []string
	Output   []byte
	ExitCode int
	Duration time.Duration
}

// Lines splits the collected output into non-empty lines with escape
// sequences stripped, for tools with line-oriented output.
func (r *Result) Lines() []string {
	var lines []string
	for _, line := range strings.Split(string(StripEscapes(r.Output)), "\n") {
		line = strings.TrimRight(line, "\r")
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// Run spawns a command, drives it to completion and collects its output.
// The returned Result is valid even when err is a SysCallError, so callers
// that treat certain failures as retryable can still inspect the output.
func Run(argv []string, opts Options) (*Result, error) {
	session, err := NewSession(argv, opts)
	if err != nil {
		return nil, err
	}
	session.Wait()

	code, _ := session.ExitCode()
	result := &Result{
		Argv:     argv,
		Output:   session.Output(),
		ExitCode: code,
		Duration: time.Since(session.Started()),
	}
	if err := session.Close(); err != nil {
		return result, err
	}
	return result, nil
}

// RunContext is Run with a deadline threaded through the wait loop. The
// child is not killed on cancellation; the caller stops waiting for it.
func RunContext(ctx context.Context, argv []string, opts Options) (*Result, error) {
	session, err := NewSession(argv, opts)
	if err != nil {
		return nil, err
	}
	if err := session.WaitContext(ctx); err != nil {
		_ = session.Close()
		return nil, err
	}

	code, _ := session.ExitCode()
	result := &Result{
		Argv:     argv,
		Output:   session.Output(),
		ExitCode: code,
		Duration: time.Since(session.Started()),
	}
	if err := session.Close(); err != nil {
		return result, err
	}
	return result, nil
}
