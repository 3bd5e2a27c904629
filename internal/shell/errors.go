package shell

import "fmt"

// RequirementError reports that a required external binary could not be
// located on the search path. It is fatal to the invocation that needed it.
type RequirementError struct {
	Binary string
}

func (e *RequirementError) Error() string {
	return fmt.Sprintf("binary %s does not exist", e.Binary)
}

// SysCallError reports that a spawned process exited with a code outside the
// accepted set. It carries the exit code and an excerpt of the captured
// output so callers can decide whether the failure is fatal or retryable.
type SysCallError struct {
	Argv     []string
	ExitCode int
	Output   string
}

func (e *SysCallError) Error() string {
	return fmt.Sprintf("%v exited with abnormal exit code [%d]: %s", e.Argv, e.ExitCode, e.Output)
}
