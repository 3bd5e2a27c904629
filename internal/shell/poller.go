package shell

import "time"

// poller is a readiness-notification multiplexer over a single descriptor.
// Linux gets a native epoll backend; other unixes get a select-based
// equivalent behind the same register/wait/close surface.
type poller interface {
	register(fd int) error
	// wait blocks for at most timeout and reports whether the registered
	// descriptor has data to read.
	wait(timeout time.Duration) (bool, error)
	close() error
}
