//go:build !linux && !windows

package shell

import (
	"time"

	"golang.org/x/sys/unix"
)

// selectPoller mimics the epoll backend on platforms without epoll by
// wrapping select(2) behind the same surface.
type selectPoller struct {
	fd int
}

func newPoller() (poller, error) {
	return &selectPoller{fd: -1}, nil
}

func (p *selectPoller) register(fd int) error {
	p.fd = fd
	return nil
}

func (p *selectPoller) wait(timeout time.Duration) (bool, error) {
	if p.fd < 0 {
		return false, nil
	}
	var readSet unix.FdSet
	readSet.Zero()
	readSet.Set(p.fd)
	tv := unix.NsecToTimeval(timeout.Nanoseconds())
	n, err := unix.Select(p.fd+1, &readSet, nil, nil, &tv)
	if err == unix.EINTR {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return n > 0 && readSet.IsSet(p.fd), nil
}

func (p *selectPoller) close() error {
	p.fd = -1
	return nil
}
