//go:build linux

package shell

import (
	"time"

	"golang.org/x/sys/unix"
)

type epollPoller struct {
	epfd int
}

func newPoller() (poller, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	return &epollPoller{epfd: epfd}, nil
}

func (p *epollPoller) register(fd int) error {
	event := unix.EpollEvent{
		Events: unix.EPOLLIN | unix.EPOLLHUP,
		Fd:     int32(fd),
	}
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &event)
}

func (p *epollPoller) wait(timeout time.Duration) (bool, error) {
	events := make([]unix.EpollEvent, 1)
	n, err := unix.EpollWait(p.epfd, events, int(timeout.Milliseconds()))
	if err == unix.EINTR {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (p *epollPoller) close() error {
	return unix.Close(p.epfd)
}
