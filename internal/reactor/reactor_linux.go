//go:build linux

// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package reactor

import (
	"context"
	"sync/atomic"

	"github.com/joeycumines/pollio"
	"golang.org/x/sys/unix"
)

// Reactor multiplexes readiness for many registered file descriptors using
// a single epoll instance, grounded on the teacher's FastPoller for Linux:
// same epoll_create1/epoll_ctl/epoll_wait sequence, generalized to publish
// into a pollio.Pollee instead of invoking a stored callback.
type Reactor struct {
	epfd int

	*registry

	closed atomic.Bool
}

// New creates a Reactor backed by a fresh epoll instance.
func New() (*Reactor, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	return &Reactor{epfd: epfd, registry: newRegistry()}, nil
}

// Add registers fd with the reactor: events matching interest observed on fd
// will be ORed into pollee's mask by a concurrent Run call.
func (r *Reactor) Add(fd int, interest pollio.Events, pollee *pollio.Pollee) error {
	if err := r.put(fd, &entry{pollee: pollee, interest: interest}); err != nil {
		return err
	}
	ev := unix.EpollEvent{Events: toEpoll(interest), Fd: int32(fd)}
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		r.remove(fd)
		return err
	}
	return nil
}

// Modify changes the interest set for an already-registered fd.
func (r *Reactor) Modify(fd int, interest pollio.Events) error {
	if _, err := r.update(fd, interest); err != nil {
		return err
	}
	ev := unix.EpollEvent{Events: toEpoll(interest), Fd: int32(fd)}
	return unix.EpollCtl(r.epfd, unix.EPOLL_CTL_MOD, fd, &ev)
}

// Remove deregisters fd. Safe to call even if the kernel has already closed
// fd out from under the epoll set (e.g. via the socket's own Close), since
// the kernel drops epoll registrations automatically when the last
// descriptor referencing a file is closed; EpollCtl's error in that case is
// ignored.
func (r *Reactor) Remove(fd int) error {
	e, err := r.remove(fd)
	if err != nil {
		return err
	}
	_ = e
	_ = unix.EpollCtl(r.epfd, unix.EPOLL_CTL_DEL, fd, nil)
	return nil
}

// Run blocks, dispatching readiness until ctx is done or Close is called.
// Each iteration waits up to 100ms so a cancelled ctx is noticed promptly
// without needing a dedicated wakeup fd for this, the simplest case; a busy
// reactor returns from EpollWait long before the timeout every time.
func (r *Reactor) Run(ctx context.Context) error {
	var buf [256]unix.EpollEvent
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if r.closed.Load() {
			return nil
		}

		n, err := unix.EpollWait(r.epfd, buf[:], 100)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return err
		}

		for i := 0; i < n; i++ {
			fd := int(buf[i].Fd)
			r.dispatch(fd, fromEpoll(buf[i].Events))
		}
	}
}

// Close releases the epoll file descriptor. Any fd still registered is left
// untouched by the kernel's perspective; callers are expected to Remove
// before closing the file itself.
func (r *Reactor) Close() error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	r.markClosed()
	return unix.Close(r.epfd)
}

func toEpoll(e pollio.Events) uint32 {
	var out uint32
	if e.Contains(pollio.EventIn) {
		out |= unix.EPOLLIN
	}
	if e.Contains(pollio.EventOut) {
		out |= unix.EPOLLOUT
	}
	if e.Contains(pollio.EventPri) {
		out |= unix.EPOLLPRI
	}
	if e.Contains(pollio.EventRdHUp) {
		out |= unix.EPOLLRDHUP
	}
	return out
}

func fromEpoll(v uint32) pollio.Events {
	var out pollio.Events
	if v&unix.EPOLLIN != 0 {
		out |= pollio.EventIn
	}
	if v&unix.EPOLLOUT != 0 {
		out |= pollio.EventOut
	}
	if v&unix.EPOLLERR != 0 {
		out |= pollio.EventErr
	}
	if v&unix.EPOLLHUP != 0 {
		out |= pollio.EventHUp
	}
	if v&unix.EPOLLRDHUP != 0 {
		out |= pollio.EventRdHUp
	}
	if v&unix.EPOLLPRI != 0 {
		out |= pollio.EventPri
	}
	return out
}
