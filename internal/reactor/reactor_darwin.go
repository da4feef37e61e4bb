//go:build darwin

// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package reactor

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/joeycumines/pollio"
	"golang.org/x/sys/unix"
)

// Reactor multiplexes readiness using kqueue, grounded on the teacher's
// Darwin FastPoller: one EV_ADD/EV_ENABLE filter pair (read, write) per
// registered fd, generalized to publish into a pollio.Pollee.
type Reactor struct {
	kq int

	*registry

	closed atomic.Bool
}

// New creates a Reactor backed by a fresh kqueue instance.
func New() (*Reactor, error) {
	kq, err := unix.Kqueue()
	if err != nil {
		return nil, err
	}
	unix.CloseOnExec(kq)
	return &Reactor{kq: kq, registry: newRegistry()}, nil
}

// Add registers fd for the read and/or write filters implied by interest.
func (r *Reactor) Add(fd int, interest pollio.Events, pollee *pollio.Pollee) error {
	if err := r.put(fd, &entry{pollee: pollee, interest: interest}); err != nil {
		return err
	}
	changes := kevents(fd, interest, unix.EV_ADD|unix.EV_ENABLE)
	if len(changes) == 0 {
		return nil
	}
	if _, err := unix.Kevent(r.kq, changes, nil, nil); err != nil {
		r.remove(fd)
		return err
	}
	return nil
}

// Modify rewrites the filter set registered for fd to match interest.
func (r *Reactor) Modify(fd int, interest pollio.Events) error {
	// update overwrites the entry's interest in place, so the previous
	// interest has to be read before it.
	var prevInterest pollio.Events
	if e, ok := r.get(fd); ok {
		r.mu.RLock()
		prevInterest = e.interest
		r.mu.RUnlock()
	}
	if _, err := r.update(fd, interest); err != nil {
		return err
	}
	var changes []unix.Kevent_t
	removed := prevInterest &^ interest
	if removed.Contains(pollio.EventIn) {
		changes = append(changes, kevent(fd, unix.EVFILT_READ, unix.EV_DELETE))
	}
	if removed.Contains(pollio.EventOut) {
		changes = append(changes, kevent(fd, unix.EVFILT_WRITE, unix.EV_DELETE))
	}
	changes = append(changes, kevents(fd, interest&^prevInterest, unix.EV_ADD|unix.EV_ENABLE)...)
	if len(changes) == 0 {
		return nil
	}
	_, err := unix.Kevent(r.kq, changes, nil, nil)
	return err
}

// Remove deregisters fd. Closing the underlying fd also drops its kqueue
// registration automatically; Remove's Kevent call is best-effort cleanup
// for the case where the fd is still open.
func (r *Reactor) Remove(fd int) error {
	e, err := r.remove(fd)
	if err != nil {
		return err
	}
	changes := kevents(fd, e.interest, unix.EV_DELETE)
	if len(changes) > 0 {
		_, _ = unix.Kevent(r.kq, changes, nil, nil)
	}
	return nil
}

// Run blocks, dispatching readiness until ctx is done or Close is called.
func (r *Reactor) Run(ctx context.Context) error {
	var buf [256]unix.Kevent_t
	timeout := unix.NsecToTimespec(int64(100 * time.Millisecond))
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if r.closed.Load() {
			return nil
		}

		n, err := unix.Kevent(r.kq, nil, buf[:], &timeout)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return err
		}

		for i := 0; i < n; i++ {
			fd := int(buf[i].Ident)
			r.dispatch(fd, fromKevent(buf[i]))
		}
	}
}

// Close releases the kqueue descriptor.
func (r *Reactor) Close() error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	r.markClosed()
	return unix.Close(r.kq)
}

func kevent(fd int, filter int16, flags uint16) unix.Kevent_t {
	return unix.Kevent_t{Ident: uint64(fd), Filter: filter, Flags: flags}
}

func kevents(fd int, interest pollio.Events, flags uint16) []unix.Kevent_t {
	var out []unix.Kevent_t
	if interest.Contains(pollio.EventIn) {
		out = append(out, kevent(fd, unix.EVFILT_READ, flags))
	}
	if interest.Contains(pollio.EventOut) {
		out = append(out, kevent(fd, unix.EVFILT_WRITE, flags))
	}
	return out
}

func fromKevent(ev unix.Kevent_t) pollio.Events {
	var out pollio.Events
	switch ev.Filter {
	case unix.EVFILT_READ:
		out |= pollio.EventIn
		if ev.Flags&unix.EV_EOF != 0 {
			out |= pollio.EventHUp
		}
	case unix.EVFILT_WRITE:
		out |= pollio.EventOut
		if ev.Flags&unix.EV_EOF != 0 {
			out |= pollio.EventHUp
		}
	}
	if ev.Flags&unix.EV_ERROR != 0 {
		out |= pollio.EventErr
	}
	return out
}
