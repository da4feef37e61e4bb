// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// Package reactor drives pollio.Pollee readiness masks from an OS-native
// event multiplexer (epoll on Linux, kqueue on Darwin). It is the piece that
// sits below the socket package's PollableFile implementations: a socket
// registers its raw file descriptor with a Reactor, and the Reactor's Run
// loop translates every readiness notification the kernel delivers into
// Pollee.AddEvents calls.
//
// This package never touches application-level read/write semantics; it only
// ever asks "is fd N ready for in/out/err", using the same Events bitset the
// rest of pollio exposes. Level-triggering means a registered fd will keep
// reporting Events it hasn't been told to drop: it is the caller's job (see
// socket.baseFile) to call Pollee.DelEvents once a read or write attempt
// actually observes would-block, rather than waiting for the kernel to stop
// repeating itself.
package reactor

import (
	"errors"
	"sync"

	"github.com/joeycumines/pollio"
)

// ErrClosed is returned by Add, Modify, and Remove once the Reactor has been
// closed.
var ErrClosed = errors.New("reactor: closed")

// ErrNotRegistered is returned by Modify and Remove for an fd with no active
// registration.
var ErrNotRegistered = errors.New("reactor: fd not registered")

// ErrAlreadyRegistered is returned by Add when fd already has a
// registration.
var ErrAlreadyRegistered = errors.New("reactor: fd already registered")

// entry pairs a registered fd with the Pollee whose mask it drives.
type entry struct {
	pollee   *pollio.Pollee
	interest pollio.Events
}

// registry is the OS-independent bookkeeping shared by every backend: it
// maps fd to entry under a single mutex, mirroring the teacher's fdInfo
// table but keyed by the domain's Pollee instead of a callback closure.
type registry struct {
	mu     sync.RWMutex
	fds    map[int]*entry
	closed bool
}

func newRegistry() *registry {
	return &registry{fds: make(map[int]*entry)}
}

func (r *registry) put(fd int, e *entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	if _, ok := r.fds[fd]; ok {
		return ErrAlreadyRegistered
	}
	r.fds[fd] = e
	return nil
}

func (r *registry) get(fd int) (*entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.fds[fd]
	return e, ok
}

func (r *registry) update(fd int, interest pollio.Events) (*entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrClosed
	}
	e, ok := r.fds[fd]
	if !ok {
		return nil, ErrNotRegistered
	}
	e.interest = interest
	return e, nil
}

func (r *registry) remove(fd int) (*entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.fds[fd]
	if !ok {
		return nil, ErrNotRegistered
	}
	delete(r.fds, fd)
	return e, nil
}

func (r *registry) markClosed() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
}

// dispatch applies a readiness observation for fd: it ORs the observed
// subset of interest into the associated Pollee's mask. Unknown fds (raced
// against a concurrent Remove) are silently dropped, matching the teacher
// poller's behavior of ignoring events for an fd that left the table between
// the syscall returning and dispatch running.
func (r *registry) dispatch(fd int, observed pollio.Events) {
	r.mu.RLock()
	e, ok := r.fds[fd]
	r.mu.RUnlock()
	if !ok {
		return
	}
	delta := observed & e.interest
	if delta != 0 {
		e.pollee.AddEvents(delta)
	}
}
