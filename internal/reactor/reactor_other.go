//go:build !linux && !darwin

// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package reactor

import (
	"context"
	"errors"

	"github.com/joeycumines/pollio"
)

// ErrUnsupported is returned by New on platforms without a Reactor backend.
// The teacher carried an IOCP implementation for Windows, but IOCP is a
// completion-based model: it tells you an operation finished, not that one
// may now be attempted without blocking, which is the readiness contract
// PollableFile.PollBy and this package's Reactor.Add are built around.
// Bridging that gap needs a pre-posted-buffer design that is out of scope
// here; socket transports on unsupported platforms simply have no reactor to
// register with.
var ErrUnsupported = errors.New("reactor: unsupported platform")

// Reactor is a stub on platforms without epoll or kqueue.
type Reactor struct{}

// New always fails on unsupported platforms.
func New() (*Reactor, error) { return nil, ErrUnsupported }

func (r *Reactor) Add(fd int, interest pollio.Events, pollee *pollio.Pollee) error {
	return ErrUnsupported
}

func (r *Reactor) Modify(fd int, interest pollio.Events) error { return ErrUnsupported }

func (r *Reactor) Remove(fd int) error { return ErrUnsupported }

func (r *Reactor) Run(ctx context.Context) error { return ErrUnsupported }

func (r *Reactor) Close() error { return nil }
