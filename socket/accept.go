//go:build linux || darwin

// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package socket

import (
	"context"
	"errors"

	"github.com/joeycumines/pollio"
)

// AsyncAcceptor adds an awaitable Accept to a StreamListener, the same
// fast-path/slow-path shape pollio.Async gives Read/Write: a non-blocking
// accept4 is tried first, and only suspends on EventIn if the accept queue
// was empty. Accept itself isn't part of the pollio.PollableFile contract
// (it has no buffer and no EventOut side), so it can't just reuse Async
// directly - this is the same loop, parameterized for a nullary op instead
// of a buffer-taking one.
type AsyncAcceptor struct {
	ln *StreamListener
}

// NewAsyncAcceptor wraps ln with an awaitable Accept.
func NewAsyncAcceptor(ln *StreamListener) *AsyncAcceptor {
	return &AsyncAcceptor{ln: ln}
}

// Accept accepts the next connection, suspending (honoring ctx) if the
// accept queue is currently empty and ln is not in non-blocking mode.
func (a *AsyncAcceptor) Accept(ctx context.Context) (*StreamConn, error) {
	nonblocking := a.ln.StatusFlags().Contains(pollio.ONonblock)

	if conn, err := a.ln.Accept(); nonblocking || !errors.Is(err, pollio.ErrWouldBlock) {
		return conn, err
	}

	for {
		poller := pollio.NewPoller()
		events := a.ln.PollBy(pollio.EventIn, poller)
		if events.Contains(pollio.EventIn) {
			conn, err := a.ln.Accept()
			if nonblocking || !errors.Is(err, pollio.ErrWouldBlock) {
				poller.Close()
				return conn, err
			}
		}
		waitErr := poller.Wait(ctx)
		poller.Close()
		if waitErr != nil {
			return nil, waitErr
		}
	}
}
