package pollio

import (
	"context"
	"errors"
)

// PollableFile is what the async wrapper requires of the object it wraps:
// non-blocking I/O that signals "would block" rather than suspending, plus
// readiness polling and status flags. Concrete transports (see package
// socket) implement this by embedding a Pollee and delegating PollBy to it.
type PollableFile interface {
	// Read performs a non-blocking read. It returns ErrWouldBlock (wrapped
	// or exact, checked with errors.Is) if no data is currently available.
	Read(buf []byte) (int, error)
	// ReadV is the vectored form of Read. DefaultReadV implements the
	// fallback semantics described on it, for embedders that don't need
	// true scatter/gather.
	ReadV(bufs [][]byte) (int, error)
	// Write performs a non-blocking write.
	Write(buf []byte) (int, error)
	// WriteV is the vectored form of Write.
	WriteV(bufs [][]byte) (int, error)
	// PollBy returns the subset of mask currently satisfied and, if poller
	// is non-nil, registers it for future transitions within mask. See
	// Pollee.PollBy, which every implementation is expected to delegate to.
	PollBy(mask Events, poller *Poller) Events
	// StatusFlags returns the file's current status flags.
	StatusFlags() StatusFlags
	// SetStatusFlags updates the file's status flags.
	SetStatusFlags(flags StatusFlags) error
}

// ErrWouldBlock is the non-error readiness signal a PollableFile returns
// from a non-blocking I/O attempt that cannot complete immediately. It is
// never observed by a caller of Async unless the file's O_NONBLOCK flag is
// set; otherwise Async recovers it by waiting and retrying.
var ErrWouldBlock = errors.New("pollio: operation would block")

// DefaultReadV implements the readv fallback described for the pollable-file
// contract: delegate to the first non-empty buffer's scalar read and return,
// short-circuiting rather than performing true scatter/gather across every
// buffer. Whether this short-circuit is a hard contract or merely a default
// that real vectored implementations should override is an open question in
// the design this was drawn from; treat it as the latter.
func DefaultReadV(read func(buf []byte) (int, error), bufs [][]byte) (int, error) {
	for _, b := range bufs {
		if len(b) > 0 {
			return read(b)
		}
	}
	return 0, nil
}

// DefaultWriteV is the write-side twin of DefaultReadV.
func DefaultWriteV(write func(buf []byte) (int, error), bufs [][]byte) (int, error) {
	for _, b := range bufs {
		if len(b) > 0 {
			return write(b)
		}
	}
	return 0, nil
}

// Async extends a PollableFile with awaitable Read/ReadV/Write/WriteV. In
// Go, "awaitable" means "blocks the calling goroutine, honoring ctx
// cancellation" rather than returning a poll-style future; see Waiter for
// the reasoning.
//
// Async is itself stateless beyond the wrapped file: every per-call Poller
// lives on the call's stack, never on Async.
type Async struct {
	file PollableFile
}

// NewAsync wraps file with awaitable I/O methods.
func NewAsync(file PollableFile) *Async {
	return &Async{file: file}
}

// Inner returns the wrapped file.
func (a *Async) Inner() PollableFile { return a.file }

// StatusFlags delegates to the wrapped file.
func (a *Async) StatusFlags() StatusFlags { return a.file.StatusFlags() }

// SetStatusFlags delegates to the wrapped file.
func (a *Async) SetStatusFlags(flags StatusFlags) error { return a.file.SetStatusFlags(flags) }

// PollBy delegates to the wrapped file.
func (a *Async) PollBy(mask Events, poller *Poller) Events { return a.file.PollBy(mask, poller) }

// Read reads into buf, suspending (honoring ctx) if the file would block and
// O_NONBLOCK is not set.
func (a *Async) Read(ctx context.Context, buf []byte) (int, error) {
	return a.doIO(ctx, EventIn, func() (int, error) { return a.file.Read(buf) })
}

// ReadV is the vectored form of Read.
func (a *Async) ReadV(ctx context.Context, bufs [][]byte) (int, error) {
	return a.doIO(ctx, EventIn, func() (int, error) { return a.file.ReadV(bufs) })
}

// Write writes buf, suspending (honoring ctx) if the file would block and
// O_NONBLOCK is not set.
func (a *Async) Write(ctx context.Context, buf []byte) (int, error) {
	return a.doIO(ctx, EventOut, func() (int, error) { return a.file.Write(buf) })
}

// WriteV is the vectored form of Write.
func (a *Async) WriteV(ctx context.Context, bufs [][]byte) (int, error) {
	return a.doIO(ctx, EventOut, func() (int, error) { return a.file.WriteV(bufs) })
}

// doIO is the fast-path / slow-path loop shared by Read, ReadV, Write and
// WriteV, direction-parameterized by dir (EventIn or EventOut).
//
// The O_NONBLOCK flag is sampled exactly once, at entry, into nonblocking:
// a concurrent SetStatusFlags call partway through must not change what
// this call decides to do. If it's set, op is tried once and whatever it
// returns - including ErrWouldBlock - goes straight back to the caller; the
// function never reaches the slow-path loop at all.
//
// The slow path subscribes before it retries: PollBy is called (registering
// a fresh Poller with the file's Pollee) before op is retried, and the
// retry happens before the suspend. Any ordering that tries the I/O again
// after computing readiness but before subscribing can drop a wakeup - an
// edge landing in the gap would never be observed by anyone. A fresh Poller
// is allocated and closed every iteration; that is deliberately cheaper to
// reason about than trying to reuse one whose bookkeeping might overlap
// with a concurrent wake.
func (a *Async) doIO(ctx context.Context, dir Events, op func() (int, error)) (int, error) {
	nonblocking := a.isNonblocking()

	if n, err := op(); shouldReturn(err, nonblocking) {
		return n, err
	}

	for {
		n, err, done, waitErr := a.slowPathIteration(ctx, dir, nonblocking, op)
		if done {
			return n, err
		}
		if waitErr != nil {
			return 0, waitErr
		}
	}
}

func (a *Async) slowPathIteration(ctx context.Context, dir Events, nonblocking bool, op func() (int, error)) (n int, err error, done bool, waitErr error) {
	poller := NewPoller()
	defer poller.Close()

	events := a.file.PollBy(dir, poller)
	if events.Contains(dir) {
		if n, err := op(); shouldReturn(err, nonblocking) {
			return n, err, true, nil
		}
	}

	return 0, nil, false, poller.Wait(ctx)
}

func (a *Async) isNonblocking() bool {
	return a.file.StatusFlags().Contains(ONonblock)
}

// shouldReturn reports whether an I/O attempt's result should be surfaced to
// the Async caller immediately rather than triggering the slow-path retry
// loop: either the file is non-blocking (which never suspends) or the
// result is something other than "would block".
func shouldReturn(err error, nonblocking bool) bool {
	return nonblocking || !errors.Is(err, ErrWouldBlock)
}
