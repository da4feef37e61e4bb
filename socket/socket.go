//go:build linux || darwin

// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// Package socket provides concrete, reactor-backed pollio.PollableFile
// implementations over raw POSIX sockets: TCP/IPv4 and Unix-domain streams,
// plus UDP/IPv4 and Unix-domain datagrams. Every concrete type is a thin
// non-blocking wrapper around a file descriptor; none of them touch Go's
// runtime network poller, since the whole point is that this package's own
// reactor owns readiness for these descriptors.
//
// The three concrete types (StreamConn, StreamListener, DatagramConn), with
// the family/type tag each carries, are the boundary adapter described for
// socket files generally: code operating over AnySocket dispatches on the
// Family/Type tag rather than assuming any one concrete type, the same
// shape as a tagged union matched exhaustively.
package socket

import (
	"os"
	"sync/atomic"

	"github.com/joeycumines/pollio"
	"github.com/joeycumines/pollio/internal/reactor"
	"golang.org/x/sys/unix"
)

// Family identifies the address family a socket was created for.
type Family int

const (
	FamilyInet Family = iota
	FamilyUnix
)

func (f Family) String() string {
	if f == FamilyUnix {
		return "unix"
	}
	return "inet"
}

// Type identifies whether a socket is connection-oriented or message-based.
type Type int

const (
	TypeStream Type = iota
	TypeDatagram
)

func (t Type) String() string {
	if t == TypeDatagram {
		return "datagram"
	}
	return "stream"
}

// AnySocket is the tagged-dispatch boundary every concrete socket type in
// this package satisfies: enough to identify what it is and to participate
// as a pollio.PollableFile, without committing to which concrete operations
// (Accept, SendMsg, Shutdown...) it supports. See the package-level dispatch
// helpers (Accept, SendMsg, RecvMsg) for the boundary checks that turn "the
// wrong operation for this family/type" into pollio.ErrInvalidArgument
// rather than a panic or a type-assertion crash.
type AnySocket interface {
	pollio.PollableFile
	Family() Family
	Type() Type
	FD() int
	Close() error
}

// baseFile is the shared, embeddable core of every concrete socket type: a
// non-blocking file descriptor, the Pollee publishing its readiness, and
// (optionally) the Reactor driving that Pollee from epoll/kqueue. Read and
// Write are defined once here and reused by StreamConn and DatagramConn.
type baseFile struct {
	fd       int
	file     *os.File // non-nil iff fd was lifted from a net.Listener/Conn/PacketConn via File(); kept alive so its finalizer never races a live fd, and closed in place of a raw unix.Close.
	family   Family
	typ      Type
	pollee   *pollio.Pollee
	reactor  *reactor.Reactor
	flags    atomic.Uint32
	closed   atomic.Bool
}

// newBaseFile wraps an already-non-blocking kernel fd. That O_NONBLOCK is an
// OS-level property set once by fd.go/Accept and never revisited; it is
// independent of the cached StatusFlags here, which govern the
// pollio.Async contract instead (whether the wrapper itself surfaces
// ErrWouldBlock to the caller or suspends and retries). StatusFlags
// therefore starts empty - awaiting semantics by default - leaving the
// caller free to opt into non-suspending behavior via SetStatusFlags.
//
// file is the *os.File fd was obtained from via File() (fd.go's
// extractListenerFD/extractConnFD/extractPacketConnFD), or nil if fd came
// from somewhere else entirely (unix.Accept4, unix.Socketpair). When
// non-nil, baseFile retains it for its own lifetime: fd is the dup Fd()
// handed back, owned by file, and an *os.File with no remaining references
// is finalized by the Go runtime by closing that same fd out from under
// whoever still thinks they own it. Storing file here - not just its
// integer fd - is what keeps that finalizer from ever running early.
func newBaseFile(fd int, file *os.File, family Family, typ Type, r *reactor.Reactor, opts ...pollio.Option) *baseFile {
	b := &baseFile{fd: fd, file: file, family: family, typ: typ, reactor: r}
	b.pollee = pollio.NewPollee(pollio.EventsNone, opts...)
	return b
}

func (b *baseFile) FD() int          { return b.fd }
func (b *baseFile) Family() Family   { return b.family }
func (b *baseFile) Type() Type       { return b.typ }

func (b *baseFile) StatusFlags() pollio.StatusFlags {
	return pollio.StatusFlags(b.flags.Load())
}

// SetStatusFlags updates the cached flags. Only ONonblock is meaningful to
// this package; every other bit is round-tripped without effect, matching
// the contract documented on pollio.StatusFlags.
func (b *baseFile) SetStatusFlags(flags pollio.StatusFlags) error {
	b.flags.Store(uint32(flags))
	return nil
}

func (b *baseFile) PollBy(mask pollio.Events, poller *pollio.Poller) pollio.Events {
	return b.pollee.PollBy(mask, poller)
}

// readRaw performs one non-blocking read attempt, translating EAGAIN/EWOULDBLOCK
// into pollio.ErrWouldBlock and clearing EventIn from the Pollee so the
// reactor's next AddEvents call is the one a waiter actually needed, instead
// of a stale level-triggered repeat of readiness this call already consumed.
func (b *baseFile) readRaw(buf []byte) (int, error) {
	n, err := unix.Read(b.fd, buf)
	if err != nil {
		if err == unix.EAGAIN {
			b.pollee.DelEvents(pollio.EventIn)
			return 0, pollio.ErrWouldBlock
		}
		return 0, err
	}
	return n, nil
}

func (b *baseFile) writeRaw(buf []byte) (int, error) {
	n, err := unix.Write(b.fd, buf)
	if err != nil {
		if err == unix.EAGAIN {
			b.pollee.DelEvents(pollio.EventOut)
			return 0, pollio.ErrWouldBlock
		}
		return 0, err
	}
	return n, nil
}

func (b *baseFile) Read(buf []byte) (int, error)  { return b.readRaw(buf) }
func (b *baseFile) Write(buf []byte) (int, error) { return b.writeRaw(buf) }

func (b *baseFile) ReadV(bufs [][]byte) (int, error) {
	return pollio.DefaultReadV(b.readRaw, bufs)
}

func (b *baseFile) WriteV(bufs [][]byte) (int, error) {
	return pollio.DefaultWriteV(b.writeRaw, bufs)
}

// register asks the reactor to drive this file's Pollee for the given
// interest. A nil reactor (constructed without one, e.g. in a unit test) is
// a no-op: PollBy still reports readiness checked synchronously by
// whoever calls it, there is simply nothing pushing new edges in.
func (b *baseFile) register(interest pollio.Events) error {
	if b.reactor == nil {
		return nil
	}
	return b.reactor.Add(b.fd, interest, b.pollee)
}

func (b *baseFile) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}
	if b.reactor != nil {
		_ = b.reactor.Remove(b.fd)
	}
	// file, when present, owns fd: closing it (rather than a raw unix.Close)
	// both releases the descriptor and drops baseFile's reference keeping its
	// finalizer at bay, in one step.
	if b.file != nil {
		return b.file.Close()
	}
	return unix.Close(b.fd)
}
