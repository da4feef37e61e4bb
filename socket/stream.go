//go:build linux || darwin

// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package socket

import (
	"net"

	"github.com/joeycumines/pollio"
	"github.com/joeycumines/pollio/internal/reactor"
	"github.com/libp2p/go-reuseport"
	"golang.org/x/sys/unix"
)

// StreamListener is a non-blocking, reactor-backed listening socket for
// "tcp" or "unix" networks. Its only PollableFile-relevant event is EventIn:
// readable means a connection is waiting in the kernel's accept queue.
type StreamListener struct {
	*baseFile
	addr net.Addr
}

// ListenStream binds and listens on network ("tcp" or "unix") at address
// using go-reuseport (SO_REUSEPORT/SO_REUSEADDR, the same sockopt pattern a
// multi-reactor server process needs to share one listening address across
// workers), then lifts the resulting socket off Go's runtime netpoller and
// registers it with r for EventIn readiness. r may be nil: Accept still
// works as a direct non-blocking attempt, but nothing adds readiness to the
// listener's Pollee, so no background wakeups occur.
func ListenStream(network, address string, r *reactor.Reactor, opts ...pollio.Option) (*StreamListener, error) {
	family := FamilyInet
	if network == "unix" {
		family = FamilyUnix
	}

	ln, err := reuseport.Listen(network, address)
	if err != nil {
		return nil, err
	}
	addr := ln.Addr()

	fd, f, err := extractListenerFD(ln)
	ln.Close() // the lifted fd is an independent duplicate
	if err != nil {
		return nil, err
	}

	b := newBaseFile(fd, f, family, TypeStream, r, opts...)
	if err := b.register(pollio.EventIn); err != nil {
		b.Close()
		return nil, err
	}
	return &StreamListener{baseFile: b, addr: addr}, nil
}

// Addr returns the listener's bound address.
func (l *StreamListener) Addr() net.Addr { return l.addr }

// Accept performs one non-blocking accept4 attempt, returning
// pollio.ErrWouldBlock if the accept queue is currently empty.
func (l *StreamListener) Accept() (*StreamConn, error) {
	nfd, sa, err := unix.Accept4(l.fd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
	if err != nil {
		if err == unix.EAGAIN {
			l.pollee.DelEvents(pollio.EventIn)
			return nil, pollio.ErrWouldBlock
		}
		return nil, err
	}

	b := newBaseFile(nfd, nil, l.family, TypeStream, l.reactor)
	if err := b.register(pollio.EventIn | pollio.EventOut); err != nil {
		b.Close()
		return nil, err
	}
	return &StreamConn{baseFile: b, remote: sockaddrToAddr(sa)}, nil
}

// StreamConn is a non-blocking, reactor-backed connected stream socket.
type StreamConn struct {
	*baseFile
	remote net.Addr
}

// DialStream connects to address over network ("tcp" or "unix"), then lifts
// the resulting socket the same way ListenStream does. The connect itself
// runs to completion on an ordinary blocking dial before the descriptor is
// switched to non-blocking mode: this package's readiness machinery governs
// every Read/Write that follows, but the initial three-way handshake is left
// to net.Dial rather than reimplemented as a raw non-blocking connect(2).
func DialStream(network, address string, r *reactor.Reactor, opts ...pollio.Option) (*StreamConn, error) {
	family := FamilyInet
	if network == "unix" {
		family = FamilyUnix
	}

	conn, err := net.Dial(network, address)
	if err != nil {
		return nil, err
	}
	remote := conn.RemoteAddr()

	fd, f, err := extractConnFD(conn)
	conn.Close()
	if err != nil {
		return nil, err
	}

	b := newBaseFile(fd, f, family, TypeStream, r, opts...)
	if err := b.register(pollio.EventIn | pollio.EventOut); err != nil {
		b.Close()
		return nil, err
	}
	return &StreamConn{baseFile: b, remote: remote}, nil
}

// RemoteAddr returns the address of the connected peer, if known.
func (c *StreamConn) RemoteAddr() net.Addr { return c.remote }

// Shutdown half-closes the connection per how ("read", "write", or "both"),
// mirroring the shutdown(2) operation the stream variants of socket_file.rs
// expose and datagram sockets do not.
func (c *StreamConn) Shutdown(how string) error {
	var sysHow int
	switch how {
	case "read":
		sysHow = unix.SHUT_RD
	case "write":
		sysHow = unix.SHUT_WR
	case "both":
		sysHow = unix.SHUT_RDWR
	default:
		return pollio.WrapError("shutdown: unrecognized direction "+how, pollio.ErrInvalidArgument)
	}
	return unix.Shutdown(c.fd, sysHow)
}

// NewUnixSocketPair creates a connected pair of Unix-domain stream sockets
// via socketpair(2), the same primitive socket_file.rs's new_pair uses to
// hand two LibOS processes a private, kernel-mediated channel without a
// filesystem path. Neither end is registered with a Reactor, and their
// Pollees are not exported, so nothing adds readiness to them: an Async Read
// or Write on either end that has to suspend is not woken.
func NewUnixSocketPair() (a, b *StreamConn, err error) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, nil, err
	}
	ba := newBaseFile(fds[0], nil, FamilyUnix, TypeStream, nil)
	bb := newBaseFile(fds[1], nil, FamilyUnix, TypeStream, nil)
	return &StreamConn{baseFile: ba}, &StreamConn{baseFile: bb}, nil
}
