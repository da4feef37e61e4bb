//go:build linux || darwin

// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package socket

import (
	"fmt"
	"net"
	"os"

	"golang.org/x/sys/unix"
)

// extractListenerFD type-switches over the concrete net.Listener
// implementations go-reuseport (and the standard library) produce, since
// *net.TCPListener and *net.UnixListener expose File with different result
// types that don't unify behind one interface without an adapter. It
// returns the lifted *os.File alongside its fd - see setNonblock - the
// caller must keep that *os.File referenced for as long as it uses fd.
func extractListenerFD(ln net.Listener) (int, *os.File, error) {
	switch t := ln.(type) {
	case *net.TCPListener:
		f, err := t.File()
		if err != nil {
			return 0, nil, err
		}
		return setNonblock(f)
	case *net.UnixListener:
		f, err := t.File()
		if err != nil {
			return 0, nil, err
		}
		return setNonblock(f)
	default:
		return 0, nil, fmt.Errorf("socket: unsupported listener type %T", ln)
	}
}

// extractConnFD is the net.Conn analogue of extractListenerFD.
func extractConnFD(conn net.Conn) (int, *os.File, error) {
	switch t := conn.(type) {
	case *net.TCPConn:
		f, err := t.File()
		if err != nil {
			return 0, nil, err
		}
		return setNonblock(f)
	case *net.UnixConn:
		f, err := t.File()
		if err != nil {
			return 0, nil, err
		}
		return setNonblock(f)
	default:
		return 0, nil, fmt.Errorf("socket: unsupported conn type %T", conn)
	}
}

// setNonblock finishes the lift: f.Fd() is a dup independent of the
// original net.Listener/net.Conn/net.PacketConn, owned by f. f (not just its
// integer fd) must be kept alive for as long as fd is in use - an *os.File
// with no remaining references gets finalized by closing the fd it owns,
// which would silently pull the rug out from under a live socket. Callers
// thread f through to baseFile, which retains it and closes it (rather than
// a raw unix.Close) in its own Close.
func setNonblock(f *os.File) (int, *os.File, error) {
	fd := int(f.Fd())
	if err := unix.SetNonblock(fd, true); err != nil {
		f.Close()
		return 0, nil, err
	}
	return fd, f, nil
}

// extractPacketConnFD is the net.PacketConn analogue of extractListenerFD,
// covering the concrete types go-reuseport's ListenPacket and net.Dial
// ("udp"/"unixgram") actually return.
func extractPacketConnFD(pc net.PacketConn) (int, *os.File, error) {
	switch t := pc.(type) {
	case *net.UDPConn:
		f, err := t.File()
		if err != nil {
			return 0, nil, err
		}
		return setNonblock(f)
	case *net.UnixConn:
		f, err := t.File()
		if err != nil {
			return 0, nil, err
		}
		return setNonblock(f)
	default:
		return 0, nil, fmt.Errorf("socket: unsupported packet conn type %T", pc)
	}
}

// sockaddrToAddr converts a raw unix.Sockaddr (as returned by Accept4) into
// a net.Addr, for the subset of address families this package supports.
func sockaddrToAddr(sa unix.Sockaddr) net.Addr {
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		return &net.TCPAddr{IP: append([]byte(nil), a.Addr[:]...), Port: a.Port}
	case *unix.SockaddrInet6:
		return &net.TCPAddr{IP: append([]byte(nil), a.Addr[:]...), Port: a.Port}
	case *unix.SockaddrUnix:
		return &net.UnixAddr{Name: a.Name, Net: "unix"}
	default:
		return nil
	}
}
