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
)

// Accept dispatches to StreamListener.Accept if s is one, returning
// pollio.ErrInvalidArgument for any other concrete type (including a
// DatagramConn, or a StreamConn that is already connected rather than
// listening). This is the tagged-dispatch boundary check that keeps callers
// working purely against AnySocket from needing a type switch of their own.
func Accept(s AnySocket) (*StreamConn, error) {
	l, ok := s.(*StreamListener)
	if !ok {
		return nil, pollio.WrapError("accept: not a listening stream socket", pollio.ErrInvalidArgument)
	}
	return l.Accept()
}

// SendMsg dispatches a send to s, routing by s.Type(): datagram sockets go
// through DatagramConn.SendMsg (which itself enforces the connected/unconnected
// destination-address rule), stream sockets go through plain Write and never
// accept a destination address: on a connected StreamConn one is
// pollio.ErrAlreadyConnected, on any other stream socket
// pollio.ErrInvalidArgument.
func SendMsg(s AnySocket, buf []byte, addr net.Addr) (int, error) {
	switch s.Type() {
	case TypeDatagram:
		d, ok := s.(*DatagramConn)
		if !ok {
			return 0, pollio.WrapError("sendmsg: not a datagram socket", pollio.ErrInvalidArgument)
		}
		return d.SendMsg(buf, addr)
	case TypeStream:
		if addr != nil {
			if _, ok := s.(*StreamConn); ok {
				return 0, pollio.WrapError("sendmsg: destination address on a connected stream socket", pollio.ErrAlreadyConnected)
			}
			return 0, pollio.WrapError("sendmsg: destination address on a stream socket", pollio.ErrInvalidArgument)
		}
		return s.Write(buf)
	default:
		return 0, pollio.WrapError("sendmsg: unrecognized socket type", pollio.ErrInvalidArgument)
	}
}

// RecvMsg dispatches a receive to s. Every AnySocket implementation reads the
// same way at this layer (connected datagram sockets and stream sockets both
// just Read); the helper exists so callers holding an AnySocket don't need
// their own type switch, and so a future family/type combination that needs
// different receive semantics has one place to add it.
func RecvMsg(s AnySocket, buf []byte) (int, error) {
	return s.Read(buf)
}
