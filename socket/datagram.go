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
)

// DatagramConn is a non-blocking, reactor-backed UDP or Unix-domain
// datagram socket. It may be connected (DialDatagram: every send/receive
// implicitly targets/filters one peer) or unconnected (ListenDatagram);
// connectedness is tracked so SendMsg can enforce the boundary rule
// documented on pollio.ErrAlreadyConnected. Sends to an explicit destination
// are not supported (see SendMsg), and receives do not report a source.
type DatagramConn struct {
	*baseFile
	connected bool
}

// ListenDatagram opens an unconnected datagram socket bound to address on
// network ("udp" or "unixgram").
func ListenDatagram(network, address string, r *reactor.Reactor, opts ...pollio.Option) (*DatagramConn, error) {
	family := FamilyInet
	if network == "unixgram" {
		family = FamilyUnix
	}

	pc, err := reuseport.ListenPacket(network, address)
	if err != nil {
		return nil, err
	}

	fd, f, err := extractPacketConnFD(pc)
	pc.Close()
	if err != nil {
		return nil, err
	}

	b := newBaseFile(fd, f, family, TypeDatagram, r, opts...)
	if err := b.register(pollio.EventIn | pollio.EventOut); err != nil {
		b.Close()
		return nil, err
	}
	return &DatagramConn{baseFile: b}, nil
}

// DialDatagram opens a connected datagram socket: every subsequent Read and
// Write target the one peer dialed here, matching connect(2)'s effect on a
// SOCK_DGRAM descriptor.
func DialDatagram(network, address string, r *reactor.Reactor, opts ...pollio.Option) (*DatagramConn, error) {
	family := FamilyInet
	if network == "unixgram" {
		family = FamilyUnix
	}

	conn, err := net.Dial(network, address)
	if err != nil {
		return nil, err
	}

	fd, f, err := extractPacketConnFD(conn.(net.PacketConn))
	conn.Close()
	if err != nil {
		return nil, err
	}

	b := newBaseFile(fd, f, family, TypeDatagram, r, opts...)
	if err := b.register(pollio.EventIn | pollio.EventOut); err != nil {
		b.Close()
		return nil, err
	}
	return &DatagramConn{baseFile: b, connected: true}, nil
}

// SendMsg writes buf. If addr is non-nil, it is used as an explicit
// destination (unconnected, sendto-style send); this is an error -
// pollio.ErrAlreadyConnected - if the socket is connected, mirroring the
// real sendto(2) restriction the original design's error taxonomy names
// explicitly.
//
// addr is otherwise unused: the underlying fd is always reached through
// plain Write, which sends to the peer DialDatagram fixed; an unconnected
// socket has no such peer, so a nil-addr SendMsg on it fails with the
// kernel's own error. A destination-carrying send to an unconnected socket
// is not supported and returns pollio.ErrNotSupported.
func (d *DatagramConn) SendMsg(buf []byte, addr net.Addr) (int, error) {
	if addr != nil {
		if d.connected {
			return 0, pollio.WrapError("sendmsg", pollio.ErrAlreadyConnected)
		}
		return 0, pollio.WrapError("sendmsg: destination address", pollio.ErrNotSupported)
	}
	return d.Write(buf)
}
