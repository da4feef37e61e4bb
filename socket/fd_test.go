//go:build linux || darwin

// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package socket

import (
	"context"
	"runtime"
	"testing"

	"github.com/joeycumines/pollio"
)

// TestLiftedSocketSurvivesGC is a regression guard for a bug where a socket
// built from a lifted *os.File (ListenStream, DialStream, ListenDatagram,
// DialDatagram) would have its fd closed out from under it by the *os.File's
// finalizer once nothing else referenced that *os.File - which, before
// baseFile retained it, was true the instant ListenStream/DialStream
// returned. A single round trip completing inside one GC cycle can't
// observe this; forcing a GC between construction and use can.
func TestLiftedSocketSurvivesGC(t *testing.T) {
	// NewUnixSocketPair's fds have no lifted *os.File at all (they come
	// straight from socketpair(2)), so this exercises the actually-affected
	// path instead: a listener and a dialed connection built the way
	// ListenStream/DialStream always are, via
	// extractListenerFD/extractConnFD.
	ln, err := ListenStream("tcp", "127.0.0.1:0", nil)
	if err != nil {
		t.Fatalf("ListenStream: %v", err)
	}
	defer ln.Close()

	client, err := DialStream("tcp", ln.Addr().String(), nil)
	if err != nil {
		t.Fatalf("DialStream: %v", err)
	}
	defer client.Close()

	// Force several full GC cycles here. Before baseFile retained the
	// lifted *os.File, this would run the files' finalizers and close the
	// fds the client and the listener (which Accept reads from) still
	// depend on.
	runtime.GC()
	runtime.GC()

	var server *StreamConn
	for i := 0; i < 1000; i++ {
		server, err = ln.Accept()
		if err == pollio.ErrWouldBlock {
			continue
		}
		if err != nil {
			t.Fatalf("accept: %v", err)
		}
		break
	}
	if server == nil {
		t.Fatal("accept never became ready")
	}
	defer server.Close()

	runtime.GC()
	runtime.GC()

	async := pollio.NewAsync(client)
	if _, err := async.Write(context.Background(), []byte("still alive")); err != nil {
		t.Fatalf("write after GC: %v", err)
	}

	runtime.GC()
	runtime.GC()

	buf := make([]byte, 32)
	serverAsync := pollio.NewAsync(server)
	n, err := serverAsync.Read(context.Background(), buf)
	if err != nil {
		t.Fatalf("read after GC: %v", err)
	}
	if string(buf[:n]) != "still alive" {
		t.Fatalf("got %q", buf[:n])
	}
}
