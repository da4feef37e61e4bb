//go:build linux || darwin

// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package socket

import (
	"context"
	"testing"
	"time"

	"github.com/joeycumines/pollio/internal/reactor"
)

func TestAsyncAcceptorSuspendsThenWakes(t *testing.T) {
	r, err := reactor.New()
	if err != nil {
		t.Fatalf("reactor.New: %v", err)
	}
	defer r.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	ln, err := ListenStream("tcp", "127.0.0.1:0", r)
	if err != nil {
		t.Fatalf("ListenStream: %v", err)
	}
	defer ln.Close()

	addr := ln.Addr()

	acceptor := NewAsyncAcceptor(ln)
	accepted := make(chan *StreamConn, 1)
	acceptErr := make(chan error, 1)
	go func() {
		conn, err := acceptor.Accept(context.Background())
		if err != nil {
			acceptErr <- err
			return
		}
		accepted <- conn
	}()

	// Give Accept a chance to observe an empty queue and subscribe before a
	// connection shows up, exercising the suspend-then-wake path rather than
	// the immediate fast path.
	time.Sleep(20 * time.Millisecond)

	client, err := DialStream("tcp", addr.String(), r)
	if err != nil {
		t.Fatalf("DialStream: %v", err)
	}
	defer client.Close()

	select {
	case conn := <-accepted:
		defer conn.Close()
	case err := <-acceptErr:
		t.Fatalf("accept: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for accept")
	}
}

func TestAsyncAcceptorContextCancellation(t *testing.T) {
	r, err := reactor.New()
	if err != nil {
		t.Fatalf("reactor.New: %v", err)
	}
	defer r.Close()

	runCtx, cancelRun := context.WithCancel(context.Background())
	defer cancelRun()
	go r.Run(runCtx)

	ln, err := ListenStream("tcp", "127.0.0.1:0", r)
	if err != nil {
		t.Fatalf("ListenStream: %v", err)
	}
	defer ln.Close()

	acceptor := NewAsyncAcceptor(ln)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := acceptor.Accept(ctx); err == nil {
		t.Fatal("expected an error from a pre-cancelled context")
	}
}
