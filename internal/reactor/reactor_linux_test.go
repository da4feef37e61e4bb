//go:build linux

// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package reactor

import (
	"context"
	"testing"
	"time"

	"github.com/joeycumines/pollio"
	"golang.org/x/sys/unix"
)

func TestToFromEpollRoundTrip(t *testing.T) {
	in := pollio.EventIn | pollio.EventOut | pollio.EventPri | pollio.EventRdHUp
	out := fromEpoll(toEpoll(in))
	if out != in {
		t.Fatalf("round trip mismatch: got %v, want %v", out, in)
	}
}

func TestFromEpollErrAndHupAreObservableOnly(t *testing.T) {
	// EPOLLERR/EPOLLHUP are never requested via toEpoll (the kernel always
	// reports them), but fromEpoll must still translate them for dispatch.
	got := fromEpoll(unix.EPOLLERR | unix.EPOLLHUP)
	want := pollio.EventErr | pollio.EventHUp
	if got != want {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestReactorPipeBecomesReadable(t *testing.T) {
	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		t.Fatalf("pipe2: %v", err)
	}
	readFD, writeFD := fds[0], fds[1]
	defer unix.Close(readFD)
	defer unix.Close(writeFD)

	r, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer r.Close()

	p := pollio.NewPollee(pollio.EventsNone)
	if err := r.Add(readFD, pollio.EventIn, p); err != nil {
		t.Fatalf("Add: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runErr := make(chan error, 1)
	go func() { runErr <- r.Run(ctx) }()

	if _, err := unix.Write(writeFD, []byte("x")); err != nil {
		t.Fatalf("write: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if p.Events().Contains(pollio.EventIn) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("pipe never became readable through the reactor")
}

func TestReactorAddDuplicateFDFails(t *testing.T) {
	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		t.Fatalf("pipe2: %v", err)
	}
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])

	r, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer r.Close()

	p := pollio.NewPollee(pollio.EventsNone)
	if err := r.Add(fds[0], pollio.EventIn, p); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := r.Add(fds[0], pollio.EventIn, p); err != ErrAlreadyRegistered {
		t.Fatalf("expected ErrAlreadyRegistered, got %v", err)
	}
}
