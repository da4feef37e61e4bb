package pollio

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeFile is a minimal in-memory PollableFile backing the Async tests: Read
// succeeds once readable is set, otherwise it reports ErrWouldBlock.
type fakeFile struct {
	pollee *Pollee

	mu       sync.Mutex
	readable bool
	writable bool
	flags    StatusFlags

	readN  int
	readErr error
	writeN  int
	writeErr error
}

func newFakeFile() *fakeFile {
	return &fakeFile{pollee: NewPollee(EventsNone)}
}

func (f *fakeFile) setReadable(n int, err error) {
	f.mu.Lock()
	f.readable = true
	f.readN, f.readErr = n, err
	f.mu.Unlock()
	f.pollee.AddEvents(EventIn)
}

func (f *fakeFile) setWritable(n int, err error) {
	f.mu.Lock()
	f.writable = true
	f.writeN, f.writeErr = n, err
	f.mu.Unlock()
	f.pollee.AddEvents(EventOut)
}

func (f *fakeFile) Read(buf []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.readable {
		return 0, ErrWouldBlock
	}
	f.readable = false
	return f.readN, f.readErr
}

func (f *fakeFile) ReadV(bufs [][]byte) (int, error)  { return DefaultReadV(f.Read, bufs) }
func (f *fakeFile) Write(buf []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.writable {
		return 0, ErrWouldBlock
	}
	f.writable = false
	return f.writeN, f.writeErr
}
func (f *fakeFile) WriteV(bufs [][]byte) (int, error) { return DefaultWriteV(f.Write, bufs) }

func (f *fakeFile) PollBy(mask Events, poller *Poller) Events { return f.pollee.PollBy(mask, poller) }

func (f *fakeFile) StatusFlags() StatusFlags {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.flags
}

func (f *fakeFile) SetStatusFlags(flags StatusFlags) error {
	f.mu.Lock()
	f.flags = flags
	f.mu.Unlock()
	return nil
}

func TestAsyncReadFastPath(t *testing.T) {
	f := newFakeFile()
	f.setReadable(3, nil)
	a := NewAsync(f)

	n, err := a.Read(context.Background(), make([]byte, 8))
	if err != nil || n != 3 {
		t.Fatalf("got n=%d err=%v", n, err)
	}
}

func TestAsyncReadSuspendsThenWakes(t *testing.T) {
	f := newFakeFile()
	a := NewAsync(f)

	result := make(chan struct {
		n   int
		err error
	}, 1)

	go func() {
		n, err := a.Read(context.Background(), make([]byte, 8))
		result <- struct {
			n   int
			err error
		}{n, err}
	}()

	time.Sleep(20 * time.Millisecond)
	f.setReadable(5, nil)

	select {
	case r := <-result:
		if r.err != nil || r.n != 5 {
			t.Fatalf("got n=%d err=%v", r.n, r.err)
		}
	case <-time.After(time.Second):
		t.Fatal("Async.Read never returned after becoming readable")
	}
}

func TestAsyncNonblockingReturnsWouldBlockImmediately(t *testing.T) {
	f := newFakeFile()
	f.SetStatusFlags(ONonblock)
	a := NewAsync(f)

	_, err := a.Read(context.Background(), make([]byte, 8))
	if !errors.Is(err, ErrWouldBlock) {
		t.Fatalf("expected ErrWouldBlock, got %v", err)
	}
}

func TestAsyncReadPropagatesRealError(t *testing.T) {
	f := newFakeFile()
	boom := errors.New("boom")
	f.setReadable(0, boom)
	a := NewAsync(f)

	_, err := a.Read(context.Background(), make([]byte, 8))
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestAsyncWriteSuspendsThenWakes(t *testing.T) {
	f := newFakeFile()
	a := NewAsync(f)

	result := make(chan error, 1)
	go func() {
		_, err := a.Write(context.Background(), []byte("hi"))
		result <- err
	}()

	time.Sleep(20 * time.Millisecond)
	f.setWritable(2, nil)

	select {
	case err := <-result:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Async.Write never returned")
	}
}

func TestAsyncReadContextCancellation(t *testing.T) {
	f := newFakeFile()
	a := NewAsync(f)

	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	go func() {
		_, err := a.Read(ctx, make([]byte, 8))
		result <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-result:
		if err == nil {
			t.Fatal("expected cancellation error")
		}
	case <-time.After(time.Second):
		t.Fatal("Async.Read did not honor context cancellation")
	}
}
