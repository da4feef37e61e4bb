package pollio

import (
	"context"
	"testing"
	"time"
)

func TestPollerWaitTimeout(t *testing.T) {
	poller := NewPoller()
	defer poller.Close()

	d := 10 * time.Millisecond
	if err := poller.WaitTimeout(context.Background(), &d); err != ErrWaiterTimedOut {
		t.Fatalf("expected timeout, got %v", err)
	}
}

func TestPollerCloseIsIdempotent(t *testing.T) {
	p := NewPollee(EventsNone)
	poller := NewPoller()
	p.PollBy(EventIn, poller)

	poller.Close()
	poller.Close() // must not panic or double-unsubscribe badly

	if p.subscriberCount() != 0 {
		t.Fatalf("expected 0 subscribers, got %d", p.subscriberCount())
	}
}

func TestPollerTracksMultiplePollees(t *testing.T) {
	a := NewPollee(EventsNone)
	b := NewPollee(EventsNone)
	poller := NewPoller()

	a.PollBy(EventIn, poller)
	b.PollBy(EventOut, poller)

	poller.Close()

	if a.subscriberCount() != 0 || b.subscriberCount() != 0 {
		t.Fatal("expected Close to unsubscribe from every tracked Pollee")
	}
}

func TestPollerTrackAfterCloseUnsubscribesImmediately(t *testing.T) {
	// A Pollee racing AddEvents/PollBy concurrently with Close must not leak
	// a registration onto an already-closed Poller.
	p := NewPollee(EventsNone)
	poller := NewPoller()
	poller.Close()

	p.PollBy(EventIn, poller)

	if p.subscriberCount() != 0 {
		t.Fatalf("expected PollBy to drop the subscription post-Close, got %d", p.subscriberCount())
	}
}
