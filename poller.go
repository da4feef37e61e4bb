package pollio

import (
	"context"
	"sync"
	"time"
)

// Poller is a per-wait handle: it embeds exactly one Waiter and accumulates
// back-references to every Pollee it has been registered with via
// Pollee.PollBy, so that closing it removes every one of those
// subscriptions. It is the "B" of the four core components: Pollee
// publishes, Poller aggregates subscriptions for one suspension point, and
// the embedded Waiter is what actually gets woken.
//
// A Poller is created fresh for each slow-path round of an Async read or
// write and is single-shot: reusing one across unrelated logical waits is
// not supported, only across iterations of the same wait loop is (and even
// that is discouraged - see Async, which allocates a fresh Poller every
// loop iteration).
type Poller struct {
	w *Waiter

	mu     sync.Mutex
	regs   []registration
	closed bool
}

type registration struct {
	pollee *Pollee
	id     uint64
}

// NewPoller allocates a fresh Poller with a new embedded Waiter.
func NewPoller() *Poller {
	return &Poller{w: NewWaiter()}
}

// waiter exposes the embedded Waiter to Pollee.PollBy, which subscribes it.
func (p *Poller) waiter() *Waiter { return p.w }

// track records that this Poller is now subscribed to pollee under id, so
// Close can remove it later. Reports false if this Poller is already closed,
// in which case the caller (Pollee.PollBy, which holds pollee's own lock at
// the point it calls track) is responsible for removing the subscription it
// just added itself - track cannot do that here, since calling back into
// pollee.unsubscribe while pollee's lock is held by our caller would
// deadlock.
func (p *Poller) track(pollee *Pollee, id uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	p.regs = append(p.regs, registration{pollee: pollee, id: id})
	return true
}

// Wait suspends the calling goroutine until the embedded Waiter transitions
// to Woken or ctx is done.
func (p *Poller) Wait(ctx context.Context) error {
	return p.w.Wait(ctx)
}

// WaitTimeout is Wait composed with a deadline; see Waiter.WaitTimeout.
func (p *Poller) WaitTimeout(ctx context.Context, d *time.Duration) error {
	return p.w.WaitTimeout(ctx, d)
}

// Close is the Go analogue of dropping a Poller: it removes this Poller's
// Waiter from the subscriber list of every Pollee it was registered with,
// so no Pollee outlives this wait round holding a reference to a waiter
// nobody will ever look at again. Close is idempotent.
func (p *Poller) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	regs := p.regs
	p.regs = nil
	p.mu.Unlock()

	for _, r := range regs {
		r.pollee.unsubscribe(r.id)
	}
}
