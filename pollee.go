package pollio

import "sync"

// Pollee is a readiness-event publisher: it owns a current event mask and a
// registry of pollers interested in transitions of that mask. It is the
// component every pollable file embeds to implement PollableFile.PollBy.
//
// The mask and the subscriber registry are protected by a single mutex so
// that, from the point of view of any caller, mutating the mask and scanning
// subscribers appear atomic. That is the invariant the whole package leans
// on: a subscription registered under the same critical section as a mask
// read can never miss the edge that read was racing against.
type Pollee struct {
	mu      sync.Mutex
	mask    Events
	subs    map[uint64]*subscription
	nextSub uint64
	logger  Logger
}

type subscription struct {
	waiter   *Waiter
	interest Events
}

// NewPollee creates a Pollee with the given initial mask and no subscribers.
func NewPollee(initial Events, opts ...Option) *Pollee {
	cfg, err := resolveOptions(opts)
	if err != nil {
		// Every built-in Option is infallible; a custom Option returning an
		// error is a caller bug, not something a Pollee constructor can
		// recover from.
		panic(err)
	}
	return &Pollee{
		mask:   initial,
		subs:   make(map[uint64]*subscription),
		logger: cfg.logger,
	}
}

// PollBy computes the currently satisfied subset of mask and, if poller is
// non-nil, registers poller's waiter for future transitions within mask
// before returning.
//
// Registration happens before the mask is read back to the caller - not
// after. If it happened after, an edge landing between the read and the
// registration would be lost forever; the caller would have already
// concluded "not ready yet" and gone to sleep on a waiter nothing will ever
// wake. Subscribing first means the worst case is one spurious wakeup, never
// a missed one.
func (p *Pollee) PollBy(mask Events, poller *Poller) Events {
	p.mu.Lock()
	defer p.mu.Unlock()

	if poller != nil {
		id := p.nextSub
		p.nextSub++
		p.subs[id] = &subscription{waiter: poller.waiter(), interest: mask}
		if !poller.track(p, id) {
			// poller was already closed; don't leave a dangling subscription
			// nobody will ever clean up.
			delete(p.subs, id)
		}
	}

	return p.mask & mask
}

// AddEvents ORs delta into the current mask and wakes every subscriber whose
// interest intersects delta. Waking a subscriber does not remove it from the
// registry; subscribers are removed only when their owning Poller drops.
func (p *Pollee) AddEvents(delta Events) {
	if delta == 0 {
		return
	}
	p.mu.Lock()
	p.mask |= delta
	toWake := p.collectInterested(delta)
	p.mu.Unlock()

	for _, w := range toWake {
		w.Wake()
	}
	p.logger.Log(LogEntry{Level: LevelDebug, Category: "pollee", Message: "add_events", Delta: delta, Woken: len(toWake)})
}

// DelEvents AND-NOTs delta out of the current mask. No wakeups are produced:
// losing readiness is never something a waiter needs to be notified about.
func (p *Pollee) DelEvents(delta Events) {
	p.mu.Lock()
	p.mask &^= delta
	p.mu.Unlock()
	p.logger.Log(LogEntry{Level: LevelDebug, Category: "pollee", Message: "del_events", Delta: delta})
}

// ResetEvents replaces the current mask outright and wakes every subscriber
// whose interest intersects the bits newly present (i.e. present in newMask
// but not in the old mask).
func (p *Pollee) ResetEvents(newMask Events) {
	p.mu.Lock()
	delta := newMask &^ p.mask
	p.mask = newMask
	toWake := p.collectInterested(delta)
	p.mu.Unlock()

	for _, w := range toWake {
		w.Wake()
	}
	p.logger.Log(LogEntry{Level: LevelDebug, Category: "pollee", Message: "reset_events", Delta: delta, Woken: len(toWake)})
}

// Events returns the current mask. Intended for diagnostics; racy by nature
// since the mask may change the instant after this returns.
func (p *Pollee) Events() Events {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mask
}

// collectInterested must be called with p.mu held. It returns, without
// waking them yet, every subscribed waiter whose interest mask intersects
// delta. Wakes are always performed after the mutex is released: waking a
// waiter may synchronously invoke an executor's wake handle, and no Pollee
// mutex may be held across that call.
func (p *Pollee) collectInterested(delta Events) []*Waiter {
	if delta == 0 {
		return nil
	}
	var out []*Waiter
	for _, s := range p.subs {
		if s.interest.Intersects(delta) {
			out = append(out, s.waiter)
		}
	}
	return out
}

// unsubscribe removes the subscription registered under id. Called by a
// Poller on drop; a no-op if the id is already gone (e.g. the Pollee itself
// was discarded first).
func (p *Pollee) unsubscribe(id uint64) {
	p.mu.Lock()
	delete(p.subs, id)
	p.mu.Unlock()
}

// subscriberCount reports how many subscriptions are outstanding. Intended
// for tests asserting that a dropped Poller leaves no dangling references.
func (p *Pollee) subscriberCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.subs)
}
