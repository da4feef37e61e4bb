package pollio

import "strings"

// Events is a bitset of readiness conditions a file descriptor, socket, or
// other pollable object may satisfy at any given moment.
//
// Events compose the way poll(2)/epoll(7) event masks do: a Pollee's current
// mask is some union of these bits, and callers express interest with
// another union. Containment (Contains) is the only predicate a Poller or
// an Async wrapper ever needs.
type Events uint32

const (
	// EventIn indicates the object has data available to read, or (for a
	// listening socket) a connection is ready to be accepted.
	EventIn Events = 1 << iota
	// EventOut indicates the object can accept a write without blocking.
	EventOut
	// EventErr indicates an error condition is pending on the object.
	EventErr
	// EventHUp indicates the peer has closed its end of a connection.
	// Readable data queued before the close is still delivered via EventIn.
	EventHUp
	// EventRdHUp indicates the peer has shut down its writing half, for
	// sockets that support half-close.
	EventRdHUp
	// EventPri indicates urgent/out-of-band data is available to read.
	EventPri
)

// EventsNone is the empty event set.
const EventsNone Events = 0

// Union returns the bitwise-OR of e and other.
func (e Events) Union(other Events) Events { return e | other }

// Intersect returns the bitwise-AND of e and other.
func (e Events) Intersect(other Events) Events { return e & other }

// Contains reports whether e contains every bit set in other. An empty
// other is trivially contained.
func (e Events) Contains(other Events) bool { return e&other == other }

// Intersects reports whether e and other share any bit.
func (e Events) Intersects(other Events) bool { return e&other != 0 }

// IsEmpty reports whether no bit is set.
func (e Events) IsEmpty() bool { return e == 0 }

// String renders the set of flag names present in e, for logging.
func (e Events) String() string {
	if e == 0 {
		return "NONE"
	}
	var names []string
	for _, f := range []struct {
		bit  Events
		name string
	}{
		{EventIn, "IN"},
		{EventOut, "OUT"},
		{EventErr, "ERR"},
		{EventHUp, "HUP"},
		{EventRdHUp, "RDHUP"},
		{EventPri, "PRI"},
	} {
		if e&f.bit != 0 {
			names = append(names, f.name)
		}
	}
	return strings.Join(names, "|")
}

// StatusFlags is a bitset of file status flags. Only O_NONBLOCK carries
// meaning for the async wrapper; every other bit is opaque and merely
// round-tripped between StatusFlags/SetStatusFlags callers.
type StatusFlags uint32

const (
	// ONonblock marks a file as non-blocking: the async wrapper samples it
	// once per call and, if set, never suspends - "would block" is
	// returned to the caller verbatim instead.
	ONonblock StatusFlags = 1 << iota
	// OAppend is opaque to this package; carried for completeness.
	OAppend
	// OSync is opaque to this package; carried for completeness.
	OSync
)

// Contains reports whether all bits of other are set in f.
func (f StatusFlags) Contains(other StatusFlags) bool { return f&other == other }
