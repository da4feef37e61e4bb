// Package pollio provides the readiness-based file abstraction and waiter
// primitive at the core of a library-OS style asynchronous I/O runtime.
package pollio

import (
	"errors"
	"fmt"
)

// Sentinel errors for the error taxonomy this package surfaces. All of them
// are plain kinds, not wrapping types: callers match with errors.Is, and
// WrapError attaches context while preserving that match.
var (
	// ErrBadDescriptor means the operation isn't supported by this file
	// variant at all. No code path in this module returns it; it is there
	// for PollableFile implementations outside it.
	ErrBadDescriptor = errors.New("pollio: operation not supported by this file")

	// ErrNotSupported means the operation is legal for the type in general
	// but not implementable by this particular instance (e.g.
	// socket.DatagramConn.SendMsg with a destination address on an
	// unconnected socket).
	ErrNotSupported = errors.New("pollio: operation not supported")

	// ErrInvalidArgument covers the socket-adapter boundary: wrong family or
	// type, a missing address where one is required, or an address-family
	// mismatch.
	ErrInvalidArgument = errors.New("pollio: invalid argument")

	// ErrAlreadyConnected is raised when SendMsg carries a destination
	// address on an already-connected socket: a connected stream socket
	// (socket.SendMsg) or a connected datagram socket
	// (socket.DatagramConn.SendMsg).
	ErrAlreadyConnected = errors.New("pollio: already connected")

	// ErrWaiterTimedOut is returned by Waiter.WaitTimeout when the deadline
	// elapses before a wake.
	ErrWaiterTimedOut = errors.New("pollio: waiter reached timeout")

	// ErrInterrupted is reserved for pass-through of an inner file's own
	// interrupted result; pollio never generates it itself.
	ErrInterrupted = errors.New("pollio: interrupted")
)

// WrapError wraps err with a message while preserving errors.Is/As matching
// against it, e.g. WrapError("accept", ErrInvalidArgument).
func WrapError(message string, err error) error {
	return fmt.Errorf("%s: %w", message, err)
}
