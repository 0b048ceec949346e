package core

// SignalConnection abstracts the messaging transport of one session.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	// TrySend queues f without blocking and fails when the connection is
	// closed or its queue is full.
	TrySend(f Frame) error
	// Close sends a close frame with code and reason and releases the
	// connection. Repeated calls are no-ops.
	Close(code int, reason string)
}
