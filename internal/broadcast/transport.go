package broadcast

import (
	"errors"
	"time"
)

// Errors
var (
	ErrTimeout = errors.New("receive timeout")
	ErrClosed  = errors.New("connection closed")
)

// Transport is one bidirectional stream connection to a peer.
type Transport interface {
	// ReceiveText waits up to timeout for one inbound text message.
	// It returns ErrTimeout when nothing arrives in time and ErrClosed
	// once the peer has gone away.
	ReceiveText(timeout time.Duration) (string, error)

	// SendJSON writes v as a single JSON message.
	SendJSON(v any) error

	// SendText writes a single text message.
	SendText(text string) error

	// Close tears the connection down. Safe to call more than once.
	Close() error
}
