package stream

import (
	"context"
	"errors"
)

// ErrStillConnecting marks a transitional transport failure, for example a
// gateway answering while the upstream stream is still being set up. Such
// failures are retried without being counted against the error policy.
var ErrStillConnecting = errors.New("transport still connecting")

// Transport opens event stream connections.
type Transport interface {
	Dial(ctx context.Context, endpoint string) (Conn, error)
}

// Conn is one open event stream connection.
//
// Next blocks until a frame is available. It returns io.EOF when the server
// closed the stream cleanly. Close unblocks a pending Next.
type Conn interface {
	Next(ctx context.Context) (Frame, error)
	Close() error
}

// State is the connector's view of the underlying transport.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}
