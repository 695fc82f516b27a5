package server

import (
	"errors"
	"fmt"
)

// Sentinel errors for common server error conditions.
var (
	// ErrInvalidHandshake is returned when the client's first frame is not
	// a valid handshake.
	ErrInvalidHandshake = errors.New("server: invalid handshake")

	// ErrVersionMismatch is returned when the client speaks an
	// incompatible protocol version.
	ErrVersionMismatch = errors.New("server: protocol version mismatch")

	// ErrMaxSessionsReached is returned when the maximum number of
	// sessions is reached.
	ErrMaxSessionsReached = errors.New("server: max sessions reached")

	// ErrInvalidConfig is returned by ValidateConfig.
	ErrInvalidConfig = errors.New("server: invalid config")

	// ErrServerClosed is returned for connections arriving during shutdown.
	ErrServerClosed = errors.New("server: closed")
)

// SessionError wraps an error with session context for debugging.
type SessionError struct {
	SessionID string
	Op        string // Operation that failed
	Err       error  // Underlying error
}

// Error returns the error message with session context.
func (e *SessionError) Error() string {
	if e.SessionID == "" {
		return fmt.Sprintf("server: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("server: session %s: %s: %v", e.SessionID, e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *SessionError) Unwrap() error {
	return e.Err
}
