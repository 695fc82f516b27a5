package resize

import (
	"errors"
	"fmt"
)

// Sentinel errors for registry operations.
var (
	// ErrEmptyTarget is returned when an element ID is empty.
	ErrEmptyTarget = errors.New("resize: element ID cannot be empty")

	// ErrNilCallback is returned when a nil callback is registered.
	ErrNilCallback = errors.New("resize: callback cannot be nil")

	// ErrDisposed is returned when the service has been disposed.
	ErrDisposed = errors.New("resize: service disposed")
)

// BridgeError wraps a failure to reach the browser side.
type BridgeError struct {
	Op     string // Bridge operation that failed
	Target Target
	Err    error
}

// Error returns the error message with target context.
func (e *BridgeError) Error() string {
	return fmt.Sprintf("resize: %s %s: %v", e.Op, e.Target, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *BridgeError) Unwrap() error {
	return e.Err
}

// CallbackError wraps a panic recovered from a subscriber callback.
type CallbackError struct {
	Target Target
	Width  int
	Panic  any
	Stack  []byte
}

// Error returns the error message.
func (e *CallbackError) Error() string {
	return fmt.Sprintf("resize: callback panic for %s (width %d): %v", e.Target, e.Width, e.Panic)
}
