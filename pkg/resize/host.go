package resize

import (
	"context"
	"sync"
	"sync/atomic"
)

// Host receives settled width notifications from the browser side.
// Service implements Host.
type Host interface {
	OnElementWidthChanged(elementID string, width int)
	OnScreenWidthChanged(width int)
}

// Bridge is the browser side of the screen observer as seen from the host.
// Every method may block on a round trip and honours ctx.
type Bridge interface {
	// ObserveElement starts observing the element and returns its current
	// width. Observing an already observed element returns its current
	// width without creating a second observer.
	ObserveElement(ctx context.Context, host *HostRef, elementID string) (int, error)

	// ObserveScreen starts observing the viewport and returns its width.
	ObserveScreen(ctx context.Context, host *HostRef) (int, error)

	// StopObservingElement tears down the element's observer, if any.
	StopObservingElement(ctx context.Context, elementID string) error

	// StopObservingScreen tears down the viewport observer, if any.
	StopObservingScreen(ctx context.Context) error

	// Dispose tears down every observer.
	Dispose(ctx context.Context) error
}

var hostRefSeq atomic.Uint64

// HostRef is the capability a Bridge uses to call back into a Host.
// It is handed out at observer creation and released exactly once by
// its owner; notifications through a released ref are dropped.
type HostRef struct {
	id       uint64
	mu       sync.RWMutex
	host     Host
	released bool
}

// NewHostRef wraps host in a new reference with a process-unique ID.
func NewHostRef(host Host) *HostRef {
	return &HostRef{
		id:   hostRefSeq.Add(1),
		host: host,
	}
}

// ID returns the reference ID. IDs are never reused within a process.
func (r *HostRef) ID() uint64 {
	return r.id
}

// Released reports whether Release has been called.
func (r *HostRef) Released() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.released
}

// Release drops the reference to the host. Safe to call more than once.
func (r *HostRef) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.released = true
	r.host = nil
}

// Notify delivers width for target to the host.
// Returns false if the reference has been released.
func (r *HostRef) Notify(target Target, width int) bool {
	r.mu.RLock()
	host := r.host
	r.mu.RUnlock()
	if host == nil {
		return false
	}
	target.Notify(host, width)
	return true
}
