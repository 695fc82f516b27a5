package middleware

import (
	"context"

	"github.com/vango-dev/screenobserver/pkg/protocol"
	"github.com/vango-dev/screenobserver/pkg/resize"
)

// Middleware decorates a bridge.
type Middleware func(next resize.Bridge) resize.Bridge

// Chain wraps b with mws. The first middleware sees each call first.
func Chain(b resize.Bridge, mws ...Middleware) resize.Bridge {
	for i := len(mws) - 1; i >= 0; i-- {
		b = mws[i](b)
	}
	return b
}

// Call describes one bridge invocation.
type Call struct {
	Method protocol.Method

	// Target is zero for Dispose.
	Target resize.Target

	// Width is the width returned by an observe call. Set once the call
	// has completed.
	Width int
}

// Interceptor runs around a bridge call. It must call next exactly once
// and return its error, possibly wrapped.
type Interceptor func(ctx context.Context, call *Call, next func(context.Context) error) error

// Intercept turns an Interceptor into a Middleware.
func Intercept(fn Interceptor) Middleware {
	return func(next resize.Bridge) resize.Bridge {
		return &intercepted{next: next, fn: fn}
	}
}

type intercepted struct {
	next resize.Bridge
	fn   Interceptor
}

func (b *intercepted) ObserveElement(ctx context.Context, host *resize.HostRef, elementID string) (int, error) {
	call := &Call{Method: protocol.MethodObserveElement, Target: resize.Element(elementID)}
	err := b.fn(ctx, call, func(ctx context.Context) error {
		var err error
		call.Width, err = b.next.ObserveElement(ctx, host, elementID)
		return err
	})
	return call.Width, err
}

func (b *intercepted) ObserveScreen(ctx context.Context, host *resize.HostRef) (int, error) {
	call := &Call{Method: protocol.MethodObserveScreen, Target: resize.Screen}
	err := b.fn(ctx, call, func(ctx context.Context) error {
		var err error
		call.Width, err = b.next.ObserveScreen(ctx, host)
		return err
	})
	return call.Width, err
}

func (b *intercepted) StopObservingElement(ctx context.Context, elementID string) error {
	call := &Call{Method: protocol.MethodStopObservingElement, Target: resize.Element(elementID)}
	return b.fn(ctx, call, func(ctx context.Context) error {
		return b.next.StopObservingElement(ctx, elementID)
	})
}

func (b *intercepted) StopObservingScreen(ctx context.Context) error {
	call := &Call{Method: protocol.MethodStopObservingScreen, Target: resize.Screen}
	return b.fn(ctx, call, func(ctx context.Context) error {
		return b.next.StopObservingScreen(ctx)
	})
}

func (b *intercepted) Dispose(ctx context.Context) error {
	call := &Call{Method: protocol.MethodDispose}
	return b.fn(ctx, call, func(ctx context.Context) error {
		return b.next.Dispose(ctx)
	})
}
