package interop

import (
	"context"
	"log/slog"
	"sync"

	"github.com/vango-dev/screenobserver/pkg/protocol"
	"github.com/vango-dev/screenobserver/pkg/resize"
)

// Endpoint is the browser side of a connection. It executes calls from
// the host against a local bridge and forwards settled widths.
type Endpoint struct {
	conn   Conn
	bridge resize.Bridge
	logger *slog.Logger

	writeMu sync.Mutex

	mu   sync.Mutex
	refs map[uint64]*resize.HostRef
}

// NewEndpoint creates an Endpoint serving bridge over conn. The handshake
// must already be complete.
func NewEndpoint(conn Conn, bridge resize.Bridge, logger *slog.Logger) *Endpoint {
	if logger == nil {
		logger = slog.Default().With("component", "interop")
	}
	return &Endpoint{
		conn:   conn,
		bridge: bridge,
		logger: logger,
		refs:   make(map[uint64]*resize.HostRef),
	}
}

// Serve handles calls until the connection fails, the host sends Close,
// or ctx is cancelled. Calls are executed in arrival order. On return the
// bridge is disposed and every host reference is released.
func (e *Endpoint) Serve(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { e.conn.Close() })
	defer stop()
	defer e.teardown()

	for {
		frame, err := ReadFrame(e.conn)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		switch frame.Type {
		case protocol.FrameCall:
			call, err := protocol.DecodeCall(frame.Payload)
			if err != nil {
				e.logger.Warn("invalid call frame", "error", err)
				e.write(protocol.FrameError, protocol.EncodeErrorMessage(
					protocol.NewError(protocol.ErrInvalidCall, err.Error())))
				continue
			}
			e.handle(ctx, call)

		case protocol.FrameControl:
			ctrl, err := protocol.DecodeControl(frame.Payload)
			if err != nil {
				e.logger.Warn("invalid control frame", "error", err)
				continue
			}
			switch ctrl.Type {
			case protocol.ControlPing:
				e.write(protocol.FrameControl, protocol.EncodeControl(&protocol.Control{
					Type:      protocol.ControlPong,
					Timestamp: ctrl.Timestamp,
				}))
			case protocol.ControlClose:
				e.logger.Debug("host closed", "reason", ctrl.Reason.String(), "message", ctrl.Message)
				return nil
			}

		case protocol.FrameError:
			em, err := protocol.DecodeErrorMessage(frame.Payload)
			if err != nil {
				e.logger.Warn("invalid error frame", "error", err)
				continue
			}
			if em.Fatal {
				return em
			}
			e.logger.Warn("host error", "code", em.Code.String(), "message", em.Message)

		default:
			e.logger.Warn("unexpected frame", "type", frame.Type.String())
		}
	}
}

func (e *Endpoint) handle(ctx context.Context, call *protocol.Call) {
	var (
		width int
		err   error
	)

	switch call.Method {
	case protocol.MethodObserveElement:
		width, err = e.bridge.ObserveElement(ctx, e.ref(call.HostRef), call.Target)
	case protocol.MethodObserveScreen:
		width, err = e.bridge.ObserveScreen(ctx, e.ref(call.HostRef))
	case protocol.MethodStopObservingElement:
		err = e.bridge.StopObservingElement(ctx, call.Target)
	case protocol.MethodStopObservingScreen:
		err = e.bridge.StopObservingScreen(ctx)
	case protocol.MethodDispose:
		err = e.bridge.Dispose(ctx)
		e.releaseAll()
	}

	r := &protocol.Result{ID: call.ID, Width: int64(width)}
	if err != nil {
		r.Err = err.Error()
	}
	if err := e.write(protocol.FrameResult, protocol.EncodeResult(r)); err != nil {
		e.logger.Debug("write result failed", "method", call.Method.String(), "error", err)
	}
}

// ref returns the local reference standing in for the host's reference id.
func (e *Endpoint) ref(id uint64) *resize.HostRef {
	e.mu.Lock()
	defer e.mu.Unlock()

	if r, ok := e.refs[id]; ok && !r.Released() {
		return r
	}
	r := resize.NewHostRef(&remoteHost{endpoint: e, ref: id})
	e.refs[id] = r
	return r
}

func (e *Endpoint) releaseAll() {
	e.mu.Lock()
	defer e.mu.Unlock()

	for id, r := range e.refs {
		r.Release()
		delete(e.refs, id)
	}
}

func (e *Endpoint) teardown() {
	if err := e.bridge.Dispose(context.Background()); err != nil {
		e.logger.Warn("bridge dispose failed", "error", err)
	}
	e.releaseAll()
}

func (e *Endpoint) write(ft protocol.FrameType, payload []byte) error {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()
	return WriteFrame(e.conn, ft, payload)
}

// remoteHost forwards settled widths to the host as Notify frames.
type remoteHost struct {
	endpoint *Endpoint
	ref      uint64
}

func (h *remoteHost) OnElementWidthChanged(elementID string, width int) {
	h.send(&protocol.Notify{
		HostRef: h.ref,
		Kind:    protocol.TargetElement,
		Target:  elementID,
		Width:   int64(width),
	})
}

func (h *remoteHost) OnScreenWidthChanged(width int) {
	h.send(&protocol.Notify{
		HostRef: h.ref,
		Kind:    protocol.TargetScreen,
		Width:   int64(width),
	})
}

func (h *remoteHost) send(n *protocol.Notify) {
	if err := h.endpoint.write(protocol.FrameNotify, protocol.EncodeNotify(n)); err != nil {
		h.endpoint.logger.Debug("notify failed", "host_ref", n.HostRef, "error", err)
	}
}
