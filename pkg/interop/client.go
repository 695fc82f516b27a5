package interop

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vango-dev/screenobserver/pkg/protocol"
	"github.com/vango-dev/screenobserver/pkg/resize"
)

// notifyQueueSize bounds notifications waiting for delivery. The read loop
// blocks when the queue is full.
const notifyQueueSize = 64

// Client is the host side of a connection. It implements resize.Bridge.
//
// Notifications are delivered in arrival order on a dedicated goroutine,
// so a callback may issue bridge calls without stalling the read loop.
type Client struct {
	conn   Conn
	logger *slog.Logger

	writeMu sync.Mutex
	nextID  atomic.Uint64

	mu       sync.Mutex
	pending  map[uint64]chan *protocol.Result
	hosts    map[uint64]*resize.HostRef
	closed   bool
	disposed bool

	notifications chan *protocol.Notify
	done          chan struct{}
}

var _ resize.Bridge = (*Client)(nil)

// NewClient creates a Client over conn. The handshake must already be
// complete. Run must be called for calls to receive their results.
func NewClient(conn Conn, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default().With("component", "interop")
	}
	return &Client{
		conn:          conn,
		logger:        logger,
		pending:       make(map[uint64]chan *protocol.Result),
		hosts:         make(map[uint64]*resize.HostRef),
		notifications: make(chan *protocol.Notify, notifyQueueSize),
		done:          make(chan struct{}),
	}
}

// Run reads frames until the connection fails, the peer sends Close, or
// ctx is cancelled. Pending and later calls fail with ErrClosed.
// A clean close returns nil.
func (c *Client) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { c.conn.Close() })
	defer stop()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.dispatchLoop()
	}()

	err := c.readLoop()
	if ctx.Err() != nil {
		err = nil
	}

	c.shutdown()
	close(c.notifications)
	wg.Wait()
	return err
}

func (c *Client) readLoop() error {
	for {
		frame, err := ReadFrame(c.conn)
		if err != nil {
			if c.isClosed() {
				return nil
			}
			return err
		}

		switch frame.Type {
		case protocol.FrameResult:
			r, err := protocol.DecodeResult(frame.Payload)
			if err != nil {
				c.logger.Warn("invalid result frame", "error", err)
				continue
			}
			c.resolve(r)

		case protocol.FrameNotify:
			n, err := protocol.DecodeNotify(frame.Payload)
			if err != nil {
				c.logger.Warn("invalid notify frame", "error", err)
				continue
			}
			c.notifications <- n

		case protocol.FrameControl:
			ctrl, err := protocol.DecodeControl(frame.Payload)
			if err != nil {
				c.logger.Warn("invalid control frame", "error", err)
				continue
			}
			switch ctrl.Type {
			case protocol.ControlPing:
				c.write(protocol.FrameControl, protocol.EncodeControl(&protocol.Control{
					Type:      protocol.ControlPong,
					Timestamp: ctrl.Timestamp,
				}))
			case protocol.ControlClose:
				c.logger.Debug("peer closed", "reason", ctrl.Reason.String(), "message", ctrl.Message)
				return nil
			}

		case protocol.FrameError:
			em, err := protocol.DecodeErrorMessage(frame.Payload)
			if err != nil {
				c.logger.Warn("invalid error frame", "error", err)
				continue
			}
			if em.Fatal {
				return em
			}
			c.logger.Warn("peer error", "code", em.Code.String(), "message", em.Message)

		default:
			c.logger.Warn("unexpected frame", "type", frame.Type.String())
		}
	}
}

// dispatchLoop hands notifications to the host that registered for them.
func (c *Client) dispatchLoop() {
	for n := range c.notifications {
		c.mu.Lock()
		host := c.hosts[n.HostRef]
		c.mu.Unlock()

		if host == nil {
			c.logger.Debug("notification for unknown host", "host_ref", n.HostRef)
			continue
		}

		target := resize.Screen
		if n.Kind == protocol.TargetElement {
			target = resize.Element(n.Target)
		}
		host.Notify(target, int(n.Width))
	}
}

func (c *Client) resolve(r *protocol.Result) {
	c.mu.Lock()
	ch, ok := c.pending[r.ID]
	delete(c.pending, r.ID)
	c.mu.Unlock()

	if !ok {
		c.logger.Debug("result for unknown call", "id", r.ID)
		return
	}
	ch <- r
}

// shutdown fails every pending call and rejects new ones.
func (c *Client) shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
	close(c.done)
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Done is closed once the connection has shut down.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Close sends a Close control frame and closes the connection.
func (c *Client) Close(reason protocol.CloseReason, message string) error {
	c.write(protocol.FrameControl, protocol.EncodeControl(&protocol.Control{
		Type:    protocol.ControlClose,
		Reason:  reason,
		Message: message,
	}))
	c.shutdown()
	return c.conn.Close()
}

// Ping sends a Ping control frame.
func (c *Client) Ping() error {
	return c.write(protocol.FrameControl, protocol.EncodeControl(&protocol.Control{
		Type:      protocol.ControlPing,
		Timestamp: uint64(time.Now().UnixMilli()),
	}))
}

func (c *Client) write(ft protocol.FrameType, payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return WriteFrame(c.conn, ft, payload)
}

// call sends a Call and waits for its Result.
func (c *Client) call(ctx context.Context, call *protocol.Call) (*protocol.Result, error) {
	call.ID = c.nextID.Add(1)
	ch := make(chan *protocol.Result, 1)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	c.pending[call.ID] = ch
	c.mu.Unlock()

	if err := c.write(protocol.FrameCall, protocol.EncodeCall(call)); err != nil {
		c.forget(call.ID)
		if c.isClosed() {
			return nil, ErrClosed
		}
		return nil, err
	}

	select {
	case r, ok := <-ch:
		if !ok {
			return nil, ErrClosed
		}
		if r.Err != "" {
			return r, &RemoteError{Method: call.Method, Message: r.Err}
		}
		return r, nil
	case <-ctx.Done():
		c.forget(call.ID)
		return nil, ctx.Err()
	}
}

func (c *Client) forget(id uint64) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// register makes host reachable by notifications. A released ref or a
// disposed client is refused so nothing outlives Dispose.
func (c *Client) register(host *resize.HostRef) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed || host.Released() {
		return resize.ErrDisposed
	}
	c.hosts[host.ID()] = host
	return nil
}

// ObserveElement implements resize.Bridge.
func (c *Client) ObserveElement(ctx context.Context, host *resize.HostRef, elementID string) (int, error) {
	if err := c.register(host); err != nil {
		return 0, err
	}
	r, err := c.call(ctx, &protocol.Call{
		Method:  protocol.MethodObserveElement,
		HostRef: host.ID(),
		Target:  elementID,
	})
	if err != nil {
		return 0, err
	}
	return int(r.Width), nil
}

// ObserveScreen implements resize.Bridge.
func (c *Client) ObserveScreen(ctx context.Context, host *resize.HostRef) (int, error) {
	if err := c.register(host); err != nil {
		return 0, err
	}
	r, err := c.call(ctx, &protocol.Call{
		Method:  protocol.MethodObserveScreen,
		HostRef: host.ID(),
	})
	if err != nil {
		return 0, err
	}
	return int(r.Width), nil
}

// StopObservingElement implements resize.Bridge.
func (c *Client) StopObservingElement(ctx context.Context, elementID string) error {
	_, err := c.call(ctx, &protocol.Call{
		Method: protocol.MethodStopObservingElement,
		Target: elementID,
	})
	return err
}

// StopObservingScreen implements resize.Bridge.
func (c *Client) StopObservingScreen(ctx context.Context) error {
	_, err := c.call(ctx, &protocol.Call{Method: protocol.MethodStopObservingScreen})
	return err
}

// Dispose implements resize.Bridge. Host registrations are dropped even
// if the remote call fails, and later observe calls fail with
// resize.ErrDisposed. Disposing a closed client is a no-op.
func (c *Client) Dispose(ctx context.Context) error {
	c.mu.Lock()
	c.disposed = true
	clear(c.hosts)
	c.mu.Unlock()

	_, err := c.call(ctx, &protocol.Call{Method: protocol.MethodDispose})
	if errors.Is(err, ErrClosed) {
		return nil
	}
	return err
}
