package resizetest

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/vango-dev/screenobserver/pkg/bridge"
	"github.com/vango-dev/screenobserver/pkg/dom/domtest"
	"github.com/vango-dev/screenobserver/pkg/interop"
	"github.com/vango-dev/screenobserver/pkg/resize"
)

// DefaultDebounce keeps harness tests fast.
const DefaultDebounce = 10 * time.Millisecond

// Builder allows fluent construction of a Harness.
type Builder struct {
	doc      *domtest.Document
	debounce time.Duration
	logger   *slog.Logger
}

// New creates a builder over an empty document.
//
// Example:
//
//	h := resizetest.New().WithElement("chart", 640).Start(t)
func New() *Builder {
	return &Builder{
		doc:      domtest.New(),
		debounce: DefaultDebounce,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// WithElement adds an element with the given width.
func (b *Builder) WithElement(id string, width float64) *Builder {
	b.doc.SetElement(id, width)
	return b
}

// WithBodyWidth sets the viewport width.
func (b *Builder) WithBodyWidth(width float64) *Builder {
	b.doc.ResizeBody(width)
	return b
}

// WithDebounce sets the bridge debounce interval.
func (b *Builder) WithDebounce(d time.Duration) *Builder {
	b.debounce = d
	return b
}

// WithLogger routes every component's logs to logger.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// Harness is a running in-memory observer stack.
type Harness struct {
	// Service is the host-side registry under test.
	Service *resize.Service

	// Bridge is the browser-side bridge.
	Bridge *bridge.Bridge

	// Doc is the document the bridge observes. Resize it to emit widths.
	Doc *domtest.Document

	// Client is the host end of the connection.
	Client *interop.Client

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// Start wires and runs the stack. It is stopped by t.Cleanup.
func (b *Builder) Start(t testing.TB) *Harness {
	t.Helper()

	hostConn, browserConn := NewPipe()
	br := bridge.New(b.doc, &bridge.Config{DebounceInterval: b.debounce, Logger: b.logger})
	client := interop.NewClient(hostConn, b.logger)
	ep := interop.NewEndpoint(browserConn, br, b.logger)

	h := &Harness{
		Bridge: br,
		Doc:    b.doc,
		Client: client,
	}
	h.Service = resize.New(client, &resize.Config{Logger: b.logger})
	h.ctx, h.cancel = context.WithCancel(resize.NewContext(context.Background(), h.Service))

	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		ep.Serve(h.ctx)
	}()
	go func() {
		defer h.wg.Done()
		client.Run(h.ctx)
	}()

	t.Cleanup(h.Stop)
	return h
}

// Context carries the harness service and ends when the harness stops.
func (h *Harness) Context() context.Context {
	return h.ctx
}

// Stop disposes the service and shuts the stack down. Safe to call more
// than once.
func (h *Harness) Stop() {
	h.once.Do(func() {
		h.Service.Dispose(context.Background())
		h.cancel()
		h.wg.Wait()
	})
}
