// Package bridge is the browser side of the screen observer.
//
// A Bridge owns one resize observer per observed target. Raw resize
// events restart a per-target debounce timer; once a target's width has
// been stable for the debounce interval, the settled width is delivered
// to the host through the target's HostRef.
//
// Widths are floored to whole CSS pixels both when first read and when
// delivered.
package bridge

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/vango-dev/screenobserver/pkg/dom"
	"github.com/vango-dev/screenobserver/pkg/resize"
)

// handle is the observer state for one target.
type handle struct {
	target   resize.Target
	observer dom.ResizeObserver
	host     *resize.HostRef

	// timer is the pending debounce timer, nil when settled.
	// gen identifies the most recently scheduled timer.
	timer Timer
	gen   uint64
}

// Bridge observes element and viewport widths in a document.
// There is one Bridge per page.
type Bridge struct {
	doc    dom.Document
	config Config
	logger *slog.Logger

	mu          sync.Mutex
	handles     map[resize.Target]*handle
	screenWidth int
}

var _ resize.Bridge = (*Bridge)(nil)

// New creates a Bridge over doc. A nil config uses DefaultConfig.
func New(doc dom.Document, config *Config) *Bridge {
	defaults := DefaultConfig()
	c := *defaults
	if config != nil {
		c = *config
		if c.DebounceInterval <= 0 {
			c.DebounceInterval = defaults.DebounceInterval
		}
		if c.Clock == nil {
			c.Clock = defaults.Clock
		}
		if c.Logger == nil {
			c.Logger = defaults.Logger
		}
	}

	return &Bridge{
		doc:     doc,
		config:  c,
		logger:  c.Logger,
		handles: make(map[resize.Target]*handle),
	}
}

// ObserveElement starts observing the element with the given ID and
// returns its current width. A missing element is logged and reported
// as width 0 without creating an observer. Observing an element that is
// already observed rebinds it to host and returns its current width.
func (b *Bridge) ObserveElement(ctx context.Context, host *resize.HostRef, elementID string) (int, error) {
	el, ok := b.doc.ElementByID(elementID)
	if !ok {
		b.logger.Warn("element not found", "element_id", elementID)
		return 0, nil
	}

	b.observe(resize.Element(elementID), el, host)
	return floorWidth(el.OffsetWidth()), nil
}

// ObserveScreen starts observing the document body and returns the last
// width seen by the observer, or the body's current width.
func (b *Bridge) ObserveScreen(ctx context.Context, host *resize.HostRef) (int, error) {
	body := b.doc.Body()
	b.observe(resize.Screen, body, host)

	b.mu.Lock()
	cached := b.screenWidth
	b.mu.Unlock()
	if cached > 0 {
		return cached, nil
	}
	return floorWidth(body.OffsetWidth()), nil
}

func (b *Bridge) observe(target resize.Target, el dom.Element, host *resize.HostRef) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if h, ok := b.handles[target]; ok {
		h.host = host
		return
	}

	h := &handle{target: target, host: host}
	h.observer = b.doc.NewResizeObserver(func(entries []dom.ResizeEntry) {
		b.onResize(h, entries)
	})
	h.observer.Observe(el)
	b.handles[target] = h
}

// onResize restarts the target's debounce timer with the new width.
func (b *Bridge) onResize(h *handle, entries []dom.ResizeEntry) {
	var raw float64
	if h.target.IsScreen() {
		raw = b.doc.Body().OffsetWidth()
	} else if len(entries) > 0 && entries[0].Target != nil {
		raw = entries[0].Target.OffsetWidth()
	}
	width := floorWidth(raw)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.handles[h.target] != h {
		return
	}
	if h.target.IsScreen() {
		b.screenWidth = width
	}
	if h.timer != nil {
		h.timer.Stop()
	}
	h.gen++
	gen := h.gen
	h.timer = b.config.Clock.AfterFunc(b.config.DebounceInterval, func() {
		b.settle(h, gen, width)
	})
}

// settle delivers width if the timer that fired is still current.
func (b *Bridge) settle(h *handle, gen uint64, width int) {
	b.mu.Lock()
	if b.handles[h.target] != h || h.gen != gen {
		b.mu.Unlock()
		return
	}
	h.timer = nil
	host := h.host
	b.mu.Unlock()

	if host == nil || !host.Notify(h.target, width) {
		b.logger.Debug("dropped notification for released host", "target", h.target.String())
	}
}

// StopObservingElement disconnects the element's observer and cancels
// any pending notification. No-op if the element is not observed.
func (b *Bridge) StopObservingElement(ctx context.Context, elementID string) error {
	b.stop(resize.Element(elementID))
	return nil
}

// StopObservingScreen disconnects the viewport observer and cancels any
// pending notification.
func (b *Bridge) StopObservingScreen(ctx context.Context) error {
	b.stop(resize.Screen)
	return nil
}

func (b *Bridge) stop(target resize.Target) {
	b.mu.Lock()
	defer b.mu.Unlock()

	h, ok := b.handles[target]
	if !ok {
		return
	}
	b.teardown(h)
}

// teardown must be called with b.mu held.
func (b *Bridge) teardown(h *handle) {
	h.observer.Disconnect()
	if h.timer != nil {
		h.timer.Stop()
		h.timer = nil
	}
	delete(b.handles, h.target)
	if h.target.IsScreen() {
		b.screenWidth = 0
	}
}

// Dispose disconnects every observer and cancels every pending
// notification. Safe to call more than once.
func (b *Bridge) Dispose(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, h := range b.handles {
		b.teardown(h)
	}
	return nil
}

// Observing reports whether target has an observer.
func (b *Bridge) Observing(target resize.Target) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.handles[target]
	return ok
}

// Len returns the number of observed targets.
func (b *Bridge) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.handles)
}

// DebounceInterval returns the configured debounce interval.
func (b *Bridge) DebounceInterval() time.Duration {
	return b.config.DebounceInterval
}

func floorWidth(w float64) int {
	if math.IsNaN(w) || math.IsInf(w, 0) || w <= 0 {
		return 0
	}
	return int(math.Floor(w))
}
