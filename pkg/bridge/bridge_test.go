package bridge

import (
	"bytes"
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/vango-dev/screenobserver/pkg/dom/domtest"
	"github.com/vango-dev/screenobserver/pkg/resize"
)

// fakeClock fires timers only when advanced.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now + d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && t.at <= c.now {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	sort.Slice(due, func(i, j int) bool { return due[i].at < due[j].at })
	for _, t := range due {
		t.f()
	}
}

func (c *fakeClock) pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

type notification struct {
	id    string
	width int
}

type recordingHost struct {
	mu      sync.Mutex
	element []notification
	screen  []int
}

func (h *recordingHost) OnElementWidthChanged(id string, width int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.element = append(h.element, notification{id, width})
}

func (h *recordingHost) OnScreenWidthChanged(width int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.screen = append(h.screen, width)
}

type fixture struct {
	doc    *domtest.Document
	clock  *fakeClock
	bridge *Bridge
	host   *recordingHost
	ref    *resize.HostRef
	logs   *bytes.Buffer
}

func newFixture() *fixture {
	var logs bytes.Buffer
	doc := domtest.New()
	clock := &fakeClock{}
	host := &recordingHost{}
	b := New(doc, &Config{
		Clock:  clock,
		Logger: slog.New(slog.NewTextHandler(&logs, nil)),
	})
	return &fixture{
		doc:    doc,
		clock:  clock,
		bridge: b,
		host:   host,
		ref:    resize.NewHostRef(host),
		logs:   &logs,
	}
}

func TestObserveElementReturnsFlooredWidth(t *testing.T) {
	f := newFixture()
	f.doc.SetElement("box", 99.9)

	width, err := f.bridge.ObserveElement(context.Background(), f.ref, "box")
	if err != nil {
		t.Fatalf("ObserveElement error = %v", err)
	}
	if width != 99 {
		t.Errorf("width = %d, want 99", width)
	}
	if !f.bridge.Observing(resize.Element("box")) {
		t.Error("box should be observed")
	}
}

func TestObserveMissingElement(t *testing.T) {
	f := newFixture()

	width, err := f.bridge.ObserveElement(context.Background(), f.ref, "missing-id")
	if err != nil {
		t.Fatalf("ObserveElement error = %v", err)
	}
	if width != 0 {
		t.Errorf("width = %d, want 0", width)
	}
	if f.bridge.Len() != 0 || f.doc.ObserverCount() != 0 {
		t.Error("no observer should be created for a missing element")
	}
	if !strings.Contains(f.logs.String(), "missing-id") {
		t.Errorf("Expected warning to be logged, got %q", f.logs.String())
	}
}

func TestObserveElementTwiceKeepsOneObserver(t *testing.T) {
	f := newFixture()
	f.doc.SetElement("box", 100)
	ctx := context.Background()

	_, _ = f.bridge.ObserveElement(ctx, f.ref, "box")
	f.doc.SetElement("box", 140)

	other := &recordingHost{}
	width, _ := f.bridge.ObserveElement(ctx, resize.NewHostRef(other), "box")

	if width != 140 {
		t.Errorf("width = %d, want 140", width)
	}
	if f.doc.ObserverCount() != 1 {
		t.Errorf("ObserverCount = %d, want 1", f.doc.ObserverCount())
	}

	// Notifications go to the most recent host.
	f.doc.Resize("box", 150)
	f.clock.Advance(DefaultDebounceInterval)
	if len(f.host.element) != 0 || len(other.element) != 1 {
		t.Errorf("notifications: first=%v second=%v", f.host.element, other.element)
	}
}

func TestBurstYieldsOneNotificationWithLastWidth(t *testing.T) {
	f := newFixture()
	f.doc.SetElement("box", 100)
	_, _ = f.bridge.ObserveElement(context.Background(), f.ref, "box")

	f.doc.Resize("box", 120)
	f.clock.Advance(100 * time.Millisecond)
	f.doc.Resize("box", 125.7)
	f.clock.Advance(100 * time.Millisecond)
	f.doc.Resize("box", 130)

	if len(f.host.element) != 0 {
		t.Fatalf("no notification expected before the window elapses, got %v", f.host.element)
	}
	if f.clock.pending() != 1 {
		t.Errorf("pending timers = %d, want 1", f.clock.pending())
	}

	f.clock.Advance(DefaultDebounceInterval)

	want := []notification{{"box", 130}}
	if len(f.host.element) != 1 || f.host.element[0] != want[0] {
		t.Errorf("notifications = %v, want %v", f.host.element, want)
	}

	f.clock.Advance(time.Second)
	if len(f.host.element) != 1 {
		t.Errorf("notifications after quiet period = %v", f.host.element)
	}
}

func TestSettledWidthIsFloored(t *testing.T) {
	f := newFixture()
	f.doc.SetElement("box", 10)
	_, _ = f.bridge.ObserveElement(context.Background(), f.ref, "box")

	f.doc.Resize("box", 200.99)
	f.clock.Advance(DefaultDebounceInterval)

	if len(f.host.element) != 1 || f.host.element[0].width != 200 {
		t.Errorf("notifications = %v, want width 200", f.host.element)
	}
}

func TestStopObservingElementCancelsPendingTimer(t *testing.T) {
	f := newFixture()
	f.doc.SetElement("box", 100)
	ctx := context.Background()
	_, _ = f.bridge.ObserveElement(ctx, f.ref, "box")

	f.doc.Resize("box", 120)
	if err := f.bridge.StopObservingElement(ctx, "box"); err != nil {
		t.Fatalf("StopObservingElement error = %v", err)
	}
	f.clock.Advance(DefaultDebounceInterval)

	if len(f.host.element) != 0 {
		t.Errorf("no notification expected after stop, got %v", f.host.element)
	}
	if f.clock.pending() != 0 {
		t.Errorf("pending timers = %d, want 0", f.clock.pending())
	}
	if f.doc.ObserverCount() != 0 || f.bridge.Observing(resize.Element("box")) {
		t.Error("observer should be disconnected")
	}

	// Stopping again is a no-op.
	if err := f.bridge.StopObservingElement(ctx, "box"); err != nil {
		t.Errorf("second StopObservingElement error = %v", err)
	}
}

func TestObserveAfterStopRecreatesObserver(t *testing.T) {
	f := newFixture()
	f.doc.SetElement("box", 100)
	ctx := context.Background()

	_, _ = f.bridge.ObserveElement(ctx, f.ref, "box")
	_ = f.bridge.StopObservingElement(ctx, "box")
	_, _ = f.bridge.ObserveElement(ctx, f.ref, "box")

	if f.doc.ObserverCount() != 1 {
		t.Errorf("ObserverCount = %d, want 1", f.doc.ObserverCount())
	}
	f.doc.Resize("box", 90)
	f.clock.Advance(DefaultDebounceInterval)
	if len(f.host.element) != 1 {
		t.Errorf("notifications = %v, want 1", f.host.element)
	}
}

func TestObserveScreen(t *testing.T) {
	f := newFixture()
	f.doc.ResizeBody(1280.4)
	ctx := context.Background()

	width, err := f.bridge.ObserveScreen(ctx, f.ref)
	if err != nil || width != 1280 {
		t.Fatalf("ObserveScreen = (%d, %v), want (1280, nil)", width, err)
	}

	f.doc.ResizeBody(1000)
	f.doc.ResizeBody(900)
	f.clock.Advance(DefaultDebounceInterval)

	if len(f.host.screen) != 1 || f.host.screen[0] != 900 {
		t.Errorf("screen notifications = %v, want [900]", f.host.screen)
	}

	// A second observe returns the width the observer last saw.
	width, _ = f.bridge.ObserveScreen(ctx, f.ref)
	if width != 900 {
		t.Errorf("cached width = %d, want 900", width)
	}
	if f.doc.ObserverCount() != 1 {
		t.Errorf("ObserverCount = %d, want 1", f.doc.ObserverCount())
	}

	_ = f.bridge.StopObservingScreen(ctx)
	if f.bridge.Observing(resize.Screen) || f.doc.ObserverCount() != 0 {
		t.Error("screen observer should be disconnected")
	}
}

func TestElementAndScreenDebounceIndependently(t *testing.T) {
	f := newFixture()
	f.doc.SetElement("box", 10)
	ctx := context.Background()
	_, _ = f.bridge.ObserveElement(ctx, f.ref, "box")
	_, _ = f.bridge.ObserveScreen(ctx, f.ref)

	f.doc.Resize("box", 20)
	f.clock.Advance(200 * time.Millisecond)
	f.doc.ResizeBody(700)
	f.clock.Advance(50 * time.Millisecond)

	if len(f.host.element) != 1 || len(f.host.screen) != 0 {
		t.Fatalf("after 250ms: element=%v screen=%v", f.host.element, f.host.screen)
	}

	f.clock.Advance(200 * time.Millisecond)
	if len(f.host.screen) != 1 || f.host.screen[0] != 700 {
		t.Errorf("screen notifications = %v, want [700]", f.host.screen)
	}
}

func TestDisposeTearsDownEverything(t *testing.T) {
	f := newFixture()
	f.doc.SetElement("a", 10)
	f.doc.SetElement("b", 10)
	ctx := context.Background()

	_, _ = f.bridge.ObserveElement(ctx, f.ref, "a")
	_, _ = f.bridge.ObserveElement(ctx, f.ref, "b")
	_, _ = f.bridge.ObserveScreen(ctx, f.ref)
	f.doc.Resize("a", 50)
	f.doc.ResizeBody(500)

	if err := f.bridge.Dispose(ctx); err != nil {
		t.Fatalf("Dispose error = %v", err)
	}
	if err := f.bridge.Dispose(ctx); err != nil {
		t.Fatalf("second Dispose error = %v", err)
	}

	f.clock.Advance(time.Second)

	if f.bridge.Len() != 0 || f.doc.ObserverCount() != 0 {
		t.Errorf("Len = %d, ObserverCount = %d, want 0", f.bridge.Len(), f.doc.ObserverCount())
	}
	if f.clock.pending() != 0 {
		t.Errorf("pending timers = %d, want 0", f.clock.pending())
	}
	if len(f.host.element) != 0 || len(f.host.screen) != 0 {
		t.Error("no notifications expected after dispose")
	}
}

func TestReleasedHostDropsNotification(t *testing.T) {
	f := newFixture()
	f.doc.SetElement("box", 10)
	_, _ = f.bridge.ObserveElement(context.Background(), f.ref, "box")

	f.doc.Resize("box", 20)
	f.ref.Release()
	f.clock.Advance(DefaultDebounceInterval)

	if len(f.host.element) != 0 {
		t.Errorf("released host should not be notified, got %v", f.host.element)
	}
}

func TestCustomDebounceInterval(t *testing.T) {
	doc := domtest.New()
	clock := &fakeClock{}
	host := &recordingHost{}
	b := New(doc, &Config{DebounceInterval: 50 * time.Millisecond, Clock: clock})
	doc.SetElement("box", 10)
	_, _ = b.ObserveElement(context.Background(), resize.NewHostRef(host), "box")

	if b.DebounceInterval() != 50*time.Millisecond {
		t.Errorf("DebounceInterval = %v", b.DebounceInterval())
	}

	doc.Resize("box", 11)
	clock.Advance(50 * time.Millisecond)
	if len(host.element) != 1 {
		t.Errorf("notifications = %v, want 1", host.element)
	}
}

func TestFloorWidth(t *testing.T) {
	tests := []struct {
		in   float64
		want int
	}{
		{0, 0},
		{-3.5, 0},
		{1.999, 1},
		{640, 640},
	}

	for _, tt := range tests {
		if got := floorWidth(tt.in); got != tt.want {
			t.Errorf("floorWidth(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
