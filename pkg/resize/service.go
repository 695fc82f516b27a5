package resize

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sort"
	"sync"

	"github.com/vango-dev/screenobserver/pkg/metrics"
)

// Callback receives a settled width in CSS pixels.
type Callback func(width int)

// Subscription identifies one registered callback.
// Every observe call returns a distinct Subscription, even for the same
// function, and stopping a Subscription that is no longer registered is
// a no-op.
type Subscription struct {
	Target Target
	id     uint64
}

// Valid reports whether s was returned by a successful observe call.
func (s Subscription) Valid() bool {
	return s.id != 0
}

type subscriber struct {
	id uint64
	fn Callback
}

// Service is the subscription registry for one browser page.
// It is safe for concurrent use; callbacks run on the goroutine that
// delivers the notification and may call back into the Service.
type Service struct {
	bridge  Bridge
	host    *HostRef
	config  *Config
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu          sync.Mutex
	subs        map[Target][]subscriber
	listeners   []subscriber
	nextID      uint64
	screenWidth int
	disposed    bool

	disposeOnce sync.Once
}

// New creates a Service that drives bridge.
// A nil config uses DefaultConfig.
func New(bridge Bridge, config *Config) *Service {
	defaults := DefaultConfig()
	if config == nil {
		config = defaults
	} else {
		c := *config
		if c.CallTimeout == 0 {
			c.CallTimeout = defaults.CallTimeout
		}
		if c.Logger == nil {
			c.Logger = defaults.Logger
		}
		config = &c
	}

	s := &Service{
		bridge:  bridge,
		config:  config,
		logger:  config.Logger,
		metrics: config.Metrics,
		subs:    make(map[Target][]subscriber),
	}
	s.host = NewHostRef(s)
	return s
}

// HostRef returns the reference the service hands to its bridge.
func (s *Service) HostRef() *HostRef {
	return s.host
}

// ObserveElement subscribes fn to width changes of the element with the
// given ID and returns the element's current width.
//
// The first subscriber starts observation in the browser. If the browser
// cannot be reached, or the element does not exist, the failure is logged
// and the returned width is 0; the subscription stays registered.
func (s *Service) ObserveElement(ctx context.Context, elementID string, fn Callback) (Subscription, int, error) {
	if elementID == "" {
		return Subscription{}, 0, ErrEmptyTarget
	}
	return s.observe(ctx, Element(elementID), fn)
}

// ObserveScreen subscribes fn to viewport width changes and returns the
// current viewport width. Only the first subscriber reaches the browser;
// later subscribers receive the last known width.
func (s *Service) ObserveScreen(ctx context.Context, fn Callback) (Subscription, int, error) {
	return s.observe(ctx, Screen, fn)
}

func (s *Service) observe(ctx context.Context, target Target, fn Callback) (Subscription, int, error) {
	if fn == nil {
		return Subscription{}, 0, ErrNilCallback
	}

	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return Subscription{}, 0, ErrDisposed
	}
	s.nextID++
	sub := Subscription{Target: target, id: s.nextID}
	list := s.subs[target]
	first := len(list) == 0
	s.subs[target] = append(list, subscriber{id: sub.id, fn: fn})
	cached := s.screenWidth
	s.mu.Unlock()

	if first {
		s.metrics.TargetObserved(target.Kind.String(), 1)
	}

	if target.IsScreen() && !first {
		return sub, cached, nil
	}

	callCtx, cancel := s.callContext(ctx)
	defer cancel()

	var (
		width int
		err   error
	)
	if target.IsScreen() {
		width, err = s.bridge.ObserveScreen(callCtx, s.host)
	} else {
		width, err = s.bridge.ObserveElement(callCtx, s.host, target.ID)
	}
	if err != nil {
		s.logger.Warn("start observation failed",
			"error", &BridgeError{Op: "observe", Target: target, Err: err})
		return sub, 0, nil
	}

	if target.IsScreen() {
		s.mu.Lock()
		s.screenWidth = width
		s.mu.Unlock()
	}
	return sub, width, nil
}

// StopObservingElement removes sub from the element's subscribers.
// Removing the last subscriber stops observation in the browser; a
// failure to reach the browser is returned as a *BridgeError after local
// state has been cleared.
func (s *Service) StopObservingElement(ctx context.Context, elementID string, sub Subscription) error {
	return s.stop(ctx, Element(elementID), sub)
}

// StopObservingScreen removes sub from the viewport subscribers.
func (s *Service) StopObservingScreen(ctx context.Context, sub Subscription) error {
	return s.stop(ctx, Screen, sub)
}

func (s *Service) stop(ctx context.Context, target Target, sub Subscription) error {
	s.mu.Lock()
	list, ok := s.subs[target]
	if !ok || sub.Target != target {
		s.mu.Unlock()
		return nil
	}

	next := make([]subscriber, 0, len(list))
	for _, entry := range list {
		if entry.id != sub.id {
			next = append(next, entry)
		}
	}
	if len(next) == len(list) {
		s.mu.Unlock()
		return nil
	}
	if len(next) > 0 {
		s.subs[target] = next
		s.mu.Unlock()
		return nil
	}
	delete(s.subs, target)
	s.mu.Unlock()

	s.metrics.TargetObserved(target.Kind.String(), -1)

	callCtx, cancel := s.callContext(ctx)
	defer cancel()

	var err error
	if target.IsScreen() {
		err = s.bridge.StopObservingScreen(callCtx)
	} else {
		err = s.bridge.StopObservingElement(callCtx, target.ID)
	}
	if err != nil {
		return &BridgeError{Op: "stop", Target: target, Err: err}
	}
	return nil
}

// OnElementWidthChanged delivers width to every subscriber of the element,
// in subscription order.
func (s *Service) OnElementWidthChanged(elementID string, width int) {
	s.dispatch(Element(elementID), width)
}

// OnScreenWidthChanged records width as the current viewport width and
// delivers it to every viewport subscriber, then to width change listeners.
func (s *Service) OnScreenWidthChanged(width int) {
	s.dispatch(Screen, width)
}

func (s *Service) dispatch(target Target, width int) {
	s.metrics.RecordNotification(target.Kind.String())

	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	subs := append([]subscriber(nil), s.subs[target]...)
	if target.IsScreen() {
		s.screenWidth = width
		subs = append(subs, s.listeners...)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		s.invoke(target, width, sub.fn)
	}
}

// invoke runs fn, isolating the rest of the fan-out from a panic.
func (s *Service) invoke(target Target, width int, fn Callback) {
	defer func() {
		if r := recover(); r != nil {
			err := &CallbackError{
				Target: target,
				Width:  width,
				Panic:  r,
				Stack:  debug.Stack(),
			}
			s.metrics.RecordCallbackPanic(target.Kind.String())
			s.logger.Error("subscriber callback panicked",
				"target", target.String(),
				"error", err,
				"stack", string(err.Stack))
		}
	}()
	fn(width)
}

// CurrentScreenWidth returns the last known viewport width, or 0.
func (s *Service) CurrentScreenWidth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.screenWidth
}

// OnScreenWidthChange registers fn to run after every viewport
// notification. Listeners do not start or stop observation; pair them
// with ObserveScreen. The returned function removes the listener.
func (s *Service) OnScreenWidthChange(fn Callback) (cancel func()) {
	if fn == nil {
		return func() {}
	}

	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.listeners = append(s.listeners, subscriber{id: id, fn: fn})
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, l := range s.listeners {
			if l.id == id {
				s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}

// Targets returns the targets that currently have subscribers,
// screen first, then elements sorted by ID.
func (s *Service) Targets() []Target {
	s.mu.Lock()
	defer s.mu.Unlock()

	targets := make([]Target, 0, len(s.subs))
	for t := range s.subs {
		targets = append(targets, t)
	}
	sort.Slice(targets, func(i, j int) bool {
		if targets[i].Kind != targets[j].Kind {
			return targets[i].Kind == KindScreen
		}
		return targets[i].ID < targets[j].ID
	})
	return targets
}

// Subscribers returns the number of subscribers for target.
func (s *Service) Subscribers(target Target) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs[target])
}

// Disposed reports whether Dispose has been called.
func (s *Service) Disposed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disposed
}

// Dispose tears down every observer in the browser, clears all
// subscriptions and releases the host reference. Bridge failures are
// logged. Only the first call has any effect.
func (s *Service) Dispose(ctx context.Context) {
	s.disposeOnce.Do(func() {
		s.mu.Lock()
		s.disposed = true
		s.mu.Unlock()

		callCtx, cancel := s.callContext(ctx)
		if err := s.bridge.Dispose(callCtx); err != nil {
			s.logger.Warn("dispose failed", "error", err)
		}
		cancel()

		s.mu.Lock()
		for t := range s.subs {
			s.metrics.TargetObserved(t.Kind.String(), -1)
		}
		s.subs = make(map[Target][]subscriber)
		s.listeners = nil
		s.mu.Unlock()

		s.host.Release()
	})
}

func (s *Service) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.config.CallTimeout > 0 {
		return context.WithTimeout(ctx, s.config.CallTimeout)
	}
	return context.WithCancel(ctx)
}
