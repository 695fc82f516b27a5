package interop

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/vango-dev/screenobserver/pkg/bridge"
	"github.com/vango-dev/screenobserver/pkg/dom/domtest"
	"github.com/vango-dev/screenobserver/pkg/protocol"
	"github.com/vango-dev/screenobserver/pkg/resize"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type session struct {
	svc    *resize.Service
	bridge *bridge.Bridge
	client *Client
	stop   func()
}

// startSession wires a registry to a bridge over an in-memory pipe.
func startSession(t *testing.T, doc *domtest.Document) *session {
	t.Helper()

	hostConn, browserConn := newPipe()
	br := bridge.New(doc, &bridge.Config{DebounceInterval: 20 * time.Millisecond, Logger: discard})
	client := NewClient(hostConn, discard)
	ep := NewEndpoint(browserConn, br, discard)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		ep.Serve(ctx)
	}()
	go func() {
		defer wg.Done()
		client.Run(ctx)
	}()

	s := &session{
		svc:    resize.New(client, &resize.Config{Logger: discard}),
		bridge: br,
		client: client,
	}
	s.stop = func() {
		cancel()
		wg.Wait()
	}
	t.Cleanup(s.stop)
	return s
}

func receive(t *testing.T, ch <-chan int) int {
	t.Helper()
	select {
	case w := <-ch:
		return w
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for width")
		return 0
	}
}

func expectNone(t *testing.T, ch <-chan int) {
	t.Helper()
	select {
	case w := <-ch:
		t.Fatalf("unexpected width %d", w)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestElementWidthEndToEnd(t *testing.T) {
	doc := domtest.New()
	doc.SetElement("box", 100.9)
	s := startSession(t, doc)
	ctx := context.Background()

	widths := make(chan int, 8)
	sub, width, err := s.svc.ObserveElement(ctx, "box", func(w int) { widths <- w })
	if err != nil {
		t.Fatalf("ObserveElement error = %v", err)
	}
	if width != 100 {
		t.Errorf("initial width = %d, want 100", width)
	}
	if !s.bridge.Observing(resize.Element("box")) {
		t.Fatal("bridge should observe box")
	}

	doc.Resize("box", 120)
	doc.Resize("box", 130)

	if got := receive(t, widths); got != 130 {
		t.Errorf("width = %d, want 130", got)
	}
	expectNone(t, widths)

	if err := s.svc.StopObservingElement(ctx, "box", sub); err != nil {
		t.Fatalf("StopObservingElement error = %v", err)
	}
	if s.bridge.Observing(resize.Element("box")) {
		t.Error("bridge should stop observing box after last unsubscribe")
	}

	doc.Resize("box", 200)
	expectNone(t, widths)
}

func TestScreenWidthEndToEnd(t *testing.T) {
	doc := domtest.New()
	doc.ResizeBody(1024)
	s := startSession(t, doc)
	ctx := context.Background()

	widths := make(chan int, 8)
	_, width, err := s.svc.ObserveScreen(ctx, func(w int) { widths <- w })
	if err != nil {
		t.Fatalf("ObserveScreen error = %v", err)
	}
	if width != 1024 {
		t.Errorf("initial width = %d, want 1024", width)
	}

	doc.ResizeBody(800.6)
	if got := receive(t, widths); got != 800 {
		t.Errorf("width = %d, want 800", got)
	}

	_, width, err = s.svc.ObserveScreen(ctx, func(int) {})
	if err != nil {
		t.Fatalf("second ObserveScreen error = %v", err)
	}
	if width != 800 {
		t.Errorf("cached width = %d, want 800", width)
	}
	if got := s.svc.CurrentScreenWidth(); got != 800 {
		t.Errorf("CurrentScreenWidth = %d, want 800", got)
	}
}

func TestMissingElementReportsZero(t *testing.T) {
	s := startSession(t, domtest.New())

	_, width, err := s.svc.ObserveElement(context.Background(), "ghost", func(int) {})
	if err != nil {
		t.Fatalf("ObserveElement error = %v", err)
	}
	if width != 0 {
		t.Errorf("width = %d, want 0", width)
	}
	if s.bridge.Len() != 0 {
		t.Errorf("bridge observers = %d, want 0", s.bridge.Len())
	}
}

func TestCallbackMayUnsubscribe(t *testing.T) {
	doc := domtest.New()
	doc.SetElement("box", 10)
	s := startSession(t, doc)
	ctx := context.Background()

	done := make(chan error, 1)
	var sub resize.Subscription
	var err error
	sub, _, err = s.svc.ObserveElement(ctx, "box", func(int) {
		done <- s.svc.StopObservingElement(ctx, "box", sub)
	})
	if err != nil {
		t.Fatalf("ObserveElement error = %v", err)
	}

	doc.Resize("box", 50)

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("StopObservingElement from callback error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("unsubscribing from a callback deadlocked")
	}
	if s.bridge.Observing(resize.Element("box")) {
		t.Error("bridge should no longer observe box")
	}
}

func TestDisposeTearsDownBridge(t *testing.T) {
	doc := domtest.New()
	doc.SetElement("a", 10)
	doc.SetElement("b", 20)
	s := startSession(t, doc)
	ctx := context.Background()

	widths := make(chan int, 8)
	for _, id := range []string{"a", "b"} {
		if _, _, err := s.svc.ObserveElement(ctx, id, func(w int) { widths <- w }); err != nil {
			t.Fatalf("ObserveElement(%s) error = %v", id, err)
		}
	}
	if _, _, err := s.svc.ObserveScreen(ctx, func(w int) { widths <- w }); err != nil {
		t.Fatalf("ObserveScreen error = %v", err)
	}

	s.svc.Dispose(ctx)

	if s.bridge.Len() != 0 {
		t.Errorf("bridge observers = %d, want 0", s.bridge.Len())
	}
	if doc.ObserverCount() != 0 {
		t.Errorf("document observers = %d, want 0", doc.ObserverCount())
	}

	doc.Resize("a", 99)
	expectNone(t, widths)
}

func TestObserveAfterDisposeIsRefused(t *testing.T) {
	doc := domtest.New()
	doc.SetElement("box", 40)
	ctx := context.Background()

	tests := []struct {
		name  string
		setup func(s *session) *resize.HostRef
	}{
		{"released host", func(s *session) *resize.HostRef {
			host := resize.NewHostRef(s.svc)
			host.Release()
			return host
		}},
		{"disposed client", func(s *session) *resize.HostRef {
			if err := s.client.Dispose(ctx); err != nil {
				t.Fatalf("Dispose error = %v", err)
			}
			return resize.NewHostRef(s.svc)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := startSession(t, doc)
			host := tt.setup(s)

			if _, err := s.client.ObserveElement(ctx, host, "box"); !errors.Is(err, resize.ErrDisposed) {
				t.Errorf("ObserveElement error = %v, want ErrDisposed", err)
			}
			if _, err := s.client.ObserveScreen(ctx, host); !errors.Is(err, resize.ErrDisposed) {
				t.Errorf("ObserveScreen error = %v, want ErrDisposed", err)
			}

			s.client.mu.Lock()
			n := len(s.client.hosts)
			s.client.mu.Unlock()
			if n != 0 {
				t.Errorf("registered hosts = %d, want 0", n)
			}
			if s.bridge.Len() != 0 {
				t.Errorf("bridge observers = %d, want 0", s.bridge.Len())
			}
		})
	}
}

func TestCallsFailAfterDisconnect(t *testing.T) {
	hostConn, browserConn := newPipe()
	client := NewClient(hostConn, discard)

	errCh := make(chan error, 1)
	go func() { errCh <- client.Run(context.Background()) }()

	// Swallow the call so it stays pending, then drop the connection.
	go func() {
		browserConn.ReadMessage()
		browserConn.Close()
	}()

	host := resize.NewHostRef(resize.New(client, nil))
	_, err := client.ObserveElement(context.Background(), host, "box")
	if !errors.Is(err, ErrClosed) {
		t.Errorf("pending call error = %v, want ErrClosed", err)
	}

	select {
	case <-client.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("client did not shut down")
	}
	if _, err := client.ObserveScreen(context.Background(), host); !errors.Is(err, ErrClosed) {
		t.Errorf("call after close error = %v, want ErrClosed", err)
	}
	if err := client.Dispose(context.Background()); err != nil {
		t.Errorf("Dispose after close error = %v, want nil", err)
	}
	<-errCh
}

func TestCallHonoursContext(t *testing.T) {
	hostConn, _ := newPipe()
	client := NewClient(hostConn, discard)
	go client.Run(context.Background())
	defer hostConn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := client.StopObservingScreen(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want context.DeadlineExceeded", err)
	}
}

type failingBridge struct {
	resize.Bridge
}

func (failingBridge) StopObservingScreen(context.Context) error {
	return errors.New("observer busy")
}

func (failingBridge) Dispose(context.Context) error { return nil }

func TestRemoteErrorIsReturned(t *testing.T) {
	hostConn, browserConn := newPipe()
	client := NewClient(hostConn, discard)
	ep := NewEndpoint(browserConn, failingBridge{}, discard)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ep.Serve(ctx)
	go client.Run(ctx)

	err := client.StopObservingScreen(context.Background())
	var remote *RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("error = %v, want *RemoteError", err)
	}
	if remote.Method != protocol.MethodStopObservingScreen || remote.Message != "observer busy" {
		t.Errorf("RemoteError = %+v", remote)
	}
}

func TestEndpointAnswersPing(t *testing.T) {
	hostConn, browserConn := newPipe()
	ep := NewEndpoint(browserConn, failingBridge{}, discard)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ep.Serve(ctx)

	err := WriteFrame(hostConn, protocol.FrameControl, protocol.EncodeControl(&protocol.Control{
		Type:      protocol.ControlPing,
		Timestamp: 77,
	}))
	if err != nil {
		t.Fatalf("WriteFrame error = %v", err)
	}

	frame, err := ReadFrame(hostConn)
	if err != nil {
		t.Fatalf("ReadFrame error = %v", err)
	}
	ctrl, err := protocol.DecodeControl(frame.Payload)
	if err != nil {
		t.Fatalf("DecodeControl error = %v", err)
	}
	if ctrl.Type != protocol.ControlPong || ctrl.Timestamp != 77 {
		t.Errorf("reply = %+v, want pong 77", ctrl)
	}
}

func TestEndpointRejectsInvalidCall(t *testing.T) {
	hostConn, browserConn := newPipe()
	ep := NewEndpoint(browserConn, failingBridge{}, discard)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ep.Serve(ctx)

	if err := WriteFrame(hostConn, protocol.FrameCall, []byte{0x01, 0x7f}); err != nil {
		t.Fatalf("WriteFrame error = %v", err)
	}

	frame, err := ReadFrame(hostConn)
	if err != nil {
		t.Fatalf("ReadFrame error = %v", err)
	}
	if frame.Type != protocol.FrameError {
		t.Fatalf("frame type = %s, want Error", frame.Type)
	}
	em, err := protocol.DecodeErrorMessage(frame.Payload)
	if err != nil {
		t.Fatalf("DecodeErrorMessage error = %v", err)
	}
	if em.Code != protocol.ErrInvalidCall || em.Fatal {
		t.Errorf("error = %+v", em)
	}
}

func TestHandshake(t *testing.T) {
	tests := []struct {
		name    string
		status  protocol.HandshakeStatus
		wantErr bool
	}{
		{"accepted", protocol.HandshakeOK, false},
		{"rejected", protocol.HandshakeVersionMismatch, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			browser, host := newPipe()
			defer browser.Close()

			go func() {
				frame, err := ReadFrame(host)
				if err != nil || frame.Type != protocol.FrameHandshake {
					return
				}
				WriteFrame(host, protocol.FrameHandshake, protocol.EncodeServerHello(&protocol.ServerHello{
					Status:         tt.status,
					DebounceMillis: 250,
				}))
			}()

			sh, err := Handshake(browser, protocol.NewClientHello("test", 640))
			if (err != nil) != tt.wantErr {
				t.Fatalf("Handshake error = %v, wantErr %v", err, tt.wantErr)
			}
			if sh == nil || sh.Status != tt.status || sh.DebounceMillis != 250 {
				t.Errorf("ServerHello = %+v", sh)
			}
		})
	}
}
