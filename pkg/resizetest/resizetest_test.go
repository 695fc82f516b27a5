package resizetest_test

import (
	"context"
	"reflect"
	"testing"

	"github.com/vango-dev/screenobserver/pkg/resize"
	"github.com/vango-dev/screenobserver/pkg/resizetest"
)

func TestHarnessElement(t *testing.T) {
	h := resizetest.New().WithElement("chart", 640.4).Start(t)
	ctx := context.Background()

	widths := resizetest.NewRecorder()
	_, width, err := h.Service.ObserveElement(ctx, "chart", widths.Callback())
	if err != nil {
		t.Fatalf("ObserveElement error: %v", err)
	}
	if width != 640 {
		t.Errorf("initial width = %d, want 640", width)
	}

	h.Doc.Resize("chart", 500)
	if got := widths.Next(t); got != 500 {
		t.Errorf("width = %d, want 500", got)
	}
	widths.ExpectNone(t)

	if !reflect.DeepEqual(widths.All(), []int{500}) {
		t.Errorf("All() = %v, want [500]", widths.All())
	}
}

func TestHarnessScreen(t *testing.T) {
	h := resizetest.New().WithBodyWidth(1280).Start(t)

	widths := resizetest.NewRecorder()
	_, width, err := h.Service.ObserveScreen(context.Background(), widths.Callback())
	if err != nil {
		t.Fatalf("ObserveScreen error: %v", err)
	}
	if width != 1280 {
		t.Errorf("initial width = %d, want 1280", width)
	}

	h.Doc.ResizeBody(1000)
	if got := widths.Next(t); got != 1000 {
		t.Errorf("width = %d, want 1000", got)
	}
}

func TestHarnessContext(t *testing.T) {
	h := resizetest.New().Start(t)

	if resize.FromContext(h.Context()) != h.Service {
		t.Error("Context() should carry the harness service")
	}

	h.Stop()
	h.Stop()

	select {
	case <-h.Context().Done():
	default:
		t.Error("Context() should end when the harness stops")
	}
	if !h.Service.Disposed() {
		t.Error("Stop should dispose the service")
	}
	if h.Bridge.Len() != 0 {
		t.Errorf("bridge observers = %d, want 0", h.Bridge.Len())
	}
}

func TestPipe(t *testing.T) {
	a, b := resizetest.NewPipe()

	if err := a.WriteMessage(2, []byte("hi")); err != nil {
		t.Fatalf("WriteMessage error: %v", err)
	}
	_, msg, err := b.ReadMessage()
	if err != nil || string(msg) != "hi" {
		t.Errorf("ReadMessage = %q, %v; want hi", msg, err)
	}

	b.Close()
	if _, _, err := a.ReadMessage(); err == nil {
		t.Error("ReadMessage after close should fail")
	}
	if err := a.WriteMessage(2, nil); err == nil {
		t.Error("WriteMessage after close should fail")
	}
}
