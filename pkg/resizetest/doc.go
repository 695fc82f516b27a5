// Package resizetest provides testing helpers for code built on
// resize.Service.
//
// A Harness runs the whole observer stack in memory: a Service backed by
// an interop.Client, an in-memory connection, an interop.Endpoint and a
// bridge over a domtest.Document. Resizing the document drives the same
// code paths a real page does.
//
// # Quick Start
//
//	func TestSidebarCollapses(t *testing.T) {
//	    h := resizetest.New().
//	        WithElement("sidebar", 320).
//	        WithDebounce(10 * time.Millisecond).
//	        Start(t)
//
//	    widths := resizetest.NewRecorder()
//	    h.Service.ObserveElement(ctx, "sidebar", widths.Callback())
//
//	    h.Doc.Resize("sidebar", 180)
//	    if got := widths.Next(t); got != 180 {
//	        t.Errorf("width = %d, want 180", got)
//	    }
//	}
//
// # Session Hooks
//
// Hooks written for server.ServerConfig.OnSession can be exercised
// directly:
//
//	h := resizetest.New().WithBodyWidth(1280).Start(t)
//	go hook(h.Context(), h.Service)
//
// The harness is stopped and the service disposed by t.Cleanup.
package resizetest
