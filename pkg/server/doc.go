// Package server serves browser pages that report element and viewport
// widths over a WebSocket.
//
// Every connection is one page. After the handshake the server builds a
// resize.Service for the page, backed by an interop.Client, and runs the
// OnSession hook with a context carrying that service:
//
//	cfg := server.DefaultServerConfig()
//	cfg.OnSession = func(ctx context.Context, svc *resize.Service) {
//	    svc.ObserveScreen(ctx, func(width int) {
//	        slog.Info("viewport", "width", width)
//	    })
//	    <-ctx.Done()
//	}
//	srv := server.New(cfg)
//	srv.Run()
//
// Routes:
//   - GET {Path}: the WebSocket endpoint (default /_screen/ws)
//   - GET {MetricsPath}: Prometheus metrics (default /metrics)
//   - GET /*: static files from AssetsDir, if set
//
// # Session lifecycle
//
// The session context is cancelled when the connection ends, after which
// the service is disposed and its host reference released. Shutdown sends
// every page a Close frame before stopping the HTTP server.
package server
