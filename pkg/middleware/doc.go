// Package middleware provides observability decorators for resize.Bridge.
//
// This package includes:
//   - OpenTelemetry tracing of every bridge call
//   - Prometheus call counts and latency
//
// Decorators compose with Chain. The first middleware is the outermost:
//
//	b := middleware.Chain(client,
//	    middleware.OpenTelemetry(),
//	    middleware.Prometheus(m),
//	)
//	svc := resize.New(b, nil)
//
// # OpenTelemetry
//
// Each call becomes a client span named after the bridge method, carrying
// the target and, for observe calls, the returned width. The tracer comes
// from the global provider unless WithTracerProvider is given:
//
//	otel.SetTracerProvider(tp)
//
// # Prometheus
//
// Prometheus records into a *metrics.Metrics:
//   - screenobserver_bridge_calls_total: calls by method and status
//   - screenobserver_bridge_call_duration_seconds: call latency by method
package middleware
