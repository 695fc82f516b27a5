package middleware

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/screenobserver/pkg/interop"
	"github.com/vango-dev/screenobserver/pkg/protocol"
)

// Default tracer name for screen observer spans.
const defaultTracerName = "screenobserver"

// OTelConfig configures the OpenTelemetry middleware.
type OTelConfig struct {
	// TracerName is the name of the tracer (default: "screenobserver").
	TracerName string

	// TracerProvider supplies the tracer.
	// Default: the global provider.
	TracerProvider trace.TracerProvider

	// Filter determines which calls to trace.
	// If nil, all calls are traced.
	Filter func(call *Call) bool

	// AttributeExtractor adds custom attributes to each span.
	AttributeExtractor func(ctx context.Context, call *Call) []attribute.KeyValue
}

// OTelOption configures the OpenTelemetry middleware.
type OTelOption func(*OTelConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) OTelOption {
	return func(c *OTelConfig) {
		c.TracerName = name
	}
}

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(tp trace.TracerProvider) OTelOption {
	return func(c *OTelConfig) {
		c.TracerProvider = tp
	}
}

// WithCallFilter sets a filter function for calls.
func WithCallFilter(filter func(call *Call) bool) OTelOption {
	return func(c *OTelConfig) {
		c.Filter = filter
	}
}

// WithAttributeExtractor sets a custom attribute extractor.
func WithAttributeExtractor(extractor func(ctx context.Context, call *Call) []attribute.KeyValue) OTelOption {
	return func(c *OTelConfig) {
		c.AttributeExtractor = extractor
	}
}

// OpenTelemetry creates middleware that traces every bridge call.
//
// Spans carry the method, the target and, for observe calls, the
// returned width. Errors are recorded and set the span status.
func OpenTelemetry(opts ...OTelOption) Middleware {
	config := OTelConfig{TracerName: defaultTracerName}
	for _, opt := range opts {
		opt(&config)
	}

	tp := config.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	tracer := tp.Tracer(config.TracerName)

	return Intercept(func(ctx context.Context, call *Call, next func(context.Context) error) error {
		if config.Filter != nil && !config.Filter(call) {
			return next(ctx)
		}

		attrs := []attribute.KeyValue{
			attribute.String("screenobserver.method", call.Method.String()),
		}
		if call.Target.Valid() {
			attrs = append(attrs, attribute.String("screenobserver.target", call.Target.String()))
		}
		if config.AttributeExtractor != nil {
			attrs = append(attrs, config.AttributeExtractor(ctx, call)...)
		}

		spanCtx, span := tracer.Start(ctx, "screenobserver."+call.Method.String(),
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(attrs...),
		)
		defer span.End()

		err := next(spanCtx)

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			span.SetAttributes(attribute.String("screenobserver.error_type", categorizeError(err)))
		} else {
			span.SetStatus(codes.Ok, "")
		}
		if call.Method == protocol.MethodObserveElement || call.Method == protocol.MethodObserveScreen {
			span.SetAttributes(attribute.Int("screenobserver.width", call.Width))
		}
		return err
	})
}

// categorizeError returns a low-cardinality category for err.
func categorizeError(err error) string {
	var remote *interop.RemoteError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, interop.ErrClosed):
		return "closed"
	case errors.As(err, &remote):
		return "remote"
	default:
		return "internal"
	}
}
