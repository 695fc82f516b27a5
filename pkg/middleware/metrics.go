package middleware

import (
	"context"
	"time"

	"github.com/vango-dev/screenobserver/pkg/metrics"
)

// Prometheus creates middleware that records the count and latency of
// every bridge call into m. A nil m records nothing.
func Prometheus(m *metrics.Metrics) Middleware {
	return Intercept(func(ctx context.Context, call *Call, next func(context.Context) error) error {
		start := time.Now()
		err := next(ctx)
		m.RecordBridgeCall(call.Method.String(), err, time.Since(start))
		return err
	})
}
