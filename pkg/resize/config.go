package resize

import (
	"log/slog"
	"time"

	"github.com/vango-dev/screenobserver/pkg/metrics"
)

// Config configures a Service.
type Config struct {
	// CallTimeout bounds every bridge call made by the service.
	// Negative disables the bound; the caller's context still applies.
	// Default: 5 seconds.
	CallTimeout time.Duration

	// Logger receives bridge failures and callback panics.
	// Default: slog.Default() with component=resize.
	Logger *slog.Logger

	// Metrics records fan-out and target counts. Optional.
	Metrics *metrics.Metrics
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		CallTimeout: 5 * time.Second,
		Logger:      slog.Default().With("component", "resize"),
	}
}
