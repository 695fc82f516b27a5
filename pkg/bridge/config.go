package bridge

import (
	"log/slog"
	"time"
)

// DefaultDebounceInterval is how long a target's width must stay
// unchanged before the host is notified.
const DefaultDebounceInterval = 250 * time.Millisecond

// Config configures a Bridge.
type Config struct {
	// DebounceInterval coalesces bursts of resize events.
	// Default: 250ms.
	DebounceInterval time.Duration

	// Clock schedules debounce timers.
	// Default: SystemClock.
	Clock Clock

	// Logger receives missing-element warnings.
	// Default: slog.Default() with component=bridge.
	Logger *slog.Logger
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		DebounceInterval: DefaultDebounceInterval,
		Clock:            SystemClock,
		Logger:           slog.Default().With("component", "bridge"),
	}
}
