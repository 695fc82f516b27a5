package bridge

import "time"

// Timer is a pending debounce timer.
type Timer interface {
	// Stop prevents the timer from firing. It reports whether the call
	// stopped the timer.
	Stop() bool
}

// Clock schedules debounce timers.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// SystemClock schedules timers with time.AfterFunc.
// Under js/wasm the Go runtime backs these with setTimeout.
var SystemClock Clock = systemClock{}

type systemClock struct{}

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
