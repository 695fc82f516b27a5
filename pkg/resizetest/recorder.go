package resizetest

import (
	"sync"
	"testing"
	"time"

	"github.com/vango-dev/screenobserver/pkg/resize"
)

// WaitTimeout bounds Next.
var WaitTimeout = 2 * time.Second

// QuietPeriod is how long ExpectNone waits for a stray width.
var QuietPeriod = 100 * time.Millisecond

// Recorder collects widths delivered to a callback.
type Recorder struct {
	ch  chan int
	mu  sync.Mutex
	all []int
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{ch: make(chan int, 64)}
}

// Callback returns a resize.Callback feeding the recorder.
func (r *Recorder) Callback() resize.Callback {
	return func(width int) {
		r.mu.Lock()
		r.all = append(r.all, width)
		r.mu.Unlock()
		select {
		case r.ch <- width:
		default:
		}
	}
}

// Next waits for the next width and fails the test after WaitTimeout.
func (r *Recorder) Next(t testing.TB) int {
	t.Helper()
	select {
	case w := <-r.ch:
		return w
	case <-time.After(WaitTimeout):
		t.Fatal("timed out waiting for width")
		return 0
	}
}

// ExpectNone fails the test if a width arrives within QuietPeriod.
func (r *Recorder) ExpectNone(t testing.TB) {
	t.Helper()
	select {
	case w := <-r.ch:
		t.Errorf("unexpected width %d", w)
	case <-time.After(QuietPeriod):
	}
}

// All returns every width recorded so far.
func (r *Recorder) All() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.all...)
}
