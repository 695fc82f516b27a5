package resizetest

import (
	"io"
	"sync"

	"github.com/vango-dev/screenobserver/pkg/interop"
)

// Pipe is one end of an in-memory message connection.
type Pipe struct {
	in     <-chan []byte
	out    chan<- []byte
	closed chan struct{}
	once   *sync.Once
}

var _ interop.Conn = (*Pipe)(nil)

// NewPipe returns two connected ends. Closing either end closes both.
func NewPipe() (*Pipe, *Pipe) {
	ab := make(chan []byte, 64)
	ba := make(chan []byte, 64)
	closed := make(chan struct{})
	once := &sync.Once{}
	return &Pipe{in: ba, out: ab, closed: closed, once: once},
		&Pipe{in: ab, out: ba, closed: closed, once: once}
}

// ReadMessage blocks for the next message from the other end.
func (p *Pipe) ReadMessage() (int, []byte, error) {
	select {
	case msg := <-p.in:
		return interop.BinaryMessage, msg, nil
	case <-p.closed:
		return 0, nil, io.EOF
	}
}

// WriteMessage queues data for the other end.
func (p *Pipe) WriteMessage(_ int, data []byte) error {
	select {
	case <-p.closed:
		return io.ErrClosedPipe
	default:
	}
	select {
	case p.out <- data:
		return nil
	case <-p.closed:
		return io.ErrClosedPipe
	}
}

// Close closes both ends.
func (p *Pipe) Close() error {
	p.once.Do(func() { close(p.closed) })
	return nil
}
