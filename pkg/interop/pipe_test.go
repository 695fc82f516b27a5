package interop

import (
	"io"
	"sync"
)

// pipe is an in-memory message connection. Closing either end closes both.
type pipe struct {
	in     <-chan []byte
	out    chan<- []byte
	closed chan struct{}
	once   *sync.Once
}

func newPipe() (*pipe, *pipe) {
	ab := make(chan []byte, 64)
	ba := make(chan []byte, 64)
	closed := make(chan struct{})
	once := &sync.Once{}
	return &pipe{in: ba, out: ab, closed: closed, once: once},
		&pipe{in: ab, out: ba, closed: closed, once: once}
}

func (p *pipe) ReadMessage() (int, []byte, error) {
	select {
	case msg := <-p.in:
		return BinaryMessage, msg, nil
	case <-p.closed:
		return 0, nil, io.EOF
	}
}

func (p *pipe) WriteMessage(_ int, data []byte) error {
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

func (p *pipe) Close() error {
	p.once.Do(func() { close(p.closed) })
	return nil
}
