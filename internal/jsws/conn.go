//go:build js && wasm

package jsws

import (
	"context"
	"errors"
	"io"
	"sync"
	"syscall/js"
)

// binaryMessage matches websocket.BinaryMessage.
const binaryMessage = 2

// ErrDialFailed is returned when the socket errors or closes before opening.
var ErrDialFailed = errors.New("jsws: dial failed")

// Conn is a browser WebSocket carrying binary messages.
type Conn struct {
	ws    js.Value
	funcs []js.Func

	mu     sync.Mutex
	queue  [][]byte
	ready  chan struct{}
	closed chan struct{}
	once   sync.Once
}

// Dial opens a WebSocket to url and waits until it is open.
func Dial(ctx context.Context, url string) (*Conn, error) {
	c := &Conn{
		ws:     js.Global().Get("WebSocket").New(url),
		ready:  make(chan struct{}, 1),
		closed: make(chan struct{}),
	}
	c.ws.Set("binaryType", "arraybuffer")

	opened := make(chan struct{})
	var openOnce sync.Once

	c.on("open", func(js.Value) {
		openOnce.Do(func() { close(opened) })
	})
	c.on("message", func(ev js.Value) {
		data := ev.Get("data")
		if data.Type() == js.TypeString {
			return
		}
		arr := js.Global().Get("Uint8Array").New(data)
		buf := make([]byte, arr.Get("length").Int())
		js.CopyBytesToGo(buf, arr)

		c.mu.Lock()
		c.queue = append(c.queue, buf)
		c.mu.Unlock()
		select {
		case c.ready <- struct{}{}:
		default:
		}
	})
	c.on("close", func(js.Value) {
		c.shutdown()
	})
	c.on("error", func(js.Value) {
		c.shutdown()
	})

	select {
	case <-opened:
		return c, nil
	case <-c.closed:
		c.release()
		return nil, ErrDialFailed
	case <-ctx.Done():
		c.Close()
		return nil, ctx.Err()
	}
}

func (c *Conn) on(event string, fn func(js.Value)) {
	f := js.FuncOf(func(this js.Value, args []js.Value) any {
		var ev js.Value
		if len(args) > 0 {
			ev = args[0]
		}
		fn(ev)
		return nil
	})
	c.funcs = append(c.funcs, f)
	c.ws.Call("addEventListener", event, f)
}

// ReadMessage returns the next binary message.
func (c *Conn) ReadMessage() (int, []byte, error) {
	for {
		c.mu.Lock()
		if len(c.queue) > 0 {
			msg := c.queue[0]
			c.queue[0] = nil
			c.queue = c.queue[1:]
			c.mu.Unlock()
			return binaryMessage, msg, nil
		}
		c.mu.Unlock()

		select {
		case <-c.ready:
		case <-c.closed:
			return 0, nil, io.EOF
		}
	}
}

// WriteMessage sends data as one binary message.
func (c *Conn) WriteMessage(_ int, data []byte) error {
	select {
	case <-c.closed:
		return io.ErrClosedPipe
	default:
	}
	arr := js.Global().Get("Uint8Array").New(len(data))
	js.CopyBytesToJS(arr, data)
	c.ws.Call("send", arr)
	return nil
}

// Close closes the socket. Safe to call more than once.
func (c *Conn) Close() error {
	c.shutdown()
	c.ws.Call("close")
	c.release()
	return nil
}

func (c *Conn) shutdown() {
	c.once.Do(func() { close(c.closed) })
}

func (c *Conn) release() {
	c.mu.Lock()
	funcs := c.funcs
	c.funcs = nil
	c.mu.Unlock()

	for _, f := range funcs {
		f.Release()
	}
}
