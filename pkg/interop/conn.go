// Package interop carries bridge calls and width notifications between the
// host and the browser over a message-oriented connection.
//
// The host side is a Client, which implements resize.Bridge by sending
// Call frames and waiting for the matching Result. The browser side is an
// Endpoint, which executes those calls against a local bridge and sends a
// Notify frame every time a target's width settles.
//
//	host                               browser
//	resize.Service → Client  ──Call──▶ Endpoint → bridge.Bridge
//	resize.Service ◀ Client ◀─Notify── Endpoint ◀ HostRef
package interop

import (
	"errors"
	"fmt"

	"github.com/vango-dev/screenobserver/pkg/protocol"
)

// BinaryMessage is the message type used for every frame.
// Equal to websocket.BinaryMessage.
const BinaryMessage = 2

// Conn is a message-oriented connection. *websocket.Conn satisfies it.
//
// ReadMessage is only called from one goroutine. WriteMessage calls are
// serialized by the caller.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

var (
	// ErrClosed is returned by calls made on, or pending across, a closed
	// connection.
	ErrClosed = errors.New("interop: connection closed")

	// ErrUnexpectedFrame is returned when a handshake receives a frame of
	// the wrong type.
	ErrUnexpectedFrame = errors.New("interop: unexpected frame type")
)

// RemoteError is a failure reported by the other side of a call.
type RemoteError struct {
	Method  protocol.Method
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("interop: remote %s failed: %s", e.Method, e.Message)
}

// WriteFrame encodes a frame and writes it as one binary message.
func WriteFrame(conn Conn, ft protocol.FrameType, payload []byte) error {
	data, err := protocol.NewFrame(ft, payload).Encode()
	if err != nil {
		return err
	}
	return conn.WriteMessage(BinaryMessage, data)
}

// ReadFrame reads one message and decodes it as a frame.
func ReadFrame(conn Conn) (*protocol.Frame, error) {
	_, data, err := conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	return protocol.DecodeFrame(data)
}

// Handshake sends hello and waits for the server's answer. A non-OK status
// is returned together with an error.
func Handshake(conn Conn, hello *protocol.ClientHello) (*protocol.ServerHello, error) {
	if err := WriteFrame(conn, protocol.FrameHandshake, protocol.EncodeClientHello(hello)); err != nil {
		return nil, fmt.Errorf("interop: send hello: %w", err)
	}

	frame, err := ReadFrame(conn)
	if err != nil {
		return nil, fmt.Errorf("interop: read hello: %w", err)
	}
	if frame.Type != protocol.FrameHandshake {
		return nil, ErrUnexpectedFrame
	}

	sh, err := protocol.DecodeServerHello(frame.Payload)
	if err != nil {
		return nil, fmt.Errorf("interop: decode hello: %w", err)
	}
	if sh.Status != protocol.HandshakeOK {
		return sh, fmt.Errorf("interop: handshake rejected: %s", sh.Status)
	}
	return sh, nil
}
