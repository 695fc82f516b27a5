package protocol

import "errors"

// ErrInvalidMethod is returned when a call carries an unknown method.
var ErrInvalidMethod = errors.New("protocol: invalid call method")

// Method identifies a bridge operation.
type Method uint8

const (
	MethodObserveElement       Method = 0x01
	MethodObserveScreen        Method = 0x02
	MethodStopObservingElement Method = 0x03
	MethodStopObservingScreen  Method = 0x04
	MethodDispose              Method = 0x05
)

// String returns the method name as used in logs, spans and metrics.
func (m Method) String() string {
	switch m {
	case MethodObserveElement:
		return "observeElement"
	case MethodObserveScreen:
		return "observeScreen"
	case MethodStopObservingElement:
		return "stopObservingElement"
	case MethodStopObservingScreen:
		return "stopObservingScreen"
	case MethodDispose:
		return "dispose"
	default:
		return "unknown"
	}
}

func (m Method) valid() bool {
	return m >= MethodObserveElement && m <= MethodDispose
}

// Call is a host → browser bridge invocation.
//
// Wire format:
//
//	[ID: varint][Method: byte][HostRef: varint][Target: string]
type Call struct {
	ID      uint64
	Method  Method
	HostRef uint64 // Host reference for observe calls, 0 otherwise
	Target  string // Element ID for element calls, empty otherwise
}

// EncodeCall encodes a Call to bytes.
func EncodeCall(c *Call) []byte {
	e := NewEncoder()
	e.WriteUvarint(c.ID)
	e.WriteByte(byte(c.Method))
	e.WriteUvarint(c.HostRef)
	e.WriteString(c.Target)
	return e.Bytes()
}

// DecodeCall decodes a Call from bytes.
func DecodeCall(data []byte) (*Call, error) {
	d := NewDecoder(data)
	c := &Call{}
	var err error

	if c.ID, err = d.ReadUvarint(); err != nil {
		return nil, err
	}
	m, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	c.Method = Method(m)
	if !c.Method.valid() {
		return nil, ErrInvalidMethod
	}
	if c.HostRef, err = d.ReadUvarint(); err != nil {
		return nil, err
	}
	if c.Target, err = d.ReadString(); err != nil {
		return nil, err
	}
	if err := d.finish(); err != nil {
		return nil, err
	}
	return c, nil
}

// Result answers the Call with the same ID.
//
// Wire format:
//
//	[ID: varint][Width: svarint][Err: string]
type Result struct {
	ID    uint64
	Width int64
	Err   string // Empty on success
}

// EncodeResult encodes a Result to bytes.
func EncodeResult(r *Result) []byte {
	e := NewEncoder()
	e.WriteUvarint(r.ID)
	e.WriteSvarint(r.Width)
	e.WriteString(r.Err)
	return e.Bytes()
}

// DecodeResult decodes a Result from bytes.
func DecodeResult(data []byte) (*Result, error) {
	d := NewDecoder(data)
	r := &Result{}
	var err error

	if r.ID, err = d.ReadUvarint(); err != nil {
		return nil, err
	}
	if r.Width, err = d.ReadSvarint(); err != nil {
		return nil, err
	}
	if r.Err, err = d.ReadString(); err != nil {
		return nil, err
	}
	if err := d.finish(); err != nil {
		return nil, err
	}
	return r, nil
}

// TargetKind mirrors resize.TargetKind on the wire.
type TargetKind uint8

const (
	TargetElement TargetKind = 0x01
	TargetScreen  TargetKind = 0x02
)

// Notify carries a settled width from the browser.
//
// Wire format:
//
//	[HostRef: varint][Kind: byte][Target: string][Width: svarint]
type Notify struct {
	HostRef uint64
	Kind    TargetKind
	Target  string
	Width   int64
}

// EncodeNotify encodes a Notify to bytes.
func EncodeNotify(n *Notify) []byte {
	e := NewEncoder()
	e.WriteUvarint(n.HostRef)
	e.WriteByte(byte(n.Kind))
	e.WriteString(n.Target)
	e.WriteSvarint(n.Width)
	return e.Bytes()
}

// DecodeNotify decodes a Notify from bytes.
func DecodeNotify(data []byte) (*Notify, error) {
	d := NewDecoder(data)
	n := &Notify{}
	var err error

	if n.HostRef, err = d.ReadUvarint(); err != nil {
		return nil, err
	}
	kind, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	n.Kind = TargetKind(kind)
	if n.Target, err = d.ReadString(); err != nil {
		return nil, err
	}
	if n.Width, err = d.ReadSvarint(); err != nil {
		return nil, err
	}
	if err := d.finish(); err != nil {
		return nil, err
	}
	return n, nil
}
