package protocol

// HandshakeStatus represents the result of a handshake.
type HandshakeStatus uint8

const (
	HandshakeOK              HandshakeStatus = 0x00
	HandshakeVersionMismatch HandshakeStatus = 0x01
	HandshakeInvalidFormat   HandshakeStatus = 0x02 // Malformed handshake message
	HandshakeServerBusy      HandshakeStatus = 0x03
)

// String returns the string representation of the handshake status.
func (hs HandshakeStatus) String() string {
	switch hs {
	case HandshakeOK:
		return "OK"
	case HandshakeVersionMismatch:
		return "VersionMismatch"
	case HandshakeInvalidFormat:
		return "InvalidFormat"
	case HandshakeServerBusy:
		return "ServerBusy"
	default:
		return "Unknown"
	}
}

// ProtocolVersion represents a protocol version as major.minor.
type ProtocolVersion struct {
	Major uint8
	Minor uint8
}

// CurrentVersion is the current protocol version.
var CurrentVersion = ProtocolVersion{Major: 1, Minor: 0}

// Compatible reports whether a peer speaking v can talk to this build.
// Minor versions are backwards compatible.
func (v ProtocolVersion) Compatible() bool {
	return v.Major == CurrentVersion.Major
}

// ClientHello is sent by the browser after the WebSocket opens.
type ClientHello struct {
	Version       ProtocolVersion
	UserAgent     string
	ViewportWidth uint16 // Body width at connect time, 0 if unknown
}

// ServerHello is the host's response to ClientHello.
type ServerHello struct {
	Status         HandshakeStatus
	DebounceMillis uint16 // Debounce interval the bridge must use
	ServerTime     uint64 // Unix milliseconds
}

// NewClientHello creates a ClientHello for the current version.
func NewClientHello(userAgent string, viewportWidth uint16) *ClientHello {
	return &ClientHello{
		Version:       CurrentVersion,
		UserAgent:     userAgent,
		ViewportWidth: viewportWidth,
	}
}

// EncodeClientHello encodes a ClientHello to bytes.
func EncodeClientHello(ch *ClientHello) []byte {
	e := NewEncoder()
	e.WriteByte(ch.Version.Major)
	e.WriteByte(ch.Version.Minor)
	e.WriteString(ch.UserAgent)
	e.WriteUint16(ch.ViewportWidth)
	return e.Bytes()
}

// DecodeClientHello decodes a ClientHello from bytes.
func DecodeClientHello(data []byte) (*ClientHello, error) {
	d := NewDecoder(data)
	ch := &ClientHello{}
	var err error

	if ch.Version.Major, err = d.ReadByte(); err != nil {
		return nil, err
	}
	if ch.Version.Minor, err = d.ReadByte(); err != nil {
		return nil, err
	}
	if ch.UserAgent, err = d.ReadString(); err != nil {
		return nil, err
	}
	if ch.ViewportWidth, err = d.ReadUint16(); err != nil {
		return nil, err
	}
	if err := d.finish(); err != nil {
		return nil, err
	}
	return ch, nil
}

// EncodeServerHello encodes a ServerHello to bytes.
func EncodeServerHello(sh *ServerHello) []byte {
	e := NewEncoder()
	e.WriteByte(byte(sh.Status))
	e.WriteUint16(sh.DebounceMillis)
	e.WriteUint64(sh.ServerTime)
	return e.Bytes()
}

// DecodeServerHello decodes a ServerHello from bytes.
func DecodeServerHello(data []byte) (*ServerHello, error) {
	d := NewDecoder(data)
	sh := &ServerHello{}

	status, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	sh.Status = HandshakeStatus(status)

	if sh.DebounceMillis, err = d.ReadUint16(); err != nil {
		return nil, err
	}
	if sh.ServerTime, err = d.ReadUint64(); err != nil {
		return nil, err
	}
	if err := d.finish(); err != nil {
		return nil, err
	}
	return sh, nil
}
