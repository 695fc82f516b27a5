// Package protocol implements the binary interop protocol spoken between
// the screen observer host and the browser bridge.
//
// The host sends calls (observe, stop, dispose); the browser answers each
// call with a result and, independently, pushes settled width
// notifications.
//
// # Wire Format
//
// All messages are framed with a 4-byte header:
//
//	┌─────────────┬──────────────┬───────────────────────────────┐
//	│ Frame Type  │ Flags        │ Payload Length                │
//	│ (1 byte)    │ (1 byte)     │ (2 bytes, big-endian)         │
//	└─────────────┴──────────────┴───────────────────────────────┘
//
// # Frame Types
//
//   - FrameHandshake (0x00): ClientHello / ServerHello
//   - FrameCall (0x01): Host → Browser bridge call
//   - FrameResult (0x02): Browser → Host call result
//   - FrameNotify (0x03): Browser → Host settled width
//   - FrameControl (0x04): Ping, pong, close
//   - FrameError (0x05): Error message
//
// # Encoding
//
//   - Varint: call IDs and host reference IDs (protobuf-style)
//   - ZigZag: widths, encoded as signed varints
//   - Length-prefixed: strings prefixed with varint length
//   - Big-endian: fixed-width integers
//
// Example ObserveElement call for "box" with call ID 1 and host ref 7:
//
//	[ID: 0x01][Method: 0x01][HostRef: 0x07][Target: 0x03 'b' 'o' 'x']
package protocol
