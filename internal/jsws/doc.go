// Package jsws adapts the browser's WebSocket to interop.Conn.
//
// It only builds for GOOS=js GOARCH=wasm.
package jsws
