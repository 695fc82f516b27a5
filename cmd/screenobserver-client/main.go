// Command screenobserver-client is the browser half of screenobserver.
//
// Build it with GOOS=js GOARCH=wasm and load it with wasm_exec.js. It
// connects to the page's origin, completes the handshake and serves
// observe calls from the server until the page goes away.
package main

import (
	"os"

	"github.com/vango-dev/screenobserver/internal/errors"
)

// wsPath is the server's WebSocket endpoint. The page may override it by
// setting window.screenObserverPath before loading the client.
const wsPath = "/_screen/ws"

func main() {
	if err := run(); err != nil {
		errors.PrintError(err)
		os.Exit(1)
	}
}
