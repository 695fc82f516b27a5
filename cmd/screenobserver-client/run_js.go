//go:build js && wasm

package main

import (
	"context"
	"log/slog"
	"os"
	"syscall/js"
	"time"

	"github.com/vango-dev/screenobserver/internal/errors"
	"github.com/vango-dev/screenobserver/internal/jsws"
	"github.com/vango-dev/screenobserver/pkg/bridge"
	"github.com/vango-dev/screenobserver/pkg/dom"
	"github.com/vango-dev/screenobserver/pkg/interop"
	"github.com/vango-dev/screenobserver/pkg/protocol"
)

const dialTimeout = 10 * time.Second

func run() error {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	url := endpointURL()
	dialCtx, dialCancel := context.WithTimeout(ctx, dialTimeout)
	conn, err := jsws.Dial(dialCtx, url)
	dialCancel()
	if err != nil {
		return errors.New("E180").WithDetail("Could not connect to " + url).Wrap(err)
	}
	defer conn.Close()

	doc := dom.Global()
	hello := protocol.NewClientHello(userAgent(), clampWidth(doc.Body().OffsetWidth()))
	sh, err := interop.Handshake(conn, hello)
	if err != nil {
		return errors.New("E181").Wrap(err)
	}

	br := bridge.New(doc, &bridge.Config{
		DebounceInterval: time.Duration(sh.DebounceMillis) * time.Millisecond,
		Logger:           logger.With("component", "bridge"),
	})

	pagehide := js.FuncOf(func(js.Value, []js.Value) any {
		cancel()
		return nil
	})
	defer pagehide.Release()
	js.Global().Call("addEventListener", "pagehide", pagehide)

	logger.Info("screen observer connected", "url", url, "debounce", br.DebounceInterval())
	return interop.NewEndpoint(conn, br, logger.With("component", "endpoint")).Serve(ctx)
}

// endpointURL derives the WebSocket URL from the page location.
func endpointURL() string {
	loc := js.Global().Get("location")
	scheme := "ws:"
	if loc.Get("protocol").String() == "https:" {
		scheme = "wss:"
	}

	path := wsPath
	if p := js.Global().Get("screenObserverPath"); p.Type() == js.TypeString {
		path = p.String()
	}
	return scheme + "//" + loc.Get("host").String() + path
}

func userAgent() string {
	nav := js.Global().Get("navigator")
	if nav.IsUndefined() {
		return ""
	}
	return nav.Get("userAgent").String()
}

func clampWidth(w float64) uint16 {
	switch {
	case w <= 0:
		return 0
	case w >= 65535:
		return 65535
	}
	return uint16(w)
}
