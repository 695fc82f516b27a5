//go:build !(js && wasm)

package main

import (
	"runtime"

	"github.com/vango-dev/screenobserver/internal/errors"
)

func run() error {
	return errors.Newf(errors.CategoryCLI, "screenobserver-client runs in the browser, not on %s/%s", runtime.GOOS, runtime.GOARCH).
		WithSuggestion("Build with GOOS=js GOARCH=wasm")
}
