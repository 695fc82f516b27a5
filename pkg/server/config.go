package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vango-dev/screenobserver/pkg/bridge"
	"github.com/vango-dev/screenobserver/pkg/protocol"
	"github.com/vango-dev/screenobserver/pkg/resize"
)

// ServerConfig holds configuration for the HTTP/WebSocket server.
type ServerConfig struct {
	// Address is the address to listen on (e.g., ":8080" or "localhost:3000").
	// Default: ":8080".
	Address string

	// Routes

	// Path is the WebSocket endpoint.
	// Default: "/_screen/ws".
	Path string

	// MetricsPath serves Prometheus metrics. Empty disables the route.
	// Default: "/metrics".
	MetricsPath string

	// AssetsDir is served at "/" when set. It normally holds the page,
	// wasm_exec.js and the compiled client.
	AssetsDir string

	// AssetCache selects Cache-Control headers for assets.
	// Default: CacheNone.
	AssetCache CachePolicy

	// WebSocket

	// ReadBufferSize is the WebSocket read buffer size.
	// Default: 4096.
	ReadBufferSize int

	// WriteBufferSize is the WebSocket write buffer size.
	// Default: 4096.
	WriteBufferSize int

	// CheckOrigin is called to validate the request origin.
	// Default: SameOriginCheck.
	CheckOrigin func(r *http.Request) bool

	// MaxMessageSize is the maximum size of an incoming message.
	// Default: one full frame.
	MaxMessageSize int64

	// Timeouts

	// HandshakeTimeout is the maximum time for the initial handshake.
	// Default: 10 seconds.
	HandshakeTimeout time.Duration

	// WriteTimeout is the maximum time to wait when sending a frame.
	// Default: 10 seconds.
	WriteTimeout time.Duration

	// HeartbeatInterval is the time between pings. Zero disables pings.
	// Default: 30 seconds.
	HeartbeatInterval time.Duration

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	// Default: 30 seconds.
	ShutdownTimeout time.Duration

	// Observer

	// CallTimeout bounds every bridge call made by a session's service.
	// Default: 5 seconds.
	CallTimeout time.Duration

	// DebounceInterval is sent to the browser in the handshake.
	// Default: bridge.DefaultDebounceInterval.
	DebounceInterval time.Duration

	// Limits

	// MaxSessions is the maximum number of concurrent sessions.
	// 0 means no limit.
	MaxSessions int

	// Hooks

	// OnSession runs once per connected page, on its own goroutine, after
	// the handshake. ctx carries the page's service (resize.FromContext)
	// and is cancelled when the connection ends; the hook should return
	// by then.
	OnSession func(ctx context.Context, svc *resize.Service)

	// Observability

	// Registry receives the server's collectors and backs MetricsPath.
	// Default: a new registry per server.
	Registry *prometheus.Registry

	// Logger is the server logger.
	// Default: slog.Default() with component=server.
	Logger *slog.Logger
}

// DefaultServerConfig returns a ServerConfig with sensible defaults.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Address:           ":8080",
		Path:              "/_screen/ws",
		MetricsPath:       "/metrics",
		ReadBufferSize:    4096,
		WriteBufferSize:   4096,
		CheckOrigin:       SameOriginCheck,
		MaxMessageSize:    protocol.FrameHeaderSize + protocol.MaxPayloadSize,
		HandshakeTimeout:  10 * time.Second,
		WriteTimeout:      10 * time.Second,
		HeartbeatInterval: 30 * time.Second,
		ShutdownTimeout:   30 * time.Second,
		CallTimeout:       5 * time.Second,
		DebounceInterval:  bridge.DefaultDebounceInterval,
	}
}

// SameOriginCheck validates that the WebSocket request origin matches the host.
func SameOriginCheck(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		// No Origin header (e.g., non-browser client)
		return true
	}

	originURL, err := url.Parse(origin)
	if err != nil {
		return false
	}

	host := r.Host
	if host == "" {
		return false
	}
	return originURL.Host == host
}

// Clone returns a copy of the ServerConfig.
func (c *ServerConfig) Clone() *ServerConfig {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}

// WithAddress sets the server address and returns the config for chaining.
func (c *ServerConfig) WithAddress(addr string) *ServerConfig {
	c.Address = addr
	return c
}

// WithAssetsDir sets the static asset directory and returns the config for chaining.
func (c *ServerConfig) WithAssetsDir(dir string) *ServerConfig {
	c.AssetsDir = dir
	return c
}

// WithDebounceInterval sets the debounce interval and returns the config for chaining.
func (c *ServerConfig) WithDebounceInterval(d time.Duration) *ServerConfig {
	c.DebounceInterval = d
	return c
}

// applyDefaults fills zero fields from DefaultServerConfig and clamps
// the debounce interval to what the handshake can carry.
func (c *ServerConfig) applyDefaults() {
	d := DefaultServerConfig()
	if c.Address == "" {
		c.Address = d.Address
	}
	if c.Path == "" {
		c.Path = d.Path
	}
	if c.ReadBufferSize <= 0 {
		c.ReadBufferSize = d.ReadBufferSize
	}
	if c.WriteBufferSize <= 0 {
		c.WriteBufferSize = d.WriteBufferSize
	}
	if c.CheckOrigin == nil {
		c.CheckOrigin = d.CheckOrigin
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = d.MaxMessageSize
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = d.HandshakeTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = d.ShutdownTimeout
	}
	if c.CallTimeout == 0 {
		c.CallTimeout = d.CallTimeout
	}
	if c.DebounceInterval <= 0 {
		c.DebounceInterval = d.DebounceInterval
	}
	if c.DebounceInterval > maxDebounce {
		c.DebounceInterval = maxDebounce
	}
}

// ValidateConfig reports configuration that cannot work.
func (c *ServerConfig) ValidateConfig() error {
	if !strings.HasPrefix(c.Path, "/") {
		return fmt.Errorf("%w: path %q must start with /", ErrInvalidConfig, c.Path)
	}
	if c.MetricsPath != "" && !strings.HasPrefix(c.MetricsPath, "/") {
		return fmt.Errorf("%w: metrics path %q must start with /", ErrInvalidConfig, c.MetricsPath)
	}
	if c.MetricsPath == c.Path {
		return fmt.Errorf("%w: metrics path and websocket path are both %q", ErrInvalidConfig, c.Path)
	}
	if c.DebounceInterval > maxDebounce {
		return fmt.Errorf("%w: debounce interval %s exceeds %s", ErrInvalidConfig, c.DebounceInterval, maxDebounce)
	}
	if c.MaxSessions < 0 {
		return fmt.Errorf("%w: max sessions %d is negative", ErrInvalidConfig, c.MaxSessions)
	}
	return nil
}

// maxDebounce is the largest interval the handshake can carry.
const maxDebounce = 65535 * time.Millisecond
