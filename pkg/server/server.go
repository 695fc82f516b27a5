package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vango-dev/screenobserver/pkg/interop"
	"github.com/vango-dev/screenobserver/pkg/metrics"
	"github.com/vango-dev/screenobserver/pkg/protocol"
)

// Server is the HTTP/WebSocket server for screen observer pages.
type Server struct {
	config   *ServerConfig
	logger   *slog.Logger
	upgrader websocket.Upgrader
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	handler  http.Handler

	mu       sync.Mutex
	sessions map[*Session]struct{}
	closing  bool
	wg       sync.WaitGroup

	httpServer *http.Server
}

// New creates a new Server with the given configuration.
// A nil config uses DefaultServerConfig.
func New(config *ServerConfig) *Server {
	if config == nil {
		config = DefaultServerConfig()
	} else {
		config = config.Clone()
	}
	config.applyDefaults()

	logger := config.Logger
	if logger == nil {
		logger = slog.Default().With("component", "server")
	}
	registry := config.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	s := &Server{
		config: config,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		registry: registry,
		metrics:  metrics.New(metrics.WithRegistry(registry)),
		sessions: make(map[*Session]struct{}),
	}
	s.handler = s.routes()
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)

	r.Get(s.config.Path, s.HandleWebSocket)
	if s.config.MetricsPath != "" {
		r.Handle(s.config.MetricsPath, promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	}
	if s.config.AssetsDir != "" {
		r.Handle("/*", newAssetHandler(s.config.AssetsDir, s.config.AssetCache))
	}
	return r
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// HandleWebSocket upgrades the request and serves one page until the
// connection ends.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	conn := &wsConn{Conn: ws, writeTimeout: s.config.WriteTimeout}

	hello, status, err := s.readHandshake(conn)
	if err != nil {
		s.logger.Warn("handshake failed", "error", err, "remote", r.RemoteAddr)
		s.sendServerHello(conn, status)
		conn.Close()
		return
	}

	sess := s.newSession(conn, hello)
	if err := s.addSession(sess); err != nil {
		s.logger.Warn("session rejected", "error", err)
		s.sendServerHello(conn, protocol.HandshakeServerBusy)
		conn.Close()
		return
	}

	if err := s.sendServerHello(conn, protocol.HandshakeOK); err != nil {
		s.removeSession(sess)
		conn.Close()
		return
	}

	s.metrics.SessionStarted()
	sess.logger.Info("session started",
		"user_agent", sess.UserAgent,
		"viewport_width", sess.ViewportWidth)

	s.serve(sess)

	conn.Close()
	s.removeSession(sess)
	s.metrics.SessionEnded()
	sess.logger.Info("session ended", "duration", time.Since(sess.CreatedAt))
}

// readHandshake reads and validates the ClientHello. On failure it also
// returns the status to report to the client.
func (s *Server) readHandshake(conn *wsConn) (*protocol.ClientHello, protocol.HandshakeStatus, error) {
	conn.SetReadLimit(s.config.MaxMessageSize)
	conn.SetReadDeadline(time.Now().Add(s.config.HandshakeTimeout))
	defer conn.SetReadDeadline(time.Time{})

	frame, err := interop.ReadFrame(conn)
	if err != nil {
		return nil, protocol.HandshakeInvalidFormat, &SessionError{Op: "handshake", Err: err}
	}
	if frame.Type != protocol.FrameHandshake {
		return nil, protocol.HandshakeInvalidFormat, ErrInvalidHandshake
	}

	hello, err := protocol.DecodeClientHello(frame.Payload)
	if err != nil {
		return nil, protocol.HandshakeInvalidFormat, &SessionError{Op: "handshake", Err: err}
	}
	if !hello.Version.Compatible() {
		return nil, protocol.HandshakeVersionMismatch, ErrVersionMismatch
	}
	return hello, protocol.HandshakeOK, nil
}

// sendServerHello answers the handshake.
func (s *Server) sendServerHello(conn *wsConn, status protocol.HandshakeStatus) error {
	hello := &protocol.ServerHello{
		Status:         status,
		DebounceMillis: uint16(s.config.DebounceInterval.Milliseconds()),
		ServerTime:     uint64(time.Now().UnixMilli()),
	}
	return interop.WriteFrame(conn, protocol.FrameHandshake, protocol.EncodeServerHello(hello))
}

func (s *Server) addSession(sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closing {
		return ErrServerClosed
	}
	if s.config.MaxSessions > 0 && len(s.sessions) >= s.config.MaxSessions {
		return ErrMaxSessionsReached
	}
	s.sessions[sess] = struct{}{}
	s.wg.Add(1)
	return nil
}

func (s *Server) removeSession(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sess]; !ok {
		return
	}
	delete(s.sessions, sess)
	s.wg.Done()
}

// SessionCount returns the number of connected pages.
func (s *Server) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Config returns the server configuration.
func (s *Server) Config() *ServerConfig {
	return s.config
}

// Registry returns the Prometheus registry backing the metrics route.
func (s *Server) Registry() *prometheus.Registry {
	return s.registry
}

// ListenAndServe serves until Shutdown is called.
func (s *Server) ListenAndServe() error {
	if err := s.config.ValidateConfig(); err != nil {
		return err
	}

	s.mu.Lock()
	s.httpServer = &http.Server{
		Addr:              s.config.Address,
		Handler:           s.handler,
		ReadHeaderTimeout: s.config.HandshakeTimeout,
	}
	srv := s.httpServer
	s.mu.Unlock()

	s.logger.Info("server starting", "address", s.config.Address, "path", s.config.Path)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Run starts the server and blocks until SIGINT or SIGTERM.
func (s *Server) Run() error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	select {
	case err := <-errCh:
		return err
	case <-shutdown:
		s.logger.Info("shutting down...")
		return s.Shutdown(context.Background())
	}
}

// Shutdown closes every session and gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	s.mu.Lock()
	s.closing = true
	sessions := make([]*Session, 0, len(s.sessions))
	for sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	srv := s.httpServer
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.client.Close(protocol.CloseServerShutdown, "server shutdown")
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warn("sessions still open at shutdown deadline", "count", s.SessionCount())
	}

	if srv != nil {
		if err := srv.Shutdown(ctx); err != nil {
			s.logger.Error("shutdown error", "error", err)
			return err
		}
	}

	s.logger.Info("server shutdown complete")
	return nil
}
