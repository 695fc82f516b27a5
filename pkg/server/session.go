package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/screenobserver/pkg/interop"
	"github.com/vango-dev/screenobserver/pkg/middleware"
	"github.com/vango-dev/screenobserver/pkg/protocol"
	"github.com/vango-dev/screenobserver/pkg/resize"
)

// Session is one connected page.
type Session struct {
	ID            string
	UserAgent     string
	ViewportWidth int
	CreatedAt     time.Time

	service *resize.Service
	client  *interop.Client
	logger  *slog.Logger
}

// Service returns the page's subscription registry.
func (s *Session) Service() *resize.Service {
	return s.service
}

// wsConn serializes writes and sets a write deadline before each one.
// gorilla/websocket supports a single concurrent writer, and the handshake
// reply and a shutdown Close can race.
type wsConn struct {
	*websocket.Conn
	writeTimeout time.Duration

	writeMu sync.Mutex
}

func (c *wsConn) WriteMessage(messageType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.writeTimeout > 0 {
		c.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	return c.Conn.WriteMessage(messageType, data)
}

func newSessionID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return time.Now().Format("20060102150405.000000000")
	}
	return hex.EncodeToString(b[:])
}

// newSession builds the registry for a page that completed the handshake.
func (s *Server) newSession(conn *wsConn, hello *protocol.ClientHello) *Session {
	id := newSessionID()
	logger := s.logger.With("session_id", id)

	client := interop.NewClient(conn, logger.With("component", "interop"))
	b := middleware.Chain(client,
		middleware.OpenTelemetry(),
		middleware.Prometheus(s.metrics),
	)

	return &Session{
		ID:            id,
		UserAgent:     hello.UserAgent,
		ViewportWidth: int(hello.ViewportWidth),
		CreatedAt:     time.Now(),
		service: resize.New(b, &resize.Config{
			CallTimeout: s.config.CallTimeout,
			Logger:      logger.With("component", "resize"),
			Metrics:     s.metrics,
		}),
		client: client,
		logger: logger,
	}
}

// serve runs the session until the connection ends.
func (s *Server) serve(sess *Session) {
	ctx, cancel := context.WithCancel(context.Background())
	ctx = resize.NewContext(ctx, sess.service)

	var wg sync.WaitGroup
	if s.config.OnSession != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					sess.logger.Error("session hook panic", "panic", r)
				}
			}()
			s.config.OnSession(ctx, sess.service)
		}()
	}

	if s.config.HeartbeatInterval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.heartbeat(ctx, sess)
		}()
	}

	if err := sess.client.Run(ctx); err != nil {
		sess.logger.Debug("connection ended", "error", &SessionError{SessionID: sess.ID, Op: "read", Err: err})
	}

	cancel()
	sess.service.Dispose(context.Background())
	wg.Wait()
}

func (s *Server) heartbeat(ctx context.Context, sess *Session) {
	ticker := time.NewTicker(s.config.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := sess.client.Ping(); err != nil {
				sess.logger.Debug("ping failed", "error", err)
				return
			}
		}
	}
}
