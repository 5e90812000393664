// Package gateway is the reference Schema Provider Gateway: the HTTP/JSON
// API the wizard loads catalogs and schemas from, plus a websocket event
// stream.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"vectorportal/internal/adapter/gatewayapi"
	"vectorportal/internal/domain"
	"vectorportal/internal/infra/middleware"
)

// streamBuffer is the per-client event queue of /ws.
const streamBuffer = 64

// EventSource publishes gateway events and streams them to websocket clients.
type EventSource interface {
	domain.EventBus
	Stream(ctx context.Context, buffer int) <-chan domain.Event
}

// Server serves the gateway API.
type Server struct {
	svc     *Service
	events  EventSource
	auth    Authenticator
	limits  middleware.RateLimitConfig
	version string
	addr    string
	logger  *slog.Logger

	onListen  func(net.Addr)
	metrics   *Metrics
	started   time.Time
	httpSrv   *http.Server
	boundAddr atomic.Value // string
	clients   sync.Map     // connID (uint64) -> *websocket.Conn
	nextID    atomic.Uint64
	unsubs    []func()
}

// Option configures a Server.
type Option func(*Server)

// WithAuth requires a valid token on every route except /healthz.
func WithAuth(a Authenticator) Option {
	return func(s *Server) { s.auth = a }
}

// WithRateLimit limits requests per client IP.
func WithRateLimit(cfg middleware.RateLimitConfig) Option {
	return func(s *Server) { s.limits = cfg }
}

// WithVersion sets the version reported by /healthz.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// WithOnListen is called with the bound address before serving starts.
func WithOnListen(fn func(net.Addr)) Option {
	return func(s *Server) { s.onListen = fn }
}

// NewServer creates a gateway server.
func NewServer(svc *Service, events EventSource, addr string, logger *slog.Logger, opts ...Option) *Server {
	s := &Server{
		svc:     svc,
		events:  events,
		addr:    addr,
		logger:  logger,
		version: "dev",
		metrics: &Metrics{},
		started: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.unsubs = s.metrics.subscribe(events)
	return s
}

// Metrics returns the live counters.
func (s *Server) Metrics() *Metrics { return s.metrics }

// Handler builds the full HTTP handler. ctx bounds background work such as
// rate-limiter cleanup.
func (s *Server) Handler(ctx context.Context) http.Handler {
	api := http.NewServeMux()
	s.registerAPI(api)

	mux := http.NewServeMux()
	mux.HandleFunc("GET "+gatewayapi.HealthPath, s.handleHealth)
	mux.Handle("/", s.requireAuth(api))

	limits := s.limits
	limits.OnLimit = func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusTooManyRequests, fail("Rate limit exceeded"))
	}

	root := http.NewServeMux()
	root.Handle("GET "+gatewayapi.EventsPath, middleware.WithRequestID(http.HandlerFunc(s.handleEvents)))
	root.Handle("/", middleware.Chain(mux,
		middleware.WithRequestID,
		middleware.AccessLog(s.logger),
		middleware.SecurityHeaders,
		middleware.RateLimitWithConfig(ctx, limits),
	))
	return root
}

// Start listens and serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("gateway listen: %w", err)
	}
	s.boundAddr.Store(listener.Addr().String())
	if s.onListen != nil {
		s.onListen(listener.Addr())
	}

	s.httpSrv = &http.Server{
		Handler:           s.Handler(ctx),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	s.logger.Info("gateway started", "addr", listener.Addr().String(), "auth", s.auth != nil)

	go func() {
		<-ctx.Done()
		s.Stop(context.Background())
	}()

	if err := s.httpSrv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("gateway serve: %w", err)
	}
	return nil
}

// Stop closes stream clients and shuts the HTTP server down.
func (s *Server) Stop(ctx context.Context) error {
	for _, unsub := range s.unsubs {
		unsub()
	}
	s.unsubs = nil

	s.clients.Range(func(key, value any) bool {
		value.(*websocket.Conn).Close(websocket.StatusGoingAway, "server shutting down")
		s.clients.Delete(key)
		return true
	})

	if s.httpSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return s.httpSrv.Shutdown(shutdownCtx)
	}
	return nil
}

// BoundAddr returns the address the server bound to. Only valid after Start.
func (s *Server) BoundAddr() string {
	addr, _ := s.boundAddr.Load().(string)
	return addr
}

// handleEvents streams bus events to one websocket client until either
// side goes away.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	client := &ClientInfo{Name: "anonymous"}
	if s.auth != nil {
		info, err := s.auth.Authenticate(requestToken(r))
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, fail("unauthorized"))
			return
		}
		client = info
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{
			"localhost",
			"localhost:*",
			"127.0.0.1",
			"127.0.0.1:*",
			"[::1]",
			"[::1]:*",
		},
	})
	if err != nil {
		s.logger.Warn("websocket accept failed", "error", err)
		return
	}

	// Clients only listen; CloseRead handles their control frames.
	ctx := ws.CloseRead(r.Context())
	events := s.events.Stream(ctx, streamBuffer)

	connID := s.nextID.Add(1)
	s.clients.Store(connID, ws)
	s.metrics.StreamClients.Add(1)
	s.logger.Info("stream client connected", "conn_id", connID, "client", client.Name)
	defer func() {
		s.clients.Delete(connID)
		s.metrics.StreamClients.Add(-1)
		ws.Close(websocket.StatusNormalClosure, "")
		s.logger.Info("stream client disconnected", "conn_id", connID)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			wctx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := wsjson.Write(wctx, ws, gatewayapi.Frame{Type: gatewayapi.FrameTypeEvent, Payload: e})
			cancel()
			if err != nil {
				return
			}
		}
	}
}
