package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/wkmcp/internal/auth"
	"github.com/desertthunder/wkmcp/internal/shared"
	"github.com/desertthunder/wkmcp/internal/sync"
	"github.com/desertthunder/wkmcp/internal/views"
	"golang.org/x/time/rate"
)

// Server wraps the HTTP listener and its routing table.
type Server struct {
	cfg    shared.ServerConfig
	srv    *http.Server
	logger *log.Logger
}

// New builds a server with every route registered.
//
// Registration is throttled with a token bucket so a hostile client
// cannot burn the upstream quota validating junk keys. All /mcp routes
// require a locally issued bearer key.
func New(cfg shared.ServerConfig, registrar *auth.Registrar, builder *views.Builder, syncSvc *sync.Service, logger *log.Logger) *Server {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	h := NewHandlers(registrar, builder, syncSvc, logger)
	authed := AuthMiddleware(registrar)
	throttle := ThrottleMiddleware(rate.NewLimiter(rate.Limit(cfg.RegisterRate), cfg.RegisterBurst))

	router := NewRouter()
	router.Use(LoggingMiddleware(logger))
	router.Handle(http.MethodGet, "/", http.HandlerFunc(h.Root))
	router.Handle(http.MethodGet, "/health", http.HandlerFunc(h.Health))
	router.Handle(http.MethodPost, "/register", http.HandlerFunc(h.Register), throttle)
	router.Handle(http.MethodGet, "/mcp/tools", http.HandlerFunc(h.ListTools), authed)
	router.Handle(http.MethodPost, "/mcp/tools/call", http.HandlerFunc(h.CallTool), authed)
	router.Handle(http.MethodGet, "/mcp/resources", http.HandlerFunc(h.ListResources), authed)
	router.Handle(http.MethodGet, "/mcp/resources/read", http.HandlerFunc(h.ReadResource), authed)

	return &Server{
		cfg: cfg,
		srv: &http.Server{
			Addr:         cfg.Addr(),
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		logger: logger,
	}
}

// Handler exposes the routing table for tests.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Start blocks serving requests until the listener closes.
func (s *Server) Start() error {
	s.logger.Info("server listening", "addr", s.cfg.Addr())
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and closes the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
