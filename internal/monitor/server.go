package monitor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bogdnnx/smart-domophone/internal/infrastructure/config"
	"github.com/bogdnnx/smart-domophone/internal/infrastructure/logging"
)

// gracefulShutdownTimeout is how long Close waits for in-flight requests.
const gracefulShutdownTimeout = 10 * time.Second

// Deps bundles the dependencies the API server needs.
type Deps struct {
	Config config.APIConfig
	Logger *logging.Logger
	Store  *Store
	Bus    EventPublisher
	Hub    *Hub
}

// Server is the monitor's HTTP API server. It serves the fleet roster,
// recent events and status logs, accepts commands for publication onto
// the bus, and upgrades WebSocket connections for live updates.
type Server struct {
	cfg    config.APIConfig
	logger *logging.Logger
	store  *Store
	bus    EventPublisher
	hub    *Hub

	httpServer *http.Server
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

// New creates an API server from its dependencies.
func New(deps Deps) (*Server, error) {
	if deps.Store == nil {
		return nil, errors.New("store is required")
	}
	if deps.Bus == nil {
		return nil, errors.New("bus is required")
	}
	if deps.Logger == nil {
		deps.Logger = logging.Nop()
	}
	if deps.Hub == nil {
		deps.Hub = NewHub(deps.Logger)
	}

	return &Server{
		cfg:    deps.Config,
		logger: deps.Logger,
		store:  deps.Store,
		bus:    deps.Bus,
		hub:    deps.Hub,
	}, nil
}

// Hub returns the server's WebSocket hub for wiring into the recorder.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start begins serving HTTP requests in the background. It returns once
// the listener goroutine is launched; serve errors are logged.
func (s *Server) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.buildRouter(),
		ReadTimeout:  s.cfg.GetReadTimeout(),
		WriteTimeout: s.cfg.GetWriteTimeout(),
		IdleTimeout:  s.cfg.GetIdleTimeout(),
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.hub.Run(ctx)
	}()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.logger.Info("api server listening", "addr", addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server failed", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts the server down, waiting for in-flight requests
// up to gracefulShutdownTimeout.
func (s *Server) Close() error {
	if s.cancel != nil {
		s.cancel()
	}

	var err error
	if s.httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
		defer cancel()
		err = s.httpServer.Shutdown(shutdownCtx)
	}

	s.wg.Wait()
	s.logger.Info("api server stopped")
	return err
}

// buildRouter constructs the HTTP route tree.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Get("/health", s.handleHealth)

	r.Route("/domophones", func(r chi.Router) {
		r.Get("/", s.handleListDomophones)
		r.Post("/", s.handleCreateDomophone)
		r.Get("/{mac}", s.handleGetDomophone)
	})

	r.Get("/events/recent", s.handleRecentEvents)
	r.Get("/logs/recent", s.handleRecentLogs)
	r.Post("/command", s.handleCommand)

	r.Get("/ws", s.handleWebSocket)

	return r
}
