// Package server provides the HTTP server implementation.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vyrodovalexey/pizza-api/internal/config"
	"github.com/vyrodovalexey/pizza-api/internal/handler"
	"github.com/vyrodovalexey/pizza-api/internal/middleware"
	"github.com/vyrodovalexey/pizza-api/internal/store"
)

// Server represents the HTTP server. It owns the API listener and, when
// a probe port is configured, a second listener for health checks.
type Server struct {
	httpServer  *http.Server
	probeServer *http.Server
	router      *mux.Router
	probeRouter *mux.Router
	config      *config.Config
	logger      *zap.Logger
	registry    *prometheus.Registry
	probes      *handler.ProbeHandler

	done     chan struct{}
	doneOnce sync.Once
}

// New creates a new Server instance serving the given pizza store.
func New(cfg *config.Config, logger *zap.Logger, pizzaStore store.Store) *Server {
	s := &Server{
		router:      mux.NewRouter(),
		probeRouter: mux.NewRouter(),
		config:      cfg,
		logger:      logger,
		registry:    prometheus.NewRegistry(),
		probes:      handler.NewProbeHandler(pizzaStore, logger),
		done:        make(chan struct{}),
	}

	s.setupMetrics(pizzaStore)
	s.setupMiddleware()
	s.setupRoutes(pizzaStore)
	s.setupHTTPServer()
	s.setupProbeServer()

	return s
}

// setupMetrics registers runtime and inventory collectors.
func (s *Server) setupMetrics(pizzaStore store.Store) {
	if !s.config.MetricsEnabled {
		return
	}

	s.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "pizza_inventory_size",
				Help: "Number of pizzas currently in the inventory",
			},
			func() float64 { return float64(pizzaStore.Len()) },
		),
	)
}

// setupMiddleware configures the per-route middleware. Metrics and
// logging run inside the router so the matched route template is known.
func (s *Server) setupMiddleware() {
	if s.config.MetricsEnabled {
		metrics := middleware.NewHTTPMetrics(s.registry)
		s.router.Use(mux.MiddlewareFunc(metrics.Middleware()))
	}

	s.router.Use(mux.MiddlewareFunc(middleware.Logging(s.logger)))

	s.probeRouter.Use(mux.MiddlewareFunc(middleware.Recovery(s.logger)))
	s.probeRouter.Use(mux.MiddlewareFunc(middleware.Logging(s.logger)))
}

// apiHandler wraps the API router with the middleware that must run for
// every request, including preflights and paths no route matches.
func (s *Server) apiHandler() http.Handler {
	allowedMethods := []string{
		http.MethodGet,
		http.MethodPost,
		http.MethodPut,
		http.MethodDelete,
		http.MethodOptions,
	}
	allowedHeaders := []string{
		"Content-Type",
		middleware.RequestIDHeader,
	}

	// First listed is outermost.
	return middleware.Chain(
		middleware.Recovery(s.logger),
		middleware.RequestID(),
		middleware.CORS(s.config.CORSAllowedOrigins, allowedMethods, allowedHeaders),
	)(s.router)
}

// setupRoutes configures the API and probe routes.
func (s *Server) setupRoutes(pizzaStore store.Store) {
	pizzaHandler := handler.NewPizzaHandler(pizzaStore, s.logger)
	pizzaHandler.RegisterRoutes(s.router)

	s.probes.RegisterRoutes(s.router)
	s.probes.RegisterRoutes(s.probeRouter)

	if s.config.MetricsEnabled {
		metricsHandler := promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
		s.router.Handle("/metrics", metricsHandler).Methods(http.MethodGet)
		s.probeRouter.Handle("/metrics", metricsHandler).Methods(http.MethodGet)
	}
}

// setupHTTPServer configures the API HTTP server.
func (s *Server) setupHTTPServer() {
	s.httpServer = &http.Server{
		Addr:              s.config.Address(),
		Handler:           s.apiHandler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1 MB
	}
}

// setupProbeServer configures the probe HTTP server when a probe port is set.
func (s *Server) setupProbeServer() {
	if s.config.ProbePort == 0 {
		return
	}

	s.probeServer = &http.Server{
		Addr:              s.config.ProbeAddress(),
		Handler:           s.probeRouter,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      5 * time.Second,
		IdleTimeout:       30 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
}

// Start binds the listeners and serves until Shutdown is called or a
// listener fails. When one listener fails the others are closed and the
// first error is returned.
func (s *Server) Start() error {
	s.logger.Info("starting server",
		zap.String("address", s.config.Address()),
		zap.Int("probe_port", s.config.ProbePort),
		zap.Bool("metrics_enabled", s.config.MetricsEnabled),
	)

	apiListener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("server listen: %w", err)
	}

	var probeListener net.Listener
	if s.probeServer != nil {
		probeListener, err = net.Listen("tcp", s.probeServer.Addr)
		if err != nil {
			_ = apiListener.Close()
			return fmt.Errorf("probe server listen: %w", err)
		}
	}

	g, ctx := errgroup.WithContext(context.Background())

	g.Go(func() error {
		return serve(s.httpServer, apiListener, "server")
	})

	if probeListener != nil {
		g.Go(func() error {
			return serve(s.probeServer, probeListener, "probe server")
		})
	}

	g.Go(func() error {
		select {
		case <-ctx.Done():
			s.probes.SetReady(false)
			s.closeAll()
		case <-s.done:
		}
		return nil
	})

	s.probes.SetReady(true)

	return g.Wait()
}

// serve runs srv on ln, treating a closed server as a clean exit.
func serve(srv *http.Server, ln net.Listener, name string) error {
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%s serve: %w", name, err)
	}
	return nil
}

// closeAll closes every listener immediately.
func (s *Server) closeAll() {
	_ = s.httpServer.Close()
	if s.probeServer != nil {
		_ = s.probeServer.Close()
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")

	s.probes.SetReady(false)
	s.doneOnce.Do(func() { close(s.done) })

	var errs []error

	if err := s.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown: %w", err))
	}

	if s.probeServer != nil {
		if err := s.probeServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("probe server shutdown: %w", err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}

	s.logger.Info("server shutdown complete")
	return nil
}

// Ready reports whether the server is accepting traffic.
func (s *Server) Ready() bool {
	return s.probes.Ready()
}

// Handler returns the fully wrapped API handler served on the API port.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Router returns the server's router for testing purposes.
func (s *Server) Router() *mux.Router {
	return s.router
}

// ProbeRouter returns the probe router for testing purposes.
func (s *Server) ProbeRouter() *mux.Router {
	return s.probeRouter
}
