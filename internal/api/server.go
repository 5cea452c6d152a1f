package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	handlerapi "github.com/newthinker/swiftsig/internal/api/handler/api"
	"github.com/newthinker/swiftsig/internal/api/job"
	"github.com/newthinker/swiftsig/internal/api/middleware"
	"github.com/newthinker/swiftsig/internal/backtest"
	"github.com/newthinker/swiftsig/internal/export"
	"github.com/newthinker/swiftsig/internal/metrics"
	"github.com/newthinker/swiftsig/internal/notifier"
	"github.com/newthinker/swiftsig/internal/strategy"
)

// Server is the HTTP front end for submitting backtests.
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	mux        *http.ServeMux
	handler    http.Handler
}

// Config holds server configuration
type Config struct {
	Host    string
	Port    int
	APIKey  string
	MaxJobs int
	JobTTL  time.Duration
}

// Dependencies are the services the routes call into. Exporter, Metrics and
// Notify are optional.
type Dependencies struct {
	Backtester *backtest.Backtester
	Strategies *strategy.Registry
	Exporter   *export.Exporter
	Metrics    *metrics.Registry
	Notify     func(context.Context, notifier.Report)
	Defaults   handlerapi.Defaults
}

// NewServer creates a new HTTP server
func NewServer(cfg Config, deps Dependencies, logger *zap.Logger) (*Server, error) {
	if deps.Backtester == nil || deps.Strategies == nil {
		return nil, fmt.Errorf("backtester and strategies are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxJobs <= 0 {
		cfg.MaxJobs = 100
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = time.Hour
	}

	s := &Server{
		logger: logger,
		mux:    http.NewServeMux(),
	}
	s.setupRoutes(cfg, deps)

	// Metrics reads the route pattern the mux stores on the request.
	var h http.Handler = s.mux
	if deps.Metrics != nil {
		h = metrics.HTTPMiddleware(deps.Metrics)(h)
	}
	s.handler = metrics.LoggingMiddleware(logger)(h)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(cfg Config, deps Dependencies) {
	opts := []handlerapi.BacktestOption{
		handlerapi.WithLogger(s.logger),
		handlerapi.WithExporter(deps.Exporter),
	}
	if deps.Defaults != (handlerapi.Defaults{}) {
		opts = append(opts, handlerapi.WithDefaults(deps.Defaults))
	}
	if deps.Metrics != nil {
		opts = append(opts, handlerapi.WithJobGauge(deps.Metrics))
	}
	if deps.Notify != nil {
		opts = append(opts, handlerapi.WithNotify(deps.Notify))
	}

	backtests := handlerapi.NewBacktestHandler(job.NewStore(cfg.MaxJobs, cfg.JobTTL), deps.Backtester, deps.Strategies, opts...)
	strategies := handlerapi.NewStrategiesHandler(deps.Strategies)
	auth := middleware.APIKeyAuth(cfg.APIKey)

	s.mux.Handle("POST /api/v1/backtests", auth(http.HandlerFunc(backtests.Create)))
	s.mux.Handle("GET /api/v1/backtests", auth(http.HandlerFunc(backtests.List)))
	s.mux.Handle("GET /api/v1/backtests/{id}", auth(http.HandlerFunc(backtests.GetStatus)))
	s.mux.Handle("GET /api/v1/backtests/{id}/files/{kind}", auth(http.HandlerFunc(backtests.Download)))
	s.mux.Handle("GET /api/v1/strategies", auth(http.HandlerFunc(strategies.List)))

	s.mux.HandleFunc("GET /api/health", s.handleHealth)
	if deps.Metrics != nil {
		s.mux.Handle("GET /metrics", promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{}))
	}
}

// Handler returns the fully wrapped handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
