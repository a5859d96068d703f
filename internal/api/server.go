package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/litshivang/gas-data-pipeline/internal/api/middleware"
	"github.com/litshivang/gas-data-pipeline/internal/ingestion"
)

// drainTimeout bounds how long shutdown waits for in-flight ingestion runs.
const drainTimeout = 2 * time.Minute

// HealthChecker reports whether the storage backend is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Server is the HTTP API server: trigger endpoints submit runs to the worker
// pool and return immediately; the journal endpoint reads run history back.
type Server struct {
	httpServer     *http.Server
	logger         *slog.Logger
	config         *ServerConfig
	startTime      time.Time
	pool           *ingestion.Pool
	runs           ingestion.RunReader
	health         HealthChecker
	metricsHandler http.Handler
	version        string
}

// NewServer creates the API server. Dependencies are injected explicitly:
// configuration says what, dependencies say how. A nil metricsHandler
// disables the /metrics route; a nil health checker makes readiness
// unconditional.
func NewServer(
	cfg *ServerConfig,
	pool *ingestion.Pool,
	runs ingestion.RunReader,
	health HealthChecker,
	metricsHandler http.Handler,
	version string,
) *Server {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	mux := http.NewServeMux()

	server := &Server{
		logger:         logger,
		config:         cfg,
		pool:           pool,
		runs:           runs,
		health:         health,
		metricsHandler: metricsHandler,
		version:        version,
	}

	server.setupRoutes(mux)

	handler := middleware.Apply(mux,
		middleware.WithCorrelationID(),
		middleware.WithRecovery(logger),
		middleware.WithRequestLogger(logger),
	)

	server.httpServer = &http.Server{
		Addr:         cfg.Address(),
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return server
}

// Start starts the HTTP server and blocks until shutdown. It handles
// graceful shutdown on SIGINT and SIGTERM.
func (s *Server) Start() error {
	if err := s.config.Validate(); err != nil {
		return fmt.Errorf("invalid server configuration: %w", err)
	}

	s.startTime = time.Now()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("Starting ingestion API server",
			slog.String("address", s.config.Address()),
			slog.Duration("read_timeout", s.config.ReadTimeout),
			slog.Duration("write_timeout", s.config.WriteTimeout),
		)

		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- fmt.Errorf("server failed to start: %w", err)
		}
	}()

	select {
	case err := <-serverErrors:
		return err
	case sig := <-stop:
		s.logger.Info("Received shutdown signal", slog.String("signal", sig.String()))

		return s.shutdown()
	}
}

// shutdown gracefully stops the HTTP listener, then drains the worker pool
// so in-flight runs finish with proper journal entries.
func (s *Server) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	if s.pool != nil {
		s.logger.Info("Draining ingestion worker pool")

		if !s.pool.Drain(drainTimeout) {
			s.logger.Warn("Worker pool drain timed out; some runs may be left RUNNING")
		}
	}

	s.logger.Info("Server shutdown completed")

	return nil
}
