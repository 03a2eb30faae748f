package service

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Combine-Capital/kvcache/pkg/logging"
)

// ShutdownConfig configures graceful shutdown behavior.
type ShutdownConfig struct {
	// Timeout bounds the time given to all services to stop.
	Timeout time.Duration

	// Signals trigger shutdown. Defaults to SIGINT and SIGTERM.
	Signals []os.Signal

	// Logger receives shutdown progress. Defaults to a no-op logger.
	Logger *logging.Logger
}

// DefaultShutdownConfig returns the default shutdown configuration.
func DefaultShutdownConfig() ShutdownConfig {
	return ShutdownConfig{
		Timeout: 30 * time.Second,
		Signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
	}
}

// WaitForShutdown blocks until a shutdown signal arrives or ctx is done, then
// stops services in the order given. A service that fails to stop is logged
// and the remaining ones are still stopped.
//
//	httpSvc := service.NewHTTPService("kvcache", ":8080", handler)
//	if err := httpSvc.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	service.WaitForShutdown(ctx, logger, httpSvc)
func WaitForShutdown(ctx context.Context, logger *logging.Logger, services ...Service) {
	cfg := DefaultShutdownConfig()
	cfg.Logger = logger
	WaitForShutdownWithConfig(ctx, cfg, services...)
}

// WaitForShutdownWithConfig is like WaitForShutdown but accepts custom shutdown configuration.
//
//	cfg := service.ShutdownConfig{
//	    Timeout: 60 * time.Second,
//	    Signals: []os.Signal{syscall.SIGTERM},
//	    Logger:  logger,
//	}
//	service.WaitForShutdownWithConfig(ctx, cfg, httpSvc)
func WaitForShutdownWithConfig(ctx context.Context, cfg ShutdownConfig, services ...Service) {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	logger = logger.WithComponent("Shutdown")

	signals := cfg.Signals
	if len(signals) == 0 {
		signals = []os.Signal{syscall.SIGINT, syscall.SIGTERM}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultShutdownConfig().Timeout
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, signals...)

	select {
	case sig := <-quit:
		logger.Info().Str("signal", sig.String()).Msg("Received signal, initiating graceful shutdown")
	case <-ctx.Done():
		logger.Info().Msg("Context done, initiating graceful shutdown")
	}
	signal.Stop(quit)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	for _, svc := range services {
		if err := svc.Stop(shutdownCtx); err != nil {
			logger.Error().Err(err).Str("service", svc.Name()).Msg("Error stopping service")
		} else {
			logger.Info().Str("service", svc.Name()).Msg("Service stopped")
		}
	}

	logger.Info().Msg("Graceful shutdown completed")
}

// CleanupFunc represents a cleanup function to be executed during shutdown.
type CleanupFunc func(context.Context) error

// CleanupHandler runs cleanup functions in LIFO order.
type CleanupHandler struct {
	cleanups []CleanupFunc
	logger   *logging.Logger
}

// NewCleanupHandler creates a new cleanup handler. A nil logger discards
// cleanup errors after they are returned.
func NewCleanupHandler(logger *logging.Logger) *CleanupHandler {
	if logger == nil {
		logger = logging.Nop()
	}
	return &CleanupHandler{
		cleanups: make([]CleanupFunc, 0),
		logger:   logger,
	}
}

// Register adds a cleanup function. The last one registered runs first.
//
//	cleanup := service.NewCleanupHandler(logger)
//	cleanup.Register(func(ctx context.Context) error {
//	    return cacheSvc.Close()
//	})
//	defer cleanup.Execute(ctx)
func (h *CleanupHandler) Register(fn CleanupFunc) {
	h.cleanups = append(h.cleanups, fn)
}

// Execute runs every registered function in reverse order, continuing past
// failures. It logs each failure and returns the first.
func (h *CleanupHandler) Execute(ctx context.Context) error {
	var firstErr error

	for i := len(h.cleanups) - 1; i >= 0; i-- {
		if err := h.cleanups[i](ctx); err != nil {
			h.logger.Error().Err(err).Msg("Cleanup error")
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	return firstErr
}

// WithShutdownHandler starts svc and blocks until shutdown.
//
//	svc := service.NewHTTPService("kvcache", ":8080", handler)
//	if err := service.WithShutdownHandler(ctx, logger, svc); err != nil {
//	    log.Fatal(err)
//	}
func WithShutdownHandler(ctx context.Context, logger *logging.Logger, svc Service) error {
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("failed to start service: %w", err)
	}

	WaitForShutdown(ctx, logger, svc)

	return nil
}
