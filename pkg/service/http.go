package service

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/Combine-Capital/kvcache/pkg/config"
	"github.com/Combine-Capital/kvcache/pkg/logging"
)

// HTTPService runs an http.Server with graceful shutdown.
type HTTPService struct {
	name            string
	addr            string
	handler         http.Handler
	server          *http.Server
	listener        net.Listener
	logger          *logging.Logger
	readTimeout     time.Duration
	writeTimeout    time.Duration
	shutdownTimeout time.Duration
	maxHeaderBytes  int
	mu              sync.Mutex
	started         bool
}

// HTTPServiceOption is a functional option for configuring an HTTPService.
type HTTPServiceOption func(*HTTPService)

// WithReadTimeout sets the HTTP server read timeout.
func WithReadTimeout(timeout time.Duration) HTTPServiceOption {
	return func(s *HTTPService) {
		s.readTimeout = timeout
	}
}

// WithWriteTimeout sets the HTTP server write timeout.
func WithWriteTimeout(timeout time.Duration) HTTPServiceOption {
	return func(s *HTTPService) {
		s.writeTimeout = timeout
	}
}

// WithShutdownTimeout sets the graceful shutdown timeout.
func WithShutdownTimeout(timeout time.Duration) HTTPServiceOption {
	return func(s *HTTPService) {
		s.shutdownTimeout = timeout
	}
}

// WithMaxHeaderBytes sets the maximum header bytes for the HTTP server.
func WithMaxHeaderBytes(bytes int) HTTPServiceOption {
	return func(s *HTTPService) {
		s.maxHeaderBytes = bytes
	}
}

// WithLogger sets the logger for lifecycle events.
func WithLogger(logger *logging.Logger) HTTPServiceOption {
	return func(s *HTTPService) {
		s.logger = logger
	}
}

// WithServerConfig applies the timeouts and limits of cfg.
func WithServerConfig(cfg config.ServerConfig) HTTPServiceOption {
	return func(s *HTTPService) {
		if cfg.ReadTimeout > 0 {
			s.readTimeout = cfg.ReadTimeout
		}
		if cfg.WriteTimeout > 0 {
			s.writeTimeout = cfg.WriteTimeout
		}
		if cfg.ShutdownTimeout > 0 {
			s.shutdownTimeout = cfg.ShutdownTimeout
		}
		if cfg.MaxHeaderBytes > 0 {
			s.maxHeaderBytes = cfg.MaxHeaderBytes
		}
	}
}

// NewHTTPService creates a new HTTP service serving handler on addr.
//
//	mux := http.NewServeMux()
//	api.NewHandler(cacheSvc).Register(mux)
//	svc := service.NewHTTPService("kvcache", ":8080", mux,
//	    service.WithShutdownTimeout(30*time.Second),
//	)
func NewHTTPService(name, addr string, handler http.Handler, opts ...HTTPServiceOption) *HTTPService {
	s := &HTTPService{
		name:            name,
		addr:            addr,
		handler:         handler,
		logger:          logging.Nop(),
		readTimeout:     10 * time.Second,
		writeTimeout:    10 * time.Second,
		shutdownTimeout: 30 * time.Second,
		maxHeaderBytes:  1 << 20, // 1 MB
	}

	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithComponent(name)

	return s
}

// Start binds the listen address and serves in the background. Bind errors,
// such as a port already in use, are returned directly.
func (s *HTTPService) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("service %s already started", s.name)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to start HTTP service %s: %w", s.name, err)
	}

	s.listener = ln
	s.server = &http.Server{
		Handler:        s.handler,
		ReadTimeout:    s.readTimeout,
		WriteTimeout:   s.writeTimeout,
		MaxHeaderBytes: s.maxHeaderBytes,
		BaseContext:    func(net.Listener) context.Context { return ctx },
	}

	server := s.server
	go func() {
		if err := server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("HTTP server stopped unexpectedly")
		}
	}()

	s.started = true
	s.logger.Info().Str("addr", ln.Addr().String()).Msg("HTTP service listening")
	return nil
}

// Stop gracefully stops the HTTP server, waiting for in-flight requests to complete.
// Without a deadline on ctx the configured shutdown timeout applies.
func (s *HTTPService) Stop(ctx context.Context) error {
	s.mu.Lock()
	server := s.server
	started := s.started
	s.mu.Unlock()

	if !started || server == nil {
		return nil
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.shutdownTimeout)
		defer cancel()
	}

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP service %s: %w", s.name, err)
	}

	s.mu.Lock()
	s.started = false
	s.mu.Unlock()

	s.logger.Info().Msg("HTTP service stopped")
	return nil
}

// Name returns the service name.
func (s *HTTPService) Name() string {
	return s.name
}

// Addr returns the bound address once started, or the configured one.
func (s *HTTPService) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Health returns nil while the server is running.
func (s *HTTPService) Health() error {
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()

	if !started {
		return fmt.Errorf("service %s not running", s.name)
	}

	return nil
}

// Check implements health.Checker.
func (s *HTTPService) Check(ctx context.Context) error {
	return s.Health()
}
