// Package service manages the lifecycle of the kvcache process: bootstrapping
// the shared infrastructure, running the HTTP server and shutting both down
// gracefully on a signal.
//
// Example usage:
//
//	b, err := service.NewBootstrap(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer b.Cleanup(context.Background())
//
//	httpSvc := service.NewHTTPService("kvcache", ":8080", handler,
//	    service.WithLogger(b.Logger),
//	)
//	if err := httpSvc.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	service.WaitForShutdown(ctx, b.Logger, httpSvc)
package service

import "context"

// Service represents a server that can be started, stopped, and health-checked.
type Service interface {
	// Start starts the service and returns once it accepts requests.
	Start(ctx context.Context) error

	// Stop gracefully stops the service, waiting for in-flight requests to complete.
	// The context deadline bounds how long to wait.
	Stop(ctx context.Context) error

	// Name returns the name of the service for logging and identification.
	Name() string

	// Health returns nil while the service is running.
	Health() error
}
