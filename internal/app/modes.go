package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"tokenrelay/pkg/auth"
	"tokenrelay/pkg/logging"
)

// runServer starts route authorization and serves until ctx is done or a
// termination signal arrives.
//
// Signal Handling:
//   - SIGINT (Ctrl+C): Triggers graceful shutdown
//   - SIGTERM: Triggers graceful shutdown (common in container environments)
func runServer(ctx context.Context, services *Services) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := services.Server.Listen(); err != nil {
		logging.Error("Bootstrap", err, "Failed to start listener")
		return err
	}

	services.Registry.Start(ctx)
	logging.Info("Bootstrap", "Serving on http://%s. Press Ctrl+C to stop.", services.Server.Addr())

	return services.Server.Serve(ctx)
}

// runCheck authorizes all automatic routes and collects their status.
// Skipped routes fail the check as well.
func runCheck(ctx context.Context, services *Services) ([]auth.RouteStatus, error) {
	errs := []error{services.Registry.AuthorizeAll(ctx)}

	var list []auth.RouteStatus
	for _, route := range services.Registry.Routes() {
		if route.Skipped() {
			errs = append(errs, fmt.Errorf("route %d (%s): %w", route.Index, route.Path, route.Err))
		}
		list = append(list, route.Status(""))
	}
	return list, errors.Join(errs...)
}
