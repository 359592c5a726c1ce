package app

import (
	"context"
	"fmt"
	"os"

	"tokenrelay/internal/config"
	"tokenrelay/pkg/auth"
	"tokenrelay/pkg/logging"
)

// Application bootstraps and runs tokenrelay.
//
// Initialization has two phases:
//  1. Bootstrap: load configuration, initialize logging, build services
//  2. Execution: serve requests (Run) or authorize once and report (Check)
//
// Example usage:
//
//	application, err := app.NewApplication(app.NewConfig(false, "", 0))
//	if err != nil {
//	    return fmt.Errorf("failed to create application: %w", err)
//	}
//	return application.Run(ctx)
type Application struct {
	config   *Config
	services *Services
}

// NewApplication loads configuration, configures logging and builds the
// route registry and HTTP server.
func NewApplication(cfg *Config) (*Application, error) {
	output := cfg.LogOutput
	if output == nil {
		output = os.Stderr
	}

	if cfg.Relay == nil {
		// Config loading logs, so start with a CLI logger and replace it below
		logging.InitForCLI(bootstrapLevel(cfg.Debug), output)

		relayCfg, err := config.LoadConfig(cfg.ConfigPath)
		if err != nil {
			logging.Error("Bootstrap", err, "Failed to load configuration")
			return nil, fmt.Errorf("failed to load configuration: %w", err)
		}
		cfg.Relay = &relayCfg
	}

	level, err := logging.ParseLevel(cfg.Relay.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid logging.level: %w", err)
	}
	if cfg.Debug {
		level = logging.LevelDebug
	}
	logging.Init(level, cfg.Relay.Logging.Format, output)

	if cfg.Port != 0 {
		cfg.Relay.Server.Port = cfg.Port
	}

	services, err := InitializeServices(cfg)
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to initialize services")
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	return &Application{
		config:   cfg,
		services: services,
	}, nil
}

func bootstrapLevel(debug bool) logging.LogLevel {
	if debug {
		return logging.LevelDebug
	}
	return logging.LevelInfo
}

// Services returns the initialized services.
func (a *Application) Services() *Services {
	return a.services
}

// Run serves requests until ctx is cancelled or the process receives
// SIGINT/SIGTERM.
func (a *Application) Run(ctx context.Context) error {
	return runServer(ctx, a.services)
}

// Check authorizes every automatic route once and returns the resulting
// status listing. The error joins the failures of individual routes.
func (a *Application) Check(ctx context.Context) ([]auth.RouteStatus, error) {
	return runCheck(ctx, a.services)
}
