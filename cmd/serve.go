package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"tokenrelay/internal/app"
)

// serveDebug enables verbose logging across the application.
var serveDebug bool

// servePort overrides server.port from the configuration file.
var servePort int

// serveConfigPath specifies a custom configuration directory path.
// The directory should contain config.yaml.
var serveConfigPath string

// serveCmd starts the proxy and keeps it running until interrupted.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the tokenrelay proxy",
	Long: `Starts the tokenrelay proxy.

Every configured route is authorized in the background while the listener
comes up. Routes using the client credentials grant fetch their token right
away; routes using the authorization code grant wait until a code is posted
to the authorization code path (see 'tokenrelay status').

Configuration:
  tokenrelay loads config.yaml from ~/.config/tokenrelay by default.
  Use --config-path to load it from another directory.

  Bound service credentials are read from the VCAP_SERVICES environment
  variable (see catalog.variable and catalog.envFile).

The server shuts down gracefully on SIGINT or SIGTERM.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

// runServe is the main entry point for the serve command
func runServe(cmd *cobra.Command, args []string) error {
	cfg := app.NewConfig(serveDebug, serveConfigPath, servePort)
	cfg.LogOutput = cmd.ErrOrStderr()

	application, err := app.NewApplication(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return application.Run(ctx)
}

// init registers the serve command and its flags with the root command.
func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&serveDebug, "debug", false, "Enable debug logging")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Listen port (overrides server.port)")
	serveCmd.Flags().StringVar(&serveConfigPath, "config-path", "", "Custom configuration directory path")
}
