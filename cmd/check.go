package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"tokenrelay/internal/app"
	"tokenrelay/internal/formatting"
	"tokenrelay/pkg/logging"
)

// DefaultCheckTimeout bounds a whole check run.
const DefaultCheckTimeout = 60 * time.Second

type checkOptions struct {
	configPath string
	output     string
	debug      bool
	noColor    bool
	timeout    time.Duration
}

// newCheckCmd creates the check command. It builds the route registry from
// the configuration, authorizes every automatic route once and reports the
// outcome without starting the listener.
func newCheckCmd() *cobra.Command {
	opts := &checkOptions{}

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Authorize every route once and report the result",
		Long: `Loads the configuration and service catalog, authorizes every route that
uses the client credentials grant, and prints the status of all routes.

Routes using the authorization code grant are listed as unauthorized; their
authorization URL is printed below the table.

Exit codes:
  0  all automatic routes authorized
  1  at least one route failed
  2  the configuration is invalid

Examples:
  tokenrelay check
  tokenrelay check --config-path ./deploy -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.configPath, "config-path", "", "Custom configuration directory path")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "table", "Output format (table, json, yaml)")
	cmd.Flags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	cmd.Flags().BoolVar(&opts.noColor, "no-color", false, "Disable colored table output")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", DefaultCheckTimeout, "Maximum time for all token exchanges")

	return cmd
}

func runCheck(cmd *cobra.Command, opts *checkOptions) error {
	format, err := formatting.ParseFormat(opts.output)
	if err != nil {
		return err
	}

	cfg := app.NewConfig(opts.debug, opts.configPath, 0)
	cfg.LogOutput = cmd.ErrOrStderr()

	application, err := app.NewApplication(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	list, checkErr := application.Check(ctx)
	if checkErr != nil {
		logging.Debug("Check", "Route failures: %v", checkErr)
	}

	if err := formatting.WriteStatus(cmd.OutOrStdout(), list, formatting.Options{
		Format:  format,
		NoColor: opts.noColor,
	}); err != nil {
		return err
	}

	// Route errors are already in the listing; the returned error only
	// counts them and never wraps a ConfigurationError.
	failed := 0
	for _, s := range list {
		if s.Failed() {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d routes failed", failed, len(list))
	}
	if checkErr != nil {
		return fmt.Errorf("check failed: %s", checkErr)
	}
	return nil
}
