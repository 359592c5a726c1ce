package cmd

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"tokenrelay/internal/config"
	"tokenrelay/internal/oauth"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error, including failed route checks.
	ExitCodeError = 1
	// ExitCodeConfig indicates the configuration file or a route's
	// credentials are invalid.
	ExitCodeConfig = 2
)

// rootCmd represents the base command for the tokenrelay application.
// It is the entry point when the application is called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "tokenrelay",
	Short: "Forward HTTP requests to OAuth2 protected backends",
	Long: `tokenrelay is a local reverse proxy for services bound through a
service catalog. Each configured route obtains a bearer token with the
client credentials or authorization code grant, optionally resolves its
target through a destination service, and forwards matching requests with
the Authorization header attached.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors that are handled by the application.
	SilenceUsage: true,
}

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the application version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
// This function is called by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "tokenrelay version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode determines the appropriate exit code based on the error type.
// This provides semantic exit codes for scripting and automation.
func getExitCode(err error) int {
	var validation config.ValidationErrors
	if errors.As(err, &validation) {
		return ExitCodeConfig
	}

	var single config.ValidationError
	if errors.As(err, &single) {
		return ExitCodeConfig
	}

	if errors.Is(err, oauth.ErrConfiguration) {
		return ExitCodeConfig
	}

	// Default to general error
	return ExitCodeError
}

func init() {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newCheckCmd())
	rootCmd.AddCommand(newStatusCmd())
}
