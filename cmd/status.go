package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"tokenrelay/internal/config"
	"tokenrelay/internal/formatting"
	"tokenrelay/pkg/auth"
	pkgstrings "tokenrelay/pkg/strings"
)

// DefaultStatusTimeout bounds the status request to a running server.
const DefaultStatusTimeout = 10 * time.Second

// DefaultStatusEndpoint is the address of a locally running server with the
// default configuration.
const DefaultStatusEndpoint = "http://localhost:8090"

type statusOptions struct {
	endpoint     string
	callbackPath string
	output       string
	noColor      bool
	timeout      time.Duration
}

// newStatusCmd creates the status command, which reads the route status
// listing from a running server.
func newStatusCmd() *cobra.Command {
	opts := &statusOptions{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show route status of a running tokenrelay server",
		Long: `Fetches the route status listing from a running tokenrelay server and
prints it. The listing is served at {authorization code path}?fetch.

Examples:
  tokenrelay status
  tokenrelay status --endpoint http://localhost:9000 -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.endpoint, "endpoint", DefaultStatusEndpoint, "Base URL of the running server")
	cmd.Flags().StringVar(&opts.callbackPath, "callback-path", config.DefaultAuthorizationCodePath, "Authorization code path configured on the server")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "table", "Output format (table, json, yaml)")
	cmd.Flags().BoolVar(&opts.noColor, "no-color", false, "Disable colored table output")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", DefaultStatusTimeout, "Request timeout")

	return cmd
}

func runStatus(cmd *cobra.Command, opts *statusOptions) error {
	format, err := formatting.ParseFormat(opts.output)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	list, err := fetchStatus(ctx, http.DefaultClient, opts.endpoint, opts.callbackPath)
	if err != nil {
		return err
	}

	return formatting.WriteStatus(cmd.OutOrStdout(), list, formatting.Options{
		Format:  format,
		NoColor: opts.noColor,
	})
}

// statusURL joins the server endpoint and the callback path and adds the
// fetch parameter.
func statusURL(endpoint, callbackPath string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid endpoint %q: scheme and host are required", endpoint)
	}
	if !strings.HasPrefix(callbackPath, "/") {
		callbackPath = "/" + callbackPath
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + callbackPath
	u.RawQuery = "fetch"
	return u.String(), nil
}

func fetchStatus(ctx context.Context, client *http.Client, endpoint, callbackPath string) ([]auth.RouteStatus, error) {
	target, err := statusURL(endpoint, callbackPath)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("status request failed: HTTP %d: %s", resp.StatusCode, pkgstrings.Truncate(string(body), 200))
	}

	var list []auth.RouteStatus
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("failed to decode status listing: %w", err)
	}
	return list, nil
}
