// Package logging provides the subsystem-tagged logger used across tokenrelay.
//
// It is a thin layer over the standard slog package. Every entry carries a
// subsystem attribute so that token exchanges, destination lookups and proxied
// requests can be filtered independently.
//
// # Usage
//
//	logging.Init(logging.LevelInfo, logging.FormatText, os.Stderr)
//
//	logging.Info("Routes", "Registered %d routes", n)
//	logging.Debug("OAuth", "Token exchange for client=%s", clientID)
//	logging.Warn("Catalog", "No %s variable set, catalog is empty", name)
//	logging.Error("Proxy", err, "Forwarding %s failed", path)
//
// # Subsystems
//
//   - Bootstrap: application start and shutdown
//   - Config: configuration loading and validation
//   - Catalog: bound service credential discovery
//   - OAuth: token endpoint exchanges
//   - Destination: destination service lookups
//   - Routes: route registration and startup authorization
//   - Proxy: request dispatch
//   - Callback: authorization code callbacks and status listing
//   - Server: HTTP listener lifecycle
//   - Check: one-shot route checks from the CLI
//
// Access tokens must never be passed to these functions; wrap them in
// oauth.RedactedToken when a token value has to appear in a format string.
package logging
