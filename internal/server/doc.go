// Package server exposes tokenrelay over HTTP.
//
// The router is built with go-chi. Requests are checked against the route
// registry first and forwarded by the proxy dispatcher when a route matches.
// Everything else reaches the fixed endpoints:
//
//   - /health: liveness, always {"status":"ok"}
//   - {authorizationCodePath}: authorization code callback and ?fetch status listing
//   - {metrics.path}: Prometheus metrics, when enabled
//
// Server wraps http.Server with the configured timeouts and shuts down
// gracefully when its context is cancelled.
package server
