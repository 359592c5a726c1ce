package server

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"tokenrelay/internal/callback"
	"tokenrelay/internal/metrics"
	"tokenrelay/internal/proxy"
	"tokenrelay/internal/routes"
)

// RouterOptions selects what the router mounts besides the proxy.
type RouterOptions struct {
	// CallbackPath is where the authorization code callback is served.
	CallbackPath string

	// MetricsPath is served when MetricsEnabled is set.
	MetricsEnabled bool
	MetricsPath    string
	Gatherer       prometheus.Gatherer
}

// NewRouter assembles the HTTP surface. Proxied routes are matched first, so
// a configured route prefix shadows every other endpoint.
func NewRouter(registry *routes.Registry, dispatcher *proxy.Dispatcher, opts RouterOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(metrics.WithMetrics)
	r.Use(dispatcher.Handler)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if opts.CallbackPath != "" {
		cb := callback.NewHandler(registry)
		base := strings.TrimSuffix(opts.CallbackPath, "/")
		r.Handle(base, cb)
		r.Handle(base+"/*", cb)
	}

	if opts.MetricsEnabled && opts.MetricsPath != "" {
		r.Handle(opts.MetricsPath, metrics.Handler(opts.Gatherer))
	}

	return r
}
