package app

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"tokenrelay/internal/catalog"
	"tokenrelay/internal/metrics"
	"tokenrelay/internal/proxy"
	"tokenrelay/internal/routes"
	"tokenrelay/internal/server"
	"tokenrelay/pkg/logging"
)

// Services holds the components built at bootstrap.
type Services struct {
	Catalog    *catalog.Catalog
	Registry   *routes.Registry
	Dispatcher *proxy.Dispatcher

	// Metrics is the registry served on the metrics endpoint.
	Metrics *prometheus.Registry

	Handler http.Handler
	Server  *server.Server
}

// InitializeServices builds the catalog, route registry, dispatcher and
// server from cfg.Relay. Routes are not authorized yet.
func InitializeServices(cfg *Config) (*Services, error) {
	relay := cfg.Relay

	cat, err := catalog.Load(catalog.Options{
		Variable: relay.Catalog.Variable,
		EnvFile:  relay.Catalog.EnvFile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load service catalog: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if err := metrics.Register(reg); err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	registry := routes.NewRegistry(relay.Routes, cat, routes.Options{
		TokenTimeout: relay.Timeouts.Token,
	})
	dispatcher := proxy.NewDispatcher(registry, proxy.Options{
		UpstreamTimeout: relay.Timeouts.Upstream,
	})

	handler := server.NewRouter(registry, dispatcher, server.RouterOptions{
		CallbackPath:   relay.AuthorizationCodePath,
		MetricsEnabled: relay.Metrics.Enabled,
		MetricsPath:    relay.Metrics.Path,
		Gatherer:       reg,
	})

	logging.Info("Bootstrap", "Configured %d routes, %d bound services", len(registry.Routes()), cat.Len())

	return &Services{
		Catalog:    cat,
		Registry:   registry,
		Dispatcher: dispatcher,
		Metrics:    reg,
		Handler:    handler,
		Server:     server.New(relay.Server, handler),
	}, nil
}
