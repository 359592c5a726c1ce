package routes

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"tokenrelay/internal/catalog"
	"tokenrelay/internal/config"
	"tokenrelay/internal/destination"
	"tokenrelay/internal/oauth"
	"tokenrelay/pkg/auth"
	"tokenrelay/pkg/logging"
	pkgstrings "tokenrelay/pkg/strings"
)

// Route is one configured path prefix and its token source.
type Route struct {
	// Index is the position in the configuration. The callback endpoint
	// addresses routes by it.
	Index int

	Path       string
	PathPrefix string

	Service     string
	Destination string
	EndpointKey string

	GrantType oauth.GrantType

	// Manual routes use the authorization-code grant and are only
	// authorized through the callback endpoint.
	Manual bool

	// Source is nil for skipped routes.
	Source Source

	// Err is the configuration error of a skipped route.
	Err error
}

// Skipped reports whether the route was rejected at startup. Skipped routes
// never match requests.
func (r *Route) Skipped() bool {
	return r.Source == nil
}

// Status renders the route for the status listing. For manual destination
// routes, redirectURI is registered on the source and embedded in the
// authorization URL.
func (r *Route) Status(redirectURI string) auth.RouteStatus {
	st := auth.RouteStatus{
		ID:          r.Index,
		Name:        r.Path,
		Service:     r.Service,
		Destination: r.Destination,
		Manual:      r.Manual,
	}

	if r.Skipped() {
		st.Status = oauth.StateError.String()
		if r.Err != nil {
			st.Error = r.Err.Error()
		}
		return st
	}

	st.Status = r.Source.State().String()
	if err := r.Source.LastError(); err != nil {
		st.Error = err.Error()
	}
	if endpoint, ok := r.Source.Endpoint(); ok {
		st.Endpoint = endpoint
	}

	if r.Manual {
		if r.Destination != "" && redirectURI != "" {
			r.Source.SetRedirectURI(redirectURI)
			st.URL = r.Source.AuthorizeURL(redirectURI)
			st.RedirectURI = true
		} else {
			st.URL = r.Source.AuthorizeURL("")
		}
	}
	return st
}

// Options configures how sources talk to the network.
type Options struct {
	HTTPClient   *http.Client
	TokenTimeout time.Duration

	// Concurrency bounds AuthorizeAll. Zero means unbounded.
	Concurrency int
}

// Registry owns the routes built from configuration.
type Registry struct {
	routes      []*Route
	destination *destination.Service
	concurrency int

	wg sync.WaitGroup
}

// NewRegistry builds one route per configuration entry, in order.
// Misconfigured entries become skipped routes that keep their index.
func NewRegistry(configs []config.RouteConfig, cat *catalog.Catalog, opts Options) *Registry {
	reg := &Registry{concurrency: opts.Concurrency}

	var destErr error
	destinationService := func() (*destination.Service, error) {
		if reg.destination == nil && destErr == nil {
			reg.destination, destErr = destination.NewService(destination.ServiceConfig{
				Catalog:    cat,
				HTTPClient: opts.HTTPClient,
				Timeout:    opts.TokenTimeout,
			})
			if destErr != nil {
				logging.Error("Routes", destErr, "Destination service unavailable, destination routes are disabled")
			}
		}
		return reg.destination, destErr
	}

	for i, rc := range configs {
		route := &Route{
			Index:       i,
			Path:        rc.Path,
			PathPrefix:  rc.PathPrefix,
			Service:     rc.Service,
			Destination: rc.Destination,
			EndpointKey: rc.Endpoint,
		}
		reg.routes = append(reg.routes, route)

		grant, err := oauth.ParseGrantType(rc.GrantType)
		if err != nil {
			route.Err = err
			logging.Error("Routes", err, "Skipping route %d", i)
			continue
		}
		route.GrantType = grant
		route.Manual = grant == oauth.AuthorizationCode

		switch {
		case rc.Path == "":
			route.Err = oauth.NewConfigurationError(fmt.Sprintf("routes[%d].path", i), "path is missing")
		case rc.Destination != "":
			svc, err := destinationService()
			if err != nil {
				route.Err = err
				break
			}
			route.Source = destination.NewBinding(svc, rc.Destination)
		case rc.Service != "":
			route.Source, route.Err = serviceSource(rc, grant, cat, opts)
		default:
			route.Err = oauth.NewConfigurationError(fmt.Sprintf("routes[%d]", i), "neither service nor destination is set")
		}

		if route.Err != nil {
			route.Source = nil
			logging.Error("Routes", route.Err, "Skipping route %d (%s)", i, rc.Path)
			continue
		}
		logging.Info("Routes", "Registered route %d: %s -> %s (grant=%s, manual=%t)",
			i, route.Path, route.target(), route.GrantType, route.Manual)
	}

	return reg
}

func serviceSource(rc config.RouteConfig, grant oauth.GrantType, cat *catalog.Catalog, opts Options) (Source, error) {
	rec, ok := cat.Find(catalog.ByCloudService(rc.Service))
	if !ok {
		return nil, oauth.NewConfigurationError("service", "service %s is not bound", rc.Service)
	}

	creds := rec.Credentials.OAuth()
	broker := oauth.NewBroker(oauth.BrokerConfig{
		Name:         rc.Path,
		GrantType:    grant,
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		TokenURL:     creds.URL,
		HTTPClient:   opts.HTTPClient,
		Timeout:      opts.TokenTimeout,
	})

	endpoint, ok := ResolveEndpoint(rec.Credentials, rc.Endpoint)
	if !ok {
		logging.Warn("Routes", "Service %s has no endpoint %q, requests to %s will fail", rc.Service, rc.Endpoint, rc.Path)
	}
	return NewServiceSource(broker, endpoint), nil
}

func (r *Route) target() string {
	if r.Destination != "" {
		return "destination " + r.Destination
	}
	return "service " + r.Service
}

// Start authorizes every non-manual route in the background. Failures are
// logged and stay recorded on the route's source.
func (reg *Registry) Start(ctx context.Context) {
	if reg.destination != nil {
		reg.destination.Start(ctx)
	}
	for _, route := range reg.routes {
		if route.Skipped() || route.Manual {
			continue
		}
		reg.wg.Add(1)
		go func(route *Route) {
			defer reg.wg.Done()
			if err := route.Source.Authorize(ctx); err != nil {
				logging.Warn("Routes", "Startup authorization of %s failed: %s", route.Path, pkgstrings.FirstLine(err.Error()))
			}
		}(route)
	}
}

// Wait blocks until the authorizations launched by Start have finished.
func (reg *Registry) Wait() {
	reg.wg.Wait()
}

// AuthorizeAll authorizes every non-manual route and waits for all of them.
// The result joins the failures of individual routes.
func (reg *Registry) AuthorizeAll(ctx context.Context) error {
	if reg.destination != nil {
		reg.destination.Start(ctx)
	}

	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	if reg.concurrency > 0 {
		g.SetLimit(reg.concurrency)
	}

	for _, route := range reg.routes {
		if route.Skipped() || route.Manual {
			continue
		}
		g.Go(func() error {
			if err := route.Source.Authorize(ctx); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("route %d (%s): %w", route.Index, route.Path, err))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	return errors.Join(errs...)
}

// Match returns the first route whose path prefixes the request path.
func (reg *Registry) Match(path string) (*Route, bool) {
	for _, route := range reg.routes {
		if route.Skipped() {
			continue
		}
		if strings.HasPrefix(path, route.Path) {
			return route, true
		}
	}
	return nil, false
}

// Route returns the route with the given configuration index.
func (reg *Registry) Route(index int) (*Route, bool) {
	if index < 0 || index >= len(reg.routes) {
		return nil, false
	}
	return reg.routes[index], true
}

// Routes returns all routes, skipped ones included, in configuration order.
func (reg *Registry) Routes() []*Route {
	out := make([]*Route, len(reg.routes))
	copy(out, reg.routes)
	return out
}
