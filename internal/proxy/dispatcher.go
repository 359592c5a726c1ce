package proxy

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"tokenrelay/internal/metrics"
	"tokenrelay/internal/oauth"
	"tokenrelay/internal/routes"
	"tokenrelay/pkg/logging"
)

// DefaultUpstreamTimeout bounds the wait for upstream response headers.
const DefaultUpstreamTimeout = 60 * time.Second

// forwardedHeaders are restored on the outbound request; the Rewrite hook
// strips them by default.
var forwardedHeaders = []string{"Forwarded", "X-Forwarded-For", "X-Forwarded-Host", "X-Forwarded-Proto"}

// Options configures a Dispatcher.
type Options struct {
	UpstreamTimeout time.Duration

	// Transport overrides the upstream transport. UpstreamTimeout is not
	// applied to it.
	Transport http.RoundTripper
}

// Dispatcher forwards requests matching a route to the route's target with
// the route's bearer token attached.
type Dispatcher struct {
	registry *routes.Registry
	proxy    *httputil.ReverseProxy
}

type forwardKey struct{}

// forward is the per-request state handed to the Rewrite hook.
type forward struct {
	id     string
	route  *routes.Route
	target *url.URL
	header string
}

// NewDispatcher creates a dispatcher over registry.
func NewDispatcher(registry *routes.Registry, opts Options) *Dispatcher {
	transport := opts.Transport
	if transport == nil {
		timeout := opts.UpstreamTimeout
		if timeout <= 0 {
			timeout = DefaultUpstreamTimeout
		}
		t := http.DefaultTransport.(*http.Transport).Clone()
		t.ResponseHeaderTimeout = timeout
		transport = t
	}

	d := &Dispatcher{registry: registry}
	d.proxy = &httputil.ReverseProxy{
		Rewrite:       d.rewrite,
		Transport:     transport,
		FlushInterval: -1,
		ErrorHandler:  d.upstreamError,
		ErrorLog:      slog.NewLogLogger(logging.Logger().Handler(), slog.LevelWarn),
	}
	return d
}

// Handler returns middleware that serves matching requests and passes all
// others to next.
func (d *Dispatcher) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route, ok := d.registry.Match(r.URL.Path)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		d.serve(w, r, route)
	})
}

func (d *Dispatcher) serve(w http.ResponseWriter, r *http.Request, route *routes.Route) {
	id := uuid.NewString()
	rec := &metrics.StatusRecorder{ResponseWriter: w}
	defer func() {
		metrics.ProxyRequests.WithLabelValues(route.Path, strconv.Itoa(rec.Code())).Inc()
	}()

	origin, ok := route.Source.Endpoint()
	if !ok {
		var msg string
		if route.Destination != "" {
			msg = fmt.Sprintf("endpoint for destination %s is not present", route.Destination)
		} else {
			msg = fmt.Sprintf("endpoint %s for service %s is not present", route.EndpointKey, route.Service)
		}
		logging.Error("Proxy", nil, "[%s] %s %s: %s", id, r.Method, r.URL.Path, msg)
		http.Error(rec, msg, http.StatusInternalServerError)
		return
	}

	target, err := TargetURL(origin, RewriteURLPath(r.URL, route.Path, route.PathPrefix), r.URL.RawQuery)
	if err != nil {
		logging.Error("Proxy", err, "[%s] Invalid target for %s", id, r.URL.Path)
		http.Error(rec, fmt.Sprintf("invalid target: %v", err), http.StatusInternalServerError)
		return
	}

	header, err := route.Source.AuthorizationHeader()
	if err != nil {
		logging.Error("Proxy", err, "[%s] %s %s: route %s is not authorized", id, r.Method, r.URL.Path, route.Path)
		http.Error(rec, err.Error(), http.StatusInternalServerError)
		return
	}

	logging.Info("Proxy", "[%s] Proxying %s %s to %s", id, r.Method, r.URL.RequestURI(), target.Redacted())

	ctx := context.WithValue(r.Context(), forwardKey{}, &forward{id: id, route: route, target: target, header: header})
	d.proxy.ServeHTTP(rec, r.WithContext(ctx))
}

func (d *Dispatcher) rewrite(pr *httputil.ProxyRequest) {
	f := pr.In.Context().Value(forwardKey{}).(*forward)

	target := *f.target
	pr.Out.URL = &target
	pr.Out.Host = ""

	for _, h := range forwardedHeaders {
		if v := pr.In.Header.Values(h); len(v) > 0 {
			pr.Out.Header[h] = v
		}
	}
	pr.Out.Header.Set("Authorization", f.header)
}

func (d *Dispatcher) upstreamError(w http.ResponseWriter, r *http.Request, err error) {
	id := "-"
	if f, ok := r.Context().Value(forwardKey{}).(*forward); ok {
		id = f.id
	}
	upstreamErr := oauth.ClassifyTransport("upstream request", err)
	logging.Error("Proxy", upstreamErr, "[%s] %s %s failed", id, r.Method, r.URL.Path)
	http.Error(w, upstreamErr.Error(), http.StatusInternalServerError)
}
