package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TokenExchanges = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tokenrelay_token_exchanges_total",
		Help: "Token endpoint exchanges by grant type and result.",
	}, []string{"grant_type", "result"})

	TokenExchangeDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tokenrelay_token_exchange_duration_seconds",
		Help:    "Latency of token endpoint exchanges.",
		Buckets: prometheus.DefBuckets,
	}, []string{"grant_type"})

	DestinationLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tokenrelay_destination_lookups_total",
		Help: "Destination service lookups by result.",
	}, []string{"result"})

	ProxyRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tokenrelay_proxy_requests_total",
		Help: "Proxied requests by route and response code.",
	}, []string{"route", "code"})

	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tokenrelay_http_requests_total",
		Help: "Inbound HTTP requests by method and status.",
	}, []string{"method", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tokenrelay_http_request_duration_seconds",
		Help:    "Latency of inbound HTTP requests until the handler returns.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})
)

// Result label values.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Register registers all collectors on reg (or the default registerer if nil).
// Collectors that are already registered are ignored.
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	collectors := []prometheus.Collector{
		TokenExchanges,
		TokenExchangeDuration,
		DestinationLookups,
		ProxyRequests,
		HTTPRequests,
		HTTPRequestDuration,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if !errors.As(err, &already) {
				return err
			}
		}
	}
	return nil
}

// Handler returns the /metrics handler for the given gatherer (default if nil).
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// Result maps an error to a result label.
func Result(err error) string {
	if err != nil {
		return ResultFailure
	}
	return ResultSuccess
}

// ObserveTokenExchange records one token endpoint exchange.
func ObserveTokenExchange(grantType string, start time.Time, err error) {
	TokenExchanges.WithLabelValues(grantType, Result(err)).Inc()
	TokenExchangeDuration.WithLabelValues(grantType).Observe(time.Since(start).Seconds())
}

// WithMetrics instruments inbound HTTP requests.
func WithMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &StatusRecorder{ResponseWriter: w}

		defer func() {
			HTTPRequests.WithLabelValues(r.Method, strconv.Itoa(rec.Code())).Inc()
			HTTPRequestDuration.WithLabelValues(r.Method).Observe(time.Since(start).Seconds())
		}()

		next.ServeHTTP(rec, r)
	})
}

// StatusRecorder captures the status code written by a handler. It keeps
// streaming working by forwarding Flush and exposing the wrapped writer to
// http.ResponseController.
type StatusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *StatusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *StatusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// Flush implements http.Flusher.
func (r *StatusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (r *StatusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Code returns the recorded status, 200 if nothing was written.
func (r *StatusRecorder) Code() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}
