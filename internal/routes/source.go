package routes

import (
	"context"
	"strings"

	"tokenrelay/internal/catalog"
	"tokenrelay/internal/destination"
	"tokenrelay/internal/oauth"
)

// Source is the token source behind a route: a direct service broker or a
// destination binding.
type Source interface {
	Authorize(ctx context.Context) error
	State() oauth.State
	LastError() error
	AuthorizationHeader() (string, error)

	// Endpoint returns the target origin, false while it is unknown.
	Endpoint() (string, bool)

	SetAuthorizationCode(code string)
	SetRedirectURI(uri string)
	AuthorizeURL(redirectURI string) string
}

var (
	_ Source = (*ServiceSource)(nil)
	_ Source = (*destination.Binding)(nil)
)

// ServiceSource authorizes against a bound service's own credentials and
// targets one of its static endpoints.
type ServiceSource struct {
	*oauth.Broker
	endpoint string
}

// NewServiceSource pairs a broker with a resolved endpoint ("" if none).
func NewServiceSource(broker *oauth.Broker, endpoint string) *ServiceSource {
	return &ServiceSource{Broker: broker, endpoint: endpoint}
}

// Endpoint returns the static origin of the service.
func (s *ServiceSource) Endpoint() (string, bool) {
	return s.endpoint, s.endpoint != ""
}

// ResolveEndpoint returns the origin of a bound service. With a key, the
// named entry of credentials.endpoints is used; without one, credentials.uri.
// A trailing slash is removed.
func ResolveEndpoint(creds catalog.Credentials, key string) (string, bool) {
	var origin string
	if key != "" {
		origin = creds.Endpoints[key]
	} else {
		origin = creds.URI
	}
	origin = strings.TrimSuffix(origin, "/")
	return origin, origin != ""
}
