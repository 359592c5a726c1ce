package auth

// RouteStatus is one entry of the status listing served at
// {authorizationCodePath}?fetch. The CLI status command decodes the same type.
type RouteStatus struct {
	// ID is the route's index in the configuration. It is the value the
	// authorization code callback expects in its id parameter.
	ID int `json:"id" yaml:"id"`

	// Name is the route's path prefix.
	Name string `json:"name" yaml:"name"`

	// Service is the bound service name for service routes.
	Service string `json:"service,omitempty" yaml:"service,omitempty"`

	// Destination is the destination name for destination routes.
	Destination string `json:"destination,omitempty" yaml:"destination,omitempty"`

	// Endpoint is the resolved target origin, empty until known.
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`

	// Status is one of: "unauthorized", "pending", "success", "error"
	Status string `json:"status" yaml:"status"`

	// Error is the text of the last recorded failure.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`

	// Manual is true for authorization code routes.
	Manual bool `json:"manual,omitempty" yaml:"manual,omitempty"`

	// URL is the authorization URL a user visits to obtain a code.
	// Present only for manual routes.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`

	// RedirectURI is true when URL carries a redirect_uri parameter.
	RedirectURI bool `json:"redirectUri" yaml:"redirectUri"`
}

// Status values reported in RouteStatus.Status.
const (
	StatusUnauthorized = "unauthorized"
	StatusPending      = "pending"
	StatusSuccess      = "success"
	StatusError        = "error"
)

// Failed reports whether the route is in the error state.
func (s RouteStatus) Failed() bool {
	return s.Status == StatusError
}
