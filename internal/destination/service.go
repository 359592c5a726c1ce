package destination

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"tokenrelay/internal/catalog"
	"tokenrelay/internal/metrics"
	"tokenrelay/internal/oauth"
	"tokenrelay/pkg/logging"
)

// Label is the catalog label of the destination service binding.
const Label = "destination"

const lookupPath = "/destination-configuration/v1/destinations/"

const maxResponseBody = 1 << 20

// Extension headers carrying a user's authorization code to the
// destination service for authorization-code destinations.
const (
	HeaderCode        = "X-code"
	HeaderRedirectURI = "X-redirect-uri"
)

// ServiceConfig configures the shared destination service client.
type ServiceConfig struct {
	Catalog    *catalog.Catalog
	HTTPClient *http.Client
	Timeout    time.Duration
}

// Service is the process-wide client of the destination service. It owns the
// client-credentials broker that authorizes lookup calls.
type Service struct {
	broker     *oauth.Broker
	origin     string
	httpClient *http.Client
	timeout    time.Duration

	mu      sync.Mutex
	initial *oauth.Future
}

// NewService builds the service from the catalog record labelled "destination".
func NewService(cfg ServiceConfig) (*Service, error) {
	rec, ok := cfg.Catalog.Find(catalog.ByLabel(Label))
	if !ok {
		return nil, oauth.NewConfigurationError(Label, "destination service is not bound")
	}
	if rec.Credentials.URI == "" {
		return nil, oauth.NewConfigurationError(Label+".uri", "destination service binding has no uri")
	}

	client := cfg.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = oauth.DefaultTimeout
	}

	creds := rec.Credentials.OAuth()
	return &Service{
		broker: oauth.NewBroker(oauth.BrokerConfig{
			Name:         "destination service",
			GrantType:    oauth.ClientCredentials,
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			TokenURL:     creds.URL,
			HTTPClient:   client,
			Timeout:      timeout,
		}),
		origin:     strings.TrimSuffix(rec.Credentials.URI, "/"),
		httpClient: client,
		timeout:    timeout,
	}, nil
}

// Start begins the initial authorization of the shared broker. Only the
// first call has an effect.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initial == nil {
		s.initial = s.broker.AuthorizeAsync(ctx)
	}
}

// Wait blocks until the initial authorization settled and reports an error
// unless the shared broker holds a token.
func (s *Service) Wait(ctx context.Context) error {
	s.mu.Lock()
	f := s.initial
	s.mu.Unlock()

	if f != nil {
		if err := f.Wait(ctx); err != nil && ctx.Err() != nil {
			return oauth.ClassifyTransport("wait for destination service authorization", err)
		}
	}
	if state := s.broker.State(); state != oauth.StateSuccess {
		if err := s.broker.LastError(); err != nil {
			return err
		}
		return &oauth.NotAuthorizedError{Cause: oauth.ErrNoAccessToken}
	}
	return nil
}

// AuthToken is one entry of a lookup's authTokens array.
type AuthToken struct {
	Type  string `json:"type"`
	Value string `json:"value"`
	Error string `json:"error,omitempty"`
}

// Configuration is the decoded lookup response.
type Configuration struct {
	DestinationConfiguration struct {
		Name string `json:"Name,omitempty"`
		URL  string `json:"URL"`
	} `json:"destinationConfiguration"`
	AuthTokens []AuthToken `json:"authTokens"`
}

// Lookup fetches the configuration of the named destination. code and
// redirectURI are sent for authorization-code destinations when set.
func (s *Service) Lookup(ctx context.Context, name, code, redirectURI string) (*Configuration, error) {
	header, err := s.broker.AuthorizationHeader()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.origin+lookupPath+url.PathEscape(name), nil)
	if err != nil {
		return nil, oauth.NewConfigurationError(Label+".uri", "invalid destination service uri: %v", err)
	}
	req.Header.Set("Authorization", header)
	req.Header.Set("Accept", "application/json")
	if code != "" {
		req.Header.Set(HeaderCode, code)
		if redirectURI != "" {
			req.Header.Set(HeaderRedirectURI, redirectURI)
		}
	}

	start := time.Now()
	cfg, err := s.do(req)
	metrics.DestinationLookups.WithLabelValues(metrics.Result(err)).Inc()
	if err != nil {
		return nil, err
	}
	logging.Debug("Destination", "Looked up destination %s in %s", name, logging.Since(start))
	return cfg, nil
}

func (s *Service) do(req *http.Request) (*Configuration, error) {
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, oauth.ClassifyTransport("destination lookup", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, oauth.ClassifyTransport("read destination lookup", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &oauth.AuthorizationError{
			Source:     "destination service failure",
			StatusCode: resp.StatusCode,
			Body:       string(body),
		}
	}

	var cfg Configuration
	if err := json.Unmarshal(body, &cfg); err != nil {
		return nil, &oauth.AuthorizationError{
			Source: "destination service failure",
			Body:   "invalid lookup response: " + err.Error(),
		}
	}
	return &cfg, nil
}

// AuthorizeURL builds an authorize URL against the destination service's
// own authorization server.
func (s *Service) AuthorizeURL(redirectURI string) string {
	return s.broker.AuthorizeURL(redirectURI)
}
