package oauth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"tokenrelay/internal/metrics"
	"tokenrelay/pkg/logging"
)

// DefaultTimeout bounds a single token exchange when BrokerConfig.Timeout is unset.
const DefaultTimeout = 15 * time.Second

// maxErrorBody caps how much of a failed response is kept in an AuthorizationError.
const maxErrorBody = 64 << 10

// BrokerConfig carries the immutable settings of a Broker.
type BrokerConfig struct {
	// Name identifies the broker in log lines, typically the route path.
	Name string

	GrantType    GrantType
	ClientID     string
	ClientSecret string

	// TokenURL is the base URL of the authorization server; /oauth/token and
	// /oauth/authorize are appended to it.
	TokenURL string

	HTTPClient *http.Client
	Timeout    time.Duration
}

// Broker owns one OAuth2 credential set and the token obtained with it.
// It is safe for concurrent use. Concurrent Authorize calls are not
// coalesced; the last one to complete wins.
type Broker struct {
	name         string
	grantType    GrantType
	clientID     string
	clientSecret string
	tokenURL     string
	httpClient   *http.Client
	timeout      time.Duration

	mu          sync.Mutex
	code        string
	redirectURI string
	token       *oauth2.Token
	lastErr     error
	inflight    int
}

// NewBroker creates a broker. Missing credentials are reported by Authorize,
// not here, so misconfigured routes still show up in the status listing.
func NewBroker(cfg BrokerConfig) *Broker {
	client := cfg.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	grantType := cfg.GrantType
	if grantType == "" {
		grantType = ClientCredentials
	}
	return &Broker{
		name:         cfg.Name,
		grantType:    grantType,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		tokenURL:     strings.TrimSuffix(cfg.TokenURL, "/"),
		httpClient:   client,
		timeout:      timeout,
	}
}

// Authorize exchanges the broker's credentials for an access token and
// records the outcome. The returned error is the one recorded.
func (b *Broker) Authorize(ctx context.Context) (err error) {
	b.mu.Lock()
	b.inflight++
	code, redirectURI := b.code, b.redirectURI
	b.mu.Unlock()

	var token *oauth2.Token
	defer func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.inflight--
		if err != nil {
			b.token = nil
			b.lastErr = err
			return
		}
		b.token = token
		b.lastErr = nil
	}()

	if err = b.validate(code); err != nil {
		logging.Warn("OAuth", "Cannot authorize %s: %v", b.name, err)
		return err
	}

	start := time.Now()
	token, err = b.exchange(ctx, code, redirectURI)
	metrics.ObserveTokenExchange(b.grantType.String(), start, err)
	if err != nil {
		logging.Error("OAuth", err, "Token exchange for %s failed after %s", b.name, logging.Since(start))
		return err
	}

	logging.Info("OAuth", "Authorized %s (grant=%s, client=%s, token=%s) in %s",
		b.name, b.grantType, b.clientID, NewRedactedToken(token.AccessToken), logging.Since(start))
	return nil
}

// AuthorizeAsync starts Authorize on a new goroutine.
func (b *Broker) AuthorizeAsync(ctx context.Context) *Future {
	return Go(func() error { return b.Authorize(ctx) })
}

func (b *Broker) validate(code string) error {
	switch {
	case b.clientID == "":
		return NewConfigurationError("clientid", "client id is not set")
	case b.clientSecret == "":
		return NewConfigurationError("clientsecret", "client secret is not set")
	case b.tokenURL == "":
		return NewConfigurationError("url", "token endpoint URL is not set")
	}
	if b.grantType.wireValue() == "" {
		return NewConfigurationError("grantType", "unsupported grant type %q", string(b.grantType))
	}
	if b.grantType == AuthorizationCode && code == "" {
		return ErrMissingCode
	}
	return nil
}

// tokenEndpoint builds the token request URL. The parameters travel in the
// query string; the request carries no body.
func (b *Broker) tokenEndpoint(code, redirectURI string) string {
	query := "grant_type=" + b.grantType.wireValue()
	if b.grantType == AuthorizationCode {
		query += "&code=" + url.QueryEscape(code)
		if redirectURI != "" {
			query += "&redirect_uri=" + url.QueryEscape(redirectURI)
		}
	}
	return b.tokenURL + "/oauth/token?" + query
}

// tokenResponse mirrors the token endpoint JSON; oauth2.Token has no
// expires_in field of its own.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
}

func (b *Broker) exchange(ctx context.Context, code, redirectURI string) (*oauth2.Token, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.tokenEndpoint(code, redirectURI), nil)
	if err != nil {
		return nil, NewConfigurationError("url", "invalid token endpoint: %v", err)
	}
	req.Header.Set("Authorization", "Basic "+basicCredentials(b.clientID, b.clientSecret))
	req.Header.Set("Accept", "application/json")

	logging.Debug("OAuth", "Requesting %s token for %s from %s", b.grantType, b.name, b.tokenURL)

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, ClassifyTransport("token request", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return nil, ClassifyTransport("read token response", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &AuthorizationError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, &AuthorizationError{Body: fmt.Sprintf("invalid token response: %v", err)}
	}
	if tr.AccessToken == "" {
		return nil, &AuthorizationError{Body: "token response has no access_token"}
	}

	token := &oauth2.Token{
		AccessToken:  tr.AccessToken,
		TokenType:    tr.TokenType,
		RefreshToken: tr.RefreshToken,
	}
	if tr.ExpiresIn > 0 {
		token.Expiry = time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	}
	return token, nil
}

func basicCredentials(id, secret string) string {
	return base64.StdEncoding.EncodeToString([]byte(id + ":" + secret))
}

// State returns the derived authorization state.
func (b *Broker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return DeriveState(b.inflight, b.token != nil, b.lastErr)
}

// LastError returns the recorded failure, if any.
func (b *Broker) LastError() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastErr
}

// AuthorizationHeader returns "Bearer <token>" or a *NotAuthorizedError.
func (b *Broker) AuthorizationHeader() (string, error) {
	token, err := b.Token()
	if err != nil {
		return "", err
	}
	return "Bearer " + token.AccessToken, nil
}

// Token implements oauth2.TokenSource. It never contacts the token endpoint.
func (b *Broker) Token() (*oauth2.Token, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.lastErr != nil {
		return nil, &NotAuthorizedError{Cause: b.lastErr}
	}
	if b.token == nil {
		return nil, &NotAuthorizedError{Cause: ErrNoAccessToken}
	}
	t := *b.token
	if t.TokenType == "" {
		t.TokenType = "Bearer"
	}
	return &t, nil
}

// SetAuthorizationCode stores the code used by the next authorization-code exchange.
func (b *Broker) SetAuthorizationCode(code string) {
	b.mu.Lock()
	b.code = code
	b.mu.Unlock()
}

// SetRedirectURI stores the redirect_uri sent with the next code exchange.
func (b *Broker) SetRedirectURI(uri string) {
	b.mu.Lock()
	b.redirectURI = uri
	b.mu.Unlock()
}

// AuthorizeURL builds the user-facing authorization URL for this client.
func (b *Broker) AuthorizeURL(redirectURI string) string {
	return BuildAuthorizeURL(b.tokenURL, b.clientID, redirectURI)
}

// BuildAuthorizeURL returns {base}/oauth/authorize?response_type=code&client_id=...
// with redirect_uri appended when given.
func BuildAuthorizeURL(base, clientID, redirectURI string) string {
	u := strings.TrimSuffix(base, "/") + "/oauth/authorize?response_type=code&client_id=" + url.QueryEscape(clientID)
	if redirectURI != "" {
		u += "&redirect_uri=" + url.QueryEscape(redirectURI)
	}
	return u
}

var _ oauth2.TokenSource = (*Broker)(nil)
