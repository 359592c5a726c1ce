package destination

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"tokenrelay/internal/oauth"
	"tokenrelay/pkg/logging"
)

// resolution is the result of one successful lookup. It is replaced as a
// whole so origin and token never come from different lookups.
type resolution struct {
	origin string
	token  string
}

// Binding resolves one named destination to a target origin and the bearer
// token to use against it. It is safe for concurrent use; concurrent
// Authorize calls share one lookup.
type Binding struct {
	service *Service
	name    string

	group singleflight.Group

	mu          sync.Mutex
	res         *resolution
	lastErr     error
	inflight    int
	code        string
	redirectURI string
}

// NewBinding binds name to the shared service.
func NewBinding(service *Service, name string) *Binding {
	return &Binding{service: service, name: name}
}

// Authorize resolves the destination. A failure clears any previous
// resolution.
func (b *Binding) Authorize(ctx context.Context) error {
	_, err, shared := b.group.Do(b.name, func() (interface{}, error) {
		return nil, b.resolve(ctx)
	})
	if shared {
		logging.Debug("Destination", "Joined in-flight lookup of %s", b.name)
	}
	return err
}

func (b *Binding) resolve(ctx context.Context) (err error) {
	b.mu.Lock()
	b.inflight++
	code, redirectURI := b.code, b.redirectURI
	b.mu.Unlock()

	var res *resolution
	defer func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.inflight--
		if err != nil {
			b.res = nil
			b.lastErr = err
			return
		}
		b.res = res
		b.lastErr = nil
	}()

	start := time.Now()

	if err = b.service.Wait(ctx); err != nil {
		logging.Warn("Destination", "Destination service is not authorized, cannot resolve %s: %v", b.name, err)
		return err
	}

	cfg, err := b.service.Lookup(ctx, b.name, code, redirectURI)
	if err != nil {
		logging.Error("Destination", err, "Lookup of %s failed", b.name)
		return err
	}

	token, err := bearerToken(cfg.AuthTokens)
	if err != nil {
		logging.Error("Destination", err, "Destination %s returned no usable token", b.name)
		return err
	}

	res = &resolution{
		origin: strings.TrimSuffix(cfg.DestinationConfiguration.URL, "/"),
		token:  token,
	}
	logging.Info("Destination", "Resolved %s to %s (token=%s) in %s",
		b.name, res.origin, oauth.NewRedactedToken(token), logging.Since(start))
	return nil
}

// bearerToken picks the first bearer entry. Without one, the first entry
// carrying an error is reported.
func bearerToken(tokens []AuthToken) (string, error) {
	for _, t := range tokens {
		if strings.EqualFold(t.Type, "bearer") && t.Value != "" {
			return t.Value, nil
		}
	}
	for _, t := range tokens {
		if t.Error != "" {
			return "", &oauth.TokenError{Message: t.Error}
		}
	}
	return "", oauth.ErrNoBearerToken
}

// State returns the derived state of the resolution.
func (b *Binding) State() oauth.State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return oauth.DeriveState(b.inflight, b.res != nil, b.lastErr)
}

// LastError returns the recorded failure, if any.
func (b *Binding) LastError() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastErr
}

// AuthorizationHeader returns the resolved bearer header.
func (b *Binding) AuthorizationHeader() (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.lastErr != nil {
		return "", &oauth.NotAuthorizedError{Cause: b.lastErr}
	}
	if b.res == nil {
		return "", &oauth.NotAuthorizedError{Cause: oauth.ErrNoAccessToken}
	}
	return "Bearer " + b.res.token, nil
}

// Endpoint returns the resolved origin.
func (b *Binding) Endpoint() (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.res == nil || b.res.origin == "" {
		return "", false
	}
	return b.res.origin, true
}

// SetAuthorizationCode stores a user's code for the next lookup.
func (b *Binding) SetAuthorizationCode(code string) {
	b.mu.Lock()
	b.code = code
	b.mu.Unlock()
}

// SetRedirectURI stores the redirect_uri sent with the next lookup.
func (b *Binding) SetRedirectURI(uri string) {
	b.mu.Lock()
	b.redirectURI = uri
	b.mu.Unlock()
}

// AuthorizeURL returns the authorize URL of the destination service's
// authorization server.
func (b *Binding) AuthorizeURL(redirectURI string) string {
	return b.service.AuthorizeURL(redirectURI)
}
