package destination

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tokenrelay/internal/catalog"
	"tokenrelay/internal/oauth"
)

// stubDestinationService serves both the token endpoint and the lookup API.
type stubDestinationService struct {
	tokenStatus  int
	lookupStatus atomic.Int32
	lookupBody   string

	lookups   atomic.Int32
	mu        sync.Mutex
	lastAuth  string
	lastCode  string
	lastPath  string
	holdToken chan struct{}
}

func (s *stubDestinationService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/oauth/token":
		if s.holdToken != nil {
			<-s.holdToken
		}
		if s.tokenStatus != 0 && s.tokenStatus != http.StatusOK {
			http.Error(w, "denied", s.tokenStatus)
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"service-token"}`))
	default:
		s.lookups.Add(1)
		s.mu.Lock()
		s.lastAuth = r.Header.Get("Authorization")
		s.lastCode = r.Header.Get(HeaderCode)
		s.lastPath = r.URL.EscapedPath()
		s.mu.Unlock()
		if status := int(s.lookupStatus.Load()); status != 0 && status != http.StatusOK {
			http.Error(w, "no such destination", status)
			return
		}
		_, _ = w.Write([]byte(s.lookupBody))
	}
}

func (s *stubDestinationService) last() (auth, code, path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAuth, s.lastCode, s.lastPath
}

func newTestService(t *testing.T, stub *stubDestinationService) *Service {
	t.Helper()
	server := httptest.NewServer(stub)
	t.Cleanup(server.Close)

	c := catalog.New([]catalog.Record{{
		Label: Label,
		Credentials: catalog.Credentials{
			ClientID:     "dest-client",
			ClientSecret: "dest-secret",
			URL:          server.URL,
			URI:          server.URL + "/",
		},
	}})

	svc, err := NewService(ServiceConfig{Catalog: c, Timeout: 2 * time.Second})
	require.NoError(t, err)
	return svc
}

const bearerResponse = `{
  "destinationConfiguration": {"Name": "BACKEND", "URL": "https://backend.example/"},
  "authTokens": [{"type": "basic", "value": "nope"}, {"type": "Bearer", "value": "ghi"}]
}`

func TestNewService_NotBound(t *testing.T) {
	_, err := NewService(ServiceConfig{Catalog: catalog.New(nil)})
	assert.ErrorIs(t, err, oauth.ErrConfiguration)

	_, err = NewService(ServiceConfig{Catalog: catalog.New([]catalog.Record{{Label: Label}})})
	var cfgErr *oauth.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "destination.uri", cfgErr.Field)
}

func TestBinding_Resolve(t *testing.T) {
	stub := &stubDestinationService{lookupBody: bearerResponse}
	svc := newTestService(t, stub)
	svc.Start(context.Background())

	b := NewBinding(svc, "MY DEST")
	_, ok := b.Endpoint()
	assert.False(t, ok, "no endpoint before the first lookup")
	_, err := b.AuthorizationHeader()
	assert.ErrorIs(t, err, oauth.ErrNoAccessToken)

	require.NoError(t, b.Authorize(context.Background()))

	auth, _, path := stub.last()
	assert.Equal(t, "Bearer service-token", auth, "lookup uses the shared broker's token")
	assert.Equal(t, "/destination-configuration/v1/destinations/MY%20DEST", path)

	origin, ok := b.Endpoint()
	require.True(t, ok)
	assert.Equal(t, "https://backend.example", origin)

	header, err := b.AuthorizationHeader()
	require.NoError(t, err)
	assert.Equal(t, "Bearer ghi", header, "backend token comes from the lookup, not the shared broker")
	assert.Equal(t, oauth.StateSuccess, b.State())
}

func TestBinding_WaitsForInitialAuthorization(t *testing.T) {
	stub := &stubDestinationService{lookupBody: bearerResponse, holdToken: make(chan struct{})}
	svc := newTestService(t, stub)
	svc.Start(context.Background())

	done := make(chan error, 1)
	go func() { done <- NewBinding(svc, "BACKEND").Authorize(context.Background()) }()

	select {
	case err := <-done:
		t.Fatalf("resolve finished before the shared broker: %v", err)
	case <-time.After(50 * time.Millisecond):
	}
	assert.EqualValues(t, 0, stub.lookups.Load())

	close(stub.holdToken)
	require.NoError(t, <-done)
	assert.EqualValues(t, 1, stub.lookups.Load())
}

func TestBinding_SharedBrokerFailure(t *testing.T) {
	stub := &stubDestinationService{tokenStatus: http.StatusUnauthorized, lookupBody: bearerResponse}
	svc := newTestService(t, stub)
	svc.Start(context.Background())

	b := NewBinding(svc, "BACKEND")
	err := b.Authorize(context.Background())

	var authErr *oauth.AuthorizationError
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, http.StatusUnauthorized, authErr.StatusCode)
	assert.EqualValues(t, 0, stub.lookups.Load(), "no lookup without a service token")
	assert.Equal(t, oauth.StateError, b.State())
}

func TestBinding_LookupFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "non-200",
			status: http.StatusNotFound,
			check: func(t *testing.T, err error) {
				var authErr *oauth.AuthorizationError
				require.True(t, errors.As(err, &authErr))
				assert.Equal(t, http.StatusNotFound, authErr.StatusCode)
				assert.Contains(t, err.Error(), "destination service failure: HTTP 404")
			},
		},
		{
			name: "token error entry",
			body: `{"destinationConfiguration":{"URL":"https://b"},"authTokens":[{"type":"","error":"user consent required"}]}`,
			check: func(t *testing.T, err error) {
				var tokErr *oauth.TokenError
				require.True(t, errors.As(err, &tokErr))
				assert.Equal(t, "user consent required", tokErr.Message)
			},
		},
		{
			name: "no bearer",
			body: `{"destinationConfiguration":{"URL":"https://b"},"authTokens":[]}`,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, oauth.ErrNoBearerToken)
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			stub := &stubDestinationService{lookupBody: tc.body}
			stub.lookupStatus.Store(int32(tc.status))
			svc := newTestService(t, stub)
			svc.Start(context.Background())

			b := NewBinding(svc, "BACKEND")
			err := b.Authorize(context.Background())
			require.Error(t, err)
			tc.check(t, err)

			_, ok := b.Endpoint()
			assert.False(t, ok)
			assert.Equal(t, oauth.StateError, b.State())
			assert.Equal(t, err, b.LastError())
		})
	}
}

func TestBinding_FailureClearsPreviousResolution(t *testing.T) {
	stub := &stubDestinationService{lookupBody: bearerResponse}
	svc := newTestService(t, stub)
	svc.Start(context.Background())

	b := NewBinding(svc, "BACKEND")
	require.NoError(t, b.Authorize(context.Background()))

	stub.lookupStatus.Store(http.StatusInternalServerError)
	require.Error(t, b.Authorize(context.Background()))

	_, ok := b.Endpoint()
	assert.False(t, ok)
	_, err := b.AuthorizationHeader()
	var notAuth *oauth.NotAuthorizedError
	assert.True(t, errors.As(err, &notAuth))
}

func TestBinding_AuthorizationCodeExtension(t *testing.T) {
	stub := &stubDestinationService{lookupBody: bearerResponse}
	svc := newTestService(t, stub)
	svc.Start(context.Background())

	b := NewBinding(svc, "BACKEND")
	b.SetAuthorizationCode("XYZ")
	b.SetRedirectURI("https://app.example/oauth/code?id=1")
	require.NoError(t, b.Authorize(context.Background()))

	_, code, _ := stub.last()
	assert.Equal(t, "XYZ", code)

	u := b.AuthorizeURL("https://app.example/oauth/code?id=1")
	assert.Contains(t, u, "/oauth/authorize?response_type=code&client_id=dest-client&redirect_uri=")
}

func TestBearerToken(t *testing.T) {
	token, err := bearerToken([]AuthToken{{Type: "bearer", Value: "a"}, {Type: "bearer", Value: "b"}})
	require.NoError(t, err)
	assert.Equal(t, "a", token, "first bearer wins")

	_, err = bearerToken(nil)
	assert.ErrorIs(t, err, oauth.ErrNoBearerToken)
}
