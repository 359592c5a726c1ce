package proxy

import (
	"bufio"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tokenrelay/internal/catalog"
	"tokenrelay/internal/config"
	"tokenrelay/internal/routes"
)

func TestRewriteURLPath(t *testing.T) {
	tests := []struct {
		name        string
		path        string
		prefix      string
		replacement string
		want        string
	}{
		{"replace prefix", "/api/orders", "/api", "/v2", "/v2/orders"},
		{"default keeps prefix", "/api/orders", "/api", "", "/api/orders"},
		{"exact match", "/api", "/api", "/v2", "/v2"},
		{"only leading occurrence", "/api/api", "/api", "/x", "/x/api"},
		{"no match", "/other", "/api", "/v2", "/other"},
		{"encoded prefix", "/%61pi/orders", "/api", "/v2", "/v2/orders"},
		{"prefix needing escape", "/my%20api/orders", "/my api", "/v2", "/v2/orders"},
		{"replacement needing escape", "/api/orders", "/api", "/new api", "/new%20api/orders"},
		{"remainder escaping kept", "/api/a%2Fb", "/api", "/v2", "/v2/a%2Fb"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			u, err := url.Parse(tc.path)
			require.NoError(t, err)
			assert.Equal(t, tc.want, RewriteURLPath(u, tc.prefix, tc.replacement))
		})
	}
}

func TestTargetURL(t *testing.T) {
	u, err := TargetURL("https://backend.example/", "/v2/orders", "x=1&y=a%20b")
	require.NoError(t, err)
	assert.Equal(t, "https://backend.example/v2/orders?x=1&y=a%20b", u.String())

	u, err = TargetURL("https://backend.example", "/v2", "")
	require.NoError(t, err)
	assert.Equal(t, "https://backend.example/v2", u.String())
}

type upstreamRecord struct {
	method string
	uri    string
	host   string
	auth   string
	custom string
	body   string
}

func newUpstream(t *testing.T) (*httptest.Server, chan upstreamRecord) {
	t.Helper()
	got := make(chan upstreamRecord, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got <- upstreamRecord{
			method: r.Method,
			uri:    r.RequestURI,
			host:   r.Host,
			auth:   r.Header.Get("Authorization"),
			custom: r.Header.Get("X-Custom"),
			body:   string(body),
		}
		w.Header().Set("X-Upstream", "yes")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("upstream says hi"))
	}))
	t.Cleanup(server.Close)
	return server, got
}

func newRegistry(t *testing.T, tokenStatus int, endpoints map[string]string, rcs ...config.RouteConfig) *routes.Registry {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if tokenStatus != http.StatusOK {
			http.Error(w, "invalid client", tokenStatus)
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"abc"}`))
	}))
	t.Cleanup(ts.Close)

	cat := catalog.New([]catalog.Record{{
		Label: "xsuaa",
		Credentials: catalog.Credentials{
			CloudService: "orders",
			Endpoints:    endpoints,
			UAA:          &catalog.Credentials{ClientID: "c", ClientSecret: "s", URL: ts.URL},
		},
	}})
	reg := routes.NewRegistry(rcs, cat, routes.Options{TokenTimeout: 2 * time.Second})
	reg.Start(context.Background())
	reg.Wait()
	return reg
}

func notFound() http.Handler { return http.NotFoundHandler() }

func TestDispatcher_Forwards(t *testing.T) {
	upstream, records := newUpstream(t)

	reg := newRegistry(t, http.StatusOK, map[string]string{"main": upstream.URL + "/"},
		config.RouteConfig{Path: "/api", PathPrefix: "/v2", Service: "orders", Endpoint: "main"})

	h := NewDispatcher(reg, Options{}).Handler(notFound())

	req := httptest.NewRequest(http.MethodPost, "http://relay.local/api/orders?x=1", strings.NewReader("payload"))
	req.Header.Set("X-Custom", "kept")
	req.Header.Set("Authorization", "Bearer caller")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "upstream says hi", rr.Body.String())
	assert.Equal(t, "yes", rr.Header().Get("X-Upstream"))

	got := <-records

	assert.Equal(t, http.MethodPost, got.method)
	assert.Equal(t, "/v2/orders?x=1", got.uri)
	assert.Equal(t, "Bearer abc", got.auth, "inbound Authorization is overwritten")
	assert.Equal(t, "kept", got.custom)
	assert.Equal(t, "payload", got.body)
	assert.Equal(t, strings.TrimPrefix(upstream.URL, "http://"), got.host, "Host is the target's")
}

func TestDispatcher_RewritesEncodedPrefix(t *testing.T) {
	tests := []struct {
		name      string
		routePath string
		target    string
	}{
		{"encoded request prefix", "/api", "/%61pi/orders?x=1"},
		{"route prefix needing escape", "/my api", "/my%20api/orders?x=1"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			upstream, records := newUpstream(t)
			reg := newRegistry(t, http.StatusOK, map[string]string{"main": upstream.URL},
				config.RouteConfig{Path: tc.routePath, PathPrefix: "/v2", Service: "orders", Endpoint: "main"})
			h := NewDispatcher(reg, Options{}).Handler(notFound())

			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, tc.target, nil))

			require.Equal(t, http.StatusCreated, rr.Code)
			got := <-records
			assert.Equal(t, "/v2/orders?x=1", got.uri)
			assert.Equal(t, "Bearer abc", got.auth)
		})
	}
}

func TestDispatcher_StreamsResponse(t *testing.T) {
	release := make(chan struct{})
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("first\n"))
		w.(http.Flusher).Flush()
		select {
		case <-release:
		case <-r.Context().Done():
			return
		}
		_, _ = w.Write([]byte("second\n"))
	}))
	t.Cleanup(upstream.Close)

	reg := newRegistry(t, http.StatusOK, map[string]string{"main": upstream.URL},
		config.RouteConfig{Path: "/api", Service: "orders", Endpoint: "main"})
	front := httptest.NewServer(NewDispatcher(reg, Options{}).Handler(notFound()))
	t.Cleanup(front.Close)

	resp, err := http.Get(front.URL + "/api/stream")
	require.NoError(t, err)
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	lines := make(chan string, 1)
	go func() {
		line, _ := reader.ReadString('\n')
		lines <- line
	}()

	select {
	case line := <-lines:
		assert.Equal(t, "first\n", line, "first chunk arrives while upstream is still writing")
	case <-time.After(2 * time.Second):
		close(release)
		t.Fatal("first chunk was not streamed before the upstream finished")
	}

	close(release)
	rest, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, "second\n", string(rest))
}

func TestDispatcher_Unmatched(t *testing.T) {
	reg := newRegistry(t, http.StatusOK, nil)
	h := NewDispatcher(reg, Options{}).Handler(notFound())

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/nothing", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestDispatcher_MissingEndpoint(t *testing.T) {
	reg := newRegistry(t, http.StatusOK, map[string]string{},
		config.RouteConfig{Path: "/api", Service: "orders", Endpoint: "main"})
	h := NewDispatcher(reg, Options{}).Handler(notFound())

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/x", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, rr.Body.String(), "endpoint main for service orders is not present")
}

func TestDispatcher_NotAuthorized(t *testing.T) {
	upstream, records := newUpstream(t)

	reg := newRegistry(t, http.StatusUnauthorized, map[string]string{"main": upstream.URL},
		config.RouteConfig{Path: "/api", Service: "orders", Endpoint: "main"})
	h := NewDispatcher(reg, Options{}).Handler(notFound())

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/x", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, rr.Body.String(), "authorization failure: HTTP 401")
	assert.Empty(t, records, "upstream must not be reached")
}

func TestDispatcher_UpstreamUnreachable(t *testing.T) {
	dead := httptest.NewServer(http.NotFoundHandler())
	deadURL := dead.URL
	dead.Close()

	reg := newRegistry(t, http.StatusOK, map[string]string{"main": deadURL},
		config.RouteConfig{Path: "/api", Service: "orders", Endpoint: "main"})
	h := NewDispatcher(reg, Options{}).Handler(notFound())

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/x", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, rr.Body.String(), "upstream request")
}

func TestDispatcher_UpstreamTimeout(t *testing.T) {
	release := make(chan struct{})
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer slow.Close()
	defer close(release)

	reg := newRegistry(t, http.StatusOK, map[string]string{"main": slow.URL},
		config.RouteConfig{Path: "/api", Service: "orders", Endpoint: "main"})
	h := NewDispatcher(reg, Options{UpstreamTimeout: 50 * time.Millisecond}).Handler(notFound())

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/x", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, rr.Body.String(), "timed out")
}
