package callback

import (
	"encoding/json"
	"net/http"
	"strconv"

	"tokenrelay/internal/routes"
	"tokenrelay/pkg/auth"
	"tokenrelay/pkg/logging"
)

// InvalidRouteMessage is returned when a code is submitted for an id that does
// not name a manual route.
const InvalidRouteMessage = "tried to authorize an invalid route"

// Handler serves the authorization code callback and the status listing.
type Handler struct {
	registry *routes.Registry
}

// NewHandler creates a callback handler over registry.
func NewHandler(registry *routes.Registry) *Handler {
	return &Handler{registry: registry}
}

// ServeHTTP dispatches on the query:
//
//	?id=<index>&code=<code>  submit an authorization code for a manual route
//	?fetch                   list all routes as JSON
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	setSecurityHeaders(w)

	query := r.URL.Query()
	switch {
	case query.Get("id") != "":
		h.handleCode(w, r, query.Get("id"), query.Get("code"))
	case query.Has("fetch"):
		h.handleFetch(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *Handler) handleCode(w http.ResponseWriter, r *http.Request, rawID, code string) {
	index, err := strconv.Atoi(rawID)
	route, ok := h.registry.Route(index)
	if err != nil || !ok || route.Skipped() || !route.Manual {
		logging.Warn("Callback", "Rejected authorization code for id %q", rawID)
		http.Error(w, InvalidRouteMessage, http.StatusInternalServerError)
		return
	}

	route.Source.SetAuthorizationCode(code)
	if err := route.Source.Authorize(r.Context()); err != nil {
		logging.Error("Callback", err, "Authorization of route %d (%s) failed", index, route.Path)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	logging.Info("Callback", "Route %d (%s) authorized with code", index, route.Path)
	http.Redirect(w, r, r.URL.Path, http.StatusMovedPermanently)
}

func (h *Handler) handleFetch(w http.ResponseWriter, r *http.Request) {
	referer := r.Referer()

	list := make([]auth.RouteStatus, 0)
	for _, route := range h.registry.Routes() {
		var redirectURI string
		if referer != "" {
			redirectURI = referer + "?id=" + strconv.Itoa(route.Index)
		}
		list = append(list, route.Status(redirectURI))
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(list); err != nil {
		logging.Error("Callback", err, "Failed to write status listing")
	}
}

// setSecurityHeaders sets headers that keep the callback out of frames and
// caches.
func setSecurityHeaders(w http.ResponseWriter) {
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("Content-Security-Policy", "default-src 'none'")
	w.Header().Set("Referrer-Policy", "no-referrer")
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
}
