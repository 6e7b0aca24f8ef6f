package httpserver

import (
	"net/http"

	"github.com/WilliamKTurner/openhab-addons/backend/services/hub/internal/http/handlers"
	"github.com/WilliamKTurner/openhab-addons/backend/services/hub/internal/http/middleware"
)

// RouterDeps collects handler dependencies.
type RouterDeps struct {
	AuthHandlers  *handlers.AuthHandlers
	ThingHandlers *handlers.ThingHandlers
	HealthHandler http.HandlerFunc
	Events        http.HandlerFunc
}

// NewRouter wires HTTP routes with middleware.
func NewRouter(deps RouterDeps, authMiddleware func(http.Handler) http.Handler) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/health", method(http.MethodGet, deps.HealthHandler))
	mux.Handle("/api/auth/login", method(http.MethodPost, http.HandlerFunc(deps.AuthHandlers.Login)))

	authenticated := func(handler http.HandlerFunc) http.Handler {
		return middleware.Chain(handler, authMiddleware)
	}

	mux.Handle("/api/auth/me", method(http.MethodGet, authenticated(deps.AuthHandlers.Me)))
	mux.Handle("/api/things", method(http.MethodGet, authenticated(deps.ThingHandlers.List)))
	mux.Handle("/api/channels", method(http.MethodGet, authenticated(deps.ThingHandlers.Channels)))
	mux.Handle("/api/commands", method(http.MethodPost, authenticated(deps.ThingHandlers.Command)))
	mux.Handle("/api/inbox", method(http.MethodGet, authenticated(deps.ThingHandlers.Inbox)))
	mux.Handle("/api/discovery/scan", method(http.MethodPost, authenticated(deps.ThingHandlers.Scan)))
	if deps.Events != nil {
		mux.Handle("/api/events", method(http.MethodGet, authenticated(deps.Events)))
	}

	return mux
}

func method(expected string, handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != expected {
			w.Header().Set("Allow", expected)
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
