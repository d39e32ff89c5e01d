package server

import (
	"net/http"
	"strings"

	"github.com/ternarybob/folio/internal/handlers"
)

// RouteHandler is a function type for HTTP handlers
type RouteHandler func(http.ResponseWriter, *http.Request)

// MethodRouter maps HTTP methods to handlers
type MethodRouter map[string]RouteHandler

// RouteByMethod dispatches on r.Method, answering 405 JSON for anything unmapped
func RouteByMethod(w http.ResponseWriter, r *http.Request, routes MethodRouter) {
	handler, ok := routes[r.Method]
	if !ok {
		handlers.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	handler(w, r)
}

// SlugRoutes maps the path suffix after a slug (e.g. "/html") to its handler
type SlugRoutes map[string]RouteHandler

// RouteBySlug handles paths shaped <prefix><slug><suffix>. The slug must be a
// single non-empty segment and is handed over as r.PathValue("slug").
// Returns false when nothing matched.
func RouteBySlug(w http.ResponseWriter, r *http.Request, prefix string, routes SlugRoutes) bool {
	rest, ok := strings.CutPrefix(r.URL.Path, prefix)
	if !ok {
		return false
	}

	for suffix, handler := range routes {
		slug, found := strings.CutSuffix(rest, suffix)
		if !found || slug == "" || strings.Contains(slug, "/") {
			continue
		}
		r.SetPathValue("slug", slug)
		handler(w, r)
		return true
	}
	return false
}
