package server

import (
	"net/http"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// WebSocket live tail
	mux.HandleFunc("/ws/logs", s.app.WSHandler.HandleWebSocket)

	// API routes - Server event log
	mux.HandleFunc("/api/logs/server", s.handleServerLogsRoute)                    // GET (list), POST (ingest)
	mux.HandleFunc("/api/logs/server/dates", s.app.ServerLogsHandler.DatesHandler) // GET
	mux.HandleFunc("/api/logs/server/stats", s.app.ServerLogsHandler.StatsHandler) // GET

	// API routes - Audit trail
	mux.HandleFunc("/api/events", s.app.AuditHandler.EventsHandler)
	mux.HandleFunc("/api/events/dates", s.app.AuditHandler.DatesHandler)

	// API routes - Blog
	mux.HandleFunc("/api/blog/create", s.app.ContentHandler.CreatePostHandler)
	mux.HandleFunc("/api/blog/upload", s.app.ContentHandler.UploadPostHandler)
	mux.HandleFunc("/api/blog/", s.handleBlogRoutes) // GET /{slug}/html

	// API routes - Mind
	mux.HandleFunc("/api/mind/create", s.app.ContentHandler.CreateIdeaHandler)
	mux.HandleFunc("/api/mind/thought", s.app.ContentHandler.AddThoughtHandler)

	// API routes - Media
	mux.HandleFunc("/api/upload-image", s.app.ContentHandler.UploadImageHandler)

	// API routes - Webhooks
	mux.HandleFunc("/api/webhooks/giscus", s.app.WebhookHandler.GiscusHandler)

	// API routes - Identity
	mux.HandleFunc("/api/auth/me", s.app.AuthHandler.MeHandler)
	mux.HandleFunc("/api/auth/login", s.app.AuthHandler.LoginHandler)
	mux.HandleFunc("/api/auth/logout", s.app.AuthHandler.LogoutHandler)

	// API routes - System
	mux.HandleFunc("/api/system/logs/files", s.app.SystemLogsHandler.ListLogFilesHandler)
	mux.HandleFunc("/api/system/logs/content", s.app.SystemLogsHandler.GetLogContentHandler)
	mux.HandleFunc("/api/retention/prune", s.app.RetentionHandler.PruneHandler)
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.app.APIHandler.NotFoundHandler)

	return mux
}

// handleServerLogsRoute routes /api/logs/server by method
func (s *Server) handleServerLogsRoute(w http.ResponseWriter, r *http.Request) {
	RouteByMethod(w, r, MethodRouter{
		http.MethodGet:  s.app.ServerLogsHandler.ListHandler,
		http.MethodPost: s.app.ServerLogsHandler.IngestHandler,
	})
}

// handleBlogRoutes routes /api/blog/{slug}/... requests
func (s *Server) handleBlogRoutes(w http.ResponseWriter, r *http.Request) {
	if RouteBySlug(w, r, "/api/blog/", SlugRoutes{
		"/html": s.app.ContentHandler.PostHTMLHandler,
	}) {
		return
	}

	s.app.APIHandler.NotFoundHandler(w, r)
}
