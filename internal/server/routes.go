package server

import "net/http"

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// Listing page and its form actions
	mux.HandleFunc("/", s.app.ListingHandler.ServePage)
	mux.HandleFunc("/listing/tag", s.app.ListingHandler.HandleSelectTag)
	mux.HandleFunc("/listing/more", s.app.ListingHandler.HandleLoadMore)
	mux.HandleFunc("/listing/retry", s.app.ListingHandler.HandleRetry)
	mux.HandleFunc("/listing/reload", s.app.ListingHandler.HandleReload)
	mux.HandleFunc("/listing/forget", s.app.ListingHandler.HandleForget)

	// Static files (CSS, JS, images)
	mux.HandleFunc("/static/", s.app.PageHandler.StaticFileHandler)

	// MCP endpoint (JSON-RPC over HTTP)
	if s.app.MCPHandler != nil {
		mux.Handle("/mcp", s.app.MCPHandler)
	}

	// Prometheus
	mux.Handle("/metrics", s.app.Metrics.Handler())

	// API routes
	mux.HandleFunc("/api/listing", s.app.ListingHandler.HandleSnapshot)
	mux.HandleFunc("/api/listing/stream", s.app.ListingHandler.HandleStream)
	mux.HandleFunc("/api/tags", s.app.ListingHandler.HandleTags)
	mux.HandleFunc("/api/admin/refresh", s.app.AdminHandler.HandleRefresh)
	mux.HandleFunc("/api/health", s.app.HealthHandler.ServeHTTP)
	mux.HandleFunc("/api/version", s.app.VersionHandler.ServeHTTP)
	mux.HandleFunc("/api/server-health", s.app.ServerHealthHandler.ServeHTTP)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.handleNotFound)

	return mux
}

// handleNotFound returns a JSON 404 for unmatched API routes.
func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	w.Write([]byte(`{"error":"Not Found","message":"The requested endpoint does not exist"}`))
}
