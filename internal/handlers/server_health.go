package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/bobmcallan/webtools-portal/internal/client"
	"github.com/bobmcallan/webtools-portal/internal/common"
)

// TagsChecker is the upstream call used to check the tools API is alive.
type TagsChecker interface {
	FetchTags(ctx context.Context) ([]string, error)
}

// ServerHealthHandler reports whether the upstream tools API answers.
type ServerHealthHandler struct {
	logger *common.Logger
	checker TagsChecker
}

// NewServerHealthHandler creates a new server health handler.
func NewServerHealthHandler(logger *common.Logger, checker TagsChecker) *ServerHealthHandler {
	return &ServerHealthHandler{logger: logger, checker: checker}
}

// ServeHTTP handles GET /api/server-health.
func (h *ServerHealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if _, err := h.checker.FetchTags(ctx); err != nil {
		if h.logger != nil {
			h.logger.Warn().Str("error", err.Error()).Msg("tools API health check failed")
		}
		WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "down",
			"kind":   client.ErrorKind(err),
		})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
