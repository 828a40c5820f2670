package handlers

import (
	"net/http"
	"time"

	"github.com/bobmcallan/webtools-portal/internal/common"
	"github.com/bobmcallan/webtools-portal/internal/models"
)

// SeedState exposes the current first-paint seed.
type SeedState interface {
	Current() models.Seed
}

// HealthHandler reports liveness and whether the listing has a seed.
// The portal stays healthy without one; it then renders an empty listing.
type HealthHandler struct {
	logger *common.Logger
	seeds  SeedState
}

// NewHealthHandler creates a health handler. seeds may be nil.
func NewHealthHandler(logger *common.Logger, seeds SeedState) *HealthHandler {
	return &HealthHandler{logger: logger, seeds: seeds}
}

// ServeHTTP handles GET /api/health.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	body := map[string]interface{}{
		"status": "ok",
		"seeded": false,
	}
	if h.seeds != nil {
		if seed := h.seeds.Current(); !seed.IsZero() {
			body["seeded"] = true
			body["seed_tags"] = len(seed.Tags)
			body["seed_fetched_at"] = seed.FetchedAt.UTC().Format(time.RFC3339)
		}
	}

	WriteJSON(w, http.StatusOK, body)
}
