package handlers

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/bobmcallan/webtools-portal/internal/common"
)

// SeedRefresher re-runs the first-paint prefetch.
type SeedRefresher interface {
	Refresh(ctx context.Context) error
}

// CacheResetter drops every cached page.
type CacheResetter interface {
	Len() int
	Reset()
}

// AdminHandler serves operator actions. Every request must carry
// "Authorization: Bearer <token>"; with no token configured all are refused.
type AdminHandler struct {
	logger *common.Logger
	seeds  SeedRefresher
	cache  CacheResetter
	token  string
}

// NewAdminHandler creates an admin handler.
func NewAdminHandler(logger *common.Logger, seeds SeedRefresher, cache CacheResetter, token string) *AdminHandler {
	return &AdminHandler{logger: logger, seeds: seeds, cache: cache, token: token}
}

// authorized reports whether r carries the configured admin token.
func (h *AdminHandler) authorized(r *http.Request) bool {
	if h.token == "" {
		return false
	}
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return false
	}
	given := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	return subtle.ConstantTimeCompare([]byte(given), []byte(h.token)) == 1
}

// HandleRefresh handles POST /api/admin/refresh: drop the page cache and re-seed.
func (h *AdminHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	if !h.authorized(r) {
		h.logger.Warn().Str("remote_addr", r.RemoteAddr).Msg("admin: refresh refused, missing or wrong token")
		WriteError(w, http.StatusForbidden, "admin token required")
		return
	}

	dropped := h.cache.Len()
	h.cache.Reset()

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	if err := h.seeds.Refresh(ctx); err != nil {
		h.logger.Warn().Str("error", err.Error()).Msg("admin: seed refresh failed")
		WriteError(w, http.StatusBadGateway, err.Error())
		return
	}

	h.logger.Info().Int("dropped", dropped).Msg("admin: seed refreshed and page cache reset")
	WriteJSON(w, http.StatusOK, map[string]interface{}{"status": "ok", "dropped": dropped})
}
