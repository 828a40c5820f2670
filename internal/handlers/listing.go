package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/bobmcallan/webtools-portal/internal/common"
	"github.com/bobmcallan/webtools-portal/internal/listing"
	"github.com/bobmcallan/webtools-portal/internal/models"
	"github.com/bobmcallan/webtools-portal/internal/session"
)

const descriptionLength = 160

// SeedSource provides the prefetched tag list.
type SeedSource interface {
	Tags() []string
}

// Card is the presentational form of one tool.
type Card struct {
	Slug        string
	Name        string
	Description string
	URL         string
	Host        string
	Date        string
	Tags        []string
}

// NewCard maps a tool to its card.
func NewCard(t models.Tool) Card {
	return Card{
		Slug:        t.Slug,
		Name:        t.Name,
		Description: common.Truncate(t.Description, descriptionLength),
		URL:         t.URL,
		Host:        common.Hostname(t.URL),
		Date:        common.FormatDate(t.CreatedAt),
		Tags:        t.Tags,
	}
}

// ListingHandler serves the tools listing and its state transitions.
// Each visitor drives its own controller, found through the session cookie.
type ListingHandler struct {
	logger       *common.Logger
	pages        *PageHandler
	sessions     *session.Registry
	seeds        SeedSource
	allLabel     string
	secureCookie bool
}

// NewListingHandler creates a listing handler. pages may be nil when only
// the JSON endpoints are served.
func NewListingHandler(logger *common.Logger, pages *PageHandler, sessions *session.Registry, seeds SeedSource, allLabel string, secureCookie bool) *ListingHandler {
	if allLabel == "" {
		allLabel = models.AllTag
	}
	return &ListingHandler{
		logger:       logger,
		pages:        pages,
		sessions:     sessions,
		seeds:        seeds,
		allLabel:     allLabel,
		secureCookie: secureCookie,
	}
}

// session returns the visitor's session, issuing a cookie for a new one.
func (h *ListingHandler) session(w http.ResponseWriter, r *http.Request) *session.Session {
	var id string
	if cookie, err := r.Cookie(session.CookieName); err == nil {
		id = cookie.Value
	}
	sess, created := h.sessions.Get(id)
	if created {
		http.SetCookie(w, h.sessionCookie(sess.ID))
	}
	return sess
}

func (h *ListingHandler) sessionCookie(id string) *http.Cookie {
	return &http.Cookie{
		Name:     session.CookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	}
}

// transitionContext detaches a transition from the request so a visitor
// navigating away does not leave a canceled fetch as the recorded error.
func transitionContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(r.Context()), time.Minute)
}

// apply runs one transition and logs the outcomes that are not page errors.
func (h *ListingHandler) apply(r *http.Request, op string, fn func(ctx context.Context) error) error {
	ctx, cancel := transitionContext(r)
	defer cancel()

	err := fn(ctx)
	switch {
	case err == nil:
	case errors.Is(err, listing.ErrStale), errors.Is(err, listing.ErrBusy), errors.Is(err, listing.ErrNoMorePages), errors.Is(err, listing.ErrNothingToRetry):
		h.logger.Debug().Str("operation", op).Str("reason", err.Error()).Msg("listing transition skipped")
	default:
		h.logger.Warn().Str("operation", op).Str("error", err.Error()).Msg("listing transition failed")
	}
	return err
}

// ServePage handles GET /. A tag query parameter selects that tag first.
func (h *ListingHandler) ServePage(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	sess := h.session(w, r)
	if tag := strings.TrimSpace(r.URL.Query().Get("tag")); tag != "" {
		h.apply(r, listing.OpSelectTag, func(ctx context.Context) error {
			return sess.Controller.SelectTag(ctx, tag)
		})
	}

	h.pages.Render(w, "listing.html", h.pageData(r, sess.Controller.Snapshot()))
}

func (h *ListingHandler) pageData(r *http.Request, snap listing.Snapshot) map[string]interface{} {
	tools := snap.Tools()
	cards := make([]Card, len(tools))
	for i, t := range tools {
		cards[i] = NewCard(t)
	}

	tags := append([]string{h.allLabel}, h.seeds.Tags()...)

	return map[string]interface{}{
		"Page":     "listing",
		"Title":    common.Capitalize(snap.Tag) + " Tools",
		"Selected": snap.Tag,
		"Tags":     tags,
		"Cards":    cards,
		"HasMore":  snap.HasMore,
		"Loading":  snap.Loading(),
		"Error":    snap.Error,
		"CanRetry": snap.CanRetry,
		"CSRF":     CSRFToken(r.Context()),
	}
}

// HandleSelectTag handles POST /listing/tag with form field tag.
func (h *ListingHandler) HandleSelectTag(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	tag := strings.TrimSpace(r.FormValue("tag"))
	sess := h.session(w, r)
	h.apply(r, listing.OpSelectTag, func(ctx context.Context) error {
		return sess.Controller.SelectTag(ctx, tag)
	})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleLoadMore handles POST /listing/more.
func (h *ListingHandler) HandleLoadMore(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	sess := h.session(w, r)
	h.apply(r, listing.OpLoadMore, sess.Controller.LoadMore)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleRetry handles POST /listing/retry.
func (h *ListingHandler) HandleRetry(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	sess := h.session(w, r)
	h.apply(r, "retry", sess.Controller.Retry)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleReload handles POST /listing/reload.
func (h *ListingHandler) HandleReload(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	sess := h.session(w, r)
	h.apply(r, listing.OpReload, sess.Controller.Reload)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleForget handles POST /listing/forget: end the visitor's session and
// expire its cookie. The next request starts from the seed again.
func (h *ListingHandler) HandleForget(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	if cookie, err := r.Cookie(session.CookieName); err == nil {
		if sess, ok := h.sessions.Lookup(cookie.Value); ok {
			h.sessions.Delete(sess.ID)
			h.logger.Debug().
				Str("tag", sess.Controller.Tag()).
				Int64("age_seconds", int64(time.Since(sess.CreatedAt).Seconds())).
				Msg("session forgotten")
		}
	}

	expired := h.sessionCookie("")
	expired.MaxAge = -1
	http.SetCookie(w, expired)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleSnapshot handles GET /api/listing. A tag query parameter selects
// that tag first; more=1 loads the next page.
func (h *ListingHandler) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	sess := h.session(w, r)
	q := r.URL.Query()

	if tag := strings.TrimSpace(q.Get("tag")); tag != "" {
		h.apply(r, listing.OpSelectTag, func(ctx context.Context) error {
			return sess.Controller.SelectTag(ctx, tag)
		})
	}
	if q.Get("more") == "1" {
		if err := h.apply(r, listing.OpLoadMore, sess.Controller.LoadMore); errors.Is(err, listing.ErrNoMorePages) {
			WriteError(w, http.StatusConflict, err.Error())
			return
		}
	}

	WriteJSON(w, http.StatusOK, sess.Controller.Snapshot())
}

// HandleTags handles GET /api/tags.
func (h *ListingHandler) HandleTags(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	tags := h.seeds.Tags()
	if tags == nil {
		tags = []string{}
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"all":  h.allLabel,
		"tags": tags,
	})
}
