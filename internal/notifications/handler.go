package notifications

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/atrium-realty/atrium/internal/guard"
	"github.com/atrium-realty/atrium/internal/identity"
	"github.com/atrium-realty/atrium/internal/shared"
	"github.com/atrium-realty/atrium/internal/view"
)

// Handler exposes a signed-in user's notification inbox.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
	guard     *guard.Guard
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager, g *guard.Guard) *Handler {
	return &Handler{logger: logger, service: service, templates: templates, csrf: csrf, guard: g}
}

// MountRoutes registers inbox routes. Any signed-in user can read their own
// inbox; no permission beyond authentication is required.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Protect(guard.Rule{RequireAuth: true}))
		r.Get("/", h.list)
		r.Post("/{id}/read", h.markRead)
		r.Post("/read-all", h.markAllRead)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	principal := identity.PrincipalFromContext(r.Context())
	filters := ListFilters{UnreadOnly: r.URL.Query().Get("unread") == "1"}
	if page, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil {
		filters.Page = page
	}
	list, total, err := h.service.ListForUser(r.Context(), principal.ID, filters)
	if err != nil {
		h.logger.Error("list notifications", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.render(w, r, map[string]any{
		"Notifications": list,
		"Filters":       filters,
		"Pagination":    shared.NewPagination(filters.Page, filters.PerPage, total),
	})
}

func (h *Handler) markRead(w http.ResponseWriter, r *http.Request) {
	principal := identity.PrincipalFromContext(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if err := h.service.MarkRead(r.Context(), principal.ID, id); err != nil {
		h.logger.Warn("mark notification read", slog.Any("error", err))
	}
	http.Redirect(w, r, "/notifications", http.StatusSeeOther)
}

func (h *Handler) markAllRead(w http.ResponseWriter, r *http.Request) {
	principal := identity.PrincipalFromContext(r.Context())
	if err := h.service.MarkAllRead(r.Context(), principal.ID); err != nil {
		h.logger.Warn("mark all notifications read", slog.Any("error", err))
	}
	http.Redirect(w, r, "/notifications", http.StatusSeeOther)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, data map[string]any) {
	sess := shared.SessionFromContext(r.Context())
	var csrfToken string
	if sess != nil {
		csrfToken, _ = h.csrf.EnsureToken(r.Context(), sess)
	}
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{
		Title:       "Notifications",
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Snapshot:    identity.ResolutionFromContext(r.Context()).Snapshot,
		Data:        data,
	}
	if err := h.templates.Render(w, "pages/notifications/list.html", viewData); err != nil {
		h.logger.Error("render template", slog.Any("error", err))
	}
}
