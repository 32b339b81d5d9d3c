package contact

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/atrium-realty/atrium/internal/authz"
	"github.com/atrium-realty/atrium/internal/guard"
	"github.com/atrium-realty/atrium/internal/identity"
	"github.com/atrium-realty/atrium/internal/shared"
	"github.com/atrium-realty/atrium/internal/view"
)

// Handler wires the public contact form and the staff inbox.
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

// MountPublicRoutes registers the visitor-facing form.
func (h *Handler) MountPublicRoutes(r chi.Router) {
	r.Get("/", h.showForm)
	r.Post("/", h.submit)
}

// MountStaffRoutes registers the back-office inbox.
func (h *Handler) MountStaffRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		// Contact messages are handled by the same staff that work requests.
		r.Use(h.guard.Protect(guard.Rule{RequireAuth: true, RequiredPermissions: []string{authz.PermRequestsRead}}))
		r.Get("/", h.list)
		r.Get("/{id}", h.show)
		r.Post("/{id}/handled", h.markHandled)
	})
}

func (h *Handler) showForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "pages/contact/form.html", map[string]any{"Form": Input{}, "Errors": map[string]string{}}, http.StatusOK)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	input := Input{
		Name:    r.PostFormValue("name"),
		Phone:   r.PostFormValue("phone"),
		Email:   r.PostFormValue("email"),
		Subject: r.PostFormValue("subject"),
		Body:    r.PostFormValue("body"),
	}
	if _, err := h.service.Submit(r.Context(), input); err != nil {
		errs := map[string]string{}
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fieldErr := range verrs {
				errs[fieldErr.Field()] = fieldErr.Error()
			}
		} else {
			h.logger.Error("submit contact message", slog.Any("error", err))
			errs["general"] = shared.UserSafeMessage(err)
		}
		h.render(w, r, "pages/contact/form.html", map[string]any{"Form": input, "Errors": errs}, http.StatusBadRequest)
		return
	}
	h.redirectWithFlash(w, r, "/contact", "success", "Thanks for reaching out. We will get back to you soon.")
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filters := ListFilters{UnhandledOnly: r.URL.Query().Get("unhandled") == "1"}
	if page, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil {
		filters.Page = page
	}
	list, total, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.logger.Error("list contact messages", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/contact/list.html", map[string]any{
		"Messages":   list,
		"Filters":    filters,
		"Pagination": shared.NewPagination(filters.Page, filters.PerPage, total),
	}, http.StatusOK)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	m, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		h.logger.Error("show contact message", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/contact/detail.html", map[string]any{"Message": m}, http.StatusOK)
}

func (h *Handler) markHandled(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	var staffID int64
	if p := identity.PrincipalFromContext(r.Context()); p != nil {
		staffID = p.ID
	}
	if err := h.service.MarkHandled(r.Context(), id, staffID); err != nil {
		h.redirectWithFlash(w, r, "/dashboard/contact", "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "/dashboard/contact", "success", "Message marked as handled.")
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, template string, data map[string]any, status int) {
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
		Title:       "Contact",
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Snapshot:    identity.ResolutionFromContext(r.Context()).Snapshot,
		Data:        data,
	}
	w.WriteHeader(status)
	if err := h.templates.Render(w, template, viewData); err != nil {
		h.logger.Error("render template", slog.Any("error", err))
	}
}

func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, location, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}
