package clients

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

// Handler manages the client directory pages.
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

// MountRoutes registers directory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Protect(guard.Rule{RequireAuth: true, RequiredPermissions: []string{authz.PermClientsRead}}))
		r.Get("/", h.list)
		r.Get("/{id}", h.show)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Protect(guard.Rule{RequireAuth: true, RequiredPermissions: []string{authz.PermClientsWrite}}))
		r.Get("/new", h.showForm)
		r.Post("/", h.create)
		r.Post("/{id}", h.update)
		r.Post("/{id}/agent", h.assignAgent)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	actor := identity.PrincipalFromContext(r.Context())
	filters := ListFilters{Query: r.URL.Query().Get("q")}
	if page, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil {
		filters.Page = page
	}
	list, total, err := h.service.List(r.Context(), actor, filters)
	if err != nil {
		h.logger.Error("list clients", slog.Any("error", err))
		h.render(w, r, "pages/clients/list.html", map[string]any{
			"Filters": filters,
			"Errors":  map[string]string{"general": shared.UserSafeMessage(err)},
		}, http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/clients/list.html", map[string]any{
		"Clients":    list,
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
	c, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		h.logger.Error("show client", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/clients/detail.html", map[string]any{"Client": c}, http.StatusOK)
}

func (h *Handler) showForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "pages/clients/form.html", map[string]any{"Form": Input{}, "Errors": map[string]string{}}, http.StatusOK)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	input, ok := h.bindInput(w, r)
	if !ok {
		return
	}
	actor := identity.PrincipalFromContext(r.Context())
	c, err := h.service.Create(r.Context(), actor, input)
	if err != nil {
		h.renderFormError(w, r, input, err)
		return
	}
	h.redirectWithFlash(w, r, "/dashboard/clients/"+strconv.FormatInt(c.ID, 10), "success", "Client added.")
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	input, ok := h.bindInput(w, r)
	if !ok {
		return
	}
	if err := h.service.Update(r.Context(), id, input); err != nil {
		h.renderFormError(w, r, input, err)
		return
	}
	h.redirectWithFlash(w, r, "/dashboard/clients/"+chi.URLParam(r, "id"), "success", "Client updated.")
}

func (h *Handler) assignAgent(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	agentID, _ := strconv.ParseInt(r.PostFormValue("agent_id"), 10, 64)
	if err := h.service.AssignAgent(r.Context(), id, agentID); err != nil {
		h.redirectWithFlash(w, r, "/dashboard/clients/"+chi.URLParam(r, "id"), "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "/dashboard/clients/"+chi.URLParam(r, "id"), "success", "Agent updated.")
}

func (h *Handler) bindInput(w http.ResponseWriter, r *http.Request) (Input, bool) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return Input{}, false
	}
	return Input{
		Name:  r.PostFormValue("name"),
		Phone: r.PostFormValue("phone"),
		Email: r.PostFormValue("email"),
		City:  r.PostFormValue("city"),
		Notes: r.PostFormValue("notes"),
	}, true
}

func (h *Handler) renderFormError(w http.ResponseWriter, r *http.Request, input Input, err error) {
	errs := map[string]string{}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fieldErr := range verrs {
			errs[fieldErr.Field()] = fieldErr.Error()
		}
	} else {
		h.logger.Error("save client", slog.Any("error", err))
		errs["general"] = shared.UserSafeMessage(err)
	}
	h.render(w, r, "pages/clients/form.html", map[string]any{"Form": input, "Errors": errs}, http.StatusBadRequest)
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
		Title:       "Clients",
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
