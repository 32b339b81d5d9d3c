package users

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/atrium-realty/atrium/internal/authz"
	"github.com/atrium-realty/atrium/internal/guard"
	"github.com/atrium-realty/atrium/internal/identity"
	"github.com/atrium-realty/atrium/internal/shared"
	"github.com/atrium-realty/atrium/internal/view"
)

// Handler manages staff directory endpoints.
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
		r.Use(h.guard.Protect(guard.Rule{RequireAuth: true, RequiredPermissions: []string{authz.PermUsersRead}}))
		r.Get("/", h.listUsers)
		r.Get("/{id}", h.showUser)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Protect(guard.Rule{RequireAuth: true, RequiredPermissions: []string{authz.PermUsersWrite}}))
		r.Post("/{id}/role", h.changeRole)
		r.Post("/{id}/active", h.setActive)
		r.Post("/{id}/overrides", h.setOverrides)
	})
}

type formErrors map[string]string

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	filters := ListFilters{
		Query: r.URL.Query().Get("q"),
		Role:  authz.Role(r.URL.Query().Get("role")),
	}
	if page, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil {
		filters.Page = page
	}
	list, total, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.logger.Error("list users failed", slog.Any("error", err))
		h.render(w, r, "pages/users/list.html", map[string]any{"Errors": formErrors{"general": shared.UserSafeMessage(err)}}, http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/users/list.html", map[string]any{
		"Users":      list,
		"Roles":      authz.All(),
		"Pagination": shared.NewPagination(filters.Page, filters.PerPage, total),
	}, http.StatusOK)
}

func (h *Handler) showUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	user, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		h.logger.Error("show user failed", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	var assignable []authz.RoleInfo
	if actor := identity.PrincipalFromContext(r.Context()); actor != nil {
		assignable = authz.ManageableRoles(actor.Role)
	}
	h.render(w, r, "pages/users/detail.html", map[string]any{
		"User":            user,
		"AssignableRoles": assignable,
		"AllPermissions":  authz.AllPermissions(),
	}, http.StatusOK)
}

func (h *Handler) changeRole(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	actor := identity.PrincipalFromContext(r.Context())
	newRole := authz.Role(r.PostFormValue("role"))
	if err := h.service.ChangeRole(r.Context(), actor, id, newRole); err != nil {
		h.redirectWithFlash(w, r, "/users/"+chi.URLParam(r, "id"), "error", manageMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "/users/"+chi.URLParam(r, "id"), "success", "Role updated.")
}

func (h *Handler) setActive(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	actor := identity.PrincipalFromContext(r.Context())
	active := r.PostFormValue("active") == "true"
	if err := h.service.SetActive(r.Context(), actor, id, active); err != nil {
		h.redirectWithFlash(w, r, "/users/"+chi.URLParam(r, "id"), "error", manageMessage(err))
		return
	}
	message := "Account deactivated."
	if active {
		message = "Account activated."
	}
	h.redirectWithFlash(w, r, "/users/"+chi.URLParam(r, "id"), "success", message)
}

func (h *Handler) setOverrides(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	actor := identity.PrincipalFromContext(r.Context())
	if err := h.service.SetOverrides(r.Context(), actor, id, r.PostForm["permissions"]); err != nil {
		h.redirectWithFlash(w, r, "/users/"+chi.URLParam(r, "id"), "error", manageMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "/users/"+chi.URLParam(r, "id"), "success", "Permissions updated.")
}

func manageMessage(err error) string {
	switch {
	case errors.Is(err, ErrNotManageable):
		return "You cannot manage accounts at this level."
	case errors.Is(err, ErrSelfChange):
		return "You cannot change your own account here."
	default:
		return shared.UserSafeMessage(err)
	}
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, template string, data map[string]any, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{
		Title:       "Team",
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
