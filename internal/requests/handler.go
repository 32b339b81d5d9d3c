package requests

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/atrium-realty/atrium/internal/authz"
	"github.com/atrium-realty/atrium/internal/guard"
	"github.com/atrium-realty/atrium/internal/identity"
	"github.com/atrium-realty/atrium/internal/shared"
	"github.com/atrium-realty/atrium/internal/view"
)

// tokenField carries the submission token through the intake form.
const tokenField = "form_token"

// Handler wires the public intake form and the staff request workflow.
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

// MountPublicRoutes registers the visitor-facing intake routes.
func (h *Handler) MountPublicRoutes(r chi.Router) {
	r.Get("/new", h.showIntakeForm)
	r.Post("/", h.submitIntakeForm)
}

// MountStaffRoutes registers the back-office request workflow.
func (h *Handler) MountStaffRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Protect(guard.Rule{RequireAuth: true, RequiredPermissions: []string{authz.PermRequestsRead}}))
		r.Get("/", h.listRequests)
		r.Get("/{id}", h.showRequest)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Protect(guard.Rule{RequireAuth: true, RequiredPermissions: []string{authz.PermRequestsAssign}}))
		r.Post("/{id}/assign", h.assignRequest)
		r.Post("/{id}/status", h.updateStatus)
	})
}

type intakePageData struct {
	Form   *Form
	Token  string
	Errors map[string]string
}

func (h *Handler) showIntakeForm(w http.ResponseWriter, r *http.Request) {
	form := NewForm()
	// Pre-select a classification passed from the landing page shortcuts.
	if service := r.URL.Query().Get(FieldService); service != "" {
		form.SetClassification(FieldService, service)
	}
	h.renderIntake(w, r, intakePageData{Form: form, Token: uuid.NewString(), Errors: map[string]string{}}, http.StatusOK)
}

func (h *Handler) submitIntakeForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := bindForm(r)
	token := r.PostFormValue(tokenField)

	_, err := h.service.Submit(r.Context(), token, form)
	switch {
	case err == nil, errors.Is(err, ErrDuplicateSubmission):
		// A replayed submit is acknowledged exactly like the original.
		h.redirectWithFlash(w, r, "/requests/new", "success", "Your request has been received. We will contact you shortly.")
		return
	}

	var verr *ValidationError
	if errors.As(err, &verr) {
		h.renderIntake(w, r, intakePageData{
			Form:   form,
			Token:  token,
			Errors: map[string]string{verr.Field: verr.Message},
		}, http.StatusBadRequest)
		return
	}

	h.logger.Error("submit intake form", slog.Any("error", err))
	h.renderIntake(w, r, intakePageData{
		Form:   form,
		Token:  token,
		Errors: map[string]string{"general": shared.UserSafeMessage(err)},
	}, http.StatusInternalServerError)
}

func (h *Handler) listRequests(w http.ResponseWriter, r *http.Request) {
	filters := ListFilters{Status: Status(r.URL.Query().Get("status"))}
	if page, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil {
		filters.Page = page
	}
	list, total, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.logger.Error("list requests", slog.Any("error", err))
		h.render(w, r, "pages/requests/list.html", map[string]any{"Errors": map[string]string{"general": shared.UserSafeMessage(err)}}, http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/requests/list.html", map[string]any{
		"Requests":   list,
		"Pagination": shared.NewPagination(filters.Page, filters.PerPage, total),
	}, http.StatusOK)
}

func (h *Handler) showRequest(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	req, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		h.logger.Error("show request", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/requests/detail.html", map[string]any{"Request": req}, http.StatusOK)
}

func (h *Handler) assignRequest(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	assigneeID, err := strconv.ParseInt(r.PostFormValue("assignee_id"), 10, 64)
	if err != nil || assigneeID <= 0 {
		h.redirectWithFlash(w, r, "/dashboard/requests", "error", "Choose a staff member to assign.")
		return
	}
	actorID := currentActorID(r)
	if err := h.service.Assign(r.Context(), actorID, id, assigneeID); err != nil {
		h.logger.Error("assign request", slog.Any("error", err))
		h.redirectWithFlash(w, r, "/dashboard/requests", "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "/dashboard/requests", "success", "Request assigned.")
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if err := h.service.UpdateStatus(r.Context(), id, Status(r.PostFormValue("status"))); err != nil {
		h.logger.Error("update request status", slog.Any("error", err))
		h.redirectWithFlash(w, r, "/dashboard/requests", "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "/dashboard/requests", "success", "Status updated.")
}

// bindForm feeds posted values through the engine in dependency order so
// visibility rules apply before dependent values land.
func bindForm(r *http.Request) *Form {
	form := NewForm()
	form.SetClassification(FieldService, r.PostFormValue(FieldService))
	form.SetClassification(FieldPropertyUsage, r.PostFormValue(FieldPropertyUsage))
	for _, field := range []string{
		FieldPropertyType, FieldFacilityName, FieldActivityType,
		FieldName, FieldPhone, FieldEmail, FieldContactMethod, FieldCity, FieldNotes,
	} {
		form.Set(field, r.PostFormValue(field))
	}
	return form
}

func (h *Handler) renderIntake(w http.ResponseWriter, r *http.Request, data intakePageData, status int) {
	h.render(w, r, "pages/requests/intake.html", map[string]any{
		"Form":   data.Form,
		"Token":  data.Token,
		"Errors": data.Errors,
	}, status)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, template string, data map[string]any, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	snap := identity.ResolutionFromContext(r.Context()).Snapshot
	viewData := view.TemplateData{Title: "Requests", CSRFToken: csrfToken, Flash: flash, CurrentPath: r.URL.Path, Snapshot: snap, Data: data}
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

func currentActorID(r *http.Request) int64 {
	if p := identity.PrincipalFromContext(r.Context()); p != nil {
		return p.ID
	}
	return 0
}
