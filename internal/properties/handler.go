package properties

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

// maxPhotoSize caps a single photo upload.
const maxPhotoSize = 10 << 20

// Handler wires the public listing pages and the back-office CRUD.
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

// MountPublicRoutes registers the visitor-facing listing pages.
func (h *Handler) MountPublicRoutes(r chi.Router) {
	r.Get("/", h.publicList)
	r.Get("/{id}", h.publicShow)
}

// MountStaffRoutes registers back-office listing management.
func (h *Handler) MountStaffRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Protect(guard.Rule{RequireAuth: true, RequiredPermissions: []string{authz.PermPropertiesRead}}))
		r.Get("/", h.staffList)
		r.Get("/{id}", h.staffShow)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Protect(guard.Rule{RequireAuth: true, RequiredPermissions: []string{authz.PermPropertiesWrite}}))
		r.Get("/new", h.showForm)
		r.Post("/", h.create)
		r.Post("/{id}", h.update)
		r.Post("/{id}/photos", h.uploadPhoto)
		r.Post("/{id}/photos/{photoID}/delete", h.deletePhoto)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Protect(guard.Rule{RequireAuth: true, RequiredPermissions: []string{authz.PermPropertiesPublish}}))
		r.Post("/{id}/publish", h.publish)
		r.Post("/{id}/archive", h.archive)
	})
}

func (h *Handler) publicList(w http.ResponseWriter, r *http.Request) {
	filters := filtersFromQuery(r)
	list, total, err := h.service.PublicList(r.Context(), filters)
	if err != nil {
		h.logger.Error("public listing", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/properties/public_list.html", map[string]any{
		"Properties": list,
		"Filters":    filters,
		"Pagination": shared.NewPagination(filters.Page, filters.PerPage, total),
	}, http.StatusOK)
}

func (h *Handler) publicShow(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	p, err := h.service.GetPublished(r.Context(), id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		h.logger.Error("public listing detail", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/properties/public_detail.html", map[string]any{"Property": p}, http.StatusOK)
}

func (h *Handler) staffList(w http.ResponseWriter, r *http.Request) {
	filters := filtersFromQuery(r)
	filters.Status = Status(r.URL.Query().Get("status"))
	list, total, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.logger.Error("staff listing", slog.Any("error", err))
		h.render(w, r, "pages/properties/list.html", map[string]any{"Errors": map[string]string{"general": shared.UserSafeMessage(err)}}, http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/properties/list.html", map[string]any{
		"Properties": list,
		"Filters":    filters,
		"Pagination": shared.NewPagination(filters.Page, filters.PerPage, total),
	}, http.StatusOK)
}

func (h *Handler) staffShow(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	p, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		h.logger.Error("staff listing detail", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/properties/detail.html", map[string]any{"Property": p}, http.StatusOK)
}

func (h *Handler) showForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "pages/properties/form.html", map[string]any{
		"Form":   Input{},
		"Errors": map[string]string{},
	}, http.StatusOK)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	input, ok := h.bindInput(w, r)
	if !ok {
		return
	}
	actor := identity.PrincipalFromContext(r.Context())
	p, err := h.service.Create(r.Context(), actor, input)
	if err != nil {
		h.renderFormError(w, r, input, err)
		return
	}
	h.redirectWithFlash(w, r, "/dashboard/properties/"+strconv.FormatInt(p.ID, 10), "success", "Listing created as draft.")
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
	h.redirectWithFlash(w, r, "/dashboard/properties/"+chi.URLParam(r, "id"), "success", "Listing updated.")
}

func (h *Handler) publish(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	actor := identity.PrincipalFromContext(r.Context())
	if err := h.service.Publish(r.Context(), actor, id); err != nil {
		h.redirectWithFlash(w, r, "/dashboard/properties", "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "/dashboard/properties/"+chi.URLParam(r, "id"), "success", "Listing published.")
}

func (h *Handler) archive(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if err := h.service.Archive(r.Context(), id); err != nil {
		h.redirectWithFlash(w, r, "/dashboard/properties", "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "/dashboard/properties/"+chi.URLParam(r, "id"), "success", "Listing archived.")
}

func (h *Handler) uploadPhoto(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if err := r.ParseMultipartForm(maxPhotoSize); err != nil {
		h.redirectWithFlash(w, r, "/dashboard/properties/"+chi.URLParam(r, "id"), "error", "Photo is too large.")
		return
	}
	file, header, err := r.FormFile("photo")
	if err != nil {
		h.redirectWithFlash(w, r, "/dashboard/properties/"+chi.URLParam(r, "id"), "error", "Choose a photo to upload.")
		return
	}
	defer file.Close()

	sortOrder, _ := strconv.Atoi(r.FormValue("sort_order"))
	_, err = h.service.UploadPhoto(r.Context(), id, header.Header.Get("Content-Type"), file, int16(sortOrder))
	if err != nil {
		if errors.Is(err, ErrUnsupportedMedia) {
			h.redirectWithFlash(w, r, "/dashboard/properties/"+chi.URLParam(r, "id"), "error", "Only JPEG, PNG and WebP images are accepted.")
			return
		}
		h.logger.Error("upload photo", slog.Any("error", err))
		h.redirectWithFlash(w, r, "/dashboard/properties/"+chi.URLParam(r, "id"), "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "/dashboard/properties/"+chi.URLParam(r, "id"), "success", "Photo uploaded.")
}

func (h *Handler) deletePhoto(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	photoID, err := strconv.ParseInt(chi.URLParam(r, "photoID"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if err := h.service.DeletePhoto(r.Context(), id, photoID); err != nil {
		h.redirectWithFlash(w, r, "/dashboard/properties/"+chi.URLParam(r, "id"), "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "/dashboard/properties/"+chi.URLParam(r, "id"), "success", "Photo removed.")
}

func (h *Handler) bindInput(w http.ResponseWriter, r *http.Request) (Input, bool) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return Input{}, false
	}
	price, _ := strconv.ParseInt(r.PostFormValue("price"), 10, 64)
	area, _ := strconv.ParseFloat(r.PostFormValue("area_sqm"), 64)
	bedrooms, _ := strconv.Atoi(r.PostFormValue("bedrooms"))
	bathrooms, _ := strconv.Atoi(r.PostFormValue("bathrooms"))
	return Input{
		Title:       r.PostFormValue("title"),
		Description: r.PostFormValue("description"),
		Service:     r.PostFormValue("service"),
		Usage:       r.PostFormValue("usage"),
		Type:        r.PostFormValue("type"),
		City:        r.PostFormValue("city"),
		District:    r.PostFormValue("district"),
		Price:       price,
		AreaSqm:     area,
		Bedrooms:    int16(bedrooms),
		Bathrooms:   int16(bathrooms),
	}, true
}

func (h *Handler) renderFormError(w http.ResponseWriter, r *http.Request, input Input, err error) {
	errs := map[string]string{}
	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		for _, fieldErr := range verrs {
			errs[fieldErr.Field()] = fieldErr.Error()
		}
	case errors.Is(err, ErrInvalidType):
		errs["Type"] = "This property type does not match the selected usage."
	default:
		h.logger.Error("save listing", slog.Any("error", err))
		errs["general"] = shared.UserSafeMessage(err)
	}
	h.render(w, r, "pages/properties/form.html", map[string]any{"Form": input, "Errors": errs}, http.StatusBadRequest)
}

func filtersFromQuery(r *http.Request) ListFilters {
	q := r.URL.Query()
	filters := ListFilters{
		Usage: q.Get("usage"),
		Type:  q.Get("type"),
		City:  q.Get("city"),
	}
	if page, err := strconv.Atoi(q.Get("page")); err == nil {
		filters.Page = page
	}
	if min, err := strconv.ParseInt(q.Get("min_price"), 10, 64); err == nil {
		filters.MinPrice = min
	}
	if max, err := strconv.ParseInt(q.Get("max_price"), 10, 64); err == nil {
		filters.MaxPrice = max
	}
	return filters
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
		Title:       "Properties",
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
