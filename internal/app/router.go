package app

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/atrium-realty/atrium/internal/auth"
	"github.com/atrium-realty/atrium/internal/clients"
	"github.com/atrium-realty/atrium/internal/contact"
	"github.com/atrium-realty/atrium/internal/guard"
	"github.com/atrium-realty/atrium/internal/identity"
	"github.com/atrium-realty/atrium/internal/notifications"
	"github.com/atrium-realty/atrium/internal/observability"
	"github.com/atrium-realty/atrium/internal/platform/httpx"
	"github.com/atrium-realty/atrium/internal/properties"
	"github.com/atrium-realty/atrium/internal/requests"
	"github.com/atrium-realty/atrium/internal/shared"
	"github.com/atrium-realty/atrium/internal/users"
	"github.com/atrium-realty/atrium/internal/view"
	"github.com/atrium-realty/atrium/jobs"
	"github.com/atrium-realty/atrium/web"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	Templates      *view.Engine
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	Guard          *guard.Guard
	Resolver       guard.Resolver

	AuthHandler          *auth.Handler
	UsersHandler         *users.Handler
	RequestsHandler      *requests.Handler
	PropertiesHandler    *properties.Handler
	ClientsHandler       *clients.Handler
	ContactHandler       *contact.Handler
	NotificationsHandler *notifications.Handler
	JobHandler           *jobs.Handler
	Metrics              *observability.Metrics
}

// NewRouter constructs the chi.Router with Atrium defaults. Public pages
// resolve identity without requiring it so the shared chrome can gate nav
// items; back-office groups sit behind the route guard.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Public site. Identity is resolved but never required here.
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		renderPage(params, w, r, "pages/home.html", "Atrium Realty", http.StatusOK, nil)
	})
	r.Get("/welcome", func(w http.ResponseWriter, r *http.Request) {
		renderPage(params, w, r, "pages/landing.html", "Atrium Realty", http.StatusOK, nil)
	})
	r.Get("/unauthorized", func(w http.ResponseWriter, r *http.Request) {
		renderPage(params, w, r, "pages/unauthorized.html", "Access denied", http.StatusForbidden, nil)
	})

	// Any signed-in user may open the dashboard shell; the sections inside
	// gate themselves per permission.
	r.Group(func(r chi.Router) {
		r.Use(params.Guard.Protect(guard.Rule{RequireAuth: true}))
		r.Get("/dashboard", func(w http.ResponseWriter, r *http.Request) {
			renderPage(params, w, r, "pages/dashboard.html", "Dashboard", http.StatusOK, map[string]any{
				"AppEnv": params.Config.AppEnv,
			})
		})
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)

	r.Route("/properties", params.PropertiesHandler.MountPublicRoutes)
	r.Route("/requests", params.RequestsHandler.MountPublicRoutes)
	r.Route("/contact", params.ContactHandler.MountPublicRoutes)

	r.Route("/dashboard/properties", params.PropertiesHandler.MountStaffRoutes)
	r.Route("/dashboard/requests", params.RequestsHandler.MountStaffRoutes)
	r.Route("/dashboard/contact", params.ContactHandler.MountStaffRoutes)
	if params.ClientsHandler != nil {
		r.Route("/dashboard/clients", params.ClientsHandler.MountRoutes)
	}
	if params.UsersHandler != nil {
		r.Route("/users", params.UsersHandler.MountRoutes)
	}
	if params.NotificationsHandler != nil {
		r.Route("/notifications", params.NotificationsHandler.MountRoutes)
	}

	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		params.Logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		// Static file server with Cache-Control headers
		fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
		r.Handle("/static/*", staticCacheHandler(fileServer))
	}

	return r
}

// renderPage renders a top-level page with the shared chrome data: CSRF
// token, flash, and the identity snapshot the template gates read.
func renderPage(params RouterParams, w http.ResponseWriter, r *http.Request, name, title string, status int, data any) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := params.CSRFManager.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}

	res := identity.ResolutionFromContext(r.Context())
	if !res.Snapshot.Ready && params.Resolver != nil {
		res = params.Resolver.Resolve(r.Context(), r)
	}

	td := view.TemplateData{
		Title:       title,
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Snapshot:    res.Snapshot,
		Data:        data,
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	if err := params.Templates.Render(w, name, td); err != nil {
		params.Logger.Error("render page", slog.String("template", name), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// staticCacheHandler wraps a file server with Cache-Control headers.
// Static assets (JS, CSS, fonts, images) are cached for 1 hour in browser.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
