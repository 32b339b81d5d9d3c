package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/atrium-realty/atrium/internal/guard"
	"github.com/atrium-realty/atrium/internal/identity"
	"github.com/atrium-realty/atrium/internal/shared"
	"github.com/atrium-realty/atrium/internal/view"
)

// Invalidator flushes resolved identity snapshots after an auth event. The
// identity resolver satisfies it.
type Invalidator interface {
	Invalidate()
}

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	templates      *view.Engine
	sessionManager *shared.SessionManager
	csrfManager    *shared.CSRFManager
	routeGuard     *guard.Guard
	invalidator    Invalidator
	validator      *validator.Validate
	secureCookies  bool
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, sessions *shared.SessionManager, csrf *shared.CSRFManager, routeGuard *guard.Guard, invalidator Invalidator, secureCookies bool) *Handler {
	return &Handler{
		logger:         logger,
		service:        service,
		templates:      templates,
		sessionManager: sessions,
		csrfManager:    csrf,
		routeGuard:     routeGuard,
		invalidator:    invalidator,
		validator:      validator.New(),
		secureCookies:  secureCookies,
	}
}

// MountRoutes registers auth routes on provided router. The sign-in,
// registration, and password pages are guest-only: a signed-in caller is
// bounced to the landing page instead of seeing the form again.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.routeGuard.Protect(guard.Rule{RequireAuth: false}))
		r.Get("/login", h.showLogin)
		r.Post("/login", h.handleLogin)
		r.Get("/register", h.showRegister)
		r.Post("/register", h.handleRegister)
		r.Get("/password/forgot", h.showForgotPassword)
		r.Post("/password/forgot", h.handleForgotPassword)
		r.Get("/password/reset", h.showResetPassword)
		r.Post("/password/reset", h.handleResetPassword)
	})

	// Logout and email verification work in either auth state.
	r.Post("/logout", h.handleLogout)
	r.Get("/verify", h.handleVerifyEmail)
}

type loginForm struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=8"`
}

type loginPageData struct {
	Form   loginForm
	Errors map[string]string
}

func (h *Handler) showLogin(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, r, "pages/auth/login.html", "Sign in", loginPageData{}, http.StatusOK)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	sess := shared.SessionFromContext(r.Context())

	form := loginForm{
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
	}
	errs := make(map[string]string)
	if err := h.validator.Struct(form); err != nil {
		for _, fieldErr := range err.(validator.ValidationErrors) {
			errs[fieldErr.Field()] = fieldErr.Error()
		}
	}

	if len(errs) == 0 {
		user, err := h.service.Authenticate(r.Context(), form.Email, form.Password)
		if err != nil {
			errs["general"] = shared.UserSafeMessage(shared.ErrInvalidCredentials)
		} else {
			if sess == nil {
				h.logger.Error("session missing during login")
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			sess.SetUser(strconv.FormatInt(user.ID, 10))
			sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "Welcome back"})
			expiresAt := time.Now().Add(h.sessionManager.TTL())
			if err := h.service.RegisterSession(r.Context(), sess.ID, user.ID, expiresAt, r.RemoteAddr, r.UserAgent()); err != nil {
				h.logger.Warn("register session", slog.Any("error", err))
			}
			// Snapshots resolved before this sign-in are stale now.
			h.invalidator.Invalidate()
			http.Redirect(w, r, guard.DefaultLandingPath, http.StatusSeeOther)
			return
		}
	}

	h.renderPage(w, r, "pages/auth/login.html", "Sign in", loginPageData{Form: form, Errors: errs}, http.StatusBadRequest)
}

type registerForm struct {
	Name     string `validate:"required,min=2"`
	Email    string `validate:"required,email"`
	Phone    string `validate:"omitempty,min=9"`
	Password string `validate:"required,min=8"`
}

type registerPageData struct {
	Form   registerForm
	Errors map[string]string
}

func (h *Handler) showRegister(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, r, "pages/auth/register.html", "Create account", registerPageData{}, http.StatusOK)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := registerForm{
		Name:     r.PostFormValue("name"),
		Email:    r.PostFormValue("email"),
		Phone:    r.PostFormValue("phone"),
		Password: r.PostFormValue("password"),
	}
	errs := make(map[string]string)
	if err := h.validator.Struct(form); err != nil {
		for _, fieldErr := range err.(validator.ValidationErrors) {
			errs[fieldErr.Field()] = fieldErr.Error()
		}
	}

	if len(errs) == 0 {
		_, err := h.service.Register(r.Context(), form.Email, form.Name, form.Phone, form.Password)
		switch {
		case err == nil:
			if sess := shared.SessionFromContext(r.Context()); sess != nil {
				sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "Account created. Check your inbox to verify your email."})
			}
			http.Redirect(w, r, guard.DefaultSignInPath, http.StatusSeeOther)
			return
		case errors.Is(err, shared.ErrEmailTaken):
			errs["Email"] = shared.UserSafeMessage(err)
		default:
			h.logger.Error("register account", slog.Any("error", err))
			errs["general"] = shared.UserSafeMessage(err)
		}
	}

	h.renderPage(w, r, "pages/auth/register.html", "Create account", registerPageData{Form: form, Errors: errs}, http.StatusBadRequest)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		if err := h.service.RemoveSession(r.Context(), sess.ID); err != nil {
			h.logger.Warn("remove session", slog.Any("error", err))
		}
		h.sessionManager.Destroy(sess)
	}
	// Both identity sources reset together on sign-out.
	identity.ClearLegacyCookie(w, h.secureCookies)
	h.invalidator.Invalidate()
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	err := h.service.VerifyEmail(r.Context(), r.URL.Query().Get("token"))
	sess := shared.SessionFromContext(r.Context())
	if err != nil {
		if sess != nil {
			sess.AddFlash(shared.FlashMessage{Kind: "error", Message: shared.UserSafeMessage(err)})
		}
		http.Redirect(w, r, guard.DefaultSignInPath, http.StatusSeeOther)
		return
	}
	if sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "Email verified. You can sign in now."})
	}
	http.Redirect(w, r, guard.DefaultSignInPath, http.StatusSeeOther)
}

type forgotPasswordPageData struct {
	Email  string
	Errors map[string]string
	Sent   bool
}

func (h *Handler) showForgotPassword(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, r, "pages/auth/forgot_password.html", "Reset password", forgotPasswordPageData{}, http.StatusOK)
}

func (h *Handler) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	email := r.PostFormValue("email")
	if err := h.service.RequestPasswordReset(r.Context(), email); err != nil {
		h.logger.Error("request password reset", slog.Any("error", err))
	}
	// Always confirm; the response must not reveal whether the address exists.
	h.renderPage(w, r, "pages/auth/forgot_password.html", "Reset password", forgotPasswordPageData{Email: email, Sent: true}, http.StatusOK)
}

type resetPasswordPageData struct {
	Token  string
	Errors map[string]string
}

func (h *Handler) showResetPassword(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, r, "pages/auth/reset_password.html", "Choose a new password",
		resetPasswordPageData{Token: r.URL.Query().Get("token")}, http.StatusOK)
}

func (h *Handler) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	token := r.PostFormValue("token")
	password := r.PostFormValue("password")
	if len(password) < 8 {
		h.renderPage(w, r, "pages/auth/reset_password.html", "Choose a new password",
			resetPasswordPageData{Token: token, Errors: map[string]string{"Password": "Password must be at least 8 characters."}}, http.StatusBadRequest)
		return
	}
	if err := h.service.ResetPassword(r.Context(), token, password); err != nil {
		h.renderPage(w, r, "pages/auth/reset_password.html", "Choose a new password",
			resetPasswordPageData{Token: token, Errors: map[string]string{"general": shared.UserSafeMessage(err)}}, http.StatusBadRequest)
		return
	}
	// Existing sessions keep their own lifecycle; only resolved snapshots
	// are flushed.
	h.invalidator.Invalidate()
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "Password updated. Sign in with your new password."})
	}
	http.Redirect(w, r, guard.DefaultSignInPath, http.StatusSeeOther)
}

func (h *Handler) renderPage(w http.ResponseWriter, r *http.Request, template, title string, data any, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrfManager.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{
		Title:       title,
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Snapshot:    identity.ResolutionFromContext(r.Context()).Snapshot,
		Data:        data,
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	if err := h.templates.Render(w, template, viewData); err != nil {
		h.logger.Error("render auth page", slog.Any("error", err))
	}
}

// ShowLoginForTest exposes the GET handler for tests.
func (h *Handler) ShowLoginForTest(w http.ResponseWriter, r *http.Request) {
	h.showLogin(w, r)
}

// HandleLoginForTest exposes the POST handler for tests.
func (h *Handler) HandleLoginForTest(w http.ResponseWriter, r *http.Request) {
	h.handleLogin(w, r)
}

// HandleLogoutForTest exposes the logout handler for tests.
func (h *Handler) HandleLogoutForTest(w http.ResponseWriter, r *http.Request) {
	h.handleLogout(w, r)
}
