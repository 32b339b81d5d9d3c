package auth_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/atrium-realty/atrium/internal/auth"
	"github.com/atrium-realty/atrium/internal/authz"
	"github.com/atrium-realty/atrium/internal/guard"
	"github.com/atrium-realty/atrium/internal/identity"
	"github.com/atrium-realty/atrium/internal/shared"
	"github.com/atrium-realty/atrium/internal/view"
	_ "github.com/atrium-realty/atrium/testing"
)

type stubRepo struct {
	user *auth.User
}

func (s *stubRepo) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	if s.user == nil {
		return nil, shared.ErrNotFound
	}
	return s.user, nil
}

func (s *stubRepo) FindByID(ctx context.Context, id int64) (*auth.User, error) {
	if s.user == nil || s.user.ID != id {
		return nil, shared.ErrNotFound
	}
	return s.user, nil
}

func (s *stubRepo) Create(ctx context.Context, user auth.User) (*auth.User, error) {
	if s.user != nil && strings.EqualFold(s.user.Email, user.Email) {
		return nil, shared.ErrEmailTaken
	}
	user.ID = 2
	s.user = &user
	return &user, nil
}

func (s *stubRepo) MarkEmailVerified(ctx context.Context, id int64) error { return nil }

func (s *stubRepo) UpdatePassword(ctx context.Context, id int64, hash string) error { return nil }

func (s *stubRepo) CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	return nil
}

func (s *stubRepo) DeleteSession(ctx context.Context, id string) error { return nil }

type countingInvalidator struct{ calls int }

func (c *countingInvalidator) Invalidate() { c.calls++ }

type stubResolver struct{ res identity.Resolution }

func (s *stubResolver) Resolve(ctx context.Context, r *http.Request) identity.Resolution {
	return s.res
}

func newAuthHandler(t *testing.T, repo auth.Repository) (*auth.Handler, *shared.SessionManager, *countingInvalidator, *stubResolver) {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessionManager := shared.NewSessionManager(redisClient, "test_session", "secret", time.Hour, false)
	csrfManager := shared.NewCSRFManager("csrfsecret")
	templates, err := view.NewEngine()
	if err != nil {
		t.Fatalf("templates: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	invalidator := &countingInvalidator{}
	resolver := &stubResolver{res: identity.Resolution{Snapshot: authz.Snapshot{Ready: true}}}
	routeGuard := &guard.Guard{Resolver: resolver, Logger: logger}
	tokens := auth.NewTokenIssuer("tokensecret")
	service := auth.NewService(repo, tokens, nil, logger)
	handler := auth.NewHandler(logger, service, templates, sessionManager, csrfManager, routeGuard, invalidator, false)
	return handler, sessionManager, invalidator, resolver
}

func TestLoginPage(t *testing.T) {
	handler, sessionManager, _, _ := newAuthHandler(t, &stubRepo{})

	req := httptest.NewRequest(http.MethodGet, "/auth/login", nil)
	sess, err := sessionManager.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	ctx := shared.ContextWithSession(req.Context(), sess)
	req = req.WithContext(ctx)

	res := httptest.NewRecorder()
	handler.ShowLoginForTest(res, req)
	if err := sessionManager.Commit(ctx, res, req, sess); err != nil {
		t.Fatalf("commit session: %v", err)
	}

	if res.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), "<form") {
		t.Fatalf("expected login form in body")
	}
}

func TestLoginPageBouncesSignedInUsers(t *testing.T) {
	handler, sessionManager, _, resolver := newAuthHandler(t, &stubRepo{})
	resolver.res = identity.Resolution{Snapshot: authz.Snapshot{
		Principal: &authz.Principal{ID: 1, Role: authz.RoleAgent, Active: true},
		Ready:     true,
	}}

	router := chi.NewRouter()
	router.Route("/auth", handler.MountRoutes)

	req := httptest.NewRequest(http.MethodGet, "/auth/login", nil)
	sess, err := sessionManager.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))

	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if res.Code != http.StatusSeeOther {
		t.Fatalf("expected redirect for signed-in user, got %d", res.Code)
	}
	if loc := res.Header().Get("Location"); loc != guard.DefaultLandingPath {
		t.Fatalf("expected bounce to %s, got %s", guard.DefaultLandingPath, loc)
	}

	// The same mount still serves guests.
	resolver.res = identity.Resolution{Snapshot: authz.Snapshot{Ready: true}}
	req = httptest.NewRequest(http.MethodGet, "/auth/register", nil)
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
	res = httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200 for guest, got %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), "<form") {
		t.Fatalf("expected registration form in body")
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	hashed, err := bcrypt.GenerateFromPassword([]byte("correctpass"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	handler, sessionManager, invalidator, _ := newAuthHandler(t, &stubRepo{user: &auth.User{ID: 1, Email: "user@test.local", PasswordHash: string(hashed), IsActive: true}})

	postData := url.Values{}
	postData.Set("email", "user@test.local")
	postData.Set("password", "wrongpass")

	postReq := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(postData.Encode()))
	postReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	sess, err := sessionManager.Load(context.Background(), postReq)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	postCtx := shared.ContextWithSession(postReq.Context(), sess)
	postReq = postReq.WithContext(postCtx)

	res := httptest.NewRecorder()
	handler.HandleLoginForTest(res, postReq)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), "Email or password is incorrect") {
		t.Fatalf("expected error message in response")
	}
	if invalidator.calls != 0 {
		t.Fatalf("failed login must not flush snapshots")
	}
}

func TestLoginSuccessFlushesSnapshots(t *testing.T) {
	hashed, err := bcrypt.GenerateFromPassword([]byte("correctpass"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	handler, sessionManager, invalidator, _ := newAuthHandler(t, &stubRepo{user: &auth.User{ID: 1, Email: "user@test.local", PasswordHash: string(hashed), IsActive: true}})

	postData := url.Values{}
	postData.Set("email", "user@test.local")
	postData.Set("password", "correctpass")

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(postData.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	sess, err := sessionManager.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	ctx := shared.ContextWithSession(req.Context(), sess)
	req = req.WithContext(ctx)

	res := httptest.NewRecorder()
	handler.HandleLoginForTest(res, req)

	if res.Code != http.StatusSeeOther {
		t.Fatalf("expected redirect, got %d", res.Code)
	}
	if got := sess.User(); got != "1" {
		t.Fatalf("expected session user 1, got %q", got)
	}
	if invalidator.calls != 1 {
		t.Fatalf("expected one snapshot flush, got %d", invalidator.calls)
	}
}

func TestLogoutClearsLegacyCookie(t *testing.T) {
	handler, sessionManager, invalidator, _ := newAuthHandler(t, &stubRepo{})

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	sess, err := sessionManager.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))

	res := httptest.NewRecorder()
	handler.HandleLogoutForTest(res, req)

	if res.Code != http.StatusSeeOther {
		t.Fatalf("expected redirect, got %d", res.Code)
	}
	var cleared bool
	for _, c := range res.Result().Cookies() {
		if c.Name == identity.LegacyCookieName && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Fatalf("expected legacy cookie to be expired on logout")
	}
	if invalidator.calls != 1 {
		t.Fatalf("expected one snapshot flush, got %d", invalidator.calls)
	}
}
