// Package guard wraps routes with access rules. A rule is declared per route
// group and evaluated fresh on every request against the resolved principal;
// decisions are never cached across principals.
package guard

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/atrium-realty/atrium/internal/authz"
	"github.com/atrium-realty/atrium/internal/i18n"
	"github.com/atrium-realty/atrium/internal/identity"
)

// Default navigation targets.
const (
	DefaultSignInPath       = "/auth/login"
	DefaultUnauthorizedPath = "/unauthorized"
	DefaultLandingPath      = "/dashboard"
)

// Rule declares the access requirements for a guarded route.
type Rule struct {
	// RequireAuth demands a signed-in principal. When false the route is
	// guest-only and signed-in users are sent to the landing page.
	RequireAuth         bool
	AllowedRoles        []authz.Role
	RequiredPermissions []string
	// RedirectTo overrides the sign-in target for unauthenticated access.
	RedirectTo string
	// FallbackMessage overrides the default denial explanation.
	FallbackMessage string
}

// Denial carries everything the in-place denial view needs: a localized
// explanation plus recovery actions appropriate to the caller's state.
type Denial struct {
	Message       string
	Authenticated bool
	ActionLabel   string
	ActionPath    string
}

// DenialRenderer renders the in-place access-denied view.
type DenialRenderer func(w http.ResponseWriter, r *http.Request, d Denial)

// Resolver yields the current identity for a request.
type Resolver interface {
	Resolve(ctx context.Context, r *http.Request) identity.Resolution
}

// Guard evaluates rules against the identity resolver's output.
type Guard struct {
	Resolver Resolver
	Logger   *slog.Logger
	// RenderDenial, when set, lets ProtectInPlace render instead of navigate.
	RenderDenial DenialRenderer
}

type state int

const (
	stateLoading state = iota
	stateGranted
	stateRedirect
	stateDenied
)

type verdict struct {
	state         state
	target        string
	authenticated bool
}

// decide applies the rule's transitions in order once resolution is ready:
// auth requirement, guest-only bounce, role allow-list, permission list.
func (g *Guard) decide(res identity.Resolution, rule Rule) verdict {
	if !res.Snapshot.Ready {
		return verdict{state: stateLoading}
	}
	p := res.Snapshot.Principal

	if rule.RequireAuth && p == nil {
		target := rule.RedirectTo
		if target == "" {
			target = DefaultSignInPath
		}
		return verdict{state: stateRedirect, target: target}
	}
	if !rule.RequireAuth && p != nil {
		return verdict{state: stateRedirect, target: DefaultLandingPath, authenticated: true}
	}
	if len(rule.AllowedRoles) > 0 && !authz.HasAnyRole(p, rule.AllowedRoles) {
		return verdict{state: stateDenied, target: DefaultUnauthorizedPath, authenticated: true}
	}
	if len(rule.RequiredPermissions) > 0 && !authz.HasAllPermissions(p, rule.RequiredPermissions) {
		return verdict{state: stateDenied, target: DefaultUnauthorizedPath, authenticated: true}
	}
	return verdict{state: stateGranted, authenticated: p != nil}
}

// Protect returns middleware that redirects on failure: to sign-in when
// unauthenticated, to the unauthorized page when the principal lacks a role
// or permission, and to the landing page for guest-only routes.
func (g *Guard) Protect(rule Rule) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res := g.Resolver.Resolve(r.Context(), r)
			switch v := g.decide(res, rule); v.state {
			case stateLoading:
				g.unsettled(w, r, res)
			case stateRedirect, stateDenied:
				http.Redirect(w, r, v.target, http.StatusSeeOther)
			default:
				next.ServeHTTP(w, r.WithContext(identity.ContextWithResolution(r.Context(), res)))
			}
		})
	}
}

// ProtectInPlace behaves like Protect but renders the denial view in place
// instead of navigating away, with recovery actions matched to the caller's
// state: sign-in when anonymous, back to the dashboard when forbidden.
func (g *Guard) ProtectInPlace(rule Rule) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res := g.Resolver.Resolve(r.Context(), r)
			v := g.decide(res, rule)
			switch v.state {
			case stateLoading:
				g.unsettled(w, r, res)
				return
			case stateGranted:
				next.ServeHTTP(w, r.WithContext(identity.ContextWithResolution(r.Context(), res)))
				return
			case stateRedirect:
				if v.authenticated {
					// Guest-only bounce is a navigation, never a denial.
					http.Redirect(w, r, v.target, http.StatusSeeOther)
					return
				}
			}

			if g.RenderDenial == nil {
				http.Redirect(w, r, v.target, http.StatusSeeOther)
				return
			}
			printer := i18n.Printer(r)
			d := Denial{Authenticated: v.authenticated}
			if rule.FallbackMessage != "" {
				d.Message = rule.FallbackMessage
			} else if v.authenticated {
				d.Message = printer.Sprintf(i18n.KeyAccessDenied)
			} else {
				d.Message = printer.Sprintf(i18n.KeyAuthRequired)
			}
			if v.authenticated {
				d.ActionLabel = printer.Sprintf(i18n.KeyReturnToDash)
				d.ActionPath = DefaultLandingPath
			} else {
				d.ActionLabel = printer.Sprintf(i18n.KeySignIn)
				d.ActionPath = DefaultSignInPath
			}
			w.WriteHeader(http.StatusForbidden)
			g.RenderDenial(w, r, d)
		})
	}
}

// unsettled answers a resolution that has not completed. The state is
// loading, not denied: surface a retryable 503 rather than flashing a
// denial the data might immediately contradict.
func (g *Guard) unsettled(w http.ResponseWriter, r *http.Request, res identity.Resolution) {
	if g.Logger != nil {
		g.Logger.Error("identity resolution unsettled",
			slog.String("path", r.URL.Path),
			slog.Any("error", res.Err))
	}
	w.Header().Set("Retry-After", "1")
	http.Error(w, i18n.Printer(r).Sprintf(i18n.KeyStillLoading), http.StatusServiceUnavailable)
}
