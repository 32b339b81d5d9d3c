package view

import (
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/atrium-realty/atrium/internal/authz"
	"github.com/atrium-realty/atrium/internal/shared"
	"github.com/atrium-realty/atrium/web"
)

// Engine renders HTML templates.
type Engine struct {
	templates *template.Template
}

// TemplateData contains values shared across templates.
type TemplateData struct {
	Title       string
	CSRFToken   string
	Flash       *shared.FlashMessage
	CurrentPath string
	Snapshot    authz.Snapshot
	Data        any
}

// Can reports whether the current principal holds a permission. It backs
// the conditional chrome in templates (nav items, action buttons).
func (d TemplateData) Can(permission string) bool {
	return authz.HasPermission(d.Snapshot.Principal, permission)
}

// CanAny reports whether the principal holds at least one of the
// permissions.
func (d TemplateData) CanAny(permissions ...string) bool {
	return authz.HasAnyPermission(d.Snapshot.Principal, permissions)
}

// Is reports whether the current principal holds the named role.
func (d TemplateData) Is(role string) bool {
	return authz.HasRole(d.Snapshot.Principal, authz.Role(role))
}

// SignedIn reports whether a principal resolved for this request.
func (d TemplateData) SignedIn() bool {
	return d.Snapshot.Principal != nil
}

// Gate evaluates a rule against the request snapshot and returns the
// matching fragment. Templates use it for the tri-state sections where an
// unresolved identity renders a placeholder instead of the denied branch.
func (d TemplateData) Gate(rule authz.GateRule, granted, fallback, loading template.HTML) template.HTML {
	return authz.Choose(authz.Evaluate(d.Snapshot, rule), granted, fallback, loading)
}

// GateState reports the tri-state outcome for a single-permission rule as a
// template-friendly string: "granted", "denied" or "loading". Pages use it
// to branch between a section, its fallback and a loading placeholder.
func (d TemplateData) GateState(permission string) string {
	switch authz.Evaluate(d.Snapshot, authz.GateRule{Permission: permission}) {
	case authz.Granted:
		return "granted"
	case authz.Indeterminate:
		return "loading"
	default:
		return "denied"
	}
}

// NewEngine parses templates at build-time.
func NewEngine() (*Engine, error) {
	funcMap := template.FuncMap{
		"formatDate": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("02 Jan 2006 15:04")
		},
		"roleName": func(role string) string {
			return authz.Info(authz.Role(role)).Name
		},
		"roleColor": func(role string) string {
			return authz.Info(authz.Role(role)).Color
		},
		"add": func(a, b int) int { return a + b },
		"sub": func(a, b int) int { return a - b },
		"hasString": func(list []string, v string) bool {
			for _, item := range list {
				if item == v {
					return true
				}
			}
			return false
		},
	}
	tpl, err := template.New("root").Funcs(funcMap).ParseFS(web.Templates,
		"templates/layouts/*.html",
		"templates/partials/*.html",
		"templates/pages/*.html",
		"templates/pages/*/*.html",
	)
	if err != nil {
		return nil, err
	}
	return &Engine{templates: tpl}, nil
}

// Render executes a named template with TemplateData.
func (e *Engine) Render(w http.ResponseWriter, name string, data TemplateData) error {
	if e == nil {
		return fmt.Errorf("template engine not initialised")
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return e.templates.ExecuteTemplate(w, name, data)
}
