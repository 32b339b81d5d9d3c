package users

import (
	"time"

	"github.com/atrium-realty/atrium/internal/authz"
)

// User represents a staff or client account in the directory.
type User struct {
	ID              int64
	Email           string
	Name            string
	Phone           string
	Role            authz.Role
	IsActive        bool
	EmailVerifiedAt *time.Time
	Overrides       []string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ListFilters narrows the directory listing.
type ListFilters struct {
	Role    authz.Role
	Query   string
	Page    int
	PerPage int
}
