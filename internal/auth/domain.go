package auth

import (
	"time"

	"github.com/atrium-realty/atrium/internal/authz"
)

// User represents an account in the brokerage back-office or client portal.
type User struct {
	ID              int64
	Email           string
	Name            string
	Phone           string
	PasswordHash    string
	Role            authz.Role
	IsActive        bool
	EmailVerifiedAt *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Verified reports whether the account has confirmed its email address.
func (u *User) Verified() bool {
	return u.EmailVerifiedAt != nil
}
