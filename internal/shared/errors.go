package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmailTaken indicates a sign-up against an existing address.
	ErrEmailTaken = errors.New("email already registered")
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
	// ErrTokenInvalid covers expired or tampered verification/reset tokens.
	ErrTokenInvalid = errors.New("token invalid or expired")
)

// UserSafeMessage maps internal errors to a message safe to render. Unknown
// errors collapse to a generic line so provider internals never leak into
// the page.
func UserSafeMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "The requested record could not be found."
	case errors.Is(err, ErrInvalidCredentials):
		return "Email or password is incorrect."
	case errors.Is(err, ErrEmailTaken):
		return "This email address is already registered."
	case errors.Is(err, ErrTokenInvalid):
		return "This link is invalid or has expired."
	default:
		return "Something went wrong. Please try again."
	}
}
