package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/atrium-realty/atrium/internal/shared"
)

// Token purposes. A token issued for one purpose never validates for
// another.
const (
	PurposeEmailVerify   = "email_verify"
	PurposePasswordReset = "password_reset"
)

// Default token lifetimes.
const (
	EmailVerifyTTL   = 48 * time.Hour
	PasswordResetTTL = time.Hour
)

type tokenClaims struct {
	Purpose string `json:"purpose"`
	Email   string `json:"email"`
	jwt.RegisteredClaims
}

// TokenIssuer mints and validates the signed single-use-style tokens carried
// in verification and reset links.
type TokenIssuer struct {
	secret []byte
	now    func() time.Time
}

// NewTokenIssuer builds a TokenIssuer with the given signing secret.
func NewTokenIssuer(secret string) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), now: time.Now}
}

// Issue creates a signed token binding a purpose to a user and email.
func (t *TokenIssuer) Issue(purpose string, userID int64, email string, ttl time.Duration) (string, error) {
	now := t.now().UTC()
	claims := tokenClaims{
		Purpose: purpose,
		Email:   email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", userID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// Parse validates a token for the expected purpose and returns the bound
// user ID and email. Any failure collapses to shared.ErrTokenInvalid so
// callers do not leak the distinction between tampered and expired.
func (t *TokenIssuer) Parse(purpose, token string) (int64, string, error) {
	var claims tokenClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", tok.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(t.now), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return 0, "", shared.ErrTokenInvalid
	}
	if claims.Purpose != purpose {
		return 0, "", shared.ErrTokenInvalid
	}
	var userID int64
	if _, err := fmt.Sscanf(claims.Subject, "%d", &userID); err != nil || userID <= 0 {
		return 0, "", shared.ErrTokenInvalid
	}
	return userID, claims.Email, nil
}
