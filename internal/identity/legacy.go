package identity

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// LegacyCookieName carries the signed user record issued by the site that
// predates the session migration. It is honored as a fallback identity
// source until those cookies age out.
const LegacyCookieName = "atrium_user"

// ErrMalformedRecord indicates a legacy cookie that fails to parse or
// verify. Callers discard the record and continue without it.
var ErrMalformedRecord = errors.New("identity: malformed legacy record")

// LegacyRecord is the payload of the pre-migration identity cookie.
type LegacyRecord struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

// LegacyCodec signs and verifies legacy identity cookies.
type LegacyCodec struct {
	secret []byte
}

// NewLegacyCodec returns a codec bound to the legacy signing secret.
func NewLegacyCodec(secret string) *LegacyCodec {
	return &LegacyCodec{secret: []byte(secret)}
}

// Encode produces the cookie value for a record. Retained for the migration
// tooling that re-issues cookies during cutover, and for tests.
func (c *LegacyCodec) Encode(rec LegacyRecord) (string, error) {
	payload, err := json.Marshal(rec)
	if err != nil {
		return "", err
	}
	encoded := base64.RawURLEncoding.EncodeToString(payload)
	return encoded + "." + c.sign(encoded), nil
}

// Decode parses and verifies a cookie value. Every failure mode maps to
// ErrMalformedRecord so the resolver has a single condition to discard on.
func (c *LegacyCodec) Decode(value string) (*LegacyRecord, error) {
	encoded, sig, ok := strings.Cut(value, ".")
	if !ok {
		return nil, ErrMalformedRecord
	}
	if !hmac.Equal([]byte(c.sign(encoded)), []byte(sig)) {
		return nil, fmt.Errorf("%w: signature mismatch", ErrMalformedRecord)
	}
	payload, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	var rec LegacyRecord
	if err := json.Unmarshal(payload, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	if rec.UserID <= 0 {
		return nil, fmt.Errorf("%w: missing user id", ErrMalformedRecord)
	}
	return &rec, nil
}

func (c *LegacyCodec) sign(encoded string) string {
	mac := hmac.New(sha256.New, c.secret)
	_, _ = mac.Write([]byte(encoded))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// ClearLegacyCookie expires the legacy cookie on sign-out so both identity
// sources are reset together.
func ClearLegacyCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     LegacyCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
