package auth

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/iliyamo/language-academy/internal/utils"
)

// DefaultSessionCookie is the cookie that carries the end-user access token
// for browser clients.
const DefaultSessionCookie = "session"

// Resolver turns end-user credentials into a Principal.  It checks the
// Authorization bearer header first and falls back to the session cookie.
type Resolver struct {
	secret     string
	cookieName string
}

// NewResolver builds a resolver for tokens signed with secret.
func NewResolver(secret, cookieName string) *Resolver {
	if cookieName == "" {
		cookieName = DefaultSessionCookie
	}
	return &Resolver{secret: secret, cookieName: cookieName}
}

// Resolve never fails: missing, malformed, expired or foreign tokens all
// yield Anonymous.  It has no side effects.
func (r *Resolver) Resolve(req *http.Request) Principal {
	raw := r.credential(req)
	if raw == "" {
		return Anonymous{}
	}
	claims, err := utils.ParseAccessToken(r.secret, raw)
	if err != nil || claims.Type != utils.TokenTypeUser {
		return Anonymous{}
	}
	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || id == 0 {
		return Anonymous{}
	}
	return User{UserID: id, UserEmail: claims.Email, IsAdmin: claims.IsAdmin}
}

func (r *Resolver) credential(req *http.Request) string {
	if tok, ok := BearerToken(req); ok {
		return tok
	}
	if c, err := req.Cookie(r.cookieName); err == nil {
		return strings.TrimSpace(c.Value)
	}
	return ""
}

// BearerToken extracts the token from an `Authorization: Bearer` header.
func BearerToken(req *http.Request) (string, bool) {
	h := req.Header.Get("Authorization")
	if len(h) < 7 || !strings.EqualFold(h[:7], "Bearer ") {
		return "", false
	}
	tok := strings.TrimSpace(h[7:])
	return tok, tok != ""
}
