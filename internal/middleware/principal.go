package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/language-academy/internal/auth"
)

const principalKey = "principal"

// SessionPrincipal resolves the end-user session of every request and
// stores the result for PrincipalFrom.  It never rejects: anonymous
// callers pass through and the policy engine decides.
func SessionPrincipal(r *auth.Resolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(principalKey, r.Resolve(c.Request()))
			return next(c)
		}
	}
}

// PrincipalFrom returns the principal stored by SessionPrincipal or
// RequireAdminSession, Anonymous when there is none.
func PrincipalFrom(c echo.Context) auth.Principal {
	if p, ok := c.Get(principalKey).(auth.Principal); ok && p != nil {
		return p
	}
	return auth.Anonymous{}
}

// principalLabel identifies the caller in rate limit keys.
func principalLabel(c echo.Context) string {
	p := PrincipalFrom(c)
	if _, ok := p.(auth.Anonymous); ok {
		return "anon"
	}
	return auth.Kind(p) + "-" + p.ID()
}
