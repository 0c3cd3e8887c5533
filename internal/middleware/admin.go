package middleware

import (
	"context"
	"errors"

	charmlog "github.com/charmbracelet/log"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/language-academy/internal/apperr"
	"github.com/iliyamo/language-academy/internal/auth"
	"github.com/iliyamo/language-academy/internal/metrics"
	"github.com/iliyamo/language-academy/internal/model"
	"github.com/iliyamo/language-academy/internal/repository"
)

// AdminLookup loads admin accounts.
type AdminLookup interface {
	GetByID(ctx context.Context, id uint64) (model.Admin, error)
}

// RequireAdminSession guards the admin namespace.  Only tokens issued by
// the admin session store are accepted; end-user JWTs are unknown to the
// store and fail like any other bad token.
//
//	missing, unknown or expired token -> 401 UNAUTHORIZED
//	session valid, account disabled   -> 403 ADMIN_REQUIRED
//	store failure                     -> 500
func RequireAdminSession(store auth.AdminSessionStore, admins AdminLookup, m *metrics.Metrics, log *charmlog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := auth.BearerToken(c.Request())
			if !ok {
				m.AdminSessionChecks.WithLabelValues("missing").Inc()
				return unauthorized()
			}

			ctx := c.Request().Context()
			sess, err := store.Validate(ctx, token)
			switch {
			case errors.Is(err, auth.ErrAdminSessionNotFound):
				m.AdminSessionChecks.WithLabelValues("not_found").Inc()
				return unauthorized()
			case errors.Is(err, auth.ErrAdminSessionExpired):
				m.AdminSessionChecks.WithLabelValues("expired").Inc()
				return unauthorized()
			case err != nil:
				m.AdminSessionChecks.WithLabelValues("error").Inc()
				return apperr.Internal(err)
			}

			admin, err := admins.GetByID(ctx, sess.AdminID)
			switch {
			case errors.Is(err, repository.ErrAdminNotFound), err == nil && !admin.IsActive:
				m.AdminSessionChecks.WithLabelValues("inactive").Inc()
				log.Warn("admin session for disabled account", "admin_id", sess.AdminID)
				return apperr.Authorization(apperr.CodeAdminRequired, "admin access required")
			case err != nil:
				m.AdminSessionChecks.WithLabelValues("error").Inc()
				return apperr.Internal(err)
			}

			m.AdminSessionChecks.WithLabelValues("valid").Inc()
			c.Set(principalKey, auth.Admin{AdminID: admin.ID, AdminEmail: admin.Email, SessionToken: token})
			return next(c)
		}
	}
}

func unauthorized() error {
	return apperr.Authentication(apperr.CodeUnauthorized, "invalid or expired admin session")
}
