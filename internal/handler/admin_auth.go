package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/language-academy/internal/apperr"
	"github.com/iliyamo/language-academy/internal/auth"
	"github.com/iliyamo/language-academy/internal/middleware"
	"github.com/iliyamo/language-academy/internal/model"
	"github.com/iliyamo/language-academy/internal/repository"
	"github.com/iliyamo/language-academy/internal/utils"
)

// AdminAccounts loads rows of the admins table.
type AdminAccounts interface {
	GetByEmail(ctx context.Context, email string) (model.Admin, error)
}

// AdminAuthHandler issues and revokes admin sessions.
type AdminAuthHandler struct {
	Admins   AdminAccounts
	Sessions auth.AdminSessionStore
	Hasher   utils.Hasher
	Log      *charmlog.Logger
}

func NewAdminAuthHandler(a AdminAccounts, s auth.AdminSessionStore, h utils.Hasher, log *charmlog.Logger) *AdminAuthHandler {
	return &AdminAuthHandler{Admins: a, Sessions: s, Hasher: h, Log: log}
}

type adminView struct {
	ID    uint64 `json:"id"`
	Email string `json:"email"`
}

type adminLoginResp struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Admin     adminView `json:"admin"`
}

// Login checks admin credentials and opens a session.  Unknown email,
// wrong password and disabled accounts all answer INVALID_CREDENTIALS.
func (h *AdminAuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bind(c, &req); err != nil {
		return err
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	a, err := h.Admins.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if errors.Is(err, repository.ErrAdminNotFound) {
		return invalidCredentials()
	}
	if err != nil {
		return apperr.Internal(fmt.Errorf("load admin: %w", err))
	}
	if !a.IsActive || !h.Hasher.Verify(req.Password, a.PasswordHash) {
		h.Log.Warn("admin login rejected", "admin_id", a.ID, "ip", c.RealIP())
		return invalidCredentials()
	}

	sess, err := h.Sessions.Create(ctx, auth.AdminIdentity{ID: a.ID, Email: a.Email}, c.RealIP(), c.Request().UserAgent())
	if err != nil {
		return apperr.Internal(fmt.Errorf("create admin session: %w", err))
	}
	h.Log.Info("admin logged in", "admin_id", a.ID, "ip", sess.IPAddress)
	return c.JSON(http.StatusOK, adminLoginResp{
		Token:     sess.Token,
		ExpiresAt: sess.ExpiresAt,
		Admin:     adminView{ID: a.ID, Email: a.Email},
	})
}

// Logout revokes the session the request was authenticated with.
func (h *AdminAuthHandler) Logout(c echo.Context) error {
	a, err := currentAdmin(c)
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	if err := h.Sessions.Revoke(ctx, a.SessionToken); err != nil {
		return apperr.Internal(fmt.Errorf("revoke admin session: %w", err))
	}
	return c.NoContent(http.StatusNoContent)
}

// Me returns the admin behind the session.
func (h *AdminAuthHandler) Me(c echo.Context) error {
	a, err := currentAdmin(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, adminView{ID: a.AdminID, Email: a.AdminEmail})
}

func currentAdmin(c echo.Context) (auth.Admin, error) {
	if a, ok := middleware.PrincipalFrom(c).(auth.Admin); ok {
		return a, nil
	}
	return auth.Admin{}, apperr.Authentication(apperr.CodeUnauthorized, "invalid or expired admin session")
}
