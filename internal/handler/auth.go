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

// UserStore is the subset of the user repository the auth endpoints need.
type UserStore interface {
	Create(ctx context.Context, email, name, passwordHash string) (uint64, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// TokenStore persists hashed refresh tokens.
type TokenStore interface {
	StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error)
	RevokeByHash(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID uint64) error
}

// AuthConfig carries the token settings of the end-user auth endpoints.
type AuthConfig struct {
	JWTSecret      string
	AccessTTLMin   int
	RefreshTTLDays int
	CookieName     string
	SecureCookie   bool
}

// AuthHandler bundles dependencies for end-user auth endpoints.
type AuthHandler struct {
	Cfg    AuthConfig
	Users  UserStore
	Tokens TokenStore
	Hasher utils.Hasher
	Log    *charmlog.Logger
}

func NewAuthHandler(cfg AuthConfig, u UserStore, t TokenStore, h utils.Hasher, log *charmlog.Logger) *AuthHandler {
	if cfg.CookieName == "" {
		cfg.CookieName = auth.DefaultSessionCookie
	}
	return &AuthHandler{Cfg: cfg, Users: u, Tokens: t, Hasher: h, Log: log}
}

// ----- DTOs -----

type registerReq struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Name     string `json:"name" validate:"required,max=100"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}
type loginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type authResp struct {
	User    userView  `json:"user"`
	Access  tokenPart `json:"access"`
	Refresh tokenPart `json:"refresh"`
}

func invalidCredentials() error {
	return apperr.Authentication("INVALID_CREDENTIALS", "invalid credentials")
}

// Register creates a student account and logs it in.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := bind(c, &req); err != nil {
		return err
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)

	ctx, cancel := withTimeout(c)
	defer cancel()

	hash, err := h.Hasher.Hash(req.Password)
	if err != nil {
		return apperr.Internal(fmt.Errorf("hash password: %w", err))
	}
	uid, err := h.Users.Create(ctx, req.Email, req.Name, hash)
	if errors.Is(err, repository.ErrEmailExists) {
		return apperr.Validation("EMAIL_EXISTS", "email already exists")
	}
	if err != nil {
		return apperr.Internal(fmt.Errorf("create user: %w", err))
	}

	u := model.User{ID: uid, Email: req.Email, Name: req.Name, IsActive: true}
	resp, err := h.issue(ctx, c, u)
	if err != nil {
		return err
	}
	h.Log.Info("user registered", "user_id", uid)
	return c.JSON(http.StatusCreated, resp)
}

// Login verifies credentials and returns a fresh token pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bind(c, &req); err != nil {
		return err
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if errors.Is(err, repository.ErrUserNotFound) {
		return invalidCredentials()
	}
	if err != nil {
		return apperr.Internal(fmt.Errorf("load user: %w", err))
	}
	if !h.Hasher.Verify(req.Password, u.PasswordHash) {
		return invalidCredentials()
	}
	if !u.IsActive {
		return apperr.Authorization("ACCOUNT_DISABLED", "account is disabled")
	}

	resp, err := h.issue(ctx, c, u)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

// Refresh rotates a refresh token: the presented one is revoked and a new
// pair is issued.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return apperr.Validation(apperr.CodeInvalidBody, "refresh_token required")
	}
	hash := utils.HashToken(strings.TrimSpace(req.RefreshToken))

	ctx, cancel := withTimeout(c)
	defer cancel()

	userID, err := h.Tokens.ValidateRefresh(ctx, hash)
	if errors.Is(err, repository.ErrRefreshNotFound) {
		return apperr.Authentication("INVALID_REFRESH", "invalid refresh token")
	}
	if err != nil {
		return apperr.Internal(fmt.Errorf("validate refresh: %w", err))
	}
	u, err := h.Users.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrUserNotFound) || (err == nil && !u.IsActive) {
		return apperr.Authentication("INVALID_REFRESH", "invalid refresh token")
	}
	if err != nil {
		return apperr.Internal(fmt.Errorf("load user: %w", err))
	}
	if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
		return apperr.Internal(fmt.Errorf("revoke refresh: %w", err))
	}

	resp, err := h.issue(ctx, c, u)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

// Logout revokes the given refresh token, or every refresh token of the
// signed-in user when none is given.  The session cookie is always cleared.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	_ = c.Bind(&req)
	raw := strings.TrimSpace(req.RefreshToken)

	ctx, cancel := withTimeout(c)
	defer cancel()

	u, signedIn := middleware.PrincipalFrom(c).(auth.User)
	switch {
	case raw != "":
		hash := utils.HashToken(raw)
		if _, err := h.Tokens.ValidateRefresh(ctx, hash); err != nil {
			if errors.Is(err, repository.ErrRefreshNotFound) {
				return apperr.Authentication("INVALID_REFRESH", "invalid refresh token")
			}
			return apperr.Internal(fmt.Errorf("validate refresh: %w", err))
		}
		if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
			return apperr.Internal(fmt.Errorf("revoke refresh: %w", err))
		}
	case signedIn:
		if err := h.Tokens.RevokeAllForUser(ctx, u.UserID); err != nil {
			return apperr.Internal(fmt.Errorf("revoke refresh tokens: %w", err))
		}
	default:
		return apperr.Validation(apperr.CodeInvalidBody, "provide Authorization header or refresh_token")
	}

	c.SetCookie(h.cookie("", time.Unix(0, 0)))
	return c.NoContent(http.StatusNoContent)
}

// Me returns the signed-in student.
func (h *AuthHandler) Me(c echo.Context) error {
	p, err := currentUser(c)
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, p.UserID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return apperr.Authentication(apperr.CodeAuthenticationRequired, "authentication required")
	}
	if err != nil {
		return apperr.Internal(fmt.Errorf("load user: %w", err))
	}
	return c.JSON(http.StatusOK, toUserView(u))
}

// issue signs an access token, stores a new refresh token and sets the
// session cookie.
func (h *AuthHandler) issue(ctx context.Context, c echo.Context, u model.User) (authResp, error) {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Email, u.IsAdmin, h.Cfg.AccessTTLMin)
	if err != nil {
		return authResp{}, apperr.Internal(fmt.Errorf("issue access token: %w", err))
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return authResp{}, apperr.Internal(fmt.Errorf("issue refresh token: %w", err))
	}
	if err := h.Tokens.StoreRefresh(ctx, u.ID, utils.HashToken(refresh.Raw), refresh.Exp); err != nil {
		return authResp{}, apperr.Internal(fmt.Errorf("store refresh token: %w", err))
	}
	c.SetCookie(h.cookie(access.Token, access.Exp))
	return authResp{
		User:    toUserView(u),
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp},
	}, nil
}

func (h *AuthHandler) cookie(value string, exp time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     h.Cfg.CookieName,
		Value:    value,
		Path:     "/",
		Expires:  exp,
		HttpOnly: true,
		Secure:   h.Cfg.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	}
}

// currentUser returns the end-user principal or AUTHENTICATION_REQUIRED.
func currentUser(c echo.Context) (auth.User, error) {
	if u, ok := middleware.PrincipalFrom(c).(auth.User); ok {
		return u, nil
	}
	return auth.User{}, apperr.Authentication(apperr.CodeAuthenticationRequired, "authentication required")
}
