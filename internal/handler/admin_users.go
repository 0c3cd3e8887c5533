package handler

import (
	"context"
	"fmt"
	"net/http"

	charmlog "github.com/charmbracelet/log"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/language-academy/internal/apperr"
	"github.com/iliyamo/language-academy/internal/middleware"
	"github.com/iliyamo/language-academy/internal/model"
	"github.com/iliyamo/language-academy/internal/policy"
	"github.com/iliyamo/language-academy/internal/repository"
	"github.com/iliyamo/language-academy/internal/utils"
)

type UserAdminStore interface {
	Search(ctx context.Context, s repository.UserSearch) ([]model.User, int64, error)
	UpdatePassword(ctx context.Context, id uint64, passwordHash string) error
}

type RefreshRevoker interface {
	RevokeAllForUser(ctx context.Context, userID uint64) error
}

type PaymentLister interface {
	List(ctx context.Context, f repository.PaymentFilter) ([]model.Payment, int64, error)
}

// AdminUserHandler serves user management and payment listings.
type AdminUserHandler struct {
	Users    UserAdminStore
	Tokens   RefreshRevoker
	Payments PaymentLister
	Enroll   Enroller
	Hasher   utils.Hasher
	Gate     Gate
	Log      *charmlog.Logger
}

func NewAdminUserHandler(u UserAdminStore, t RefreshRevoker, p PaymentLister, e Enroller, h utils.Hasher, g Gate, log *charmlog.Logger) *AdminUserHandler {
	return &AdminUserHandler{Users: u, Tokens: t, Payments: p, Enroll: e, Hasher: h, Gate: g, Log: log}
}

// SearchUsers lists users matching ?q= on email or name.
func (h *AdminUserHandler) SearchUsers(c echo.Context) error {
	pg, err := policy.ParsePage(c.QueryParam("limit"), c.QueryParam("offset"))
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	if err := h.Gate.Require(ctx, middleware.PrincipalFrom(c), policy.ActionList, policy.AdminResource(policy.ResourceUser, 0)); err != nil {
		return err
	}

	users, total, err := h.Users.Search(ctx, repository.UserSearch{Query: c.QueryParam("q"), Limit: pg.Limit, Offset: pg.Offset})
	if err != nil {
		return storeErr(err, "search users")
	}
	out := page[userView]{Items: make([]userView, 0, len(users)), Total: total, Limit: pg.Limit, Offset: pg.Offset}
	for _, u := range users {
		out.Items = append(out.Items, toUserView(u))
	}
	return c.JSON(http.StatusOK, out)
}

type resetPasswordReq struct {
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// ResetPassword sets a new password and signs the user out everywhere.
func (h *AdminUserHandler) ResetPassword(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req resetPasswordReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	p := middleware.PrincipalFrom(c)
	if err := h.Gate.Require(ctx, p, policy.ActionResetPassword, policy.AdminResource(policy.ResourceUser, id)); err != nil {
		return err
	}

	hash, err := h.Hasher.Hash(req.Password)
	if err != nil {
		return apperr.Internal(fmt.Errorf("hash password: %w", err))
	}
	if err := h.Users.UpdatePassword(ctx, id, hash); err != nil {
		return storeErr(err, "update password")
	}
	if err := h.Tokens.RevokeAllForUser(ctx, id); err != nil {
		return apperr.Internal(fmt.Errorf("revoke refresh tokens of user %d: %w", id, err))
	}
	h.Log.Info("password reset", "user_id", id, "admin_id", p.ID())
	return c.NoContent(http.StatusNoContent)
}

type adminEnrollReq struct {
	CourseID uint64 `json:"course_id"`
}

// EnrollUser enrolls the user in the path without a subscription check.
func (h *AdminUserHandler) EnrollUser(c echo.Context) error {
	userID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req adminEnrollReq
	if err := c.Bind(&req); err != nil {
		return apperr.Validation(apperr.CodeInvalidBody, "invalid request body")
	}
	if req.CourseID == 0 {
		return apperr.Validation(apperr.CodeInvalidID, "invalid id")
	}
	a, err := currentAdmin(c)
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	res, err := h.Enroll.AdminEnroll(ctx, a, userID, req.CourseID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toEnrollResp(res))
}

// ListPayments lists recorded payments, optionally for one ?user_id=.
func (h *AdminUserHandler) ListPayments(c echo.Context) error {
	pg, err := policy.ParsePage(c.QueryParam("limit"), c.QueryParam("offset"))
	if err != nil {
		return err
	}
	var userID uint64
	if raw := c.QueryParam("user_id"); raw != "" {
		if userID, err = policy.ParseID(raw); err != nil {
			return err
		}
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	if err := h.Gate.Require(ctx, middleware.PrincipalFrom(c), policy.ActionList, policy.AdminResource(policy.ResourcePayment, 0)); err != nil {
		return err
	}

	items, total, err := h.Payments.List(ctx, repository.PaymentFilter{UserID: userID, Limit: pg.Limit, Offset: pg.Offset})
	if err != nil {
		return storeErr(err, "list payments")
	}
	out := page[paymentView]{Items: make([]paymentView, 0, len(items)), Total: total, Limit: pg.Limit, Offset: pg.Offset}
	for _, p := range items {
		out.Items = append(out.Items, toPaymentView(p))
	}
	return c.JSON(http.StatusOK, out)
}
