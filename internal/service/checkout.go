package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	charmlog "github.com/charmbracelet/log"

	"github.com/iliyamo/language-academy/internal/apperr"
	"github.com/iliyamo/language-academy/internal/auth"
	"github.com/iliyamo/language-academy/internal/billing"
	"github.com/iliyamo/language-academy/internal/metrics"
	"github.com/iliyamo/language-academy/internal/model"
	"github.com/iliyamo/language-academy/internal/repository"
)

// PaymentStore records verified checkouts.
type PaymentStore interface {
	Create(ctx context.Context, p *model.Payment) error
}

// SubscriptionStore writes back provider subscription state.
type SubscriptionStore interface {
	Upsert(ctx context.Context, s model.Subscription) error
}

// Checkout runs the subscription purchase: start a provider session, then
// verify it and enroll.  Verification may be retried by the client; it
// never retries on its own.
type Checkout struct {
	courses       CourseGetter
	bridge        billing.Bridge
	payments      PaymentStore
	subscriptions SubscriptionStore
	enrollments   *Enrollments
	metrics       *metrics.Metrics
	log           *charmlog.Logger
}

func NewCheckout(courses CourseGetter, bridge billing.Bridge, payments PaymentStore, subs SubscriptionStore,
	enrollments *Enrollments, m *metrics.Metrics, log *charmlog.Logger) *Checkout {
	return &Checkout{
		courses:       courses,
		bridge:        bridge,
		payments:      payments,
		subscriptions: subs,
		enrollments:   enrollments,
		metrics:       m,
		log:           log,
	}
}

// Start opens a checkout session for an existing course.
func (s *Checkout) Start(ctx context.Context, u auth.User, courseID uint64) (billing.CheckoutSession, error) {
	c, err := s.courses.GetByID(ctx, courseID)
	switch {
	case errors.Is(err, repository.ErrCourseNotFound):
		return billing.CheckoutSession{}, courseNotFound()
	case err != nil:
		return billing.CheckoutSession{}, apperr.Internal(fmt.Errorf("load course %d: %w", courseID, err))
	}

	sess, err := s.bridge.CreateCheckout(ctx, billing.CheckoutRequest{
		CourseID:    c.ID,
		CourseTitle: c.Title,
		UserID:      u.UserID,
		Email:       u.UserEmail,
	})
	if err != nil {
		s.count("create", "error")
		return billing.CheckoutSession{}, apperr.Internal(err)
	}
	s.count("create", "ok")
	return sess, nil
}

// VerifyResult is what Verify did on success.
type VerifyResult struct {
	SessionID       string
	PaymentRecorded bool
	Enroll          EnrollResult
}

// Verify checks that sessionID was paid by u for courseID, records the
// payment and subscription, then self-enrolls u.
func (s *Checkout) Verify(ctx context.Context, u auth.User, courseID uint64, sessionID string) (VerifyResult, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return VerifyResult{}, apperr.Validation("INVALID_SESSION_ID", "session_id is required")
	}

	sess, err := s.bridge.RetrieveCheckout(ctx, sessionID)
	switch {
	case errors.Is(err, billing.ErrSessionNotFound):
		s.count("retrieve", "not_found")
		return VerifyResult{}, apperr.NotFound("SESSION_NOT_FOUND", "checkout session not found")
	case err != nil:
		s.count("retrieve", "error")
		return VerifyResult{}, apperr.Internal(err)
	}
	s.count("retrieve", "ok")

	if sess.UserID() != u.UserID {
		return VerifyResult{}, apperr.Authorization(apperr.CodeForbidden, "checkout session belongs to another user")
	}
	if sess.CourseID() != courseID {
		return VerifyResult{}, apperr.Validation("COURSE_MISMATCH", "checkout session is for another course")
	}
	if !sess.Paid() {
		return VerifyResult{}, apperr.Validation("PAYMENT_NOT_COMPLETED", "payment not completed")
	}

	out := VerifyResult{SessionID: sess.ID}
	err = s.payments.Create(ctx, &model.Payment{
		UserID:            u.UserID,
		CourseID:          courseID,
		ProviderSessionID: sess.ID,
		AmountCents:       sess.AmountTotal,
		Currency:          sess.Currency,
		Status:            sess.PaymentStatus,
	})
	switch {
	case errors.Is(err, repository.ErrDuplicate):
		// verified before; carry on so a failed enroll can be retried
	case err != nil:
		return VerifyResult{}, apperr.Internal(fmt.Errorf("record payment %s: %w", sess.ID, err))
	default:
		out.PaymentRecorded = true
	}

	if sub := sess.Subscription; sub != nil {
		err := s.subscriptions.Upsert(ctx, model.Subscription{
			UserID:                 u.UserID,
			ProviderSubscriptionID: sub.ID,
			Status:                 sub.Status,
			CurrentPeriodEnd:       sub.CurrentPeriodEnd,
		})
		if err != nil {
			return VerifyResult{}, apperr.Internal(fmt.Errorf("record subscription %s: %w", sub.ID, err))
		}
	}

	out.Enroll, err = s.enrollments.SelfEnroll(ctx, u, courseID)
	if err != nil {
		return VerifyResult{}, err
	}
	s.log.Info("checkout verified", "user_id", u.UserID, "course_id", courseID, "session", sess.ID, "created", out.Enroll.Created)
	return out, nil
}

func (s *Checkout) count(op, result string) {
	s.metrics.CheckoutSessions.WithLabelValues(op, result).Inc()
}
