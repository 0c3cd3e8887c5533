package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/language-academy/internal/apperr"
	"github.com/iliyamo/language-academy/internal/auth"
	"github.com/iliyamo/language-academy/internal/billing"
	"github.com/iliyamo/language-academy/internal/model"
	"github.com/iliyamo/language-academy/internal/service"
)

type Enroller interface {
	SelfEnroll(ctx context.Context, u auth.User, courseID uint64) (service.EnrollResult, error)
	AdminEnroll(ctx context.Context, a auth.Admin, userID, courseID uint64) (service.EnrollResult, error)
}

type CheckoutFlow interface {
	Start(ctx context.Context, u auth.User, courseID uint64) (billing.CheckoutSession, error)
	Verify(ctx context.Context, u auth.User, courseID uint64, sessionID string) (service.VerifyResult, error)
}

type EnrollmentLister interface {
	ListByUser(ctx context.Context, userID uint64) ([]model.EnrolledCourse, error)
}

// EnrollmentHandler serves checkout, payment verification and self-enroll.
type EnrollmentHandler struct {
	Enroll   Enroller
	Checkout CheckoutFlow
	List     EnrollmentLister
}

func NewEnrollmentHandler(e Enroller, co CheckoutFlow, l EnrollmentLister) *EnrollmentHandler {
	return &EnrollmentHandler{Enroll: e, Checkout: co, List: l}
}

type enrollResp struct {
	Enrolled   bool            `json:"enrolled"`
	Created    bool            `json:"created"`
	Enrollment *enrollmentView `json:"enrollment,omitempty"`
}

func toEnrollResp(r service.EnrollResult) enrollResp {
	out := enrollResp{Enrolled: true, Created: r.Created}
	if r.Enrollment != nil {
		v := toEnrollmentView(*r.Enrollment)
		out.Enrollment = &v
	}
	return out
}

func enrollStatus(r service.EnrollResult) int {
	if r.Created {
		return http.StatusCreated
	}
	return http.StatusOK
}

// courseAndUser parses the course id then requires a signed-in student.
func courseAndUser(c echo.Context) (uint64, auth.User, error) {
	id, err := pathID(c, "id")
	if err != nil {
		return 0, auth.User{}, err
	}
	u, err := currentUser(c)
	return id, u, err
}

// StartCheckout opens a subscription checkout for the course.
func (h *EnrollmentHandler) StartCheckout(c echo.Context) error {
	courseID, u, err := courseAndUser(c)
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	sess, err := h.Checkout.Start(ctx, u, courseID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, echo.Map{"session_id": sess.ID, "url": sess.URL})
}

type verifyReq struct {
	SessionID string `json:"session_id"`
}

// VerifyPayment confirms a paid checkout and enrolls the caller.
func (h *EnrollmentHandler) VerifyPayment(c echo.Context) error {
	courseID, u, err := courseAndUser(c)
	if err != nil {
		return err
	}
	var req verifyReq
	if err := c.Bind(&req); err != nil {
		return apperr.Validation(apperr.CodeInvalidBody, "invalid request body")
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	res, err := h.Checkout.Verify(ctx, u, courseID, req.SessionID)
	if err != nil {
		return err
	}
	return c.JSON(enrollStatus(res.Enroll), echo.Map{
		"session_id":       res.SessionID,
		"payment_recorded": res.PaymentRecorded,
		"enrollment":       toEnrollResp(res.Enroll),
	})
}

// SelfEnroll enrolls the caller.  201 when a row was created, 200 when the
// caller was already enrolled.
func (h *EnrollmentHandler) SelfEnroll(c echo.Context) error {
	courseID, u, err := courseAndUser(c)
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	res, err := h.Enroll.SelfEnroll(ctx, u, courseID)
	if err != nil {
		return err
	}
	return c.JSON(enrollStatus(res), toEnrollResp(res))
}

// MyEnrollments lists the caller's courses.
func (h *EnrollmentHandler) MyEnrollments(c echo.Context) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	rows, err := h.List.ListByUser(ctx, u.UserID)
	if err != nil {
		return apperr.Internal(fmt.Errorf("list enrollments of user %d: %w", u.UserID, err))
	}
	out := make([]enrollmentView, 0, len(rows))
	for _, r := range rows {
		v := toEnrollmentView(r.Enrollment)
		v.CourseTitle = r.CourseTitle
		out = append(out, v)
	}
	return c.JSON(http.StatusOK, echo.Map{"enrollments": out})
}
