// Package service holds the multi-step flows that sit between handlers and
// repositories: enrolling (self and admin), subscription checkout and the
// admin reorder loop.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	charmlog "github.com/charmbracelet/log"

	"github.com/iliyamo/language-academy/internal/apperr"
	"github.com/iliyamo/language-academy/internal/auth"
	"github.com/iliyamo/language-academy/internal/metrics"
	"github.com/iliyamo/language-academy/internal/model"
	"github.com/iliyamo/language-academy/internal/policy"
	"github.com/iliyamo/language-academy/internal/queue"
	"github.com/iliyamo/language-academy/internal/repository"
)

// CourseGetter loads a course by id.
type CourseGetter interface {
	GetByID(ctx context.Context, id uint64) (model.Course, error)
}

// UserGetter loads a user by id.
type UserGetter interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// EnrollmentStore creates enrollments.
type EnrollmentStore interface {
	Create(ctx context.Context, userID, courseID uint64) (model.Enrollment, error)
}

// EventPublisher publishes enrollment events.
type EventPublisher interface {
	PublishEnrollmentCreated(ctx context.Context, ev queue.EnrollmentCreatedEvent) error
}

// Authorizer is the subset of policy.Authorizer the services need.
type Authorizer interface {
	Authorize(ctx context.Context, p auth.Principal, action policy.Action, res policy.Resource) (policy.Decision, error)
}

// EnrollResult reports what an enroll call did.  Created is false for an
// idempotent self-enroll on an existing enrollment.
type EnrollResult struct {
	Enrollment *model.Enrollment
	Created    bool
}

// Enrollments runs both enrollment paths.  The policy decides; the unique
// key on (user_id, course_id) settles races.
type Enrollments struct {
	courses     CourseGetter
	users       UserGetter
	enrollments EnrollmentStore
	authz       Authorizer
	events      EventPublisher
	metrics     *metrics.Metrics
	log         *charmlog.Logger
}

func NewEnrollments(courses CourseGetter, users UserGetter, enrollments EnrollmentStore, authz Authorizer,
	events EventPublisher, m *metrics.Metrics, log *charmlog.Logger) *Enrollments {
	return &Enrollments{
		courses:     courses,
		users:       users,
		enrollments: enrollments,
		authz:       authz,
		events:      events,
		metrics:     m,
		log:         log,
	}
}

// SelfEnroll enrolls the caller in an existing course.  An active
// subscription is required and a repeated call succeeds without creating a
// second row.  Publication plays no part in the decision.
func (s *Enrollments) SelfEnroll(ctx context.Context, u auth.User, courseID uint64) (EnrollResult, error) {
	course, err := s.course(ctx, courseID)
	if err != nil {
		return EnrollResult{}, err
	}
	d, err := s.authz.Authorize(ctx, u, policy.ActionEnroll, policy.EnrollResource(courseID, u.UserID))
	if err != nil {
		return EnrollResult{}, err
	}
	if !d.Allowed {
		s.count(queue.InitiatorSelf, "denied")
		return EnrollResult{}, d.Err()
	}
	if d.NoOp {
		s.count(queue.InitiatorSelf, "noop")
		return EnrollResult{}, nil
	}

	e, err := s.enrollments.Create(ctx, u.UserID, courseID)
	switch {
	case errors.Is(err, repository.ErrDuplicate):
		// lost a race with a concurrent self-enroll
		s.count(queue.InitiatorSelf, "noop")
		return EnrollResult{}, nil
	case errors.Is(err, repository.ErrCourseNotFound):
		return EnrollResult{}, courseNotFound()
	case err != nil:
		s.count(queue.InitiatorSelf, "error")
		return EnrollResult{}, apperr.Internal(fmt.Errorf("create enrollment: %w", err))
	}
	s.count(queue.InitiatorSelf, "created")
	s.publish(ctx, e, course, queue.InitiatorSelf, u.UserID)
	return EnrollResult{Enrollment: &e, Created: true}, nil
}

// AdminEnroll enrolls userID on behalf of an admin.  No subscription is
// needed; an existing enrollment is ALREADY_ENROLLED.
func (s *Enrollments) AdminEnroll(ctx context.Context, a auth.Admin, userID, courseID uint64) (EnrollResult, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return EnrollResult{}, apperr.NotFound("USER_NOT_FOUND", "user not found")
		}
		return EnrollResult{}, apperr.Internal(fmt.Errorf("load user %d: %w", userID, err))
	}
	course, err := s.course(ctx, courseID)
	if err != nil {
		return EnrollResult{}, err
	}
	d, err := s.authz.Authorize(ctx, a, policy.ActionEnroll, policy.EnrollResource(courseID, userID))
	if err != nil {
		return EnrollResult{}, err
	}
	if !d.Allowed {
		s.count(queue.InitiatorAdmin, "denied")
		return EnrollResult{}, d.Err()
	}

	e, err := s.enrollments.Create(ctx, userID, courseID)
	switch {
	case errors.Is(err, repository.ErrDuplicate):
		s.count(queue.InitiatorAdmin, "denied")
		return EnrollResult{}, policy.Decision{Reason: policy.ReasonAlreadyEnrolled}.Err()
	case errors.Is(err, repository.ErrCourseNotFound):
		return EnrollResult{}, courseNotFound()
	case err != nil:
		s.count(queue.InitiatorAdmin, "error")
		return EnrollResult{}, apperr.Internal(fmt.Errorf("create enrollment: %w", err))
	}
	s.count(queue.InitiatorAdmin, "created")
	s.publish(ctx, e, course, queue.InitiatorAdmin, a.AdminID)
	return EnrollResult{Enrollment: &e, Created: true}, nil
}

func (s *Enrollments) course(ctx context.Context, id uint64) (model.Course, error) {
	c, err := s.courses.GetByID(ctx, id)
	switch {
	case errors.Is(err, repository.ErrCourseNotFound):
		return model.Course{}, courseNotFound()
	case err != nil:
		return model.Course{}, apperr.Internal(fmt.Errorf("load course %d: %w", id, err))
	}
	return c, nil
}

// publish never fails the request: the enrollment is already committed.
func (s *Enrollments) publish(ctx context.Context, e model.Enrollment, c model.Course, initiator string, actorID uint64) {
	if s.events == nil {
		return
	}
	at := e.EnrolledAt
	if at.IsZero() {
		at = time.Now()
	}
	ev := queue.NewEnrollmentCreated(e.ID, e.UserID, e.CourseID, c.Title, initiator, actorID, at)
	if err := s.events.PublishEnrollmentCreated(ctx, ev); err != nil {
		s.metrics.EventPublishErrors.Inc()
		s.log.Warn("enrollment event not published", "enrollment_id", e.ID, "err", err)
	}
}

func (s *Enrollments) count(initiator, result string) {
	s.metrics.Enrollments.WithLabelValues(initiator, result).Inc()
}

func courseNotFound() error { return apperr.NotFound("COURSE_NOT_FOUND", "course not found") }
