package policy

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
	"github.com/iliyamo/language-academy/internal/repository"
)

// EnrollmentChecker answers whether a user is enrolled in a course.
type EnrollmentChecker interface {
	Exists(ctx context.Context, userID, courseID uint64) (bool, error)
}

// SubscriptionLister returns every subscription row of a user.
type SubscriptionLister interface {
	ListByUser(ctx context.Context, userID uint64) ([]model.Subscription, error)
}

// LessonLocator walks a lesson up to its course.
type LessonLocator interface {
	Locate(ctx context.Context, lessonID uint64) (model.LessonLocation, error)
}

// Authorizer gathers facts for Decide and records the outcome.  Decisions
// are never cached: every call reads the current state.
type Authorizer struct {
	enrollments   EnrollmentChecker
	subscriptions SubscriptionLister
	lessons       LessonLocator
	metrics       *metrics.Metrics
	log           *charmlog.Logger
	now           func() time.Time
}

func NewAuthorizer(e EnrollmentChecker, s SubscriptionLister, l LessonLocator, m *metrics.Metrics, log *charmlog.Logger) *Authorizer {
	return &Authorizer{
		enrollments:   e,
		subscriptions: s,
		lessons:       l,
		metrics:       m,
		log:           log,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the time source used for subscription checks.
func (a *Authorizer) WithClock(now func() time.Time) *Authorizer {
	a.now = now
	return a
}

// Authorize decides whether p may perform action on res.  A deny is not an
// error: the caller inspects the Decision (or uses Require).  Failures to
// read facts are returned as apperr.Internal.
func (a *Authorizer) Authorize(ctx context.Context, p auth.Principal, action Action, res Resource) (Decision, error) {
	if p == nil {
		p = auth.Anonymous{}
	}
	facts, err := a.facts(ctx, p, action, res)
	if err != nil {
		a.log.Error("policy facts", "principal", auth.Kind(p), "action", action, "resource", res.Kind, "err", err)
		return Decision{}, apperr.Internal(fmt.Errorf("authorize %s %s: %w", action, res.Kind, err))
	}

	d := Decide(p, action, res, facts)
	a.metrics.Decisions.WithLabelValues(auth.Kind(p), string(action), string(res.Kind), d.Outcome(), string(d.Reason)).Inc()
	if !d.Allowed {
		a.log.Debug("policy deny",
			"principal", auth.Kind(p), "id", p.ID(), "action", action,
			"resource", res.Kind, "resource_id", res.ID, "reason", d.Reason)
	}
	return d, nil
}

// Require is Authorize for callers that only care about allow or deny.
func (a *Authorizer) Require(ctx context.Context, p auth.Principal, action Action, res Resource) error {
	d, err := a.Authorize(ctx, p, action, res)
	if err != nil {
		return err
	}
	return d.Err()
}

// LocateLesson resolves the course and visibility flags of a lesson.
func (a *Authorizer) LocateLesson(ctx context.Context, lessonID uint64) (model.LessonLocation, error) {
	loc, err := a.lessons.Locate(ctx, lessonID)
	switch {
	case errors.Is(err, repository.ErrLessonNotFound):
		return model.LessonLocation{}, apperr.NotFound("LESSON_NOT_FOUND", "lesson not found")
	case err != nil:
		return model.LessonLocation{}, apperr.Internal(fmt.Errorf("locate lesson %d: %w", lessonID, err))
	}
	return loc, nil
}

// facts reads only what the matching rule will consult.  Requests that an
// earlier rule settles (invalid ids, public content, anonymous callers)
// touch no store.
func (a *Authorizer) facts(ctx context.Context, p auth.Principal, action Action, res Resource) (Facts, error) {
	f := Facts{Now: a.now()}
	if !idsValid(action, res) {
		return f, nil
	}

	var err error
	switch who := p.(type) {
	case auth.User:
		switch {
		case action == ActionEnroll && res.Kind == ResourceCourse:
			if who.UserID != res.TargetUserID {
				return f, nil
			}
			if f.Subscriptions, err = a.subscriptions.ListByUser(ctx, who.UserID); err != nil {
				return f, err
			}
			if !model.HasActiveSubscription(f.Subscriptions, f.Now) {
				return f, nil
			}
			f.Enrolled, err = a.enrollments.Exists(ctx, who.UserID, res.CourseID)

		case needsEnrollment(action, res):
			f.Enrolled, err = a.enrollments.Exists(ctx, who.UserID, res.CourseID)
		}

	case auth.Admin:
		if action == ActionEnroll && res.Kind == ResourceCourse {
			f.Enrolled, err = a.enrollments.Exists(ctx, res.TargetUserID, res.CourseID)
		}
	}
	return f, err
}

// needsEnrollment mirrors the enrollment-gated rule, excluding content the
// public rules already allow.
func needsEnrollment(action Action, res Resource) bool {
	switch {
	case action == ActionRead && res.Kind.lessonContent():
		return !res.FreePreview
	case action == ActionRead && res.Kind == ResourceProgress,
		action == ActionTrackProgress && res.Kind == ResourceProgress:
		return true
	}
	return false
}
