// Package policy is the entitlement engine.  Decide is a pure function of
// (principal, action, resource, facts); Authorizer gathers the facts from
// the data stores and is the single entry point handlers call.
package policy

import (
	"time"

	"github.com/iliyamo/language-academy/internal/apperr"
	"github.com/iliyamo/language-academy/internal/model"
)

// Action is what the caller wants to do with a resource.
type Action string

const (
	ActionRead          Action = "read"
	ActionEnroll        Action = "enroll"
	ActionTrackProgress Action = "track_progress"

	ActionCreate        Action = "create"
	ActionUpdate        Action = "update"
	ActionDelete        Action = "delete"
	ActionReorder       Action = "reorder"
	ActionList          Action = "list"
	ActionResetPassword Action = "reset_password"
)

// AdminNamespaced reports whether the action belongs to the admin surface.
func (a Action) AdminNamespaced() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete, ActionReorder, ActionList, ActionResetPassword:
		return true
	}
	return false
}

// ResourceKind names the type of the target resource.
type ResourceKind string

const (
	ResourceCourse         ResourceKind = "course"
	ResourceModule         ResourceKind = "module"
	ResourceLesson         ResourceKind = "lesson"
	ResourceLessonMaterial ResourceKind = "lesson_material"
	ResourceQuiz           ResourceKind = "quiz"
	ResourceProgress       ResourceKind = "progress"
	ResourceUser           ResourceKind = "user"
	ResourcePayment        ResourceKind = "payment"
	ResourceEnrollment     ResourceKind = "enrollment"
)

// lessonContent reports whether the kind is content hanging off a lesson.
func (k ResourceKind) lessonContent() bool {
	return k == ResourceLesson || k == ResourceLessonMaterial || k == ResourceQuiz
}

// Resource describes the target of an action.  Only the fields relevant to
// the kind are set: CourseID for anything course scoped (lesson content is
// resolved to its course through LessonLocation), TargetUserID for enroll.
type Resource struct {
	Kind            ResourceKind
	ID              uint64
	CourseID        uint64
	CoursePublished bool
	FreePreview     bool
	TargetUserID    uint64
}

// CourseResource builds the resource for a course level action.
func CourseResource(c model.Course) Resource {
	return Resource{Kind: ResourceCourse, ID: c.ID, CourseID: c.ID, CoursePublished: c.IsPublished}
}

// LessonResource builds the resource for lesson content from its location.
func LessonResource(kind ResourceKind, loc model.LessonLocation) Resource {
	return Resource{
		Kind:            kind,
		ID:              loc.LessonID,
		CourseID:        loc.CourseID,
		CoursePublished: loc.CoursePublished,
		FreePreview:     loc.FreePreview,
	}
}

// EnrollResource builds the resource for enrolling targetUserID in courseID.
func EnrollResource(courseID, targetUserID uint64) Resource {
	return Resource{Kind: ResourceCourse, ID: courseID, CourseID: courseID, TargetUserID: targetUserID}
}

// AdminResource builds the resource for an admin-namespace action.  id may
// be zero for collection level actions (list, create).
func AdminResource(kind ResourceKind, id uint64) Resource {
	return Resource{Kind: kind, ID: id}
}

// Facts is the data-store state a decision depends on.
type Facts struct {
	Enrolled      bool
	Subscriptions []model.Subscription
	Now           time.Time
}

// Reason explains a decision.  Empty for plain allows.
type Reason string

const (
	ReasonNone                   Reason = ""
	ReasonInvalidID              Reason = apperr.CodeInvalidID
	ReasonAuthenticationRequired Reason = apperr.CodeAuthenticationRequired
	ReasonAdminRequired          Reason = apperr.CodeAdminRequired
	ReasonNotEnrolled            Reason = apperr.CodeNotEnrolled
	ReasonSubscriptionRequired   Reason = apperr.CodeSubscriptionRequired
	ReasonAlreadyEnrolled        Reason = apperr.CodeAlreadyEnrolled
	ReasonForbidden              Reason = apperr.CodeForbidden
)

// Decision is the outcome of Decide.  NoOp marks an allowed action whose
// effect already exists (self-enroll on an existing enrollment).
type Decision struct {
	Allowed bool
	Reason  Reason
	NoOp    bool
}

func allow() Decision { return Decision{Allowed: true} }

func deny(reason Reason) Decision { return Decision{Reason: reason} }

// Outcome is a short label for logs and metrics.
func (d Decision) Outcome() string {
	switch {
	case d.NoOp:
		return "noop"
	case d.Allowed:
		return "allow"
	default:
		return "deny"
	}
}

// Err converts a deny into the matching *apperr.Error; nil when allowed.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	code := string(d.Reason)
	switch d.Reason {
	case ReasonInvalidID:
		return apperr.Validation(code, "invalid id")
	case ReasonAuthenticationRequired:
		return apperr.Authentication(code, "authentication required")
	case ReasonAdminRequired:
		return apperr.Authorization(code, "admin access required")
	case ReasonNotEnrolled:
		return apperr.Authorization(code, "enrollment required")
	case ReasonSubscriptionRequired:
		return apperr.Authorization(code, "active subscription required")
	case ReasonAlreadyEnrolled:
		return apperr.Conflict(code, "user is already enrolled in this course")
	default:
		return apperr.Authorization(apperr.CodeForbidden, "forbidden")
	}
}
