package policy

import (
	"github.com/iliyamo/language-academy/internal/auth"
	"github.com/iliyamo/language-academy/internal/model"
)

// Decide evaluates one request against the entitlement rules.  The rules
// are ordered from most to least specific and the first match wins:
//
//  0. ids the action needs must be positive (INVALID_ID)
//  1. admin principal + admin-namespaced action -> allow
//  2. read of a published course -> allow for everyone
//  3. read of free-preview lesson content -> allow for everyone
//  4. anonymous -> AUTHENTICATION_REQUIRED
//  5. end-user principal + admin-namespaced action -> ADMIN_REQUIRED
//  6. read lesson content / progress, track progress -> enrolled or NOT_ENROLLED
//  7. self-enroll -> active subscription required; existing enrollment is a no-op
//  8. admin enroll -> no subscription check; existing enrollment is ALREADY_ENROLLED
//  9. anything else -> FORBIDDEN
//
// Decide performs no I/O and is safe for concurrent use.
func Decide(p auth.Principal, action Action, res Resource, facts Facts) Decision {
	if p == nil {
		p = auth.Anonymous{}
	}
	if !idsValid(action, res) {
		return deny(ReasonInvalidID)
	}

	if _, ok := p.(auth.Admin); ok && action.AdminNamespaced() {
		return allow()
	}

	if action == ActionRead && res.Kind == ResourceCourse && res.CoursePublished {
		return allow()
	}

	if action == ActionRead && res.Kind.lessonContent() && res.FreePreview {
		return allow()
	}

	if _, ok := p.(auth.Anonymous); ok {
		return deny(ReasonAuthenticationRequired)
	}

	if _, ok := p.(auth.User); ok && action.AdminNamespaced() {
		return deny(ReasonAdminRequired)
	}

	switch {
	case action == ActionRead && (res.Kind.lessonContent() || res.Kind == ResourceProgress),
		action == ActionTrackProgress && res.Kind == ResourceProgress:
		if _, ok := p.(auth.User); !ok {
			return deny(ReasonForbidden)
		}
		if !facts.Enrolled {
			return deny(ReasonNotEnrolled)
		}
		return allow()

	case action == ActionEnroll && res.Kind == ResourceCourse:
		switch who := p.(type) {
		case auth.User:
			if who.UserID != res.TargetUserID {
				return deny(ReasonForbidden)
			}
			if !model.HasActiveSubscription(facts.Subscriptions, facts.Now) {
				return deny(ReasonSubscriptionRequired)
			}
			if facts.Enrolled {
				return Decision{Allowed: true, NoOp: true}
			}
			return allow()
		case auth.Admin:
			if facts.Enrolled {
				return deny(ReasonAlreadyEnrolled)
			}
			return allow()
		}
	}

	return deny(ReasonForbidden)
}

// idsValid checks the precondition that every id the action relies on is
// positive.  Collection level admin actions may omit the resource id.
func idsValid(action Action, res Resource) bool {
	switch {
	case action == ActionEnroll:
		return res.CourseID > 0 && res.TargetUserID > 0
	case res.Kind.lessonContent() && !action.AdminNamespaced():
		return res.ID > 0 && res.CourseID > 0
	case res.Kind == ResourceCourse || res.Kind == ResourceProgress:
		if action.AdminNamespaced() {
			return adminIDValid(action, res.ID)
		}
		return res.CourseID > 0
	case action.AdminNamespaced():
		return adminIDValid(action, res.ID)
	}
	return true
}

func adminIDValid(action Action, id uint64) bool {
	switch action {
	case ActionCreate, ActionList:
		return true
	}
	return id > 0
}
