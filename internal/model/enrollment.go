package model

import "time"

// Enrollment links a user to a course.  The pair (UserID, CourseID) is
// unique; the database enforces it with a unique key.
type Enrollment struct {
	ID          uint64     // enrollments.id
	UserID      uint64     // enrollments.user_id
	CourseID    uint64     // enrollments.course_id
	EnrolledAt  time.Time  // enrollments.enrolled_at
	CompletedAt *time.Time // enrollments.completed_at (nullable)
}

// Subscription status values written back by the billing bridge.
const (
	SubscriptionActive     = "active"
	SubscriptionCanceled   = "canceled"
	SubscriptionPastDue    = "past_due"
	SubscriptionIncomplete = "incomplete"
	SubscriptionTrialing   = "trialing"
	SubscriptionUnpaid     = "unpaid"
)

// Subscription is one billing period record for a user.  Several rows may
// exist per user (renewals, cancellations); access is decided by Active,
// never by picking the most recent row.
type Subscription struct {
	ID                     uint64    // subscriptions.id
	UserID                 uint64    // subscriptions.user_id
	ProviderSubscriptionID string    // subscriptions.provider_subscription_id
	Status                 string    // subscriptions.status
	CurrentPeriodEnd       time.Time // subscriptions.current_period_end
	CreatedAt              time.Time // subscriptions.created_at
	UpdatedAt              time.Time // subscriptions.updated_at
}

// Active reports whether the subscription grants access at now.  The period
// end is inclusive: a period ending exactly at now is still active.
func (s Subscription) Active(now time.Time) bool {
	return s.Status == SubscriptionActive && !s.CurrentPeriodEnd.Before(now)
}

// HasActiveSubscription reports whether any of subs is active at now.
func HasActiveSubscription(subs []Subscription, now time.Time) bool {
	for _, s := range subs {
		if s.Active(now) {
			return true
		}
	}
	return false
}

// Payment records a verified checkout.
type Payment struct {
	ID                uint64    // payments.id
	UserID            uint64    // payments.user_id
	CourseID          uint64    // payments.course_id
	ProviderSessionID string    // payments.provider_session_id
	AmountCents       int64     // payments.amount_cents
	Currency          string    // payments.currency
	Status            string    // payments.status
	CreatedAt         time.Time // payments.created_at
}

// AdminSession is an opaque bearer session for the admin surface.
// IPAddress and UserAgent are recorded for audit only; requests are not
// bound to them.  Sessions are immutable once issued.
type AdminSession struct {
	Token     string    `json:"-"`
	AdminID   uint64    `json:"admin_id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	IPAddress string    `json:"ip_address"`
	UserAgent string    `json:"user_agent"`
}

// ValidAt reports whether the session has not yet expired at now.
func (s AdminSession) ValidAt(now time.Time) bool {
	return now.Before(s.ExpiresAt)
}

// EnrolledCourse is an enrollment joined with its course title, as listed
// on the student dashboard.
type EnrolledCourse struct {
	Enrollment
	CourseTitle string
}
