// Package billing is the bridge to the payment provider.  The rest of the
// service sees only Bridge: a checkout session can be created for a course
// and later retrieved to confirm payment.
package billing

import (
	"context"
	"errors"
	"strconv"
	"time"
)

// Metadata keys stamped on every checkout session.
const (
	MetaCourseID = "courseId"
	MetaUserID   = "userId"
)

// PaymentStatusPaid is the provider payment_status of a settled session.
const PaymentStatusPaid = "paid"

// ErrSessionNotFound is returned when the provider does not know a session id.
var ErrSessionNotFound = errors.New("checkout session not found")

// CheckoutRequest describes the subscription checkout for one course.
type CheckoutRequest struct {
	CourseID    uint64
	CourseTitle string
	UserID      uint64
	Email       string
}

// SubscriptionState is the provider side of a subscription, as written back
// into the subscriptions table.
type SubscriptionState struct {
	ID               string
	Status           string
	CurrentPeriodEnd time.Time
}

// CheckoutSession carries the provider fields the service consults.
type CheckoutSession struct {
	ID            string
	URL           string
	PaymentStatus string
	Metadata      map[string]string
	AmountTotal   int64
	Currency      string
	Subscription  *SubscriptionState
}

// Paid reports whether the provider settled the session.
func (s CheckoutSession) Paid() bool { return s.PaymentStatus == PaymentStatusPaid }

// UserID parses the userId metadata; zero when absent or malformed.
func (s CheckoutSession) UserID() uint64 { return metaID(s.Metadata, MetaUserID) }

// CourseID parses the courseId metadata; zero when absent or malformed.
func (s CheckoutSession) CourseID() uint64 { return metaID(s.Metadata, MetaCourseID) }

func metaID(m map[string]string, key string) uint64 {
	id, err := strconv.ParseUint(m[key], 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// Bridge is implemented by the payment provider adapter.
type Bridge interface {
	CreateCheckout(ctx context.Context, req CheckoutRequest) (CheckoutSession, error)
	RetrieveCheckout(ctx context.Context, sessionID string) (CheckoutSession, error)
}
