// Package queue carries enrollment events over RabbitMQ: the payloads, a
// publisher used by the enrollment service and the background consumer
// that appends them to logs/enrollment.log.
package queue

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EnrollmentQueue is the durable queue enrollment events are routed to.
const EnrollmentQueue = "enrollment.created"

// Initiator values of an enrollment event.
const (
	InitiatorSelf  = "self"
	InitiatorAdmin = "admin"
)

// EnrollmentCreatedEvent is published after a new enrollment row is
// written.  Idempotent self-enrolls that create nothing publish nothing.
type EnrollmentCreatedEvent struct {
	EventID      string `json:"event_id"`
	EnrollmentID uint64 `json:"enrollment_id"`
	UserID       uint64 `json:"user_id"`
	CourseID     uint64 `json:"course_id"`
	CourseTitle  string `json:"course_title"`
	Initiator    string `json:"initiator"`
	ActorID      uint64 `json:"actor_id"`
	EnrolledAt   string `json:"enrolled_at"`
}

// NewEnrollmentCreated stamps a fresh event id.
func NewEnrollmentCreated(enrollmentID, userID, courseID uint64, courseTitle, initiator string, actorID uint64, at time.Time) EnrollmentCreatedEvent {
	return EnrollmentCreatedEvent{
		EventID:      uuid.NewString(),
		EnrollmentID: enrollmentID,
		UserID:       userID,
		CourseID:     courseID,
		CourseTitle:  courseTitle,
		Initiator:    initiator,
		ActorID:      actorID,
		EnrolledAt:   at.UTC().Format(time.RFC3339),
	}
}

// LogLine renders the event as one line of logs/enrollment.log.
func (ev EnrollmentCreatedEvent) LogLine() string {
	return fmt.Sprintf("[%s] Enrollment created | enrollment_id=%d | user_id=%d | course_id=%d | course=%q | by=%s:%d | event_id=%s\n",
		ev.EnrolledAt, ev.EnrollmentID, ev.UserID, ev.CourseID, ev.CourseTitle, ev.Initiator, ev.ActorID, ev.EventID)
}
