package service

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/iliyamo/language-academy/internal/billing"
	"github.com/iliyamo/language-academy/internal/logger"
	"github.com/iliyamo/language-academy/internal/metrics"
	"github.com/iliyamo/language-academy/internal/model"
	"github.com/iliyamo/language-academy/internal/policy"
	"github.com/iliyamo/language-academy/internal/queue"
	"github.com/iliyamo/language-academy/internal/repository"
)

var testNow = time.Date(2026, 4, 10, 9, 0, 0, 0, time.UTC)

// store is an in-memory stand-in for the MySQL gateways.
type store struct {
	mu            sync.Mutex
	courses       map[uint64]model.Course
	users         map[uint64]model.User
	enrollments   map[[2]uint64]model.Enrollment
	subscriptions map[uint64][]model.Subscription
	payments      map[string]model.Payment
	nextID        uint64

	// raceOnCreate makes Create behave as if another request inserted the
	// row between the policy check and the insert.
	raceOnCreate bool
}

func newStore() *store {
	return &store{
		courses:       map[uint64]model.Course{},
		users:         map[uint64]model.User{},
		enrollments:   map[[2]uint64]model.Enrollment{},
		subscriptions: map[uint64][]model.Subscription{},
		payments:      map[string]model.Payment{},
	}
}

type courseStore struct{ *store }

func (s courseStore) GetByID(_ context.Context, id uint64) (model.Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.courses[id]
	if !ok {
		return model.Course{}, repository.ErrCourseNotFound
	}
	return c, nil
}

type userStore struct{ *store }

func (s userStore) GetByID(_ context.Context, id uint64) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return model.User{}, repository.ErrUserNotFound
	}
	return u, nil
}

func (s *store) Exists(_ context.Context, userID, courseID uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.enrollments[[2]uint64{userID, courseID}]
	return ok, nil
}

func (s *store) Create(_ context.Context, userID, courseID uint64) (model.Enrollment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := [2]uint64{userID, courseID}
	if _, ok := s.enrollments[key]; ok || s.raceOnCreate {
		return model.Enrollment{}, repository.ErrDuplicate
	}
	s.nextID++
	e := model.Enrollment{ID: s.nextID, UserID: userID, CourseID: courseID, EnrolledAt: testNow}
	s.enrollments[key] = e
	return e, nil
}

func (s *store) ListByUser(_ context.Context, userID uint64) ([]model.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Subscription(nil), s.subscriptions[userID]...), nil
}

func (s *store) Upsert(_ context.Context, sub model.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.subscriptions[sub.UserID]
	for i := range rows {
		if rows[i].ProviderSubscriptionID == sub.ProviderSubscriptionID {
			rows[i].Status = sub.Status
			rows[i].CurrentPeriodEnd = sub.CurrentPeriodEnd
			return nil
		}
	}
	s.subscriptions[sub.UserID] = append(rows, sub)
	return nil
}

func (s *store) Locate(context.Context, uint64) (model.LessonLocation, error) {
	return model.LessonLocation{}, repository.ErrLessonNotFound
}

type paymentStore struct{ *store }

func (s paymentStore) Create(_ context.Context, p *model.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.payments[p.ProviderSessionID]; ok {
		return repository.ErrDuplicate
	}
	s.payments[p.ProviderSessionID] = *p
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.EnrollmentCreatedEvent
	err    error
}

func (p *recordingPublisher) PublishEnrollmentCreated(_ context.Context, ev queue.EnrollmentCreatedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

type fakeBridge struct {
	sessions map[string]billing.CheckoutSession
	created  []billing.CheckoutRequest
	err      error
}

func (b *fakeBridge) CreateCheckout(_ context.Context, req billing.CheckoutRequest) (billing.CheckoutSession, error) {
	if b.err != nil {
		return billing.CheckoutSession{}, b.err
	}
	b.created = append(b.created, req)
	return billing.CheckoutSession{ID: "cs_new", URL: "https://pay.test/cs_new"}, nil
}

func (b *fakeBridge) RetrieveCheckout(_ context.Context, id string) (billing.CheckoutSession, error) {
	if b.err != nil {
		return billing.CheckoutSession{}, b.err
	}
	s, ok := b.sessions[id]
	if !ok {
		return billing.CheckoutSession{}, billing.ErrSessionNotFound
	}
	return s, nil
}

type fixture struct {
	store     *store
	publisher *recordingPublisher
	metrics   *metrics.Metrics
	enroll    *Enrollments
}

func newFixture() *fixture {
	s := newStore()
	m := metrics.New(prometheus.NewRegistry())
	log := logger.Discard()
	authz := policy.NewAuthorizer(s, s, s, m, log).WithClock(func() time.Time { return testNow })
	pub := &recordingPublisher{}
	return &fixture{
		store:     s,
		publisher: pub,
		metrics:   m,
		enroll:    NewEnrollments(courseStore{s}, userStore{s}, s, authz, pub, m, log),
	}
}
