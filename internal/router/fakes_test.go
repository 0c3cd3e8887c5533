package router

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/language-academy/internal/billing"
	"github.com/iliyamo/language-academy/internal/model"
	"github.com/iliyamo/language-academy/internal/queue"
	"github.com/iliyamo/language-academy/internal/repository"
)

type refreshRow struct {
	userID  uint64
	exp     time.Time
	revoked bool
}

// memDB backs every repository interface with maps.
type memDB struct {
	mu          sync.Mutex
	seq         uint64
	users       map[uint64]model.User
	admins      map[uint64]model.Admin
	courses     map[uint64]model.Course
	modules     map[uint64]model.Module
	lessons     map[uint64]model.Lesson
	materials   map[uint64]model.LessonMaterial
	quizzes     map[uint64]model.Quiz
	enrollments map[[2]uint64]model.Enrollment
	subs        map[uint64][]model.Subscription
	refresh     map[string]refreshRow
	payments    []model.Payment
	progress    map[[2]uint64]time.Time
}

func newMemDB() *memDB {
	return &memDB{
		seq:         100,
		users:       map[uint64]model.User{},
		admins:      map[uint64]model.Admin{},
		courses:     map[uint64]model.Course{},
		modules:     map[uint64]model.Module{},
		lessons:     map[uint64]model.Lesson{},
		materials:   map[uint64]model.LessonMaterial{},
		quizzes:     map[uint64]model.Quiz{},
		enrollments: map[[2]uint64]model.Enrollment{},
		subs:        map[uint64][]model.Subscription{},
		refresh:     map[string]refreshRow{},
		progress:    map[[2]uint64]time.Time{},
	}
}

func (db *memDB) next() uint64 { db.seq++; return db.seq }

func (db *memDB) PingContext(context.Context) error { return nil }

// ----- users -----

type userRepo struct{ *memDB }

func (r userRepo) Create(_ context.Context, email, name, hash string) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return 0, repository.ErrEmailExists
		}
	}
	id := r.next()
	r.users[id] = model.User{ID: id, Email: email, Name: name, PasswordHash: hash, IsActive: true}
	return id, nil
}

func (r userRepo) GetByEmail(_ context.Context, email string) (model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, repository.ErrUserNotFound
}

func (r userRepo) GetByID(_ context.Context, id uint64) (model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		return u, nil
	}
	return model.User{}, repository.ErrUserNotFound
}

func (r userRepo) Search(_ context.Context, s repository.UserSearch) ([]model.User, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []model.User
	for _, u := range r.users {
		if s.Query == "" || strings.Contains(u.Email, s.Query) || strings.Contains(strings.ToLower(u.Name), s.Query) {
			all = append(all, u)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	total := int64(len(all))
	if s.Offset >= len(all) {
		return []model.User{}, total, nil
	}
	all = all[s.Offset:]
	if len(all) > s.Limit {
		all = all[:s.Limit]
	}
	return all, total, nil
}

func (r userRepo) UpdatePassword(_ context.Context, id uint64, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.PasswordHash = hash
	r.users[id] = u
	return nil
}

// ----- refresh tokens -----

type tokenRepo struct{ *memDB }

func (r tokenRepo) StoreRefresh(_ context.Context, userID uint64, hash string, exp time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refresh[hash] = refreshRow{userID: userID, exp: exp}
	return nil
}

func (r tokenRepo) ValidateRefresh(_ context.Context, hash string) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.refresh[hash]
	if !ok || row.revoked || time.Now().After(row.exp) {
		return 0, repository.ErrRefreshNotFound
	}
	return row.userID, nil
}

func (r tokenRepo) RevokeByHash(_ context.Context, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if row, ok := r.refresh[hash]; ok {
		row.revoked = true
		r.refresh[hash] = row
	}
	return nil
}

func (r tokenRepo) RevokeAllForUser(_ context.Context, userID uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for h, row := range r.refresh {
		if row.userID == userID {
			row.revoked = true
			r.refresh[h] = row
		}
	}
	return nil
}

func (r tokenRepo) active(userID uint64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, row := range r.refresh {
		if row.userID == userID && !row.revoked {
			n++
		}
	}
	return n
}

// ----- admins -----

type adminRepo struct{ *memDB }

func (r adminRepo) GetByEmail(_ context.Context, email string) (model.Admin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.admins {
		if a.Email == email {
			return a, nil
		}
	}
	return model.Admin{}, repository.ErrAdminNotFound
}

func (r adminRepo) GetByID(_ context.Context, id uint64) (model.Admin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.admins[id]; ok {
		return a, nil
	}
	return model.Admin{}, repository.ErrAdminNotFound
}

// ----- catalog -----

type courseRepo struct{ *memDB }

func (r courseRepo) Create(_ context.Context, c *model.Course) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.ID = r.next()
	r.courses[c.ID] = *c
	return nil
}

func (r courseRepo) GetByID(_ context.Context, id uint64) (model.Course, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.courses[id]; ok {
		return c, nil
	}
	return model.Course{}, repository.ErrCourseNotFound
}

func (r courseRepo) List(_ context.Context, f repository.CourseFilter) ([]model.Course, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []model.Course{}
	for _, c := range r.courses {
		if !f.PublishedOnly || c.IsPublished {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r courseRepo) Update(_ context.Context, c model.Course) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.courses[c.ID]; !ok {
		return repository.ErrCourseNotFound
	}
	r.courses[c.ID] = c
	return nil
}

func (r courseRepo) Delete(_ context.Context, id uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.courses[id]; !ok {
		return repository.ErrCourseNotFound
	}
	delete(r.courses, id)
	return nil
}

type moduleRepo struct{ *memDB }

func (r moduleRepo) Create(_ context.Context, m *model.Module) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.courses[m.CourseID]; !ok {
		return repository.ErrCourseNotFound
	}
	m.ID = r.next()
	r.modules[m.ID] = *m
	return nil
}

func (r moduleRepo) GetByID(_ context.Context, id uint64) (model.Module, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.modules[id]; ok {
		return m, nil
	}
	return model.Module{}, repository.ErrModuleNotFound
}

func (r moduleRepo) ListByCourse(_ context.Context, courseID uint64) ([]model.Module, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []model.Module{}
	for _, m := range r.modules {
		if m.CourseID == courseID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderIndex < out[j].OrderIndex })
	return out, nil
}

func (r moduleRepo) Update(_ context.Context, m model.Module) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.modules[m.ID]
	if !ok {
		return repository.ErrModuleNotFound
	}
	cur.Title, cur.OrderIndex = m.Title, m.OrderIndex
	r.modules[m.ID] = cur
	return nil
}

func (r moduleRepo) Delete(_ context.Context, id uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.modules[id]; !ok {
		return repository.ErrModuleNotFound
	}
	delete(r.modules, id)
	return nil
}

func (r moduleRepo) UpdateOrder(_ context.Context, courseID, id uint64, idx int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.modules[id]
	if !ok || m.CourseID != courseID {
		return false, nil
	}
	m.OrderIndex = idx
	r.modules[id] = m
	return true, nil
}

type lessonRepo struct{ *memDB }

func (r lessonRepo) Create(_ context.Context, l *model.Lesson) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.modules[l.ModuleID]; !ok {
		return repository.ErrModuleNotFound
	}
	l.ID = r.next()
	r.lessons[l.ID] = *l
	return nil
}

func (r lessonRepo) GetByID(_ context.Context, id uint64) (model.Lesson, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.lessons[id]; ok {
		return l, nil
	}
	return model.Lesson{}, repository.ErrLessonNotFound
}

func (r lessonRepo) ListByModule(_ context.Context, moduleID uint64) ([]model.Lesson, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []model.Lesson{}
	for _, l := range r.lessons {
		if l.ModuleID == moduleID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderIndex < out[j].OrderIndex })
	return out, nil
}

func (r lessonRepo) Update(_ context.Context, l model.Lesson) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.lessons[l.ID]
	if !ok {
		return repository.ErrLessonNotFound
	}
	cur.Title, cur.OrderIndex, cur.FreePreview = l.Title, l.OrderIndex, l.FreePreview
	r.lessons[l.ID] = cur
	return nil
}

func (r lessonRepo) Delete(_ context.Context, id uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.lessons[id]; !ok {
		return repository.ErrLessonNotFound
	}
	delete(r.lessons, id)
	return nil
}

func (r lessonRepo) UpdateOrder(_ context.Context, moduleID, id uint64, idx int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.lessons[id]
	if !ok || l.ModuleID != moduleID {
		return false, nil
	}
	l.OrderIndex = idx
	r.lessons[id] = l
	return true, nil
}

func (r lessonRepo) Locate(_ context.Context, lessonID uint64) (model.LessonLocation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.lessons[lessonID]
	if !ok {
		return model.LessonLocation{}, repository.ErrLessonNotFound
	}
	m := r.modules[l.ModuleID]
	c := r.courses[m.CourseID]
	return model.LessonLocation{
		LessonID:        l.ID,
		ModuleID:        m.ID,
		CourseID:        c.ID,
		FreePreview:     l.FreePreview,
		CoursePublished: c.IsPublished,
	}, nil
}

type contentRepo struct{ *memDB }

func (r contentRepo) CreateMaterial(_ context.Context, m *model.LessonMaterial) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.lessons[m.LessonID]; !ok {
		return repository.ErrLessonNotFound
	}
	m.ID = r.next()
	r.materials[m.ID] = *m
	return nil
}

func (r contentRepo) ListMaterials(_ context.Context, lessonID uint64) ([]model.LessonMaterial, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []model.LessonMaterial{}
	for _, m := range r.materials {
		if m.LessonID == lessonID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r contentRepo) DeleteMaterial(_ context.Context, id uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.materials[id]; !ok {
		return repository.ErrMaterialNotFound
	}
	delete(r.materials, id)
	return nil
}

func (r contentRepo) CreateQuiz(_ context.Context, q *model.Quiz) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.lessons[q.LessonID]; !ok {
		return repository.ErrLessonNotFound
	}
	q.ID = r.next()
	r.quizzes[q.ID] = *q
	return nil
}

func (r contentRepo) ListQuizzes(_ context.Context, lessonID uint64) ([]model.Quiz, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []model.Quiz{}
	for _, q := range r.quizzes {
		if q.LessonID == lessonID {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r contentRepo) DeleteQuiz(_ context.Context, id uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.quizzes[id]; !ok {
		return repository.ErrQuizNotFound
	}
	delete(r.quizzes, id)
	return nil
}

// ----- enrollments, billing, progress -----

type enrollmentRepo struct{ *memDB }

func (r enrollmentRepo) Exists(_ context.Context, userID, courseID uint64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.enrollments[[2]uint64{userID, courseID}]
	return ok, nil
}

func (r enrollmentRepo) Create(_ context.Context, userID, courseID uint64) (model.Enrollment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := [2]uint64{userID, courseID}
	if _, ok := r.enrollments[key]; ok {
		return model.Enrollment{}, repository.ErrDuplicate
	}
	e := model.Enrollment{ID: r.next(), UserID: userID, CourseID: courseID, EnrolledAt: time.Now().UTC()}
	r.enrollments[key] = e
	return e, nil
}

func (r enrollmentRepo) ListByUser(_ context.Context, userID uint64) ([]model.EnrolledCourse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []model.EnrolledCourse{}
	for k, e := range r.enrollments {
		if k[0] == userID {
			out = append(out, model.EnrolledCourse{Enrollment: e, CourseTitle: r.courses[k[1]].Title})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type subscriptionRepo struct{ *memDB }

func (r subscriptionRepo) ListByUser(_ context.Context, userID uint64) ([]model.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Subscription(nil), r.subs[userID]...), nil
}

func (r subscriptionRepo) Upsert(_ context.Context, s model.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, cur := range r.subs[s.UserID] {
		if cur.ProviderSubscriptionID == s.ProviderSubscriptionID {
			r.subs[s.UserID][i] = s
			return nil
		}
	}
	r.subs[s.UserID] = append(r.subs[s.UserID], s)
	return nil
}

type paymentRepo struct{ *memDB }

func (r paymentRepo) Create(_ context.Context, p *model.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, cur := range r.payments {
		if cur.ProviderSessionID == p.ProviderSessionID {
			return repository.ErrDuplicate
		}
	}
	p.ID = r.next()
	r.payments = append(r.payments, *p)
	return nil
}

func (r paymentRepo) List(_ context.Context, f repository.PaymentFilter) ([]model.Payment, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []model.Payment{}
	for _, p := range r.payments {
		if f.UserID == 0 || p.UserID == f.UserID {
			out = append(out, p)
		}
	}
	total := int64(len(out))
	if f.Offset >= len(out) {
		return []model.Payment{}, total, nil
	}
	out = out[f.Offset:]
	if len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, total, nil
}

type progressRepo struct{ *memDB }

func (r progressRepo) MarkComplete(_ context.Context, userID, lessonID uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := [2]uint64{userID, lessonID}
	if _, ok := r.progress[key]; !ok {
		r.progress[key] = time.Now().UTC()
	}
	return nil
}

func (r progressRepo) CourseProgress(_ context.Context, userID, courseID uint64) (model.CourseProgress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := model.CourseProgress{CourseID: courseID}
	for _, l := range r.lessons {
		if r.modules[l.ModuleID].CourseID != courseID {
			continue
		}
		out.TotalLessons++
		if at, ok := r.progress[[2]uint64{userID, l.ID}]; ok {
			out.Completed = append(out.Completed, model.LessonProgress{UserID: userID, LessonID: l.ID, CompletedAt: at})
		}
	}
	out.Percent = model.ProgressPercent(len(out.Completed), out.TotalLessons)
	return out, nil
}

// ----- outside world -----

type eventSink struct {
	mu     sync.Mutex
	events []queue.EnrollmentCreatedEvent
}

func (s *eventSink) PublishEnrollmentCreated(_ context.Context, ev queue.EnrollmentCreatedEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

type fakeBridge struct {
	sessions map[string]billing.CheckoutSession
}

func (b *fakeBridge) CreateCheckout(_ context.Context, req billing.CheckoutRequest) (billing.CheckoutSession, error) {
	return billing.CheckoutSession{ID: "cs_test", URL: "https://pay.test/cs_test"}, nil
}

func (b *fakeBridge) RetrieveCheckout(_ context.Context, id string) (billing.CheckoutSession, error) {
	s, ok := b.sessions[id]
	if !ok {
		return billing.CheckoutSession{}, billing.ErrSessionNotFound
	}
	return s, nil
}
