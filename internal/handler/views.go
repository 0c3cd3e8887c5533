package handler

import (
	"time"

	"github.com/iliyamo/language-academy/internal/model"
)

// JSON views.  Models stay free of json tags so that columns such as
// password hashes or quiz answers never leak by accident.

type userView struct {
	ID        uint64    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

func toUserView(u model.User) userView {
	return userView{ID: u.ID, Email: u.Email, Name: u.Name, IsActive: u.IsActive, CreatedAt: u.CreatedAt}
}

type courseView struct {
	ID          uint64    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Language    string    `json:"language"`
	Level       string    `json:"level"`
	IsPublished bool      `json:"is_published"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toCourseView(c model.Course) courseView {
	return courseView{
		ID:          c.ID,
		Title:       c.Title,
		Description: c.Description,
		Language:    c.Language,
		Level:       c.Level,
		IsPublished: c.IsPublished,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

type moduleView struct {
	ID         uint64       `json:"id"`
	CourseID   uint64       `json:"course_id"`
	Title      string       `json:"title"`
	OrderIndex int          `json:"order_index"`
	Lessons    []lessonView `json:"lessons,omitempty"`
}

func toModuleView(m model.Module) moduleView {
	return moduleView{ID: m.ID, CourseID: m.CourseID, Title: m.Title, OrderIndex: m.OrderIndex}
}

type lessonView struct {
	ID          uint64 `json:"id"`
	ModuleID    uint64 `json:"module_id"`
	Title       string `json:"title"`
	OrderIndex  int    `json:"order_index"`
	FreePreview bool   `json:"free_preview"`
}

func toLessonView(l model.Lesson) lessonView {
	return lessonView{ID: l.ID, ModuleID: l.ModuleID, Title: l.Title, OrderIndex: l.OrderIndex, FreePreview: l.FreePreview}
}

type materialView struct {
	ID       uint64 `json:"id"`
	LessonID uint64 `json:"lesson_id"`
	Kind     string `json:"kind"`
	Title    string `json:"title"`
	Body     string `json:"body,omitempty"`
	URL      string `json:"url,omitempty"`
}

func toMaterialView(m model.LessonMaterial) materialView {
	return materialView{ID: m.ID, LessonID: m.LessonID, Kind: m.Kind, Title: m.Title, Body: m.Body, URL: m.URL}
}

// quizView hides the answer from students; admins get it back on create.
type quizView struct {
	ID           uint64   `json:"id"`
	LessonID     uint64   `json:"lesson_id"`
	Question     string   `json:"question"`
	Options      []string `json:"options"`
	CorrectIndex *int     `json:"correct_index,omitempty"`
}

func toQuizView(q model.Quiz, withAnswer bool) quizView {
	v := quizView{ID: q.ID, LessonID: q.LessonID, Question: q.Question, Options: q.Options}
	if withAnswer {
		idx := q.CorrectIndex
		v.CorrectIndex = &idx
	}
	return v
}

type enrollmentView struct {
	ID          uint64     `json:"id"`
	UserID      uint64     `json:"user_id"`
	CourseID    uint64     `json:"course_id"`
	CourseTitle string     `json:"course_title,omitempty"`
	EnrolledAt  time.Time  `json:"enrolled_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

func toEnrollmentView(e model.Enrollment) enrollmentView {
	return enrollmentView{ID: e.ID, UserID: e.UserID, CourseID: e.CourseID, EnrolledAt: e.EnrolledAt, CompletedAt: e.CompletedAt}
}

type paymentView struct {
	ID                uint64    `json:"id"`
	UserID            uint64    `json:"user_id"`
	CourseID          uint64    `json:"course_id"`
	ProviderSessionID string    `json:"provider_session_id"`
	AmountCents       int64     `json:"amount_cents"`
	Currency          string    `json:"currency"`
	Status            string    `json:"status"`
	CreatedAt         time.Time `json:"created_at"`
}

func toPaymentView(p model.Payment) paymentView {
	return paymentView{
		ID:                p.ID,
		UserID:            p.UserID,
		CourseID:          p.CourseID,
		ProviderSessionID: p.ProviderSessionID,
		AmountCents:       p.AmountCents,
		Currency:          p.Currency,
		Status:            p.Status,
		CreatedAt:         p.CreatedAt,
	}
}

// page wraps admin listings.
type page[T any] struct {
	Items  []T   `json:"items"`
	Total  int64 `json:"total"`
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
}
