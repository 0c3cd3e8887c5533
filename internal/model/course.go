package model

import "time"

// Course is the top-level unit of the catalog.  Only published courses are
// visible to guests and students.
type Course struct {
	ID          uint64    // courses.id
	Title       string    // courses.title
	Description string    // courses.description
	Language    string    // courses.language (e.g. "es", "de")
	Level       string    // courses.level (A1..C2)
	IsPublished bool      // courses.is_published
	CreatedAt   time.Time // courses.created_at
	UpdatedAt   time.Time // courses.updated_at
}

// Module groups lessons inside a course.  OrderIndex defines the position
// within the course outline.
type Module struct {
	ID         uint64    // modules.id
	CourseID   uint64    // modules.course_id
	Title      string    // modules.title
	OrderIndex int       // modules.order_index
	CreatedAt  time.Time // modules.created_at
}

// Lesson belongs to a module.  FreePreview lessons expose their materials
// to everybody, including guests.
type Lesson struct {
	ID          uint64    // lessons.id
	ModuleID    uint64    // lessons.module_id
	Title       string    // lessons.title
	OrderIndex  int       // lessons.order_index
	FreePreview bool      // lessons.free_preview
	CreatedAt   time.Time // lessons.created_at
}

// LessonMaterial is a piece of content attached to a lesson.
type LessonMaterial struct {
	ID        uint64    // lesson_materials.id
	LessonID  uint64    // lesson_materials.lesson_id
	Kind      string    // lesson_materials.kind (text, video, audio, pdf)
	Title     string    // lesson_materials.title
	Body      string    // lesson_materials.body
	URL       string    // lesson_materials.url
	CreatedAt time.Time // lesson_materials.created_at
}

// Quiz is a single multiple-choice question attached to a lesson.
// Options are stored as a JSON array column.
type Quiz struct {
	ID           uint64    // quizzes.id
	LessonID     uint64    // quizzes.lesson_id
	Question     string    // quizzes.question
	Options      []string  // quizzes.options (JSON)
	CorrectIndex int       // quizzes.correct_index
	CreatedAt    time.Time // quizzes.created_at
}

// LessonLocation is the result of walking Lesson -> Module -> Course.  It
// carries the visibility flags the policy engine needs for lesson content.
type LessonLocation struct {
	LessonID        uint64
	ModuleID        uint64
	CourseID        uint64
	FreePreview     bool
	CoursePublished bool
}

// OrderUpdate is one item of an admin reorder request.
type OrderUpdate struct {
	ID         uint64 `json:"id" validate:"required,gt=0"`
	OrderIndex int    `json:"order_index" validate:"gte=0"`
}

// LessonProgress records that a user completed a lesson.
type LessonProgress struct {
	UserID      uint64    // lesson_progress.user_id
	LessonID    uint64    // lesson_progress.lesson_id
	CompletedAt time.Time // lesson_progress.completed_at
}

// CourseProgress summarizes a student's completed lessons in one course.
type CourseProgress struct {
	CourseID     uint64
	TotalLessons int
	Completed    []LessonProgress
	Percent      int
}

// ProgressPercent returns done/total as a whole percentage, rounded down.
// A course without lessons reports 0.
func ProgressPercent(done, total int) int {
	if total <= 0 {
		return 0
	}
	if done >= total {
		return 100
	}
	return done * 100 / total
}
