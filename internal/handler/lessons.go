package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/language-academy/internal/apperr"
	"github.com/iliyamo/language-academy/internal/middleware"
	"github.com/iliyamo/language-academy/internal/model"
	"github.com/iliyamo/language-academy/internal/policy"
)

type ContentReader interface {
	ListMaterials(ctx context.Context, lessonID uint64) ([]model.LessonMaterial, error)
	ListQuizzes(ctx context.Context, lessonID uint64) ([]model.Quiz, error)
}

type ProgressStore interface {
	MarkComplete(ctx context.Context, userID, lessonID uint64) error
	CourseProgress(ctx context.Context, userID, courseID uint64) (model.CourseProgress, error)
}

// LessonHandler serves lesson content and student progress.
type LessonHandler struct {
	Courses  courseGetter
	Content  ContentReader
	Progress ProgressStore
	Gate     Gate
}

func NewLessonHandler(courses courseGetter, content ContentReader, progress ProgressStore, g Gate) *LessonHandler {
	return &LessonHandler{Courses: courses, Content: content, Progress: progress, Gate: g}
}

// Materials lists the materials of a free-preview lesson, or of any lesson
// of a course the caller is enrolled in.
func (h *LessonHandler) Materials(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	loc, err := h.readableLesson(ctx, c, policy.ResourceLessonMaterial)
	if err != nil {
		return err
	}
	items, err := h.Content.ListMaterials(ctx, loc.LessonID)
	if err != nil {
		return apperr.Internal(fmt.Errorf("list materials of lesson %d: %w", loc.LessonID, err))
	}
	out := make([]materialView, 0, len(items))
	for _, m := range items {
		out = append(out, toMaterialView(m))
	}
	return c.JSON(http.StatusOK, echo.Map{"lesson_id": loc.LessonID, "materials": out})
}

// Quizzes lists the quiz questions of a lesson without their answers.
func (h *LessonHandler) Quizzes(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	loc, err := h.readableLesson(ctx, c, policy.ResourceQuiz)
	if err != nil {
		return err
	}
	items, err := h.Content.ListQuizzes(ctx, loc.LessonID)
	if err != nil {
		return apperr.Internal(fmt.Errorf("list quizzes of lesson %d: %w", loc.LessonID, err))
	}
	out := make([]quizView, 0, len(items))
	for _, q := range items {
		out = append(out, toQuizView(q, false))
	}
	return c.JSON(http.StatusOK, echo.Map{"lesson_id": loc.LessonID, "quizzes": out})
}

// Complete records that the caller finished a lesson.  Repeating it keeps
// the first completion.
func (h *LessonHandler) Complete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	loc, err := h.Gate.LocateLesson(ctx, id)
	if err != nil {
		return err
	}
	if err := h.Gate.Require(ctx, u, policy.ActionTrackProgress, policy.LessonResource(policy.ResourceProgress, loc)); err != nil {
		return err
	}
	if err := h.Progress.MarkComplete(ctx, u.UserID, loc.LessonID); err != nil {
		return apperr.Internal(fmt.Errorf("mark lesson %d complete: %w", loc.LessonID, err))
	}
	return c.JSON(http.StatusOK, echo.Map{"lesson_id": loc.LessonID, "completed": true})
}

type progressView struct {
	CourseID       uint64   `json:"course_id"`
	TotalLessons   int      `json:"total_lessons"`
	CompletedCount int      `json:"completed_count"`
	Percent        int      `json:"percent"`
	Completed      []uint64 `json:"completed_lesson_ids"`
}

// CourseProgress summarizes the caller's progress in a course.
func (h *LessonHandler) CourseProgress(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	co, err := loadCourse(ctx, h.Courses, id)
	if err != nil {
		return err
	}
	p := middleware.PrincipalFrom(c)
	res := policy.Resource{Kind: policy.ResourceProgress, ID: co.ID, CourseID: co.ID, CoursePublished: co.IsPublished}
	if err := h.Gate.Require(ctx, p, policy.ActionRead, res); err != nil {
		return err
	}
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	prog, err := h.Progress.CourseProgress(ctx, u.UserID, co.ID)
	if err != nil {
		return apperr.Internal(fmt.Errorf("course progress %d: %w", co.ID, err))
	}
	ids := make([]uint64, 0, len(prog.Completed))
	for _, lp := range prog.Completed {
		ids = append(ids, lp.LessonID)
	}
	return c.JSON(http.StatusOK, progressView{
		CourseID:       co.ID,
		TotalLessons:   prog.TotalLessons,
		CompletedCount: len(ids),
		Percent:        prog.Percent,
		Completed:      ids,
	})
}

// readableLesson locates the lesson in the path and checks read access.
// Free preview and enrollment decide; the course's publication does not.
func (h *LessonHandler) readableLesson(ctx context.Context, c echo.Context, kind policy.ResourceKind) (model.LessonLocation, error) {
	id, err := pathID(c, "id")
	if err != nil {
		return model.LessonLocation{}, err
	}
	loc, err := h.Gate.LocateLesson(ctx, id)
	if err != nil {
		return model.LessonLocation{}, err
	}
	res := policy.LessonResource(kind, loc)
	if err := h.Gate.Require(ctx, middleware.PrincipalFrom(c), policy.ActionRead, res); err != nil {
		return model.LessonLocation{}, err
	}
	return loc, nil
}
