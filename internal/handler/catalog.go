package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/language-academy/internal/apperr"
	"github.com/iliyamo/language-academy/internal/auth"
	"github.com/iliyamo/language-academy/internal/middleware"
	"github.com/iliyamo/language-academy/internal/model"
	"github.com/iliyamo/language-academy/internal/policy"
	"github.com/iliyamo/language-academy/internal/repository"
)

// Gate is the entitlement check every handler goes through.
type Gate interface {
	Require(ctx context.Context, p auth.Principal, action policy.Action, res policy.Resource) error
	LocateLesson(ctx context.Context, lessonID uint64) (model.LessonLocation, error)
}

type CourseReader interface {
	GetByID(ctx context.Context, id uint64) (model.Course, error)
	List(ctx context.Context, f repository.CourseFilter) ([]model.Course, error)
}

type ModuleLister interface {
	ListByCourse(ctx context.Context, courseID uint64) ([]model.Module, error)
}

type LessonLister interface {
	ListByModule(ctx context.Context, moduleID uint64) ([]model.Lesson, error)
}

// CatalogHandler serves the public course catalog.
type CatalogHandler struct {
	Courses CourseReader
	Modules ModuleLister
	Lessons LessonLister
	Gate    Gate
}

func NewCatalogHandler(c CourseReader, m ModuleLister, l LessonLister, g Gate) *CatalogHandler {
	return &CatalogHandler{Courses: c, Modules: m, Lessons: l, Gate: g}
}

// ListCourses lists published courses.
func (h *CatalogHandler) ListCourses(c echo.Context) error {
	pg, err := policy.ParsePage(c.QueryParam("limit"), c.QueryParam("offset"))
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	courses, err := h.Courses.List(ctx, repository.CourseFilter{PublishedOnly: true, Limit: pg.Limit, Offset: pg.Offset})
	if err != nil {
		return apperr.Internal(fmt.Errorf("list courses: %w", err))
	}
	out := make([]courseView, 0, len(courses))
	for _, co := range courses {
		out = append(out, toCourseView(co))
	}
	return c.JSON(http.StatusOK, echo.Map{"courses": out})
}

// GetCourse returns one course.  A course the caller may not read answers
// 404 when unpublished, so drafts cannot be probed.
func (h *CatalogHandler) GetCourse(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	co, err := h.readableCourse(ctx, c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toCourseView(co))
}

// Outline returns the modules of a course with their lessons.
func (h *CatalogHandler) Outline(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	co, err := h.readableCourse(ctx, c)
	if err != nil {
		return err
	}
	mods, err := h.Modules.ListByCourse(ctx, co.ID)
	if err != nil {
		return apperr.Internal(fmt.Errorf("list modules of course %d: %w", co.ID, err))
	}
	out := make([]moduleView, 0, len(mods))
	for _, m := range mods {
		lessons, err := h.Lessons.ListByModule(ctx, m.ID)
		if err != nil {
			return apperr.Internal(fmt.Errorf("list lessons of module %d: %w", m.ID, err))
		}
		mv := toModuleView(m)
		mv.Lessons = make([]lessonView, 0, len(lessons))
		for _, l := range lessons {
			mv.Lessons = append(mv.Lessons, toLessonView(l))
		}
		out = append(out, mv)
	}
	return c.JSON(http.StatusOK, echo.Map{"course": toCourseView(co), "modules": out})
}

func (h *CatalogHandler) readableCourse(ctx context.Context, c echo.Context) (model.Course, error) {
	id, err := pathID(c, "id")
	if err != nil {
		return model.Course{}, err
	}
	co, err := loadCourse(ctx, h.Courses, id)
	if err != nil {
		return model.Course{}, err
	}
	if err := h.Gate.Require(ctx, middleware.PrincipalFrom(c), policy.ActionRead, policy.CourseResource(co)); err != nil {
		if !co.IsPublished && !isInternal(err) {
			return model.Course{}, courseNotFound()
		}
		return model.Course{}, err
	}
	return co, nil
}

type courseGetter interface {
	GetByID(ctx context.Context, id uint64) (model.Course, error)
}

func loadCourse(ctx context.Context, courses courseGetter, id uint64) (model.Course, error) {
	co, err := courses.GetByID(ctx, id)
	if errors.Is(err, repository.ErrCourseNotFound) {
		return model.Course{}, courseNotFound()
	}
	if err != nil {
		return model.Course{}, apperr.Internal(fmt.Errorf("load course %d: %w", id, err))
	}
	return co, nil
}

func courseNotFound() error { return apperr.NotFound("COURSE_NOT_FOUND", "course not found") }

func isInternal(err error) bool { return apperr.From(err).Kind == apperr.KindInternal }
