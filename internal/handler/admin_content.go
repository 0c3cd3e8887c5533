package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	charmlog "github.com/charmbracelet/log"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/language-academy/internal/apperr"
	"github.com/iliyamo/language-academy/internal/middleware"
	"github.com/iliyamo/language-academy/internal/model"
	"github.com/iliyamo/language-academy/internal/policy"
	"github.com/iliyamo/language-academy/internal/repository"
	"github.com/iliyamo/language-academy/internal/service"
)

type CourseAdminStore interface {
	Create(ctx context.Context, c *model.Course) error
	GetByID(ctx context.Context, id uint64) (model.Course, error)
	List(ctx context.Context, f repository.CourseFilter) ([]model.Course, error)
	Update(ctx context.Context, c model.Course) error
	Delete(ctx context.Context, id uint64) error
}

type ModuleAdminStore interface {
	Create(ctx context.Context, m *model.Module) error
	GetByID(ctx context.Context, id uint64) (model.Module, error)
	Update(ctx context.Context, m model.Module) error
	Delete(ctx context.Context, id uint64) error
	UpdateOrder(ctx context.Context, courseID, id uint64, orderIndex int) (bool, error)
}

type LessonAdminStore interface {
	Create(ctx context.Context, l *model.Lesson) error
	GetByID(ctx context.Context, id uint64) (model.Lesson, error)
	Update(ctx context.Context, l model.Lesson) error
	Delete(ctx context.Context, id uint64) error
	UpdateOrder(ctx context.Context, moduleID, id uint64, orderIndex int) (bool, error)
}

type ContentAdminStore interface {
	CreateMaterial(ctx context.Context, m *model.LessonMaterial) error
	DeleteMaterial(ctx context.Context, id uint64) error
	CreateQuiz(ctx context.Context, q *model.Quiz) error
	DeleteQuiz(ctx context.Context, id uint64) error
}

// AdminContentHandler manages the catalog: courses, modules, lessons and
// lesson content.
type AdminContentHandler struct {
	Courses CourseAdminStore
	Modules ModuleAdminStore
	Lessons LessonAdminStore
	Content ContentAdminStore
	Gate    Gate
	Log     *charmlog.Logger
}

func NewAdminContentHandler(c CourseAdminStore, m ModuleAdminStore, l LessonAdminStore, ct ContentAdminStore, g Gate, log *charmlog.Logger) *AdminContentHandler {
	return &AdminContentHandler{Courses: c, Modules: m, Lessons: l, Content: ct, Gate: g, Log: log}
}

// ----- DTOs -----

type courseReq struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=5000"`
	Language    string `json:"language" validate:"required,max=16"`
	Level       string `json:"level" validate:"omitempty,oneof=A1 A2 B1 B2 C1 C2"`
	IsPublished bool   `json:"is_published"`
}

type moduleReq struct {
	Title      string `json:"title" validate:"required,max=200"`
	OrderIndex int    `json:"order_index" validate:"gte=0"`
}

type lessonReq struct {
	Title       string `json:"title" validate:"required,max=200"`
	OrderIndex  int    `json:"order_index" validate:"gte=0"`
	FreePreview bool   `json:"free_preview"`
}

type materialReq struct {
	Kind  string `json:"kind" validate:"required,oneof=text video audio pdf"`
	Title string `json:"title" validate:"required,max=200"`
	Body  string `json:"body"`
	URL   string `json:"url" validate:"omitempty,url"`
}

type quizReq struct {
	Question     string   `json:"question" validate:"required"`
	Options      []string `json:"options" validate:"min=2,max=10,dive,required"`
	CorrectIndex int      `json:"correct_index" validate:"gte=0"`
}

// allow runs the admin-namespace check for the current principal.
func (h *AdminContentHandler) allow(ctx context.Context, c echo.Context, action policy.Action, kind policy.ResourceKind, id uint64) error {
	return h.Gate.Require(ctx, middleware.PrincipalFrom(c), action, policy.AdminResource(kind, id))
}

// ----- courses -----

// ListCourses lists every course, drafts included.
func (h *AdminContentHandler) ListCourses(c echo.Context) error {
	pg, err := policy.ParsePage(c.QueryParam("limit"), c.QueryParam("offset"))
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	if err := h.allow(ctx, c, policy.ActionList, policy.ResourceCourse, 0); err != nil {
		return err
	}

	courses, err := h.Courses.List(ctx, repository.CourseFilter{Limit: pg.Limit, Offset: pg.Offset})
	if err != nil {
		return storeErr(err, "list courses")
	}
	out := make([]courseView, 0, len(courses))
	for _, co := range courses {
		out = append(out, toCourseView(co))
	}
	return c.JSON(http.StatusOK, echo.Map{"courses": out})
}

func (h *AdminContentHandler) CreateCourse(c echo.Context) error {
	var req courseReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	if err := h.allow(ctx, c, policy.ActionCreate, policy.ResourceCourse, 0); err != nil {
		return err
	}

	co := model.Course{
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Language:    strings.TrimSpace(req.Language),
		Level:       req.Level,
		IsPublished: req.IsPublished,
	}
	if err := h.Courses.Create(ctx, &co); err != nil {
		return storeErr(err, "create course")
	}
	return h.respondCourse(ctx, c, http.StatusCreated, co.ID)
}

func (h *AdminContentHandler) UpdateCourse(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req courseReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	if err := h.allow(ctx, c, policy.ActionUpdate, policy.ResourceCourse, id); err != nil {
		return err
	}

	err = h.Courses.Update(ctx, model.Course{
		ID:          id,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Language:    strings.TrimSpace(req.Language),
		Level:       req.Level,
		IsPublished: req.IsPublished,
	})
	if err != nil {
		return storeErr(err, "update course")
	}
	return h.respondCourse(ctx, c, http.StatusOK, id)
}

func (h *AdminContentHandler) DeleteCourse(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	if err := h.allow(ctx, c, policy.ActionDelete, policy.ResourceCourse, id); err != nil {
		return err
	}
	if err := h.Courses.Delete(ctx, id); err != nil {
		return storeErr(err, "delete course")
	}
	h.Log.Info("course deleted", "course_id", id)
	return c.NoContent(http.StatusNoContent)
}

func (h *AdminContentHandler) respondCourse(ctx context.Context, c echo.Context, status int, id uint64) error {
	co, err := h.Courses.GetByID(ctx, id)
	if err != nil {
		return storeErr(err, "reload course")
	}
	return c.JSON(status, toCourseView(co))
}

// ----- modules -----

func (h *AdminContentHandler) CreateModule(c echo.Context) error {
	courseID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req moduleReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	if err := h.allow(ctx, c, policy.ActionCreate, policy.ResourceModule, 0); err != nil {
		return err
	}

	m := model.Module{CourseID: courseID, Title: strings.TrimSpace(req.Title), OrderIndex: req.OrderIndex}
	if err := h.Modules.Create(ctx, &m); err != nil {
		return storeErr(err, "create module")
	}
	return c.JSON(http.StatusCreated, toModuleView(m))
}

func (h *AdminContentHandler) UpdateModule(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req moduleReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	if err := h.allow(ctx, c, policy.ActionUpdate, policy.ResourceModule, id); err != nil {
		return err
	}

	if err := h.Modules.Update(ctx, model.Module{ID: id, Title: strings.TrimSpace(req.Title), OrderIndex: req.OrderIndex}); err != nil {
		return storeErr(err, "update module")
	}
	m, err := h.Modules.GetByID(ctx, id)
	if err != nil {
		return storeErr(err, "reload module")
	}
	return c.JSON(http.StatusOK, toModuleView(m))
}

func (h *AdminContentHandler) DeleteModule(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	if err := h.allow(ctx, c, policy.ActionDelete, policy.ResourceModule, id); err != nil {
		return err
	}
	if err := h.Modules.Delete(ctx, id); err != nil {
		return storeErr(err, "delete module")
	}
	return c.NoContent(http.StatusNoContent)
}

// ReorderModules moves modules of the course in the path.  Updates are not
// transactional: ids outside the course are skipped and the response
// counts only rows that were written.
func (h *AdminContentHandler) ReorderModules(c echo.Context) error {
	courseID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	items, err := bindOrder(c)
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	if err := h.allow(ctx, c, policy.ActionReorder, policy.ResourceModule, courseID); err != nil {
		return err
	}
	if _, err := loadCourse(ctx, h.Courses, courseID); err != nil {
		return err
	}

	n, err := service.Reorder(ctx, items, func(ctx context.Context, id uint64, idx int) (bool, error) {
		return h.Modules.UpdateOrder(ctx, courseID, id, idx)
	})
	return h.reordered(c, "modules", courseID, len(items), n, err)
}

// ----- lessons -----

func (h *AdminContentHandler) CreateLesson(c echo.Context) error {
	moduleID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req lessonReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	if err := h.allow(ctx, c, policy.ActionCreate, policy.ResourceLesson, 0); err != nil {
		return err
	}

	l := model.Lesson{ModuleID: moduleID, Title: strings.TrimSpace(req.Title), OrderIndex: req.OrderIndex, FreePreview: req.FreePreview}
	if err := h.Lessons.Create(ctx, &l); err != nil {
		return storeErr(err, "create lesson")
	}
	return c.JSON(http.StatusCreated, toLessonView(l))
}

func (h *AdminContentHandler) UpdateLesson(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req lessonReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	if err := h.allow(ctx, c, policy.ActionUpdate, policy.ResourceLesson, id); err != nil {
		return err
	}

	err = h.Lessons.Update(ctx, model.Lesson{ID: id, Title: strings.TrimSpace(req.Title), OrderIndex: req.OrderIndex, FreePreview: req.FreePreview})
	if err != nil {
		return storeErr(err, "update lesson")
	}
	l, err := h.Lessons.GetByID(ctx, id)
	if err != nil {
		return storeErr(err, "reload lesson")
	}
	return c.JSON(http.StatusOK, toLessonView(l))
}

func (h *AdminContentHandler) DeleteLesson(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	if err := h.allow(ctx, c, policy.ActionDelete, policy.ResourceLesson, id); err != nil {
		return err
	}
	if err := h.Lessons.Delete(ctx, id); err != nil {
		return storeErr(err, "delete lesson")
	}
	return c.NoContent(http.StatusNoContent)
}

// ReorderLessons moves lessons of the module in the path, with the same
// partial-success semantics as ReorderModules.
func (h *AdminContentHandler) ReorderLessons(c echo.Context) error {
	moduleID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	items, err := bindOrder(c)
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	if err := h.allow(ctx, c, policy.ActionReorder, policy.ResourceLesson, moduleID); err != nil {
		return err
	}
	if _, err := h.Modules.GetByID(ctx, moduleID); err != nil {
		return storeErr(err, "load module")
	}

	n, err := service.Reorder(ctx, items, func(ctx context.Context, id uint64, idx int) (bool, error) {
		return h.Lessons.UpdateOrder(ctx, moduleID, id, idx)
	})
	return h.reordered(c, "lessons", moduleID, len(items), n, err)
}

func (h *AdminContentHandler) reordered(c echo.Context, what string, parentID uint64, requested, updated int, err error) error {
	if err != nil {
		h.Log.Error("reorder stopped", "what", what, "parent_id", parentID, "updated", updated, "err", err)
		return apperr.Internal(err)
	}
	if updated < requested {
		h.Log.Warn("reorder skipped rows", "what", what, "parent_id", parentID, "requested", requested, "updated", updated)
	}
	return c.JSON(http.StatusOK, echo.Map{"updated": updated})
}

// bindOrder decodes a JSON array of {id, order_index} and validates each
// entry.
func bindOrder(c echo.Context) ([]model.OrderUpdate, error) {
	var items []model.OrderUpdate
	if err := c.Echo().JSONSerializer.Deserialize(c, &items); err != nil {
		return nil, apperr.Validation(apperr.CodeInvalidBody, "expected an array of {id, order_index}")
	}
	if len(items) == 0 {
		return nil, apperr.Validation(apperr.CodeValidation, "at least one item is required")
	}
	for i := range items {
		if err := c.Validate(&items[i]); err != nil {
			return nil, apperr.Validation(apperr.CodeValidation, fmt.Sprintf("item %d: id must be positive and order_index non-negative", i))
		}
	}
	return items, nil
}

// ----- materials and quizzes -----

func (h *AdminContentHandler) CreateMaterial(c echo.Context) error {
	lessonID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req materialReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	if err := h.allow(ctx, c, policy.ActionCreate, policy.ResourceLessonMaterial, 0); err != nil {
		return err
	}

	m := model.LessonMaterial{LessonID: lessonID, Kind: req.Kind, Title: strings.TrimSpace(req.Title), Body: req.Body, URL: req.URL}
	if err := h.Content.CreateMaterial(ctx, &m); err != nil {
		return storeErr(err, "create material")
	}
	return c.JSON(http.StatusCreated, toMaterialView(m))
}

func (h *AdminContentHandler) DeleteMaterial(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	if err := h.allow(ctx, c, policy.ActionDelete, policy.ResourceLessonMaterial, id); err != nil {
		return err
	}
	if err := h.Content.DeleteMaterial(ctx, id); err != nil {
		return storeErr(err, "delete material")
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AdminContentHandler) CreateQuiz(c echo.Context) error {
	lessonID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req quizReq
	if err := bind(c, &req); err != nil {
		return err
	}
	if req.CorrectIndex >= len(req.Options) {
		return apperr.Validation(apperr.CodeValidation, "correct_index is out of range")
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	if err := h.allow(ctx, c, policy.ActionCreate, policy.ResourceQuiz, 0); err != nil {
		return err
	}

	q := model.Quiz{LessonID: lessonID, Question: strings.TrimSpace(req.Question), Options: req.Options, CorrectIndex: req.CorrectIndex}
	if err := h.Content.CreateQuiz(ctx, &q); err != nil {
		return storeErr(err, "create quiz")
	}
	return c.JSON(http.StatusCreated, toQuizView(q, true))
}

func (h *AdminContentHandler) DeleteQuiz(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	if err := h.allow(ctx, c, policy.ActionDelete, policy.ResourceQuiz, id); err != nil {
		return err
	}
	if err := h.Content.DeleteQuiz(ctx, id); err != nil {
		return storeErr(err, "delete quiz")
	}
	return c.NoContent(http.StatusNoContent)
}
