package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/language-academy/internal/handler"
)

// RegisterCatalog registers the course catalog, lesson content and the
// student enrollment flow.  Every route resolves the session but none
// rejects anonymous callers up front: the policy decides per resource.
// cache only applies to the public catalog reads.
func RegisterCatalog(e *echo.Echo, cat *handler.CatalogHandler, lessons *handler.LessonHandler,
	enroll *handler.EnrollmentHandler, session, cache echo.MiddlewareFunc) {
	g := e.Group("/v1", session)

	g.GET("/courses", cat.ListCourses, cache)
	g.GET("/courses/:id", cat.GetCourse, cache)
	g.GET("/courses/:id/modules", cat.Outline, cache)

	g.GET("/lessons/:id/materials", lessons.Materials)
	g.GET("/lessons/:id/quizzes", lessons.Quizzes)
	g.POST("/lessons/:id/complete", lessons.Complete)
	g.GET("/courses/:id/progress", lessons.CourseProgress)

	g.POST("/courses/:id/checkout", enroll.StartCheckout)
	g.POST("/courses/:id/verify-payment", enroll.VerifyPayment)
	g.POST("/courses/:id/enroll", enroll.SelfEnroll)
	g.GET("/my/enrollments", enroll.MyEnrollments)
}
