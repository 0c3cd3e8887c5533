package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/language-academy/internal/handler"
)

// RegisterAdmin registers the admin namespace.  Only login is open; every
// other route runs behind guard, which accepts admin session tokens only.
func RegisterAdmin(e *echo.Echo, a *handler.AdminAuthHandler, content *handler.AdminContentHandler,
	users *handler.AdminUserHandler, guard, limit echo.MiddlewareFunc) {
	e.POST("/v1/admin/login", a.Login, limit)

	g := e.Group("/v1/admin", guard)
	g.POST("/logout", a.Logout)
	g.GET("/me", a.Me)

	g.GET("/courses", content.ListCourses)
	g.POST("/courses", content.CreateCourse)
	g.PUT("/courses/:id", content.UpdateCourse)
	g.DELETE("/courses/:id", content.DeleteCourse)

	g.POST("/courses/:id/modules", content.CreateModule)
	g.PUT("/courses/:id/modules/reorder", content.ReorderModules)
	g.PUT("/modules/:id", content.UpdateModule)
	g.DELETE("/modules/:id", content.DeleteModule)

	g.POST("/modules/:id/lessons", content.CreateLesson)
	g.PUT("/modules/:id/lessons/reorder", content.ReorderLessons)
	g.PUT("/lessons/:id", content.UpdateLesson)
	g.DELETE("/lessons/:id", content.DeleteLesson)

	g.POST("/lessons/:id/materials", content.CreateMaterial)
	g.POST("/lessons/:id/quizzes", content.CreateQuiz)
	g.DELETE("/materials/:id", content.DeleteMaterial)
	g.DELETE("/quizzes/:id", content.DeleteQuiz)

	g.GET("/users", users.SearchUsers)
	g.POST("/users/:id/reset-password", users.ResetPassword)
	g.POST("/users/:id/enrollments", users.EnrollUser)
	g.GET("/payments", users.ListPayments)
}
