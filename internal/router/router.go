// Package router wires handlers and middleware onto the Echo instance.
package router

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/language-academy/internal/handler"
)

// RegisterRoutes registers the unauthenticated operational endpoints.
func RegisterRoutes(e *echo.Echo, db handler.Pinger, metrics http.Handler) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(db))
	e.GET("/metrics", echo.WrapHandler(metrics))
}

// RegisterAuth registers the end-user auth endpoints.  session resolves the
// caller from the bearer header or cookie; limit throttles credential
// guessing on login and register.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, session, limit echo.MiddlewareFunc) {
	g := e.Group("/v1/auth", session)
	g.POST("/register", a.Register, limit)
	g.POST("/login", a.Login, limit)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)

	e.GET("/v1/me", a.Me, session)
}
