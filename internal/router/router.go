// Package router wires handlers and middleware onto echo.  Each
// Register function owns one URL area and the guards that protect it.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/counseling-booking/internal/handler"
	"github.com/iliyamo/counseling-booking/internal/middleware"
)

// RegisterRoutes registers the unauthenticated operational endpoints:
// the health probe and the prometheus scrape target.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health(db))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterAuth registers session routes under /v1/auth behind limiter,
// and the identity endpoint under /v1.  Logout accepts an optional
// session so a signed-in client may revoke every refresh token at once.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	g := e.Group("/v1/auth", limiter)
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout, middleware.OptionalAuth(jwtSecret))

	e.GET("/v1/me", a.Me, middleware.JWTAuth(jwtSecret))
}
