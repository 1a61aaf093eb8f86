package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/counseling-booking/internal/handler"
	"github.com/iliyamo/counseling-booking/internal/middleware"
	"github.com/iliyamo/counseling-booking/internal/model"
)

// RegisterAdmin registers user management under /v1/admin.  Every
// route requires a session with the admin role.
func RegisterAdmin(e *echo.Echo, u *handler.UserHandler, jwtSecret string) {
	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
	)
	g.GET("/users", u.List)
	g.POST("/users", u.Create)
	g.GET("/users/:id", u.Get)
	g.PUT("/users/:id", u.Update)
	g.DELETE("/users/:id", u.Delete)
}
