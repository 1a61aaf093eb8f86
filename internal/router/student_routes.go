package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/counseling-booking/internal/handler"
	"github.com/iliyamo/counseling-booking/internal/middleware"
	"github.com/iliyamo/counseling-booking/internal/model"
)

// RegisterStudent registers student-scoped booking endpoints under
// /v1/student.  All routes require a valid session and the student
// role; ownership of a booking is checked by the service.
func RegisterStudent(e *echo.Echo, b *handler.BookingHandler, jwtSecret string) {
	g := e.Group(
		"/v1/student",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleStudent),
	)
	g.GET("/bookings", b.StudentList)
	g.POST("/bookings", b.StudentCreate)
	g.POST("/bookings/:id/cancel", b.StudentCancel)
}
