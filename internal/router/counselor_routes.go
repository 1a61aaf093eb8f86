package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/counseling-booking/internal/handler"
	"github.com/iliyamo/counseling-booking/internal/middleware"
	"github.com/iliyamo/counseling-booking/internal/model"
)

// CounselorHandlers groups the handlers mounted by RegisterCounselor.
type CounselorHandlers struct {
	Directory *handler.CounselorHandler
	Schedules *handler.ScheduleHandler
	Bookings  *handler.BookingHandler
	Dashboard *handler.DashboardHandler
}

// RegisterCounselor registers the counselor directory, readable by any
// signed-in user, and the counselor workspace under /v1/counselor.
// cache wraps only the directory listing.
func RegisterCounselor(e *echo.Echo, h CounselorHandlers, jwtSecret string, cache echo.MiddlewareFunc) {
	isCounselor := middleware.RequireRole(model.RoleCounselor)

	// ---- Directory ----
	dir := e.Group("/v1/counselors", middleware.JWTAuth(jwtSecret))
	dir.GET("", h.Directory.List, cache)
	dir.GET("/:id", h.Directory.Get)
	dir.GET("/:id/schedules", h.Directory.OpenSlots)
	dir.PUT("/:id", h.Directory.UpdateProfile, isCounselor)

	g := e.Group(
		"/v1/counselor",
		middleware.JWTAuth(jwtSecret),
		isCounselor,
	)
	g.POST("/avatar-upload-url", h.Directory.AvatarUploadURL)

	// ---- Schedules ----
	g.GET("/schedules", h.Schedules.List)
	g.POST("/schedules", h.Schedules.Create)
	g.PUT("/schedules/:id", h.Schedules.Update)
	g.DELETE("/schedules/:id", h.Schedules.Delete)

	// ---- Bookings ----
	g.GET("/bookings", h.Bookings.CounselorList)
	g.PUT("/bookings/:id", h.Bookings.CounselorAction)
	g.PUT("/bookings/:id/status", h.Bookings.CounselorStatus)

	g.GET("/dashboard/stats", h.Dashboard.Stats)
}
