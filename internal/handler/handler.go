// Package handler adapts the service layer to echo.  Handlers bind and
// validate the request, call one service operation with the caller's
// identity and translate the result into JSON.
package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/counseling-booking/internal/middleware"
	"github.com/iliyamo/counseling-booking/internal/model"
	"github.com/iliyamo/counseling-booking/internal/service"
	"github.com/iliyamo/counseling-booking/internal/storage"
)

// requestTimeout bounds the database work of one request.
const requestTimeout = 5 * time.Second

// Authenticator issues, rotates and revokes sessions.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (service.Session, error)
	IssueSession(ctx context.Context, id model.Identity) (service.Session, error)
	Refresh(ctx context.Context, raw string) (service.Session, error)
	Logout(ctx context.Context, userID uint64, rawRefresh string) error
}

// Registrar creates student accounts for anonymous visitors.
type Registrar interface {
	Register(ctx context.Context, in service.RegisterInput) (model.Identity, error)
}

// UserDirectory is the admin user management surface.
type UserDirectory interface {
	List(ctx context.Context, caller model.Identity, role string) ([]model.User, error)
	Get(ctx context.Context, caller model.Identity, id uint64) (model.User, error)
	Create(ctx context.Context, caller model.Identity, in service.CreateUserInput) (uint64, error)
	Update(ctx context.Context, caller model.Identity, id uint64, in service.UpdateUserInput) (int64, error)
	Delete(ctx context.Context, caller model.Identity, id uint64) (int64, error)
}

// CounselorDirectory serves counselor profiles and their open slots.
type CounselorDirectory interface {
	List(ctx context.Context) ([]model.CounselorSummary, error)
	Get(ctx context.Context, id uint64) (model.CounselorSummary, error)
	OpenSlots(ctx context.Context, id uint64, startDate string) ([]model.Schedule, error)
	UpdateProfile(ctx context.Context, caller model.Identity, id uint64, in service.UpdateProfileInput) (model.CounselorSummary, error)
	AvatarUploadURL(ctx context.Context, caller model.Identity) (storage.PresignedUpload, error)
}

// ScheduleManager manages a counselor's own slots.
type ScheduleManager interface {
	Create(ctx context.Context, caller model.Identity, in service.CreateScheduleInput) (model.Schedule, error)
	Update(ctx context.Context, caller model.Identity, id uint64, in service.UpdateScheduleInput) (model.Schedule, error)
	Delete(ctx context.Context, caller model.Identity, id uint64) error
	List(ctx context.Context, caller model.Identity, in service.ListSchedulesInput) ([]model.ScheduleWithBooking, error)
}

// BookingEngine runs the booking lifecycle.
type BookingEngine interface {
	Create(ctx context.Context, caller model.Identity, in service.CreateBookingInput) (model.Booking, error)
	Transition(ctx context.Context, caller model.Identity, id uint64, target model.BookingStatus) (model.Booking, error)
	Action(ctx context.Context, caller model.Identity, id uint64, action string) (model.Booking, error)
	Cancel(ctx context.Context, caller model.Identity, id uint64) (model.Booking, error)
	ListForCounselor(ctx context.Context, caller model.Identity, status string, limit int) ([]model.BookingDetail, error)
	ListForStudent(ctx context.Context, caller model.Identity, status string, limit int) ([]model.BookingDetail, error)
}

// DashboardReader reads the counselor dashboard numbers.
type DashboardReader interface {
	CounselorStats(ctx context.Context, caller model.Identity) (model.DashboardStats, error)
}

func requestCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// caller returns the identity JWTAuth stored.  Routes that reach a
// handler without one are misconfigured, so the handler answers 401.
func caller(c echo.Context) (model.Identity, error) {
	id, ok := middleware.CurrentIdentity(c)
	if !ok {
		return id, echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	return id, nil
}

func pathID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, &service.Error{Kind: service.KindValidation, Message: "invalid " + name}
	}
	return id, nil
}

func queryInt(c echo.Context, name string) (int, error) {
	v := c.QueryParam(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, &service.Error{Kind: service.KindValidation, Message: "invalid " + name}
	}
	return n, nil
}
