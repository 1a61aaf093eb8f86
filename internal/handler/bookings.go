package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/counseling-booking/internal/model"
	"github.com/iliyamo/counseling-booking/internal/service"
)

// BookingHandler serves both sides of the booking lifecycle.
type BookingHandler struct {
	bookings BookingEngine
	log      *zap.Logger
}

func NewBookingHandler(bookings BookingEngine, log *zap.Logger) *BookingHandler {
	return &BookingHandler{bookings: bookings, log: log}
}

type createBookingReq struct {
	ScheduleID uint64 `json:"schedule_id" validate:"required"`
	Topic      string `json:"topic" validate:"required,max=255"`
	Notes      string `json:"notes"`
}

type bookingActionReq struct {
	Action string `json:"action" validate:"required,oneof=confirm cancel"`
}

type bookingStatusReq struct {
	Status string `json:"status" validate:"required"`
}

// CounselorList handles GET /v1/counselor/bookings?status=&limit=.
func (h *BookingHandler) CounselorList(c echo.Context) error {
	who, err := caller(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		return writeError(c, h.log, err)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	out, err := h.bookings.ListForCounselor(ctx, who, c.QueryParam("status"), limit)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}

// CounselorAction handles PUT /v1/counselor/bookings/:id with
// {"action": "confirm"|"cancel"}.
func (h *BookingHandler) CounselorAction(c echo.Context) error {
	who, err := caller(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, h.log, err)
	}
	var req bookingActionReq
	if err := bind(c, &req); err != nil {
		return writeError(c, h.log, err)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	b, err := h.bookings.Action(ctx, who, id, req.Action)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Booking " + string(b.Status) + " successfully", "booking": b})
}

// CounselorStatus handles PUT /v1/counselor/bookings/:id/status with
// any target status.
func (h *BookingHandler) CounselorStatus(c echo.Context) error {
	who, err := caller(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, h.log, err)
	}
	var req bookingStatusReq
	if err := bind(c, &req); err != nil {
		return writeError(c, h.log, err)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	b, err := h.bookings.Transition(ctx, who, id, model.BookingStatus(req.Status))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Booking status updated successfully", "status": b.Status, "booking": b})
}

// StudentList handles GET /v1/student/bookings?status=&limit=.
func (h *BookingHandler) StudentList(c echo.Context) error {
	who, err := caller(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		return writeError(c, h.log, err)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	out, err := h.bookings.ListForStudent(ctx, who, c.QueryParam("status"), limit)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}

// StudentCreate handles POST /v1/student/bookings.
func (h *BookingHandler) StudentCreate(c echo.Context) error {
	who, err := caller(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	var req createBookingReq
	if err := bind(c, &req); err != nil {
		return writeError(c, h.log, err)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	b, err := h.bookings.Create(ctx, who, service.CreateBookingInput(req))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"message": "Booking created successfully", "booking": b})
}

// StudentCancel handles POST /v1/student/bookings/:id/cancel.
func (h *BookingHandler) StudentCancel(c echo.Context) error {
	who, err := caller(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, h.log, err)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	b, err := h.bookings.Cancel(ctx, who, id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Booking cancelled successfully", "booking": b})
}
