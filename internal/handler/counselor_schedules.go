package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/counseling-booking/internal/service"
)

// ScheduleHandler serves a counselor's own slots.
type ScheduleHandler struct {
	schedules ScheduleManager
	log       *zap.Logger
}

func NewScheduleHandler(schedules ScheduleManager, log *zap.Logger) *ScheduleHandler {
	return &ScheduleHandler{schedules: schedules, log: log}
}

type createScheduleReq struct {
	Date      string `json:"date" validate:"required"`
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
	Status    string `json:"status"`
}

type updateScheduleReq struct {
	Date      *string `json:"date"`
	StartTime *string `json:"start_time"`
	EndTime   *string `json:"end_time"`
	Status    *string `json:"status"`
}

// List handles GET /v1/counselor/schedules?status=&start_date=&end_date=.
func (h *ScheduleHandler) List(c echo.Context) error {
	who, err := caller(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	out, err := h.schedules.List(ctx, who, service.ListSchedulesInput{
		Status:    c.QueryParam("status"),
		StartDate: c.QueryParam("start_date"),
		EndDate:   c.QueryParam("end_date"),
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}

// Create handles POST /v1/counselor/schedules.
func (h *ScheduleHandler) Create(c echo.Context) error {
	who, err := caller(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	var req createScheduleReq
	if err := bind(c, &req); err != nil {
		return writeError(c, h.log, err)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	s, err := h.schedules.Create(ctx, who, service.CreateScheduleInput(req))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"message": "Schedule created successfully", "schedule": s})
}

// Update handles PUT /v1/counselor/schedules/:id.
func (h *ScheduleHandler) Update(c echo.Context) error {
	who, err := caller(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, h.log, err)
	}
	var req updateScheduleReq
	if err := bind(c, &req); err != nil {
		return writeError(c, h.log, err)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	s, err := h.schedules.Update(ctx, who, id, service.UpdateScheduleInput(req))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Schedule updated successfully", "schedule": s})
}

// Delete handles DELETE /v1/counselor/schedules/:id.
func (h *ScheduleHandler) Delete(c echo.Context) error {
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
	if err := h.schedules.Delete(ctx, who, id); err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Schedule deleted successfully"})
}
