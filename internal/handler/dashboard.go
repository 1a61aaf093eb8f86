package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// DashboardHandler serves GET /v1/counselor/dashboard/stats.
type DashboardHandler struct {
	stats DashboardReader
	log   *zap.Logger
}

func NewDashboardHandler(stats DashboardReader, log *zap.Logger) *DashboardHandler {
	return &DashboardHandler{stats: stats, log: log}
}

func (h *DashboardHandler) Stats(c echo.Context) error {
	who, err := caller(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	st, err := h.stats.CounselorStats(ctx, who)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, st)
}
