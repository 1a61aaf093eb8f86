package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/counseling-booking/internal/middleware"
	"github.com/iliyamo/counseling-booking/internal/service"
)

func statusFor(k service.Kind) int {
	switch k {
	case service.KindValidation:
		return http.StatusBadRequest
	case service.KindAuthorization:
		return http.StatusForbidden
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// writeError answers err with its status and message.  Errors that are
// not business rule violations are logged and hidden behind a generic
// 500.
func writeError(c echo.Context, log *zap.Logger, err error) error {
	var (
		se *service.Error
		te *service.TransitionError
		he *echo.HTTPError
	)
	switch {
	case errors.As(err, &te):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": te.Error()})
	case errors.As(err, &se):
		return c.JSON(statusFor(se.Kind), echo.Map{"error": se.Message})
	case errors.As(err, &he):
		return c.JSON(he.Code, echo.Map{"error": he.Message})
	case errors.Is(err, service.ErrInvalidCredentials):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	case errors.Is(err, service.ErrInvalidRefresh):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
	case errors.Is(err, service.ErrUploadsDisabled):
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": err.Error()})
	}
	log.Error("request failed",
		zap.String("method", c.Request().Method),
		zap.String("route", c.Path()),
		zap.String("request_id", middleware.CurrentRequestID(c)),
		zap.Error(err))
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
}
