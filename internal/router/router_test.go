package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/counseling-booking/internal/handler"
	"github.com/iliyamo/counseling-booking/internal/model"
	"github.com/iliyamo/counseling-booking/internal/utils"
)

const secret = "router-secret"

type okPinger struct{}

func (okPinger) PingContext(context.Context) error { return nil }

func pass(next echo.HandlerFunc) echo.HandlerFunc { return next }

// newServer mounts every route with handlers that have no services
// behind them.  Only requests stopped by a guard or served without a
// service may be sent to it.
func newServer() *echo.Echo {
	log := zap.NewNop()
	e := echo.New()
	e.Validator = handler.NewValidator()
	bookings := handler.NewBookingHandler(nil, log)
	RegisterRoutes(e, okPinger{})
	RegisterAuth(e, handler.NewAuthHandler(nil, nil, false, log), secret, pass)
	RegisterAdmin(e, handler.NewUserHandler(nil, log), secret)
	RegisterCounselor(e, CounselorHandlers{
		Directory: handler.NewCounselorHandler(nil, log),
		Schedules: handler.NewScheduleHandler(nil, log),
		Bookings:  bookings,
		Dashboard: handler.NewDashboardHandler(nil, log),
	}, secret, pass)
	RegisterStudent(e, bookings, secret)
	return e
}

func bearer(t *testing.T, role model.Role) string {
	t.Helper()
	tok, err := utils.NewAccessToken(secret, model.Identity{UserID: 7, Name: "U", Email: "u@school.test", Role: role}, 15, time.Now())
	require.NoError(t, err)
	return "Bearer " + tok.Token
}

func do(e *echo.Echo, method, path, auth string) int {
	req := httptest.NewRequest(method, path, nil)
	if auth != "" {
		req.Header.Set(echo.HeaderAuthorization, auth)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec.Code
}

func TestRouteTable(t *testing.T) {
	e := newServer()
	have := map[string]bool{}
	for _, r := range e.Routes() {
		have[r.Method+" "+r.Path] = true
	}
	for _, want := range []string{
		"GET /healthz",
		"GET /metrics",
		"POST /v1/auth/register",
		"POST /v1/auth/login",
		"POST /v1/auth/refresh",
		"POST /v1/auth/logout",
		"GET /v1/me",
		"GET /v1/admin/users",
		"POST /v1/admin/users",
		"GET /v1/admin/users/:id",
		"PUT /v1/admin/users/:id",
		"DELETE /v1/admin/users/:id",
		"GET /v1/counselors",
		"GET /v1/counselors/:id",
		"GET /v1/counselors/:id/schedules",
		"PUT /v1/counselors/:id",
		"POST /v1/counselor/avatar-upload-url",
		"GET /v1/counselor/schedules",
		"POST /v1/counselor/schedules",
		"PUT /v1/counselor/schedules/:id",
		"DELETE /v1/counselor/schedules/:id",
		"GET /v1/counselor/bookings",
		"PUT /v1/counselor/bookings/:id",
		"PUT /v1/counselor/bookings/:id/status",
		"GET /v1/counselor/dashboard/stats",
		"GET /v1/student/bookings",
		"POST /v1/student/bookings",
		"POST /v1/student/bookings/:id/cancel",
	} {
		assert.True(t, have[want], want)
	}
}

func TestRoleGuards(t *testing.T) {
	e := newServer()
	cases := []struct {
		method, path string
		role         model.Role
		want         int
	}{
		{http.MethodGet, "/v1/counselor/schedules", "", http.StatusUnauthorized},
		{http.MethodGet, "/v1/counselor/schedules", model.RoleStudent, http.StatusForbidden},
		{http.MethodGet, "/v1/counselor/dashboard/stats", model.RoleAdmin, http.StatusForbidden},
		{http.MethodPut, "/v1/counselors/3", model.RoleStudent, http.StatusForbidden},
		{http.MethodGet, "/v1/counselors", "", http.StatusUnauthorized},
		{http.MethodPost, "/v1/student/bookings", model.RoleCounselor, http.StatusForbidden},
		{http.MethodPost, "/v1/student/bookings/9/cancel", "", http.StatusUnauthorized},
		{http.MethodGet, "/v1/admin/users", model.RoleCounselor, http.StatusForbidden},
		{http.MethodDelete, "/v1/admin/users/4", model.RoleStudent, http.StatusForbidden},
		{http.MethodGet, "/v1/me", "", http.StatusUnauthorized},
		{http.MethodGet, "/v1/me", model.RoleStudent, http.StatusOK},
		{http.MethodGet, "/healthz", "", http.StatusOK},
		{http.MethodGet, "/metrics", "", http.StatusOK},
	}
	for _, tc := range cases {
		auth := ""
		if tc.role != "" {
			auth = bearer(t, tc.role)
		}
		assert.Equal(t, tc.want, do(e, tc.method, tc.path, auth), "%s %s as %q", tc.method, tc.path, tc.role)
	}
}

func TestLogoutWithoutTokenIsBadRequest(t *testing.T) {
	e := newServer()
	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodPost, "/v1/auth/logout", ""))
}
