package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/counseling-booking/internal/utils"
)

// SessionCookie carries the access token for browser clients.
const SessionCookie = "session"

// JWTAuth rejects requests without a valid access token and stores the
// caller's identity for handlers.  The token is taken from the session
// cookie or an Authorization: Bearer header.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := SessionToken(c)
			if raw == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
			}
			id, err := utils.ParseAccessToken(secret, raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			SetIdentity(c, id)
			return next(c)
		}
	}
}

// OptionalAuth is JWTAuth for routes that also serve anonymous callers.
// An invalid token is ignored.
func OptionalAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if raw := SessionToken(c); raw != "" {
				if id, err := utils.ParseAccessToken(secret, raw); err == nil {
					SetIdentity(c, id)
				}
			}
			return next(c)
		}
	}
}

// SessionToken returns the raw access token of the request, preferring
// the session cookie over the Authorization header.
func SessionToken(c echo.Context) string {
	if ck, err := c.Cookie(SessionCookie); err == nil && ck.Value != "" {
		return ck.Value
	}
	auth := c.Request().Header.Get(echo.HeaderAuthorization)
	if len(auth) > 7 && strings.EqualFold(auth[:7], "Bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}
