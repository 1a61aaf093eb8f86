package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/counseling-booking/internal/middleware"
	"github.com/iliyamo/counseling-booking/internal/service"
)

// RefreshCookie carries the refresh token for browser clients.  It is
// only sent to the auth routes.
const RefreshCookie = "refresh_token"

const refreshCookiePath = "/v1/auth"

// AuthHandler serves registration, login, token rotation and logout.
type AuthHandler struct {
	auth         Authenticator
	users        Registrar
	cookieSecure bool
	log          *zap.Logger
}

func NewAuthHandler(auth Authenticator, users Registrar, cookieSecure bool, log *zap.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, users: users, cookieSecure: cookieSecure, log: log}
}

type registerReq struct {
	Name     string `json:"name" validate:"required,max=120"`
	Email    string `json:"email" validate:"required,email,max=190"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type loginReq struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

type authResp struct {
	User    any       `json:"user"`
	Access  tokenPart `json:"access"`
	Refresh tokenPart `json:"refresh"`
}

// Register creates a student account and signs it in.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := bind(c, &req); err != nil {
		return writeError(c, h.log, err)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	id, err := h.users.Register(ctx, service.RegisterInput{Name: req.Name, Email: req.Email, Password: req.Password})
	if err != nil {
		return writeError(c, h.log, err)
	}
	sess, err := h.auth.IssueSession(ctx, id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return h.respondSession(c, http.StatusCreated, sess)
}

// Login verifies credentials and opens a session.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bind(c, &req); err != nil {
		return writeError(c, h.log, err)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	sess, err := h.auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return h.respondSession(c, http.StatusOK, sess)
}

// Refresh rotates the refresh token from the body or the refresh cookie.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	raw := refreshToken(c, req.RefreshToken)
	if raw == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	sess, err := h.auth.Refresh(ctx, raw)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return h.respondSession(c, http.StatusOK, sess)
}

// Logout revokes the presented refresh token, or every refresh token of
// the signed-in user when none is presented, and clears both cookies.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	_ = c.Bind(&req)
	raw := refreshToken(c, req.RefreshToken)
	id, signedIn := middleware.CurrentIdentity(c)
	if raw == "" && !signedIn {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	if err := h.auth.Logout(ctx, id.UserID, raw); err != nil {
		return writeError(c, h.log, err)
	}
	h.clearCookies(c)
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

// Me returns the caller's identity.
func (h *AuthHandler) Me(c echo.Context) error {
	id, err := caller(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"user": id})
}

func (h *AuthHandler) respondSession(c echo.Context, status int, sess service.Session) error {
	c.SetCookie(&http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    sess.Access.Token,
		Path:     "/",
		Expires:  sess.Access.Exp,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	c.SetCookie(&http.Cookie{
		Name:     RefreshCookie,
		Value:    sess.Refresh.Raw,
		Path:     refreshCookiePath,
		Expires:  sess.Refresh.Exp,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
	return c.JSON(status, authResp{
		User:    sess.Identity,
		Access:  tokenPart{Token: sess.Access.Token, Expires: sess.Access.Exp},
		Refresh: tokenPart{Token: sess.Refresh.Raw, Expires: sess.Refresh.Exp},
	})
}

func (h *AuthHandler) clearCookies(c echo.Context) {
	for name, path := range map[string]string{middleware.SessionCookie: "/", RefreshCookie: refreshCookiePath} {
		c.SetCookie(&http.Cookie{
			Name:     name,
			Value:    "",
			Path:     path,
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   h.cookieSecure,
		})
	}
}

func refreshToken(c echo.Context, fromBody string) string {
	if fromBody != "" {
		return fromBody
	}
	if ck, err := c.Cookie(RefreshCookie); err == nil {
		return ck.Value
	}
	return ""
}
