package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/counseling-booking/internal/service"
)

// UserHandler serves the admin user directory.
type UserHandler struct {
	users UserDirectory
	log   *zap.Logger
}

func NewUserHandler(users UserDirectory, log *zap.Logger) *UserHandler {
	return &UserHandler{users: users, log: log}
}

type createUserReq struct {
	Name     string `json:"name" validate:"required,max=120"`
	Email    string `json:"email" validate:"required,email,max=190"`
	Password string `json:"password" validate:"required,max=72"`
	Role     string `json:"role" validate:"required,oneof=admin counselor student"`
}

type updateUserReq struct {
	Name     *string `json:"name" validate:"omitempty,max=120"`
	Email    *string `json:"email" validate:"omitempty,email,max=190"`
	Password *string `json:"password" validate:"omitempty,max=72"`
	Role     *string `json:"role" validate:"omitempty,oneof=admin counselor student"`
}

// List handles GET /v1/admin/users?role=.
func (h *UserHandler) List(c echo.Context) error {
	id, err := caller(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	users, err := h.users.List(ctx, id, c.QueryParam("role"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, users)
}

// Get handles GET /v1/admin/users/:id.
func (h *UserHandler) Get(c echo.Context) error {
	id, err := caller(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	userID, err := pathID(c, "id")
	if err != nil {
		return writeError(c, h.log, err)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	u, err := h.users.Get(ctx, id, userID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, u)
}

// Create handles POST /v1/admin/users.
func (h *UserHandler) Create(c echo.Context) error {
	id, err := caller(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	var req createUserReq
	if err := bind(c, &req); err != nil {
		return writeError(c, h.log, err)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	newID, err := h.users.Create(ctx, id, service.CreateUserInput{
		Name: req.Name, Email: req.Email, Password: req.Password, Role: req.Role,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"message": "User created successfully", "userId": newID})
}

// Update handles PUT /v1/admin/users/:id.  Absent fields are unchanged.
func (h *UserHandler) Update(c echo.Context) error {
	id, err := caller(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	userID, err := pathID(c, "id")
	if err != nil {
		return writeError(c, h.log, err)
	}
	var req updateUserReq
	if err := bind(c, &req); err != nil {
		return writeError(c, h.log, err)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	n, err := h.users.Update(ctx, id, userID, service.UpdateUserInput(req))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "User updated successfully", "affectedRows": n})
}

// Delete handles DELETE /v1/admin/users/:id.
func (h *UserHandler) Delete(c echo.Context) error {
	id, err := caller(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	userID, err := pathID(c, "id")
	if err != nil {
		return writeError(c, h.log, err)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	n, err := h.users.Delete(ctx, id, userID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "User deleted successfully", "affectedRows": n})
}
