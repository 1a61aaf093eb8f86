package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/counseling-booking/internal/service"
)

// CounselorHandler serves the counselor directory and profile edits.
type CounselorHandler struct {
	counselors CounselorDirectory
	log        *zap.Logger
}

func NewCounselorHandler(counselors CounselorDirectory, log *zap.Logger) *CounselorHandler {
	return &CounselorHandler{counselors: counselors, log: log}
}

type updateProfileReq struct {
	Bio            string  `json:"bio" validate:"required"`
	Specialization *string `json:"specialization" validate:"omitempty,max=190"`
	ProfilePicture *string `json:"profile_picture" validate:"omitempty,url,max=512"`
}

// List handles GET /v1/counselors.
func (h *CounselorHandler) List(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()
	out, err := h.counselors.List(ctx)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}

// Get handles GET /v1/counselors/:id.
func (h *CounselorHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, h.log, err)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	out, err := h.counselors.Get(ctx, id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}

// OpenSlots handles GET /v1/counselors/:id/schedules?start_date=.
func (h *CounselorHandler) OpenSlots(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, h.log, err)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	out, err := h.counselors.OpenSlots(ctx, id, c.QueryParam("start_date"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}

// UpdateProfile handles PUT /v1/counselors/:id.
func (h *CounselorHandler) UpdateProfile(c echo.Context) error {
	who, err := caller(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, h.log, err)
	}
	var req updateProfileReq
	if err := bind(c, &req); err != nil {
		return writeError(c, h.log, err)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	out, err := h.counselors.UpdateProfile(ctx, who, id, service.UpdateProfileInput(req))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Profile updated successfully", "counselor": out})
}

// AvatarUploadURL handles POST /v1/counselor/avatar-upload-url.
func (h *CounselorHandler) AvatarUploadURL(c echo.Context) error {
	who, err := caller(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	up, err := h.counselors.AvatarUploadURL(ctx, who)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, up)
}
