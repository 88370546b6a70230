package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ewittman/quad/internal/auth"
	"github.com/ewittman/quad/internal/service"
)

// UploadHandler handles file upload endpoints. Uploads start unattached; a
// later message send claims them by ID.
type UploadHandler struct {
	service *service.UploadService
}

// NewUploadHandler creates an UploadHandler.
func NewUploadHandler(svc *service.UploadService) *UploadHandler {
	return &UploadHandler{service: svc}
}

// Upload handles POST /api/v1/attachments.
func (h *UploadHandler) Upload(c echo.Context) error {
	userID := auth.GetUserID(c)

	file, err := c.FormFile("file")
	if err != nil {
		return Error(c, http.StatusBadRequest, "MISSING_FILE", "file field is required")
	}

	src, err := file.Open()
	if err != nil {
		return Error(c, http.StatusInternalServerError, "INTERNAL", "internal server error")
	}
	defer src.Close()

	attachment, err := h.service.UploadFile(
		c.Request().Context(),
		userID,
		file.Filename,
		file.Size,
		file.Header.Get("Content-Type"),
		src,
	)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(http.StatusCreated, attachment)
}
