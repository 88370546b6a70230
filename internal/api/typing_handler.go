package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ewittman/quad/internal/auth"
	"github.com/ewittman/quad/internal/service"
)

// TypingHandler handles typing indicator endpoints.
type TypingHandler struct {
	service *service.PresenceService
}

// NewTypingHandler creates a TypingHandler.
func NewTypingHandler(svc *service.PresenceService) *TypingHandler {
	return &TypingHandler{service: svc}
}

// StartTyping handles POST .../typing. Clients re-post while the user keeps
// typing; the indicator otherwise expires on its own.
func (h *TypingHandler) StartTyping(c echo.Context) error {
	ref, ok := pathRef(c)
	if !ok {
		return Error(c, http.StatusBadRequest, "INVALID_ID", "invalid conversation ID")
	}

	userID := auth.GetUserID(c)

	if err := h.service.StartTyping(c.Request().Context(), ref, userID); err != nil {
		return mapServiceError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

// StopTyping handles DELETE .../typing.
func (h *TypingHandler) StopTyping(c echo.Context) error {
	ref, ok := pathRef(c)
	if !ok {
		return Error(c, http.StatusBadRequest, "INVALID_ID", "invalid conversation ID")
	}

	userID := auth.GetUserID(c)

	if err := h.service.StopTyping(c.Request().Context(), ref, userID); err != nil {
		return mapServiceError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

// GetTyping handles GET .../typing.
func (h *TypingHandler) GetTyping(c echo.Context) error {
	ref, ok := pathRef(c)
	if !ok {
		return Error(c, http.StatusBadRequest, "INVALID_ID", "invalid conversation ID")
	}

	userID := auth.GetUserID(c)

	userIDs, err := h.service.TypingUsers(c.Request().Context(), ref, userID)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(http.StatusOK, userIDs)
}
