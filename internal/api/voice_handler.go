package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ewittman/quad/internal/auth"
	"github.com/ewittman/quad/internal/service"
)

// VoiceHandler handles voice session endpoints.
type VoiceHandler struct {
	service *service.VoiceService
}

// NewVoiceHandler creates a VoiceHandler.
func NewVoiceHandler(svc *service.VoiceService) *VoiceHandler {
	return &VoiceHandler{service: svc}
}

// StartSession handles POST /api/v1/channels/:id/voice.
func (h *VoiceHandler) StartSession(c echo.Context) error {
	channelID, ok := pathID(c, "id")
	if !ok {
		return Error(c, http.StatusBadRequest, "INVALID_ID", "invalid channel ID")
	}

	userID := auth.GetUserID(c)

	resp, err := h.service.Start(c.Request().Context(), channelID, userID)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(http.StatusCreated, resp)
}

// GetActiveSession handles GET /api/v1/channels/:id/voice.
func (h *VoiceHandler) GetActiveSession(c echo.Context) error {
	channelID, ok := pathID(c, "id")
	if !ok {
		return Error(c, http.StatusBadRequest, "INVALID_ID", "invalid channel ID")
	}

	userID := auth.GetUserID(c)

	session, err := h.service.Active(c.Request().Context(), channelID, userID)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(http.StatusOK, session)
}

// JoinSession handles POST /api/v1/voice/sessions/:session_id/join.
func (h *VoiceHandler) JoinSession(c echo.Context) error {
	sessionID, ok := pathID(c, "session_id")
	if !ok {
		return Error(c, http.StatusBadRequest, "INVALID_ID", "invalid session ID")
	}

	userID := auth.GetUserID(c)

	resp, err := h.service.Join(c.Request().Context(), sessionID, userID)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(http.StatusOK, resp)
}

// LeaveSession handles POST /api/v1/voice/sessions/:session_id/leave.
func (h *VoiceHandler) LeaveSession(c echo.Context) error {
	sessionID, ok := pathID(c, "session_id")
	if !ok {
		return Error(c, http.StatusBadRequest, "INVALID_ID", "invalid session ID")
	}

	userID := auth.GetUserID(c)

	if err := h.service.Leave(c.Request().Context(), sessionID, userID); err != nil {
		return mapServiceError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

// GetRoster handles GET /api/v1/voice/sessions/:session_id/participants.
func (h *VoiceHandler) GetRoster(c echo.Context) error {
	sessionID, ok := pathID(c, "session_id")
	if !ok {
		return Error(c, http.StatusBadRequest, "INVALID_ID", "invalid session ID")
	}

	userID := auth.GetUserID(c)

	participants, err := h.service.Roster(c.Request().Context(), sessionID, userID)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(http.StatusOK, participants)
}
