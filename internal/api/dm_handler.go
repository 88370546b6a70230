package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/ewittman/quad/internal/auth"
	"github.com/ewittman/quad/internal/service"
)

// DMHandler handles direct-message conversation endpoints.
type DMHandler struct {
	service *service.DMService
}

// NewDMHandler creates a DMHandler.
func NewDMHandler(svc *service.DMService) *DMHandler {
	return &DMHandler{service: svc}
}

type openDMRequest struct {
	RecipientID string `json:"recipient_id"`
}

// OpenDM handles POST /api/v1/dms. Opening a DM with the same recipient
// twice returns the existing conversation.
func (h *DMHandler) OpenDM(c echo.Context) error {
	userID := auth.GetUserID(c)

	var req openDMRequest
	if err := c.Bind(&req); err != nil {
		return Error(c, http.StatusBadRequest, "INVALID_BODY", "invalid request body")
	}

	recipientID, err := strconv.ParseInt(req.RecipientID, 10, 64)
	if err != nil {
		return Error(c, http.StatusBadRequest, "INVALID_ID", "invalid recipient ID")
	}

	dm, err := h.service.OpenDirect(c.Request().Context(), userID, recipientID)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(http.StatusOK, dm)
}

type createGroupDMRequest struct {
	Name           string   `json:"name"`
	ParticipantIDs []string `json:"participant_ids"`
}

// CreateGroupDM handles POST /api/v1/dms/group.
func (h *DMHandler) CreateGroupDM(c echo.Context) error {
	userID := auth.GetUserID(c)

	var req createGroupDMRequest
	if err := c.Bind(&req); err != nil {
		return Error(c, http.StatusBadRequest, "INVALID_BODY", "invalid request body")
	}

	participantIDs := make([]int64, 0, len(req.ParticipantIDs))
	for _, raw := range req.ParticipantIDs {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return Error(c, http.StatusBadRequest, "INVALID_ID", "invalid participant ID")
		}
		participantIDs = append(participantIDs, id)
	}

	dm, err := h.service.CreateGroup(c.Request().Context(), userID, req.Name, participantIDs)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(http.StatusCreated, dm)
}

// GetDM handles GET /api/v1/dms/:id.
func (h *DMHandler) GetDM(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return Error(c, http.StatusBadRequest, "INVALID_ID", "invalid conversation ID")
	}

	userID := auth.GetUserID(c)

	dm, err := h.service.Get(c.Request().Context(), id, userID)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(http.StatusOK, dm)
}

// ListDMs handles GET /api/v1/dms.
func (h *DMHandler) ListDMs(c echo.Context) error {
	userID := auth.GetUserID(c)

	dms, err := h.service.List(c.Request().Context(), userID)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(http.StatusOK, dms)
}
