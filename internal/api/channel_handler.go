package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ewittman/quad/internal/auth"
	"github.com/ewittman/quad/internal/models"
	"github.com/ewittman/quad/internal/service"
)

// ChannelHandler handles channel endpoints.
type ChannelHandler struct {
	service *service.ChannelService
}

// NewChannelHandler creates a ChannelHandler.
func NewChannelHandler(svc *service.ChannelService) *ChannelHandler {
	return &ChannelHandler{service: svc}
}

type createChannelRequest struct {
	Name     string  `json:"name"`
	Kind     string  `json:"kind"`
	Private  bool    `json:"private"`
	Position int     `json:"position"`
	Topic    *string `json:"topic"`
}

// CreateChannel handles POST /api/v1/communities/:id/channels.
func (h *ChannelHandler) CreateChannel(c echo.Context) error {
	communityID, ok := pathID(c, "id")
	if !ok {
		return Error(c, http.StatusBadRequest, "INVALID_ID", "invalid community ID")
	}

	userID := auth.GetUserID(c)

	var req createChannelRequest
	if err := c.Bind(&req); err != nil {
		return Error(c, http.StatusBadRequest, "INVALID_BODY", "invalid request body")
	}

	channel, err := h.service.Create(c.Request().Context(), communityID, userID, service.CreateInput{
		Name:     req.Name,
		Kind:     models.ChannelKind(req.Kind),
		Private:  req.Private,
		Position: req.Position,
		Topic:    req.Topic,
	})
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(http.StatusCreated, channel)
}

// GetChannel handles GET /api/v1/channels/:id.
func (h *ChannelHandler) GetChannel(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return Error(c, http.StatusBadRequest, "INVALID_ID", "invalid channel ID")
	}

	userID := auth.GetUserID(c)

	channel, err := h.service.Get(c.Request().Context(), id, userID)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(http.StatusOK, channel)
}

// ListChannels handles GET /api/v1/communities/:id/channels.
func (h *ChannelHandler) ListChannels(c echo.Context) error {
	communityID, ok := pathID(c, "id")
	if !ok {
		return Error(c, http.StatusBadRequest, "INVALID_ID", "invalid community ID")
	}

	userID := auth.GetUserID(c)

	channels, err := h.service.List(c.Request().Context(), communityID, userID)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(http.StatusOK, channels)
}

// DeleteChannel handles DELETE /api/v1/channels/:id.
func (h *ChannelHandler) DeleteChannel(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return Error(c, http.StatusBadRequest, "INVALID_ID", "invalid channel ID")
	}

	userID := auth.GetUserID(c)

	if err := h.service.Delete(c.Request().Context(), id, userID); err != nil {
		return mapServiceError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}
