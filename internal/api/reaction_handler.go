package api

import (
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"github.com/ewittman/quad/internal/auth"
	"github.com/ewittman/quad/internal/service"
)

// ReactionHandler handles message reaction endpoints. Reacting is a single
// toggle: the same request adds the reaction if absent and removes it if
// present, so clients never race an add against a remove.
type ReactionHandler struct {
	service *service.ReactionService
}

// NewReactionHandler creates a ReactionHandler.
func NewReactionHandler(svc *service.ReactionService) *ReactionHandler {
	return &ReactionHandler{service: svc}
}

// ToggleReaction handles PUT .../messages/:message_id/reactions/:emoji/@me.
func (h *ReactionHandler) ToggleReaction(c echo.Context) error {
	msgID, ok := pathID(c, "message_id")
	if !ok {
		return Error(c, http.StatusBadRequest, "INVALID_ID", "invalid message ID")
	}

	emoji, err := url.PathUnescape(c.Param("emoji"))
	if err != nil || emoji == "" {
		return Error(c, http.StatusBadRequest, "INVALID_EMOJI", "invalid emoji")
	}

	userID := auth.GetUserID(c)

	result, err := h.service.Toggle(c.Request().Context(), msgID, userID, emoji)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(http.StatusOK, result)
}

// GetReactionGroups handles GET .../messages/:message_id/reactions.
func (h *ReactionHandler) GetReactionGroups(c echo.Context) error {
	msgID, ok := pathID(c, "message_id")
	if !ok {
		return Error(c, http.StatusBadRequest, "INVALID_ID", "invalid message ID")
	}

	userID := auth.GetUserID(c)

	groups, err := h.service.Groups(c.Request().Context(), msgID, userID)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(http.StatusOK, groups)
}

// GetReactors handles GET .../messages/:message_id/reactions/:emoji.
func (h *ReactionHandler) GetReactors(c echo.Context) error {
	msgID, ok := pathID(c, "message_id")
	if !ok {
		return Error(c, http.StatusBadRequest, "INVALID_ID", "invalid message ID")
	}

	emoji, err := url.PathUnescape(c.Param("emoji"))
	if err != nil || emoji == "" {
		return Error(c, http.StatusBadRequest, "INVALID_EMOJI", "invalid emoji")
	}

	userID := auth.GetUserID(c)

	limit, ok := queryLimit(c, 25, 100)
	if !ok {
		return Error(c, http.StatusBadRequest, "INVALID_LIMIT", "limit must be 1-100")
	}

	userIDs, err := h.service.Reactors(c.Request().Context(), msgID, userID, emoji, limit)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(http.StatusOK, userIDs)
}
