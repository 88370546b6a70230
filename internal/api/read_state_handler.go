package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/ewittman/quad/internal/auth"
	"github.com/ewittman/quad/internal/service"
)

// ReadStateHandler handles read-cursor and unread-count endpoints.
type ReadStateHandler struct {
	service *service.ReadStateService
}

// NewReadStateHandler creates a ReadStateHandler.
func NewReadStateHandler(svc *service.ReadStateService) *ReadStateHandler {
	return &ReadStateHandler{service: svc}
}

type markReadRequest struct {
	MessageID *string `json:"message_id"`
}

// MarkRead handles POST .../read. Without a message_id the cursor lands on
// now; with one it lands on that message's timestamp.
func (h *ReadStateHandler) MarkRead(c echo.Context) error {
	ref, ok := pathRef(c)
	if !ok {
		return Error(c, http.StatusBadRequest, "INVALID_ID", "invalid conversation ID")
	}

	userID := auth.GetUserID(c)

	var req markReadRequest
	if err := c.Bind(&req); err != nil {
		return Error(c, http.StatusBadRequest, "INVALID_BODY", "invalid request body")
	}

	var messageID *int64
	if req.MessageID != nil {
		id, err := strconv.ParseInt(*req.MessageID, 10, 64)
		if err != nil {
			return Error(c, http.StatusBadRequest, "INVALID_ID", "invalid message ID")
		}
		messageID = &id
	}

	cursor, err := h.service.MarkRead(c.Request().Context(), ref, userID, messageID)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(http.StatusOK, cursor)
}

type unreadResponse struct {
	UnreadCount int `json:"unread_count"`
}

// GetUnread handles GET .../unread.
func (h *ReadStateHandler) GetUnread(c echo.Context) error {
	ref, ok := pathRef(c)
	if !ok {
		return Error(c, http.StatusBadRequest, "INVALID_ID", "invalid conversation ID")
	}

	userID := auth.GetUserID(c)

	count, err := h.service.UnreadCount(c.Request().Context(), ref, userID)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(http.StatusOK, unreadResponse{UnreadCount: count})
}

// GetTotalUnread handles GET /api/v1/users/@me/unread.
func (h *ReadStateHandler) GetTotalUnread(c echo.Context) error {
	userID := auth.GetUserID(c)

	count, err := h.service.TotalUnread(c.Request().Context(), userID)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(http.StatusOK, unreadResponse{UnreadCount: count})
}

// GetCursors handles GET /api/v1/users/@me/read-cursors.
func (h *ReadStateHandler) GetCursors(c echo.Context) error {
	userID := auth.GetUserID(c)

	cursors, err := h.service.Cursors(c.Request().Context(), userID)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(http.StatusOK, cursors)
}
