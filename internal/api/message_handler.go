package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/ewittman/quad/internal/auth"
	"github.com/ewittman/quad/internal/service"
)

// MessageHandler handles message CRUD endpoints. Every route exists under
// both /channels/:id and /dms/:id; pathRef picks the conversation.
type MessageHandler struct {
	service *service.MessageService
}

// NewMessageHandler creates a MessageHandler.
func NewMessageHandler(svc *service.MessageService) *MessageHandler {
	return &MessageHandler{service: svc}
}

type sendMessageRequest struct {
	Content       string   `json:"content"`
	ReplyToID     *string  `json:"reply_to_id"`
	AttachmentIDs []string `json:"attachment_ids"`
}

// SendMessage handles POST .../messages.
func (h *MessageHandler) SendMessage(c echo.Context) error {
	ref, ok := pathRef(c)
	if !ok {
		return Error(c, http.StatusBadRequest, "INVALID_ID", "invalid conversation ID")
	}

	userID := auth.GetUserID(c)

	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return Error(c, http.StatusBadRequest, "INVALID_BODY", "invalid request body")
	}

	in := service.SendInput{Content: req.Content}
	if req.ReplyToID != nil {
		id, err := strconv.ParseInt(*req.ReplyToID, 10, 64)
		if err != nil {
			return Error(c, http.StatusBadRequest, "INVALID_ID", "invalid reply target ID")
		}
		in.ReplyToID = &id
	}
	for _, raw := range req.AttachmentIDs {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return Error(c, http.StatusBadRequest, "INVALID_ID", "invalid attachment ID")
		}
		in.AttachmentIDs = append(in.AttachmentIDs, id)
	}

	full, err := h.service.Send(c.Request().Context(), ref, userID, in)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(http.StatusCreated, full)
}

// GetMessages handles GET .../messages.
func (h *MessageHandler) GetMessages(c echo.Context) error {
	ref, ok := pathRef(c)
	if !ok {
		return Error(c, http.StatusBadRequest, "INVALID_ID", "invalid conversation ID")
	}

	userID := auth.GetUserID(c)

	limit, ok := queryLimit(c, 50, 100)
	if !ok {
		return Error(c, http.StatusBadRequest, "INVALID_LIMIT", "limit must be 1-100")
	}

	var before *int64
	if b := c.QueryParam("before"); b != "" {
		parsed, err := strconv.ParseInt(b, 10, 64)
		if err != nil {
			return Error(c, http.StatusBadRequest, "INVALID_BEFORE", "invalid before cursor")
		}
		before = &parsed
	}

	messages, err := h.service.List(c.Request().Context(), ref, userID, before, limit)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(http.StatusOK, messages)
}

// GetMessage handles GET .../messages/:message_id.
func (h *MessageHandler) GetMessage(c echo.Context) error {
	ref, ok := pathRef(c)
	if !ok {
		return Error(c, http.StatusBadRequest, "INVALID_ID", "invalid conversation ID")
	}

	msgID, ok := pathID(c, "message_id")
	if !ok {
		return Error(c, http.StatusBadRequest, "INVALID_ID", "invalid message ID")
	}

	userID := auth.GetUserID(c)

	msg, err := h.service.Get(c.Request().Context(), ref, msgID, userID)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(http.StatusOK, msg)
}

type editMessageRequest struct {
	Content string `json:"content"`
}

// EditMessage handles PATCH .../messages/:message_id.
func (h *MessageHandler) EditMessage(c echo.Context) error {
	ref, ok := pathRef(c)
	if !ok {
		return Error(c, http.StatusBadRequest, "INVALID_ID", "invalid conversation ID")
	}

	msgID, ok := pathID(c, "message_id")
	if !ok {
		return Error(c, http.StatusBadRequest, "INVALID_ID", "invalid message ID")
	}

	userID := auth.GetUserID(c)

	var req editMessageRequest
	if err := c.Bind(&req); err != nil {
		return Error(c, http.StatusBadRequest, "INVALID_BODY", "invalid request body")
	}

	full, err := h.service.Edit(c.Request().Context(), ref, msgID, userID, req.Content)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(http.StatusOK, full)
}

// DeleteMessage handles DELETE .../messages/:message_id.
func (h *MessageHandler) DeleteMessage(c echo.Context) error {
	ref, ok := pathRef(c)
	if !ok {
		return Error(c, http.StatusBadRequest, "INVALID_ID", "invalid conversation ID")
	}

	msgID, ok := pathID(c, "message_id")
	if !ok {
		return Error(c, http.StatusBadRequest, "INVALID_ID", "invalid message ID")
	}

	userID := auth.GetUserID(c)

	if err := h.service.Delete(c.Request().Context(), ref, msgID, userID); err != nil {
		return mapServiceError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}
