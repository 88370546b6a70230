package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ewittman/quad/internal/auth"
	"github.com/ewittman/quad/internal/models"
	"github.com/ewittman/quad/internal/notify"
)

// NotificationHandler handles notification endpoints.
type NotificationHandler struct {
	store *notify.Store
}

// NewNotificationHandler creates a NotificationHandler.
func NewNotificationHandler(store *notify.Store) *NotificationHandler {
	return &NotificationHandler{store: store}
}

// ListNotifications handles GET /api/v1/notifications.
func (h *NotificationHandler) ListNotifications(c echo.Context) error {
	userID := auth.GetUserID(c)

	limit, ok := queryLimit(c, 50, 100)
	if !ok {
		return Error(c, http.StatusBadRequest, "INVALID_LIMIT", "limit must be 1-100")
	}

	notifications, err := h.store.ListByUser(c.Request().Context(), userID, limit)
	if err != nil {
		return Error(c, http.StatusInternalServerError, "INTERNAL", "internal server error")
	}
	if notifications == nil {
		notifications = []models.Notification{}
	}

	return c.JSON(http.StatusOK, notifications)
}

// MarkNotificationRead handles POST /api/v1/notifications/:id/read.
func (h *NotificationHandler) MarkNotificationRead(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return Error(c, http.StatusBadRequest, "INVALID_ID", "invalid notification ID")
	}

	userID := auth.GetUserID(c)

	if err := h.store.MarkRead(c.Request().Context(), userID, id); err != nil {
		return Error(c, http.StatusInternalServerError, "INTERNAL", "internal server error")
	}

	return c.NoContent(http.StatusNoContent)
}
