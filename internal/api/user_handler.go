package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ewittman/quad/internal/auth"
	"github.com/ewittman/quad/internal/models"
	"github.com/ewittman/quad/internal/service"
)

// UserHandler handles user lookup endpoints.
type UserHandler struct {
	users    *service.UserService
	presence *service.PresenceService
}

// NewUserHandler creates a UserHandler.
func NewUserHandler(users *service.UserService, presence *service.PresenceService) *UserHandler {
	return &UserHandler{users: users, presence: presence}
}

type userResponse struct {
	models.User
	Status string `json:"status"`
}

// GetMe handles GET /api/v1/users/@me.
func (h *UserHandler) GetMe(c echo.Context) error {
	userID := auth.GetUserID(c)

	user, err := h.users.Get(c.Request().Context(), userID)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(http.StatusOK, userResponse{
		User:   *user,
		Status: h.presence.Status(c.Request().Context(), userID),
	})
}

// GetUser handles GET /api/v1/users/:id.
func (h *UserHandler) GetUser(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return Error(c, http.StatusBadRequest, "INVALID_ID", "invalid user ID")
	}

	user, err := h.users.Get(c.Request().Context(), id)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(http.StatusOK, userResponse{
		User:   *user,
		Status: h.presence.Status(c.Request().Context(), id),
	})
}
