package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ewittman/quad/internal/auth"
	"github.com/ewittman/quad/internal/service"
)

// CommunityHandler handles community endpoints.
type CommunityHandler struct {
	service *service.CommunityService
}

// NewCommunityHandler creates a CommunityHandler.
func NewCommunityHandler(svc *service.CommunityService) *CommunityHandler {
	return &CommunityHandler{service: svc}
}

type createCommunityRequest struct {
	Name string `json:"name"`
}

// CreateCommunity handles POST /api/v1/communities.
func (h *CommunityHandler) CreateCommunity(c echo.Context) error {
	userID := auth.GetUserID(c)

	var req createCommunityRequest
	if err := c.Bind(&req); err != nil {
		return Error(c, http.StatusBadRequest, "INVALID_BODY", "invalid request body")
	}

	community, err := h.service.Create(c.Request().Context(), userID, req.Name)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(http.StatusCreated, community)
}

// GetCommunity handles GET /api/v1/communities/:id.
func (h *CommunityHandler) GetCommunity(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return Error(c, http.StatusBadRequest, "INVALID_ID", "invalid community ID")
	}

	userID := auth.GetUserID(c)

	community, err := h.service.Get(c.Request().Context(), id, userID)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(http.StatusOK, community)
}

// ListMyCommunities handles GET /api/v1/users/@me/communities.
func (h *CommunityHandler) ListMyCommunities(c echo.Context) error {
	userID := auth.GetUserID(c)

	communities, err := h.service.List(c.Request().Context(), userID)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(http.StatusOK, communities)
}

// JoinCommunity handles POST /api/v1/communities/:id/join.
func (h *CommunityHandler) JoinCommunity(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return Error(c, http.StatusBadRequest, "INVALID_ID", "invalid community ID")
	}

	userID := auth.GetUserID(c)

	if err := h.service.Join(c.Request().Context(), id, userID); err != nil {
		return mapServiceError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

// LeaveCommunity handles DELETE /api/v1/communities/:id/members/@me.
func (h *CommunityHandler) LeaveCommunity(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return Error(c, http.StatusBadRequest, "INVALID_ID", "invalid community ID")
	}

	userID := auth.GetUserID(c)

	if err := h.service.Leave(c.Request().Context(), id, userID); err != nil {
		return mapServiceError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}
