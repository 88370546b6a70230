package api

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/ewittman/quad/internal/models"
)

// pathRef builds the conversation ref from the matched route. The same
// handler serves both mounts: /channels/:id/... and /dms/:id/....
func pathRef(c echo.Context) (models.ConversationRef, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return models.ConversationRef{}, false
	}
	if strings.HasPrefix(c.Path(), "/api/v1/dms") {
		return models.DMRef(id), true
	}
	return models.ChannelRef(id), true
}

// pathID parses an int64 path parameter.
func pathID(c echo.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// queryLimit parses an optional limit query parameter within [1, max].
func queryLimit(c echo.Context, def, max int) (int, bool) {
	l := c.QueryParam("limit")
	if l == "" {
		return def, true
	}
	parsed, err := strconv.Atoi(l)
	if err != nil || parsed < 1 || parsed > max {
		return 0, false
	}
	return parsed, true
}
