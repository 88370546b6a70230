package api

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ewittman/quad/internal/auth"
	"github.com/ewittman/quad/internal/gateway"
	"github.com/ewittman/quad/internal/redis"
)

// Dependencies holds all handler instances and middleware for route wiring.
type Dependencies struct {
	Auth          *AuthHandler
	Users         *UserHandler
	Communities   *CommunityHandler
	Channels      *ChannelHandler
	DMs           *DMHandler
	Messages      *MessageHandler
	Reactions     *ReactionHandler
	ReadState     *ReadStateHandler
	Typing        *TypingHandler
	Voice         *VoiceHandler
	Uploads       *UploadHandler
	Notifications *NotificationHandler
	Gateway       *gateway.Manager

	TokenService *auth.TokenService
	Redis        *redis.Client
}

// SetupRouter registers all API routes on the Echo instance.
func SetupRouter(e *echo.Echo, deps *Dependencies) {
	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok"})
	})

	// Prometheus metrics
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// WebSocket gateway
	e.GET("/gateway", deps.Gateway.HandleWebSocket)

	v1 := e.Group("/api/v1")

	// Auth routes — no auth middleware, stricter rate limit
	authGroup := v1.Group("/auth",
		RateLimitMiddleware(deps.Redis, 5, time.Minute),
	)
	authGroup.POST("/register", deps.Auth.Register)
	authGroup.POST("/login", deps.Auth.Login)
	authGroup.POST("/refresh", deps.Auth.Refresh)

	// Protected routes — require JWT auth + general rate limit
	authMw := deps.TokenService.Middleware()
	protected := v1.Group("", authMw,
		RateLimitMiddleware(deps.Redis, 50, time.Minute),
	)

	// Auth (protected)
	protected.POST("/auth/logout", deps.Auth.Logout)

	// Users
	protected.GET("/users/@me", deps.Users.GetMe)
	protected.GET("/users/:id", deps.Users.GetUser)
	protected.GET("/users/@me/communities", deps.Communities.ListMyCommunities)
	protected.GET("/users/@me/unread", deps.ReadState.GetTotalUnread)
	protected.GET("/users/@me/read-cursors", deps.ReadState.GetCursors)

	// Communities
	protected.POST("/communities", deps.Communities.CreateCommunity)
	protected.GET("/communities/:id", deps.Communities.GetCommunity)
	protected.POST("/communities/:id/join", deps.Communities.JoinCommunity)
	protected.DELETE("/communities/:id/members/@me", deps.Communities.LeaveCommunity)

	// Channels
	protected.POST("/communities/:id/channels", deps.Channels.CreateChannel)
	protected.GET("/communities/:id/channels", deps.Channels.ListChannels)
	protected.GET("/channels/:id", deps.Channels.GetChannel)
	protected.DELETE("/channels/:id", deps.Channels.DeleteChannel)

	// DM conversations
	protected.POST("/dms", deps.DMs.OpenDM)
	protected.POST("/dms/group", deps.DMs.CreateGroupDM)
	protected.GET("/dms", deps.DMs.ListDMs)
	protected.GET("/dms/:id", deps.DMs.GetDM)

	// Conversation routes exist under both channel and DM mounts; the
	// handlers pick the ref from the matched path.
	for _, g := range []*echo.Group{
		v1.Group("/channels/:id", authMw, RateLimitMiddleware(deps.Redis, 50, time.Minute)),
		v1.Group("/dms/:id", authMw, RateLimitMiddleware(deps.Redis, 50, time.Minute)),
	} {
		// Messages
		g.POST("/messages", deps.Messages.SendMessage)
		g.GET("/messages", deps.Messages.GetMessages)
		g.GET("/messages/:message_id", deps.Messages.GetMessage)
		g.PATCH("/messages/:message_id", deps.Messages.EditMessage)
		g.DELETE("/messages/:message_id", deps.Messages.DeleteMessage)

		// Reactions
		g.PUT("/messages/:message_id/reactions/:emoji/@me", deps.Reactions.ToggleReaction)
		g.GET("/messages/:message_id/reactions", deps.Reactions.GetReactionGroups)
		g.GET("/messages/:message_id/reactions/:emoji", deps.Reactions.GetReactors)

		// Read state
		g.POST("/read", deps.ReadState.MarkRead)
		g.GET("/unread", deps.ReadState.GetUnread)

		// Typing
		g.POST("/typing", deps.Typing.StartTyping)
		g.DELETE("/typing", deps.Typing.StopTyping)
		g.GET("/typing", deps.Typing.GetTyping)
	}

	// Voice
	protected.POST("/channels/:id/voice", deps.Voice.StartSession)
	protected.GET("/channels/:id/voice", deps.Voice.GetActiveSession)
	protected.POST("/voice/sessions/:session_id/join", deps.Voice.JoinSession)
	protected.POST("/voice/sessions/:session_id/leave", deps.Voice.LeaveSession)
	protected.GET("/voice/sessions/:session_id/participants", deps.Voice.GetRoster)

	// Uploads
	protected.POST("/attachments", deps.Uploads.Upload)

	// Notifications
	protected.GET("/notifications", deps.Notifications.ListNotifications)
	protected.POST("/notifications/:id/read", deps.Notifications.MarkNotificationRead)
}
