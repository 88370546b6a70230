package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/ewittman/quad/internal/api"
	"github.com/ewittman/quad/internal/auth"
	"github.com/ewittman/quad/internal/config"
	"github.com/ewittman/quad/internal/database"
	"github.com/ewittman/quad/internal/gateway"
	"github.com/ewittman/quad/internal/notify"
	redisclient "github.com/ewittman/quad/internal/redis"
	"github.com/ewittman/quad/internal/service"
	"github.com/ewittman/quad/internal/snowflake"
	"github.com/ewittman/quad/internal/storage"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	// --- Infrastructure ---

	pool, err := database.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := database.Migrate(cfg.DatabaseURL, "migrations"); err != nil {
		slog.Error("migrations", "error", err)
		os.Exit(1)
	}

	rdb, err := redisclient.NewClient(cfg.RedisURL)
	if err != nil {
		slog.Error("redis", "error", err)
		os.Exit(1)
	}
	defer rdb.Close()

	var fileStorage service.FileStorage
	if cfg.MinIOEndpoint != "" {
		minioClient, err := storage.NewMinIOClient(cfg.MinIOEndpoint, cfg.MinIOAccessKey, cfg.MinIOSecretKey, cfg.MinIOBucket)
		if err != nil {
			slog.Error("minio", "error", err)
			os.Exit(1)
		}
		fileStorage = minioClient
	}

	sf, err := snowflake.NewGenerator(1)
	if err != nil {
		slog.Error("snowflake", "error", err)
		os.Exit(1)
	}
	tokenSvc := auth.NewTokenService(cfg.JWTSecret)

	// --- Repositories ---

	users := database.NewUserRepository(pool)
	communities := database.NewCommunityRepository(pool)
	channels := database.NewChannelRepository(pool)
	dms := database.NewDMConversationRepository(pool)
	messages := database.NewMessageRepository(pool)
	reactions := database.NewReactionRepository(pool)
	readCursors := database.NewReadCursorRepository(pool)
	voiceSessions := database.NewVoiceSessionRepository(pool)
	attachments := database.NewAttachmentRepository(pool)
	notifications := notify.NewStore(pool, sf)

	// --- Gateway ---

	gwManager := gateway.NewManager(tokenSvc, communities, channels, dms, readCursors, rdb)

	// --- Services ---

	authSvc := service.NewAuthService(users, tokenSvc, rdb, sf)
	userSvc := service.NewUserService(users)
	communitySvc := service.NewCommunityService(communities, channels, sf, gwManager)
	channelSvc := service.NewChannelService(channels, communities, sf, gwManager)
	dmSvc := service.NewDMService(dms, users, sf, gwManager)
	messageSvc := service.NewMessageService(messages, attachments, channels, communities, dms, sf, gwManager, notifications)
	reactionSvc := service.NewReactionService(reactions, messages, channels, communities, dms, gwManager)
	readStateSvc := service.NewReadStateService(readCursors, messages, channels, communities, dms, gwManager)
	presenceSvc := service.NewPresenceService(rdb, channels, communities, dms, gwManager)
	voiceSvc := service.NewVoiceService(voiceSessions, channels, communities, users, sf, gwManager, cfg.VoiceAPIKey, cfg.VoiceAPISecret)
	uploadSvc := service.NewUploadService(attachments, sf, fileStorage)

	// --- Handlers ---

	deps := &api.Dependencies{
		Auth:          api.NewAuthHandler(authSvc),
		Users:         api.NewUserHandler(userSvc, presenceSvc),
		Communities:   api.NewCommunityHandler(communitySvc),
		Channels:      api.NewChannelHandler(channelSvc),
		DMs:           api.NewDMHandler(dmSvc),
		Messages:      api.NewMessageHandler(messageSvc),
		Reactions:     api.NewReactionHandler(reactionSvc),
		ReadState:     api.NewReadStateHandler(readStateSvc),
		Typing:        api.NewTypingHandler(presenceSvc),
		Voice:         api.NewVoiceHandler(voiceSvc),
		Uploads:       api.NewUploadHandler(uploadSvc),
		Notifications: api.NewNotificationHandler(notifications),
		Gateway:       gwManager,
		TokenService:  tokenSvc,
		Redis:         rdb,
	}

	// --- Echo ---

	e := echo.New()
	e.HidePort = true
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	api.SetupRouter(e, deps)

	// --- Start ---

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("quad starting", "addr", cfg.ServerAddr)
		if err := e.Start(cfg.ServerAddr); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-sigCtx.Done()
	slog.Info("shutting down")
	if err := e.Shutdown(context.Background()); err != nil {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
