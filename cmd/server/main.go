// Package main runs the community service platform HTTP server with WebSocket
// chat and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/communityserve/backend/config"
	"github.com/communityserve/backend/internal/auth"
	"github.com/communityserve/backend/internal/chat"
	"github.com/communityserve/backend/internal/events"
	"github.com/communityserve/backend/internal/middleware"
	"github.com/communityserve/backend/internal/models"
	"github.com/communityserve/backend/internal/notify"
	"github.com/communityserve/backend/internal/participation"
	"github.com/communityserve/backend/internal/realtime"
	"github.com/communityserve/backend/pkg/database"
	"github.com/communityserve/backend/pkg/queue"
	"github.com/communityserve/backend/pkg/redis"
	"github.com/communityserve/backend/pkg/response"
	"github.com/communityserve/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	var s3Client *storage.S3
	if cfg.AWS.Region != "" {
		s3Cfg := storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			AttachmentsBucket:    cfg.AWS.AttachmentsBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}
		s3Client, err = storage.NewS3(ctx, s3Cfg, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		}
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	redisPubSub := realtime.NewRedisPubSub(rdb.Client, logger)
	hub := realtime.NewHub(logger, redisPubSub, redisPubSub)

	// Auth
	authRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, jwtService, logger)

	// Events
	eventRepo := events.NewRepository(pool)
	eventHandler := events.NewHandler(eventRepo)

	// Notifications (email log + queue)
	jobQueue := queue.NewQueue(rdb.Client, logger)
	notifyRepo := notify.NewRepository(pool)
	notifySvc := notify.NewService(notifyRepo, jobQueue, cfg.Email, logger)
	notifyHandler := notify.NewHandler(notifyRepo, notifySvc)

	// Participation state machine
	recordRepo := participation.NewRepository(pool)
	participationSvc := participation.NewService(eventRepo, recordRepo, authRepo, notifySvc, logger)
	participationHandler := participation.NewHandler(participationSvc, logger)

	// Chat (gate -> moderation -> persistence -> fan-out)
	gate := chat.NewGate(participationSvc)
	chatRepo := chat.NewRepository(pool)
	var attachments chat.AttachmentStore
	if s3Client != nil {
		attachments = s3Client
	}
	chatSvc := chat.NewService(gate, chatRepo, attachments, hub, storage.AttachmentKey, storage.ValidAttachmentType, logger)
	chatHandler := chat.NewHandler(chatSvc, logger)

	validateToken := func(token string) (uuid.UUID, models.Role, error) {
		claims, err := jwtService.Validate(token)
		if err != nil {
			return uuid.Nil, "", err
		}
		return claims.UserID, models.Role(claims.Role), nil
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Auth (public)
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/register", authHandler.Register)
	}

	// Protected API (JWT required)
	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		// Users (admin only)
		api.GET("/users", middleware.RequireRole("admin"), authHandler.List)

		// Events
		api.GET("/events", eventHandler.List)
		api.POST("/events", middleware.RequireRole("admin", "staff"), eventHandler.Create)
		api.GET("/events/:id", eventHandler.GetByID)
		api.PATCH("/events/:id", middleware.RequireRole("admin", "staff"), eventHandler.Update)
		api.DELETE("/events/:id", middleware.RequireRole("admin"), eventHandler.Deactivate)

		// Participation: self-service
		api.POST("/events/:id/join", participationHandler.Join)
		api.POST("/events/:id/time-in", participationHandler.TimeIn)
		api.POST("/events/:id/time-out", participationHandler.TimeOut)
		api.GET("/me/hours", participationHandler.MyHours)

		// Participation: admin/staff decisions
		staffOnly := middleware.RequireRole("admin", "staff")
		api.GET("/events/:id/participants", staffOnly, participationHandler.Participants)
		api.GET("/disapproval-reasons", staffOnly, participationHandler.DisapprovalReasons)
		api.POST("/events/:id/participants/:userId/approve-registration", staffOnly, participationHandler.ApproveRegistration)
		api.POST("/events/:id/participants/:userId/disapprove-registration", staffOnly, participationHandler.DisapproveRegistration)
		api.POST("/events/:id/participants/:userId/reinstate-registration", staffOnly, participationHandler.ReinstateRegistration)
		api.POST("/events/:id/participants/:userId/approve-attendance", staffOnly, participationHandler.ApproveAttendance)
		api.POST("/events/:id/participants/:userId/disapprove-attendance", staffOnly, participationHandler.DisapproveAttendance)

		// Chat (gate enforced inside the service)
		api.GET("/events/:id/chat", chatHandler.List)
		api.POST("/events/:id/chat", chatHandler.Send)
		api.POST("/events/:id/chat/access", chatHandler.RequestAccess)
		api.GET("/events/:id/chat/participants", chatHandler.Participants)
		api.PUT("/chat/:messageId", chatHandler.Edit)
		api.DELETE("/chat/:messageId", chatHandler.Delete)
		api.PUT("/chat/:messageId/reaction", chatHandler.React)
		api.DELETE("/chat/:messageId/reaction", chatHandler.Unreact)
		api.POST("/chat/:messageId/read", chatHandler.MarkRead)

		// Email logs (staff)
		api.GET("/events/:id/emails", staffOnly, notifyHandler.ListByEvent)
		api.POST("/emails/resend", staffOnly, notifyHandler.Resend)
	}

	// WebSocket (token in query; the chat gate runs before the upgrade)
	router.GET("/ws", realtime.ServeWs(hub, logger, validateToken, gate.CanAccess))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
