package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/motlatsimoea/fnd/internal/config"
	"github.com/motlatsimoea/fnd/internal/database"
	"github.com/motlatsimoea/fnd/internal/handlers"
	"github.com/motlatsimoea/fnd/internal/middleware"
	"github.com/motlatsimoea/fnd/internal/models"
	"github.com/motlatsimoea/fnd/internal/realtime"
	"github.com/motlatsimoea/fnd/internal/routes"
	"github.com/motlatsimoea/fnd/internal/services"
	"github.com/motlatsimoea/fnd/internal/store"
	"github.com/motlatsimoea/fnd/pkg/crypto"
	"github.com/motlatsimoea/fnd/pkg/logger"
)

func main() {
	config.LoadConfig()

	env := os.Getenv("GO_ENV")
	if env == "" {
		env = "development"
	}
	logger.Init(env)

	logger.Info().Str("environment", env).Msg("Starting fnd backend...")

	if env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// The encryption key gates startup: without it no message can be
	// stored or read back.
	codec, err := crypto.NewCodec(config.AppConfig.EncryptionKey)
	if err != nil {
		logger.Fatal().Err(err).Msg("ENCRYPTION_KEY missing or invalid")
	}

	database.Connect()
	database.InitRedis()

	if err := database.DB.AutoMigrate(
		&models.User{},
		&models.Inbox{},
		&models.Message{},
		&models.Notification{},
	); err != nil {
		logger.Fatal().Err(err).Msg("Database migration failed")
	}

	// Messaging core: one hub per process, injected everywhere.
	hub := realtime.NewHub()
	st := store.New(database.DB)
	notifier := services.NewNotificationService(st, hub)
	chatSocket := realtime.NewChatSocket(hub, st, codec)
	notificationSocket := realtime.NewNotificationSocket(hub, st)
	chatHandler := handlers.NewChatHandler(st, codec, notifier)

	r := gin.New()

	r.Use(middleware.LoggingMiddleware())
	r.Use(middleware.ErrorHandlerMiddleware())
	r.Use(gin.Recovery())
	r.Use(middleware.CORSMiddleware())

	// Sockets are long-lived; keep them out of the request rate limiter.
	r.Use(func(c *gin.Context) {
		if len(c.Request.URL.Path) >= 4 && c.Request.URL.Path[:4] == "/ws/" {
			c.Next()
			return
		}
		middleware.GeneralRateLimit()(c)
	})

	api := r.Group("/api")
	{
		routes.RegisterAuthRoutes(api)
		routes.RegisterChatRoutes(api, chatHandler)
		routes.RegisterNotificationRoutes(api)
	}

	r.GET("/ws/chat/:key", chatSocket.Handle)
	r.GET("/ws/notifications", notificationSocket.Handle)

	r.GET("/health", func(c *gin.Context) {
		dbStatus := "ok"
		sqlDB, err := database.DB.DB()
		if err != nil || sqlDB.Ping() != nil {
			dbStatus = "error"
		}

		redisStatus := "not configured"
		if database.Redis != nil {
			redisStatus = "ok"
			if _, err := database.Redis.Ping(context.Background()).Result(); err != nil {
				redisStatus = "error"
			}
		}

		status := "ok"
		if dbStatus != "ok" || redisStatus == "error" {
			status = "degraded"
		}

		c.JSON(200, gin.H{
			"status": status,
			"checks": gin.H{
				"database": dbStatus,
				"redis":    redisStatus,
			},
		})
	})

	port := config.AppConfig.Port
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:        ":" + port,
		Handler:     r,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: it would cut long-lived websocket sessions.
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		logger.Info().Str("port", port).Str("env", env).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down server gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Info().Msg("Server exited gracefully")
}
