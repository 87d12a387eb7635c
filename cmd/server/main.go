// Package main runs the private voice room HTTP server with WebSocket presence and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/aura-webinar/privatevc/config"
	"github.com/aura-webinar/privatevc/internal/auth"
	"github.com/aura-webinar/privatevc/internal/channels"
	"github.com/aura-webinar/privatevc/internal/middleware"
	"github.com/aura-webinar/privatevc/internal/models"
	"github.com/aura-webinar/privatevc/internal/realtime"
	"github.com/aura-webinar/privatevc/internal/rooms"
	"github.com/aura-webinar/privatevc/internal/tickets"
	"github.com/aura-webinar/privatevc/internal/worker"
	"github.com/aura-webinar/privatevc/pkg/database"
	"github.com/aura-webinar/privatevc/pkg/queue"
	"github.com/aura-webinar/privatevc/pkg/redis"
	"github.com/aura-webinar/privatevc/pkg/response"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), database.PoolOptions{
		MaxConns:        int32(cfg.Database.MaxConns),
		ConnectAttempts: cfg.Database.ConnectAttempts,
	}, logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, redis.Options{
		Addr:            cfg.Redis.Addr,
		Password:        cfg.Redis.Password,
		DB:              cfg.Redis.DB,
		PoolSize:        cfg.Redis.PoolSize,
		ConnectAttempts: cfg.Redis.ConnectAttempts,
	}, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	redisPubSub := realtime.NewRedisPubSub(rdb.Client, logger)
	hub := realtime.NewHub(logger, redisPubSub, redisPubSub)
	jobQueue := queue.NewQueue(rdb.Client, logger)

	// Channel directory (the room gateway) and ticket ledger
	channelRepo := channels.NewRepository(pool, redisPubSub, logger)
	channelHandler := channels.NewHandler(channelRepo, logger)
	ticketRepo := tickets.NewRepository(pool, logger)
	ticketHandler := tickets.NewHandler(ticketRepo, logger)

	var ledger rooms.EntitlementLedger = rooms.Unmetered{}
	if cfg.Rooms.RequireTickets {
		ledger = ticketRepo
	}

	// Private rooms
	registry := rooms.NewRegistry(logger)
	monitors := rooms.NewMonitorStore()
	codes := rooms.NewPasscodeGenerator(registry, cfg.Rooms.CodeAttempts)
	creator := rooms.NewCreator(ledger, codes, channelRepo, registry, rooms.CreatorConfig{
		RoomPrefix: cfg.Rooms.RoomPrefix,
		UserLimit:  cfg.Rooms.UserLimit,
	}, logger)
	access := rooms.NewAccessController(registry, channelRepo, logger)
	reconciler := rooms.NewReconciler(monitors, channelRepo, rooms.ReconcilerConfig{
		Interval:      cfg.Rooms.ReconcileInterval,
		MonitorPrefix: cfg.Rooms.MonitorPrefix,
		RoomPrefix:    cfg.Rooms.RoomPrefix,
	}, logger)
	roomHandler := rooms.NewHandler(creator, access, registry, reconciler, logger)

	// Voice presence drives occupancy: hub -> buffered events -> tracker
	tracker := rooms.NewOccupancyTracker(registry, channelRepo, jobQueue, logger)
	trackerCtx, trackerCancel := context.WithCancel(context.Background())
	defer trackerCancel()
	events := make(chan models.VoiceStateEvent, cfg.Rooms.EventBuffer)
	hub.SetVoiceStateHandler(func(ev models.VoiceStateEvent) {
		select {
		case events <- ev:
		case <-trackerCtx.Done():
		}
	})
	go tracker.Run(trackerCtx, events)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Protected API (JWT required)
	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	admin := middleware.RequireRole(middleware.RoleAdmin)
	{
		// Membership and tickets
		api.POST("/scopes/:id/members", ticketHandler.Join)
		api.GET("/scopes/:id/me", ticketHandler.Me)
		api.GET("/scopes/:id/members/:userId", admin, ticketHandler.Member)
		api.PUT("/scopes/:id/members/:userId/tickets", admin, ticketHandler.SetTickets)
		api.POST("/scopes/:id/tickets/grant-all", admin, ticketHandler.GrantAll)
		api.POST("/scopes/:id/tickets/reset", admin, ticketHandler.ResetAll)

		// Channels
		api.GET("/scopes/:id/categories", channelHandler.ListCategories)
		api.POST("/scopes/:id/categories", admin, channelHandler.CreateCategory)
		api.GET("/scopes/:id/channels", channelHandler.ListChannels)

		// Private rooms
		api.POST("/scopes/:id/rooms", roomHandler.Create)
		api.POST("/scopes/:id/rooms/redeem", roomHandler.Redeem)
		api.GET("/scopes/:id/rooms", admin, roomHandler.List)
		api.DELETE("/scopes/:id/rooms", admin, roomHandler.Reset)

		// Monitor
		api.PUT("/scopes/:id/monitor", admin, roomHandler.SetMonitor)
		api.POST("/scopes/:id/monitor/setup", admin, roomHandler.SetupMonitor)
	}

	// WebSocket (token in query; no Authorization header required)
	router.GET("/ws", realtime.ServeWs(hub, jwtService, channelRepo, logger))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Background cleanup worker for room deletes that failed during teardown
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	if cfg.Worker.CleanupEnabled {
		processor := worker.NewCleanupProcessor(channelRepo, jobQueue, logger)
		go processor.Run(workerCtx)
		logger.Info("cleanup worker started")
	}

	reconciler.Start()

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
	reconciler.Stop()
	trackerCancel()
	workerCancel()
	registry.Close()
	monitors.Close()
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
