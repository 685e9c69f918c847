// Package main runs the food finder HTTP API with live availability and graceful shutdown.
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

	"github.com/sparkbytes/foodfinder/config"
	"github.com/sparkbytes/foodfinder/internal/admin"
	"github.com/sparkbytes/foodfinder/internal/auditlog"
	"github.com/sparkbytes/foodfinder/internal/auth"
	"github.com/sparkbytes/foodfinder/internal/events"
	"github.com/sparkbytes/foodfinder/internal/geocode"
	"github.com/sparkbytes/foodfinder/internal/middleware"
	"github.com/sparkbytes/foodfinder/internal/models"
	"github.com/sparkbytes/foodfinder/internal/organizers"
	"github.com/sparkbytes/foodfinder/internal/profiles"
	"github.com/sparkbytes/foodfinder/internal/realtime"
	"github.com/sparkbytes/foodfinder/internal/reservations"
	"github.com/sparkbytes/foodfinder/internal/worker"
	"github.com/sparkbytes/foodfinder/pkg/database"
	"github.com/sparkbytes/foodfinder/pkg/queue"
	"github.com/sparkbytes/foodfinder/pkg/redis"
	"github.com/sparkbytes/foodfinder/pkg/response"
	"github.com/sparkbytes/foodfinder/pkg/storage"
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
		MaxConns: cfg.Database.MaxConns,
		MinConns: cfg.Database.MinConns,
	}, logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, redis.Options{
		URL:      cfg.Redis.URL,
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	// Uploads stay disabled (503) without a region.
	var (
		eventImages   events.ImageStore
		profileImages profiles.ImageStore
	)
	if cfg.AWS.Region != "" {
		s3Client, err := storage.NewS3(ctx, storage.S3Config{
			Region:          cfg.AWS.Region,
			AccessKeyID:     cfg.AWS.AccessKeyID,
			SecretAccessKey: cfg.AWS.SecretAccessKey,
			Bucket:          cfg.AWS.ImagesBucket,
			PublicBaseURL:   cfg.AWS.PublicBaseURL,
		}, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		} else {
			eventImages = s3Client
			profileImages = s3Client
		}
	}

	loc, err := time.LoadLocation(cfg.Server.TimeZone)
	if err != nil {
		logger.Warn("unknown EVENT_TIMEZONE, using UTC", zap.String("tz", cfg.Server.TimeZone), zap.Error(err))
		loc = time.UTC
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	redisPubSub := realtime.NewRedisPubSub(rdb.Client, logger)
	hub := realtime.NewHub(logger, redisPubSub, redisPubSub)
	jobQueue := queue.NewQueue(rdb.Client, logger)

	// Identity
	authRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, jwtService, cfg.Auth.AllowedEmailDomain, logger)
	if len(cfg.Auth.AdminEmails) > 0 {
		n, err := authRepo.GrantAdmin(ctx, cfg.Auth.AdminEmails)
		if err != nil {
			logger.Error("grant admin roles failed", zap.Error(err))
		} else if n > 0 {
			logger.Info("admin roles granted", zap.Int64("users", n))
		}
	}

	// Events
	eventRepo := events.NewRepository(pool)
	eventHandler := events.NewHandler(eventRepo, jobQueue, eventImages, hub, loc, logger)

	// Reservations
	reservationRepo := reservations.NewRepository(pool)
	reservationSvc := reservations.NewService(reservationRepo, hub, logger)
	reservationHandler := reservations.NewHandler(reservationSvc, logger)

	// Profiles
	profileRepo := profiles.NewRepository(pool)
	profileHandler := profiles.NewHandler(profileRepo, profileImages, logger)

	// Organizer applications and admin console
	organizerRepo := organizers.NewRepository(pool)
	organizerSvc := organizers.NewService(organizerRepo)
	organizerHandler := organizers.NewHandler(organizerSvc, logger)
	auditSvc := auditlog.NewService(auditlog.NewRepository(pool), logger)
	auditHandler := auditlog.NewHandler(auditSvc, logger)
	adminHandler := admin.NewHandler(organizerSvc, auditSvc, logger)

	// Geocoding
	geocoder := geocode.NewClient(cfg.Mapbox.Token, geocode.NewRedisCache(rdb.Client),
		time.Duration(cfg.Mapbox.CacheTTLHours)*time.Hour, logger)
	geocodeProcessor := worker.NewGeocodeProcessor(geocoder, eventRepo, jobQueue, logger)

	limit := 0
	if cfg.RateLimit.Enabled {
		limit = cfg.RateLimit.PerMinute
	}
	requireAuth := middleware.JWT(jwtService, authRepo, logger)
	optionalAuth := middleware.OptionalJWT(jwtService, authRepo, logger)
	organizerOnly := middleware.RequireRole(models.RoleOrganizer)
	authLimit := middleware.RateLimit("auth", limit, rdb.Client, logger)
	reserveLimit := middleware.RateLimit("reservations", limit, rdb.Client, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Auth (public)
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/register", authLimit, authHandler.Register)
		authGroup.POST("/login", authLimit, authHandler.Login)
		authGroup.GET("/me", requireAuth, authHandler.Me)
	}

	// Public reads (caller identity optional)
	public := router.Group("/api")
	public.Use(optionalAuth)
	{
		public.GET("/events", eventHandler.List)
		public.GET("/events/:id", eventHandler.Get)
		public.GET("/event-foods", reservationHandler.Foods)
		public.GET("/event-options", eventHandler.Options)
	}

	// Protected API (JWT required)
	api := router.Group("/api")
	api.Use(requireAuth)
	{
		// Events
		api.POST("/events", organizerOnly, eventHandler.Create)
		api.POST("/events/photo", organizerOnly, eventHandler.UploadPhoto)

		// Reservations
		api.POST("/reservations", reserveLimit, reservationHandler.Reserve)
		api.GET("/reservations", reservationHandler.List)
		api.PATCH("/reservations/:id", reservationHandler.UpdateStatus)

		// Organizer dashboard
		api.PATCH("/vendor/events/:id/close", organizerOnly, eventHandler.Close)
		api.GET("/vendor/events/:id/reservations", organizerOnly, reservationHandler.EventReservations)
		api.GET("/vendor/stats", organizerOnly, eventHandler.Stats)
		api.PUT("/vendor/profile", organizerOnly, profileHandler.UpdateVendor)

		// Profiles
		api.GET("/profile", profileHandler.Get)
		api.PUT("/profile", profileHandler.UpdateStudent)
		api.POST("/profile/avatar", profileHandler.UploadAvatar)

		// Organizer application
		api.GET("/organizer/application", organizerHandler.Get)
		api.POST("/organizer/application", organizerHandler.Submit)
	}

	// Admin console
	adminGroup := router.Group("/api/admin")
	adminGroup.Use(requireAuth, middleware.RequireAdmin())
	{
		adminGroup.GET("/applications", adminHandler.ListApplications)
		adminGroup.GET("/organizers", adminHandler.ListOrganizers)
		adminGroup.POST("/approve-organizer", adminHandler.Approve)
		adminGroup.POST("/reject-organizer", adminHandler.Reject)
		adminGroup.POST("/revoke-organizer", adminHandler.Revoke)
		adminGroup.GET("/audit-logs", auditHandler.List)
	}

	// WebSocket (token in query; no Authorization header required)
	router.GET("/ws/events/:id", realtime.ServeWs(hub, func(token string) (uuid.UUID, error) {
		claims, err := jwtService.Validate(token)
		if err != nil {
			return uuid.Nil, err
		}
		return claims.UserID, nil
	}, logger))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Background worker (event geocoding)
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	if cfg.Worker.Inline {
		go geocodeProcessor.Run(workerCtx)
		logger.Info("geocode worker started in-process")
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

	workerCancel()
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
