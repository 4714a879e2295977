package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pbxconnect-backend/internal/config"
	accountHandler "pbxconnect-backend/internal/handler/http/account"
	callHandler "pbxconnect-backend/internal/handler/http/call"
	contactHandler "pbxconnect-backend/internal/handler/http/contact"
	recordingHandler "pbxconnect-backend/internal/handler/http/recording"
	"pbxconnect-backend/internal/handler/ws"
	"pbxconnect-backend/internal/middleware"
	"pbxconnect-backend/internal/repository/postgres"
	redisrepo "pbxconnect-backend/internal/repository/redis"
	callService "pbxconnect-backend/internal/service/call"
	directoryService "pbxconnect-backend/internal/service/directory"
	notifyService "pbxconnect-backend/internal/service/notify"
	recordingService "pbxconnect-backend/internal/service/recording"
	sipaccountService "pbxconnect-backend/internal/service/sipaccount"
	"pbxconnect-backend/pkg/database"
	"pbxconnect-backend/pkg/jwt"
	"pbxconnect-backend/pkg/logger"
	"pbxconnect-backend/pkg/metrics"
)

func main() {
	logger.InitDefault()
	defer logger.Sync()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	ctx := context.Background()

	// 1. Postgres
	db, err := database.NewPostgresDB(ctx, &database.PostgresConfig{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		Database: cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	})
	if err != nil {
		logger.Fatal("failed to connect to Postgres", zap.Error(err))
	}
	defer db.Close()
	logger.Info("connected to Postgres", zap.String("host", cfg.DBHost))

	// 2. Redis
	redisDB, err := database.NewRedisDB(&database.RedisConfig{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		PoolSize: 10,
	})
	if err != nil {
		logger.Fatal("failed to connect to Redis", zap.Error(err))
	}
	defer redisDB.Close()
	logger.Info("connected to Redis", zap.String("addr", cfg.RedisAddr()))

	// 3. MinIO recording sink
	sink, err := recordingService.NewMinIOSink(
		cfg.MinIOEndpoint, cfg.MinIOAccessKey, cfg.MinIOSecretKey, cfg.MinIOBucket, cfg.MinIOUseSSL,
	)
	if err != nil {
		logger.Fatal("failed to connect to MinIO", zap.Error(err))
	}
	logger.Info("connected to MinIO", zap.String("bucket", cfg.MinIOBucket))

	// 4. Repositories
	callRepo := postgres.NewCallRepository(db.Pool)
	recordingRepo := postgres.NewRecordingRepository(db.Pool)
	accountRepo := postgres.NewSIPAccountRepository(db.Pool)
	contactRepo := postgres.NewContactRepository(db.Pool)
	notificationRepo := postgres.NewNotificationRepository(db.Pool)
	contactCache := redisrepo.NewContactCache(redisDB.Client, cfg.ContactCacheTTL)

	// 5. Metrics and event hub
	m := metrics.NewMetrics("voip-service")
	eventHub := ws.NewEventHub(redisDB.Client, m)

	// 6. Services
	notifySvc := notifyService.NewService(notificationRepo, eventHub)
	directorySvc := directoryService.NewService(contactRepo, contactCache)
	callSvc := callService.NewService(callRepo, accountRepo, directorySvc, notifySvc, m)
	recordingSvc := recordingService.NewService(recordingRepo, callRepo, sink, notifySvc, m)
	accountSvc := sipaccountService.NewService(accountRepo)

	// 7. JWT validation
	jwtManager := jwt.NewManager(cfg.JWTSecret, cfg.JWTDuration, cfg.JWTAudience)

	// 8. Router
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.CORSMiddleware())

	prom := middleware.NewPrometheusMiddleware(m)
	router.Use(prom.Handler())

	router.GET("/health", func(c *gin.Context) {
		if err := db.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": "database unreachable"})
			return
		}
		pool := db.Stats()
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "voip-service",
			"time":    time.Now().UTC(),
			"db_pool": gin.H{
				"total_conns": pool.TotalConns(),
				"idle_conns":  pool.IdleConns(),
			},
		})
	})
	router.GET("/metrics", middleware.MetricsHandler(m))

	v1 := router.Group("/v1/voip")
	v1.Use(middleware.AuthMiddleware(jwtManager))
	{
		callHandler.NewHandler(callSvc).RegisterRoutes(v1)
		recordingHandler.NewHandler(recordingSvc).RegisterRoutes(v1)
		contactHandler.NewHandler(directorySvc).RegisterRoutes(v1)
		accountHandler.NewHandler(accountSvc, notifySvc).RegisterRoutes(v1)
		v1.GET("/ws/events", eventHub.ServeWS)
	}

	// 9. Serve
	addr := fmt.Sprintf(":%d", cfg.HTTPPort)
	logger.Info("voip-service starting", zap.String("addr", addr), zap.String("env", cfg.Env))
	if err := router.Run(addr); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
