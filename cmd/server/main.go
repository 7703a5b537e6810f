// @title Helpdesk Insights API
// @version 1.0
// @description Contact timing and contact reason insights for helpdesk inboxes
// @contact.name API Support
// @contact.email support@example.com
// @license.name MIT
// @license.url https://opensource.org/licenses/MIT
// @host localhost:8080
// @BasePath /api
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"helpdesk-insights-be/config"
	_ "helpdesk-insights-be/docs"
	"helpdesk-insights-be/internal/database"
	"helpdesk-insights-be/internal/handlers"
	"helpdesk-insights-be/internal/insights"
	"helpdesk-insights-be/internal/logger"
	"helpdesk-insights-be/internal/metrics"
	"helpdesk-insights-be/internal/middleware"
	"helpdesk-insights-be/internal/repository"
	"helpdesk-insights-be/internal/services"
)

const (
	indexTimeout    = 30 * time.Second
	shutdownTimeout = 10 * time.Second
)

func main() {
	// Load configuration
	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	if !cfg.EnvFileLoaded {
		log.Info("No .env file found, using environment variables")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to MongoDB
	mongodb, err := database.NewMongoDB(cfg.MongoDBURI, cfg.MongoDBDatabase)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	defer func() {
		if err := mongodb.Disconnect(); err != nil {
			log.Warn("MongoDB disconnect failed", zap.Error(err))
		}
	}()

	// Initialize repositories
	messageRepo := repository.NewMessageRepository(mongodb)
	conversationRepo := repository.NewConversationRepository(mongodb)
	inboxRepo := repository.NewInboxRepository(mongodb, cfg.LookupChunkSize)
	statisticsRepo := repository.NewStatisticsRepository(mongodb)
	ensureIndexes(ctx, log, messageRepo, conversationRepo, inboxRepo)

	// Classification capability, cached in Redis when configured
	classifier, err := services.NewClassifier(services.GroupingOptionsFromConfig(cfg))
	if err != nil {
		log.Fatal("Invalid classifier configuration", zap.Error(err))
	}
	rdb := connectRedis(cfg, log)
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
		if classifier != nil {
			classifier = services.NewCachedClassifier(classifier, rdb, cfg.GroupingCacheTTL, log)
		}
	}
	log.Info("Reason grouping configured",
		zap.String("provider", cfg.ClassifierProvider),
		zap.Bool("enabled", classifier != nil),
		zap.Bool("cached", classifier != nil && rdb != nil),
	)

	// Initialize services
	m := metrics.New(prometheus.NewRegistry())
	clusterer := insights.NewClusterer(classifier, log).WithObserver(m)
	reportService := services.NewReportService(messageRepo, conversationRepo, inboxRepo, clusterer, services.ReportOptions{
		TopK:         cfg.ReasonsTopK,
		FlatLimit:    cfg.ReasonsFlatLimit,
		MessageLimit: cfg.MessageFetchLimit,
		ReasonLimit:  cfg.ReasonFetchLimit,
	}, log).WithRecorder(m)
	services.StartReportWarmer(ctx, cfg.ReportWarmInterval, reportService, log)

	// Initialize handlers
	insightsHandler := handlers.NewInsightsHandler(reportService, log)
	statisticsHandler := handlers.NewStatisticsHandler(statisticsRepo, inboxRepo, log)

	// Initialize Gin
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(middleware.Recovery(log), middleware.RequestLogger(log), middleware.CORS(cfg))

	// Public routes
	public := r.Group("/api")
	{
		public.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"status":   "ok",
				"message":  "Helpdesk Insights API is running",
				"database": "MongoDB connected",
			})
		})
	}

	// Protected routes
	protected := r.Group("/api")
	protected.Use(middleware.AuthMiddleware(cfg))
	{
		protected.GET("/statistics", statisticsHandler.GetStatistics)

		insightsGroup := protected.Group("/insights")
		insightsGroup.GET("/report", insightsHandler.GetReport)
		insightsGroup.POST("/report", insightsHandler.BuildReport)
		insightsGroup.GET("/business-hours", insightsHandler.GetBusinessHours)
		insightsGroup.GET("/reasons/search", insightsHandler.SearchReasons)
		insightsGroup.POST("/group-reasons", insightsHandler.GroupReasons)
	}

	r.GET("/metrics", gin.WrapH(m.Handler()))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("Server starting",
			zap.String("port", cfg.Port),
			zap.String("database", cfg.MongoDBDatabase),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown failed", zap.Error(err))
	}
}

type indexer interface {
	EnsureIndexes(ctx context.Context) error
}

// ensureIndexes creates the query indexes. Failures are logged; queries still work
// without them, only slower.
func ensureIndexes(ctx context.Context, log logger.Logger, repos ...indexer) {
	ctx, cancel := context.WithTimeout(ctx, indexTimeout)
	defer cancel()
	for _, repo := range repos {
		if err := repo.EnsureIndexes(ctx); err != nil {
			log.Warn("Failed to ensure indexes", zap.Error(err))
		}
	}
}

// connectRedis returns nil when Redis is not configured or unreachable.
func connectRedis(cfg *config.Config, log logger.Logger) *redis.Client {
	if cfg.RedisAddress == "" {
		return nil
	}
	rdb, err := database.NewRedis(database.RedisConfig{
		Address:  cfg.RedisAddress,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		log.Warn("Redis unavailable, grouping cache disabled", zap.Error(err))
		return nil
	}
	return rdb
}
