package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/bus-schedule/api/swagger"
	"github.com/noah-isme/bus-schedule/internal/handler"
	internalmiddleware "github.com/noah-isme/bus-schedule/internal/middleware"
	"github.com/noah-isme/bus-schedule/internal/models"
	"github.com/noah-isme/bus-schedule/internal/repository"
	"github.com/noah-isme/bus-schedule/internal/service"
	"github.com/noah-isme/bus-schedule/pkg/cache"
	"github.com/noah-isme/bus-schedule/pkg/config"
	"github.com/noah-isme/bus-schedule/pkg/database"
	"github.com/noah-isme/bus-schedule/pkg/logger"
	corsmiddleware "github.com/noah-isme/bus-schedule/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/bus-schedule/pkg/middleware/requestid"
)

// @title Bus Schedule API
// @version 1.0.0
// @description Bus stops, routes, lines, schedules and the bus roster
// @BasePath /
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.Database, logger.NewQueryLog(cfg.Database.QueryLog))
	if err != nil {
		logr.Fatal("failed to open store", zap.Error(err))
	}
	defer db.Close()

	if _, err := database.Migrate(db); err != nil {
		logr.Fatal("failed to migrate store", zap.Error(err))
	}

	metricsSvc := service.NewMetricsService()
	db.SetObserver(metricsSvc)

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		// The roster cache is optional; serve straight from the store.
		logr.Warn("redis unavailable, roster cache disabled", zap.Error(err))
	}
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Redis.RosterTTL, logr, redisClient != nil)

	validate := validator.New()
	transitSvc := service.NewTransitService(service.TransitRepositories{
		Stops:     repository.NewBusStopRepository(db),
		Routes:    repository.NewRouteRepository(db),
		Lines:     repository.NewBusLineRepository(db),
		Schedules: repository.NewScheduleRepository(db),
		Buses:     repository.NewBusRepository(db),
	}, validate, logr,
		service.WithRosterCache(cacheSvc, cfg.Redis.RosterTTL),
		service.WithMetrics(metricsSvc),
	)
	exportSvc := service.NewExportService(transitSvc, logr)
	authSvc := service.NewAuthService(validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		OperatorKeyHash:   cfg.JWT.OperatorKeyHash,
	})
	if cfg.JWT.OperatorKeyHash == "" {
		logr.Warn("OPERATOR_KEY_HASH not set, write endpoints are unreachable")
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))
	r.Use(internalmiddleware.WithResponseMeta())

	metricsHandler := handler.NewMetricsHandler(metricsSvc, db)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	r.GET("/metrics/summary", metricsHandler.Summary)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/token", handler.NewAuthHandler(authSvc).IssueToken)

	protected := api.Group("")
	protected.Use(internalmiddleware.JWT(authSvc), internalmiddleware.RequireRoles(models.RoleDispatcher))

	handler.NewTransitHandler(transitSvc, exportSvc).Routes(api, protected)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "store", cfg.Database.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
