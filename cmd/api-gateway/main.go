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
	"go.uber.org/zap"

	_ "github.com/noah-isme/consultant-content-api/api/swagger"
	"github.com/noah-isme/consultant-content-api/internal/handler"
	internalmiddleware "github.com/noah-isme/consultant-content-api/internal/middleware"
	"github.com/noah-isme/consultant-content-api/internal/repository"
	"github.com/noah-isme/consultant-content-api/internal/routes"
	"github.com/noah-isme/consultant-content-api/internal/service"
	"github.com/noah-isme/consultant-content-api/pkg/cache"
	"github.com/noah-isme/consultant-content-api/pkg/config"
	"github.com/noah-isme/consultant-content-api/pkg/database"
	"github.com/noah-isme/consultant-content-api/pkg/jobs"
	"github.com/noah-isme/consultant-content-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/consultant-content-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/consultant-content-api/pkg/middleware/requestid"
	"github.com/noah-isme/consultant-content-api/pkg/storage"
)

// @title Consultant Content API
// @version 1.0.0
// @description Consultant content moderation, ratings and booking-gated reviews
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	metrics := service.NewMetricsService()
	dependencies := map[string]handler.Pinger{"postgres": db}

	var cacheRepo service.CacheRepository
	if cfg.Cache.Enabled {
		redisClient, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, caching disabled", zap.Error(err))
		} else {
			defer redisClient.Close()
			redisRepo := repository.NewCacheRepository(redisClient)
			cacheRepo = redisRepo
			dependencies["redis"] = handler.PingerFunc(redisRepo.Ping)
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.PublishedTTL, logr, cfg.Cache.Enabled && cacheRepo != nil)

	var presigner *storage.S3Presigner
	if cfg.Storage.Enabled() {
		presigner, err = storage.NewS3Presigner(cfg.Storage)
		if err != nil {
			logr.Warn("s3 presigning disabled", zap.Error(err))
		}
	}

	contentRepo := repository.NewContentRepository(db)
	reviewRepo := repository.NewReviewRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	consultantRepo := repository.NewConsultantRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	recompute := jobs.NewQueue("consultant-rating", service.NewRatingRecomputeHandler(consultantRepo, metrics), jobs.QueueConfig{
		Workers:    cfg.Ratings.RecomputeWorkers,
		MaxRetries: cfg.Ratings.RecomputeRetries,
		RetryDelay: cfg.Ratings.RetryDelay,
		Logger:     logr,
	})
	recompute.Start(ctx)
	defer recompute.Stop()

	validate := validator.New()
	tokens := service.NewTokenService(service.TokenConfig{
		Secret:   cfg.JWT.Secret,
		Issuer:   cfg.JWT.Issuer,
		Audience: cfg.JWT.Audience,
		Expiry:   cfg.JWT.Expiration,
	})
	contentSvc := service.NewContentService(contentRepo, cacheSvc, presigner, metrics, validate, logr,
		service.ContentServiceConfig{PublishedTTL: cfg.Cache.PublishedTTL})
	reviewSvc := service.NewReviewService(reviewRepo, bookingRepo, consultantRepo, recompute, cacheSvc, metrics, validate, logr,
		service.ReviewServiceConfig{ListTTL: cfg.Cache.ReviewsTTL})
	exportSvc := service.NewExportService(reviewRepo, logr, nil, nil)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, internalmiddleware.CurrentUserID))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics))

	routes.Register(r, routes.Dependencies{
		APIPrefix:  cfg.APIPrefix,
		EnableDocs: cfg.Env != config.EnvProduction,
		Tokens:     tokens,
		Audit:      auditRepo,
		Logger:     logr,
		Content:    handler.NewContentHandler(contentSvc),
		Reviews:    handler.NewReviewHandler(reviewSvc, exportSvc),
		Metrics:    handler.NewMetricsHandler(metrics, dependencies),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Error("server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
