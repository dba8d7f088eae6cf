package main

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/fixify-hostel/fixify-api/api/swagger"
	"github.com/fixify-hostel/fixify-api/internal/handler"
	internalmiddleware "github.com/fixify-hostel/fixify-api/internal/middleware"
	"github.com/fixify-hostel/fixify-api/internal/repository"
	"github.com/fixify-hostel/fixify-api/internal/service"
	"github.com/fixify-hostel/fixify-api/pkg/cache"
	"github.com/fixify-hostel/fixify-api/pkg/config"
	"github.com/fixify-hostel/fixify-api/pkg/logger"
	"github.com/fixify-hostel/fixify-api/pkg/mailer"
	corsmiddleware "github.com/fixify-hostel/fixify-api/pkg/middleware/cors"
	reqidmiddleware "github.com/fixify-hostel/fixify-api/pkg/middleware/requestid"
	"github.com/fixify-hostel/fixify-api/pkg/storage"
)

// app holds the wired HTTP stack and the resources it must release.
type app struct {
	router        *gin.Engine
	notifications *service.NotificationService
	redis         *redis.Client
}

func (a *app) close() {
	a.notifications.Stop()
	if a.redis != nil {
		_ = a.redis.Close()
	}
}

func buildApp(ctx context.Context, cfg *config.Config, db *sqlx.DB, logr *zap.Logger) (*app, error) {
	metrics := service.NewMetricsService()
	validate := validator.New()
	if err := service.RegisterValidators(validate); err != nil {
		return nil, err
	}
	loc := displayLocation(cfg.Complaints.DisplayTimezone, logr)

	profiles := repository.NewProfileRepository(db)
	complaints := repository.NewComplaintRepository(db)
	feedback := repository.NewFeedbackRepository(db)
	references := repository.NewReferenceRepository(db)

	checks := map[string]handler.Pinger{"database": db}

	var (
		redisClient *redis.Client
		cacheRepo   service.CacheRepository
	)
	if cfg.Dashboard.CacheEnabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, dashboard cache disabled", zap.Error(err))
		} else {
			redisClient = client
			repo := repository.NewCacheRepository(client, "fixify", logr)
			cacheRepo = repo
			checks["redis"] = handler.PingFunc(repo.Ping)
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Dashboard.CacheTTL, logr, cfg.Dashboard.CacheEnabled)

	signer := storage.NewSignedURLSigner(cfg.Storage.SignedURLSecret, cfg.Storage.SignedURLTTL)
	store, err := storage.New(cfg.Storage, signer)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	var media *handler.MediaHandler
	if local, ok := store.(*storage.LocalStore); ok {
		media = handler.NewMediaHandler(local)
	}
	confirmer := storage.NewSignedURLSigner(cfg.Complaints.ConfirmationSecret, cfg.Complaints.ConfirmationTTL)

	notifications := service.NewNotificationService(mailer.New(cfg.Email, logr), metrics, cfg.Notify, logr)
	notifications.Start(ctx)

	authSvc := service.NewAuthService(profiles, references, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "fixify-api",
	})
	complaintSvc := service.NewComplaintService(service.ComplaintServiceParams{
		Complaints: complaints,
		Feedback:   feedback,
		References: references,
		Store:      store,
		Confirmer:  confirmer,
		Cache:      cacheSvc,
		Notifier:   notifications,
		Metrics:    metrics,
		Uploads:    cfg.Uploads,
		Validator:  validate,
		Logger:     logr,
	})
	queueSvc := service.NewQueueService(complaints, references, cfg.Complaints, logr)
	dashboardSvc := service.NewDashboardService(service.DashboardServiceParams{
		Complaints: complaints,
		Feedback:   feedback,
		Staff:      references,
		Cache:      cacheSvc,
		Logger:     logr,
		Config: service.DashboardServiceConfig{
			CacheTTL:     cfg.Dashboard.CacheTTL,
			OverdueAfter: cfg.Complaints.OverdueAfter,
			Location:     loc,
		},
	})
	exportSvc := service.NewExportService(complaints, loc, logr)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(internalmiddleware.Metrics(metrics))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins, corsmiddleware.WithRouteMethods(r)))
	r.Use(internalmiddleware.WithResponseMeta())
	r.MaxMultipartMemory = cfg.Uploads.MaxFileSizeBytes + 1<<20

	handler.RegisterOps(r, handler.NewMetricsHandler(metrics, checks), media)
	handler.Routes{
		Auth:         handler.NewAuthHandler(authSvc),
		Complaints:   handler.NewComplaintHandler(complaintSvc),
		Queue:        handler.NewQueueHandler(queueSvc),
		Dashboard:    handler.NewDashboardHandler(dashboardSvc, exportSvc),
		Authenticate: internalmiddleware.JWT(authSvc),
		Audit:        profiles,
	}.Register(r.Group(cfg.APIPrefix))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return &app{router: r, notifications: notifications, redis: redisClient}, nil
}
