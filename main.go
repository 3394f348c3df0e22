package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"envie2sortir-backend/config"
	"envie2sortir-backend/controllers"
	"envie2sortir-backend/logger"
	"envie2sortir-backend/models"
	"envie2sortir-backend/routes"
	"envie2sortir-backend/services"
	"envie2sortir-backend/utils"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger.SetDefault(logger.NewStructured(cfg.Logging.Level, cfg.Logging.Format))
	if !cfg.App.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	utils.ConfigureAuth(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL(), cfg.Auth.BcryptCost)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := config.ConnectDB(cfg.Database)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("database: %v", err)
	}

	rdb, err := config.ConnectRedis(ctx, cfg.Redis)
	if err != nil {
		// caches and rate limiting degrade to no-ops
		logger.L().Warn("redis unavailable, continuing without cache", map[string]interface{}{"error": err})
		rdb = nil
	}

	notifier, err := services.NewNotificationServiceFromConfig(ctx, db, cfg.Integrations)
	if err != nil {
		log.Fatalf("notifications: %v", err)
	}
	siret := services.NewSiretService(cfg.Integrations.Sirene, rdb)
	learning := services.NewLearningService(db)

	establishments := &controllers.EstablishmentController{
		Learning: learning,
		Geocoder: services.NewGeocodingService(cfg.Integrations.Nominatim, cfg.Integrations.Google, rdb),
		Notifier: notifier,
	}
	if cfg.Integrations.Elasticsearch.Enabled() {
		search, err := services.NewSearchService(cfg.Integrations.Elasticsearch)
		if err != nil {
			log.Fatalf("elasticsearch: %v", err)
		}
		establishments.Search = search
	}

	if cfg.Scheduler.Enabled {
		scheduler := services.NewScheduler(db)
		if err := scheduler.Start(cfg.Scheduler.DealExpiryCron); err != nil {
			log.Fatalf("scheduler: %v", err)
		}
		defer scheduler.Stop()
	}

	r := routes.SetupRouter(routes.Dependencies{
		Config:         cfg,
		Redis:          rdb,
		Auth:           &controllers.AuthController{Siret: siret, CookieSecure: cfg.Auth.CookieSecure},
		Establishments: establishments,
		Learning:       &controllers.LearningController{Learning: learning},
		Lookup:         &controllers.LookupController{Siret: siret, Geocoder: establishments.Geocoder},
		Newsletter:     &controllers.NewsletterController{Mailer: notifier, BaseURL: cfg.App.BaseURL},
		Waitlist:       &controllers.WaitlistController{Invites: notifier, BaseURL: cfg.App.BaseURL},
		Uploads: &controllers.UploadController{
			Dir:        cfg.Uploads.Dir,
			PublicPath: cfg.Uploads.PublicPath,
			MaxBytes:   cfg.Uploads.MaxBytes,
		},
		Sitemap: &controllers.SitemapController{BaseURL: cfg.App.BaseURL},
		Billing: &controllers.BillingController{
			Billing: services.NewBillingService(db, cfg.Integrations.Stripe.WebhookSecret),
		},
		Health: &controllers.HealthController{DB: sqlDB, Redis: rdb},
	})
	if cfg.App.IsDevelopment() {
		printRoutes(r)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.L().Info("server listening", map[string]interface{}{"port": cfg.App.Port, "env": cfg.App.Environment})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.L().Info("shutting down", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.L().Error("graceful shutdown failed", map[string]interface{}{"error": err})
	}
	if rdb != nil {
		_ = rdb.Close()
	}
}

func printRoutes(r *gin.Engine) {
	for _, route := range r.Routes() {
		logger.L().Debug("route", map[string]interface{}{"method": route.Method, "path": route.Path})
	}
}
