package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/onurcolak/waapi-campaign-service/environments"
	"github.com/onurcolak/waapi-campaign-service/handlers"
	"github.com/onurcolak/waapi-campaign-service/internal/dispatch"
	"github.com/onurcolak/waapi-campaign-service/internal/middlewares"
	"github.com/onurcolak/waapi-campaign-service/internal/monitor"
	"github.com/onurcolak/waapi-campaign-service/internal/repository"
	"github.com/onurcolak/waapi-campaign-service/internal/service"
	"github.com/onurcolak/waapi-campaign-service/pkg/database"
	"github.com/onurcolak/waapi-campaign-service/pkg/logger"
	"github.com/onurcolak/waapi-campaign-service/pkg/redis"
	"github.com/onurcolak/waapi-campaign-service/pkg/validator"
	"github.com/onurcolak/waapi-campaign-service/pkg/waapi"
	"github.com/onurcolak/waapi-campaign-service/routes"

	_ "github.com/onurcolak/waapi-campaign-service/docs" // swagger docs
)

// @title WhatsApp Campaign Service API
// @version 1.0
// @description Bulk WhatsApp campaign dispatch over waapi.app
// @termsOfService http://swagger.io/terms/

// @contact.name API Support

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name x-api-key

// @host localhost:8080
// @BasePath /

// @schemes http https
func main() {
	cfg := environments.Load()
	logger.Init(cfg.Log)

	if cfg.Auth.APIKey == "" {
		logger.Fatalf("API_KEY is required but not set")
	}

	logger.Infof("Starting WhatsApp campaign service...")

	db, err := database.NewMySQLDB(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	if err := database.RunMigrations(db); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}

	if os.Getenv("SEED_DATA") == "true" {
		if err := database.SeedTestData(db); err != nil {
			logger.Warnf("Failed to seed test data: %v", err)
		}
	}

	// progress stays a nil interface when Redis is down so the services
	// fall back to the database.
	var progress service.ProgressStore
	redisClient, err := redis.NewRedisClient(cfg.Redis)
	if err != nil {
		logger.Warnf("Redis not available, progress caching disabled: %v", err)
		redisClient = nil
	} else {
		progress = redisClient
	}

	waapiClient := waapi.NewClient(cfg.Waapi)
	logger.Infof("waapi configured: %s", waapiClient.GetBaseURL())

	campaignRepo := repository.NewCampaignRepository(db)
	senderRepo := repository.NewSenderRepository(db)
	contactRepo := repository.NewContactRepository(db)

	engine := dispatch.NewEngine(campaignRepo, waapiClient, progress, cfg.Dispatch)

	senderService := service.NewSenderService(senderRepo, waapiClient, cfg.Dispatch)
	listService := service.NewListService(contactRepo)
	campaignService := service.NewCampaignService(
		campaignRepo,
		senderRepo,
		contactRepo,
		senderService,
		waapiClient,
		engine,
		progress,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stale := monitor.New(campaignRepo, engine, cfg.Monitor)
	if os.Getenv("MONITOR_ENABLED") != "false" {
		if err := stale.Start(ctx); err != nil {
			logger.Warnf("Failed to start monitor: %v", err)
		}
	}

	var healthRedis interface{ Ping(context.Context) error }
	if redisClient != nil {
		healthRedis = redisClient
	}

	h := routes.Handlers{
		Health:   handlers.NewHealthHandler(db, healthRedis, waapiClient),
		Campaign: handlers.NewCampaignHandler(campaignService),
		Sender:   handlers.NewSenderHandler(senderService),
		List:     handlers.NewListHandler(listService),
		Admin:    handlers.NewAdminHandler(ctx, senderService, stale),
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = validator.New()

	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			l := logger.With().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Logger()
			if v.Error != nil {
				l.Error().Err(v.Error).Msg("request failed")
				return nil
			}
			l.Info().Msg("request")
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{
			echo.HeaderOrigin,
			echo.HeaderContentType,
			echo.HeaderAccept,
			echo.HeaderAuthorization,
			middlewares.APIKeyHeader,
		},
	}))

	routes.RegisterRoutes(e, h, cfg)

	go func() {
		addr := ":" + cfg.Server.Port
		logger.Infof("Server starting on http://localhost%s", addr)
		logger.Infof("Swagger docs available at http://localhost%s/swagger/index.html", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Infof("Shutting down gracefully...")

	cancel()

	if stale.IsRunning() {
		logger.Infof("Stopping monitor...")
		if err := stale.Stop(); err != nil {
			logger.Errorf("Error stopping monitor: %v", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	logger.Infof("Shutting down HTTP server...")
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	} else {
		logger.Infof("HTTP server stopped successfully")
	}

	// Runs are detached from request contexts; give in-flight ones a chance
	// to reach their final write before the database goes away.
	if active := engine.ActiveCampaigns(); len(active) > 0 {
		logger.Infof("Waiting for %d active campaign runs...", len(active))
	}
	drainCtx, drainCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer drainCancel()
	if err := engine.Wait(drainCtx); err != nil {
		logger.Warnf("Campaign runs still active at shutdown, they stay in sending: %v", err)
	}

	logger.Infof("Closing database connection...")
	if err := db.Close(); err != nil {
		logger.Errorf("Error closing database: %v", err)
	}

	if redisClient != nil {
		logger.Infof("Closing Redis connection...")
		if err := redisClient.Close(); err != nil {
			logger.Errorf("Error closing Redis: %v", err)
		}
	}

	logger.Infof("Graceful shutdown completed")
}
