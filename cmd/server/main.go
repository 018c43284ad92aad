package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/onegreenvn/green-insights-backend/docs"
	"github.com/onegreenvn/green-insights-backend/internal/config"
	"github.com/onegreenvn/green-insights-backend/internal/database"
	"github.com/onegreenvn/green-insights-backend/internal/monitoring"
	"github.com/onegreenvn/green-insights-backend/internal/router"
	"github.com/onegreenvn/green-insights-backend/internal/services"
	"github.com/onegreenvn/green-insights-backend/internal/services/api_key"
	"github.com/onegreenvn/green-insights-backend/internal/services/auth"
	"github.com/onegreenvn/green-insights-backend/internal/utils"
)

// @title Green Insights API
// @version 1.0
// @description Social content analytics: engagement ranking, playbooks, variant experiments and KPI alerts

// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Enter `Bearer ` followed by your JWT token (e.g. "Bearer <token>")

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization
// @description Enter `ApiKey ` followed by the ingestion key (e.g. "ApiKey <prefix>.<secret>")

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Set Swagger base path dynamically
	if cfg.BasePath != "" {
		docs.SwaggerInfo.BasePath = cfg.BasePath
	}

	// Configure logging
	configureLogging(cfg.LogLevel)
	gin.SetMode(gin.ReleaseMode)

	// Initialize Sentry
	utils.InitSentry()
	defer utils.FlushSentry()

	// Initialize database connection
	db, err := database.InitDB(cfg.Database)
	if err != nil {
		logrus.Fatalf("Failed to initialize database: %v", err)
	}

	metrics := monitoring.NewMetrics()
	sseHub := services.NewSSEHub()
	opts := services.Options{QueryTimeout: cfg.QueryTimeout}

	// RabbitMQ is optional; without it events are dropped and no jobs are consumed
	var publisher services.EventPublisher
	rabbitMQService, err := services.NewRabbitMQService(cfg.RabbitMQ)
	if err != nil {
		logrus.Warnf("Failed to initialize RabbitMQ: %v", err)
	} else {
		logrus.Info("RabbitMQ service initialized")
		defer rabbitMQService.Close()
		publisher = rabbitMQService
	}

	container := services.NewContainer(db, cfg.Analytics, publisher, sseHub, metrics, opts)

	if rabbitMQService != nil {
		jobConsumer := services.NewJobConsumer(rabbitMQService, container.Contents, container.Playbooks, container.Alerts, metrics)
		if err := jobConsumer.Start(); err != nil {
			logrus.Warnf("Failed to start RabbitMQ job consumer: %v", err)
		} else {
			logrus.Info("RabbitMQ job consumer started")
			defer jobConsumer.Stop()
		}
	}

	if cfg.SchedulerOn {
		scheduler := services.NewAlertScheduler(db, container.Alerts, cfg.Analytics.AlertCheckInterval, cfg.Analytics.AlertCheckWorkers, metrics)
		scheduler.Start()
		defer scheduler.Stop()
	}

	r := router.SetupRouter(router.Dependencies{
		DB:             db,
		Services:       container,
		AuthService:    auth.NewAuthService(cfg.JWTSecret),
		APIKeyService:  api_key.NewService(db),
		SSEHub:         sseHub,
		Metrics:        metrics,
		AllowedOrigins: cfg.AllowedOrigins,
	})

	// Configure HTTP server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: r,
	}

	// Start server in a goroutine
	go func() {
		logrus.Infof("Server starting on port %s", cfg.Port)
		logrus.Infof("API Health Check: http://localhost:%s/api/v1/health", cfg.Port)
		logrus.Infof("Swagger UI: http://localhost:%s/swagger/index.html", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited properly")
}

func configureLogging(logLevel string) {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
}
