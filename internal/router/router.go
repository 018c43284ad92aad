package router

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	"github.com/onegreenvn/green-insights-backend/internal/handlers"
	"github.com/onegreenvn/green-insights-backend/internal/middleware"
	"github.com/onegreenvn/green-insights-backend/internal/monitoring"
	"github.com/onegreenvn/green-insights-backend/internal/services"
	"github.com/onegreenvn/green-insights-backend/internal/services/api_key"
	"github.com/onegreenvn/green-insights-backend/internal/services/auth"
	"github.com/onegreenvn/green-insights-backend/internal/services/excel"
)

// Dependencies are the collaborators the HTTP layer is built from
type Dependencies struct {
	DB             *gorm.DB
	Services       *services.Container
	AuthService    *auth.AuthService
	APIKeyService  *api_key.Service
	SSEHub         *services.SSEHub
	Metrics        *monitoring.Metrics
	AllowedOrigins string
}

// SetupRouter configures the Gin router with the analytics API
func SetupRouter(deps Dependencies) *gin.Engine {
	// Create a new router
	r := gin.New()

	// Use middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics(deps.Metrics))

	// Configure CORS
	r.Use(cors.New(corsConfig(deps.AllowedOrigins)))

	// Create middleware with services
	bearerTokenMiddleware := middleware.NewBearerTokenMiddleware(deps.AuthService)
	apiKeyMiddleware := middleware.NewAPIKeyMiddleware(deps.APIKeyService)

	// Create handlers with services
	excelService := excel.NewExcelService()
	playbookHandler := handlers.NewPlaybookHandler(deps.Services.Playbooks, deps.Services.Variants, excelService)
	experimentHandler := handlers.NewExperimentHandler(deps.Services.Experiments, excelService)
	alertHandler := handlers.NewAlertHandler(deps.Services.Alerts, deps.SSEHub)
	analyticsHandler := handlers.NewAnalyticsHandler(deps.Services.Engagement, deps.Services.Integrations)
	contentHandler := handlers.NewContentHandler(deps.Services.Contents)
	apiKeyHandler := handlers.NewAPIKeyHandler(deps.APIKeyService)
	healthHandler := handlers.NewHealthHandler(deps.DB)

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	logrus.Info("Swagger UI endpoint registered at /swagger/index.html")

	r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	r.GET("/health", healthHandler.Health)

	// API v1 routes
	api := r.Group("/api/v1")
	{
		api.GET("/health", healthHandler.Health)

		// Ingestion routes (API key)
		ingest := api.Group("/ingest")
		ingest.Use(apiKeyMiddleware.APIKeyAuthMiddleware())
		{
			ingest.POST("/contents", contentHandler.IngestContent)
			ingest.POST("/metrics", contentHandler.IngestMetrics)
		}

		// Protected routes
		protected := api.Group("")
		protected.Use(bearerTokenMiddleware.BearerTokenAuthMiddleware())
		{
			analytics := protected.Group("/analytics")
			{
				analytics.GET("/top-content", analyticsHandler.TopContent)
				analytics.GET("/tracked-integrations", analyticsHandler.ListTrackedIntegrations)
				analytics.PUT("/tracked-integrations", analyticsHandler.SetTrackedIntegrations)
				analytics.GET("/groups", analyticsHandler.ListGroups)
				analytics.POST("/groups", analyticsHandler.CreateGroup)
				analytics.DELETE("/groups/:id", analyticsHandler.DeleteGroup)
			}

			playbooks := protected.Group("/playbooks")
			{
				playbooks.POST("/generate", playbookHandler.GeneratePlaybooks)
				playbooks.GET("", playbookHandler.ListPlaybooks)
				playbooks.GET("/:id", playbookHandler.GetPlaybook)
				playbooks.DELETE("/:id", playbookHandler.DeletePlaybook)
				playbooks.GET("/:id/evidence", playbookHandler.GetEvidence)
				playbooks.GET("/:id/evidence/export", playbookHandler.ExportEvidence)
				playbooks.GET("/:id/variants", playbookHandler.ListVariants)
				playbooks.POST("/:id/variants/generate", playbookHandler.GenerateVariants)
				playbooks.DELETE("/:id/variants/:variantId", playbookHandler.DeleteVariant)
			}

			experiments := protected.Group("/experiments")
			{
				experiments.POST("", experimentHandler.CreateExperiment)
				experiments.GET("", experimentHandler.ListExperiments)
				experiments.GET("/:id", experimentHandler.GetExperiment)
				experiments.DELETE("/:id", experimentHandler.DeleteExperiment)
				experiments.POST("/:id/start", experimentHandler.StartExperiment)
				experiments.POST("/:id/complete", experimentHandler.CompleteExperiment)
				experiments.POST("/:id/track", experimentHandler.TrackContent)
				experiments.GET("/:id/results", experimentHandler.GetResults)
				experiments.GET("/:id/results/export", experimentHandler.ExportResults)
				experiments.POST("/:id/confirm-winner", experimentHandler.ConfirmWinner)
			}

			alerts := protected.Group("/alerts")
			{
				alerts.GET("", alertHandler.ListAlerts)
				alerts.GET("/stream", alertHandler.StreamAlerts)
				alerts.GET("/config", alertHandler.GetConfigs)
				alerts.PUT("/config", alertHandler.UpdateConfig)
				alerts.POST("/check", alertHandler.CheckKPIDrops)
				alerts.POST("/check-viral", alertHandler.CheckViralSpikes)
				alerts.POST("/mark-all-read", alertHandler.MarkAllRead)
				alerts.POST("/:id/read", alertHandler.MarkRead)
			}

			contents := protected.Group("/contents")
			{
				contents.GET("/:id", contentHandler.GetContent)
				contents.DELETE("/:id", contentHandler.DeleteContent)
				contents.GET("/:id/metrics", contentHandler.ListMetrics)
				contents.POST("/:id/tags", contentHandler.AttachTag)
			}

			tags := protected.Group("/tags")
			{
				tags.GET("", contentHandler.ListTags)
				tags.POST("", contentHandler.CreateTag)
				tags.DELETE("/:id", contentHandler.DeleteTag)
			}

			apiKeys := protected.Group("/api-keys")
			{
				apiKeys.GET("", apiKeyHandler.List)
				apiKeys.POST("", apiKeyHandler.Generate)
				apiKeys.DELETE("/:id", apiKeyHandler.Delete)
			}
		}
	}

	return r
}

func corsConfig(allowedOrigins string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{"Content-Length", "Content-Disposition"},
		MaxAge:        12 * time.Hour,
	}
	if allowedOrigins == "" || allowedOrigins == "*" {
		cfg.AllowAllOrigins = true
		return cfg
	}
	for _, origin := range strings.Split(allowedOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.AllowOrigins = append(cfg.AllowOrigins, origin)
		}
	}
	cfg.AllowCredentials = true
	return cfg
}
