package api

import (
	"github.com/gin-gonic/gin"
	"github.com/minkyo/topiko/internal/api/handler"
	"github.com/minkyo/topiko/internal/api/middleware"
	"github.com/minkyo/topiko/internal/logger"
)

// RouterDeps holds the handlers wired into the router.
type RouterDeps struct {
	Topic *handler.TopicHandler
	Admin *handler.AdminHandler
}

// SetupRouter configures the Gin router with all routes
func SetupRouter(
	deps RouterDeps,
	mode string,
	cors middleware.CORSConfig,
	log *logger.Logger,
) *gin.Engine {
	// Set Gin mode
	switch mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	// Add middleware
	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware(log))
	r.Use(middleware.CORS(cors))

	healthHandler := handler.NewHealthHandler()

	// Health check
	r.GET("/health", healthHandler.Health)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		// Canonicalization
		v1.POST("/topics/standardize", deps.Topic.Standardize)

		// Dictionary reads
		v1.GET("/topics", deps.Topic.ListTopics)
		v1.GET("/topics/search", deps.Topic.SearchTopics)
		v1.GET("/topics/:id", deps.Topic.GetTopic)

		// Stats
		v1.GET("/stats", deps.Topic.GetStats)

		// Maintenance
		admin := v1.Group("/admin")
		{
			admin.POST("/seed", deps.Admin.TriggerSeed)
			admin.POST("/reembed", deps.Admin.TriggerReembed)
			admin.GET("/audit", deps.Admin.RunAudit)
			admin.GET("/status", deps.Admin.GetMaintenanceStatus)
			admin.DELETE("/topics/:id", deps.Admin.DeleteTopic)
		}
	}

	return r
}
