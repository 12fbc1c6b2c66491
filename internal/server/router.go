package server

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/uplinehq/agencytree-backend/internal/handlers"
	"github.com/uplinehq/agencytree-backend/internal/logger"
	"github.com/uplinehq/agencytree-backend/internal/middleware"
	"github.com/uplinehq/agencytree-backend/internal/observability"
)

type RouterConfig struct {
	Log              *logger.Logger
	Metrics          *observability.Metrics
	HierarchyHandler *handlers.HierarchyHandler
	AllowOrigins     []string
	APIKey           string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	origins := cfg.AllowOrigins
	if len(origins) == 0 {
		origins = []string{
			"http://localhost:80",
			"http://localhost:3000",
			"http://localhost:5173",
		}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With", "X-Api-Key", "X-Request-Id"},
		AllowCredentials: true,
	}))
	router.Use(middleware.RequestID())
	router.Use(middleware.Metrics(cfg.Metrics))
	router.Use(otelgin.Middleware("agencytree-backend"))

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", handlers.HealthCheck)
	if cfg.Metrics != nil {
		router.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}

	// ===============
	// || API       ||
	// ===============
	api := router.Group("/api")
	api.Use(middleware.APIKey(cfg.Log, strings.TrimSpace(cfg.APIKey)))
	{
		api.GET("/hierarchy", cfg.HierarchyHandler.GetHierarchy)
		api.POST("/hierarchy/refresh", cfg.HierarchyHandler.RefreshHierarchy)
		api.GET("/hierarchy/issues", cfg.HierarchyHandler.GetIssues)
	}

	return router
}
