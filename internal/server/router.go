package server

import (
	"net/http"

	"github.com/abduss/filedrop/internal/config"
	"github.com/abduss/filedrop/internal/file"
	"github.com/abduss/filedrop/internal/logger"
	"github.com/abduss/filedrop/internal/metrics"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// multipartMemory is how much of an upload is held in memory before spilling to disk.
const multipartMemory = 32 << 20

// Dependencies groups the services required by the HTTP router.
type Dependencies struct {
	Config      config.Config
	FileService *file.Service
	Logger      *zap.Logger
}

// NewRouter builds a Gin engine with foundational middleware and routes.
func NewRouter(deps Dependencies) *gin.Engine {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.MaxMultipartMemory = multipartMemory
	router.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		log.Error("panic recovered", zap.Any("panic", recovered), zap.String("path", c.Request.URL.Path))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}))
	router.Use(logger.MiddlewareWith(log))
	router.Use(metrics.Middleware())

	registerHealthRoutes(router, deps)
	if path := deps.Config.Metrics.PrometheusPath; path != "" {
		metrics.Register(router, path)
	}

	api := router.Group("/api")
	api.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"data": "success"})
	})
	if deps.FileService != nil {
		file.RegisterRoutes(api, deps.FileService, log)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":  "API endpoint not found",
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		})
	})
	router.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{
			"error":  "Method not allowed",
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		})
	})

	return router
}
