package server

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/abduss/filegate/internal/config"
	"github.com/abduss/filegate/internal/file"
	"github.com/abduss/filegate/internal/logger"
	"github.com/abduss/filegate/internal/metrics"
)

// Pinger reports whether the object store answers. *storage.Gateway satisfies it.
type Pinger interface {
	Ping(ctx context.Context, bucket string) error
}

// Dependencies groups the services required by the HTTP router.
type Dependencies struct {
	Config      config.Config
	ObjectStore Pinger
	// ReadinessBucket is probed by /health/ready.
	ReadinessBucket string
	FileService     *file.Service
}

// NewRouter builds a Gin engine with foundational middleware and routes.
func NewRouter(deps Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logger.Middleware())
	router.Use(metrics.Middleware())

	registerHealthRoutes(router, deps)
	if path := deps.Config.Metrics.PrometheusPath; path != "" {
		metrics.Register(router, path)
	}

	if deps.FileService != nil {
		file.RegisterRoutes(router.Group("/api/files"), deps.FileService)
	}

	return router
}
