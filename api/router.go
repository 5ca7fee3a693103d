package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/termharvest/api/handler"
	"github.com/use-agent/termharvest/api/middleware"
	"github.com/use-agent/termharvest/config"
)

// NewRouter creates the status API engine.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth (if keys configured) → RateLimit
//
// Health stays outside auth so monitoring probes always work.
func NewRouter(ctx context.Context, browser handler.BrowserStatser, run handler.RunState, cfg *config.Config, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Status.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	v1 := r.Group("/api/v1")
	v1.GET("/health", handler.Health(browser, cfg.Browser.RecycleScore, startTime))

	protected := v1.Group("")
	protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	protected.Use(middleware.RateLimit(ctx, cfg.RateLimit))

	protected.GET("/progress", handler.Progress(run))
	protected.GET("/records", handler.Records(run))

	return r
}
