package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/termharvest/models"
)

// Version is reported by the health endpoint and the version command.
var Version = "0.1.0"

// BrowserStatser reports the state of the automated browser.
type BrowserStatser interface {
	Stats() models.BrowserStats
}

// Health returns a handler for GET /api/v1/health.
//
// Status degrades once the browser health score reaches recycleScore.
func Health(browser BrowserStatser, recycleScore float64, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		var stats models.BrowserStats
		if browser != nil {
			stats = browser.Stats()
		}

		status := "healthy"
		if recycleScore > 0 && stats.HealthScore >= recycleScore {
			status = "degraded"
		}

		c.JSON(http.StatusOK, models.HealthResponse{
			Status:       status,
			Uptime:       time.Since(startTime).Round(time.Second).String(),
			BrowserStats: stats,
			Version:      Version,
		})
	}
}
