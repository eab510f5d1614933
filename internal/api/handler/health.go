package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ngx_scraper/internal/dataset"
	"ngx_scraper/internal/models"
)

// Health returns a handler for GET /api/health.
func Health(store *dataset.Store, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp := models.HealthResponse{
			Status: "ok",
			Uptime: time.Since(startTime).Round(time.Second).String(),
		}
		if snap := store.Current(); snap != nil {
			resp.Records = len(snap.Records)
			resp.ScrapedAt = snap.ScrapedAt.UTC().Format(time.RFC3339)
		}
		c.JSON(http.StatusOK, resp)
	}
}
