package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// setupPublicRoutes mounts the unauthenticated endpoints.
func setupPublicRoutes(v1 *gin.RouterGroup, h Handlers) {
	public := v1.Group("")
	{
		// Health check
		public.GET("/health", func(c *gin.Context) {
			c.JSON(200, gin.H{
				"status":  "ok",
				"message": "Bankeu API is running",
			})
		})

		public.GET("/metrics", gin.WrapH(promhttp.Handler()))
		public.GET("/public/tracking-summary", h.Tracking.GetTrackingSummary)
	}
}
