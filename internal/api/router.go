package api

import (
	"net/http"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jengzang/caseheat-backend-go/internal/config"
	"github.com/jengzang/caseheat-backend-go/internal/handler"
	"github.com/jengzang/caseheat-backend-go/internal/middleware"
)

// SetupRouter 设置路由. limiter may be nil to disable rate limiting.
func SetupRouter(cfg *config.Config, heatmap *handler.HeatmapHandler, limiter *middleware.RateLimiter, gatherer prometheus.Gatherer) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(gin.Recovery(), middleware.Logger())

	// Timeline responses carry one point per location and date
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	// CORS 中间件
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", cfg.Server.CORSOrigin)
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Case heatmap API is running",
		})
	})

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	// API 路由组
	api := r.Group("/api/v1")
	if limiter != nil {
		api.Use(middleware.RateLimit(limiter))
	}
	{
		// 热力图接口
		heat := api.Group("/heatmap")
		{
			heat.GET("/points", heatmap.GetPoints)
			heat.GET("/timeline", heatmap.GetTimeline)
			heat.GET("/filter", heatmap.GetFilter)
			heat.PUT("/filter", heatmap.PutFilter)
			heat.DELETE("/filter", heatmap.DeleteFilter)
			heat.GET("/tooltip", heatmap.GetTooltip)
		}

		// 数据集接口
		datasets := api.Group("/datasets")
		{
			datasets.GET("/current", heatmap.GetDataset)
			datasets.POST("/reload", heatmap.ReloadDataset)
		}
	}

	return r
}
