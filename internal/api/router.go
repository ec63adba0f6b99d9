package api

import (
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/d60-Lab/course-forum/config"
	"github.com/d60-Lab/course-forum/internal/api/handler"
)

// NewRouter 组装内部运维 API 路由
func NewRouter(cfg *config.Config, h *handler.Handler) *gin.Engine {
	if cfg.App.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gzip.Gzip(gzip.DefaultCompression))
	r.Use(otelgin.Middleware(cfg.App.Name))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	v1 := r.Group("/api/v1")
	v1.Use(JWTAuth(cfg.Server.JWTSecret))
	{
		v1.POST("/notifications/schedule", h.ScheduleNotification)
		v1.GET("/notifications/stats", h.QueueStats)
		v1.DELETE("/courses/:course_id/roster-cache", h.InvalidateRosterCache)
	}

	return r
}
