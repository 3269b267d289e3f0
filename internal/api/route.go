package api

import (
	"Beacon/internal/api/middleware"
	"Beacon/internal/pkg/consts"
	"Beacon/internal/pkg/logger"
	"Beacon/internal/pkg/metrics"
	"net/http"

	"github.com/gin-gonic/gin"
)

func SetupRouter(group *HandlersGroup, blacklist middleware.TokenBlacklist) *gin.Engine {
	r := gin.New()
	_ = r.SetTrustedProxies([]string{"localhost"})

	// TraceId & Logger & CORS
	r.Use(middleware.TraceMiddleware())
	r.Use(middleware.AuditMiddleware())
	r.Use(middleware.CORSMiddleware())
	logger.SetupGin(r)

	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"code":    200,
				"message": "pong",
				"data":    nil,
			})
		})

		analyticsGroup := apiGroup.Group("/analytics")
		analyticsGroup.Use(middleware.AuthMiddleware(blacklist))
		{
			analyticsGroup.GET("/summary", group.AnalyticsHandler.GetSummary)
			analyticsGroup.GET("/summary/:platform", group.AnalyticsHandler.GetPlatformSummary)
			analyticsGroup.GET("/records", group.AnalyticsHandler.ListRecords)
			analyticsGroup.GET("/posts/:post_id", group.AnalyticsHandler.GetPostMetrics)
			analyticsGroup.POST("/posts/:post_id/refresh", group.AnalyticsHandler.RefreshPost)
			analyticsGroup.DELETE("/posts/:post_id", group.AnalyticsHandler.DeletePostMetrics)
		}

		// 需要登录 & 拥有 admin 角色
		adminGroup := apiGroup.Group("/admin")
		adminGroup.Use(middleware.AuthMiddleware(blacklist), middleware.CheckRoles(consts.RoleAdmin))
		{
			adminGroup.GET("/analytics/global", group.AdminAnalyticsHandler.GetGlobalSummary)
			adminGroup.POST("/analytics/refresh", group.AdminAnalyticsHandler.Refresh)
			adminGroup.POST("/analytics/init", group.AdminAnalyticsHandler.InitIndexes)
			adminGroup.GET("/platforms/test", group.AdminAnalyticsHandler.TestPlatforms)
		}
	}

	return r
}
