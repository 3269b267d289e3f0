package api

import "Beacon/internal/api/handler"

// HandlersGroup 封装了所有已初始化的 Handler 实例
type HandlersGroup struct {
	AnalyticsHandler      *handler.AnalyticsHandler
	AdminAnalyticsHandler *handler.AdminAnalyticsHandler
}
