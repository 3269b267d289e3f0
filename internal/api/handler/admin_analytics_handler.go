package handler

import (
	"Beacon/internal/api/dto"
	"Beacon/internal/job"
	"Beacon/internal/pkg/response"
	"Beacon/internal/pkg/util"
	"Beacon/internal/service"
	"context"
	log "log/slog"

	"github.com/gin-gonic/gin"
)

// RefreshTrigger 后台异步触发批量刷新，已有任务在跑时返回 service.ErrRefreshRunning
type RefreshTrigger interface {
	Trigger(ctx context.Context, target job.RefreshTarget) error
}

// IndexInitializer 建立集合索引
type IndexInitializer func(ctx context.Context) error

type AdminAnalyticsHandler struct {
	globalAnalyticsSvc service.GlobalAnalyticsService
	platformSvc        service.PlatformService
	refresher          RefreshTrigger
	initIndexes        IndexInitializer
}

func NewAdminAnalyticsHandler(
	globalAnalyticsSvc service.GlobalAnalyticsService,
	platformSvc service.PlatformService,
	refresher RefreshTrigger,
	initIndexes IndexInitializer,
) *AdminAnalyticsHandler {
	return &AdminAnalyticsHandler{
		globalAnalyticsSvc: globalAnalyticsSvc,
		platformSvc:        platformSvc,
		refresher:          refresher,
		initIndexes:        initIndexes,
	}
}

// GetGlobalSummary 全站跨用户汇总
func (s *AdminAnalyticsHandler) GetGlobalSummary(c *gin.Context) {
	summary, err := s.globalAnalyticsSvc.GetGlobalSummary(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, summary)
}

// Refresh 受理批量刷新，任务在后台执行
func (s *AdminAnalyticsHandler) Refresh(c *gin.Context) {
	var req dto.BulkRefreshReq
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, service.ErrParamInvalid)
			return
		}
	}
	if err := util.ValidateDTO(&req); err != nil {
		response.Error(c, err)
		return
	}

	target := job.RefreshTarget{PostIDs: req.PostIDs, UserID: req.UserID}
	if err := s.refresher.Trigger(c.Request.Context(), target); err != nil {
		response.Error(c, err)
		return
	}
	log.InfoContext(c.Request.Context(), "bulk refresh accepted", "posts", len(req.PostIDs), "user_id", req.UserID)
	response.Success(c, gin.H{"accepted": true})
}

// InitIndexes 初始化 Mongo 索引
func (s *AdminAnalyticsHandler) InitIndexes(c *gin.Context) {
	if err := s.initIndexes(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// TestPlatforms 检测指定用户（缺省为全局账号）在各平台的连接状态
func (s *AdminAnalyticsHandler) TestPlatforms(c *gin.Context) {
	var query dto.ConnectionTestQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	response.Success(c, s.platformSvc.TestConnections(c.Request.Context(), query.UserID))
}
