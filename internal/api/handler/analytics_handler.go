package handler

import (
	"Beacon/internal/api/dto"
	"Beacon/internal/model"
	"Beacon/internal/pkg/consts"
	"Beacon/internal/pkg/response"
	"Beacon/internal/pkg/util"
	"Beacon/internal/service"
	"errors"

	"github.com/gin-gonic/gin"
)

type AnalyticsHandler struct {
	userAnalyticsSvc service.UserAnalyticsService
	updater          service.AnalyticsUpdater
}

func NewAnalyticsHandler(userAnalyticsSvc service.UserAnalyticsService, updater service.AnalyticsUpdater) *AnalyticsHandler {
	return &AnalyticsHandler{
		userAnalyticsSvc: userAnalyticsSvc,
		updater:          updater,
	}
}

// GetSummary 当前用户的分平台汇总
func (s *AnalyticsHandler) GetSummary(c *gin.Context) {
	userID := c.GetUint64(consts.ContextUserID)
	summary, err := s.userAnalyticsSvc.GetUserSummary(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, summary)
}

// GetPlatformSummary 当前用户单个平台的汇总
func (s *AnalyticsHandler) GetPlatformSummary(c *gin.Context) {
	userID := c.GetUint64(consts.ContextUserID)
	platform, ok := model.ParsePlatform(c.Param("platform"))
	if !ok {
		response.Error(c, service.ErrPlatformUnsupported)
		return
	}

	summary, err := s.userAnalyticsSvc.GetPlatformSummary(c.Request.Context(), userID, platform)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, summary)
}

func (s *AnalyticsHandler) GetPostMetrics(c *gin.Context) {
	userID := c.GetUint64(consts.ContextUserID)
	postID := c.Param("post_id")

	list, err := s.userAnalyticsSvc.GetPostMetrics(c.Request.Context(), userID, postID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, list)
}

// RefreshPost 立即从各平台拉取一次帖子指标
func (s *AnalyticsHandler) RefreshPost(c *gin.Context) {
	userID := c.GetUint64(consts.ContextUserID)
	postID := c.Param("post_id")

	res, err := s.updater.RefreshOwnPost(c.Request.Context(), userID, postID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, service.ToRefreshResultDTO(res))
}

// DeletePostMetrics 级联删除帖子的全部指标；部分失败时带回逐条报告
func (s *AnalyticsHandler) DeletePostMetrics(c *gin.Context) {
	userID := c.GetUint64(consts.ContextUserID)
	postID := c.Param("post_id")

	report, err := s.updater.RemoveOwnPost(c.Request.Context(), userID, postID)
	if err != nil {
		var partial *service.PartialDeleteError
		if errors.As(err, &partial) && report != nil {
			response.FailWithData(c, response.InternalServerError, service.ErrPartialDelete.Error(), service.ToDeleteReportDTO(report))
			return
		}
		response.Error(c, err)
		return
	}
	response.Success(c, service.ToDeleteReportDTO(report))
}

// ListRecords 指标记录列表，支持平台/帖子/日期筛选
func (s *AnalyticsHandler) ListRecords(c *gin.Context) {
	userID := c.GetUint64(consts.ContextUserID)

	var query dto.RecordsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	if err := util.ValidateDTO(&query); err != nil {
		response.Error(c, err)
		return
	}

	list, err := s.userAnalyticsSvc.ListRecords(c.Request.Context(), userID, &query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, list)
}
