package dto

import "time"

// PostMetricsDTO 单条指标记录
type PostMetricsDTO struct {
	ID             string    `json:"id"`
	PostID         string    `json:"postId"`
	UserID         uint64    `json:"userId"`
	Platform       string    `json:"platform"`
	PlatformPostID string    `json:"platformPostId"`
	Likes          int64     `json:"likes"`
	Comments       int64     `json:"comments"`
	Shares         int64     `json:"shares"`
	Saves          int64     `json:"saves"`
	Reach          int64     `json:"reach"`
	Impressions    int64     `json:"impressions"`
	Engagement     int64     `json:"engagement"`
	EngagementRate float64   `json:"engagementRate"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
	LastFetchedAt  time.Time `json:"lastFetchedAt"`
}

// TopPostDTO 互动量最高的帖子
type TopPostDTO struct {
	PostID         string  `json:"postId"`
	UserID         uint64  `json:"userId"`
	Platform       string  `json:"platform"`
	Content        string  `json:"content"`
	Engagement     int64   `json:"engagement"`
	EngagementRate float64 `json:"engagementRate"`
}

// MetricTotals 各类汇总共用的累加字段
type MetricTotals struct {
	TotalPosts            int64   `json:"totalPosts"`
	TotalLikes            int64   `json:"totalLikes"`
	TotalComments         int64   `json:"totalComments"`
	TotalShares           int64   `json:"totalShares"`
	TotalSaves            int64   `json:"totalSaves"`
	TotalReach            int64   `json:"totalReach"`
	TotalImpressions      int64   `json:"totalImpressions"`
	TotalEngagement       int64   `json:"totalEngagement"`
	AverageEngagementRate float64 `json:"averageEngagementRate"`
}

// PlatformSummaryDTO 单个用户在单个平台上的汇总
type PlatformSummaryDTO struct {
	Platform string `json:"platform"`
	MetricTotals
	TopPost *TopPostDTO `json:"topPost"`
}

// UserAnalyticsSummaryDTO 单个用户的全平台汇总
type UserAnalyticsSummaryDTO struct {
	UserID uint64 `json:"userId"`
	MetricTotals
	Platforms   map[string]*PlatformSummaryDTO `json:"platforms"`
	TopPost     *TopPostDTO                    `json:"topPost"`
	GeneratedAt time.Time                      `json:"generatedAt"`
}

// GlobalPlatformDTO 全站单平台汇总；PostCount 为已上线帖子数，PostsWithData 为已有指标的帖子数
type GlobalPlatformDTO struct {
	Platform string `json:"platform"`
	MetricTotals
	PostCount     int64       `json:"postCount"`
	PostsWithData int64       `json:"postsWithData"`
	TopPost       *TopPostDTO `json:"topPost"`
}

// GlobalSummaryDTO 管理端全站汇总
type GlobalSummaryDTO struct {
	TotalUsers int64 `json:"totalUsers"`
	MetricTotals
	TopPerformingPost *TopPostDTO                   `json:"topPerformingPost"`
	PlatformBreakdown map[string]*GlobalPlatformDTO `json:"platformBreakdown"`
	GeneratedAt       time.Time                     `json:"generatedAt"`
}

// RefreshResultDTO 单个帖子刷新结果
type RefreshResultDTO struct {
	PostID  string   `json:"postId"`
	Updated []string `json:"updated"`
	Skipped []string `json:"skipped"`
	Failed  []string `json:"failed"`
}

// BulkRefreshResultDTO 批量刷新结果
type BulkRefreshResultDTO struct {
	Total     int                 `json:"total"`
	Succeeded int                 `json:"succeeded"`
	Failed    int                 `json:"failed"`
	Cancelled bool                `json:"cancelled"`
	Results   []*RefreshResultDTO `json:"results"`
}

// DeleteReportDTO 级联删除结果
type DeleteReportDTO struct {
	PostID  string   `json:"postId"`
	Deleted []string `json:"deleted"`
	Failed  []string `json:"failed"`
}

// ConnectionTestDTO 平台连接测试结果
type ConnectionTestDTO struct {
	Platform  string `json:"platform"`
	Connected bool   `json:"connected"`
	Message   string `json:"message"`
}

// BulkRefreshReq 管理端批量刷新；PostIDs 与 UserID 均为空时刷新全部
type BulkRefreshReq struct {
	PostIDs []string `json:"postIds" validate:"omitempty,max=500,dive,required"`
	UserID  *uint64  `json:"userId" validate:"omitempty,min=1"`
}

// RecordsQuery 指标记录列表查询
type RecordsQuery struct {
	Platform string `form:"platform" validate:"omitempty,oneof=facebook instagram twitter linkedin threads"`
	PostID   string `form:"post_id"`
	From     string `form:"from" validate:"omitempty,datetime=2006-01-02"`
	To       string `form:"to" validate:"omitempty,datetime=2006-01-02"`
	Limit    int64  `form:"limit" validate:"omitempty,min=1,max=500"`
}

// ConnectionTestQuery 连接测试目标用户，0 表示全局账号
type ConnectionTestQuery struct {
	UserID uint64 `form:"user_id"`
}
