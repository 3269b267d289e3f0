package model

import (
	"time"
)

// PostMetrics 单个帖子在单个平台上的指标快照，(PostID, Platform) 唯一
type PostMetrics struct {
	ID             string    `bson:"_id,omitempty" json:"id"`
	PostID         string    `bson:"post_id" json:"postId"`
	UserID         uint64    `bson:"user_id" json:"userId"`
	Platform       Platform  `bson:"platform" json:"platform"`
	PlatformPostID string    `bson:"platform_post_id" json:"platformPostId"`
	Likes          int64     `bson:"likes" json:"likes"`
	Comments       int64     `bson:"comments" json:"comments"`
	Shares         int64     `bson:"shares" json:"shares"`
	Saves          int64     `bson:"saves,omitempty" json:"saves,omitempty"`
	Reach          int64     `bson:"reach" json:"reach"`
	Impressions    int64     `bson:"impressions" json:"impressions"`
	Engagement     int64     `bson:"engagement" json:"engagement"`
	EngagementRate float64   `bson:"engagement_rate" json:"engagementRate"`
	CreatedAt      time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt      time.Time `bson:"updated_at" json:"updatedAt"`
	LastFetchedAt  time.Time `bson:"last_fetched_at" json:"lastFetchedAt"`
}

// MetricsKey 文档主键，使同一 (post, platform) 的写入天然幂等
func MetricsKey(postID string, platform Platform) string {
	return postID + "_" + string(platform)
}

// LastTouched 返回 max(CreatedAt, UpdatedAt)，用于在历史重复记录中挑选当前记录
func (m *PostMetrics) LastTouched() time.Time {
	if m.UpdatedAt.After(m.CreatedAt) {
		return m.UpdatedAt
	}
	return m.CreatedAt
}

// DerivedEngagement likes + comments + shares + saves
func (m *PostMetrics) DerivedEngagement() int64 {
	return m.Likes + m.Comments + m.Shares + m.Saves
}

// EngagementRate engagement / impressions * 100，无曝光时为 0
func EngagementRate(engagement, impressions int64) float64 {
	if impressions <= 0 {
		return 0
	}
	return float64(engagement) / float64(impressions) * 100
}

// MetricsPatch Update 的部分字段，nil 表示不修改
type MetricsPatch struct {
	PlatformPostID *string
	Likes          *int64
	Comments       *int64
	Shares         *int64
	Saves          *int64
	Reach          *int64
	Impressions    *int64
	Engagement     *int64
}

// TouchesRate 是否修改了参与率的分子或分母
func (p *MetricsPatch) TouchesRate() bool {
	return p.Engagement != nil || p.Impressions != nil
}

// ApplyTo 将补丁合并到已有记录上
func (p *MetricsPatch) ApplyTo(m *PostMetrics) {
	if p.PlatformPostID != nil {
		m.PlatformPostID = *p.PlatformPostID
	}
	if p.Likes != nil {
		m.Likes = *p.Likes
	}
	if p.Comments != nil {
		m.Comments = *p.Comments
	}
	if p.Shares != nil {
		m.Shares = *p.Shares
	}
	if p.Saves != nil {
		m.Saves = *p.Saves
	}
	if p.Reach != nil {
		m.Reach = *p.Reach
	}
	if p.Impressions != nil {
		m.Impressions = *p.Impressions
	}
	if p.Engagement != nil {
		m.Engagement = *p.Engagement
	}
}
