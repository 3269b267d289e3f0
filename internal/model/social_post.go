package model

import (
	"time"
)

const (
	PostStatusDraft     = "draft"
	PostStatusScheduled = "scheduled"
	PostStatusPublished = "published"
	PostStatusFailed    = "failed"
)

// SocialPost 发布到外部平台的帖子（由排程模块维护，这里只读，仅回写 Analytics 缓存）
type SocialPost struct {
	ID              string                    `bson:"_id" json:"id"`
	UserID          uint64                    `bson:"user_id" json:"userId"`
	Content         string                    `bson:"content" json:"content"`
	Status          string                    `bson:"status" json:"status"`
	Platforms       []Platform                `bson:"platforms" json:"platforms"`
	PlatformPostIDs map[Platform]string       `bson:"platform_post_ids,omitempty" json:"platformPostIds,omitempty"`
	Analytics       map[Platform]*PostMetrics `bson:"analytics,omitempty" json:"analytics,omitempty"`
	ScheduledFor    *time.Time                `bson:"scheduled_for,omitempty" json:"scheduledFor,omitempty"`
	PublishedAt     *time.Time                `bson:"published_at,omitempty" json:"publishedAt,omitempty"`
	CreatedAt       time.Time                 `bson:"created_at" json:"createdAt"`
	UpdatedAt       time.Time                 `bson:"updated_at" json:"updatedAt"`
}

// PlatformPostID 返回平台侧的帖子 ID
func (p *SocialPost) PlatformPostID(platform Platform) string {
	if p.PlatformPostIDs == nil {
		return ""
	}
	return p.PlatformPostIDs[platform]
}

// IsLiveOn 帖子是否已在该平台上线（存在平台侧 ID）
func (p *SocialPost) IsLiveOn(platform Platform) bool {
	return p.PlatformPostID(platform) != ""
}

// References 帖子是否指向该平台：在目标平台列表中，或已有平台侧 ID
func (p *SocialPost) References(platform Platform) bool {
	for _, v := range p.Platforms {
		if v == platform {
			return true
		}
	}
	return p.IsLiveOn(platform)
}
