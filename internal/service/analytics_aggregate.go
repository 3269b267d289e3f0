package service

import (
	"Beacon/internal/api/dto"
	"Beacon/internal/model"
	"slices"
	"sort"
)

// bucket 一个汇总范围（平台或全局）的累加器
type bucket struct {
	totals dto.MetricTotals
	top    *dto.TopPostDTO
}

// add 累加一条记录；互动量严格大于当前最高值时才替换 top，相同时保留先遇到的
func (b *bucket) add(post *model.SocialPost, m *model.PostMetrics) {
	b.totals.TotalLikes += m.Likes
	b.totals.TotalComments += m.Comments
	b.totals.TotalShares += m.Shares
	b.totals.TotalSaves += m.Saves
	b.totals.TotalReach += m.Reach
	b.totals.TotalImpressions += m.Impressions
	b.totals.TotalEngagement += m.Engagement

	if b.top == nil || m.Engagement > b.top.Engagement {
		b.top = topPost(post, m)
	}
}

func (b *bucket) merge(other *bucket) {
	b.totals.TotalLikes += other.totals.TotalLikes
	b.totals.TotalComments += other.totals.TotalComments
	b.totals.TotalShares += other.totals.TotalShares
	b.totals.TotalSaves += other.totals.TotalSaves
	b.totals.TotalReach += other.totals.TotalReach
	b.totals.TotalImpressions += other.totals.TotalImpressions
	b.totals.TotalEngagement += other.totals.TotalEngagement
}

// result 计算平均参与率：totalEngagement / totalImpressions * 100
func (b *bucket) result() dto.MetricTotals {
	t := b.totals
	t.AverageEngagementRate = model.EngagementRate(t.TotalEngagement, t.TotalImpressions)
	return t
}

func topPost(post *model.SocialPost, m *model.PostMetrics) *dto.TopPostDTO {
	return &dto.TopPostDTO{
		PostID:         post.ID,
		UserID:         post.UserID,
		Platform:       m.Platform.String(),
		Content:        post.Content,
		Engagement:     m.Engagement,
		EngagementRate: m.EngagementRate,
	}
}

// indexMetrics 以 (post, platform) 为键建立索引，历史重复记录取最新一条
func indexMetrics(list []*model.PostMetrics) map[string]*model.PostMetrics {
	idx := make(map[string]*model.PostMetrics, len(list))
	for _, m := range list {
		key := model.MetricsKey(m.PostID, m.Platform)
		if cur, ok := idx[key]; !ok || m.LastTouched().After(cur.LastTouched()) {
			idx[key] = m
		}
	}
	return idx
}

// belongsTo 帖子是否计入某平台：目标平台包含它、已有平台侧 ID，或已存在该平台的指标
func belongsTo(post *model.SocialPost, platform model.Platform, m *model.PostMetrics) bool {
	return m != nil || post.References(platform)
}

// orphanMetrics 在帖子列表中找不到所属帖子的记录，按创建时间、帖子 ID、平台顺序排列
func orphanMetrics(idx map[string]*model.PostMetrics, posts []*model.SocialPost) []*model.PostMetrics {
	known := make(map[string]struct{}, len(posts))
	for _, p := range posts {
		known[p.ID] = struct{}{}
	}
	list := make([]*model.PostMetrics, 0)
	for _, m := range idx {
		if _, ok := known[m.PostID]; !ok {
			list = append(list, m)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		if a.PostID != b.PostID {
			return a.PostID < b.PostID
		}
		return slices.Index(model.AllPlatforms, a.Platform) < slices.Index(model.AllPlatforms, b.Platform)
	})
	return list
}

// orphanPost 记录所属帖子已不可见时，用记录自身的字段代替
func orphanPost(m *model.PostMetrics) *model.SocialPost {
	return &model.SocialPost{ID: m.PostID, UserID: m.UserID}
}
