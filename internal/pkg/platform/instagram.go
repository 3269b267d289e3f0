package platform

import (
	"Beacon/internal/model"
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"time"
)

const (
	instagramMediaFields    = "like_count,comments_count"
	instagramInsightMetrics = "impressions,reach,saved,total_interactions"
)

type instagramMediaResponse struct {
	ID            string `json:"id"`
	LikeCount     int64  `json:"like_count"`
	CommentsCount int64  `json:"comments_count"`
}

// InstagramFetcher 经由已连接 Facebook 主页的 token 访问 Instagram 商业账号媒体
type InstagramFetcher struct {
	graph    *graphClient
	accounts AccountProvider
}

func NewInstagramFetcher(opts ClientOptions, version string, accounts AccountProvider) *InstagramFetcher {
	return &InstagramFetcher{
		graph:    newGraphClient(opts, version, model.PlatformInstagram),
		accounts: accounts,
	}
}

func (f *InstagramFetcher) Platform() model.Platform {
	return model.PlatformInstagram
}

func (f *InstagramFetcher) Fetch(ctx context.Context, userID uint64, mediaID string) *model.PostMetrics {
	start := time.Now()

	token, err := f.pageToken(ctx, userID)
	if err != nil {
		return giveUp(ctx, model.PlatformInstagram, mediaID, start, err)
	}

	var media instagramMediaResponse
	err = f.graph.get(ctx, token, "/"+mediaID, map[string]string{"fields": instagramMediaFields}, &media)
	if err != nil {
		// 权限类错误在 KindOf 中归为 not_connected / permission_denied，不向上暴露
		return giveUp(ctx, model.PlatformInstagram, mediaID, start, err)
	}

	m := &model.PostMetrics{
		Platform:       model.PlatformInstagram,
		PlatformPostID: mediaID,
		Likes:          media.LikeCount,
		Comments:       media.CommentsCount,
	}

	insights, err := f.graph.insights(ctx, token, mediaID, instagramInsightMetrics)
	if err != nil {
		log.InfoContext(ctx, "instagram insights unavailable, using basic metrics",
			"platform_post_id", mediaID, "kind", string(KindOf(err)), "err", err)
		m.Engagement = m.Likes + m.Comments
		return succeed(model.PlatformInstagram, start, m)
	}

	m.Impressions = insights["impressions"]
	m.Reach = insights["reach"]
	m.Saves = insights["saved"]
	if total := insights["total_interactions"]; total > 0 {
		m.Engagement = total
	} else {
		m.Engagement = m.DerivedEngagement()
	}

	return succeed(model.PlatformInstagram, start, m)
}

// TestConnection 校验主页已绑定 Instagram 商业账号
func (f *InstagramFetcher) TestConnection(ctx context.Context, userID uint64) error {
	account, err := f.accounts.GetAccount(ctx, userID, model.PlatformFacebook)
	if err != nil {
		return err
	}
	if !account.Usable() || account.PageID == "" {
		return ErrNotConnected
	}

	var page struct {
		InstagramBusinessAccount *struct {
			ID string `json:"id"`
		} `json:"instagram_business_account"`
	}
	err = f.graph.get(ctx, account.AccessToken, "/"+account.PageID,
		map[string]string{"fields": "instagram_business_account"}, &page)
	if err != nil {
		return err
	}
	if page.InstagramBusinessAccount == nil || page.InstagramBusinessAccount.ID == "" {
		return fmt.Errorf("facebook page %s has no linked instagram business account", account.PageID)
	}
	return nil
}

// pageToken Instagram 不单独持有 token，使用已连接 Facebook 主页的 token；
// 若存在 Instagram 账号记录且被显式断开，同样视为未连接
func (f *InstagramFetcher) pageToken(ctx context.Context, userID uint64) (string, error) {
	igAccount, err := f.accounts.GetAccount(ctx, userID, model.PlatformInstagram)
	if err != nil {
		return "", &APIError{Platform: model.PlatformInstagram, Kind: KindNetwork, Message: "credential lookup failed", Err: err}
	}
	if igAccount != nil && !igAccount.Connected {
		return "", ErrNotConnected
	}

	fbAccount, err := f.accounts.GetAccount(ctx, userID, model.PlatformFacebook)
	if err != nil {
		return "", &APIError{Platform: model.PlatformInstagram, Kind: KindNetwork, Message: "credential lookup failed", Err: err}
	}
	if !fbAccount.Usable() {
		return "", errors.Join(ErrNotConnected, fmt.Errorf("facebook page not connected"))
	}
	return fbAccount.AccessToken, nil
}
