package platform

import (
	"Beacon/internal/model"
	"context"
	"fmt"
	log "log/slog"
	"strings"
	"time"
)

const (
	facebookBasicFields    = "reactions.summary(total_count),comments.summary(total_count),shares"
	facebookInsightMetrics = "post_impressions,post_impressions_unique,post_engaged_users"
)

type facebookPostResponse struct {
	ID        string `json:"id"`
	Reactions struct {
		Summary struct {
			TotalCount int64 `json:"total_count"`
		} `json:"summary"`
	} `json:"reactions"`
	Comments struct {
		Summary struct {
			TotalCount int64 `json:"total_count"`
		} `json:"summary"`
	} `json:"comments"`
	Shares struct {
		Count int64 `json:"count"`
	} `json:"shares"`
}

// FacebookFetcher 主页帖子指标：基础计数必取，insights 尽力而为
type FacebookFetcher struct {
	graph    *graphClient
	accounts AccountProvider
}

func NewFacebookFetcher(opts ClientOptions, version string, accounts AccountProvider) *FacebookFetcher {
	return &FacebookFetcher{
		graph:    newGraphClient(opts, version, model.PlatformFacebook),
		accounts: accounts,
	}
}

func (f *FacebookFetcher) Platform() model.Platform {
	return model.PlatformFacebook
}

func (f *FacebookFetcher) Fetch(ctx context.Context, userID uint64, postID string) *model.PostMetrics {
	start := time.Now()

	account, err := f.account(ctx, userID)
	if err != nil {
		return giveUp(ctx, model.PlatformFacebook, postID, start, err)
	}
	objectID := pagePostID(account.PageID, postID)

	var basic facebookPostResponse
	err = f.graph.get(ctx, account.AccessToken, "/"+objectID, map[string]string{"fields": facebookBasicFields}, &basic)
	if err != nil {
		return giveUp(ctx, model.PlatformFacebook, postID, start, err)
	}

	m := &model.PostMetrics{
		Platform:       model.PlatformFacebook,
		PlatformPostID: postID,
		Likes:          basic.Reactions.Summary.TotalCount,
		Comments:       basic.Comments.Summary.TotalCount,
		Shares:         basic.Shares.Count,
	}

	var engagedUsers int64
	insights, err := f.graph.insights(ctx, account.AccessToken, objectID, facebookInsightMetrics)
	if err != nil {
		// 新发布的帖子通常还没有 insights
		log.InfoContext(ctx, "facebook insights unavailable, using basic metrics",
			"platform_post_id", postID, "kind", string(KindOf(err)), "err", err)
	} else {
		m.Impressions = insights["post_impressions"]
		m.Reach = insights["post_impressions_unique"]
		engagedUsers = insights["post_engaged_users"]
	}

	if engagedUsers > 0 {
		m.Engagement = engagedUsers
	} else {
		m.Engagement = m.DerivedEngagement()
	}

	return succeed(model.PlatformFacebook, start, m)
}

// TestConnection 校验主页 token 可用
func (f *FacebookFetcher) TestConnection(ctx context.Context, userID uint64) error {
	account, err := f.account(ctx, userID)
	if err != nil {
		return err
	}
	var page struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	target := account.PageID
	if target == "" {
		target = "me"
	}
	if err = f.graph.get(ctx, account.AccessToken, "/"+target, map[string]string{"fields": "id,name"}, &page); err != nil {
		return err
	}
	if page.ID == "" {
		return fmt.Errorf("facebook page lookup returned no id")
	}
	return nil
}

func (f *FacebookFetcher) account(ctx context.Context, userID uint64) (*model.ConnectedAccount, error) {
	account, err := f.accounts.GetAccount(ctx, userID, model.PlatformFacebook)
	if err != nil {
		return nil, &APIError{Platform: model.PlatformFacebook, Kind: KindNetwork, Message: "credential lookup failed", Err: err}
	}
	if !account.Usable() {
		return nil, ErrNotConnected
	}
	return account, nil
}

// pagePostID Graph 的主页帖子 ID 形如 {pageId}_{postId}
func pagePostID(pageID, postID string) string {
	if pageID == "" || strings.Contains(postID, "_") {
		return postID
	}
	return pageID + "_" + postID
}
