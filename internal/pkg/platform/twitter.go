package platform

import (
	"Beacon/internal/model"
	"context"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
)

type twitterTweetResponse struct {
	Data *struct {
		ID            string `json:"id"`
		PublicMetrics struct {
			RetweetCount    int64 `json:"retweet_count"`
			ReplyCount      int64 `json:"reply_count"`
			LikeCount       int64 `json:"like_count"`
			QuoteCount      int64 `json:"quote_count"`
			BookmarkCount   int64 `json:"bookmark_count"`
			ImpressionCount int64 `json:"impression_count"`
		} `json:"public_metrics"`
	} `json:"data"`
	Errors []struct {
		Title  string `json:"title"`
		Detail string `json:"detail"`
		Type   string `json:"type"`
	} `json:"errors"`
}

// TwitterFetcher X API v2 推文公开指标
type TwitterFetcher struct {
	rc          *resty.Client
	accounts    AccountProvider
	bearerToken string
}

// NewTwitterFetcher bearerToken 为配置中的兜底 token，可为空
func NewTwitterFetcher(opts ClientOptions, bearerToken string, accounts AccountProvider) *TwitterFetcher {
	return &TwitterFetcher{
		rc:          newRestClient(opts, model.PlatformTwitter),
		accounts:    accounts,
		bearerToken: bearerToken,
	}
}

func (f *TwitterFetcher) Platform() model.Platform {
	return model.PlatformTwitter
}

func (f *TwitterFetcher) Fetch(ctx context.Context, userID uint64, tweetID string) *model.PostMetrics {
	start := time.Now()

	token, err := f.token(ctx, userID)
	if err != nil {
		return giveUp(ctx, model.PlatformTwitter, tweetID, start, err)
	}

	var tweet twitterTweetResponse
	if err = f.get(ctx, token, "/2/tweets/"+tweetID, map[string]string{"tweet.fields": "public_metrics"}, &tweet); err != nil {
		return giveUp(ctx, model.PlatformTwitter, tweetID, start, err)
	}
	if tweet.Data == nil {
		apiErr := &APIError{Platform: model.PlatformTwitter, Kind: KindAPI, Status: http.StatusOK, Message: "tweet data missing"}
		if len(tweet.Errors) > 0 {
			apiErr.Message = tweet.Errors[0].Detail
			apiErr.Kind = KindNotFound
		}
		return giveUp(ctx, model.PlatformTwitter, tweetID, start, apiErr)
	}

	pm := tweet.Data.PublicMetrics
	m := &model.PostMetrics{
		Platform:       model.PlatformTwitter,
		PlatformPostID: tweetID,
		Likes:          pm.LikeCount,
		Comments:       pm.ReplyCount,
		Shares:         pm.RetweetCount + pm.QuoteCount,
		Saves:          pm.BookmarkCount,
		Impressions:    pm.ImpressionCount,
		Reach:          pm.ImpressionCount,
	}
	m.Engagement = m.DerivedEngagement()

	return succeed(model.PlatformTwitter, start, m)
}

// TestConnection 以当前 token 请求 /2/users/me；仅持有 app-only token 时退化为 token 存在性检查
func (f *TwitterFetcher) TestConnection(ctx context.Context, userID uint64) error {
	token, err := f.token(ctx, userID)
	if err != nil {
		return err
	}
	var me struct {
		Data *struct {
			ID       string `json:"id"`
			Username string `json:"username"`
		} `json:"data"`
	}
	err = f.get(ctx, token, "/2/users/me", nil, &me)
	if err != nil && KindOf(err) == KindPermission && token == f.bearerToken {
		return nil
	}
	return err
}

// token 用户账号 -> 全局账号 -> 配置 bearer token
func (f *TwitterFetcher) token(ctx context.Context, userID uint64) (string, error) {
	candidates := []uint64{userID}
	if userID != model.GlobalAccountUserID {
		candidates = append(candidates, model.GlobalAccountUserID)
	}
	for _, id := range candidates {
		account, err := f.accounts.GetAccount(ctx, id, model.PlatformTwitter)
		if err != nil {
			return "", &APIError{Platform: model.PlatformTwitter, Kind: KindNetwork, Message: "credential lookup failed", Err: err}
		}
		if account.Usable() {
			return account.AccessToken, nil
		}
	}
	if f.bearerToken != "" {
		return f.bearerToken, nil
	}
	return "", ErrNotConnected
}

func (f *TwitterFetcher) get(ctx context.Context, token, path string, query map[string]string, out any) error {
	resp, err := f.rc.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetQueryParams(query).
		Get(path)
	if err != nil {
		return &APIError{Platform: model.PlatformTwitter, Kind: KindNetwork, Err: err}
	}

	if resp.IsError() {
		apiErr := &APIError{
			Platform: model.PlatformTwitter,
			Kind:     classifyTwitterStatus(resp.StatusCode()),
			Status:   resp.StatusCode(),
			Message:  http.StatusText(resp.StatusCode()),
		}
		var problem struct {
			Title  string `json:"title"`
			Detail string `json:"detail"`
		}
		if json.Unmarshal(resp.Body(), &problem) == nil && problem.Detail != "" {
			apiErr.Message = problem.Detail
		}
		return apiErr
	}

	if err = json.Unmarshal(resp.Body(), out); err != nil {
		return &APIError{Platform: model.PlatformTwitter, Kind: KindDecode, Status: resp.StatusCode(), Err: err}
	}
	return nil
}

func classifyTwitterStatus(status int) ErrorKind {
	switch status {
	case http.StatusUnauthorized:
		return KindNotConnected
	case http.StatusForbidden:
		return KindPermission
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusTooManyRequests:
		return KindRateLimited
	default:
		return KindAPI
	}
}
