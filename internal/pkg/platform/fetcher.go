package platform

import (
	"Beacon/internal/model"
	"Beacon/internal/pkg/logger"
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

// Fetcher 单个平台的指标拉取器。
// Fetch 对“预期内”的不可用（未连接、权限不足、insights 未就绪）以及网络异常一律返回 nil，
// 调用方应将 nil 视为“暂无数据”而不是错误。
type Fetcher interface {
	Platform() model.Platform
	Fetch(ctx context.Context, userID uint64, platformPostID string) *model.PostMetrics
	TestConnection(ctx context.Context, userID uint64) error
}

// AccountProvider 已连接账号的只读视图
type AccountProvider interface {
	GetAccount(ctx context.Context, userID uint64, platform model.Platform) (*model.ConnectedAccount, error)
}

type ErrorKind string

const (
	KindNotConnected ErrorKind = "not_connected"
	KindPermission   ErrorKind = "permission_denied"
	KindRateLimited  ErrorKind = "rate_limited"
	KindNotFound     ErrorKind = "not_found"
	KindAPI          ErrorKind = "api_error"
	KindNetwork      ErrorKind = "network_error"
	KindDecode       ErrorKind = "decode_error"
)

var ErrNotConnected = errors.New("platform account not connected")

// APIError 平台接口错误的统一形态
type APIError struct {
	Platform model.Platform
	Kind     ErrorKind
	Status   int
	Code     int
	Message  string
	Err      error
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Code != 0 {
		return fmt.Sprintf("%s %s (status %d, code %d): %s", e.Platform, e.Kind, e.Status, e.Code, msg)
	}
	return fmt.Sprintf("%s %s (status %d): %s", e.Platform, e.Kind, e.Status, msg)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// KindOf 从错误链中取出分类，用于日志与监控标签
func KindOf(err error) ErrorKind {
	if errors.Is(err, ErrNotConnected) {
		return KindNotConnected
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindNetwork
}

// ClientOptions 单个平台 HTTP 客户端的传输参数
type ClientOptions struct {
	BaseURL   string
	Timeout   time.Duration
	RateLimit float64
	Burst     int
	Retries   int
}

// newRestClient 构建带令牌桶限流与 429/5xx 退避重试的 resty 客户端
func newRestClient(opts ClientOptions, platform model.Platform) *resty.Client {
	limit := rate.Inf
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}
	limiter := rate.NewLimiter(limit, burst)

	client := resty.New().
		SetTransport(logger.NewPlatformTransport(platform.String())).
		SetBaseURL(opts.BaseURL).
		SetTimeout(opts.Timeout).
		SetHeader("Accept", "application/json").
		SetRetryCount(opts.Retries).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(30 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if r == nil {
				return false
			}
			code := r.StatusCode()
			return code == 429 || code >= 500
		}).
		SetRetryAfter(retryAfter)

	client.OnBeforeRequest(func(_ *resty.Client, r *resty.Request) error {
		return limiter.Wait(r.Context())
	})

	return client
}

// retryAfter 优先使用平台返回的 Retry-After / x-rate-limit-reset，否则交给 resty 默认退避
func retryAfter(_ *resty.Client, r *resty.Response) (time.Duration, error) {
	if r == nil {
		return 0, nil
	}
	if v := r.Header().Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second, nil
		}
	}
	if v := r.Header().Get("x-rate-limit-reset"); v != "" {
		if epoch, err := strconv.ParseInt(v, 10, 64); err == nil {
			if d := time.Until(time.Unix(epoch, 0)); d > 0 {
				return d, nil
			}
		}
	}
	return 0, nil
}
