package platform

import (
	"Beacon/internal/model"
	"context"
	"net/http"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
)

// graphClient Facebook Graph API 访问（Instagram 同样经由 Graph 代理）
type graphClient struct {
	rc       *resty.Client
	version  string
	platform model.Platform
}

func newGraphClient(opts ClientOptions, version string, platform model.Platform) *graphClient {
	return &graphClient{
		rc:       newRestClient(opts, platform),
		version:  version,
		platform: platform,
	}
}

type graphErrorResponse struct {
	Error *struct {
		Message      string `json:"message"`
		Type         string `json:"type"`
		Code         int    `json:"code"`
		ErrorSubcode int    `json:"error_subcode"`
		FBTraceID    string `json:"fbtrace_id"`
	} `json:"error"`
}

type insightsResponse struct {
	Data []struct {
		Name   string `json:"name"`
		Values []struct {
			Value json.RawMessage `json:"value"`
		} `json:"values"`
		TotalValue *struct {
			Value int64 `json:"value"`
		} `json:"total_value"`
	} `json:"data"`
}

// get 发起 GET 请求并将响应解码到 out
func (g *graphClient) get(ctx context.Context, token, path string, query map[string]string, out any) error {
	resp, err := g.rc.R().
		SetContext(ctx).
		SetQueryParams(query).
		SetQueryParam("access_token", token).
		Get("/" + g.version + path)
	if err != nil {
		return &APIError{Platform: g.platform, Kind: KindNetwork, Err: err}
	}

	if resp.IsError() {
		return g.parseError(resp)
	}

	body := resp.Body()
	var errResp graphErrorResponse
	if jsonErr := json.Unmarshal(body, &errResp); jsonErr == nil && errResp.Error != nil {
		return g.parseError(resp)
	}

	if err = json.Unmarshal(body, out); err != nil {
		return &APIError{Platform: g.platform, Kind: KindDecode, Status: resp.StatusCode(), Err: err}
	}
	return nil
}

// insights 拉取指定指标并按名称返回数值，缺失的指标不出现在结果中
func (g *graphClient) insights(ctx context.Context, token, objectID, metrics string) (map[string]int64, error) {
	var resp insightsResponse
	err := g.get(ctx, token, "/"+objectID+"/insights", map[string]string{"metric": metrics}, &resp)
	if err != nil {
		return nil, err
	}

	values := make(map[string]int64, len(resp.Data))
	for _, d := range resp.Data {
		if d.TotalValue != nil {
			values[d.Name] = d.TotalValue.Value
			continue
		}
		if len(d.Values) == 0 {
			continue
		}
		// 数值型指标直接取值，对象型（按反应类型拆分等）忽略
		var n int64
		if json.Unmarshal(d.Values[len(d.Values)-1].Value, &n) == nil {
			values[d.Name] = n
		}
	}
	return values, nil
}

func (g *graphClient) parseError(resp *resty.Response) error {
	apiErr := &APIError{
		Platform: g.platform,
		Kind:     KindAPI,
		Status:   resp.StatusCode(),
	}

	var errResp graphErrorResponse
	if err := json.Unmarshal(resp.Body(), &errResp); err != nil || errResp.Error == nil {
		apiErr.Message = http.StatusText(resp.StatusCode())
		if resp.StatusCode() == http.StatusTooManyRequests {
			apiErr.Kind = KindRateLimited
		}
		return apiErr
	}

	apiErr.Code = errResp.Error.Code
	apiErr.Message = errResp.Error.Message
	apiErr.Kind = classifyGraphCode(errResp.Error.Code, resp.StatusCode())
	return apiErr
}

// classifyGraphCode Graph 错误码分类
// 10/200-299 权限不足，190 token 失效，4/17/32/613 限流，100 对象不存在或不支持该字段
func classifyGraphCode(code, status int) ErrorKind {
	switch {
	case code == 190:
		return KindNotConnected
	case code == 10 || (code >= 200 && code <= 299):
		return KindPermission
	case code == 4 || code == 17 || code == 32 || code == 613:
		return KindRateLimited
	case code == 100 && status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	default:
		return KindAPI
	}
}
