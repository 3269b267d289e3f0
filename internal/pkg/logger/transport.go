package logger

import (
	"bytes"
	"io"
	log "log/slog"
	"net/http"
	"net/url"
	"time"
)

const bodyLogLimit = 1000

// redactedParams 日志中需要隐藏的查询参数
var redactedParams = []string{"access_token", "appsecret_proof"}

// PlatformTransport 记录对第三方平台接口的出站请求
type PlatformTransport struct {
	Platform  string
	Transport http.RoundTripper
}

func NewPlatformTransport(platform string) *PlatformTransport {
	return &PlatformTransport{Platform: platform, Transport: http.DefaultTransport}
}

func (t *PlatformTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	resp, err := t.Transport.RoundTrip(req)
	elapsed := time.Since(start)

	fields := []any{
		log.String("platform", t.Platform),
		log.String("method", req.Method),
		log.String("url", redactURL(req.URL)),
		log.Duration("latency", elapsed),
	}

	if err != nil {
		log.ErrorContext(req.Context(), "Platform API Error", append(fields, log.Any("err", err))...)
		return nil, err
	}

	fields = append(fields, log.Int("status", resp.StatusCode))
	if resp.StatusCode >= http.StatusBadRequest && resp.Body != nil {
		resBody, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		resp.Body = io.NopCloser(bytes.NewBuffer(resBody))

		resStr := string(resBody)
		if len(resStr) > bodyLogLimit {
			resStr = resStr[:bodyLogLimit] + "...[truncated]"
		}
		log.WarnContext(req.Context(), "Platform API Failure", append(fields, log.String("res_body", resStr))...)
		return resp, nil
	}

	if elapsed > 2*time.Second {
		log.WarnContext(req.Context(), "Platform API Slow", fields...)
	} else {
		log.InfoContext(req.Context(), "Platform API", fields...)
	}

	return resp, nil
}

func redactURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	q := u.Query()
	changed := false
	for _, p := range redactedParams {
		if q.Has(p) {
			q.Set(p, "[PROTECTED]")
			changed = true
		}
	}
	if !changed {
		return u.String()
	}
	clone := *u
	clone.RawQuery = q.Encode()
	return clone.String()
}
