package platform

import (
	"Beacon/internal/model"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type fakeAccounts struct {
	accounts map[uint64]map[model.Platform]*model.ConnectedAccount
	err      error
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{accounts: make(map[uint64]map[model.Platform]*model.ConnectedAccount)}
}

func (f *fakeAccounts) connect(userID uint64, platform model.Platform, token, pageID string) *fakeAccounts {
	if f.accounts[userID] == nil {
		f.accounts[userID] = make(map[model.Platform]*model.ConnectedAccount)
	}
	f.accounts[userID][platform] = &model.ConnectedAccount{
		UserID:      userID,
		Platform:    platform,
		Connected:   true,
		AccessToken: token,
		PageID:      pageID,
	}
	return f
}

func (f *fakeAccounts) GetAccount(_ context.Context, userID uint64, platform model.Platform) (*model.ConnectedAccount, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.accounts[userID][platform], nil
}

var errLookup = errors.New("mysql: connection refused")

func testOptions(baseURL string) ClientOptions {
	return ClientOptions{
		BaseURL: baseURL,
		Timeout: 2 * time.Second,
	}
}

// newAPI 启动一个假的平台接口，路由按 path 精确匹配
func newAPI(t *testing.T, routes map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, ok := routes[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"message":"Unknown path","code":100}}`))
			return
		}
		h(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func respond(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

// closedServerURL 返回一个已关闭服务的地址，用于模拟网络异常
func closedServerURL() string {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	return url
}
