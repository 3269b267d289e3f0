package platform

import (
	"Beacon/internal/model"
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fbBasicBody = `{"id":"123_456","reactions":{"summary":{"total_count":5}},"comments":{"summary":{"total_count":2}},"shares":{"count":1}}`

func TestFacebookFetchWithoutInsightsDerivesEngagement(t *testing.T) {
	var gotToken string
	srv := newAPI(t, map[string]http.HandlerFunc{
		"/v18.0/123_456": func(w http.ResponseWriter, r *http.Request) {
			gotToken = r.URL.Query().Get("access_token")
			respond(http.StatusOK, fbBasicBody)(w, r)
		},
		"/v18.0/123_456/insights": respond(http.StatusOK, `{"data":[]}`),
	})
	accounts := newFakeAccounts().connect(7, model.PlatformFacebook, "page-token", "123")
	f := NewFacebookFetcher(testOptions(srv.URL), "v18.0", accounts)

	m := f.Fetch(context.Background(), 7, "456")

	require.NotNil(t, m)
	assert.Equal(t, "page-token", gotToken)
	assert.Equal(t, model.PlatformFacebook, m.Platform)
	assert.Equal(t, "456", m.PlatformPostID)
	assert.EqualValues(t, 5, m.Likes)
	assert.EqualValues(t, 2, m.Comments)
	assert.EqualValues(t, 1, m.Shares)
	assert.EqualValues(t, 0, m.Impressions)
	assert.EqualValues(t, 0, m.Reach)
	assert.EqualValues(t, 8, m.Engagement)
}

func TestFacebookFetchUsesInsights(t *testing.T) {
	srv := newAPI(t, map[string]http.HandlerFunc{
		"/v18.0/123_456": respond(http.StatusOK, fbBasicBody),
		"/v18.0/123_456/insights": respond(http.StatusOK, `{"data":[
			{"name":"post_impressions","values":[{"value":400}]},
			{"name":"post_impressions_unique","values":[{"value":250}]},
			{"name":"post_engaged_users","values":[{"value":30}]},
			{"name":"post_reactions_by_type_total","values":[{"value":{"like":5}}]}
		]}`),
	})
	accounts := newFakeAccounts().connect(7, model.PlatformFacebook, "page-token", "123")
	f := NewFacebookFetcher(testOptions(srv.URL), "v18.0", accounts)

	m := f.Fetch(context.Background(), 7, "456")

	require.NotNil(t, m)
	assert.EqualValues(t, 400, m.Impressions)
	assert.EqualValues(t, 250, m.Reach)
	assert.EqualValues(t, 30, m.Engagement)
}

func TestFacebookInsightsErrorKeepsBasicMetrics(t *testing.T) {
	srv := newAPI(t, map[string]http.HandlerFunc{
		"/v18.0/123_456":          respond(http.StatusOK, fbBasicBody),
		"/v18.0/123_456/insights": respond(http.StatusBadRequest, `{"error":{"message":"(#100) insights not ready","code":100}}`),
	})
	accounts := newFakeAccounts().connect(7, model.PlatformFacebook, "page-token", "123")
	f := NewFacebookFetcher(testOptions(srv.URL), "v18.0", accounts)

	m := f.Fetch(context.Background(), 7, "456")

	require.NotNil(t, m)
	assert.EqualValues(t, 0, m.Impressions)
	assert.EqualValues(t, 8, m.Engagement)
}

func TestFacebookFetchReturnsNil(t *testing.T) {
	cases := []struct {
		name     string
		baseURL  func(t *testing.T) string
		accounts *fakeAccounts
	}{
		{
			name:     "account not connected",
			baseURL:  func(t *testing.T) string { return newAPI(t, nil).URL },
			accounts: newFakeAccounts(),
		},
		{
			name:     "credential lookup failure",
			baseURL:  func(t *testing.T) string { return newAPI(t, nil).URL },
			accounts: &fakeAccounts{err: errLookup},
		},
		{
			name: "expired token",
			baseURL: func(t *testing.T) string {
				return newAPI(t, map[string]http.HandlerFunc{
					"/v18.0/123_456": respond(http.StatusBadRequest, `{"error":{"message":"Session has expired","type":"OAuthException","code":190}}`),
				}).URL
			},
			accounts: newFakeAccounts().connect(7, model.PlatformFacebook, "page-token", "123"),
		},
		{
			name: "permission denied",
			baseURL: func(t *testing.T) string {
				return newAPI(t, map[string]http.HandlerFunc{
					"/v18.0/123_456": respond(http.StatusForbidden, `{"error":{"message":"(#200) Permissions error","code":200}}`),
				}).URL
			},
			accounts: newFakeAccounts().connect(7, model.PlatformFacebook, "page-token", "123"),
		},
		{
			name: "malformed body",
			baseURL: func(t *testing.T) string {
				return newAPI(t, map[string]http.HandlerFunc{
					"/v18.0/123_456": respond(http.StatusOK, `{"reactions":`),
				}).URL
			},
			accounts: newFakeAccounts().connect(7, model.PlatformFacebook, "page-token", "123"),
		},
		{
			name:     "network failure",
			baseURL:  func(*testing.T) string { return closedServerURL() },
			accounts: newFakeAccounts().connect(7, model.PlatformFacebook, "page-token", "123"),
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := NewFacebookFetcher(testOptions(tc.baseURL(t)), "v18.0", tc.accounts)
			assert.Nil(t, f.Fetch(context.Background(), 7, "456"))
		})
	}
}

func TestFacebookTestConnection(t *testing.T) {
	srv := newAPI(t, map[string]http.HandlerFunc{
		"/v18.0/123": respond(http.StatusOK, `{"id":"123","name":"Beacon Page"}`),
	})
	f := NewFacebookFetcher(testOptions(srv.URL), "v18.0",
		newFakeAccounts().connect(7, model.PlatformFacebook, "page-token", "123"))

	assert.NoError(t, f.TestConnection(context.Background(), 7))
	assert.ErrorIs(t, f.TestConnection(context.Background(), 8), ErrNotConnected)
}

func TestPagePostID(t *testing.T) {
	assert.Equal(t, "123_456", pagePostID("123", "456"))
	assert.Equal(t, "123_456", pagePostID("123", "123_456"))
	assert.Equal(t, "456", pagePostID("", "456"))
}

func TestClassifyGraphCode(t *testing.T) {
	assert.Equal(t, KindNotConnected, classifyGraphCode(190, http.StatusBadRequest))
	assert.Equal(t, KindPermission, classifyGraphCode(10, http.StatusForbidden))
	assert.Equal(t, KindPermission, classifyGraphCode(230, http.StatusForbidden))
	assert.Equal(t, KindRateLimited, classifyGraphCode(613, http.StatusBadRequest))
	assert.Equal(t, KindNotFound, classifyGraphCode(100, http.StatusNotFound))
	assert.Equal(t, KindAPI, classifyGraphCode(100, http.StatusBadRequest))
}
