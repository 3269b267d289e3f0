package consts

const (
	AnalyticsUserSummaryKey   = "analytics:summary:user:"
	AnalyticsGlobalSummaryKey = "analytics:summary:global"
)

const (
	AnalyticsRefreshLock     = "lock:analytics:refresh"
	AnalyticsPostRefreshLock = "lock:analytics:post:"
)
