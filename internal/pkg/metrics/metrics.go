package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	fetchTotal       *prometheus.CounterVec
	fetchDuration    *prometheus.HistogramVec
	storeWritesTotal *prometheus.CounterVec
	bulkPostsTotal   *prometheus.CounterVec
)

func init() {
	fetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "beacon_fetch_total",
			Help: "Platform metric fetches by outcome.",
		},
		[]string{"platform", "outcome"},
	)
	fetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "beacon_fetch_duration_seconds",
			Help:    "Platform metric fetch latency.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"platform"},
	)
	storeWritesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "beacon_store_writes_total",
			Help: "Analytics store writes by operation and result.",
		},
		[]string{"op", "result"},
	)
	bulkPostsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "beacon_bulk_posts_total",
			Help: "Posts processed by bulk analytics refresh.",
		},
		[]string{"result"},
	)
	prometheus.MustRegister(fetchTotal, fetchDuration, storeWritesTotal, bulkPostsTotal)
}

// ObserveFetch 记录一次平台拉取的结果与耗时
func ObserveFetch(platform, outcome string, seconds float64) {
	fetchTotal.WithLabelValues(platform, outcome).Inc()
	fetchDuration.WithLabelValues(platform).Observe(seconds)
}

func ObserveStoreWrite(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	storeWritesTotal.WithLabelValues(op, result).Inc()
}

func ObserveBulkPost(result string) {
	bulkPostsTotal.WithLabelValues(result).Inc()
}

// Handler /metrics 输出
func Handler() http.Handler {
	return promhttp.Handler()
}
