package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var durationBuckets = []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000, 2000, 5000, 10000}

var (
	RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "recycleright_requests_total",
		Help: "Total number of HTTP requests by route and status",
	}, []string{"route", "status"})
	RequestDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "recycleright_request_duration_ms",
		Help:    "Request duration in milliseconds",
		Buckets: durationBuckets,
	}, []string{"route"})
	RateLimitedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "recycleright_rate_limited_total",
		Help: "Total requests rejected by the inbound rate limiter",
	})
	NearestQueriesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "recycleright_nearest_queries_total",
		Help: "Total nearest-bin queries",
	})
	NearestOutOfBoundsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "recycleright_nearest_out_of_bounds_total",
		Help: "Nearest-bin queries whose origin lies outside the service area",
	})
	NearestDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "recycleright_nearest_duration_ms",
		Help:    "Nearest-bin scan duration in milliseconds",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 10, 50},
	})
	ToolCallsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "recycleright_tool_calls_total",
		Help: "Total function calls dispatched by tool",
	}, []string{"tool"})
	GeminiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "recycleright_gemini_requests_total",
		Help: "Total generateContent requests by operation",
	}, []string{"op"})
	GeminiSuccessTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "recycleright_gemini_success_total",
		Help: "Total generateContent successes by operation",
	}, []string{"op"})
	GeminiFailTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "recycleright_gemini_fail_total",
		Help: "Total generateContent failures by operation",
	}, []string{"op"})
	GeminiRetriesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "recycleright_gemini_retries_total",
		Help: "Total generateContent retry attempts",
	})
	GeminiDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "recycleright_gemini_duration_ms",
		Help:    "generateContent call duration in milliseconds",
		Buckets: durationBuckets,
	}, []string{"op"})
	DemoResponsesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "recycleright_demo_responses_total",
		Help: "Responses served in demo mode (no API key)",
	}, []string{"op"})
	CacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "recycleright_recognise_cache_hits_total",
		Help: "Total recognition cache hits",
	})
	CacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "recycleright_recognise_cache_misses_total",
		Help: "Total recognition cache misses",
	})
)

func init() {
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(RequestDurationMs)
	prometheus.MustRegister(RateLimitedTotal)
	prometheus.MustRegister(NearestQueriesTotal)
	prometheus.MustRegister(NearestOutOfBoundsTotal)
	prometheus.MustRegister(NearestDurationMs)
	prometheus.MustRegister(ToolCallsTotal)
	prometheus.MustRegister(GeminiRequestsTotal)
	prometheus.MustRegister(GeminiSuccessTotal)
	prometheus.MustRegister(GeminiFailTotal)
	prometheus.MustRegister(GeminiRetriesTotal)
	prometheus.MustRegister(GeminiDurationMs)
	prometheus.MustRegister(DemoResponsesTotal)
	prometheus.MustRegister(CacheHitsTotal)
	prometheus.MustRegister(CacheMissesTotal)
}

// 文档注释：返回 Prometheus 指标监听器
// 约束：在主入口挂载到 /metrics。
func Handler() http.Handler { return promhttp.Handler() }
