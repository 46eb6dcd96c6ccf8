package middleware

import (
	"net/http"

	"recycle-right/internal/logger"
	"recycle-right/internal/metrics"

	"golang.org/x/time/rate"
)

// 文档注释：入口令牌桶限流中间件（每秒）
// 约束：不排队，超限直接返回 429；突发容量等于 qps。
func RateLimit(qps int) func(http.Handler) http.Handler {
	lim := rate.NewLimiter(rate.Limit(qps), qps)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !lim.Allow() {
				metrics.RateLimitedTotal.Inc()
				logger.FromContext(r.Context()).Debug("rate_limited", "path", r.URL.Path)
				writeError(w, http.StatusTooManyRequests, "Too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
