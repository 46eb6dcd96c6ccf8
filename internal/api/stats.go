package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"recycle-right/internal/iplocate"
	"recycle-right/internal/logger"
	"recycle-right/internal/metrics"
)

// statusWriter 捕获状态码供指标使用
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// 文档注释：路由级指标与统计
// 约束：统计写入失败只记日志；写入使用脱离请求取消的上下文并限时 2s。
func (d Deps) instrument(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		t0 := time.Now()
		next.ServeHTTP(sw, r)
		metrics.RequestDurationMs.WithLabelValues(route).Observe(float64(time.Since(t0).Milliseconds()))
		metrics.RequestsTotal.WithLabelValues(route, strconv.Itoa(sw.status)).Inc()

		if d.Stats == nil || route == "health" || sw.status >= 400 {
			return
		}
		ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), 2*time.Second)
		defer cancel()
		visitor := newVisitor(ctx, d.Redis, iplocate.ClientIP(r), time.Now())
		if err := d.Stats.IncrStats(ctx, route, visitor); err != nil {
			logger.FromContext(ctx).Warn("stats_incr_error", "route", route, "err", err)
		}
	})
}

// handleStats 统计未启用时返回 404
func (d Deps) handleStats(w http.ResponseWriter, r *http.Request) {
	if d.Stats == nil {
		writeError(w, http.StatusNotFound, "Stats are not enabled")
		return
	}
	t, err := d.Stats.GetTotals(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Error("stats_read_error", "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to read stats")
		return
	}
	writeJSON(w, http.StatusOK, t)
}
