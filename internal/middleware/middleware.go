// 包 middleware：入口中间件（跨域、请求体限制、限流、异常恢复）
package middleware

import (
	"encoding/json"
	"net/http"
	"os"
	"strconv"
	"strings"

	"recycle-right/internal/logger"

	"github.com/rs/cors"
)

// Config 入口中间件配置
type Config struct {
	AllowedOrigins []string
	BodyLimitBytes int64
	RateLimitQPS   int // 0 表示不限流
}

// 文档注释：从环境变量读取中间件配置
// 约束：CORS_ALLOWED_ORIGINS 逗号分隔，默认 *；BODY_LIMIT_MB 默认 50；RATE_LIMIT_ENABLED=true 时 RATE_LIMIT_QPS 生效（默认 200）。
func ConfigFromEnv() Config {
	cfg := Config{AllowedOrigins: []string{"*"}, BodyLimitBytes: 50 << 20}
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		if len(origins) > 0 {
			cfg.AllowedOrigins = origins
		}
	}
	if n, err := strconv.Atoi(os.Getenv("BODY_LIMIT_MB")); err == nil && n > 0 {
		cfg.BodyLimitBytes = int64(n) << 20
	}
	if os.Getenv("RATE_LIMIT_ENABLED") == "true" {
		cfg.RateLimitQPS = 200
		if n, err := strconv.Atoi(os.Getenv("RATE_LIMIT_QPS")); err == nil && n > 0 {
			cfg.RateLimitQPS = n
		}
	}
	return cfg
}

// Wrap 依次套上异常恢复、限流、跨域与请求体限制
func Wrap(next http.Handler, cfg Config) http.Handler {
	h := BodyLimit(cfg.BodyLimitBytes)(next)
	h = cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", logger.RequestIDHeader},
		ExposedHeaders: []string{logger.RequestIDHeader},
	}).Handler(h)
	if cfg.RateLimitQPS > 0 {
		h = RateLimit(cfg.RateLimitQPS)(h)
	}
	return Recover(h)
}

// BodyLimit 限制请求体大小；超限时由解码方得到错误
func BodyLimit(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limit > 0 && r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Recover 捕获处理器 panic 并返回 500
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.FromContext(r.Context()).Error("http_panic", "path", r.URL.Path, "panic", rec)
				writeError(w, http.StatusInternalServerError, "Internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
