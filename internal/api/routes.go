// 包 api：集中注册 HTTP 路由，主入口只负责挂载
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"recycle-right/internal/bins"
	"recycle-right/internal/gemini"
	"recycle-right/internal/store"

	"github.com/redis/go-redis/v9"
)

// Assistant 对话与图片识别能力
type Assistant interface {
	Chat(ctx context.Context, msgs []gemini.ChatMsg) (string, error)
	Recognise(ctx context.Context, imageBase64, mimeType string) (json.RawMessage, error)
}

// Locator 按 IP 估算坐标
type Locator interface {
	Locate(ip string) (bins.GeoPoint, bool)
}

// StatsStore 请求统计读写
type StatsStore interface {
	IncrStats(ctx context.Context, route string, visitor bool) error
	GetTotals(ctx context.Context) (*store.Totals, error)
}

// Deps 路由依赖；Locator、Stats 与 Redis 可为空
type Deps struct {
	Index     *bins.Index
	Assistant Assistant
	Locator   Locator
	Stats     StatsStore
	Redis     *redis.Client
}

// 文档注释：构建 API 路由
// 约束：返回独立 ServeMux，由主入口按 API_BASE 前缀挂载；/metrics 由主入口单独挂载。
func BuildRoutes(d Deps) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("GET /health", d.instrument("health", http.HandlerFunc(handleHealth)))
	mux.Handle("POST /gemini", d.instrument("gemini", http.HandlerFunc(d.handleChat)))
	mux.Handle("POST /image/recognise", d.instrument("image_recognise", http.HandlerFunc(d.handleRecognise)))
	mux.Handle("GET /bin/nearest", d.instrument("bin_nearest", http.HandlerFunc(d.handleNearest)))
	mux.Handle("POST /bin/nearest", d.instrument("bin_nearest", http.HandlerFunc(d.handleNearest)))
	mux.HandleFunc("GET /stats", d.handleStats)
	return mux
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("content-type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ALIVE"))
}
