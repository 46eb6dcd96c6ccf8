// 程序入口：仅负责读取配置、初始化依赖并启动服务；路由注册在 internal/api
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"recycle-right/internal/api"
	"recycle-right/internal/bins"
	"recycle-right/internal/gemini"
	"recycle-right/internal/iplocate"
	"recycle-right/internal/logger"
	"recycle-right/internal/metrics"
	"recycle-right/internal/middleware"
	"recycle-right/internal/migrate"
	"recycle-right/internal/store"
	"recycle-right/internal/tools"
	"recycle-right/internal/utils"
	"recycle-right/internal/version"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

func main() {
	_ = godotenv.Load(".env")
	l := logger.Setup()
	l.Debug("log_init_ok", "commit", version.Commit)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx)
	stop()
	if err != nil {
		l.Error("exit_error", "err", err)
		os.Exit(1)
	}
}

// 文档注释：读取配置、装配依赖并提供服务，直到 ctx 取消
// 约束：所有失败以错误返回，保证已打开的资源经 defer 关闭。
func run(ctx context.Context) error {
	l := logger.L()

	apiBase := os.Getenv("API_BASE")
	binsPath := os.Getenv("BINS_PATH")
	if binsPath == "" {
		binsPath = filepath.Join("data", "RecyclingBins.json")
	}
	k := bins.DefaultK
	if n, err := strconv.Atoi(os.Getenv("BINS_K")); err == nil && n >= 1 {
		k = n
	}
	mode, err := gemini.ParseToolResultMode(os.Getenv("TOOL_RESULT_MODE"))
	if err != nil {
		return err
	}
	l.Debug("config", "api_base", apiBase, "bins_path", binsPath, "k", k, "tool_result_mode", mode.String())

	// 启动期并行加载：数据集失败为致命错误，其余依赖失败降级为禁用
	var (
		points  []bins.GeoPoint
		locator *iplocate.Locator
		st      *store.Store
		rc      *redis.Client
	)
	loadCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	g, gctx := errgroup.WithContext(loadCtx)
	g.Go(func() error {
		p, err := bins.LoadFile(binsPath)
		if err != nil {
			return err
		}
		points = p
		return nil
	})
	if path := os.Getenv("GEOIP_DB_PATH"); path != "" {
		g.Go(func() error {
			loc, err := iplocate.Open(path)
			if err != nil {
				l.Error("geoip_open_error", "path", path, "err", err)
				return nil
			}
			locator = loc
			l.Info("geoip_ready", "type", loc.DatabaseType(), "build_epoch", loc.BuildEpoch())
			return nil
		})
	}
	if os.Getenv("STATS_ENABLE") == "true" {
		g.Go(func() error {
			db, err := utils.OpenPostgresFromEnv()
			if err != nil {
				l.Error("db_open_error", "err", err)
				return nil
			}
			if err := db.PingContext(gctx); err != nil {
				l.Error("db_ping_error", "err", err)
				_ = db.Close()
				return nil
			}
			if err := migrate.EnsureSchema(gctx, db); err != nil {
				l.Error("schema_error", "err", err)
				_ = db.Close()
				return nil
			}
			st = store.AttachDB(db)
			l.Info("stats_enabled")
			return nil
		})
	}
	if c := utils.OpenRedisFromEnv(); c != nil {
		g.Go(func() error {
			if err := c.Ping(gctx).Err(); err != nil {
				l.Error("redis_ping_error", "err", err)
				_ = c.Close()
				return nil
			}
			rc = c
			l.Info("redis_ping_ok")
			return nil
		})
	} else {
		l.Info("redis_disabled")
	}
	err = g.Wait()
	cancel()
	if locator != nil {
		defer locator.Close()
	}
	if st != nil {
		defer st.Close()
	}
	if rc != nil {
		defer rc.Close()
	}
	if err != nil {
		l.Error("bins_load_error", "path", binsPath, "err", err)
		return err
	}
	if !bins.SingaporeBounds.Contains(centroid(points)) && len(points) > 0 {
		l.Warn("bins_outside_singapore", "count", len(points))
	}
	index := bins.NewIndex(points, k)
	l.Info("bins_loaded", "count", index.Len(), "k", index.K())

	client := gemini.NewClient(gemini.ConfigFromEnv(), nil)
	opts := []gemini.Option{gemini.WithToolResultMode(mode)}
	ttl := 24 * time.Hour
	if n, err := strconv.Atoi(os.Getenv("RECOGNISE_CACHE_TTL_S")); err == nil && n > 0 {
		ttl = time.Duration(n) * time.Second
	}
	if rc != nil {
		opts = append(opts, gemini.WithRecognitionCache(gemini.NewRedisCache(rc, ttl)))
	} else {
		size := 256
		if n, err := strconv.Atoi(os.Getenv("RECOGNISE_MEMCACHE_SIZE")); err == nil {
			size = n
		}
		// NewMemoryCache 返回 nil 指针时不能直接装入接口
		if mc := gemini.NewMemoryCache(size, ttl); mc != nil {
			opts = append(opts, gemini.WithRecognitionCache(mc))
			l.Info("recognise_memcache", "size", size)
		}
	}
	svc := gemini.NewService(client, tools.NewDispatcher(index), opts...)
	if svc.DemoMode() {
		l.Warn("gemini_demo_mode", "hint", "set GEMINI_API_KEY to enable real responses")
	} else {
		l.Info("gemini_ready", "model", client.Model())
	}

	deps := api.Deps{Index: index, Assistant: svc, Redis: rc}
	if locator != nil {
		deps.Locator = locator
	}
	if st != nil {
		deps.Stats = st
	}

	mux := http.NewServeMux()
	apiMux := api.BuildRoutes(deps)
	if apiBase == "" {
		mux.Handle("/", apiMux)
	} else {
		mux.Handle(apiBase+"/", http.StripPrefix(apiBase, apiMux))
	}
	mux.Handle(apiBase+"/metrics", metrics.Handler())

	addr := os.Getenv("ADDR")
	if addr == "" {
		addr = ":3001"
	}
	handler := logger.AccessMiddleware(l)(mux)
	handler = middleware.Wrap(handler, middleware.ConfigFromEnv())
	handler = logger.RequestIDMiddleware(handler)
	s := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		l.Info("shutdown_begin")
		sctx, scancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer scancel()
		_ = s.Shutdown(sctx)
	}()

	if os.Getenv("TLS_ENABLE") == "true" {
		certPath := os.Getenv("TLS_CERT_PATH")
		keyPath := os.Getenv("TLS_KEY_PATH")
		if certPath == "" {
			certPath = filepath.Join("data", "certs", "server.crt")
		}
		if keyPath == "" {
			keyPath = filepath.Join("data", "certs", "server.key")
		}
		if err := utils.EnsureSelfSignedCert(certPath, keyPath, "recycle-right.local"); err != nil {
			return err
		}
		l.Info("listening_tls", "addr", addr, "cert", certPath)
		err = s.ListenAndServeTLS(certPath, keyPath)
	} else {
		l.Info("listening", "addr", addr)
		err = s.ListenAndServe()
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	l.Info("shutdown_done")
	return nil
}

// centroid 数据集平均坐标，仅用于启动时的范围提示
func centroid(points []bins.GeoPoint) bins.GeoPoint {
	var c bins.GeoPoint
	if len(points) == 0 {
		return c
	}
	for _, p := range points {
		c.Lon += p.Lon
		c.Lat += p.Lat
	}
	n := float64(len(points))
	return bins.GeoPoint{Lon: c.Lon / n, Lat: c.Lat / n}
}
