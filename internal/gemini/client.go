package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"recycle-right/internal/logger"
	"recycle-right/internal/metrics"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

const (
	DefaultModel   = "gemini-2.0-flash"
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
)

// Config 客户端配置
type Config struct {
	APIKey     string
	Model      string
	BaseURL    string
	Timeout    time.Duration
	RPS        float64 // 0 表示不限速
	MaxRetries int
	RetryWait  time.Duration // 首次重试等待
}

// 文档注释：从环境变量读取客户端配置
// 约束：GEMINI_API_KEY 为空时客户端处于演示模式，不发出任何网络请求。
func ConfigFromEnv() Config {
	cfg := Config{
		APIKey:     strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		Model:      os.Getenv("GEMINI_MODEL"),
		BaseURL:    os.Getenv("GEMINI_BASE_URL"),
		Timeout:    30 * time.Second,
		MaxRetries: 2,
	}
	if v, err := strconv.Atoi(os.Getenv("GEMINI_TIMEOUT_S")); err == nil && v > 0 {
		cfg.Timeout = time.Duration(v) * time.Second
	}
	if v, err := strconv.ParseFloat(os.Getenv("GEMINI_RPS"), 64); err == nil && v > 0 {
		cfg.RPS = v
	}
	if v, err := strconv.Atoi(os.Getenv("GEMINI_MAX_RETRIES")); err == nil && v >= 0 {
		cfg.MaxRetries = v
	}
	return cfg
}

// Client generateContent 调用封装：限速、重试、指标与日志
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient 补齐默认值；hc 为空时按 Timeout 构造
func NewClient(cfg Config, hc *http.Client) *Client {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RetryWait <= 0 {
		cfg.RetryWait = 500 * time.Millisecond
	}
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	c := &Client{cfg: cfg, http: hc}
	if cfg.RPS > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RPS), 1)
	}
	return c
}

// Enabled 是否配置了 API Key
func (c *Client) Enabled() bool { return c != nil && c.cfg.APIKey != "" }

// Model 当前模型名
func (c *Client) Model() string { return c.cfg.Model }

func (c *Client) endpoint() string {
	return fmt.Sprintf("%s/models/%s:generateContent", c.cfg.BaseURL, c.cfg.Model)
}

// 文档注释：调用 generateContent
// 参数：op 为指标与日志的操作标签（chat/recognise）。
// 约束：429、5xx 与传输错误按指数退避重试至多 MaxRetries 次；其余 4xx 立即返回 *APIError。
func (c *Client) Generate(ctx context.Context, op string, req *GenerateRequest) (*GenerateResponse, error) {
	if !c.Enabled() {
		return nil, errors.New("gemini: missing api key")
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "marshal generate request")
	}
	log := logger.FromContext(ctx)
	t0 := time.Now()
	metrics.GeminiRequestsTotal.WithLabelValues(op).Inc()

	var out *GenerateResponse
	attempt := 0
	call := func() error {
		attempt++
		if attempt > 1 {
			metrics.GeminiRetriesTotal.Inc()
		}
		r, err := c.do(ctx, body)
		if err != nil {
			var apiErr *APIError
			if errors.As(err, &apiErr) && !apiErr.Retryable() {
				return backoff.Permanent(err)
			}
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		out = r
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.RetryWait
	b.MaxInterval = 8 * c.cfg.RetryWait
	b.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.cfg.MaxRetries)), ctx)
	err = backoff.RetryNotify(call, policy, func(err error, wait time.Duration) {
		log.Warn("gemini_retry", "op", op, "attempt", attempt, "wait_ms", wait.Milliseconds(), "err", err)
	})

	dur := time.Since(t0).Milliseconds()
	metrics.GeminiDurationMs.WithLabelValues(op).Observe(float64(dur))
	if err != nil {
		metrics.GeminiFailTotal.WithLabelValues(op).Inc()
		log.Error("gemini_error", "op", op, "model", c.cfg.Model, "attempts", attempt, "duration_ms", dur, "err", err)
		return nil, err
	}
	metrics.GeminiSuccessTotal.WithLabelValues(op).Inc()
	log.Debug("gemini_resp", "op", op, "model", c.cfg.Model, "attempts", attempt, "candidates", len(out.Candidates), "duration_ms", dur)
	return out, nil
}

func (c *Client) do(ctx context.Context, body []byte) (*GenerateResponse, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, errors.Wrap(err, "rate limit wait")
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "gemini http")
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read gemini response")
	}
	if resp.StatusCode/100 != 2 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var env struct {
			Error *APIError `json:"error"`
		}
		if json.Unmarshal(raw, &env) == nil && env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
			apiErr.Status = env.Error.Status
		}
		return nil, apiErr
	}
	var out GenerateResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, errors.Wrap(err, "decode gemini response")
	}
	if len(out.Candidates) == 0 {
		reason := ""
		if out.PromptFeedback != nil {
			reason = out.PromptFeedback.BlockReason
		}
		return nil, backoff.Permanent(errors.Errorf("gemini: no candidates (block reason %q)", reason))
	}
	return &out, nil
}
