package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			if _, err := io.ReadAll(r.Body); err != nil {
				http.Error(w, "too large", http.StatusRequestEntityTooLarge)
				return
			}
		}
		_, _ = w.Write([]byte("ok"))
	})
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("BODY_LIMIT_MB", "2")
	t.Setenv("RATE_LIMIT_ENABLED", "true")
	t.Setenv("RATE_LIMIT_QPS", "")
	cfg := ConfigFromEnv()
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, int64(2<<20), cfg.BodyLimitBytes)
	assert.Equal(t, 200, cfg.RateLimitQPS)

	t.Setenv("CORS_ALLOWED_ORIGINS", "")
	t.Setenv("BODY_LIMIT_MB", "")
	t.Setenv("RATE_LIMIT_ENABLED", "")
	cfg = ConfigFromEnv()
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.Equal(t, int64(50<<20), cfg.BodyLimitBytes)
	assert.Zero(t, cfg.RateLimitQPS)
}

func TestWrap(t *testing.T) {
	t.Run("cors headers", func(t *testing.T) {
		h := Wrap(okHandler(), Config{AllowedOrigins: []string{"*"}})
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.NotEmpty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("body limit", func(t *testing.T) {
		h := Wrap(okHandler(), Config{AllowedOrigins: []string{"*"}, BodyLimitBytes: 8})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/gemini", strings.NewReader(strings.Repeat("x", 64))))
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})

	t.Run("rate limit", func(t *testing.T) {
		h := Wrap(okHandler(), Config{AllowedOrigins: []string{"*"}, RateLimitQPS: 1})
		codes := make([]int, 0, 3)
		for i := 0; i < 3; i++ {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
			codes = append(codes, rec.Code)
		}
		assert.Equal(t, http.StatusOK, codes[0])
		assert.Contains(t, codes[1:], http.StatusTooManyRequests)
	})

	t.Run("panic recovery", func(t *testing.T) {
		h := Wrap(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }), Config{AllowedOrigins: []string{"*"}})
		rec := httptest.NewRecorder()
		require.NotPanics(t, func() {
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		})
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.JSONEq(t, `{"error":"Internal server error"}`, rec.Body.String())
	})
}
