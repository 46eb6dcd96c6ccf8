package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/pkg/errors"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.Header().Set("cache-control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeRawJSON(w http.ResponseWriter, status int, b []byte) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.Header().Set("cache-control", "no-store")
	w.WriteHeader(status)
	_, _ = w.Write(b)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decodeBody 解码 JSON 请求体；返回值为需要回写的状态码与错误文本
func decodeBody(r *http.Request, v any) (int, string) {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil {
		return 0, ""
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge, "Request body too large"
	}
	if errors.Is(err, io.EOF) {
		return http.StatusBadRequest, "Request body is empty"
	}
	return http.StatusBadRequest, "Invalid JSON body"
}
