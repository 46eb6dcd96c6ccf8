package api

import (
	"net/http"

	"recycle-right/internal/gemini"
	"recycle-right/internal/logger"

	"github.com/pkg/errors"
)

type chatRequest struct {
	Messages []gemini.ChatMsg `json:"messages"`
}

type chatResponse struct {
	NextMsg string `json:"nextMsg"`
}

// 文档注释：对话接口
// 约束：提供方失败以固定文本回复并返回 200；仅请求体或消息格式错误返回 400。
func (d Deps) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if status, msg := decodeBody(r, &req); status != 0 {
		writeError(w, status, msg)
		return
	}
	log := logger.FromContext(r.Context())
	log.Debug("chat_received", "messages", len(req.Messages))
	reply, err := d.Assistant.Chat(r.Context(), req.Messages)
	if err != nil {
		if errors.Is(err, gemini.ErrInvalidMessage) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Error("chat_error", "err", err)
		writeJSON(w, http.StatusOK, chatResponse{NextMsg: gemini.UnexpectedReply})
		return
	}
	writeJSON(w, http.StatusOK, chatResponse{NextMsg: reply})
}

type recogniseRequest struct {
	Image    string `json:"image"`
	MimeType string `json:"mimeType"`
}

// 文档注释：图片识别接口
// 约束：缺少图片返回 400；提供方失败返回 500 {error, message}；模型输出无法解析时仍为 200。
func (d Deps) handleRecognise(w http.ResponseWriter, r *http.Request) {
	var req recogniseRequest
	if status, msg := decodeBody(r, &req); status != 0 {
		writeError(w, status, msg)
		return
	}
	if req.Image == "" {
		writeError(w, http.StatusBadRequest, "No image provided")
		return
	}
	log := logger.FromContext(r.Context())
	log.Debug("recognise_received", "image_len", len(req.Image), "mime", req.MimeType)
	out, err := d.Assistant.Recognise(r.Context(), req.Image, req.MimeType)
	if err != nil {
		log.Error("recognise_error", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error":   "Failed to process image recognition request",
			"message": err.Error(),
		})
		return
	}
	writeRawJSON(w, http.StatusOK, out)
}
