package gemini

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"regexp"
	"strings"

	"recycle-right/internal/logger"
	"recycle-right/internal/metrics"

	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"
)

// DefaultImageMimeType 未指定 mimeType 时使用
const DefaultImageMimeType = "image/jpeg"

const recognitionPrompt = "The following is a base64 encoded image of one or more items." +
	" Return in JSON format two pieces of information." +
	" 1) The generic name(s) of the item(s)." +
	" 2) Whether this item can be recycled in Singapore, either true or false." +
	` The following is an example: {"name":"Empty bottle","canBeRecycled":true}.` +
	" IMPORTANT: Return ONLY valid JSON without any markdown formatting, code blocks, or backticks."

const parseFailureMessage = "Failed to parse response from image recognition"

var fencedBlock = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)```")

type recogniser struct {
	group singleflight.Group
	cache RecognitionCache
}

// 文档注释：提取模型回复中的 JSON 文本
// 约束：含 ``` 代码块时取第一个块的内容，否则原样返回。
func extractJSON(reply string) string {
	if !strings.Contains(reply, "```") {
		return reply
	}
	if m := fencedBlock.FindStringSubmatch(reply); m != nil && strings.TrimSpace(m[1]) != "" {
		return strings.TrimSpace(m[1])
	}
	return reply
}

// parseRecognition 任意合法 JSON（含多物品数组）视为成功；失败时返回带原始回复的错误结构
func parseRecognition(reply string) (json.RawMessage, bool) {
	body := extractJSON(reply)
	if json.Valid([]byte(body)) {
		var buf bytes.Buffer
		if err := json.Compact(&buf, []byte(body)); err == nil {
			return buf.Bytes(), true
		}
	}
	b, _ := json.Marshal(struct {
		Error       string `json:"error"`
		RawResponse string `json:"rawResponse"`
	}{Error: parseFailureMessage, RawResponse: reply})
	return b, false
}

// ImageKey 图片缓存键：base64 文本的 sha256
func ImageKey(imageBase64, mimeType string) string {
	h := sha256.New()
	h.Write([]byte(mimeType))
	h.Write([]byte{0})
	h.Write([]byte(imageBase64))
	return hex.EncodeToString(h.Sum(nil))
}

// 文档注释：识别图片中的物品及其可回收性
// 参数：imageBase64 为 base64 图片内容；mimeType 为空时按 image/jpeg。
// 返回：模型给出的 JSON 对象；模型输出无法解析时返回 {error, rawResponse}，不视为错误。
// 约束：相同图片的并发请求合并为一次调用；仅解析成功的结果写入缓存；提供方失败返回错误。
func (s *Service) Recognise(ctx context.Context, imageBase64, mimeType string) (json.RawMessage, error) {
	if mimeType == "" {
		mimeType = DefaultImageMimeType
	}
	log := logger.FromContext(ctx)
	if s.DemoMode() {
		metrics.DemoResponsesTotal.WithLabelValues("recognise").Inc()
		return demoRecognition(), nil
	}
	if imageBase64 == "" {
		return nil, errors.New("empty image")
	}

	key := ImageKey(imageBase64, mimeType)
	rc := s.recogniser
	if rc.cache != nil {
		if b, ok := rc.cache.Get(ctx, key); ok {
			metrics.CacheHitsTotal.Inc()
			log.Debug("recognise_cache_hit", "key", key[:12])
			return b, nil
		}
		metrics.CacheMissesTotal.Inc()
	}

	v, err, shared := rc.group.Do(key, func() (any, error) {
		req := &GenerateRequest{
			Contents: []Content{{Role: RoleUser, Parts: []Part{
				{Text: recognitionPrompt},
				{InlineData: &Blob{MimeType: mimeType, Data: imageBase64}},
			}}},
			SystemInstruction: &Content{Parts: []Part{{Text: SystemInstruction}}},
		}
		// 合并调用不随单个请求取消
		callCtx := context.WithoutCancel(ctx)
		resp, err := s.client.Generate(callCtx, "recognise", req)
		if err != nil {
			return nil, err
		}
		out, ok := parseRecognition(resp.Text())
		if !ok {
			log.Warn("recognise_parse_failed", "reply_len", len(resp.Text()))
			return out, nil
		}
		if rc.cache != nil {
			rc.cache.Set(callCtx, key, out)
		}
		return out, nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "recognise image")
	}
	log.Debug("recognise_done", "image_len", len(imageBase64), "mime", mimeType, "shared", shared)
	return v.(json.RawMessage), nil
}
