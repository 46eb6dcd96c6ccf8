// 包 gemini：生成式模型 REST 客户端、对话管线与图片识别
package gemini

import (
	"encoding/json"
	"fmt"
	"strings"

	"recycle-right/internal/tools"
)

// 对话角色
const (
	RoleUser     = "user"
	RoleModel    = "model"
	RoleFunction = "function"
)

// Blob 内联二进制数据（base64 文本）
type Blob struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

// FunctionCall 模型请求执行的函数
type FunctionCall struct {
	Name string          `json:"name"`
	Args json.RawMessage `json:"args,omitempty"`
}

// FunctionResponse 回传给模型的函数结果
type FunctionResponse struct {
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

// Part 消息片段；同一时刻仅有一个字段非空
type Part struct {
	Text             string            `json:"text,omitempty"`
	InlineData       *Blob             `json:"inlineData,omitempty"`
	FunctionCall     *FunctionCall     `json:"functionCall,omitempty"`
	FunctionResponse *FunctionResponse `json:"functionResponse,omitempty"`
}

// Content 一轮对话
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// Tool 请求中附带的工具集合
type Tool struct {
	FunctionDeclarations []tools.Declaration `json:"functionDeclarations,omitempty"`
}

type GenerationConfig struct {
	Temperature      *float64 `json:"temperature,omitempty"`
	ResponseMimeType string   `json:"responseMimeType,omitempty"`
}

// GenerateRequest generateContent 请求体
type GenerateRequest struct {
	Contents          []Content         `json:"contents"`
	Tools             []Tool            `json:"tools,omitempty"`
	SystemInstruction *Content          `json:"systemInstruction,omitempty"`
	GenerationConfig  *GenerationConfig `json:"generationConfig,omitempty"`
}

type Candidate struct {
	Content      Content `json:"content"`
	FinishReason string  `json:"finishReason,omitempty"`
}

type PromptFeedback struct {
	BlockReason string `json:"blockReason,omitempty"`
}

// GenerateResponse generateContent 响应体（仅解析用到的字段）
type GenerateResponse struct {
	Candidates     []Candidate     `json:"candidates"`
	PromptFeedback *PromptFeedback `json:"promptFeedback,omitempty"`
}

// Text 拼接首个候选的全部文本片段
func (r *GenerateResponse) Text() string {
	if r == nil || len(r.Candidates) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, p := range r.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String()
}

// FunctionCalls 首个候选中的函数调用，按出现顺序
func (r *GenerateResponse) FunctionCalls() []FunctionCall {
	if r == nil || len(r.Candidates) == 0 {
		return nil
	}
	var out []FunctionCall
	for _, p := range r.Candidates[0].Content.Parts {
		if p.FunctionCall != nil {
			out = append(out, *p.FunctionCall)
		}
	}
	return out
}

// APIError 非 2xx 响应
type APIError struct {
	StatusCode int    `json:"-"`
	Code       int    `json:"code"`
	Message    string `json:"message"`
	Status     string `json:"status"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("gemini: http %d", e.StatusCode)
	}
	return fmt.Sprintf("gemini: http %d %s: %s", e.StatusCode, e.Status, e.Message)
}

// Retryable 429 与 5xx 可重试
func (e *APIError) Retryable() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}
