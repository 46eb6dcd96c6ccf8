package gemini

import (
	"context"
	"encoding/json"
	"strings"

	"recycle-right/internal/logger"
	"recycle-right/internal/metrics"
	"recycle-right/internal/tools"

	"github.com/pkg/errors"
)

// 消息类型
const (
	MsgText  = "text"
	MsgImage = "image"
)

// 面向用户的固定回复
const (
	NoMessagesReply      = "Error: No messages provided. Please try again."
	UnavailableToolReply = "The AI attempted to use a function that isn't available. Please try a different question."
	ConnectionReply      = "Sorry, I'm having trouble connecting to my AI services. Please try again later."
	UnexpectedReply      = "An unexpected error occurred. Please try again later."
)

// SystemInstruction 每次请求附带的系统指令
const SystemInstruction = "You will be talking about recycling in Singapore." +
	" If you are asked to identify items, there might be multiple items in the image, try to identify them all." +
	" If it looks like the item is made of different materials and those materials should be separated for recycling, give suggestions for those as well." +
	" If a location is shared without context, assume that it is asking for the nearest recycling bins." +
	" If there is a question asking for the nearest recycling bin, call the getNearestBin function." +
	" Make the responses easy to read, with short sentences and paragraphs, and listing in points if possible."

// ChatMsg 前端传入的单条消息
type ChatMsg struct {
	Type     string `json:"type"`
	Role     string `json:"role"`
	MimeType string `json:"mimeType,omitempty"`
	Content  string `json:"content"`
}

// ErrInvalidMessage 消息类型、角色或图片 mime 缺失
var ErrInvalidMessage = errors.New("invalid chat message")

// ToolResultMode 函数调用结果的处理方式
type ToolResultMode int

const (
	// ToolResultRelay 结果作为 functionResponse 回传模型，由模型组织回复
	ToolResultRelay ToolResultMode = iota
	// ToolResultDirect 结果直接以 {"locations": [...]} 文本作为回复
	ToolResultDirect
)

// ParseToolResultMode 解析 TOOL_RESULT_MODE；空值为 relay
func ParseToolResultMode(s string) (ToolResultMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "relay":
		return ToolResultRelay, nil
	case "direct":
		return ToolResultDirect, nil
	default:
		return ToolResultRelay, errors.Errorf("unknown tool result mode %q", s)
	}
}

func (m ToolResultMode) String() string {
	if m == ToolResultDirect {
		return "direct"
	}
	return "relay"
}

// ValidateMessages 校验消息；返回的错误包裹 ErrInvalidMessage
func ValidateMessages(msgs []ChatMsg) error {
	for i, m := range msgs {
		if _, err := toPart(m); err != nil {
			return errors.Wrapf(err, "message %d", i)
		}
		if m.Role != RoleUser && m.Role != RoleModel {
			return errors.Wrapf(ErrInvalidMessage, "message %d: unknown role %q", i, m.Role)
		}
	}
	return nil
}

func toPart(m ChatMsg) (Part, error) {
	switch m.Type {
	case MsgText:
		return Part{Text: m.Content}, nil
	case MsgImage:
		if m.MimeType == "" {
			return Part{}, errors.Wrap(ErrInvalidMessage, "no mime type found for image")
		}
		return Part{InlineData: &Blob{MimeType: m.MimeType, Data: m.Content}}, nil
	default:
		return Part{}, errors.Wrapf(ErrInvalidMessage, "unknown message type %q", m.Type)
	}
}

func toContents(msgs []ChatMsg) ([]Content, error) {
	out := make([]Content, 0, len(msgs))
	for _, m := range msgs {
		p, err := toPart(m)
		if err != nil {
			return nil, err
		}
		out = append(out, Content{Role: m.Role, Parts: []Part{p}})
	}
	return out, nil
}

// Service 对话与图片识别服务
type Service struct {
	client     *Client
	dispatcher *tools.Dispatcher
	mode       ToolResultMode
	pick       func(n int) int
	recogniser *recogniser
}

// Option 服务可选项
type Option func(*Service)

// WithToolResultMode 指定函数结果处理方式
func WithToolResultMode(m ToolResultMode) Option {
	return func(s *Service) { s.mode = m }
}

// WithRecognitionCache 为图片识别挂载结果缓存
func WithRecognitionCache(c RecognitionCache) Option {
	return func(s *Service) { s.recogniser.cache = c }
}

func withPicker(pick func(n int) int) Option {
	return func(s *Service) { s.pick = pick }
}

// NewService client 未配置 Key 时服务处于演示模式
func NewService(client *Client, dispatcher *tools.Dispatcher, opts ...Option) *Service {
	s := &Service{client: client, dispatcher: dispatcher, recogniser: &recogniser{}}
	for _, o := range opts {
		o(s)
	}
	return s
}

// DemoMode 是否处于演示模式
func (s *Service) DemoMode() bool { return !s.client.Enabled() }

func (s *Service) newRequest(contents []Content) *GenerateRequest {
	return &GenerateRequest{
		Contents:          contents,
		Tools:             []Tool{{FunctionDeclarations: tools.Declarations()}},
		SystemInstruction: &Content{Parts: []Part{{Text: SystemInstruction}}},
	}
}

// 文档注释：处理一次对话请求并返回下一条模型消息
// 约束：
// - 仅消息校验失败返回错误（包裹 ErrInvalidMessage）；
// - 提供方失败统一降级为 ConnectionReply，不向上返回错误；
// - 最后一条消息为本轮输入，其余作为历史。
func (s *Service) Chat(ctx context.Context, msgs []ChatMsg) (reply string, err error) {
	log := logger.FromContext(ctx)
	defer func() {
		if r := recover(); r != nil {
			log.Error("chat_panic", "panic", r)
			reply, err = UnexpectedReply, nil
		}
	}()

	if s.DemoMode() {
		metrics.DemoResponsesTotal.WithLabelValues("chat").Inc()
		return demoChatReply(msgs, s.pick), nil
	}
	if len(msgs) == 0 {
		return NoMessagesReply, nil
	}
	if err := ValidateMessages(msgs); err != nil {
		return "", err
	}
	contents, err := toContents(msgs)
	if err != nil {
		return "", err
	}
	log.Debug("chat_request", "messages", len(msgs))

	resp, err := s.client.Generate(ctx, "chat", s.newRequest(contents))
	if err != nil {
		return ConnectionReply, nil
	}

	calls := resp.FunctionCalls()
	if len(calls) == 0 {
		return textOr(resp.Text(), ConnectionReply), nil
	}

	call := calls[0]
	tool, ok := tools.Parse(call.Name)
	if !ok {
		log.Warn("chat_unknown_tool", "name", call.Name)
		return UnavailableToolReply, nil
	}
	result, err := s.dispatcher.CallJSON(tool, call.Args)
	if err != nil {
		log.Warn("chat_tool_error", "tool", tool.String(), "err", err)
		return textOr(resp.Text(), ConnectionReply), nil
	}
	log.Debug("chat_tool_call", "tool", tool.String(), "mode", s.mode.String())

	if s.mode == ToolResultDirect {
		b, err := json.Marshal(struct {
			Locations json.RawMessage `json:"locations"`
		}{Locations: json.RawMessage(result)})
		if err != nil {
			return UnexpectedReply, nil
		}
		return string(b), nil
	}

	modelTurn := resp.Candidates[0].Content
	if modelTurn.Role == "" {
		modelTurn.Role = RoleModel
	}
	followUp := append(contents,
		modelTurn,
		Content{Role: RoleFunction, Parts: []Part{{FunctionResponse: &FunctionResponse{
			Name:     tool.String(),
			Response: map[string]any{"content": result},
		}}}},
	)
	resp2, err := s.client.Generate(ctx, "chat", s.newRequest(followUp))
	if err != nil {
		return ConnectionReply, nil
	}
	return textOr(resp2.Text(), ConnectionReply), nil
}

func textOr(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
