package gemini

import (
	"encoding/json"
	"fmt"
	"math/rand"
)

// 未配置 API Key 时的固定回复
var demoResponses = []string{
	"This is a demo response because no Gemini API key is configured. Please add a valid API key to enable real AI responses.",
	"I'm unable to provide a real response without a Gemini API key. You can get a key from Google AI Studio.",
	"To use the real AI capabilities, please configure a GEMINI_API_KEY in your backend environment variables.",
	"This is a simulated response. For production use, please add your Gemini API key to the backend.",
	"For testing purposes only: This would normally be answered by Google's Gemini AI if an API key was configured.",
}

const demoPreviewRunes = 50

// 文档注释：演示模式对话回复
// 约束：仅回显最后一条用户文本消息的前 50 个字符；pick 返回 [0,n) 内的下标。
func demoChatReply(msgs []ChatMsg, pick func(n int) int) string {
	userMessage := ""
	if len(msgs) > 0 {
		last := msgs[len(msgs)-1]
		if last.Type == MsgText && last.Role == RoleUser {
			userMessage = last.Content
		}
	}
	preview := []rune(userMessage)
	suffix := ""
	if len(preview) > demoPreviewRunes {
		preview = preview[:demoPreviewRunes]
		suffix = "..."
	}
	if pick == nil {
		pick = rand.Intn
	}
	return fmt.Sprintf("[DEMO MODE] I received your message: \"%s%s\". %s", string(preview), suffix, demoResponses[pick(len(demoResponses))])
}

func demoRecognition() json.RawMessage {
	b, _ := json.Marshal(struct {
		Name          string `json:"name"`
		CanBeRecycled bool   `json:"canBeRecycled"`
		Note          string `json:"note"`
	}{
		Name:          "Demo Item",
		CanBeRecycled: true,
		Note:          "This is a demo response because no Gemini API key is configured. Please add a valid API key.",
	})
	return b
}
