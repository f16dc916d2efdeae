package entity

// ChatRole 对话角色
type ChatRole string

const (
	ChatRoleSystem    ChatRole = "system"
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

// ChatMessage 客户端提交的一条对话消息
type ChatMessage struct {
	ID      string            `json:"id,omitempty"`
	Role    ChatRole          `json:"role"`
	Content string            `json:"content,omitempty"`
	Parts   []ChatMessagePart `json:"parts,omitempty"`
}

// ChatMessagePart 多段消息中的一段，只关心 text 类型
type ChatMessagePart struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// Text 拼出消息纯文本：优先 parts 中的 text 段，其次 content
func (m ChatMessage) Text() string {
	var out string
	for _, p := range m.Parts {
		if p.Type == "text" && p.Text != "" {
			if out != "" {
				out += "\n"
			}
			out += p.Text
		}
	}
	if out != "" {
		return out
	}
	return m.Content
}
