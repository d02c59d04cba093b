package llm

import "strings"

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// PartType 标识多模态内容片段的类型。
type PartType string

const (
	PartText  PartType = "text"
	PartImage PartType = "image"
)

// Part 是多模态消息的单个内容片段。
// 图片片段携带 base64 数据与媒体类型，从不携带需要 Provider 拉取的 URL。
type Part struct {
	Type      PartType `json:"type"`
	Text      string   `json:"text,omitempty"`
	Data      string   `json:"data,omitempty"`       // base64 编码的图片数据
	MediaType string   `json:"media_type,omitempty"` // 例如 image/png
}

// TextPart 构造文本片段。
func TextPart(text string) Part { return Part{Type: PartText, Text: text} }

// ImagePart 构造图片片段。
func ImagePart(data, mediaType string) Part {
	return Part{Type: PartImage, Data: data, MediaType: mediaType}
}

// Message 表示一轮对话消息。
// 内容是二选一的和类型：Content 为纯文本，Parts 为多模态片段序列。
// 两者同时非空时以 Parts 为准。
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content,omitempty"`
	Parts   []Part `json:"parts,omitempty"`
}

// NewSystemMessage 创建 system 消息。
func NewSystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// NewUserMessage 创建纯文本 user 消息。
func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// NewAssistantMessage 创建 assistant 消息。
func NewAssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// NewUserMultipart 创建多模态 user 消息。
func NewUserMultipart(parts ...Part) Message {
	return Message{Role: RoleUser, Parts: parts}
}

// IsMultipart 返回消息是否为多模态形态。
func (m Message) IsMultipart() bool { return len(m.Parts) > 0 }

// TextContent 返回消息的全部文本内容，多模态时拼接所有文本片段。
func (m Message) TextContent() string {
	if !m.IsMultipart() {
		return m.Content
	}
	var b strings.Builder
	for _, p := range m.Parts {
		if p.Type == PartText {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

// HasImages 返回消息是否携带图片片段。
func (m Message) HasImages() bool {
	for _, p := range m.Parts {
		if p.Type == PartImage {
			return true
		}
	}
	return false
}

// HasImages 返回消息序列中是否存在图片片段。
func HasImages(msgs []Message) bool {
	for _, m := range msgs {
		if m.HasImages() {
			return true
		}
	}
	return false
}

// NormalizeOptions 控制发送前的统一消息预处理。
// 各 Provider 适配器只做最终序列化，形态修正统一在这里完成。
type NormalizeOptions struct {
	// DropImages 丢弃图片片段（Provider 不支持多模态输入时）。
	DropImages bool
	// DropAssistantTurns 过滤 assistant 消息（Provider 协议不接受输入中的 assistant 轮次时）。
	DropAssistantTurns bool
}

// NormalizeMessages 对消息序列做发送前预处理：
//   - 空或纯空白内容强制为单个空格，多数 Provider API 拒绝空 content
//   - 按选项丢弃图片片段、过滤 assistant 轮次
//   - 丢弃图片后退化为空的多模态消息同样补为单个空格
func NormalizeMessages(msgs []Message, opts NormalizeOptions) []Message {
	out := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		if opts.DropAssistantTurns && m.Role == RoleAssistant {
			continue
		}
		if m.IsMultipart() {
			parts := make([]Part, 0, len(m.Parts))
			for _, p := range m.Parts {
				if p.Type == PartImage && opts.DropImages {
					continue
				}
				if p.Type == PartText && strings.TrimSpace(p.Text) == "" {
					continue
				}
				parts = append(parts, p)
			}
			if len(parts) == 0 {
				out = append(out, Message{Role: m.Role, Content: " "})
				continue
			}
			out = append(out, Message{Role: m.Role, Parts: parts})
			continue
		}
		content := m.Content
		if strings.TrimSpace(content) == "" {
			content = " "
		}
		out = append(out, Message{Role: m.Role, Content: content})
	}
	return out
}

// SpliceContextBlocks 将调用方准备好的上下文块原样拼入 system 消息。
// 已存在 system 消息时追加到其后；否则在头部插入一条新的 system 消息。
// 块结构不做任何解析。
func SpliceContextBlocks(msgs []Message, blocks []string) []Message {
	if len(blocks) == 0 {
		return msgs
	}
	joined := strings.Join(blocks, "\n\n")
	out := make([]Message, 0, len(msgs)+1)
	spliced := false
	for _, m := range msgs {
		if !spliced && m.Role == RoleSystem && !m.IsMultipart() {
			out = append(out, Message{Role: RoleSystem, Content: m.Content + "\n\n" + joined})
			spliced = true
			continue
		}
		out = append(out, m)
	}
	if !spliced {
		out = append([]Message{NewSystemMessage(joined)}, out...)
	}
	return out
}
