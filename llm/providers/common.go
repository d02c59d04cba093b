package providers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/BaSui01/routeflow/llm"
)

// MapHTTPError 将 HTTP 状态码映射为带有正确失败分类的 llm.Error。
// 这是所有 Provider 共用的错误映射函数。
func MapHTTPError(status int, msg string, provider string) *llm.Error {
	switch status {
	case http.StatusUnauthorized:
		return &llm.Error{
			Code:       llm.ErrUnauthorized,
			Message:    msg,
			HTTPStatus: status,
			Provider:   provider,
		}
	case http.StatusForbidden:
		return &llm.Error{
			Code:       llm.ErrForbidden,
			Message:    msg,
			HTTPStatus: status,
			Provider:   provider,
		}
	case http.StatusTooManyRequests:
		return &llm.Error{
			Code:       llm.ErrRateLimited,
			Message:    msg,
			HTTPStatus: status,
			Retryable:  true,
			Provider:   provider,
		}
	case http.StatusPaymentRequired:
		// DeepSeek 等在余额耗尽时返回 402
		return &llm.Error{
			Code:       llm.ErrQuotaExceeded,
			Message:    msg,
			HTTPStatus: status,
			Provider:   provider,
		}
	case http.StatusBadRequest:
		msgLower := strings.ToLower(msg)
		// 配额/余额耗尽经常伪装成 400
		if strings.Contains(msgLower, "quota") ||
			strings.Contains(msgLower, "credit") ||
			strings.Contains(msgLower, "billing") ||
			strings.Contains(msgLower, "insufficient balance") {
			return &llm.Error{
				Code:       llm.ErrQuotaExceeded,
				Message:    msg,
				HTTPStatus: status,
				Provider:   provider,
			}
		}
		if strings.Contains(msgLower, "image") &&
			(strings.Contains(msgLower, "not support") || strings.Contains(msgLower, "unsupported")) {
			return &llm.Error{
				Code:       llm.ErrCapabilityMismatch,
				Message:    msg,
				HTTPStatus: status,
				Provider:   provider,
			}
		}
		return &llm.Error{
			Code:       llm.ErrInvalidRequest,
			Message:    msg,
			HTTPStatus: status,
			Provider:   provider,
		}
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return &llm.Error{
			Code:       llm.ErrUpstreamTimeout,
			Message:    msg,
			HTTPStatus: status,
			Retryable:  true,
			Provider:   provider,
		}
	case http.StatusServiceUnavailable, http.StatusBadGateway:
		return &llm.Error{
			Code:       llm.ErrUpstreamError,
			Message:    msg,
			HTTPStatus: status,
			Retryable:  true,
			Provider:   provider,
		}
	default:
		return &llm.Error{
			Code:       llm.ErrUpstreamError,
			Message:    msg,
			HTTPStatus: status,
			Retryable:  status >= 500,
			Provider:   provider,
		}
	}
}

// ReadErrorMessage 读取响应体中的错误消息。
// 尝试解析 JSON 错误响应，失败则回退到原始文本。
func ReadErrorMessage(body io.Reader) string {
	data, err := io.ReadAll(body)
	if err != nil {
		return "failed to read error response"
	}

	var errResp struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
			Code    any    `json:"code"`
		} `json:"error"`
	}

	if err := json.Unmarshal(data, &errResp); err == nil && errResp.Error.Message != "" {
		if errResp.Error.Type != "" {
			return fmt.Sprintf("%s (type: %s)", errResp.Error.Message, errResp.Error.Type)
		}
		return errResp.Error.Message
	}

	return string(data)
}

// UpstreamError 构造网络/解析层错误，统一归为可重试的上游错误。
func UpstreamError(err error, provider string) *llm.Error {
	return &llm.Error{
		Code:       llm.ErrUpstreamError,
		Message:    err.Error(),
		HTTPStatus: http.StatusBadGateway,
		Retryable:  true,
		Provider:   provider,
	}
}

// OpenAI 兼容 API 通用类型。
// DeepSeek、Qwen、GLM、Kimi、Grok、Mistral 等兼容 OpenAI 的提供者共用这些定义。

// OpenAICompatContentPart 表示 OpenAI 兼容的多模态内容片段。
type OpenAICompatContentPart struct {
	Type     string                `json:"type"` // text | image_url
	Text     string                `json:"text,omitempty"`
	ImageURL *OpenAICompatImageURL `json:"image_url,omitempty"`
}

// OpenAICompatImageURL 承载 data URL 形式的内联图片。
type OpenAICompatImageURL struct {
	URL string `json:"url"`
}

// OpenAICompatMessage 表示 OpenAI 兼容的请求消息。
// Content 是 string（纯文本）或 []OpenAICompatContentPart（多模态）。
type OpenAICompatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// OpenAICompatRespMessage 表示 OpenAI 兼容的响应消息，content 恒为字符串。
type OpenAICompatRespMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// OpenAICompatRequest 表示 OpenAI 兼容的聊天完成请求。
type OpenAICompatRequest struct {
	Model       string                `json:"model"`
	Messages    []OpenAICompatMessage `json:"messages"`
	MaxTokens   int                   `json:"max_tokens,omitempty"`
	Temperature float32               `json:"temperature,omitempty"`
	TopP        float32               `json:"top_p,omitempty"`
	Stop        []string              `json:"stop,omitempty"`
	Stream      bool                  `json:"stream,omitempty"`
}

// OpenAICompatChoice 表示 OpenAI 兼容响应中的单个选项。
type OpenAICompatChoice struct {
	Index        int                      `json:"index"`
	FinishReason string                   `json:"finish_reason"`
	Message      OpenAICompatRespMessage  `json:"message"`
	Delta        *OpenAICompatRespMessage `json:"delta,omitempty"`
}

// OpenAICompatUsage 表示 OpenAI 兼容响应中的 token 用量。
type OpenAICompatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// OpenAICompatResponse 表示 OpenAI 兼容的聊天完成响应。
type OpenAICompatResponse struct {
	ID      string               `json:"id"`
	Model   string               `json:"model"`
	Choices []OpenAICompatChoice `json:"choices"`
	Usage   *OpenAICompatUsage   `json:"usage,omitempty"`
	Created int64                `json:"created,omitempty"`
}

// ConvertMessagesToOpenAI 将统一消息转换为 OpenAI 兼容格式。
// 多模态消息的图片片段转为 base64 data URL；输入应已经过
// llm.NormalizeMessages，这里只做序列化。
func ConvertMessagesToOpenAI(msgs []llm.Message) []OpenAICompatMessage {
	out := make([]OpenAICompatMessage, 0, len(msgs))
	for _, m := range msgs {
		if !m.IsMultipart() {
			out = append(out, OpenAICompatMessage{Role: string(m.Role), Content: m.Content})
			continue
		}
		parts := make([]OpenAICompatContentPart, 0, len(m.Parts))
		for _, p := range m.Parts {
			switch p.Type {
			case llm.PartText:
				parts = append(parts, OpenAICompatContentPart{Type: "text", Text: p.Text})
			case llm.PartImage:
				parts = append(parts, OpenAICompatContentPart{
					Type:     "image_url",
					ImageURL: &OpenAICompatImageURL{URL: EncodeDataURL(p)},
				})
			}
		}
		out = append(out, OpenAICompatMessage{Role: string(m.Role), Content: parts})
	}
	return out
}

// EncodeDataURL 将图片片段编码为 data URL。
func EncodeDataURL(p llm.Part) string {
	mediaType := p.MediaType
	if mediaType == "" {
		mediaType = "image/png"
	}
	return fmt.Sprintf("data:%s;base64,%s", mediaType, p.Data)
}

// ToLLMChatResponse 将 OpenAI 兼容的响应转换为 llm.ChatResponse。
func ToLLMChatResponse(oa OpenAICompatResponse, provider string) *llm.ChatResponse {
	choices := make([]llm.ChatChoice, 0, len(oa.Choices))
	for _, c := range oa.Choices {
		choices = append(choices, llm.ChatChoice{
			Index:        c.Index,
			FinishReason: c.FinishReason,
			Message: llm.Message{
				Role:    llm.RoleAssistant,
				Content: c.Message.Content,
			},
		})
	}
	resp := &llm.ChatResponse{
		ID:       oa.ID,
		Provider: provider,
		Model:    oa.Model,
		Choices:  choices,
	}
	if oa.Usage != nil {
		resp.Usage = llm.ChatUsage{
			PromptTokens:     oa.Usage.PromptTokens,
			CompletionTokens: oa.Usage.CompletionTokens,
			TotalTokens:      oa.Usage.TotalTokens,
		}
	}
	return resp
}

// ChooseModel 根据请求和默认值选择模型。
func ChooseModel(req *llm.ChatRequest, defaultModel, fallbackModel string) string {
	if req != nil && req.Model != "" {
		return req.Model
	}
	if defaultModel != "" {
		return defaultModel
	}
	return fallbackModel
}

// BearerTokenHeaders 是标准的 Bearer token 认证 header 构建函数。
func BearerTokenHeaders(r *http.Request, apiKey string) {
	r.Header.Set("Authorization", "Bearer "+apiKey)
	r.Header.Set("Content-Type", "application/json")
}
