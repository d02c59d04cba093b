package anthropic

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/BaSui01/routeflow/internal/tlsutil"
	"github.com/BaSui01/routeflow/llm"
	"github.com/BaSui01/routeflow/llm/providers"
	"go.uber.org/zap"
)

// ClaudeProvider 实现 Anthropic Claude 的 LLM Provider。
// Claude API 与 OpenAI 有显著差异：
// 1. 认证使用 x-api-key 请求头而非 Bearer Token
// 2. 请求格式不同（system 消息单独传递）
// 3. content 是数组形式，图片用 base64 source 块
// 4. 流式响应使用 SSE 格式但事件结构不同
type ClaudeProvider struct {
	cfg    providers.ClaudeConfig
	client *http.Client
	logger *zap.Logger
}

// NewClaudeProvider 创建 Claude Provider。
func NewClaudeProvider(cfg providers.ClaudeConfig, logger *zap.Logger) *ClaudeProvider {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = providers.DefaultTimeout
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.anthropic.com"
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ClaudeProvider{
		cfg:    cfg,
		client: tlsutil.SecureHTTPClient(timeout),
		logger: logger,
	}
}

func (p *ClaudeProvider) Name() string { return "anthropic" }

func (p *ClaudeProvider) HealthCheck(ctx context.Context) (*llm.HealthStatus, error) {
	start := time.Now()
	endpoint := fmt.Sprintf("%s/v1/models", strings.TrimRight(p.cfg.BaseURL, "/"))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	p.buildHeaders(httpReq)

	resp, err := p.client.Do(httpReq)
	latency := time.Since(start)
	if err != nil {
		return &llm.HealthStatus{Healthy: false, Latency: latency}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg := readClaudeErrMsg(resp.Body)
		return &llm.HealthStatus{Healthy: false, Latency: latency},
			fmt.Errorf("anthropic health check failed: status=%d msg=%s", resp.StatusCode, msg)
	}
	return &llm.HealthStatus{Healthy: true, Latency: latency}, nil
}

// Claude 的消息结构与 OpenAI 不同
type claudeMessage struct {
	Role    string          `json:"role"` // user 或 assistant
	Content []claudeContent `json:"content"`
}

type claudeContent struct {
	Type   string             `json:"type"` // text, image
	Text   string             `json:"text,omitempty"`
	Source *claudeImageSource `json:"source,omitempty"`
}

type claudeImageSource struct {
	Type      string `json:"type"` // base64
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type claudeRequest struct {
	Model       string          `json:"model"`
	Messages    []claudeMessage `json:"messages"`
	System      string          `json:"system,omitempty"` // system 消息单独传递
	MaxTokens   int             `json:"max_tokens"`
	Temperature float32         `json:"temperature,omitempty"`
	TopP        float32         `json:"top_p,omitempty"`
	StopSeq     []string        `json:"stop_sequences,omitempty"`
	Stream      bool            `json:"stream,omitempty"`
}

type claudeUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type claudeResponse struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Role       string          `json:"role"`
	Content    []claudeContent `json:"content"`
	Model      string          `json:"model"`
	StopReason string          `json:"stop_reason"`
	Usage      *claudeUsage    `json:"usage,omitempty"`
}

// 流式响应的事件类型
type claudeStreamEvent struct {
	Type    string          `json:"type"` // message_start, content_block_delta, message_delta, message_stop
	Index   int             `json:"index,omitempty"`
	Delta   *claudeDelta    `json:"delta,omitempty"`
	Message *claudeResponse `json:"message,omitempty"`
	Usage   *claudeUsage    `json:"usage,omitempty"`
}

type claudeDelta struct {
	Type       string `json:"type"` // text_delta
	Text       string `json:"text,omitempty"`
	StopReason string `json:"stop_reason,omitempty"`
}

type claudeErrorResp struct {
	Type  string `json:"type"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (p *ClaudeProvider) buildHeaders(req *http.Request) {
	// Claude 使用 x-api-key 认证
	req.Header.Set("x-api-key", p.cfg.APIKey)
	req.Header.Set("anthropic-version", "2023-06-01") // API 版本
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
}

// convertToClaudeMessages 将统一格式转换为 Claude 格式。
// Claude 的特殊要求：
// 1. system 消息需要单独提取到 system 字段
// 2. content 是数组形式，图片转成 base64 source 块
func convertToClaudeMessages(msgs []llm.Message) (string, []claudeMessage) {
	var system string
	var claudeMsgs []claudeMessage

	for _, m := range msgs {
		if m.Role == llm.RoleSystem {
			system = m.TextContent()
			continue
		}

		cm := claudeMessage{Role: string(m.Role)}

		if m.IsMultipart() {
			for _, part := range m.Parts {
				switch part.Type {
				case llm.PartText:
					cm.Content = append(cm.Content, claudeContent{Type: "text", Text: part.Text})
				case llm.PartImage:
					mediaType := part.MediaType
					if mediaType == "" {
						mediaType = "image/png"
					}
					cm.Content = append(cm.Content, claudeContent{
						Type: "image",
						Source: &claudeImageSource{
							Type:      "base64",
							MediaType: mediaType,
							Data:      part.Data,
						},
					})
				}
			}
		} else if m.Content != "" {
			cm.Content = append(cm.Content, claudeContent{Type: "text", Text: m.Content})
		}

		if len(cm.Content) > 0 {
			claudeMsgs = append(claudeMsgs, cm)
		}
	}

	return system, claudeMsgs
}

func (p *ClaudeProvider) buildBody(req *llm.ChatRequest, stream bool) claudeRequest {
	msgs := llm.NormalizeMessages(req.Messages, llm.NormalizeOptions{})
	system, messages := convertToClaudeMessages(msgs)
	return claudeRequest{
		Model:       chooseClaudeModel(req, p.cfg.Model),
		Messages:    messages,
		System:      system,
		MaxTokens:   chooseMaxTokens(req),
		Temperature: req.Temperature,
		TopP:        req.TopP,
		StopSeq:     req.Stop,
		Stream:      stream,
	}
}

func (p *ClaudeProvider) Completion(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	payload, err := json.Marshal(p.buildBody(req, false))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	endpoint := fmt.Sprintf("%s/v1/messages", strings.TrimRight(p.cfg.BaseURL, "/"))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	p.buildHeaders(httpReq)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, providers.UpstreamError(err, p.Name())
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg := readClaudeErrMsg(resp.Body)
		return nil, mapClaudeError(resp.StatusCode, msg, p.Name())
	}

	var claudeResp claudeResponse
	if err := json.NewDecoder(resp.Body).Decode(&claudeResp); err != nil {
		return nil, providers.UpstreamError(err, p.Name())
	}

	return toClaudeChatResponse(claudeResp, p.Name()), nil
}

func (p *ClaudeProvider) Stream(ctx context.Context, req *llm.ChatRequest) (<-chan llm.StreamChunk, error) {
	payload, err := json.Marshal(p.buildBody(req, true))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	endpoint := fmt.Sprintf("%s/v1/messages", strings.TrimRight(p.cfg.BaseURL, "/"))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	p.buildHeaders(httpReq)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, providers.UpstreamError(err, p.Name())
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		msg := readClaudeErrMsg(resp.Body)
		return nil, mapClaudeError(resp.StatusCode, msg, p.Name())
	}

	ch := make(chan llm.StreamChunk)
	go func() {
		defer resp.Body.Close()
		defer close(ch)
		reader := bufio.NewReader(resp.Body)

		var currentID string
		var currentModel string

		emit := func(chunk llm.StreamChunk) bool {
			select {
			case <-ctx.Done():
				return false
			case ch <- chunk:
				return true
			}
		}

		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				if err != io.EOF {
					emit(llm.StreamChunk{Err: providers.UpstreamError(err, p.Name())})
				}
				return
			}

			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}

			// Claude SSE 格式：event: <type>\ndata: <json>
			if strings.HasPrefix(line, "event:") {
				continue
			}
			if !strings.HasPrefix(line, "data:") {
				continue
			}

			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if data == "[DONE]" {
				return
			}

			var event claudeStreamEvent
			if err := json.Unmarshal([]byte(data), &event); err != nil {
				emit(llm.StreamChunk{Err: providers.UpstreamError(err, p.Name())})
				return
			}

			switch event.Type {
			case "message_start":
				if event.Message != nil {
					currentID = event.Message.ID
					currentModel = event.Message.Model
				}

			case "content_block_delta":
				if event.Delta != nil && event.Delta.Type == "text_delta" {
					ok := emit(llm.StreamChunk{
						ID:       currentID,
						Provider: p.Name(),
						Model:    currentModel,
						Index:    event.Index,
						Delta: llm.Message{
							Role:    llm.RoleAssistant,
							Content: event.Delta.Text,
						},
					})
					if !ok {
						return
					}
				}

			case "message_delta":
				if event.Delta != nil && event.Delta.StopReason != "" {
					chunk := llm.StreamChunk{
						ID:           currentID,
						Provider:     p.Name(),
						Model:        currentModel,
						FinishReason: event.Delta.StopReason,
					}
					if event.Usage != nil {
						chunk.Usage = &llm.ChatUsage{
							PromptTokens:     event.Usage.InputTokens,
							CompletionTokens: event.Usage.OutputTokens,
							TotalTokens:      event.Usage.InputTokens + event.Usage.OutputTokens,
						}
					}
					if !emit(chunk) {
						return
					}
				}

			case "message_stop":
				return
			}
		}
	}()

	return ch, nil
}

func toClaudeChatResponse(cr claudeResponse, provider string) *llm.ChatResponse {
	msg := llm.Message{Role: llm.RoleAssistant}
	for _, content := range cr.Content {
		if content.Type == "text" {
			msg.Content += content.Text
		}
	}

	resp := &llm.ChatResponse{
		ID:       cr.ID,
		Provider: provider,
		Model:    cr.Model,
		Choices: []llm.ChatChoice{{
			Index:        0,
			FinishReason: cr.StopReason,
			Message:      msg,
		}},
	}

	if cr.Usage != nil {
		resp.Usage = llm.ChatUsage{
			PromptTokens:     cr.Usage.InputTokens,
			CompletionTokens: cr.Usage.OutputTokens,
			TotalTokens:      cr.Usage.InputTokens + cr.Usage.OutputTokens,
		}
	}

	return resp
}

func readClaudeErrMsg(body io.Reader) string {
	data, _ := io.ReadAll(body)
	var errResp claudeErrorResp
	if err := json.Unmarshal(data, &errResp); err == nil && errResp.Error.Message != "" {
		return fmt.Sprintf("%s (type: %s)", errResp.Error.Message, errResp.Error.Type)
	}
	return string(data)
}

func mapClaudeError(status int, msg string, provider string) *llm.Error {
	// 529 是 Claude 特有的过载状态码，按限流处理以便切换 Provider
	if status == 529 {
		return &llm.Error{Code: llm.ErrRateLimited, Message: msg, HTTPStatus: status, Retryable: true, Provider: provider}
	}
	return providers.MapHTTPError(status, msg, provider)
}

func chooseClaudeModel(req *llm.ChatRequest, defaultModel string) string {
	if req != nil && req.Model != "" {
		return req.Model
	}
	if defaultModel != "" {
		return defaultModel
	}
	return "claude-sonnet-4-5"
}

func chooseMaxTokens(req *llm.ChatRequest) int {
	if req != nil && req.MaxTokens > 0 {
		return req.MaxTokens
	}
	// Claude 要求必须提供 max_tokens
	return 4096
}
