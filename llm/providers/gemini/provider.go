package gemini

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

// GeminiProvider 实现 Google Gemini 的 LLM Provider。
// Gemini API 特点：
// 1. 使用 x-goog-api-key 请求头认证
// 2. 多模态支持，图片用 inlineData 传 base64
// 3. assistant 角色叫 "model"，system 消息走 systemInstruction 字段
// 4. 流式接口是 streamGenerateContent，逐行输出 JSON 对象
type GeminiProvider struct {
	cfg    providers.GeminiConfig
	client *http.Client
	logger *zap.Logger
}

// NewGeminiProvider 创建 Gemini Provider。
func NewGeminiProvider(cfg providers.GeminiConfig, logger *zap.Logger) *GeminiProvider {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = providers.DefaultTimeout
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://generativelanguage.googleapis.com"
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &GeminiProvider{
		cfg:    cfg,
		client: tlsutil.SecureHTTPClient(timeout),
		logger: logger,
	}
}

func (p *GeminiProvider) Name() string { return "gemini" }

func (p *GeminiProvider) HealthCheck(ctx context.Context) (*llm.HealthStatus, error) {
	start := time.Now()
	endpoint := fmt.Sprintf("%s/v1beta/models", strings.TrimRight(p.cfg.BaseURL, "/"))
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
		msg := providers.ReadErrorMessage(resp.Body)
		return &llm.HealthStatus{Healthy: false, Latency: latency},
			fmt.Errorf("gemini health check failed: status=%d msg=%s", resp.StatusCode, msg)
	}
	return &llm.HealthStatus{Healthy: true, Latency: latency}, nil
}

// Gemini 消息结构
type geminiContent struct {
	Role  string       `json:"role,omitempty"` // user, model
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"` // base64 encoded
}

type geminiGenerationConfig struct {
	Temperature     float32  `json:"temperature,omitempty"`
	TopP            float32  `json:"topP,omitempty"`
	MaxOutputTokens int      `json:"maxOutputTokens,omitempty"`
	StopSequences   []string `json:"stopSequences,omitempty"`
}

type geminiRequest struct {
	Contents          []geminiContent         `json:"contents"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason,omitempty"`
	Index        int           `json:"index"`
}

type geminiUsageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

type geminiResponse struct {
	Candidates    []geminiCandidate    `json:"candidates"`
	UsageMetadata *geminiUsageMetadata `json:"usageMetadata,omitempty"`
	ModelVersion  string               `json:"modelVersion,omitempty"`
	ResponseID    string               `json:"responseId,omitempty"`
}

func (p *GeminiProvider) buildHeaders(req *http.Request) {
	// Gemini 使用 x-goog-api-key 认证
	req.Header.Set("x-goog-api-key", p.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
}

// convertToGeminiContents 将统一格式转换为 Gemini 格式。
// system 消息提取到 systemInstruction，assistant 角色改名 model，
// 图片片段转成 inlineData。
func convertToGeminiContents(msgs []llm.Message) (*geminiContent, []geminiContent) {
	var systemInstruction *geminiContent
	var contents []geminiContent

	for _, m := range msgs {
		if m.Role == llm.RoleSystem {
			systemInstruction = &geminiContent{
				Parts: []geminiPart{{Text: m.TextContent()}},
			}
			continue
		}

		role := string(m.Role)
		if role == "assistant" {
			role = "model"
		}

		content := geminiContent{Role: role}

		if m.IsMultipart() {
			for _, part := range m.Parts {
				switch part.Type {
				case llm.PartText:
					content.Parts = append(content.Parts, geminiPart{Text: part.Text})
				case llm.PartImage:
					mimeType := part.MediaType
					if mimeType == "" {
						mimeType = "image/png"
					}
					content.Parts = append(content.Parts, geminiPart{
						InlineData: &geminiInlineData{
							MimeType: mimeType,
							Data:     part.Data,
						},
					})
				}
			}
		} else if m.Content != "" {
			content.Parts = append(content.Parts, geminiPart{Text: m.Content})
		}

		if len(content.Parts) > 0 {
			contents = append(contents, content)
		}
	}

	return systemInstruction, contents
}

func (p *GeminiProvider) buildBody(req *llm.ChatRequest) geminiRequest {
	msgs := llm.NormalizeMessages(req.Messages, llm.NormalizeOptions{})
	systemInstruction, contents := convertToGeminiContents(msgs)

	body := geminiRequest{
		Contents:          contents,
		SystemInstruction: systemInstruction,
	}
	if req.Temperature > 0 || req.TopP > 0 || req.MaxTokens > 0 || len(req.Stop) > 0 {
		body.GenerationConfig = &geminiGenerationConfig{
			Temperature:     req.Temperature,
			TopP:            req.TopP,
			MaxOutputTokens: req.MaxTokens,
			StopSequences:   req.Stop,
		}
	}
	return body
}

func (p *GeminiProvider) Completion(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	payload, err := json.Marshal(p.buildBody(req))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	model := chooseGeminiModel(req, p.cfg.Model)
	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", strings.TrimRight(p.cfg.BaseURL, "/"), model)

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
		msg := providers.ReadErrorMessage(resp.Body)
		return nil, providers.MapHTTPError(resp.StatusCode, msg, p.Name())
	}

	var geminiResp geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&geminiResp); err != nil {
		return nil, providers.UpstreamError(err, p.Name())
	}

	return toGeminiChatResponse(geminiResp, p.Name(), model), nil
}

func (p *GeminiProvider) Stream(ctx context.Context, req *llm.ChatRequest) (<-chan llm.StreamChunk, error) {
	payload, err := json.Marshal(p.buildBody(req))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	model := chooseGeminiModel(req, p.cfg.Model)
	endpoint := fmt.Sprintf("%s/v1beta/models/%s:streamGenerateContent?alt=sse", strings.TrimRight(p.cfg.BaseURL, "/"), model)

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
		msg := providers.ReadErrorMessage(resp.Body)
		return nil, providers.MapHTTPError(resp.StatusCode, msg, p.Name())
	}

	ch := make(chan llm.StreamChunk)
	go func() {
		defer resp.Body.Close()
		defer close(ch)
		reader := bufio.NewReader(resp.Body)

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
			if line == "" || !strings.HasPrefix(line, "data:") {
				continue
			}
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))

			var geminiResp geminiResponse
			if err := json.Unmarshal([]byte(data), &geminiResp); err != nil {
				continue
			}

			for _, candidate := range geminiResp.Candidates {
				chunk := llm.StreamChunk{
					ID:           geminiResp.ResponseID,
					Provider:     p.Name(),
					Model:        model,
					Index:        candidate.Index,
					FinishReason: candidate.FinishReason,
					Delta: llm.Message{
						Role: llm.RoleAssistant,
					},
				}
				for _, part := range candidate.Content.Parts {
					chunk.Delta.Content += part.Text
				}
				if !emit(chunk) {
					return
				}
			}

			// 最后一个 chunk 包含 usage
			if geminiResp.UsageMetadata != nil {
				ok := emit(llm.StreamChunk{
					Provider: p.Name(),
					Model:    model,
					Usage: &llm.ChatUsage{
						PromptTokens:     geminiResp.UsageMetadata.PromptTokenCount,
						CompletionTokens: geminiResp.UsageMetadata.CandidatesTokenCount,
						TotalTokens:      geminiResp.UsageMetadata.TotalTokenCount,
					},
				})
				if !ok {
					return
				}
			}
		}
	}()

	return ch, nil
}

func toGeminiChatResponse(gr geminiResponse, provider, model string) *llm.ChatResponse {
	choices := make([]llm.ChatChoice, 0, len(gr.Candidates))
	for _, candidate := range gr.Candidates {
		msg := llm.Message{Role: llm.RoleAssistant}
		for _, part := range candidate.Content.Parts {
			msg.Content += part.Text
		}
		choices = append(choices, llm.ChatChoice{
			Index:        candidate.Index,
			FinishReason: candidate.FinishReason,
			Message:      msg,
		})
	}

	resp := &llm.ChatResponse{
		ID:       gr.ResponseID,
		Provider: provider,
		Model:    model,
		Choices:  choices,
	}
	if gr.UsageMetadata != nil {
		resp.Usage = llm.ChatUsage{
			PromptTokens:     gr.UsageMetadata.PromptTokenCount,
			CompletionTokens: gr.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      gr.UsageMetadata.TotalTokenCount,
		}
	}
	return resp
}

func chooseGeminiModel(req *llm.ChatRequest, defaultModel string) string {
	if req != nil && req.Model != "" {
		return req.Model
	}
	if defaultModel != "" {
		return defaultModel
	}
	return "gemini-3-flash"
}
