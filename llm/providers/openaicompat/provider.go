// =============================================================================
// RouteFlow OpenAI-Compatible Provider Base
// =============================================================================
// Shared implementation for all OpenAI-compatible LLM providers.
// Providers like DeepSeek, Qwen, GLM, Kimi, Grok, Mistral embed this
// and only override what differs (Name, BaseURL, default model, headers).
// =============================================================================

package openaicompat

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

// Config holds the configuration for an OpenAI-compatible provider.
type Config struct {
	// ProviderName is the unique identifier for this provider (e.g., "deepseek", "qwen").
	ProviderName string

	// APIKey is the authentication key for the provider's API.
	APIKey string

	// BaseURL is the base URL for the provider's API (e.g., "https://api.deepseek.com").
	BaseURL string

	// DefaultModel is the model to use when none is specified in the request.
	DefaultModel string

	// FallbackModel is used when both request and DefaultModel are empty.
	FallbackModel string

	// Timeout is the HTTP client timeout. Defaults to 120s if zero.
	Timeout time.Duration

	// EndpointPath is the chat completions endpoint path. Defaults to "/v1/chat/completions".
	EndpointPath string

	// ModelsEndpoint is the models list endpoint path. Defaults to "/v1/models".
	ModelsEndpoint string

	// SupportsVision indicates whether multipart image content may be sent.
	// When false, requests are normalized to text-only before serialization.
	SupportsVision bool

	// RejectsAssistantTurns strips assistant messages from the input before
	// serialization, for endpoints whose protocol refuses them. None of the
	// bundled providers needs this; it exists for custom endpoints wired
	// through the generic factory entry.
	RejectsAssistantTurns bool

	// BuildHeaders is an optional function to set custom headers on each request.
	// If nil, the default "Authorization: Bearer <apiKey>" header is used.
	BuildHeaders func(req *http.Request, apiKey string)

	// RequestHook is an optional function to modify the request body before sending.
	// Use this for provider-specific fields (e.g., DeepSeek's reasoner model selection).
	RequestHook func(req *llm.ChatRequest, body *providers.OpenAICompatRequest)
}

// Provider is the base implementation for all OpenAI-compatible LLM providers.
// Embed this in your provider struct and override Name() if needed.
type Provider struct {
	Cfg    Config
	Client *http.Client
	Logger *zap.Logger
}

// New creates a new OpenAI-compatible provider with the given config.
func New(cfg Config, logger *zap.Logger) *Provider {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = providers.DefaultTimeout
	}
	if cfg.EndpointPath == "" {
		cfg.EndpointPath = "/v1/chat/completions"
	}
	if cfg.ModelsEndpoint == "" {
		cfg.ModelsEndpoint = "/v1/models"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{
		Cfg:    cfg,
		Client: tlsutil.SecureHTTPClient(timeout),
		Logger: logger,
	}
}

// Name returns the provider name.
func (p *Provider) Name() string { return p.Cfg.ProviderName }

// endpoint builds the full URL for a given path.
func (p *Provider) endpoint(path string) string {
	return fmt.Sprintf("%s%s", strings.TrimRight(p.Cfg.BaseURL, "/"), path)
}

// buildHeaders applies headers to the HTTP request.
func (p *Provider) buildHeaders(req *http.Request, apiKey string) {
	if p.Cfg.BuildHeaders != nil {
		p.Cfg.BuildHeaders(req, apiKey)
		return
	}
	providers.BearerTokenHeaders(req, apiKey)
}

// normalized applies the shared message normalization for this provider's
// capability set. Text-only providers get images stripped here rather than
// erroring upstream.
func (p *Provider) normalized(msgs []llm.Message) []llm.Message {
	return llm.NormalizeMessages(msgs, llm.NormalizeOptions{
		DropImages:         !p.Cfg.SupportsVision,
		DropAssistantTurns: p.Cfg.RejectsAssistantTurns,
	})
}

// buildBody assembles the wire request from a normalized chat request.
func (p *Provider) buildBody(req *llm.ChatRequest, stream bool) providers.OpenAICompatRequest {
	body := providers.OpenAICompatRequest{
		Model:       providers.ChooseModel(req, p.Cfg.DefaultModel, p.Cfg.FallbackModel),
		Messages:    providers.ConvertMessagesToOpenAI(p.normalized(req.Messages)),
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		Stop:        req.Stop,
		Stream:      stream,
	}
	if p.Cfg.RequestHook != nil {
		p.Cfg.RequestHook(req, &body)
	}
	return body
}

// HealthCheck verifies the provider is reachable.
func (p *Provider) HealthCheck(ctx context.Context) (*llm.HealthStatus, error) {
	start := time.Now()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint(p.Cfg.ModelsEndpoint), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	p.buildHeaders(httpReq, p.Cfg.APIKey)

	resp, err := p.Client.Do(httpReq)
	latency := time.Since(start)
	if err != nil {
		return &llm.HealthStatus{Healthy: false, Latency: latency}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg := providers.ReadErrorMessage(resp.Body)
		return &llm.HealthStatus{Healthy: false, Latency: latency},
			fmt.Errorf("%s health check failed: status=%d msg=%s", p.Cfg.ProviderName, resp.StatusCode, msg)
	}

	return &llm.HealthStatus{Healthy: true, Latency: latency}, nil
}

// Completion performs a non-streaming chat completion.
func (p *Provider) Completion(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	payload, err := json.Marshal(p.buildBody(req, false))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint(p.Cfg.EndpointPath), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	p.buildHeaders(httpReq, p.Cfg.APIKey)

	resp, err := p.Client.Do(httpReq)
	if err != nil {
		return nil, providers.UpstreamError(err, p.Name())
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg := providers.ReadErrorMessage(resp.Body)
		return nil, providers.MapHTTPError(resp.StatusCode, msg, p.Name())
	}

	var oaResp providers.OpenAICompatResponse
	if err := json.NewDecoder(resp.Body).Decode(&oaResp); err != nil {
		return nil, providers.UpstreamError(err, p.Name())
	}

	result := providers.ToLLMChatResponse(oaResp, p.Name())
	if oaResp.Created != 0 {
		result.CreatedAt = time.Unix(oaResp.Created, 0)
	}
	return result, nil
}

// Stream performs a streaming chat completion via SSE.
func (p *Provider) Stream(ctx context.Context, req *llm.ChatRequest) (<-chan llm.StreamChunk, error) {
	payload, err := json.Marshal(p.buildBody(req, true))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint(p.Cfg.EndpointPath), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	p.buildHeaders(httpReq, p.Cfg.APIKey)

	resp, err := p.Client.Do(httpReq)
	if err != nil {
		return nil, providers.UpstreamError(err, p.Name())
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		msg := providers.ReadErrorMessage(resp.Body)
		return nil, providers.MapHTTPError(resp.StatusCode, msg, p.Name())
	}

	return StreamSSE(ctx, resp.Body, p.Name()), nil
}

// StreamSSE parses an SSE stream from an OpenAI-compatible API and returns a channel of StreamChunks.
// This is the shared SSE parsing logic used by all OpenAI-compatible providers.
// The caller is responsible for ensuring the response status is OK before calling this.
func StreamSSE(ctx context.Context, body io.ReadCloser, providerName string) <-chan llm.StreamChunk {
	ch := make(chan llm.StreamChunk)
	go func() {
		defer body.Close()
		defer close(ch)
		reader := bufio.NewReader(body)
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				if err != io.EOF {
					select {
					case <-ctx.Done():
						return
					case ch <- llm.StreamChunk{Err: providers.UpstreamError(err, providerName)}:
					}
				}
				return
			}
			line = strings.TrimSpace(line)
			if line == "" || !strings.HasPrefix(line, "data:") {
				continue
			}
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if data == "[DONE]" {
				return
			}

			var oaResp providers.OpenAICompatResponse
			if err := json.Unmarshal([]byte(data), &oaResp); err != nil {
				select {
				case <-ctx.Done():
					return
				case ch <- llm.StreamChunk{Err: providers.UpstreamError(err, providerName)}:
				}
				return
			}

			for _, choice := range oaResp.Choices {
				chunk := llm.StreamChunk{
					ID:           oaResp.ID,
					Provider:     providerName,
					Model:        oaResp.Model,
					Index:        choice.Index,
					FinishReason: choice.FinishReason,
					Delta: llm.Message{
						Role: llm.RoleAssistant,
					},
				}
				if choice.Delta != nil {
					chunk.Delta.Content = choice.Delta.Content
				}
				if oaResp.Usage != nil {
					chunk.Usage = &llm.ChatUsage{
						PromptTokens:     oaResp.Usage.PromptTokens,
						CompletionTokens: oaResp.Usage.CompletionTokens,
						TotalTokens:      oaResp.Usage.TotalTokens,
					}
				}
				select {
				case <-ctx.Done():
					return
				case ch <- chunk:
				}
			}
		}
	}()
	return ch
}
