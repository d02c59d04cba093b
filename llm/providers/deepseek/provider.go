package deepseek

import (
	"github.com/BaSui01/routeflow/llm"
	"github.com/BaSui01/routeflow/llm/providers"
	"github.com/BaSui01/routeflow/llm/providers/openaicompat"
	"go.uber.org/zap"
)

// DeepSeekProvider 实现 DeepSeek LLM 提供者.
// DeepSeek 使用 OpenAI 兼容的 API 格式.
type DeepSeekProvider struct {
	*openaicompat.Provider
}

// NewDeepSeekProvider 创建新的 DeepSeek 提供者实例.
func NewDeepSeekProvider(cfg providers.DeepSeekConfig, logger *zap.Logger) *DeepSeekProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.deepseek.com"
	}

	return &DeepSeekProvider{
		Provider: openaicompat.New(openaicompat.Config{
			ProviderName:  "deepseek",
			APIKey:        cfg.APIKey,
			BaseURL:       cfg.BaseURL,
			DefaultModel:  cfg.Model,
			FallbackModel: "deepseek-chat",
			Timeout:       cfg.Timeout,
			EndpointPath:  "/chat/completions",
			RequestHook:   deepseekRequestHook,
		}, logger),
	}
}

// deepseekRequestHook handles DeepSeek-specific request modifications.
// DeepSeek rejects max_tokens above 8192 for the chat models.
func deepseekRequestHook(req *llm.ChatRequest, body *providers.OpenAICompatRequest) {
	if body.MaxTokens > 8192 {
		body.MaxTokens = 8192
	}
}
