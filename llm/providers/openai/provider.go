package openai

import (
	"net/http"

	"github.com/BaSui01/routeflow/llm/providers"
	"github.com/BaSui01/routeflow/llm/providers/openaicompat"
	"go.uber.org/zap"
)

// OpenAIProvider 实现 OpenAI 提供者.
type OpenAIProvider struct {
	*openaicompat.Provider
}

// NewOpenAIProvider 创建新的 OpenAI 提供者实例.
func NewOpenAIProvider(cfg providers.OpenAIConfig, logger *zap.Logger) *OpenAIProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com"
	}

	oc := openaicompat.Config{
		ProviderName:   "openai",
		APIKey:         cfg.APIKey,
		BaseURL:        cfg.BaseURL,
		DefaultModel:   cfg.Model,
		FallbackModel:  "gpt-4o-mini",
		Timeout:        cfg.Timeout,
		SupportsVision: true,
	}
	if cfg.Organization != "" {
		org := cfg.Organization
		oc.BuildHeaders = func(r *http.Request, apiKey string) {
			providers.BearerTokenHeaders(r, apiKey)
			r.Header.Set("OpenAI-Organization", org)
		}
	}

	return &OpenAIProvider{
		Provider: openaicompat.New(oc, logger),
	}
}
