// Package factory provides a centralized factory for creating LLM Provider
// instances by name. It imports all provider sub-packages and maps string
// names to their constructors, breaking the import cycle that would occur
// if this logic lived in the llm package directly.
package factory

import (
	"fmt"
	"sync"
	"time"

	"github.com/BaSui01/routeflow/llm"
	"github.com/BaSui01/routeflow/llm/providers"
	claude "github.com/BaSui01/routeflow/llm/providers/anthropic"
	"github.com/BaSui01/routeflow/llm/providers/deepseek"
	"github.com/BaSui01/routeflow/llm/providers/gemini"
	"github.com/BaSui01/routeflow/llm/providers/glm"
	"github.com/BaSui01/routeflow/llm/providers/grok"
	"github.com/BaSui01/routeflow/llm/providers/kimi"
	"github.com/BaSui01/routeflow/llm/providers/mistral"
	"github.com/BaSui01/routeflow/llm/providers/openai"
	"github.com/BaSui01/routeflow/llm/providers/openaicompat"
	"github.com/BaSui01/routeflow/llm/providers/qwen"
	"go.uber.org/zap"
)

// ProviderConfig is the generic configuration accepted by the factory function.
type ProviderConfig struct {
	APIKey  string        `json:"api_key" yaml:"api_key"`
	BaseURL string        `json:"base_url" yaml:"base_url"`
	Model   string        `json:"model,omitempty" yaml:"model,omitempty"`
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`

	// RejectsAssistantTurns applies only to generic OpenAI-compatible
	// providers whose endpoint refuses assistant messages in the input.
	RejectsAssistantTurns bool `json:"rejects_assistant_turns,omitempty" yaml:"rejects_assistant_turns,omitempty"`
}

// NewProviderFromConfig creates a Provider instance based on the provider name
// and a generic ProviderConfig. It maps the name to the appropriate constructor.
//
// Supported names: openai, anthropic, claude, gemini, deepseek, qwen, grok,
// kimi, glm, mistral.
func NewProviderFromConfig(name string, cfg ProviderConfig, logger *zap.Logger) (llm.Provider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	base := providers.BaseProviderConfig{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
		Timeout: cfg.Timeout,
	}

	switch name {
	case "openai":
		return openai.NewOpenAIProvider(providers.OpenAIConfig{BaseProviderConfig: base}, logger), nil

	case "anthropic", "claude":
		return claude.NewClaudeProvider(providers.ClaudeConfig{BaseProviderConfig: base}, logger), nil

	case "gemini":
		return gemini.NewGeminiProvider(providers.GeminiConfig{BaseProviderConfig: base}, logger), nil

	case "deepseek":
		return deepseek.NewDeepSeekProvider(providers.DeepSeekConfig{BaseProviderConfig: base}, logger), nil

	case "qwen":
		return qwen.NewQwenProvider(providers.QwenConfig{BaseProviderConfig: base}, logger), nil

	case "grok":
		return grok.NewGrokProvider(providers.GrokConfig{BaseProviderConfig: base}, logger), nil

	case "kimi":
		return kimi.NewKimiProvider(providers.KimiConfig{BaseProviderConfig: base}, logger), nil

	case "glm":
		return glm.NewGLMProvider(providers.GLMConfig{BaseProviderConfig: base}, logger), nil

	case "mistral":
		return mistral.NewMistralProvider(providers.MistralConfig{BaseProviderConfig: base}, logger), nil

	default:
		// 通用 OpenAI 兼容提供商：任意名称 + base_url 即可接入
		// 支持 Groq、Fireworks、OpenRouter、Ollama、vLLM 等
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("unknown provider %q: built-in provider not found, and base_url is required for generic OpenAI-compatible provider", name)
		}
		logger.Info("creating generic OpenAI-compatible provider",
			zap.String("provider", name),
			zap.String("base_url", cfg.BaseURL))
		return openaicompat.New(openaicompat.Config{
			ProviderName:          name,
			APIKey:                cfg.APIKey,
			BaseURL:               cfg.BaseURL,
			DefaultModel:          cfg.Model,
			Timeout:               cfg.Timeout,
			RejectsAssistantTurns: cfg.RejectsAssistantTurns,
		}, logger), nil
	}
}

// SupportedProviders returns the list of built-in provider names.
func SupportedProviders() []string {
	return []string{
		"openai", "anthropic", "claude", "gemini", "deepseek",
		"qwen", "grok", "kimi", "glm", "mistral",
	}
}

// Factory implements llm.ProviderFactory on top of a credential registry.
// Provider instances are created lazily and cached; they hold no per-request
// state, so sharing one instance across requests is safe.
type Factory struct {
	reg    *llm.Registry
	logger *zap.Logger

	mu    sync.Mutex
	cache map[string]llm.Provider
}

// New creates a Factory backed by the given registry.
func New(reg *llm.Registry, logger *zap.Logger) *Factory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Factory{
		reg:    reg,
		logger: logger,
		cache:  make(map[string]llm.Provider),
	}
}

// CreateProvider returns the cached Provider for name, creating it on first use.
// Creation fails when the provider is unknown or has no credential configured.
func (f *Factory) CreateProvider(name string) (llm.Provider, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if p, ok := f.cache[name]; ok {
		return p, nil
	}

	info, ok := f.reg.Info(name)
	if !ok {
		return nil, fmt.Errorf("unknown provider %q", name)
	}
	apiKey := f.reg.Credential(name)
	if apiKey == "" {
		return nil, fmt.Errorf("provider %q has no credential configured", name)
	}

	p, err := NewProviderFromConfig(name, ProviderConfig{
		APIKey:  apiKey,
		BaseURL: info.BaseURL,
		Model:   info.DefaultModel,
	}, f.logger)
	if err != nil {
		return nil, err
	}

	f.cache[name] = p
	return p, nil
}

var _ llm.ProviderFactory = (*Factory)(nil)
