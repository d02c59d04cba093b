package qwen

import (
	"github.com/BaSui01/routeflow/llm/providers"
	"github.com/BaSui01/routeflow/llm/providers/openaicompat"
	"go.uber.org/zap"
)

// QwenProvider 实现阿里云通义千问提供者.
// 使用 DashScope 的 OpenAI 兼容模式.
type QwenProvider struct {
	*openaicompat.Provider
}

// NewQwenProvider 创建新的 Qwen 提供者实例.
func NewQwenProvider(cfg providers.QwenConfig, logger *zap.Logger) *QwenProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://dashscope.aliyuncs.com/compatible-mode"
	}

	return &QwenProvider{
		Provider: openaicompat.New(openaicompat.Config{
			ProviderName:   "qwen",
			APIKey:         cfg.APIKey,
			BaseURL:        cfg.BaseURL,
			DefaultModel:   cfg.Model,
			FallbackModel:  "qwen-plus",
			Timeout:        cfg.Timeout,
			SupportsVision: true,
		}, logger),
	}
}
