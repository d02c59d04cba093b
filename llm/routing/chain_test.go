package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/routeflow/llm"
)

func fullSnap(reg *llm.Registry) llm.Availability {
	snap := llm.Availability{}
	for _, name := range reg.Names() {
		snap[name] = true
	}
	return snap
}

func TestParseOverride(t *testing.T) {
	reg := llm.NewRegistry(nil)

	t.Run("空串无覆盖", func(t *testing.T) {
		cfg, err := ParseOverride("", reg)
		require.NoError(t, err)
		assert.Nil(t, cfg)
	})

	t.Run("合法覆盖解析并规范化模型", func(t *testing.T) {
		cfg, err := ParseOverride("anthropic/claude-sonnet", reg)
		require.NoError(t, err)
		require.NotNil(t, cfg)
		assert.Equal(t, "anthropic", cfg.Provider)
		assert.Equal(t, "claude-sonnet-4-5", cfg.Model)
	})

	t.Run("只给 provider 落到默认模型", func(t *testing.T) {
		cfg, err := ParseOverride("deepseek/", reg)
		require.NoError(t, err)
		assert.Equal(t, "deepseek-chat", cfg.Model)
	})

	t.Run("未知 provider 报错", func(t *testing.T) {
		_, err := ParseOverride("nonexistent/some-model", reg)
		var lerr *llm.Error
		require.ErrorAs(t, err, &lerr)
		assert.Equal(t, llm.ErrInvalidRequest, lerr.Code)
	})

	t.Run("缺少斜杠报错", func(t *testing.T) {
		_, err := ParseOverride("just-a-model-name", reg)
		var lerr *llm.Error
		require.ErrorAs(t, err, &lerr)
		assert.Equal(t, llm.ErrInvalidRequest, lerr.Code)
	})
}

func TestBuildChain(t *testing.T) {
	reg := llm.NewRegistry(nil)

	t.Run("首选可用时作为链头并追加备选", func(t *testing.T) {
		snap := fullSnap(reg)
		chain, err := BuildTaskChain(TaskCodeGeneration, ChainRequest{}, reg, snap, nil)
		require.NoError(t, err)
		require.NotEmpty(t, chain)
		assert.Equal(t, "deepseek", chain[0].Provider)
		assert.Equal(t, "deepseek-chat", chain[0].Model)
		assert.Greater(t, len(chain), 1)
	})

	t.Run("首选不可用时原位替换并沿用参数", func(t *testing.T) {
		snap := llm.Availability{"openai": true}
		chain, err := BuildTaskChain(TaskCodeGeneration, ChainRequest{}, reg, snap, nil)
		require.NoError(t, err)
		require.NotEmpty(t, chain)
		assert.Equal(t, "openai", chain[0].Provider)
		// 替换落到 Provider 默认模型,温度沿用任务配置
		assert.Equal(t, "gpt-4o-mini", chain[0].Model)
		assert.InDelta(t, 0.1, chain[0].Temperature, 1e-9)
	})

	t.Run("链按首次出现去重", func(t *testing.T) {
		snap := fullSnap(reg)
		chain, err := BuildTaskChain(TaskGeneral, ChainRequest{}, reg, snap, nil)
		require.NoError(t, err)
		seen := map[string]bool{}
		for _, cfg := range chain {
			assert.False(t, seen[cfg.Key()], "duplicate candidate %s", cfg.Key())
			seen[cfg.Key()] = true
		}
	})

	t.Run("无任何可用 Provider 返回配置错误", func(t *testing.T) {
		chain, err := BuildTaskChain(TaskGeneral, ChainRequest{}, reg, llm.Availability{}, nil)
		assert.Nil(t, chain)
		var lerr *llm.Error
		require.ErrorAs(t, err, &lerr)
		assert.Equal(t, llm.ErrRoutingUnavailable, lerr.Code)
	})
}

func TestBuildChainVisionGate(t *testing.T) {
	reg := llm.NewRegistry(nil)
	snap := fullSnap(reg)

	t.Run("视觉请求的链中绝不出现纯文本 Provider", func(t *testing.T) {
		for task := range allTaskTypes {
			chain, err := BuildTaskChain(task, ChainRequest{HasImages: true}, reg, snap, nil)
			require.NoError(t, err, "task %s", task)
			for _, cfg := range chain {
				assert.True(t, reg.IsCompatible(cfg.Provider, true),
					"task %s put text-only provider %s in a vision chain", task, cfg.Provider)
			}
		}
	})

	t.Run("纯文本首选被兼容替换取代", func(t *testing.T) {
		// code_generation 首选 deepseek(无视觉),带图片时必须换
		chain, err := BuildTaskChain(TaskCodeGeneration, ChainRequest{HasImages: true}, reg, snap, nil)
		require.NoError(t, err)
		require.NotEmpty(t, chain)
		assert.NotEqual(t, "deepseek", chain[0].Provider)
		assert.True(t, reg.IsCompatible(chain[0].Provider, true))
	})

	t.Run("文件附件同样触发能力门槛", func(t *testing.T) {
		// code_generation 首选 deepseek(无视觉),带附件时链中不得出现纯文本候选
		snap := llm.Availability{"deepseek": true, "openai": true}
		chain, err := BuildTaskChain(TaskCodeGeneration, ChainRequest{FileCount: 2}, reg, snap, nil)
		require.NoError(t, err)
		require.NotEmpty(t, chain)
		assert.Equal(t, "openai", chain[0].Provider)
		for _, cfg := range chain {
			assert.True(t, reg.IsCompatible(cfg.Provider, true),
				"text-only provider %s in a chain for a request with attachments", cfg.Provider)
		}
	})

	t.Run("只剩纯文本 Provider 时视觉请求无链", func(t *testing.T) {
		snap := llm.Availability{"deepseek": true, "kimi": true}
		_, err := BuildTaskChain(TaskVision, ChainRequest{HasImages: true}, reg, snap, nil)
		var lerr *llm.Error
		require.ErrorAs(t, err, &lerr)
		assert.Equal(t, llm.ErrRoutingUnavailable, lerr.Code)
	})
}

func TestBuildChainOverride(t *testing.T) {
	reg := llm.NewRegistry(nil)
	snap := fullSnap(reg)

	t.Run("覆盖作为链头", func(t *testing.T) {
		override := &llm.ModelConfig{Provider: "mistral", Model: "mistral-large-latest", Temperature: 0.7, MaxTokens: 4096}
		chain, err := BuildTaskChain(TaskGeneral, ChainRequest{}, reg, snap, override)
		require.NoError(t, err)
		require.NotEmpty(t, chain)
		assert.Equal(t, "mistral", chain[0].Provider)
		// 任务首选降为第二候选
		assert.Equal(t, "openai", chain[1].Provider)
	})

	t.Run("不兼容的覆盖被静默替换而非报错", func(t *testing.T) {
		override := &llm.ModelConfig{Provider: "deepseek", Model: "deepseek-chat", Temperature: 0.7, MaxTokens: 4096}
		chain, err := BuildTaskChain(TaskVision, ChainRequest{HasImages: true}, reg, snap, override)
		require.NoError(t, err)
		require.NotEmpty(t, chain)
		assert.NotEqual(t, "deepseek", chain[0].Provider)
		assert.True(t, reg.IsCompatible(chain[0].Provider, true))
	})

	t.Run("不可用的覆盖被可用 Provider 替换", func(t *testing.T) {
		snap := llm.Availability{"gemini": true}
		override := &llm.ModelConfig{Provider: "openai", Model: "gpt-4o", Temperature: 0.7, MaxTokens: 4096}
		chain, err := BuildTaskChain(TaskGeneral, ChainRequest{}, reg, snap, override)
		require.NoError(t, err)
		require.NotEmpty(t, chain)
		assert.Equal(t, "gemini", chain[0].Provider)
		// 替换落到默认模型而不是沿用他家模型名
		assert.Equal(t, "gemini-3-pro", chain[0].Model)
	})
}

func TestBuildAgentChain(t *testing.T) {
	reg := llm.NewRegistry(nil)
	snap := fullSnap(reg)

	t.Run("角色链头来自角色路由", func(t *testing.T) {
		chain, err := BuildAgentChain(AgentResume, AgentContext{}, ChainRequest{}, reg, snap, nil)
		require.NoError(t, err)
		assert.Equal(t, "anthropic", chain[0].Provider)
	})

	t.Run("chat 升级深度研究时备选同步切换", func(t *testing.T) {
		chain, err := BuildAgentChain(AgentChat, AgentContext{DeepSearch: true}, ChainRequest{}, reg, snap, nil)
		require.NoError(t, err)
		require.NotEmpty(t, chain)
		assert.Equal(t, Route(TaskDeepResearch).Provider, chain[0].Provider)
		// 深度研究备选含 kimi,普通 chat 备选不含
		providers := map[string]bool{}
		for _, cfg := range chain {
			providers[cfg.Provider] = true
		}
		assert.True(t, providers["kimi"])
	})

	t.Run("复杂 code 角色链头升级", func(t *testing.T) {
		chain, err := BuildAgentChain(AgentCode, AgentContext{Complexity: 0.9}, ChainRequest{}, reg, snap, nil)
		require.NoError(t, err)
		assert.Equal(t, "anthropic", chain[0].Provider)
		assert.Equal(t, "claude-sonnet-4-5", chain[0].Model)
	})
}
