package routing

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/BaSui01/routeflow/llm"
)

// ChainRequest 描述链构造需要的请求形态信息。
type ChainRequest struct {
	HasImages bool
	FileCount int
}

// needVision 返回请求是否需要多模态能力。
// 图片片段或任意文件附件都要求候选具备多模态能力。
func (r ChainRequest) needVision() bool { return r.HasImages || r.FileCount > 0 }

// ParseOverride 解析 "provider/model" 形式的手动覆盖串，
// 在边界处校验 provider 属于封闭目录，生成带类型的配置而不是裸字符串。
// 未知 provider 返回错误；空串返回 (nil, nil)。
func ParseOverride(override string, reg *llm.Registry) (*llm.ModelConfig, error) {
	override = strings.TrimSpace(override)
	if override == "" {
		return nil, nil
	}
	provider, model, ok := strings.Cut(override, "/")
	if !ok || strings.TrimSpace(provider) == "" {
		return nil, &llm.Error{
			Code:       llm.ErrInvalidRequest,
			Message:    fmt.Sprintf("invalid model override %q: expected provider/model", override),
			HTTPStatus: http.StatusBadRequest,
		}
	}
	provider = strings.TrimSpace(provider)
	info, found := reg.Info(provider)
	if !found {
		return nil, &llm.Error{
			Code:       llm.ErrInvalidRequest,
			Message:    fmt.Sprintf("unknown provider %q in model override", provider),
			HTTPStatus: http.StatusBadRequest,
		}
	}
	cfg := &llm.ModelConfig{
		Provider:    info.Name,
		Model:       reg.NormalizeModel(info.Name, model),
		Temperature: 0.7,
		MaxTokens:   4096,
	}
	return cfg, nil
}

// BuildChain 构造降级链：有序的候选配置序列。
//
// 构造规则：
//  1. 手动覆盖优先作为链头，但同样过能力门槛——不兼容的手动选择被静默替换
//     为最优兼容方案，调用方通过返回的链获知，而不是收到错误。
//  2. 首选配置可用且兼容时作为链头；否则用最优可用+兼容 Provider 原位替换，
//     沿用该任务的 temperature/max tokens。
//  3. 追加静态备选序列 alternates，逐个过可用性+能力谓词。
//  4. 按 (provider, model) 首次出现去重，最优先位置生效。
//
// 不变量:只要存在至少一个可用且兼容的 Provider，链非空；
// 一个都没有时返回配置错误，任何网络调用都不会发生。
// 携带图片或文件附件的请求的链中绝不出现纯文本 Provider。
func BuildChain(preferred llm.ModelConfig, alternates []llm.ModelConfig, req ChainRequest, reg *llm.Registry, snap llm.Availability, override *llm.ModelConfig) ([]llm.ModelConfig, error) {
	needVision := req.needVision()

	usable := func(cfg llm.ModelConfig) bool {
		return snap[cfg.Provider] && reg.IsCompatible(cfg.Provider, needVision)
	}

	var chain []llm.ModelConfig
	seen := make(map[string]bool)
	add := func(cfg llm.ModelConfig) {
		cfg.Model = reg.NormalizeModel(cfg.Provider, cfg.Model)
		if seen[cfg.Key()] {
			return
		}
		seen[cfg.Key()] = true
		chain = append(chain, cfg)
	}

	// 手动覆盖作为链头，能力门槛仍然适用
	if override != nil {
		if usable(*override) {
			add(*override)
		} else if name, ok := reg.BestAvailable(override.Provider, snap, needVision); ok {
			sub := *override
			sub.Provider = name
			sub.Model = "" // 落到替换 Provider 的默认模型
			add(sub)
		}
	}

	// 首选配置或其原位替换
	if usable(preferred) {
		add(preferred)
	} else if name, ok := reg.BestAvailable(preferred.Provider, snap, needVision); ok {
		sub := preferred
		sub.Provider = name
		sub.Model = ""
		add(sub)
	}

	// 静态备选，逐个过谓词
	for _, alt := range alternates {
		if usable(alt) {
			add(alt)
		}
	}

	if len(chain) == 0 {
		return nil, &llm.Error{
			Code:       llm.ErrRoutingUnavailable,
			Message:    "no available provider is capable of serving this request; check configured credentials",
			HTTPStatus: http.StatusServiceUnavailable,
		}
	}
	return chain, nil
}

// BuildTaskChain 是任务路由的便捷组合：Route + Fallbacks + BuildChain。
func BuildTaskChain(task TaskType, req ChainRequest, reg *llm.Registry, snap llm.Availability, override *llm.ModelConfig) ([]llm.ModelConfig, error) {
	return BuildChain(Route(task), Fallbacks(task), req, reg, snap, override)
}

// BuildAgentChain 是角色路由的便捷组合：RouteAgent + AgentFallbacks + BuildChain。
// chat 角色带 DeepSearch 标志升级时，备选序列同步切换为深度研究的备选。
func BuildAgentChain(role AgentRole, agentCtx AgentContext, req ChainRequest, reg *llm.Registry, snap llm.Availability, override *llm.ModelConfig) ([]llm.ModelConfig, error) {
	alternates := AgentFallbacks(role)
	if role == AgentChat && agentCtx.DeepSearch {
		alternates = Fallbacks(TaskDeepResearch)
	}
	return BuildChain(RouteAgent(role, agentCtx), alternates, req, reg, snap, override)
}
