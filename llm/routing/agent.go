package routing

import (
	"strings"
	"unicode/utf8"

	"github.com/BaSui01/routeflow/llm"
)

// AgentRole 是与任务分类正交的产品功能身份，封闭枚举。
// 请求带角色时，角色路由优先于任务类型路由。
type AgentRole string

const (
	AgentChat        AgentRole = "chat"
	AgentResume      AgentRole = "resume"
	AgentCoverLetter AgentRole = "cover-letter"
	AgentExtract     AgentRole = "extract"
	AgentCode        AgentRole = "code"
	AgentStudy       AgentRole = "study"
)

// ValidAgentRole 校验角色是否属于封闭枚举。
func ValidAgentRole(role AgentRole) bool {
	switch role {
	case AgentChat, AgentResume, AgentCoverLetter, AgentExtract, AgentCode, AgentStudy:
		return true
	}
	return false
}

// AgentContext 是角色路由的分支依据：少量上下文标志，不含消息本体。
type AgentContext struct {
	// DeepSearch 为 true 时，chat 角色升级为高成本研究配置。
	DeepSearch bool
	// Complexity 是 0-1 的编码复杂度估分（见 EstimateComplexity）。
	Complexity float64
}

// ComplexityEscalationThreshold 超过该分数时 code 角色升级到高能力模型。
const ComplexityEscalationThreshold = 0.7

var agentRoutes = map[AgentRole]llm.ModelConfig{
	AgentChat:        {Provider: "openai", Model: "gpt-4o-mini", Temperature: 0.7, MaxTokens: 2048, CostPerMTok: 0.4},
	AgentResume:      {Provider: "anthropic", Model: "claude-sonnet-4-5", Temperature: 0.3, MaxTokens: 4096, CostPerMTok: 9.0},
	AgentCoverLetter: {Provider: "anthropic", Model: "claude-sonnet-4-5", Temperature: 0.6, MaxTokens: 2048, CostPerMTok: 9.0},
	AgentExtract:     {Provider: "openai", Model: "gpt-4o-mini", Temperature: 0.0, MaxTokens: 2048, CostPerMTok: 0.4},
	AgentCode:        {Provider: "deepseek", Model: "deepseek-chat", Temperature: 0.1, MaxTokens: 8192, CostPerMTok: 0.8},
	AgentStudy:       {Provider: "glm", Model: "glm-4.6", Temperature: 0.6, MaxTokens: 4096, CostPerMTok: 1.0},
}

var agentFallbacks = map[AgentRole][]llm.ModelConfig{
	AgentChat: {
		{Provider: "gemini", Model: "gemini-3-flash", Temperature: 0.7, MaxTokens: 2048, CostPerMTok: 1.2},
		{Provider: "deepseek", Model: "deepseek-chat", Temperature: 0.7, MaxTokens: 2048, CostPerMTok: 0.8},
	},
	AgentResume: {
		{Provider: "openai", Model: "gpt-4o", Temperature: 0.3, MaxTokens: 4096, CostPerMTok: 7.5},
		{Provider: "gemini", Model: "gemini-3-pro", Temperature: 0.3, MaxTokens: 4096, CostPerMTok: 5.0},
	},
	AgentCoverLetter: {
		{Provider: "openai", Model: "gpt-4o", Temperature: 0.6, MaxTokens: 2048, CostPerMTok: 7.5},
	},
	AgentExtract: {
		{Provider: "gemini", Model: "gemini-3-flash", Temperature: 0.0, MaxTokens: 2048, CostPerMTok: 1.2},
		{Provider: "deepseek", Model: "deepseek-chat", Temperature: 0.0, MaxTokens: 2048, CostPerMTok: 0.8},
	},
	AgentCode: {
		{Provider: "anthropic", Model: "claude-sonnet-4-5", Temperature: 0.1, MaxTokens: 8192, CostPerMTok: 9.0},
		{Provider: "qwen", Model: "qwen3-coder", Temperature: 0.1, MaxTokens: 8192, CostPerMTok: 1.0},
	},
	AgentStudy: {
		{Provider: "openai", Model: "gpt-4o-mini", Temperature: 0.6, MaxTokens: 4096, CostPerMTok: 0.4},
		{Provider: "qwen", Model: "qwen-plus", Temperature: 0.6, MaxTokens: 4096, CostPerMTok: 0.9},
	},
}

// RouteAgent 返回角色的路由配置，按上下文标志做定向升级：
//   - chat + DeepSearch → 深度研究配置
//   - code + 复杂度超阈值 → 高能力编码模型
//
// 纯配置查找，无副作用。
func RouteAgent(role AgentRole, agentCtx AgentContext) llm.ModelConfig {
	if role == AgentChat && agentCtx.DeepSearch {
		return Route(TaskDeepResearch)
	}
	if role == AgentCode && agentCtx.Complexity > ComplexityEscalationThreshold {
		return llm.ModelConfig{Provider: "anthropic", Model: "claude-sonnet-4-5", Temperature: 0.1, MaxTokens: 8192, CostPerMTok: 9.0}
	}
	if cfg, ok := agentRoutes[role]; ok {
		return cfg
	}
	return agentRoutes[AgentChat]
}

// AgentFallbacks 返回角色的静态备选序列副本。
func AgentFallbacks(role AgentRole) []llm.ModelConfig {
	src, ok := agentFallbacks[role]
	if !ok {
		src = agentFallbacks[AgentChat]
	}
	out := make([]llm.ModelConfig, len(src))
	copy(out, src)
	return out
}

// 复杂度关键词：架构级改动与遗留系统改造通常需要更强的模型。
var complexityKeywords = []string{
	"architecture", "refactor", "distributed", "legacy", "concurrency",
	"migration", "scalability", "microservice",
	"架构", "重构", "分布式", "遗留", "并发", "迁移",
}

// EstimateComplexity 对编码请求产出 0-1 的复杂度估分，加性累计后截断：
//   - 消息长度阈值（>500 字符 +0.2，>2000 字符再 +0.2）
//   - 架构/重构类关键词命中 +0.3
//   - 附件数阈值（>1 个 +0.15，>4 个再 +0.15）
//   - 编辑而非生成 +0.1
//
// 确定性计算，不依赖任何网络调用。
func EstimateComplexity(message string, fileCount int, isEdit bool) float64 {
	score := 0.0
	msgLen := utf8.RuneCountInString(message)
	if msgLen > 500 {
		score += 0.2
	}
	if msgLen > 2000 {
		score += 0.2
	}
	if containsAny(strings.ToLower(message), complexityKeywords) {
		score += 0.3
	}
	if fileCount > 1 {
		score += 0.15
	}
	if fileCount > 4 {
		score += 0.15
	}
	if isEdit {
		score += 0.1
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}
