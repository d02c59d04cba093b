package routing

import "github.com/BaSui01/routeflow/llm"

// 路由表是静态配置：任务类型 → 首选 {provider, model, 参数, 单位成本}。
// 成本为每百万 token 的估算值（USD），仅用于元数据与遥测。
var taskRoutes = map[TaskType]llm.ModelConfig{
	TaskWebSearch:       {Provider: "grok", Model: "grok-4", Temperature: 0.3, MaxTokens: 4096, CostPerMTok: 8.0},
	TaskDeepResearch:    {Provider: "anthropic", Model: "claude-sonnet-4-5", Temperature: 0.5, MaxTokens: 8192, CostPerMTok: 9.0},
	TaskCodeGeneration:  {Provider: "deepseek", Model: "deepseek-chat", Temperature: 0.1, MaxTokens: 8192, CostPerMTok: 0.8},
	TaskCodeEditing:     {Provider: "deepseek", Model: "deepseek-chat", Temperature: 0.1, MaxTokens: 8192, CostPerMTok: 0.8},
	TaskReasoning:       {Provider: "deepseek", Model: "deepseek-reasoner", Temperature: 0.2, MaxTokens: 8192, CostPerMTok: 1.5},
	TaskQuickQA:         {Provider: "openai", Model: "gpt-4o-mini", Temperature: 0.5, MaxTokens: 1024, CostPerMTok: 0.4},
	TaskCreativeWriting: {Provider: "openai", Model: "gpt-4o", Temperature: 0.9, MaxTokens: 4096, CostPerMTok: 7.5},
	TaskDataAnalysis:    {Provider: "openai", Model: "gpt-4o", Temperature: 0.2, MaxTokens: 4096, CostPerMTok: 7.5},
	TaskLongContext:     {Provider: "gemini", Model: "gemini-3-pro", Temperature: 0.4, MaxTokens: 8192, CostPerMTok: 5.0},
	TaskVision:          {Provider: "gemini", Model: "gemini-3-pro", Temperature: 0.4, MaxTokens: 4096, CostPerMTok: 5.0},
	TaskStudy:           {Provider: "glm", Model: "glm-4.6", Temperature: 0.6, MaxTokens: 4096, CostPerMTok: 1.0},
	TaskGeneral:         {Provider: "openai", Model: "gpt-4o-mini", Temperature: 0.7, MaxTokens: 2048, CostPerMTok: 0.4},
}

// taskFallbacks 是任务级静态备选序列，类型互补：同类能力、不同后端。
// 链构造时逐个过过可用性+能力谓词，并做首次出现去重。
var taskFallbacks = map[TaskType][]llm.ModelConfig{
	TaskWebSearch: {
		{Provider: "openai", Model: "gpt-4o", Temperature: 0.3, MaxTokens: 4096, CostPerMTok: 7.5},
		{Provider: "gemini", Model: "gemini-3-flash", Temperature: 0.3, MaxTokens: 4096, CostPerMTok: 1.2},
	},
	TaskDeepResearch: {
		{Provider: "openai", Model: "gpt-4o", Temperature: 0.5, MaxTokens: 8192, CostPerMTok: 7.5},
		{Provider: "gemini", Model: "gemini-3-pro", Temperature: 0.5, MaxTokens: 8192, CostPerMTok: 5.0},
		{Provider: "kimi", Model: "kimi-k2", Temperature: 0.5, MaxTokens: 8192, CostPerMTok: 1.8},
	},
	TaskCodeGeneration: {
		{Provider: "anthropic", Model: "claude-sonnet-4-5", Temperature: 0.1, MaxTokens: 8192, CostPerMTok: 9.0},
		{Provider: "qwen", Model: "qwen3-coder", Temperature: 0.1, MaxTokens: 8192, CostPerMTok: 1.0},
		{Provider: "openai", Model: "gpt-4o", Temperature: 0.1, MaxTokens: 8192, CostPerMTok: 7.5},
	},
	TaskCodeEditing: {
		{Provider: "anthropic", Model: "claude-sonnet-4-5", Temperature: 0.1, MaxTokens: 8192, CostPerMTok: 9.0},
		{Provider: "qwen", Model: "qwen3-coder", Temperature: 0.1, MaxTokens: 8192, CostPerMTok: 1.0},
	},
	TaskReasoning: {
		{Provider: "anthropic", Model: "claude-sonnet-4-5", Temperature: 0.2, MaxTokens: 8192, CostPerMTok: 9.0},
		{Provider: "openai", Model: "o4-mini", Temperature: 0.2, MaxTokens: 8192, CostPerMTok: 4.0},
	},
	TaskQuickQA: {
		{Provider: "gemini", Model: "gemini-3-flash", Temperature: 0.5, MaxTokens: 1024, CostPerMTok: 1.2},
		{Provider: "deepseek", Model: "deepseek-chat", Temperature: 0.5, MaxTokens: 1024, CostPerMTok: 0.8},
	},
	TaskCreativeWriting: {
		{Provider: "anthropic", Model: "claude-sonnet-4-5", Temperature: 0.9, MaxTokens: 4096, CostPerMTok: 9.0},
		{Provider: "mistral", Model: "mistral-large-latest", Temperature: 0.9, MaxTokens: 4096, CostPerMTok: 6.0},
	},
	TaskDataAnalysis: {
		{Provider: "anthropic", Model: "claude-sonnet-4-5", Temperature: 0.2, MaxTokens: 4096, CostPerMTok: 9.0},
		{Provider: "deepseek", Model: "deepseek-chat", Temperature: 0.2, MaxTokens: 4096, CostPerMTok: 0.8},
	},
	TaskLongContext: {
		{Provider: "kimi", Model: "kimi-k2", Temperature: 0.4, MaxTokens: 8192, CostPerMTok: 1.8},
		{Provider: "anthropic", Model: "claude-sonnet-4-5", Temperature: 0.4, MaxTokens: 8192, CostPerMTok: 9.0},
	},
	TaskVision: {
		{Provider: "openai", Model: "gpt-4o", Temperature: 0.4, MaxTokens: 4096, CostPerMTok: 7.5},
		{Provider: "qwen", Model: "qwen-vl-max", Temperature: 0.4, MaxTokens: 4096, CostPerMTok: 1.5},
	},
	TaskStudy: {
		{Provider: "openai", Model: "gpt-4o-mini", Temperature: 0.6, MaxTokens: 4096, CostPerMTok: 0.4},
		{Provider: "qwen", Model: "qwen-plus", Temperature: 0.6, MaxTokens: 4096, CostPerMTok: 0.9},
	},
	TaskGeneral: {
		{Provider: "gemini", Model: "gemini-3-flash", Temperature: 0.7, MaxTokens: 2048, CostPerMTok: 1.2},
		{Provider: "deepseek", Model: "deepseek-chat", Temperature: 0.7, MaxTokens: 2048, CostPerMTok: 0.8},
		{Provider: "glm", Model: "glm-4.6", Temperature: 0.7, MaxTokens: 2048, CostPerMTok: 1.0},
	},
}

// Route 返回任务类型的首选配置。纯查表，无副作用。
// 未知类型落到 general——Classify 是封闭枚举，这条分支只防御手写调用。
func Route(task TaskType) llm.ModelConfig {
	if cfg, ok := taskRoutes[task]; ok {
		return cfg
	}
	return taskRoutes[TaskGeneral]
}

// Fallbacks 返回任务类型的静态备选序列副本。
func Fallbacks(task TaskType) []llm.ModelConfig {
	src, ok := taskFallbacks[task]
	if !ok {
		src = taskFallbacks[TaskGeneral]
	}
	out := make([]llm.ModelConfig, len(src))
	copy(out, src)
	return out
}
