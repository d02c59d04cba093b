package llm

import (
	"context"
	"errors"
	"time"
)

// 统一的 LLM 错误码，用于对齐 HTTP 状态、可重试性与降级策略。
type ErrorCode string

const (
	ErrInvalidRequest     ErrorCode = "LLM_INVALID_REQUEST"     // 参数/格式错误
	ErrUnauthorized       ErrorCode = "LLM_UNAUTHORIZED"        // 未授权或密钥失效
	ErrForbidden          ErrorCode = "LLM_FORBIDDEN"           // 权限或内容策略拒绝
	ErrRateLimited        ErrorCode = "LLM_RATE_LIMITED"        // 上游限流
	ErrQuotaExceeded      ErrorCode = "LLM_QUOTA_EXCEEDED"      // 额度/配额用尽
	ErrCapabilityMismatch ErrorCode = "LLM_CAPABILITY_MISMATCH" // 请求形态超出 Provider 能力
	ErrRoutingUnavailable ErrorCode = "LLM_ROUTING_UNAVAILABLE" // 无可用 Provider/模型
	ErrUpstreamTimeout    ErrorCode = "LLM_UPSTREAM_TIMEOUT"    // 上游超时
	ErrUpstreamError      ErrorCode = "LLM_UPSTREAM_ERROR"      // 上游 5xx/网络错误
)

// FailureKind 是降级决策使用的失败大类。
// 错误码是细粒度的，降级只认四类：认证、限流/配额、能力不匹配、未知。
type FailureKind string

const (
	FailureAuth       FailureKind = "authentication_failed"
	FailureRateLimit  FailureKind = "rate_limited_or_quota_exhausted"
	FailureCapability FailureKind = "capability_mismatch"
	FailureUnknown    FailureKind = "unknown"
)

type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status"`
	Retryable  bool      `json:"retryable"`
	Provider   string    `json:"provider,omitempty"`
}

func (e *Error) Error() string { return e.Message }

// Kind 将细粒度错误码折叠为四个失败大类。
func (e *Error) Kind() FailureKind {
	switch e.Code {
	case ErrUnauthorized, ErrForbidden:
		return FailureAuth
	case ErrRateLimited, ErrQuotaExceeded:
		return FailureRateLimit
	case ErrCapabilityMismatch:
		return FailureCapability
	default:
		return FailureUnknown
	}
}

// KindOf 对任意错误做失败分类。
// 超时（包括 context.DeadlineExceeded）归为 Unknown，与上游超时同等处理。
func KindOf(err error) FailureKind {
	var le *Error
	if errors.As(err, &le) {
		return le.Kind()
	}
	return FailureUnknown
}

type ChatRequest struct {
	TraceID     string        `json:"trace_id,omitempty"`
	Model       string        `json:"model"`
	Messages    []Message     `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float32       `json:"temperature,omitempty"`
	TopP        float32       `json:"top_p,omitempty"`
	Stop        []string      `json:"stop,omitempty"`
	Timeout     time.Duration `json:"timeout,omitempty"`
}

type ChatUsage struct {
	PromptTokens     int     `json:"prompt_tokens,omitempty"`
	CompletionTokens int     `json:"completion_tokens,omitempty"`
	TotalTokens      int     `json:"total_tokens,omitempty"`
	Cost             float64 `json:"cost,omitempty"` // 以 USD 计
}

type ChatChoice struct {
	Index        int     `json:"index"`
	FinishReason string  `json:"finish_reason,omitempty"`
	Message      Message `json:"message"`
}

type ChatResponse struct {
	ID        string       `json:"id,omitempty"`
	Provider  string       `json:"provider,omitempty"`
	Model     string       `json:"model"`
	Choices   []ChatChoice `json:"choices"`
	Usage     ChatUsage    `json:"usage,omitempty"`
	CreatedAt time.Time    `json:"created_at,omitempty"`
}

// Text 返回首个 choice 的文本内容，没有 choice 时返回空串。
func (r *ChatResponse) Text() string {
	if r == nil || len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Message.TextContent()
}

type StreamChunk struct {
	ID           string     `json:"id,omitempty"`
	Provider     string     `json:"provider,omitempty"`
	Model        string     `json:"model,omitempty"`
	Index        int        `json:"index,omitempty"`
	Delta        Message    `json:"delta"`
	FinishReason string     `json:"finish_reason,omitempty"`
	Usage        *ChatUsage `json:"usage,omitempty"` // 最终 chunk 可带 usage
	Err          *Error     `json:"error,omitempty"`
}

// HealthStatus 表示 Provider 健康检查结果。
type HealthStatus struct {
	Healthy bool          `json:"healthy"`
	Latency time.Duration `json:"latency"`
}

// Provider 定义统一的 LLM 适配接口。
// 适配层只做协议翻译与错误分类，不做重试；降级完全由 Executor 负责。
type Provider interface {
	// Completion 发起同步聊天请求，返回完整响应
	Completion(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

	// Stream 发起流式聊天请求，返回增量响应通道
	Stream(ctx context.Context, req *ChatRequest) (<-chan StreamChunk, error)

	// HealthCheck 执行轻量级探活（仅供运维面使用，路由可用性不依赖它）
	HealthCheck(ctx context.Context) (*HealthStatus, error)

	// Name 返回 Provider 的唯一标识
	Name() string
}

// ProviderFactory 按名称创建 Provider 实例。
// 实现位于 llm/factory 包，接口定义在这里以避免循环依赖。
type ProviderFactory interface {
	CreateProvider(name string) (Provider, error)
}

// ModelConfig 是路由产出、Executor 消费的候选单元。
type ModelConfig struct {
	Provider    string  `json:"provider" yaml:"provider"`
	Model       string  `json:"model" yaml:"model"`
	Temperature float32 `json:"temperature" yaml:"temperature"`
	MaxTokens   int     `json:"max_tokens" yaml:"max_tokens"`
	CostPerMTok float64 `json:"cost_per_mtok" yaml:"cost_per_mtok"` // 每百万 token 估算成本（USD）
}

// Key 返回 provider/model 形式的唯一键，用于链内去重。
func (c ModelConfig) Key() string { return c.Provider + "/" + c.Model }
