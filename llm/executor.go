package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultCandidateTimeout 是单个候选调用的默认上限。
// 参考系统没有给出数值；链的最坏总时延 = 链长 × 本值，取 120s 以兼顾
// 长输出流式响应与降级链预算。可经 ExecutorOptions 覆盖。
const DefaultCandidateTimeout = 120 * time.Second

// Attempt 记录一次候选尝试的结果。
type Attempt struct {
	Provider string      `json:"provider"`
	Model    string      `json:"model"`
	Kind     FailureKind `json:"kind"`
	Message  string      `json:"message"`
}

// ExhaustedError 在降级链全部耗尽时返回：聚合所有尝试过的候选，
// 对外呈现为一条可读消息，而不是层层嵌套的 Provider 原始错误。
type ExhaustedError struct {
	Attempts []Attempt
}

func (e *ExhaustedError) Error() string {
	var parts []string
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s/%s (%s)", a.Provider, a.Model, a.Kind))
	}
	last := ""
	if n := len(e.Attempts); n > 0 {
		last = e.Attempts[n-1].Message
	}
	return fmt.Sprintf("%s tried %d candidate(s) [%s]; last error: %s",
		e.headline(), len(e.Attempts), strings.Join(parts, ", "), last)
}

// headline 在终态失败类别一致时给出更具体的提示。
// 这是给调用方的便利，不是可依赖的控制流契约。
func (e *ExhaustedError) headline() string {
	if len(e.Attempts) == 0 {
		return "no provider could serve the request:"
	}
	kind := e.Attempts[0].Kind
	for _, a := range e.Attempts[1:] {
		if a.Kind != kind {
			return "all providers failed:"
		}
	}
	switch kind {
	case FailureAuth:
		return "all configured credentials were rejected:"
	case FailureRateLimit:
		return "all providers are rate limited or out of quota:"
	case FailureCapability:
		return "no configured provider supports this request shape:"
	default:
		return "all providers failed:"
	}
}

// ExecutionMetadata 是调用方得知实际服务候选的唯一途径，
// 在成功完成（流式为 metadata 事件）时发出一次。
type ExecutionMetadata struct {
	RequestID     string      `json:"request_id"`
	Task          string      `json:"task,omitempty"`
	Agent         string      `json:"agent,omitempty"`
	Provider      string      `json:"provider"`
	Model         string      `json:"model"`
	Vision        bool        `json:"vision"`
	Attempts      int         `json:"attempts"`
	Usage         ChatUsage   `json:"usage"`
	EstimatedCost float64     `json:"estimated_cost"`
	QualityScore  float64     `json:"quality_score"`
	Elapsed       time.Duration `json:"elapsed"`
}

// EventType 标识流式执行事件的类型。
type EventType string

const (
	EventText     EventType = "text"
	EventMetadata EventType = "metadata"
	EventError    EventType = "error"
)

// ExecutionEvent 是流式执行的输出单元：若干 text 事件之后，
// 恰好一个 metadata 事件（成功）或恰好一个 error 事件（失败）收尾。
// metadata/error 事件是权威的流结束信号。
type ExecutionEvent struct {
	Type     EventType          `json:"type"`
	Text     string             `json:"text,omitempty"`
	Metadata *ExecutionMetadata `json:"metadata,omitempty"`
	Err      error              `json:"-"`
}

// Recorder 接收执行器的遥测事件。internal/metrics 提供 Prometheus 实现；
// 传 nil 时使用空实现。
type Recorder interface {
	RecordAttempt(provider, model string, kind FailureKind, ok bool)
	RecordUsage(provider, model, task string, usage ChatUsage, cost float64)
	RecordQuality(task string, score float64)
	RecordFallbackDepth(depth int)
	RecordExhausted(task string)
}

type nopRecorder struct{}

func (nopRecorder) RecordAttempt(string, string, FailureKind, bool)        {}
func (nopRecorder) RecordUsage(string, string, string, ChatUsage, float64) {}
func (nopRecorder) RecordQuality(string, float64)                          {}
func (nopRecorder) RecordFallbackDepth(int)                                {}
func (nopRecorder) RecordExhausted(string)                                 {}

// ExecutionJob 描述一次链式执行：候选链、归一化后的消息与分类元数据。
type ExecutionJob struct {
	Chain    []ModelConfig
	Messages []Message
	Task     string
	Agent    string
	Vision   bool
}

// ExecutorOptions 配置执行器。零值字段取默认。
type ExecutorOptions struct {
	CandidateTimeout time.Duration
	Logger           *zap.Logger
	Recorder         Recorder
}

// Executor 驱动降级链的状态机：
//
//	Pending → Trying(i) → {Succeeded | Trying(i+1) | ExhaustedFailed}
//
// 候选严格串行尝试，从不并行投机执行；每个候选最多尝试一次，
// 不做指数退避——下一个候选是另一个 Provider，立即切换即是正确行为。
type Executor struct {
	factory  ProviderFactory
	timeout  time.Duration
	logger   *zap.Logger
	recorder Recorder
}

// NewExecutor 创建执行器。
func NewExecutor(factory ProviderFactory, opts ExecutorOptions) *Executor {
	if opts.CandidateTimeout <= 0 {
		opts.CandidateTimeout = DefaultCandidateTimeout
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Recorder == nil {
		opts.Recorder = nopRecorder{}
	}
	return &Executor{
		factory:  factory,
		timeout:  opts.CandidateTimeout,
		logger:   opts.Logger,
		recorder: opts.Recorder,
	}
}

// Execute 同步执行：沿链逐个尝试直到成功或耗尽。
// 认证失败、限流/配额与未知失败都前进到下一候选——非能力失败被乐观地
// 视为瞬时或单 Provider 特有的问题。能力不匹配理论上已被链构造滤除，
// 出现时同样前进。调用方取消时立刻终止，不触发降级。
func (e *Executor) Execute(ctx context.Context, job ExecutionJob) (*ChatResponse, *ExecutionMetadata, error) {
	if len(job.Chain) == 0 {
		return nil, nil, &Error{Code: ErrRoutingUnavailable, Message: "empty fallback chain"}
	}

	requestID := uuid.NewString()
	start := time.Now()
	var attempts []Attempt

	for i, cand := range job.Chain {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		provider, err := e.factory.CreateProvider(cand.Provider)
		if err != nil {
			// 目录与适配器对不上是配置错误,不是降级场景
			return nil, nil, &Error{
				Code:    ErrRoutingUnavailable,
				Message: fmt.Sprintf("provider %q has no protocol adapter: %v", cand.Provider, err),
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, e.timeout)
		resp, err := provider.Completion(callCtx, e.buildRequest(requestID, cand, job.Messages))
		cancel()

		if err != nil {
			if ctx.Err() != nil {
				// 调用方取消：终止，不降级
				return nil, nil, ctx.Err()
			}
			kind := KindOf(err)
			attempts = append(attempts, Attempt{Provider: cand.Provider, Model: cand.Model, Kind: kind, Message: err.Error()})
			e.recorder.RecordAttempt(cand.Provider, cand.Model, kind, false)
			e.logger.Warn("candidate failed, advancing fallback chain",
				zap.String("provider", cand.Provider),
				zap.String("model", cand.Model),
				zap.String("kind", string(kind)),
				zap.Int("attempt", i+1),
				zap.Int("chain_len", len(job.Chain)),
				zap.Error(err),
			)
			continue
		}

		e.recorder.RecordAttempt(cand.Provider, cand.Model, "", true)
		meta := e.buildMetadata(requestID, cand, job, resp.Usage, resp.Text(), len(attempts)+1, time.Since(start))
		return resp, meta, nil
	}

	e.recorder.RecordExhausted(job.Task)
	return nil, nil, &ExhaustedError{Attempts: attempts}
}

// ExecuteStream 流式执行。增量按到达顺序原样转发，不重排、不额外缓冲；
// 流完成后发出唯一的 metadata 事件。候选在产出任何文本前失败则前进到
// 下一候选；已产出文本后的中途错误只能以 error 事件收尾——部分响应已
// 交付，切换候选会重复输出。
func (e *Executor) ExecuteStream(ctx context.Context, job ExecutionJob) (<-chan ExecutionEvent, error) {
	if len(job.Chain) == 0 {
		return nil, &Error{Code: ErrRoutingUnavailable, Message: "empty fallback chain"}
	}

	out := make(chan ExecutionEvent)
	go func() {
		defer close(out)

		requestID := uuid.NewString()
		start := time.Now()
		var attempts []Attempt

		for _, cand := range job.Chain {
			if ctx.Err() != nil {
				e.emit(ctx, out, ExecutionEvent{Type: EventError, Err: ctx.Err()})
				return
			}

			provider, err := e.factory.CreateProvider(cand.Provider)
			if err != nil {
				e.emit(ctx, out, ExecutionEvent{Type: EventError, Err: &Error{
					Code:    ErrRoutingUnavailable,
					Message: fmt.Sprintf("provider %q has no protocol adapter: %v", cand.Provider, err),
				}})
				return
			}

			callCtx, cancel := context.WithTimeout(ctx, e.timeout)
			done, delivered := e.streamCandidate(ctx, callCtx, out, provider, cand, job, requestID, start, &attempts)
			cancel()
			if done {
				return
			}
			if delivered {
				// 已有增量交付给调用方，不能再切换候选
				return
			}
		}

		e.recorder.RecordExhausted(job.Task)
		e.emit(ctx, out, ExecutionEvent{Type: EventError, Err: &ExhaustedError{Attempts: attempts}})
	}()
	return out, nil
}

// streamCandidate 尝试单个流式候选。
// 返回 (done, delivered)：done 表示整个执行已收尾（成功或不可恢复失败），
// delivered 表示已向调用方交付过文本增量。
func (e *Executor) streamCandidate(
	ctx, callCtx context.Context,
	out chan<- ExecutionEvent,
	provider Provider,
	cand ModelConfig,
	job ExecutionJob,
	requestID string,
	start time.Time,
	attempts *[]Attempt,
) (done, delivered bool) {
	ch, err := provider.Stream(callCtx, e.buildRequest(requestID, cand, job.Messages))
	if err != nil {
		if ctx.Err() != nil {
			e.emit(ctx, out, ExecutionEvent{Type: EventError, Err: ctx.Err()})
			return true, false
		}
		e.noteFailure(attempts, cand, err)
		return false, false
	}

	var text strings.Builder
	var usage ChatUsage
	for chunk := range ch {
		if chunk.Err != nil {
			if ctx.Err() != nil {
				e.emit(ctx, out, ExecutionEvent{Type: EventError, Err: ctx.Err()})
				return true, delivered
			}
			if !delivered {
				// 尚未交付任何内容，当作候选失败处理，前进
				e.noteFailure(attempts, cand, chunk.Err)
				return false, false
			}
			e.recorder.RecordAttempt(cand.Provider, cand.Model, chunk.Err.Kind(), false)
			e.emit(ctx, out, ExecutionEvent{Type: EventError, Err: chunk.Err})
			return true, true
		}
		if chunk.Usage != nil {
			usage = *chunk.Usage
		}
		if content := chunk.Delta.TextContent(); content != "" {
			if !e.emit(ctx, out, ExecutionEvent{Type: EventText, Text: content}) {
				return true, delivered
			}
			delivered = true
			text.WriteString(content)
		}
	}

	if ctx.Err() != nil {
		e.emit(ctx, out, ExecutionEvent{Type: EventError, Err: ctx.Err()})
		return true, delivered
	}
	if callCtx.Err() != nil {
		timeoutErr := &Error{
			Code:     ErrUpstreamTimeout,
			Message:  fmt.Sprintf("%s/%s timed out after %s", cand.Provider, cand.Model, e.timeout),
			Provider: cand.Provider,
		}
		if !delivered {
			// 候选超时且无产出：归为 Unknown，前进
			e.noteFailure(attempts, cand, timeoutErr)
			return false, false
		}
		// 已交付部分增量后被超时截断：不能报成功，也不能切换候选，
		// 以 error 事件收尾
		e.recorder.RecordAttempt(cand.Provider, cand.Model, timeoutErr.Kind(), false)
		e.emit(ctx, out, ExecutionEvent{Type: EventError, Err: timeoutErr})
		return true, true
	}

	e.recorder.RecordAttempt(cand.Provider, cand.Model, "", true)
	meta := e.buildMetadata(requestID, cand, job, usage, text.String(), len(*attempts)+1, time.Since(start))
	e.emit(ctx, out, ExecutionEvent{Type: EventMetadata, Metadata: meta})
	return true, true
}

func (e *Executor) noteFailure(attempts *[]Attempt, cand ModelConfig, err error) {
	kind := KindOf(err)
	*attempts = append(*attempts, Attempt{Provider: cand.Provider, Model: cand.Model, Kind: kind, Message: err.Error()})
	e.recorder.RecordAttempt(cand.Provider, cand.Model, kind, false)
	e.logger.Warn("stream candidate failed, advancing fallback chain",
		zap.String("provider", cand.Provider),
		zap.String("model", cand.Model),
		zap.String("kind", string(kind)),
		zap.Error(err),
	)
}

// emit 向调用方发送事件，调用方取消时返回 false。
func (e *Executor) emit(ctx context.Context, out chan<- ExecutionEvent, ev ExecutionEvent) bool {
	select {
	case <-ctx.Done():
		return false
	case out <- ev:
		return true
	}
}

func (e *Executor) buildRequest(requestID string, cand ModelConfig, msgs []Message) *ChatRequest {
	return &ChatRequest{
		TraceID:     requestID,
		Model:       cand.Model,
		Messages:    msgs,
		MaxTokens:   cand.MaxTokens,
		Temperature: cand.Temperature,
		Timeout:     e.timeout,
	}
}

func (e *Executor) buildMetadata(requestID string, cand ModelConfig, job ExecutionJob, usage ChatUsage, responseText string, attempts int, elapsed time.Duration) *ExecutionMetadata {
	totalTokens := usage.TotalTokens
	if totalTokens == 0 {
		// Provider 未报告用量，按文本估算
		totalTokens = EstimateMessageTokens(job.Messages) + EstimateTokens(responseText)
	}
	cost := float64(totalTokens) / 1e6 * cand.CostPerMTok

	var prompt string
	for i := len(job.Messages) - 1; i >= 0; i-- {
		if job.Messages[i].Role == RoleUser {
			prompt = job.Messages[i].TextContent()
			break
		}
	}
	score := ScoreResponse(prompt, responseText, job.Task)

	e.recorder.RecordUsage(cand.Provider, cand.Model, job.Task, usage, cost)
	e.recorder.RecordQuality(job.Task, score)
	e.recorder.RecordFallbackDepth(attempts)
	if score < QualityEscalationThreshold {
		e.logger.Debug("response scored below quality threshold",
			zap.String("provider", cand.Provider),
			zap.String("model", cand.Model),
			zap.String("task", job.Task),
			zap.Float64("score", score),
		)
	}

	return &ExecutionMetadata{
		RequestID:     requestID,
		Task:          job.Task,
		Agent:         job.Agent,
		Provider:      cand.Provider,
		Model:         cand.Model,
		Vision:        job.Vision,
		Attempts:      attempts,
		Usage:         usage,
		EstimatedCost: cost,
		QualityScore:  score,
		Elapsed:       elapsed,
	}
}
