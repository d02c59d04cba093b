// MockProvider 的 LLM 提供商测试模拟实现。
//
// 支持固定响应、流式输出与错误注入场景。
package mocks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/BaSui01/routeflow/llm"
)

// MockProvider 是 llm.Provider 的模拟实现。
type MockProvider struct {
	mu sync.Mutex

	name string

	// 响应配置
	response     string
	streamChunks []string
	err          *llm.Error
	streamErrAt  int // 在第 N 个 chunk 后注入错误,0 表示不注入

	// Token 使用统计
	promptTokens     int
	completionTokens int

	// 调用记录
	calls          []MockProviderCall
	completionFunc func(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error)
	streamFunc     func(ctx context.Context, req *llm.ChatRequest) (<-chan llm.StreamChunk, error)

	// 行为控制
	delay     time.Duration
	failFirst int // 前 N 次调用失败,之后成功
	callCount int
}

// MockProviderCall 记录单次调用
type MockProviderCall struct {
	Request *llm.ChatRequest
	Err     error
}

// NewMockProvider 创建新的 MockProvider
func NewMockProvider(name string) *MockProvider {
	return &MockProvider{
		name:             name,
		response:         "Mock response",
		promptTokens:     10,
		completionTokens: 20,
	}
}

// WithResponse 设置固定响应内容
func (m *MockProvider) WithResponse(response string) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.response = response
	return m
}

// WithError 设置返回错误
func (m *MockProvider) WithError(err *llm.Error) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// WithStreamChunks 设置流式响应块
func (m *MockProvider) WithStreamChunks(chunks ...string) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streamChunks = chunks
	return m
}

// WithStreamErrAfter 在发出 n 个文本块后注入错误。n 为 0 时错误在任何
// 文本之前发出。需要与 WithError 配合。
func (m *MockProvider) WithStreamErrAfter(n int) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streamErrAt = n + 1
	return m
}

// WithTokenUsage 设置 Token 使用量
func (m *MockProvider) WithTokenUsage(prompt, completion int) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.promptTokens = prompt
	m.completionTokens = completion
	return m
}

// WithDelay 设置响应延迟
func (m *MockProvider) WithDelay(d time.Duration) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
	return m
}

// WithFailFirst 设置前 N 次调用返回错误,之后成功
func (m *MockProvider) WithFailFirst(n int) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failFirst = n
	return m
}

// WithCompletionFunc 设置自定义 Completion 函数
func (m *MockProvider) WithCompletionFunc(fn func(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error)) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completionFunc = fn
	return m
}

// WithStreamFunc 设置自定义 Stream 函数
func (m *MockProvider) WithStreamFunc(fn func(ctx context.Context, req *llm.ChatRequest) (<-chan llm.StreamChunk, error)) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streamFunc = fn
	return m
}

// Calls 返回调用记录的副本
func (m *MockProvider) Calls() []MockProviderCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockProviderCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount 返回总调用次数
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Name 返回 Provider 名称
func (m *MockProvider) Name() string { return m.name }

// HealthCheck 执行健康检查
func (m *MockProvider) HealthCheck(ctx context.Context) (*llm.HealthStatus, error) {
	return &llm.HealthStatus{Healthy: true, Latency: 10 * time.Millisecond}, nil
}

// Completion 生成响应
func (m *MockProvider) Completion(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.callCount++

	if m.delay > 0 {
		m.mu.Unlock()
		select {
		case <-ctx.Done():
			m.mu.Lock()
			m.calls = append(m.calls, MockProviderCall{Request: req, Err: ctx.Err()})
			return nil, ctx.Err()
		case <-time.After(m.delay):
		}
		m.mu.Lock()
	}

	if err := m.pendingError(); err != nil {
		m.calls = append(m.calls, MockProviderCall{Request: req, Err: err})
		return nil, err
	}

	if m.completionFunc != nil {
		resp, err := m.completionFunc(ctx, req)
		m.calls = append(m.calls, MockProviderCall{Request: req, Err: err})
		return resp, err
	}

	resp := &llm.ChatResponse{
		ID:       "mock-response-id",
		Provider: m.name,
		Model:    req.Model,
		Choices: []llm.ChatChoice{{
			Index:        0,
			FinishReason: "stop",
			Message:      llm.NewAssistantMessage(m.response),
		}},
		Usage: llm.ChatUsage{
			PromptTokens:     m.promptTokens,
			CompletionTokens: m.completionTokens,
			TotalTokens:      m.promptTokens + m.completionTokens,
		},
	}
	m.calls = append(m.calls, MockProviderCall{Request: req})
	return resp, nil
}

// Stream 生成流式响应
func (m *MockProvider) Stream(ctx context.Context, req *llm.ChatRequest) (<-chan llm.StreamChunk, error) {
	m.mu.Lock()
	m.callCount++

	if m.streamFunc != nil {
		fn := m.streamFunc
		m.calls = append(m.calls, MockProviderCall{Request: req})
		m.mu.Unlock()
		return fn(ctx, req)
	}

	// streamErrAt == 1 表示错误发生在任何文本之前,等价于连接失败
	if err := m.pendingError(); err != nil && m.streamErrAt <= 1 {
		m.calls = append(m.calls, MockProviderCall{Request: req, Err: err})
		m.mu.Unlock()
		return nil, err
	}

	chunks := m.streamChunks
	if len(chunks) == 0 {
		chunks = []string{m.response}
	}
	errAt := m.streamErrAt
	injectErr := m.err
	usage := &llm.ChatUsage{
		PromptTokens:     m.promptTokens,
		CompletionTokens: m.completionTokens,
		TotalTokens:      m.promptTokens + m.completionTokens,
	}
	m.calls = append(m.calls, MockProviderCall{Request: req})
	m.mu.Unlock()

	ch := make(chan llm.StreamChunk)
	go func() {
		defer close(ch)
		for i, text := range chunks {
			if errAt > 0 && injectErr != nil && i+1 == errAt {
				select {
				case <-ctx.Done():
				case ch <- llm.StreamChunk{Provider: m.name, Err: injectErr}:
				}
				return
			}
			select {
			case <-ctx.Done():
				return
			case ch <- llm.StreamChunk{
				Provider: m.name,
				Model:    req.Model,
				Delta:    llm.NewAssistantMessage(text),
			}:
			}
		}
		select {
		case <-ctx.Done():
		case ch <- llm.StreamChunk{Provider: m.name, Model: req.Model, FinishReason: "stop", Usage: usage}:
		}
	}()
	return ch, nil
}

// pendingError 计算本次调用应返回的错误。调用方须持有锁。
func (m *MockProvider) pendingError() error {
	if m.failFirst > 0 && m.callCount <= m.failFirst {
		return &llm.Error{
			Code:     llm.ErrUpstreamError,
			Message:  fmt.Sprintf("mock provider %s: transient failure %d", m.name, m.callCount),
			Provider: m.name,
		}
	}
	if m.err != nil {
		return m.err
	}
	return nil
}

var _ llm.Provider = (*MockProvider)(nil)

// MockFactory 将固定的名称映射到 MockProvider,实现 llm.ProviderFactory。
type MockFactory struct {
	mu        sync.Mutex
	providers map[string]*MockProvider
}

// NewMockFactory 创建空的 MockFactory
func NewMockFactory() *MockFactory {
	return &MockFactory{providers: make(map[string]*MockProvider)}
}

// Register 注册一个命名 MockProvider,返回该 Provider 以便链式配置
func (f *MockFactory) Register(name string) *MockProvider {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := NewMockProvider(name)
	f.providers[name] = p
	return p
}

// CreateProvider 实现 llm.ProviderFactory
func (f *MockFactory) CreateProvider(name string) (llm.Provider, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.providers[name]
	if !ok {
		return nil, fmt.Errorf("mock factory: unknown provider %q", name)
	}
	return p, nil
}

var _ llm.ProviderFactory = (*MockFactory)(nil)
