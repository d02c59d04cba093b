// Package routeflow provides the top-level entry point for model routing and
// resilient execution: classify the conversation, build a fallback chain of
// provider/model candidates, and execute it with automatic failover.
//
// Usage:
//
//	eng, err := routeflow.New(routeflow.WithCredentials(llm.CredentialsFromEnv()))
//	resp, meta, err := eng.Chat(ctx, routeflow.Request{
//	    Messages: []llm.Message{llm.NewUserMessage("explain goroutines")},
//	})
package routeflow

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/BaSui01/routeflow/config"
	"github.com/BaSui01/routeflow/llm"
	"github.com/BaSui01/routeflow/llm/factory"
	"github.com/BaSui01/routeflow/llm/routing"
)

// Request 描述一次对话执行：消息、路由提示与可选的手动覆盖。
type Request struct {
	// Messages 对话历史，至少包含一条 user 消息
	Messages []llm.Message

	// Agent 显式角色路由，留空则走任务分类
	Agent routing.AgentRole

	// DeepSearch chat 角色的深度研究升级开关
	DeepSearch bool

	// ModelOverride "provider/model" 形式的手动覆盖，空串表示不覆盖
	ModelOverride string

	// ContextBlocks 检索到的上下文块，拼接进 system 消息
	ContextBlocks []string

	// FileCount 本轮附带的文件数
	FileCount int

	// HasAttachedCode 是否附带了代码文件
	HasAttachedCode bool

	// IsEdit 是否为编辑既有内容的请求（影响复杂度估计）
	IsEdit bool
}

// Engine 将路由与执行组合成单一入口。
// 实例并发安全，进程内建一次即可。
type Engine struct {
	reg          *llm.Registry
	exec         *llm.Executor
	logger       *zap.Logger
	sysPrompt    string
	longCtxLimit int
}

// Option 配置 Engine。
type Option func(*options)

type options struct {
	cfg      *config.Config
	creds    llm.Credentials
	logger   *zap.Logger
	recorder llm.Recorder
	factory  llm.ProviderFactory
}

// WithConfig 使用完整配置构建 Engine。
func WithConfig(cfg *config.Config) Option {
	return func(o *options) { o.cfg = cfg }
}

// WithCredentials 注入凭据快照，优先于配置文件。
func WithCredentials(creds llm.Credentials) Option {
	return func(o *options) { o.creds = creds }
}

// WithLogger 设置自定义 zap logger。
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithRecorder 设置遥测接收器。
func WithRecorder(r llm.Recorder) Option {
	return func(o *options) { o.recorder = r }
}

// WithFactory 替换 Provider 工厂。主要供测试注入 mock。
func WithFactory(f llm.ProviderFactory) Option {
	return func(o *options) { o.factory = f }
}

// New 构建 Engine。未给出的依赖取默认：配置走 DefaultConfig，
// 凭据走约定环境变量，工厂按凭据目录惰性创建 Provider。
func New(opts ...Option) (*Engine, error) {
	var o options
	for _, apply := range opts {
		apply(&o)
	}

	cfg := o.cfg
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := o.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	creds := o.creds
	if creds == nil {
		creds = cfg.Credentials()
	}
	reg := llm.NewRegistry(creds)

	pf := o.factory
	if pf == nil {
		pf = factory.New(reg, logger)
	}

	exec := llm.NewExecutor(pf, llm.ExecutorOptions{
		CandidateTimeout: cfg.Engine.CandidateTimeout,
		Logger:           logger,
		Recorder:         o.recorder,
	})

	return &Engine{
		reg:          reg,
		exec:         exec,
		logger:       logger,
		sysPrompt:    cfg.Engine.SystemPrompt,
		longCtxLimit: cfg.Engine.LongContextChars,
	}, nil
}

// Registry 暴露只读的 Provider 目录，供运维面查询。
func (e *Engine) Registry() *llm.Registry { return e.reg }

// Chat 同步执行一次对话：分类 → 建链 → 沿链执行。
func (e *Engine) Chat(ctx context.Context, req Request) (*llm.ChatResponse, *llm.ExecutionMetadata, error) {
	job, err := e.prepare(req)
	if err != nil {
		return nil, nil, err
	}
	return e.exec.Execute(ctx, *job)
}

// ChatStream 流式执行一次对话。事件序列见 llm.ExecutionEvent。
func (e *Engine) ChatStream(ctx context.Context, req Request) (<-chan llm.ExecutionEvent, error) {
	job, err := e.prepare(req)
	if err != nil {
		return nil, err
	}
	return e.exec.ExecuteStream(ctx, *job)
}

// prepare 把对话请求翻译成执行任务：注入上下文、分类或角色路由、建链、归一化。
func (e *Engine) prepare(req Request) (*llm.ExecutionJob, error) {
	if len(req.Messages) == 0 {
		return nil, &llm.Error{
			Code:       llm.ErrInvalidRequest,
			Message:    "at least one message is required",
			HTTPStatus: http.StatusBadRequest,
		}
	}

	msgs := req.Messages
	if e.sysPrompt != "" && !hasSystemMessage(msgs) {
		msgs = append([]llm.Message{llm.NewSystemMessage(e.sysPrompt)}, msgs...)
	}
	msgs = llm.SpliceContextBlocks(msgs, req.ContextBlocks)

	hasImages := llm.HasImages(msgs)
	lastUser := lastUserText(msgs)

	override, err := routing.ParseOverride(req.ModelOverride, e.reg)
	if err != nil {
		return nil, err
	}

	snap := e.reg.Availability()
	chainReq := routing.ChainRequest{HasImages: hasImages, FileCount: req.FileCount}

	var chain []llm.ModelConfig
	var task routing.TaskType
	if req.Agent != "" {
		if !routing.ValidAgentRole(req.Agent) {
			return nil, &llm.Error{
				Code:       llm.ErrInvalidRequest,
				Message:    fmt.Sprintf("unknown agent role %q", req.Agent),
				HTTPStatus: http.StatusBadRequest,
			}
		}
		agentCtx := routing.AgentContext{
			DeepSearch: req.DeepSearch,
			Complexity: routing.EstimateComplexity(lastUser, req.FileCount, req.IsEdit),
		}
		chain, err = routing.BuildAgentChain(req.Agent, agentCtx, chainReq, e.reg, snap, override)
	} else {
		task = routing.ClassifyWithLimit(lastUser, hasImages, req.HasAttachedCode, req.FileCount, e.longCtxLimit)
		chain, err = routing.BuildTaskChain(task, chainReq, e.reg, snap, override)
	}
	if err != nil {
		return nil, err
	}

	e.logger.Debug("fallback chain built",
		zap.String("task", string(task)),
		zap.String("agent", string(req.Agent)),
		zap.Bool("vision", hasImages),
		zap.Int("chain_len", len(chain)),
		zap.String("head", chain[0].Key()),
	)

	return &llm.ExecutionJob{
		Chain:    chain,
		Messages: llm.NormalizeMessages(msgs, llm.NormalizeOptions{}),
		Task:     string(task),
		Agent:    string(req.Agent),
		Vision:   hasImages,
	}, nil
}

func hasSystemMessage(msgs []llm.Message) bool {
	for _, m := range msgs {
		if m.Role == llm.RoleSystem {
			return true
		}
	}
	return false
}

// lastUserText 返回最后一条 user 消息的文本内容。
func lastUserText(msgs []llm.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == llm.RoleUser {
			return msgs[i].TextContent()
		}
	}
	return ""
}

