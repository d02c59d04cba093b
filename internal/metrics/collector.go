// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/BaSui01/routeflow/llm"
)

// Collector 指标收集器，实现 llm.Recorder。
type Collector struct {
	// 执行指标
	attemptsTotal     *prometheus.CounterVec
	fallbackDepth     prometheus.Histogram
	exhaustedTotal    *prometheus.CounterVec

	// 用量指标
	tokensUsed *prometheus.CounterVec
	costTotal  *prometheus.CounterVec

	// 质量指标
	qualityScore *prometheus.HistogramVec

	logger *zap.Logger
}

// NewCollector 创建指标收集器
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.attemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_attempts_total",
			Help:      "Total number of candidate attempts by outcome",
		},
		[]string{"provider", "model", "kind", "ok"},
	)

	c.fallbackDepth = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_fallback_depth",
			Help:      "Number of candidates tried before success",
			Buckets:   []float64{1, 2, 3, 4, 5, 8},
		},
	)

	c.exhaustedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_chain_exhausted_total",
			Help:      "Total number of fully exhausted fallback chains",
		},
		[]string{"task"},
	)

	c.tokensUsed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_tokens_used_total",
			Help:      "Total number of tokens used",
		},
		[]string{"provider", "model", "task", "type"},
	)

	c.costTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_cost_usd_total",
			Help:      "Estimated LLM cost in USD",
		},
		[]string{"provider", "model", "task"},
	)

	c.qualityScore = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_quality_score",
			Help:      "Heuristic response quality score (0-10)",
			Buckets:   []float64{2, 4, 6, 7, 8, 9, 10},
		},
		[]string{"task"},
	)

	return c
}

// RecordAttempt 记录一次候选尝试的结果。
func (c *Collector) RecordAttempt(provider, model string, kind llm.FailureKind, ok bool) {
	c.attemptsTotal.WithLabelValues(provider, model, string(kind), strconv.FormatBool(ok)).Inc()
}

// RecordUsage 记录 token 用量与估算成本。
func (c *Collector) RecordUsage(provider, model, task string, usage llm.ChatUsage, cost float64) {
	c.tokensUsed.WithLabelValues(provider, model, task, "prompt").Add(float64(usage.PromptTokens))
	c.tokensUsed.WithLabelValues(provider, model, task, "completion").Add(float64(usage.CompletionTokens))
	if cost > 0 {
		c.costTotal.WithLabelValues(provider, model, task).Add(cost)
	}
}

// RecordQuality 记录响应质量评分。
func (c *Collector) RecordQuality(task string, score float64) {
	c.qualityScore.WithLabelValues(task).Observe(score)
}

// RecordFallbackDepth 记录成功前尝试的候选数。
func (c *Collector) RecordFallbackDepth(depth int) {
	c.fallbackDepth.Observe(float64(depth))
}

// RecordExhausted 记录整条链耗尽的次数。
func (c *Collector) RecordExhausted(task string) {
	c.exhaustedTotal.WithLabelValues(task).Inc()
}

var _ llm.Recorder = (*Collector)(nil)
