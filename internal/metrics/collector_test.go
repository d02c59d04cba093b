package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/BaSui01/routeflow/llm"
)

// promauto 注册到全局 Registry,每个测试用唯一 namespace 避免重复注册。
func uniqueNamespace(t *testing.T) string {
	return fmt.Sprintf("test_%d", time.Now().UnixNano())
}

func TestRecordAttempt(t *testing.T) {
	c := NewCollector(uniqueNamespace(t), nil)

	c.RecordAttempt("openai", "gpt-4o-mini", llm.FailureAuth, false)
	c.RecordAttempt("openai", "gpt-4o-mini", llm.FailureAuth, false)
	c.RecordAttempt("deepseek", "deepseek-chat", "", true)

	failed := c.attemptsTotal.WithLabelValues("openai", "gpt-4o-mini", string(llm.FailureAuth), "false")
	assert.Equal(t, 2.0, testutil.ToFloat64(failed))

	ok := c.attemptsTotal.WithLabelValues("deepseek", "deepseek-chat", "", "true")
	assert.Equal(t, 1.0, testutil.ToFloat64(ok))
}

func TestRecordUsage(t *testing.T) {
	c := NewCollector(uniqueNamespace(t), nil)

	usage := llm.ChatUsage{PromptTokens: 100, CompletionTokens: 40, TotalTokens: 140}
	c.RecordUsage("openai", "gpt-4o-mini", "chat", usage, 0.0007)
	c.RecordUsage("openai", "gpt-4o-mini", "chat", usage, 0)

	prompt := c.tokensUsed.WithLabelValues("openai", "gpt-4o-mini", "chat", "prompt")
	assert.Equal(t, 200.0, testutil.ToFloat64(prompt))

	completion := c.tokensUsed.WithLabelValues("openai", "gpt-4o-mini", "chat", "completion")
	assert.Equal(t, 80.0, testutil.ToFloat64(completion))

	// 零成本不累计
	cost := c.costTotal.WithLabelValues("openai", "gpt-4o-mini", "chat")
	assert.InDelta(t, 0.0007, testutil.ToFloat64(cost), 1e-9)
}

func TestRecordExhausted(t *testing.T) {
	c := NewCollector(uniqueNamespace(t), nil)

	c.RecordExhausted("vision")
	c.RecordExhausted("vision")
	c.RecordExhausted("chat")

	assert.Equal(t, 2.0, testutil.ToFloat64(c.exhaustedTotal.WithLabelValues("vision")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.exhaustedTotal.WithLabelValues("chat")))
}

func TestRecordQualityAndDepth(t *testing.T) {
	c := NewCollector(uniqueNamespace(t), nil)

	// Histogram 只验证不 panic 且实现完整的 Recorder 接口
	c.RecordQuality("chat", 8.5)
	c.RecordFallbackDepth(2)

	var _ llm.Recorder = c
}
