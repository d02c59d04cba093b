package routing

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		message   string
		hasImages bool
		hasCode   bool
		fileCount int
		want      TaskType
	}{
		// 形态规则优先于一切关键词
		{"图片压倒关键词", "write a function to parse this image", true, false, 0, TaskVision},
		{"超长输入判为长上下文", strings.Repeat("x", LongContextCharLimit+1), false, false, 0, TaskLongContext},
		{"超长输入压倒编码词典", "write a function " + strings.Repeat("x", LongContextCharLimit), false, false, 0, TaskLongContext},
		{"附件数超限判为长上下文", "summarize these", false, false, LongContextFileCount + 1, TaskLongContext},
		{"图片优先于长上下文", strings.Repeat("x", LongContextCharLimit+1), true, false, 5, TaskVision},

		// 编码
		{"生成动词加编码名词", "Write a Python function to reverse a string", false, false, 0, TaskCodeGeneration},
		{"中文编码生成", "写一个快速排序的函数", false, false, 0, TaskCodeGeneration},
		{"带附件代码的修复请求", "fix the bug in my handler", false, true, 0, TaskCodeEditing},
		{"无附件代码时不判编辑", "fix the bug in my handler code", false, false, 0, TaskGeneral},
		{"只有动词无名词不判编码", "write me a poem about rivers", false, false, 0, TaskCreativeWriting},

		// 研究与检索
		{"研究词典命中", "do an in-depth literature review of retrieval methods", false, false, 0, TaskDeepResearch},
		{"时效词典命中", "what's the latest news about the election", false, false, 0, TaskWebSearch},
		{"天气查询", "weather in tokyo tomorrow", false, false, 0, TaskWebSearch},

		// 其余类别
		{"创作请求", "tell me a story about a lighthouse keeper", false, false, 0, TaskCreativeWriting},
		{"数据分析请求", "compute the correlation between these columns", false, false, 0, TaskDataAnalysis},
		{"学习请求", "teach me the basics of linear algebra", false, false, 0, TaskStudy},
		{"短定义式问题", "what is a monad", false, false, 0, TaskQuickQA},
		{"中文定义式问题", "什么是闭包", false, false, 0, TaskQuickQA},
		{"推理请求", "prove that the sum of two even numbers is even", false, false, 0, TaskReasoning},
		{"比较请求", "compare postgres and mysql for this workload", false, false, 0, TaskReasoning},
		{"兜底为 general", "hello there", false, false, 0, TaskGeneral},
		{"空输入兜底为 general", "", false, false, 0, TaskGeneral},

		// 优先级边界
		{"研究词优先于时效词", "comprehensive research on current market trends", false, false, 0, TaskDeepResearch},
		{"定义式前缀但过长不判 QuickQA", "what is " + strings.Repeat("the meaning of this phrase ", 10), false, false, 0, TaskGeneral},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.message, tt.hasImages, tt.hasCode, tt.fileCount)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassifyCaseInsensitive(t *testing.T) {
	assert.Equal(t, TaskCodeGeneration, Classify("WRITE A FUNCTION TO SORT NUMBERS", false, false, 0))
	assert.Equal(t, TaskWebSearch, Classify("LATEST Stock movements", false, false, 0))
}

func TestClassifyWithLimit(t *testing.T) {
	msg := strings.Repeat("a", 500)

	t.Run("自定义上限生效", func(t *testing.T) {
		assert.Equal(t, TaskLongContext, ClassifyWithLimit(msg, false, false, 0, 400))
		assert.Equal(t, TaskGeneral, ClassifyWithLimit(msg, false, false, 0, 600))
	})

	t.Run("零值回落到内置上限", func(t *testing.T) {
		assert.Equal(t, TaskGeneral, ClassifyWithLimit(msg, false, false, 0, 0))
		long := strings.Repeat("a", LongContextCharLimit+1)
		assert.Equal(t, TaskLongContext, ClassifyWithLimit(long, false, false, 0, -1))
	})
}

func TestClassifyLengthCountsRunes(t *testing.T) {
	// 每个汉字 3 字节:按字节衡量早已超限,按字符衡量远未触线
	cjk := strings.Repeat("天", LongContextCharLimit/2)
	assert.Equal(t, TaskGeneral, Classify(cjk, false, false, 0))

	over := strings.Repeat("天", LongContextCharLimit+1)
	assert.Equal(t, TaskLongContext, Classify(over, false, false, 0))
}
