package routing

import (
	"testing"

	"pgregory.net/rapid"
)

var allTaskTypes = map[TaskType]bool{
	TaskWebSearch:       true,
	TaskDeepResearch:    true,
	TaskCodeGeneration:  true,
	TaskCodeEditing:     true,
	TaskReasoning:       true,
	TaskQuickQA:         true,
	TaskCreativeWriting: true,
	TaskDataAnalysis:    true,
	TaskLongContext:     true,
	TaskVision:          true,
	TaskStudy:           true,
	TaskGeneral:         true,
}

// 分类器是全函数:任何输入都落入封闭枚举,且确定性可重放。
func TestClassifyTotalAndDeterministic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		msg := rapid.String().Draw(t, "msg")
		hasImages := rapid.Bool().Draw(t, "hasImages")
		hasCode := rapid.Bool().Draw(t, "hasCode")
		files := rapid.IntRange(0, 32).Draw(t, "files")

		got := Classify(msg, hasImages, hasCode, files)
		if !allTaskTypes[got] {
			t.Fatalf("Classify returned value outside the enum: %q", got)
		}
		if again := Classify(msg, hasImages, hasCode, files); again != got {
			t.Fatalf("Classify is not deterministic: %q then %q", got, again)
		}
	})
}

// 图片形态规则绝对优先:带图片的输入永远归为 vision。
func TestClassifyImagesAlwaysVision(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		msg := rapid.String().Draw(t, "msg")
		files := rapid.IntRange(0, 32).Draw(t, "files")
		if got := Classify(msg, true, rapid.Bool().Draw(t, "hasCode"), files); got != TaskVision {
			t.Fatalf("input with images classified as %q", got)
		}
	})
}

// 复杂度估分始终落在 [0, 1] 区间。
func TestEstimateComplexityRange(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		msg := rapid.String().Draw(t, "msg")
		files := rapid.IntRange(0, 64).Draw(t, "files")
		isEdit := rapid.Bool().Draw(t, "isEdit")

		score := EstimateComplexity(msg, files, isEdit)
		if score < 0 || score > 1 {
			t.Fatalf("complexity score %f out of range", score)
		}
	})
}
