package llm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScoreResponse(t *testing.T) {
	goodAnswer := "Binary search works by repeatedly halving the search interval. " +
		"Start with the full sorted slice, compare the middle element to the target, " +
		"then recurse into the half that can still contain it. The running time is O(log n)."

	t.Run("空响应得零分", func(t *testing.T) {
		assert.Equal(t, 0.0, ScoreResponse("any prompt", "", ""))
		assert.Equal(t, 0.0, ScoreResponse("any prompt", "   \n ", ""))
	})

	t.Run("实质性回答接近满分", func(t *testing.T) {
		score := ScoreResponse("explain binary search", goodAnswer, "")
		assert.GreaterOrEqual(t, score, 9.0)
	})

	t.Run("闪避措辞逐条扣分", func(t *testing.T) {
		one := ScoreResponse("q", "I'm not sure, but binary search halves the interval each step until found.", "")
		three := ScoreResponse("q", "I'm not sure. I cannot say. As an AI, it depends on many things entirely.", "")
		assert.Greater(t, one, three)
	})

	t.Run("编码任务缺少代码块扣分", func(t *testing.T) {
		prose := "You could reverse the string by iterating from the end and appending each rune to a builder."
		withCode := "Here is one way:\n```go\nfunc Reverse(s string) string { /* ... */ }\n```\nThis handles multi-byte runes."
		assert.Less(t, ScoreResponse("write a reverse function", prose, "code_generation"),
			ScoreResponse("write a reverse function", withCode, "code_generation"))
	})

	t.Run("研究任务缺少引用扣分", func(t *testing.T) {
		cited := "The population grew 2% last year according to the national census bureau report."
		uncited := "The population grew quite a bit last year based on general trends everywhere."
		assert.Greater(t, ScoreResponse("research population growth", cited, "deep_research"),
			ScoreResponse("research population growth", uncited, "deep_research"))
	})

	t.Run("相对请求过短的响应扣分", func(t *testing.T) {
		longPrompt := strings.Repeat("please compare the tradeoffs in detail ", 10)
		short := ScoreResponse(longPrompt, "It depends.", "")
		full := ScoreResponse(longPrompt, goodAnswer, "")
		assert.Greater(t, full, short)
	})

	t.Run("重复句比例高扣分", func(t *testing.T) {
		sentence := "The answer is always the same thing here."
		looping := strings.Repeat(sentence+" ", 8)
		assert.Less(t, ScoreResponse("q", looping, ""), ScoreResponse("q", goodAnswer, ""))
	})

	t.Run("分数下限为零", func(t *testing.T) {
		bad := "I'm not sure. I cannot. As an AI, unfortunately I apologize, it depends."
		score := ScoreResponse(strings.Repeat("long detailed prompt ", 20), bad, "code_generation")
		assert.GreaterOrEqual(t, score, 0.0)
		assert.LessOrEqual(t, score, 10.0)
	})
}

func TestDuplicateSentenceRatio(t *testing.T) {
	t.Run("少于四句不计", func(t *testing.T) {
		assert.Equal(t, 0.0, duplicateSentenceRatio("One sentence only appears here."))
	})

	t.Run("完全重复接近 1", func(t *testing.T) {
		s := strings.Repeat("the exact same sentence repeats again. ", 6)
		assert.Greater(t, duplicateSentenceRatio(s), 0.5)
	})

	t.Run("全不重复为零", func(t *testing.T) {
		s := "First point about routing. Second point about fallbacks. Third point about streaming. Fourth point about scoring."
		assert.Equal(t, 0.0, duplicateSentenceRatio(s))
	})
}
