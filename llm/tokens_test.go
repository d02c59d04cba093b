package llm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Greater(t, EstimateTokens("hello world"), 0)

	// 更长的文本估算出更多 token
	short := EstimateTokens("one sentence.")
	long := EstimateTokens(strings.Repeat("one sentence. ", 50))
	assert.Greater(t, long, short)
}

func TestEstimateMessageTokens(t *testing.T) {
	msgs := []Message{
		NewSystemMessage("you are helpful"),
		NewUserMessage("summarize this article for me"),
	}
	total := EstimateMessageTokens(msgs)
	assert.Greater(t, total, 0)
	assert.Equal(t, 0, EstimateMessageTokens(nil))

	// 图片片段不计入，只有文本参与估算
	multi := []Message{NewUserMultipart(TextPart("describe"), ImagePart("aGVsbG8=", "image/png"))}
	assert.Equal(t, EstimateTokens("describe"), EstimateMessageTokens(multi))
}
