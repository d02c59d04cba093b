package llm

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

var (
	tokenizerOnce sync.Once
	tokenizer     *tiktoken.Tiktoken
)

// EstimateTokens 估算文本的 token 数。
// 优先使用 cl100k_base 编码；编码资源不可用（离线环境）时退化为
// 字符数/4 的经验估算。结果只用于成本估算与遥测，不影响路由正确性。
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	tokenizerOnce.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			tokenizer = enc
		}
	})
	if tokenizer != nil {
		return len(tokenizer.Encode(text, nil, nil))
	}
	n := len(text) / 4
	if n == 0 {
		n = 1
	}
	return n
}

// EstimateMessageTokens 估算消息序列的总 token 数（仅文本内容）。
func EstimateMessageTokens(msgs []Message) int {
	total := 0
	for _, m := range msgs {
		total += EstimateTokens(m.TextContent())
	}
	return total
}
