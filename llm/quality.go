package llm

import "strings"

// QualityEscalationThreshold 低于该分数的响应被标记为"本应升级"。
// 评分在参考系统中仅用于遥测，不触发自动重执行。
const QualityEscalationThreshold = 7.0

var hedgingPhrases = []string{
	"i'm not sure", "i am not sure", "i cannot", "i can't", "as an ai",
	"i don't have access", "it depends", "i apologize", "unfortunately i",
	"我不确定", "我无法", "作为一个", "抱歉",
}

var citationMarkers = []string{
	"http://", "https://", "[1]", "[2]", "according to", "source:", "参考",
}

// ScoreResponse 对完成的响应做事后启发式质量评分，0-10。
// 满分起步逐项扣减：
//   - 响应过短（相对请求长度）扣分
//   - 闪避措辞密度高扣分
//   - 编码任务缺少代码块扣分
//   - 研究任务缺少引用扣分
//   - 近重复句比例高扣分
//
// task 为空串时跳过任务相关项。确定性计算，无 I/O。
func ScoreResponse(prompt, response, task string) float64 {
	score := 10.0
	resp := strings.TrimSpace(response)
	if resp == "" {
		return 0
	}
	lower := strings.ToLower(resp)

	// 长度比：实质性问题得到一两句话通常是敷衍
	if len(prompt) > 80 && len(resp) < len(prompt)/4 {
		score -= 2.0
	}
	if len(resp) < 40 {
		score -= 1.5
	}

	// 闪避措辞密度
	hedges := 0
	for _, p := range hedgingPhrases {
		hedges += strings.Count(lower, p)
	}
	switch {
	case hedges >= 3:
		score -= 3.0
	case hedges == 2:
		score -= 2.0
	case hedges == 1:
		score -= 1.0
	}

	switch task {
	case "code_generation", "code_editing":
		if !strings.Contains(resp, "```") {
			score -= 2.5
		}
	case "deep_research", "web_search":
		if !containsAnyFold(lower, citationMarkers) {
			score -= 1.5
		}
	}

	if dupRatio := duplicateSentenceRatio(resp); dupRatio > 0.3 {
		score -= 2.0
	}

	if score < 0 {
		score = 0
	}
	return score
}

func containsAnyFold(lower string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// duplicateSentenceRatio 返回重复句占比，度量模型"打转"输出。
func duplicateSentenceRatio(text string) float64 {
	sentences := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?' || r == '\n' || r == '。'
	})
	if len(sentences) < 4 {
		return 0
	}
	seen := make(map[string]bool, len(sentences))
	dups := 0
	total := 0
	for _, s := range sentences {
		s = strings.ToLower(strings.TrimSpace(s))
		if len(s) < 12 {
			continue
		}
		total++
		if seen[s] {
			dups++
		}
		seen[s] = true
	}
	if total == 0 {
		return 0
	}
	return float64(dups) / float64(total)
}
