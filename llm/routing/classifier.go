// Package routing 实现请求分类、路由表查找与降级链构造。
// 全部为纯函数/静态查表，不发起任何网络调用——分类器挡在每个请求前面，
// 必须在微秒级返回。
package routing

import (
	"strings"
	"unicode/utf8"
)

// TaskType 是单个请求的规则分类结果，封闭枚举。
type TaskType string

const (
	TaskWebSearch       TaskType = "web_search"
	TaskDeepResearch    TaskType = "deep_research"
	TaskCodeGeneration  TaskType = "code_generation"
	TaskCodeEditing     TaskType = "code_editing"
	TaskReasoning       TaskType = "reasoning"
	TaskQuickQA         TaskType = "quick_qa"
	TaskCreativeWriting TaskType = "creative_writing"
	TaskDataAnalysis    TaskType = "data_analysis"
	TaskLongContext     TaskType = "long_context"
	TaskVision          TaskType = "vision"
	TaskStudy           TaskType = "study"
	TaskGeneral         TaskType = "general"
)

// LongContextCharLimit 是长上下文规则的默认字符上限。
const LongContextCharLimit = 15000

// LongContextFileCount 超过该附件数即判为长上下文。
const LongContextFileCount = 3

// 词典按规则优先级分组。匹配是大小写不敏感的子串匹配——
// 这是启发式规则而非 ML 分类器，误判是产品层接受的取舍。
var (
	codeEditLexicon = []string{
		"fix", "debug", "refactor", "bug", "error in", "not working",
		"修复", "调试", "重构", "报错",
	}
	codeGenVerbs = []string{
		"write", "implement", "build", "create", "generate",
		"写一个", "实现", "编写", "生成",
	}
	codeNouns = []string{
		"function", "code", "script", "class", "program", "api", "algorithm",
		"函数", "代码", "脚本", "程序", "算法",
	}
	researchLexicon = []string{
		"comprehensive", "in-depth", "investigate", "research", "analyze thoroughly",
		"literature", "systematic", "深入", "全面", "调研", "综述",
	}
	freshnessLexicon = []string{
		"latest", "today", "current", "news", "price of", "stock", "weather",
		"recent", "this week", "最新", "今天", "现在", "股价", "天气",
	}
	creativeLexicon = []string{
		"story", "poem", "essay", "fiction", "creative", "lyrics", "novel",
		"故事", "诗", "散文", "小说", "歌词",
	}
	dataLexicon = []string{
		"csv", "dataset", "statistics", "chart", "correlation", "regression",
		"数据分析", "统计", "图表",
	}
	studyLexicon = []string{
		"explain to me", "teach me", "study plan", "quiz me", "flashcard", "exam",
		"homework", "讲解", "学习计划", "考试", "作业",
	}
	definitionalPrefixes = []string{
		"what is", "what's", "who is", "who was", "define", "meaning of",
		"什么是", "是什么",
	}
	reasoningLexicon = []string{
		"why", "compare", "versus", " vs ", "pros and cons", "trade-off",
		"step by step", "prove", "为什么", "比较", "优缺点", "证明",
	}
)

func containsAny(text string, lexicon []string) bool {
	for _, w := range lexicon {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

// Classify 把一个请求归入唯一的任务类型。
// 纯函数且全函数：规则按固定优先级首个命中生效，任何输入都有返回值。
// 图片与超长输入优先于一切关键词规则。
func Classify(lastUserMessage string, hasImages, hasAttachedCode bool, fileCount int) TaskType {
	return ClassifyWithLimit(lastUserMessage, hasImages, hasAttachedCode, fileCount, LongContextCharLimit)
}

// ClassifyWithLimit 与 Classify 相同，但允许调用方覆盖长上下文字符上限。
// charLimit <= 0 时使用 LongContextCharLimit。
func ClassifyWithLimit(lastUserMessage string, hasImages, hasAttachedCode bool, fileCount, charLimit int) TaskType {
	if charLimit <= 0 {
		charLimit = LongContextCharLimit
	}
	if hasImages {
		return TaskVision
	}
	// 上限按字符数衡量,CJK 文本不得因多字节编码提前触发
	if fileCount > LongContextFileCount || utf8.RuneCountInString(lastUserMessage) > charLimit {
		return TaskLongContext
	}

	text := strings.ToLower(lastUserMessage)
	textLen := utf8.RuneCountInString(text)

	if hasAttachedCode && containsAny(text, codeEditLexicon) {
		return TaskCodeEditing
	}
	if containsAny(text, codeGenVerbs) && containsAny(text, codeNouns) {
		return TaskCodeGeneration
	}
	if containsAny(text, researchLexicon) || (textLen > 600 && containsAny(text, reasoningLexicon)) {
		return TaskDeepResearch
	}
	if containsAny(text, freshnessLexicon) {
		return TaskWebSearch
	}
	if containsAny(text, creativeLexicon) {
		return TaskCreativeWriting
	}
	if containsAny(text, dataLexicon) {
		return TaskDataAnalysis
	}
	if containsAny(text, studyLexicon) {
		return TaskStudy
	}
	if textLen < 120 && hasDefinitionalPrefix(text) {
		return TaskQuickQA
	}
	if containsAny(text, reasoningLexicon) {
		return TaskReasoning
	}
	return TaskGeneral
}

func hasDefinitionalPrefix(text string) bool {
	trimmed := strings.TrimSpace(text)
	for _, p := range definitionalPrefixes {
		if strings.HasPrefix(trimmed, p) {
			return true
		}
	}
	return false
}
