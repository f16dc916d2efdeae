// Package intent 提供基于关键词的意图识别：精确子串 + 编辑距离容错。
package intent

import (
	"regexp"
	"strings"

	"github.com/agnivade/levenshtein"
)

// DefaultMaxDistance 单词关键词允许的最大编辑距离
const DefaultMaxDistance = 1

// TranscriptKeywords 触发字幕流程的关键词
var TranscriptKeywords = []string{
	"transcript",
	"transcripts",
	"script",
	"scripts",
	"caption",
	"captions",
	"subtitle",
	"subtitles",
	"notes",
	"summary",
	"summaries",
	"summarize",
	"summarized",
	"synopsis",
	"recap",
	"overview",
	"detailed summary",
	"full summary",
}

var tokenPattern = regexp.MustCompile(`[a-z0-9]+`)

// Tokenize 把文本切分为小写字母数字词
func Tokenize(text string) []string {
	return tokenPattern.FindAllString(strings.ToLower(text), -1)
}

// Matches 判断文本是否命中任一关键词
// 多词关键词只做子串匹配；单词关键词额外允许 maxDistance 以内的拼写偏差，
// 相邻字符互换（transcirpt）按一次编辑计。
func Matches(text string, keywords []string, maxDistance int) bool {
	normalized := strings.ToLower(text)
	if strings.TrimSpace(normalized) == "" {
		return false
	}

	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" && strings.Contains(normalized, kw) {
			return true
		}
	}
	if maxDistance <= 0 {
		return false
	}

	tokens := Tokenize(normalized)
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" || strings.ContainsAny(kw, " \t") {
			continue
		}
		for _, token := range tokens {
			if withinDistance(token, kw, maxDistance) {
				return true
			}
		}
	}
	return false
}

func withinDistance(a, b string, max int) bool {
	diff := len(a) - len(b)
	if diff < 0 {
		diff = -diff
	}
	if diff > max {
		return false
	}
	if levenshtein.ComputeDistance(a, b) <= max {
		return true
	}
	return max >= 1 && isAdjacentSwap(a, b)
}

// isAdjacentSwap a 与 b 是否只差一次相邻字符互换
func isAdjacentSwap(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	i := 0
	for i < len(a) && a[i] == b[i] {
		i++
	}
	if i+1 >= len(a) {
		return false
	}
	return a[i] == b[i+1] && a[i+1] == b[i] && a[i+2:] == b[i+2:]
}

// Matcher 绑定关键词集合与容错距离
type Matcher struct {
	keywords    []string
	maxDistance int
}

// NewMatcher 创建匹配器；maxDistance < 0 时使用默认值
func NewMatcher(keywords []string, maxDistance int) *Matcher {
	if maxDistance < 0 {
		maxDistance = DefaultMaxDistance
	}
	return &Matcher{keywords: keywords, maxDistance: maxDistance}
}

// NewTranscriptMatcher 字幕意图匹配器
func NewTranscriptMatcher(maxDistance int) *Matcher {
	return NewMatcher(TranscriptKeywords, maxDistance)
}

// Match 判断文本是否命中
func (m *Matcher) Match(text string) bool {
	return Matches(text, m.keywords, m.maxDistance)
}
