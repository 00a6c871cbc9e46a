package services

import (
	"regexp"
	"strings"

	"crossborder_rag/utils"
)

// MaxKeywords 关键词集合上限
const MaxKeywords = 12

var (
	latinTokenRe = regexp.MustCompile(`[A-Za-z][A-Za-z0-9_-]*`)
	cjkTokenRe   = regexp.MustCompile(`[\x{4e00}-\x{9fff}]{2,}`)
)

var enStopwords = toSet(
	"a", "an", "and", "are", "as", "at", "be", "by", "for", "from", "how", "i", "in", "is", "it",
	"of", "on", "or", "that", "the", "this", "to", "was", "we", "what", "when", "where", "who",
	"why", "with", "you", "your", "about", "can", "could", "do", "does", "did", "have", "has",
	"had", "will", "would", "should", "近期", "最近",
)

var cnStopwords = toSet(
	"的", "了", "我", "你", "他", "她", "它", "我们", "你们", "他们", "她们", "它们", "是", "在", "和",
	"与", "及", "或", "就", "都", "而", "及其", "一个", "一些", "这个", "那个", "请问", "一下", "什么",
	"怎么", "如何", "哪些", "有没有", "呢", "吧", "吗", "啊", "呀", "近期", "最近",
)

// expansionRule 问题中出现任一触发词时追加扩展词
type expansionRule struct {
	triggers []string
	terms    []string
}

var expansionRules = []expansionRule{
	{
		triggers: []string{"关税", "税", "tariff"},
		terms:    []string{"tariff", "customs", "duty", "de minimis", "vat"},
	},
	{
		triggers: []string{"支付", "收单", "卡", "checkout"},
		terms:    []string{"payment", "checkout", "card", "chargeback", "fraud"},
	},
	{
		triggers: []string{"物流", "履约"},
		terms:    []string{"logistics", "fulfillment", "freight", "supply chain", "shipping"},
	},
	{
		triggers: []string{"平台", "shopify", "shopline", "amazon", "temu", "tiktok"},
		terms:    []string{"平台", "shopify", "shopline", "amazon", "temu", "tiktok"},
	},
}

// ExtractKeywords 从问题中提取关键词：拉丁词、两字以上的中文片段，去停用词后小写，
// 再按触发词追加领域扩展词。扩展词排在前面，保证截断到12个时不会被挤掉。
func ExtractKeywords(question string) []string {
	text := strings.TrimSpace(question)
	if text == "" {
		return []string{}
	}

	lower := strings.ToLower(text)
	var expanded []string
	for _, rule := range expansionRules {
		if containsAny(lower, rule.triggers) {
			expanded = append(expanded, rule.terms...)
		}
	}

	var literal []string
	for _, tok := range tokenizeQuestion(text) {
		if utils.RuneLen(tok) < 2 {
			continue
		}
		if enStopwords[strings.ToLower(tok)] || cnStopwords[tok] {
			continue
		}
		literal = append(literal, strings.ToLower(tok))
	}

	keywords := utils.DeduplicateSlice(append(expanded, literal...))
	if len(keywords) > MaxKeywords {
		keywords = keywords[:MaxKeywords]
	}
	return keywords
}

func tokenizeQuestion(text string) []string {
	tokens := latinTokenRe.FindAllString(text, -1)
	return append(tokens, cjkTokenRe.FindAllString(text, -1)...)
}

func containsAny(text string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}

func toSet(words ...string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}
