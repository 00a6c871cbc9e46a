package services

import (
	"fmt"
	"strings"

	"crossborder_rag/models"
	"crossborder_rag/utils"
)

const (
	groundedSystemPrompt = "你是跨境电商SaaS的战略分析师。你只能基于我提供的新闻DOC作答。若DOC不包含信息，请明确说信息不足，不要编造。"
	summarySystemPrompt  = "你是跨境 SaaS 战略顾问。请严格基于输入数据，不编造。"

	// MaxSummaryItems 摘要模式最多使用的新闻条数
	MaxSummaryItems = 12

	summaryItemMaxChars = 200
	ingestContentChars  = 4000
)

// buildGroundedPrompt 构建只允许引用新闻库的问答提示词
func buildGroundedPrompt(question, context string) string {
	return strings.TrimSpace(fmt.Sprintf(`
用户问题：
%s

你可用的新闻库（只允许引用这里）：
%s

请输出：
1) 结论摘要（2-3行）
2) 命中的相关新闻（Top N，最多8条，每条带 [编号] + 日期 + 来源 + 标题 + 链接）
3) 影响分析（分点，每点末尾必须带引用编号，如 [1][3]）
4) 建议行动（P0/P1/P2，各1条，必须与引用对应）
若信息不足：在结论里说明“新闻库信息不足/覆盖不够”，并建议需要补充哪些RSS源或关键词。
`, strings.TrimSpace(question), strings.TrimSpace(context)))
}

// groundedMessages 问答模式的消息列表：system在前，user在后
func groundedMessages(question, context string) []ChatMessage {
	return []ChatMessage{
		{Role: "system", Content: groundedSystemPrompt},
		{Role: "user", Content: buildGroundedPrompt(question, context)},
	}
}

// NormalizeNewsItems 过滤空标题并截取前12条
func NormalizeNewsItems(items []models.NewsItem, legacyTitles []string) []models.NewsItem {
	out := make([]models.NewsItem, 0, MaxSummaryItems)
	for _, item := range items {
		if len(out) == MaxSummaryItems {
			return out
		}
		title := strings.TrimSpace(item.Title)
		if title == "" {
			continue
		}
		out = append(out, models.NewsItem{Title: title, Summary: strings.TrimSpace(item.Summary)})
	}
	// 兼容只传标题的旧请求
	for _, title := range legacyTitles {
		if len(out) == MaxSummaryItems {
			break
		}
		if title = strings.TrimSpace(title); title != "" {
			out = append(out, models.NewsItem{Title: title})
		}
	}
	return out
}

// buildSummaryPrompt 构建新闻摘要提示词，items应已经过NormalizeNewsItems
func buildSummaryPrompt(items []models.NewsItem) string {
	lines := make([]string, 0, len(items))
	for idx, item := range items {
		line := fmt.Sprintf("%d. %s", idx+1, item.Title)
		if item.Summary != "" {
			line += "（摘要：" + utils.TruncateRunes(item.Summary, summaryItemMaxChars) + "）"
		}
		lines = append(lines, line)
	}

	return strings.TrimSpace(fmt.Sprintf(`
你是跨境 SaaS 战略顾问。
请基于以下新闻标题，输出一段 100 字左右中文战略摘要，强调：
1) 外部风险信号
2) 对收入结构潜在影响
3) 优先关注方向

新闻标题：
%s
`, strings.Join(lines, "\n")))
}

func summaryMessages(items []models.NewsItem) []ChatMessage {
	return []ChatMessage{
		{Role: "system", Content: summarySystemPrompt},
		{Role: "user", Content: buildSummaryPrompt(items)},
	}
}

// buildIngestSummaryPrompt 入库时为单条新闻生成结构化摘要
func buildIngestSummaryPrompt(title, content string) string {
	prompt := `你是一名专注跨境电商SaaS平台战略的行业分析师。

请基于以下新闻内容，输出严格 JSON（不要 Markdown，不要代码块，不要额外解释）。

输出 JSON 必须包含以下字段：
{
  "title_zh": "新闻中文标题（简洁准确，不超过40字）",
  "tldr": "一句话战略判断（<=120字）",
  "core_summary": "核心内容摘要",
  "industry_impact": "对跨境电商行业的影响",
  "platform_saas_insight": "对平台型SaaS的启示",
  "risk_level": "低",
  "tags": ["平台"]
}

约束：
1) risk_level 只能是：低/中/高
2) 仅输出合法 JSON

特别规则：如果正文信息不足，请在 tldr 中简要说明原因（例如“信息不足，判断置信度较低”）。

新闻标题：
{title}

新闻正文：
{content}
`
	// 模板里有大量花括号，不能用Sprintf
	return strings.NewReplacer(
		"{title}", title,
		"{content}", utils.TruncateRunes(content, ingestContentChars),
	).Replace(prompt)
}
