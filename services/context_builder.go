package services

import (
	"fmt"
	"strings"

	"crossborder_rag/models"
	"crossborder_rag/utils"
)

const (
	// DefaultContextMaxChars 上下文默认预算
	DefaultContextMaxChars = 6000

	snippetMaxChars = 320
	// minUsefulChars 剩余预算不超过该值时不再截断追加
	minUsefulChars = 80
)

// RenderContextBlock 渲染单条文档，idx从0开始
func RenderContextBlock(idx int, doc models.SearchResult) string {
	return strings.Join([]string{
		fmt.Sprintf("[DOC %d]", idx+1),
		"Title: " + doc.Title,
		"Date: " + doc.PublishedAt,
		"Source: " + doc.Source,
		"URL: " + doc.URL,
		"Snippet: " + utils.TruncateRunes(doc.Description, snippetMaxChars),
		"",
	}, "\n")
}

// BuildContext 拼接检索结果，总字符数（含块间分隔符）不超过maxChars
func BuildContext(docs []models.SearchResult, maxChars int) string {
	var b strings.Builder
	used := 0

	for idx, doc := range docs {
		if used >= maxChars {
			break
		}
		block := RenderContextBlock(idx, doc)
		if idx > 0 {
			block = "\n" + block
		}
		remaining := maxChars - used
		size := utils.RuneLen(block)

		if size <= remaining {
			b.WriteString(block)
			used += size
			continue
		}
		if remaining > minUsefulChars {
			b.WriteString(utils.TruncateRunes(block, remaining))
		}
		break
	}

	return strings.TrimSpace(b.String())
}
