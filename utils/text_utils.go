package utils

import (
	"strings"
	"unicode/utf8"
)

// DeduplicateSlice 去重字符串切片，保留首次出现的顺序
func DeduplicateSlice(input []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(input))

	for _, val := range input {
		val = strings.TrimSpace(val)
		if val != "" && !seen[val] {
			result = append(result, val)
			seen[val] = true
		}
	}

	return result
}

// RuneLen 字符数
func RuneLen(s string) int {
	return utf8.RuneCountInString(s)
}

// TruncateRunes 截取前n个字符
func TruncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// ChunkRunes 按固定字符数切分文本
func ChunkRunes(s string, size int) []string {
	if s == "" {
		return nil
	}
	if size <= 0 {
		return []string{s}
	}
	chunks := make([]string, 0, utf8.RuneCountInString(s)/size+1)
	start, count := 0, 0
	for pos := range s {
		if count == size {
			chunks = append(chunks, s[start:pos])
			start, count = pos, 0
		}
		count++
	}
	return append(chunks, s[start:])
}

// PreviewText 日志用的文本预览
func PreviewText(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return TruncateRunes(s, n) + "..."
}

// ExtractJSONFromText 从文本中提取JSON部分
func ExtractJSONFromText(text string) string {
	// 优先查找```json和```之间的内容
	const startMarker = "```json"
	if startIdx := strings.Index(text, startMarker); startIdx >= 0 {
		startIdx += len(startMarker)
		if endIdx := strings.Index(text[startIdx:], "```"); endIdx > 0 {
			text = text[startIdx : startIdx+endIdx]
		}
	}

	startIdx := strings.Index(text, "{")
	endIdx := strings.LastIndex(text, "}")
	if startIdx >= 0 && endIdx > startIdx {
		return text[startIdx : endIdx+1]
	}

	// 如果仍然找不到，返回原始文本
	return strings.TrimSpace(text)
}
