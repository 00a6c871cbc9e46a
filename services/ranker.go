package services

import (
	"math"
	"sort"
	"strings"
	"time"

	"crossborder_rag/models"
	"crossborder_rag/utils"
)

const (
	titleHitScore   = 5
	summaryHitScore = 3
	contentHitScore = 1

	recencyMaxBonus    = 10.0
	recencyDaysPerStep = 3.0

	descriptionMaxChars = 300
)

// 时间戳可能来自PostgREST（带或不带时区）或MySQL
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
}

type scoredCandidate struct {
	doc       models.Document
	score     float64
	matched   bool
	published time.Time
}

// RankDocuments 对候选文档打分、过滤未命中、排序并截断到limit条。
// 纯函数：结果只取决于候选集、关键词和now。
func RankDocuments(docs []models.Document, keywords []string, now time.Time, limit int) []models.SearchResult {
	scored := make([]scoredCandidate, 0, len(docs))
	for _, doc := range docs {
		c := scoreDocument(doc, keywords, now)
		if c.matched {
			scored = append(scored, c)
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].published.After(scored[j].published)
	})

	if limit >= 0 && len(scored) > limit {
		scored = scored[:limit]
	}

	results := make([]models.SearchResult, 0, len(scored))
	for _, c := range scored {
		results = append(results, toSearchResult(c))
	}
	return results
}

func scoreDocument(doc models.Document, keywords []string, now time.Time) scoredCandidate {
	titleLower := strings.ToLower(doc.Title)
	summaryLower := strings.ToLower(displaySummary(doc))
	contentLower := strings.ToLower(doc.Content)

	c := scoredCandidate{doc: doc}
	for _, kw := range keywords {
		k := strings.ToLower(kw)
		if k == "" {
			continue
		}
		inTitle := strings.Contains(titleLower, k)
		inSummary := strings.Contains(summaryLower, k)
		if inTitle {
			c.score += titleHitScore
			c.matched = true
		}
		if inSummary {
			c.score += summaryHitScore
			c.matched = true
		}
		if !inTitle && !inSummary && strings.Contains(contentLower, k) {
			c.score += contentHitScore
			c.matched = true
		}
	}

	if ts, ok := ParseTimestamp(doc.PublishedAt()); ok {
		c.published = ts
		c.score += RecencyBonus(ts, now)
	}
	return c
}

// RecencyBonus 线性衰减的新鲜度加分，最低为0
func RecencyBonus(published, now time.Time) float64 {
	days := math.Max(0, now.Sub(published).Hours()/24)
	return math.Max(0, recencyMaxBonus-days/recencyDaysPerStep)
}

// ParseTimestamp 解析文档时间戳，不带时区的按UTC处理
func ParseTimestamp(v string) (time.Time, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, v); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

func displaySummary(doc models.Document) string {
	if doc.Summary != "" {
		return doc.Summary
	}
	return doc.Description
}

func toSearchResult(c scoredCandidate) models.SearchResult {
	title := strings.TrimSpace(c.doc.Title)
	if title == "" {
		title = "Untitled"
	}
	source := strings.TrimSpace(c.doc.Source)
	if source == "" {
		source = "Unknown"
	}
	return models.SearchResult{
		ID:          c.doc.ID,
		Title:       title,
		URL:         strings.TrimSpace(c.doc.URL),
		PublishedAt: c.doc.PublishedAt(),
		Source:      source,
		Description: utils.TruncateRunes(displaySummary(c.doc), descriptionMaxChars),
		Score:       math.Round(c.score*100) / 100,
	}
}
