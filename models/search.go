package models

// SearchResult 排序后返回给调用方的一条命中
type SearchResult struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	URL         string  `json:"url"`
	PublishedAt string  `json:"published_at"`
	Source      string  `json:"source"`
	Description string  `json:"description"`
	Score       float64 `json:"score"`
}

// GroundedAnswer 基于新闻库的问答结果
type GroundedAnswer struct {
	Answer  string         `json:"answer"`
	Sources []SearchResult `json:"sources"`
	// Degraded 为true表示大模型不可用，答案由命中列表兜底生成
	Degraded bool `json:"-"`
}

// NewsItem 摘要模式的输入条目
type NewsItem struct {
	Title   string `json:"title" example:"Temu调整欧盟物流方案"`
	Summary string `json:"summary,omitempty"`
}

// IngestStats 一次入库的统计
type IngestStats struct {
	Inserted int `json:"inserted"`
	Skipped  int `json:"skipped"`
	Filtered int `json:"filtered"`
	Errors   int `json:"errors"`
}
