package models

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Document 文档库中的一条新闻，摘要已归一化为展示字符串
type Document struct {
	ID          string
	Title       string
	URL         string
	Source      string
	PublishTime string // 发布时间，可能为空
	CreatedAt   string // 入库时间
	Summary     string
	Description string
	Content     string
}

// PublishedAt 有效发布时间：发布时间，其次入库时间，否则为空
func (d Document) PublishedAt() string {
	if d.PublishTime != "" {
		return d.PublishTime
	}
	return d.CreatedAt
}

// StructuredSummary 结构化摘要
type StructuredSummary struct {
	TitleZh             string   `json:"title_zh,omitempty"`
	TLDR                string   `json:"tldr,omitempty"`
	CoreSummary         string   `json:"core_summary,omitempty"`
	IndustryImpact      string   `json:"industry_impact,omitempty"`
	PlatformSaaSInsight string   `json:"platform_saas_insight,omitempty"`
	RiskLevel           string   `json:"risk_level,omitempty"`
	Tags                []string `json:"tags,omitempty"`
}

// Text 拼接非空的子字段
func (s StructuredSummary) Text() string {
	parts := make([]string, 0, 5)
	for _, v := range []string{s.TLDR, s.CoreSummary, s.IndustryImpact, s.PlatformSaaSInsight, s.TitleZh} {
		if v = strings.TrimSpace(v); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, " | ")
}

// SummaryField summary列的原始形态：字符串或结构化对象
type SummaryField struct {
	Raw    string
	Struct *StructuredSummary
}

func (f *SummaryField) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*f = SummaryField{}
		return nil
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = SummaryField{Raw: s}
		return nil
	case data[0] == '{':
		st, err := decodeStructuredSummary(data)
		if err != nil {
			return err
		}
		*f = SummaryField{Struct: st}
		return nil
	default:
		// 其他类型不可展示
		*f = SummaryField{}
		return nil
	}
}

// ParseSummaryColumn 解析SQL列中的摘要：JSON对象按结构化处理，否则视为纯文本
func ParseSummaryColumn(v string) SummaryField {
	trimmed := strings.TrimSpace(v)
	if strings.HasPrefix(trimmed, "{") {
		if st, err := decodeStructuredSummary([]byte(trimmed)); err == nil {
			return SummaryField{Struct: st}
		}
	}
	return SummaryField{Raw: v}
}

// Text 归一化为单个展示字符串
func (f SummaryField) Text() string {
	if f.Struct != nil {
		return f.Struct.Text()
	}
	return f.Raw
}

// decodeStructuredSummary 宽松解析结构化摘要：子字段类型不对时转成字符串，不认识的字段忽略
func decodeStructuredSummary(data []byte) (*StructuredSummary, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}
	return &StructuredSummary{
		TitleZh:             looseString(m["title_zh"]),
		TLDR:                looseString(m["tldr"]),
		CoreSummary:         looseString(m["core_summary"]),
		IndustryImpact:      looseString(m["industry_impact"]),
		PlatformSaaSInsight: looseString(m["platform_saas_insight"]),
		RiskLevel:           looseString(m["risk_level"]),
		Tags:                looseTags(m["tags"]),
	}, nil
}

// looseString 零值和嵌套对象视为空，数组按逗号拼接
func looseString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		if t.String() == "0" {
			return ""
		}
		return t.String()
	case bool:
		if t {
			return "true"
		}
		return ""
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			parts = append(parts, looseString(item))
		}
		return strings.Join(parts, ",")
	default:
		return ""
	}
}

func looseTags(v any) []string {
	switch t := v.(type) {
	case []any:
		tags := make([]string, 0, len(t))
		for _, item := range t {
			if s := strings.TrimSpace(looseString(item)); s != "" {
				tags = append(tags, s)
			}
		}
		return tags
	default:
		if s := strings.TrimSpace(looseString(t)); s != "" {
			return []string{s}
		}
		return nil
	}
}

// FlexibleID 兼容数字和字符串两种主键
type FlexibleID string

func (id *FlexibleID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = FlexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = FlexibleID(n.String())
	return nil
}

// NewsRecord 待入库的新闻，ID只用于自建的MySQL表，REST表的主键由数据库生成
type NewsRecord struct {
	ID          string `json:"-"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Source      string `json:"source"`
	Content     string `json:"content"`
	PublishTime string `json:"publish_time,omitempty"`
	ContentHash string `json:"content_hash"`
}
