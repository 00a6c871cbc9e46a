package services

import (
	"context"
	"errors"

	"crossborder_rag/config"
	"crossborder_rag/logger"
	"crossborder_rag/models"
)

// ErrNoNewsItems 摘要请求没有可用的新闻
var ErrNoNewsItems = errors.New("newsItems is required")

// SummaryService 基于新闻标题和摘要流式生成战略摘要
type SummaryService struct {
	llm         Completer
	temperature float64
	maxTokens   int
}

func NewSummaryService(llm Completer, cfg *config.Config) *SummaryService {
	s := &SummaryService{llm: llm, temperature: 0.5, maxTokens: 500}
	if cfg != nil {
		if cfg.LLM.SummaryTemperature > 0 {
			s.temperature = cfg.LLM.SummaryTemperature
		}
		if cfg.LLM.SummaryMaxTokens > 0 {
			s.maxTokens = cfg.LLM.SummaryMaxTokens
		}
	}
	return s
}

// Stream 开启上游流式调用。上游在开流前失败时返回错误，之后的失败以error事件出现
func (s *SummaryService) Stream(ctx context.Context, items []models.NewsItem) (<-chan StreamEvent, error) {
	if len(items) == 0 {
		return nil, ErrNoNewsItems
	}
	if len(items) > MaxSummaryItems {
		items = items[:MaxSummaryItems]
	}

	logger.FromContext(ctx).Info("开始生成新闻摘要", "items", len(items))
	body, err := s.llm.Stream(ctx, CompletionRequest{
		Messages:    summaryMessages(items),
		Temperature: s.temperature,
		MaxTokens:   s.maxTokens,
	})
	if err != nil {
		return nil, err
	}
	return RelayUpstream(ctx, body), nil
}
