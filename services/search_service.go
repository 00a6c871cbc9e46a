package services

import (
	"context"
	"time"

	"crossborder_rag/config"
	"crossborder_rag/logger"
	"crossborder_rag/models"
)

// SearchOptions 检索参数
type SearchOptions struct {
	PrimaryDays    int
	FallbackDays   int
	CandidateLimit int
	StoreTimeout   time.Duration
}

// SearchOptionsFromConfig 从配置构造检索参数
func SearchOptionsFromConfig(cfg *config.Config) SearchOptions {
	return SearchOptions{
		PrimaryDays:    cfg.Retrieval.PrimaryDays,
		FallbackDays:   cfg.Retrieval.FallbackDays,
		CandidateLimit: cfg.Store.CandidateLimit,
		StoreTimeout:   time.Duration(cfg.Store.TimeoutSec) * time.Second,
	}
}

// SearchService 先查近30天，没有命中再查近180天
type SearchService struct {
	fetcher CandidateFetcher
	opts    SearchOptions
	now     func() time.Time
}

func NewSearchService(fetcher CandidateFetcher, opts SearchOptions) *SearchService {
	if opts.PrimaryDays <= 0 {
		opts.PrimaryDays = 30
	}
	if opts.FallbackDays <= 0 {
		opts.FallbackDays = 180
	}
	if opts.CandidateLimit <= 0 {
		opts.CandidateLimit = 500
	}
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = 8 * time.Second
	}
	return &SearchService{fetcher: fetcher, opts: opts, now: time.Now}
}

// Search 检索与问题相关的新闻，空结果不是错误
func (s *SearchService) Search(ctx context.Context, question string, limit int) ([]models.SearchResult, error) {
	keywords := ExtractKeywords(question)
	if len(keywords) == 0 {
		logger.Info("问题没有可用关键词，跳过检索")
		return []models.SearchResult{}, nil
	}
	now := s.now()

	primary, err := s.searchWindow(ctx, keywords, s.opts.PrimaryDays, now, limit)
	if err != nil {
		return nil, err
	}
	if len(primary) > 0 {
		return primary, nil
	}

	logger.Info("近期窗口无命中，扩大检索窗口", "primary_days", s.opts.PrimaryDays, "fallback_days", s.opts.FallbackDays)
	return s.searchWindow(ctx, keywords, s.opts.FallbackDays, now, limit)
}

func (s *SearchService) searchWindow(ctx context.Context, keywords []string, days int, now time.Time, limit int) ([]models.SearchResult, error) {
	docs, err := s.fetchWindow(ctx, days, now)
	if err != nil {
		return nil, err
	}
	results := RankDocuments(docs, keywords, now, limit)
	logger.Info("检索完成", "days", days, "candidates", len(docs), "matched", len(results), "keywords", keywords)
	return results, nil
}

// fetchWindow 读取时间窗口内的候选集，单次调用受StoreTimeout限制
func (s *SearchService) fetchWindow(ctx context.Context, days int, now time.Time) ([]models.Document, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.StoreTimeout)
	defer cancel()

	cutoff := now.Add(-time.Duration(days) * 24 * time.Hour)
	docs, err := s.fetcher.FetchCandidates(ctx, cutoff, s.opts.CandidateLimit)
	if err != nil {
		logger.Error("新闻库查询失败", "days", days, "error", err)
		return nil, wrapTransportError(ctx, "store", err)
	}
	return docs, nil
}
