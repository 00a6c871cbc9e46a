package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"crossborder_rag/config"
	"crossborder_rag/logger"
	"crossborder_rag/models"
	"crossborder_rag/utils"
)

// NoHitAnswer 两个时间窗口都没有命中时的固定回答
const NoHitAnswer = "新闻库中未找到相关条目（最近30/180天），请换关键词或先补充RSS源。"

// RAGOptions 问答参数
type RAGOptions struct {
	Limit           int
	ContextMaxChars int
	Temperature     float64
	MaxTokens       int
}

func RAGOptionsFromConfig(cfg *config.Config) RAGOptions {
	return RAGOptions{
		Limit:           cfg.Retrieval.Limit,
		ContextMaxChars: cfg.Retrieval.ContextMaxChars,
		Temperature:     cfg.LLM.AnswerTemperature,
		MaxTokens:       cfg.LLM.AnswerMaxTokens,
	}
}

// RAGService 只基于新闻库作答
type RAGService struct {
	search *SearchService
	llm    Completer
	opts   RAGOptions
}

func NewRAGService(search *SearchService, llm Completer, opts RAGOptions) *RAGService {
	if opts.Limit <= 0 {
		opts.Limit = 8
	}
	if opts.ContextMaxChars <= 0 {
		opts.ContextMaxChars = DefaultContextMaxChars
	}
	if opts.Temperature <= 0 {
		opts.Temperature = 0.35
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 900
	}
	return &RAGService{search: search, llm: llm, opts: opts}
}

// Answer 检索并生成答案。检索失败返回错误；大模型失败时用命中列表兜底
func (s *RAGService) Answer(ctx context.Context, question string) (models.GroundedAnswer, error) {
	log := logger.FromContext(ctx)

	sources, err := s.search.Search(ctx, question, s.opts.Limit)
	if err != nil {
		return models.GroundedAnswer{}, err
	}
	if len(sources) == 0 {
		log.Info("新闻库无命中，返回固定回答")
		return models.GroundedAnswer{Answer: NoHitAnswer, Sources: []models.SearchResult{}}, nil
	}

	answer, err := s.Generate(ctx, question, sources)
	if err != nil {
		if ctx.Err() != nil && !errors.Is(ctx.Err(), context.DeadlineExceeded) {
			// 调用方已断开，不再兜底
			return models.GroundedAnswer{}, ctx.Err()
		}
		log.Warn("大模型作答失败，使用命中列表兜底", "error", err)
		return models.GroundedAnswer{Answer: FallbackAnswer(sources), Sources: sources, Degraded: true}, nil
	}
	return models.GroundedAnswer{Answer: answer, Sources: sources}, nil
}

// Generate 用检索结果组装上下文并以非流式调用大模型
func (s *RAGService) Generate(ctx context.Context, question string, sources []models.SearchResult) (string, error) {
	contextText := BuildContext(sources, s.opts.ContextMaxChars)
	logger.FromContext(ctx).Info("调用大模型作答", "sources", len(sources), "context_chars", utils.RuneLen(contextText))

	return s.llm.Complete(ctx, CompletionRequest{
		Messages:    groundedMessages(question, contextText),
		Temperature: s.opts.Temperature,
		MaxTokens:   s.opts.MaxTokens,
	})
}

// FallbackAnswer 大模型不可用时列出命中的新闻，编号与上下文中的DOC编号一致
func FallbackAnswer(sources []models.SearchResult) string {
	var b strings.Builder
	b.WriteString("AI 分析暂不可用，以下为新闻库中命中的相关新闻：\n")
	for i, src := range sources {
		date := src.PublishedAt
		if len(date) >= 10 {
			date = date[:10]
		}
		fmt.Fprintf(&b, "[%d] %s | %s | %s", i+1, date, src.Source, src.Title)
		if src.URL != "" {
			b.WriteString(" | " + src.URL)
		}
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}
