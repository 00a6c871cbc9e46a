package services

import (
	"context"
	"encoding/json"
	"errors"
	"html"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"
	"golang.org/x/sync/errgroup"

	"crossborder_rag/config"
	"crossborder_rag/logger"
	"crossborder_rag/models"
	"crossborder_rag/utils"
)

// ErrIngestRunning 上一次入库尚未结束
var ErrIngestRunning = errors.New("ingest already running")

const (
	titleZhMaxChars     = 40
	tldrMaxChars        = 120
	shortContentChars   = 120
	insufficientInfoTag = "信息不足"
)

var whitespacePattern = regexp.MustCompile(`\s+`)

// FeedParser RSS解析，*gofeed.Parser实现了该接口
type FeedParser interface {
	ParseURLWithContext(feedURL string, ctx context.Context) (*gofeed.Feed, error)
}

// IngestOptions 入库参数
type IngestOptions struct {
	Feeds             []config.Feed
	MaxEntriesPerFeed int
	MinPublishYear    int
	Concurrency       int
	Summarize         bool
}

func IngestOptionsFromConfig(cfg *config.Config) IngestOptions {
	return IngestOptions{
		Feeds:             cfg.Ingest.Feeds,
		MaxEntriesPerFeed: cfg.Ingest.MaxEntriesPerFeed,
		MinPublishYear:    cfg.Ingest.MinPublishYear,
		Concurrency:       cfg.Ingest.Concurrency,
		Summarize:         cfg.Ingest.Summarize,
	}
}

// IngestService 拉取RSS，去重后写入新闻库，可选生成结构化摘要
type IngestService struct {
	writer    NewsWriter
	llm       Completer // 为nil时不生成摘要
	parser    FeedParser
	sanitizer *bluemonday.Policy
	opts      IngestOptions
	newID     func() string
	running   atomic.Bool
}

func NewIngestService(writer NewsWriter, llm Completer, opts IngestOptions) *IngestService {
	if opts.MaxEntriesPerFeed <= 0 {
		opts.MaxEntriesPerFeed = 80
	}
	if opts.MinPublishYear <= 0 {
		opts.MinPublishYear = 2025
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	return &IngestService{
		writer:    writer,
		llm:       llm,
		parser:    gofeed.NewParser(),
		sanitizer: bluemonday.StrictPolicy(),
		opts:      opts,
		newID:     uuid.NewString,
	}
}

// Running 是否有入库正在执行
func (s *IngestService) Running() bool {
	return s.running.Load()
}

// ingestRun 单次运行的状态
type ingestRun struct {
	mu    sync.Mutex
	stats models.IngestStats
	seen  map[string]bool
}

func (r *ingestRun) add(f func(*models.IngestStats)) {
	r.mu.Lock()
	f(&r.stats)
	r.mu.Unlock()
}

// claim 同一次运行中相同哈希只处理一次
func (r *ingestRun) claim(hash string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.seen[hash] {
		return false
	}
	r.seen[hash] = true
	return true
}

// TryStart 占用运行槽位，已有入库在执行时返回false。成功后必须调用RunStarted
func (s *IngestService) TryStart() bool {
	return s.running.CompareAndSwap(false, true)
}

// Run 处理所有RSS源。单个源或单条新闻失败只计入Errors，不中断整体
func (s *IngestService) Run(ctx context.Context) (models.IngestStats, error) {
	if !s.TryStart() {
		return models.IngestStats{}, ErrIngestRunning
	}
	return s.RunStarted(ctx)
}

// RunStarted 在TryStart成功后执行入库，结束时释放槽位
func (s *IngestService) RunStarted(ctx context.Context) (models.IngestStats, error) {
	defer s.running.Store(false)

	startTime := time.Now()
	run := &ingestRun{seen: make(map[string]bool)}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)
	for _, feed := range s.opts.Feeds {
		feed := feed
		g.Go(func() error {
			s.ingestFeed(gctx, feed, run)
			return nil
		})
	}
	_ = g.Wait()

	logger.Info("新闻入库完成",
		"feeds", len(s.opts.Feeds),
		"inserted", run.stats.Inserted,
		"skipped", run.stats.Skipped,
		"filtered", run.stats.Filtered,
		"errors", run.stats.Errors,
		"duration_ms", time.Since(startTime).Milliseconds())

	if err := ctx.Err(); err != nil {
		return run.stats, err
	}
	return run.stats, nil
}

func (s *IngestService) ingestFeed(ctx context.Context, feed config.Feed, run *ingestRun) {
	parsed, err := s.parser.ParseURLWithContext(feed.URL, ctx)
	if err != nil {
		logger.Error("RSS源解析失败", "feed", feed.Name, "url", feed.URL, "error", err)
		run.add(func(st *models.IngestStats) { st.Errors++ })
		return
	}

	items := parsed.Items
	if len(items) > s.opts.MaxEntriesPerFeed {
		items = items[:s.opts.MaxEntriesPerFeed]
	}
	logger.Info("RSS源解析成功", "feed", feed.Name, "items", len(items))

	for _, item := range items {
		if ctx.Err() != nil {
			return
		}
		s.ingestItem(ctx, feed, item, run)
	}
}

func (s *IngestService) ingestItem(ctx context.Context, feed config.Feed, item *gofeed.Item, run *ingestRun) {
	published := item.PublishedParsed
	if published == nil {
		published = item.UpdatedParsed
	}
	if published == nil || published.Year() < s.opts.MinPublishYear {
		run.add(func(st *models.IngestStats) { st.Filtered++ })
		return
	}

	title := s.cleanText(item.Title)
	body := s.cleanText(item.Content)
	if body == "" {
		body = s.cleanText(item.Description)
	}
	if body == "" {
		body = title
	}

	hash := utils.CalculateMD5(strings.TrimSpace(body))
	if !run.claim(hash) {
		run.add(func(st *models.IngestStats) { st.Skipped++ })
		return
	}

	exists, err := s.writer.ExistsByHash(ctx, hash)
	if err != nil {
		logger.Error("查询内容哈希失败", "title", title, "error", err)
		run.add(func(st *models.IngestStats) { st.Errors++ })
		return
	}
	if exists {
		logger.Debug("跳过已存在的新闻", "hash", hash)
		run.add(func(st *models.IngestStats) { st.Skipped++ })
		return
	}

	rec := models.NewsRecord{
		ID:          s.newID(),
		Title:       title,
		URL:         item.Link,
		Source:      feed.Name,
		Content:     body,
		PublishTime: published.UTC().Format(time.RFC3339),
		ContentHash: hash,
	}
	id, err := s.writer.Insert(ctx, rec)
	if err != nil {
		logger.Error("新闻写入失败", "title", title, "error", err)
		run.add(func(st *models.IngestStats) { st.Errors++ })
		return
	}
	if id == "" {
		// 并发写入的同哈希行已存在
		run.add(func(st *models.IngestStats) { st.Skipped++ })
		return
	}
	rec.ID = id
	run.add(func(st *models.IngestStats) { st.Inserted++ })
	logger.Info("新闻已入库", "id", rec.ID, "source", rec.Source, "title", utils.PreviewText(title, 60))

	if s.opts.Summarize && s.llm != nil {
		s.summarize(ctx, rec)
	}
}

// summarize 失败时该条新闻保持无摘要
func (s *IngestService) summarize(ctx context.Context, rec models.NewsRecord) {
	summary, err := s.GenerateSummary(ctx, rec.Title, rec.Content)
	if err != nil {
		logger.Warn("结构化摘要生成失败", "id", rec.ID, "error", err)
		return
	}
	if err := s.writer.UpdateSummary(ctx, rec.ID, summary); err != nil {
		logger.Warn("结构化摘要写回失败", "id", rec.ID, "error", err)
	}
}

// GenerateSummary 调用大模型生成单条新闻的结构化摘要
func (s *IngestService) GenerateSummary(ctx context.Context, title, content string) (models.StructuredSummary, error) {
	reply, err := s.llm.Complete(ctx, CompletionRequest{
		Messages:    []ChatMessage{{Role: "user", Content: buildIngestSummaryPrompt(title, content)}},
		Temperature: 0.1,
		MaxTokens:   800,
	})
	if err != nil {
		return models.StructuredSummary{}, err
	}

	var summary models.StructuredSummary
	if err := json.Unmarshal([]byte(utils.ExtractJSONFromText(reply)), &summary); err != nil {
		return models.StructuredSummary{}, err
	}
	return normalizeSummary(summary, content), nil
}

func normalizeSummary(s models.StructuredSummary, content string) models.StructuredSummary {
	s.TitleZh = utils.TruncateRunes(strings.TrimSpace(s.TitleZh), titleZhMaxChars)
	s.TLDR = strings.TrimSpace(s.TLDR)
	if utils.RuneLen(strings.TrimSpace(content)) < shortContentChars && !strings.Contains(s.TLDR, insufficientInfoTag) {
		if s.TLDR == "" {
			s.TLDR = insufficientInfoTag
		} else {
			suffix := "（" + insufficientInfoTag + "）"
			s.TLDR = utils.TruncateRunes(s.TLDR, tldrMaxChars-utils.RuneLen(suffix)) + suffix
		}
	}
	s.TLDR = utils.TruncateRunes(s.TLDR, tldrMaxChars)
	switch s.RiskLevel {
	case "低", "中", "高":
	default:
		s.RiskLevel = "低"
	}
	if len(s.Tags) > 12 {
		s.Tags = s.Tags[:12]
	}
	return s
}

// cleanText 去掉HTML标签并合并空白
func (s *IngestService) cleanText(raw string) string {
	if raw == "" {
		return ""
	}
	text := html.UnescapeString(s.sanitizer.Sanitize(raw))
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(text, " "))
}
