package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crossborder_rag/config"
	"crossborder_rag/models"
	"crossborder_rag/utils"
)

// memoryWriter 内存中的新闻表
type memoryWriter struct {
	mu        sync.Mutex
	hashes    map[string]bool
	records   []models.NewsRecord
	summaries map[string]models.StructuredSummary
	insertErr error
	// assignID 模拟数据库生成主键
	assignID func(n int) string
}

func newMemoryWriter(existing ...string) *memoryWriter {
	w := &memoryWriter{hashes: map[string]bool{}, summaries: map[string]models.StructuredSummary{}}
	for _, h := range existing {
		w.hashes[h] = true
	}
	return w
}

func (w *memoryWriter) ExistsByHash(ctx context.Context, hash string) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.hashes[hash], nil
}

func (w *memoryWriter) Insert(ctx context.Context, rec models.NewsRecord) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.insertErr != nil {
		return "", w.insertErr
	}
	w.hashes[rec.ContentHash] = true
	w.records = append(w.records, rec)
	if w.assignID != nil {
		return w.assignID(len(w.records)), nil
	}
	return rec.ID, nil
}

func (w *memoryWriter) UpdateSummary(ctx context.Context, id string, summary models.StructuredSummary) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.summaries[id] = summary
	return nil
}

// staticParser 按URL返回预设的feed
type staticParser map[string]*gofeed.Feed

func (p staticParser) ParseURLWithContext(feedURL string, ctx context.Context) (*gofeed.Feed, error) {
	if f, ok := p[feedURL]; ok {
		return f, nil
	}
	return nil, errors.New("404")
}

func ts(year int) *time.Time {
	t := time.Date(year, 3, 1, 8, 0, 0, 0, time.UTC)
	return &t
}

func newTestIngest(w NewsWriter, llm Completer, parser FeedParser, feeds ...config.Feed) *IngestService {
	s := NewIngestService(w, llm, IngestOptions{Feeds: feeds})
	s.parser = parser
	n := 0
	s.newID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	return s
}

func TestIngestCountsOutcomes(t *testing.T) {
	parser := staticParser{
		"https://feed/a": {Items: []*gofeed.Item{
			{Title: "<b>New</b> tariff", Content: "<p>Duty &amp; fees rise</p>", Link: "https://a/1", PublishedParsed: ts(2025)},
			{Title: "Old news", Description: "from 2023", PublishedParsed: ts(2023)},
			{Title: "No date", Description: "x"},
			{Title: "Known", Description: "already stored", UpdatedParsed: ts(2026)},
			{Title: "Dup in run", Content: "<p>Duty &amp; fees rise</p>", PublishedParsed: ts(2025)},
		}},
	}
	w := newMemoryWriter(utils.CalculateMD5("already stored"))
	stats, err := newTestIngest(w, nil, parser,
		config.Feed{Name: "Feed A", URL: "https://feed/a"},
		config.Feed{Name: "Broken", URL: "https://feed/missing"},
	).Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, models.IngestStats{Inserted: 1, Skipped: 2, Filtered: 2, Errors: 1}, stats)

	require.Len(t, w.records, 1)
	rec := w.records[0]
	assert.Equal(t, "id-1", rec.ID)
	assert.Equal(t, "New tariff", rec.Title)
	assert.Equal(t, "Duty & fees rise", rec.Content)
	assert.Equal(t, "Feed A", rec.Source)
	assert.Equal(t, "2025-03-01T08:00:00Z", rec.PublishTime)
	assert.Equal(t, utils.CalculateMD5("Duty & fees rise"), rec.ContentHash)
}

func TestIngestRespectsMaxEntries(t *testing.T) {
	var items []*gofeed.Item
	for i := 0; i < 5; i++ {
		items = append(items, &gofeed.Item{Title: fmt.Sprint(i), Description: fmt.Sprint("body ", i), PublishedParsed: ts(2025)})
	}
	s := newTestIngest(newMemoryWriter(), nil, staticParser{"u": {Items: items}}, config.Feed{Name: "f", URL: "u"})
	s.opts.MaxEntriesPerFeed = 3

	stats, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Inserted)
}

func TestIngestInsertErrorDoesNotAbort(t *testing.T) {
	w := newMemoryWriter()
	w.insertErr = errors.New("db down")
	items := []*gofeed.Item{
		{Title: "a", Description: "a body", PublishedParsed: ts(2025)},
		{Title: "b", Description: "b body", PublishedParsed: ts(2025)},
	}
	stats, err := newTestIngest(w, nil, staticParser{"u": {Items: items}}, config.Feed{Name: "f", URL: "u"}).Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, stats.Errors)
	assert.Equal(t, 0, stats.Inserted)
}

func TestIngestWritesStructuredSummary(t *testing.T) {
	llm := &fakeCompleter{answer: "```json\n{\"title_zh\":\"美国提高小包裹关税\",\"tldr\":\"利好本地仓\",\"risk_level\":\"极高\"}\n```"}
	items := []*gofeed.Item{{Title: "US tariff", Description: "short body", PublishedParsed: ts(2025)}}
	s := newTestIngest(newMemoryWriter(), llm, staticParser{"u": {Items: items}}, config.Feed{Name: "f", URL: "u"})
	s.opts.Summarize = true
	w := s.writer.(*memoryWriter)

	_, err := s.Run(context.Background())
	require.NoError(t, err)

	summary, ok := w.summaries["id-1"]
	require.True(t, ok)
	assert.Equal(t, "美国提高小包裹关税", summary.TitleZh)
	assert.Equal(t, "利好本地仓（信息不足）", summary.TLDR)
	assert.Equal(t, "低", summary.RiskLevel)
	assert.Equal(t, 0.1, llm.requests[0].Temperature)
}

func TestIngestSummarizesUnderStoreAssignedID(t *testing.T) {
	llm := &fakeCompleter{answer: `{"tldr":"利好本地仓"}`}
	items := []*gofeed.Item{{Title: "US tariff", Description: "short body", PublishedParsed: ts(2025)}}
	w := newMemoryWriter()
	w.assignID = func(n int) string { return fmt.Sprintf("%d", 100+n) }
	s := newTestIngest(w, llm, staticParser{"u": {Items: items}}, config.Feed{Name: "f", URL: "u"})
	s.opts.Summarize = true

	_, err := s.Run(context.Background())
	require.NoError(t, err)

	assert.Contains(t, w.summaries, "101")
	assert.NotContains(t, w.summaries, "id-1")
}

func TestIngestIgnoredInsertCountsAsSkipped(t *testing.T) {
	llm := &fakeCompleter{answer: `{"tldr":"x"}`}
	items := []*gofeed.Item{{Title: "t", Description: "d", PublishedParsed: ts(2025)}}
	w := newMemoryWriter()
	w.assignID = func(int) string { return "" }
	s := newTestIngest(w, llm, staticParser{"u": {Items: items}}, config.Feed{Name: "f", URL: "u"})
	s.opts.Summarize = true

	stats, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.IngestStats{Skipped: 1}, stats)
	assert.Empty(t, w.summaries)
	assert.Empty(t, llm.requests)
}

func TestIngestSummaryFailureKeepsRow(t *testing.T) {
	llm := &fakeCompleter{answer: "not json at all"}
	items := []*gofeed.Item{{Title: "t", Description: "d", PublishedParsed: ts(2025)}}
	s := newTestIngest(newMemoryWriter(), llm, staticParser{"u": {Items: items}}, config.Feed{Name: "f", URL: "u"})
	s.opts.Summarize = true
	w := s.writer.(*memoryWriter)

	stats, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Inserted)
	assert.Empty(t, w.summaries)
}

func TestNormalizeSummaryLimits(t *testing.T) {
	long := strings.Repeat("长", 200)
	out := normalizeSummary(models.StructuredSummary{TitleZh: long, TLDR: long, RiskLevel: "中"}, strings.Repeat("x", 500))
	assert.Equal(t, 40, utils.RuneLen(out.TitleZh))
	assert.Equal(t, 120, utils.RuneLen(out.TLDR))
	assert.Equal(t, "中", out.RiskLevel)

	short := normalizeSummary(models.StructuredSummary{TLDR: long}, "tiny")
	assert.Equal(t, 120, utils.RuneLen(short.TLDR))
	assert.True(t, strings.HasSuffix(short.TLDR, "（信息不足）"))

	empty := normalizeSummary(models.StructuredSummary{}, "")
	assert.Equal(t, "信息不足", empty.TLDR)
}

func TestIngestTryStartClaimsSlot(t *testing.T) {
	s := newTestIngest(newMemoryWriter(), nil, staticParser{})

	require.True(t, s.TryStart())
	assert.True(t, s.Running())
	assert.False(t, s.TryStart())
	_, err := s.Run(context.Background())
	assert.ErrorIs(t, err, ErrIngestRunning)

	_, err = s.RunStarted(context.Background())
	require.NoError(t, err)
	assert.False(t, s.Running())
	assert.True(t, s.TryStart())
}

func TestIngestRejectsConcurrentRun(t *testing.T) {
	s := newTestIngest(newMemoryWriter(), nil, staticParser{})
	s.running.Store(true)
	_, err := s.Run(context.Background())
	assert.ErrorIs(t, err, ErrIngestRunning)
}

// 用真实的gofeed解析器解析本地RSS
func TestIngestParsesRSSOverHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>Cross-border</title>
<item>
  <title>Shopify checkout update</title>
  <link>https://news.example.com/shopify</link>
  <description><![CDATA[<p>Shopify <em>changes</em> checkout fees.</p>]]></description>
  <pubDate>Mon, 02 Jun 2025 08:00:00 GMT</pubDate>
</item>
</channel></rss>`)
	}))
	defer srv.Close()

	w := newMemoryWriter()
	s := NewIngestService(w, nil, IngestOptions{Feeds: []config.Feed{{Name: "Local", URL: srv.URL}}})
	stats, err := s.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, stats.Inserted)
	require.Len(t, w.records, 1)
	assert.Equal(t, "Shopify changes checkout fees.", w.records[0].Content)
	assert.Equal(t, "https://news.example.com/shopify", w.records[0].URL)
	assert.Equal(t, "2025-06-02T08:00:00Z", w.records[0].PublishTime)
	assert.Len(t, w.records[0].ID, 36)
}
