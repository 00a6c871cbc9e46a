package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crossborder_rag/models"
)

// fakeFetcher 按调用顺序返回预设的候选集
type fakeFetcher struct {
	batches [][]models.Document
	err     error
	block   bool
	cutoffs []time.Time
	limits  []int
}

func (f *fakeFetcher) FetchCandidates(ctx context.Context, cutoff time.Time, limit int) ([]models.Document, error) {
	f.cutoffs = append(f.cutoffs, cutoff)
	f.limits = append(f.limits, limit)
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	i := len(f.cutoffs) - 1
	if i < len(f.batches) {
		return f.batches[i], nil
	}
	return nil, nil
}

func newTestSearch(f *fakeFetcher) *SearchService {
	s := NewSearchService(f, SearchOptions{StoreTimeout: time.Second})
	s.now = func() time.Time { return rankNow }
	return s
}

func TestSearchPrimaryHitSkipsFallback(t *testing.T) {
	f := &fakeFetcher{batches: [][]models.Document{
		{{ID: "1", Title: "Shopify checkout update", PublishTime: daysAgo(2)}},
		{{ID: "2", Title: "checkout", PublishTime: daysAgo(100)}},
	}}
	got, err := newTestSearch(f).Search(context.Background(), "checkout 变化", 8)

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "1", got[0].ID)
	assert.Len(t, f.cutoffs, 1)
	assert.Equal(t, rankNow.Add(-30*24*time.Hour), f.cutoffs[0])
	assert.Equal(t, 500, f.limits[0])
}

func TestSearchFallsBackToWideWindow(t *testing.T) {
	f := &fakeFetcher{batches: [][]models.Document{
		{{ID: "1", Title: "unrelated", PublishTime: daysAgo(2)}},
		{{ID: "2", Title: "freight rates", PublishTime: daysAgo(100)}},
	}}
	got, err := newTestSearch(f).Search(context.Background(), "物流", 8)

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "2", got[0].ID)
	require.Len(t, f.cutoffs, 2)
	assert.Equal(t, rankNow.Add(-180*24*time.Hour), f.cutoffs[1])
}

func TestSearchBothWindowsEmpty(t *testing.T) {
	f := &fakeFetcher{batches: [][]models.Document{
		{{ID: "1", Title: "unrelated"}},
		{{ID: "2", Title: "still unrelated"}},
	}}
	got, err := newTestSearch(f).Search(context.Background(), "关税", 8)

	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Len(t, f.cutoffs, 2)
}

func TestSearchNoKeywordsSkipsStore(t *testing.T) {
	f := &fakeFetcher{}
	got, err := newTestSearch(f).Search(context.Background(), "请问 最近 的", 8)

	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Empty(t, f.cutoffs)
}

func TestSearchStoreErrorAborts(t *testing.T) {
	f := &fakeFetcher{err: &UpstreamError{Service: "store", StatusCode: 401, Body: "bad key"}}
	_, err := newTestSearch(f).Search(context.Background(), "tariff", 8)

	var ue *UpstreamError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, 401, ue.StatusCode)
	assert.Len(t, f.cutoffs, 1)
}

func TestSearchStoreTimeoutIsUpstreamError(t *testing.T) {
	f := &fakeFetcher{block: true}
	s := newTestSearch(f)
	s.opts.StoreTimeout = 10 * time.Millisecond

	_, err := s.Search(context.Background(), "tariff", 8)

	var ue *UpstreamError
	require.True(t, errors.As(err, &ue))
	assert.True(t, ue.Timeout)
	assert.Equal(t, "store", ue.Service)
	assert.Equal(t, 504, ue.HTTPStatus())
}

func TestSearchRespectsLimit(t *testing.T) {
	var docs []models.Document
	for i := 0; i < 15; i++ {
		docs = append(docs, models.Document{ID: string(rune('a' + i)), Title: "amazon", PublishTime: daysAgo(float64(i))})
	}
	f := &fakeFetcher{batches: [][]models.Document{docs}}
	got, err := newTestSearch(f).Search(context.Background(), "amazon", 10)

	require.NoError(t, err)
	assert.Len(t, got, 10)
}
