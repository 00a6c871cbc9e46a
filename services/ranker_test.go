package services

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crossborder_rag/models"
)

var rankNow = time.Date(2025, 6, 30, 12, 0, 0, 0, time.UTC)

func daysAgo(d float64) string {
	return rankNow.Add(-time.Duration(d * 24 * float64(time.Hour))).Format(time.RFC3339)
}

func TestRankDocumentsScenarioTariff(t *testing.T) {
	docs := []models.Document{
		{ID: "old", Title: "EU tariff review", PublishTime: daysAgo(20)},
		{ID: "new", Title: "US tariff hike", PublishTime: daysAgo(1)},
		{ID: "mid", Title: "Tariff talks stall", PublishTime: daysAgo(10)},
	}
	got := RankDocuments(docs, ExtractKeywords("关税"), rankNow, 10)

	require.Len(t, got, 3)
	assert.Equal(t, []string{"new", "mid", "old"}, []string{got[0].ID, got[1].ID, got[2].ID})
	for _, r := range got {
		assert.GreaterOrEqual(t, r.Score, 5.0)
	}
	assert.InDelta(t, 5+10-1.0/3, got[0].Score, 0.01)
}

func TestRankDocumentsDropsUnmatchedEvenWhenRecent(t *testing.T) {
	docs := []models.Document{
		{ID: "fresh-unrelated", Title: "Quarterly results", PublishTime: daysAgo(0)},
		{ID: "old-related", Title: "shipping delays", PublishTime: daysAgo(400)},
	}
	got := RankDocuments(docs, []string{"shipping"}, rankNow, 10)
	require.Len(t, got, 1)
	assert.Equal(t, "old-related", got[0].ID)
	assert.Equal(t, 5.0, got[0].Score)
}

func TestRankDocumentsFieldWeights(t *testing.T) {
	docs := []models.Document{
		{ID: "title", Title: "temu", CreatedAt: "bad"},
		{ID: "summary", Title: "x", Summary: "Temu expands", CreatedAt: "bad"},
		{ID: "description", Title: "x", Description: "temu", CreatedAt: "bad"},
		{ID: "content", Title: "x", Content: "about TEMU", CreatedAt: "bad"},
		{ID: "both", Title: "temu", Summary: "temu", Content: "temu"},
	}
	got := RankDocuments(docs, []string{"temu"}, rankNow, 10)
	scores := map[string]float64{}
	for _, r := range got {
		scores[r.ID] = r.Score
	}
	assert.Equal(t, 5.0, scores["title"])
	assert.Equal(t, 3.0, scores["summary"])
	assert.Equal(t, 3.0, scores["description"])
	assert.Equal(t, 1.0, scores["content"])
	assert.Equal(t, 8.0, scores["both"])
}

func TestRankDocumentsTieBreakByPublishedAt(t *testing.T) {
	docs := []models.Document{
		{ID: "earlier", Title: "vat change", PublishTime: daysAgo(100)},
		{ID: "undated", Title: "vat change"},
		{ID: "later", Title: "vat change", CreatedAt: daysAgo(90)},
	}
	got := RankDocuments(docs, []string{"vat"}, rankNow, 10)
	require.Len(t, got, 3)
	assert.Equal(t, got[0].Score, got[1].Score)
	assert.Equal(t, []string{"later", "earlier", "undated"}, []string{got[0].ID, got[1].ID, got[2].ID})
}

func TestRankDocumentsLimitAppliedAfterSort(t *testing.T) {
	var docs []models.Document
	for i := 0; i < 20; i++ {
		docs = append(docs, models.Document{ID: string(rune('a' + i)), Content: "fraud", PublishTime: daysAgo(float64(i))})
	}
	docs = append(docs, models.Document{ID: "best", Title: "fraud", Summary: "fraud", PublishTime: daysAgo(0.5)})

	got := RankDocuments(docs, []string{"fraud"}, rankNow, 3)
	require.Len(t, got, 3)
	assert.Equal(t, "best", got[0].ID)
	assert.Equal(t, "a", got[1].ID)
}

func TestRankDocumentsResultDefaults(t *testing.T) {
	docs := []models.Document{{ID: "1", Content: "logistics", Description: strings.Repeat("长", 400)}}
	got := RankDocuments(docs, []string{"logistics"}, rankNow, 10)
	require.Len(t, got, 1)
	assert.Equal(t, "Untitled", got[0].Title)
	assert.Equal(t, "Unknown", got[0].Source)
	assert.Equal(t, "", got[0].PublishedAt)
	assert.Equal(t, 300, len([]rune(got[0].Description)))
}

func TestRecencyBonus(t *testing.T) {
	assert.Equal(t, 10.0, RecencyBonus(rankNow.Add(time.Hour), rankNow))
	assert.InDelta(t, 5.0, RecencyBonus(rankNow.Add(-15*24*time.Hour), rankNow), 1e-9)
	assert.Equal(t, 0.0, RecencyBonus(rankNow.Add(-31*24*time.Hour), rankNow))
}

func TestParseTimestamp(t *testing.T) {
	for _, v := range []string{
		"2025-06-01T10:00:00Z",
		"2025-06-01T10:00:00.123456+00:00",
		"2025-06-01T10:00:00.123456",
		"2025-06-01 10:00:00",
		"2025-06-01",
	} {
		_, ok := ParseTimestamp(v)
		assert.True(t, ok, v)
	}
	_, ok := ParseTimestamp("yesterday")
	assert.False(t, ok)
}
