package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"crossborder_rag/logger"
	"crossborder_rag/models"
	"crossborder_rag/utils"
)

// storeErrorBodyLimit 新闻库错误响应保留的字符数
const storeErrorBodyLimit = 160

// candidateColumns 与线上news_raw表的列一致，该表没有description列
const candidateColumns = "id,title,url,source,publish_time,created_at,summary,content"

// StatusError 新闻库返回非2xx
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("store failed %d: %s", e.StatusCode, e.Body)
}

// newsRow 新闻库的一行，summary可能是字符串或结构化对象
type newsRow struct {
	ID          models.FlexibleID   `json:"id"`
	Title       string              `json:"title"`
	URL         string              `json:"url"`
	Source      string              `json:"source"`
	PublishTime *string             `json:"publish_time"`
	CreatedAt   *string             `json:"created_at"`
	Summary     models.SummaryField `json:"summary"`
	Content     *string             `json:"content"`
	Description *string             `json:"description"`
}

func (r newsRow) toDocument() models.Document {
	return models.Document{
		ID:          string(r.ID),
		Title:       r.Title,
		URL:         r.URL,
		Source:      r.Source,
		PublishTime: deref(r.PublishTime),
		CreatedAt:   deref(r.CreatedAt),
		Summary:     r.Summary.Text(),
		Description: deref(r.Description),
		Content:     deref(r.Content),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// RESTStore 通过PostgREST接口读写新闻表
type RESTStore struct {
	baseURL string
	apiKey  string
	table   string
	client  *http.Client
}

// NewRESTStore baseURL形如 https://xxx.supabase.co
func NewRESTStore(baseURL, apiKey, table string) *RESTStore {
	return &RESTStore{
		baseURL: baseURL,
		apiKey:  apiKey,
		table:   table,
		client:  &http.Client{},
	}
}

func (s *RESTStore) endpoint(query url.Values) string {
	u := fmt.Sprintf("%s/rest/v1/%s", s.baseURL, url.PathEscape(s.table))
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// FetchCandidates 读取发布时间或入库时间在cutoff之后的新闻
func (s *RESTStore) FetchCandidates(ctx context.Context, cutoff time.Time, limit int) ([]models.Document, error) {
	iso := cutoff.UTC().Format(time.RFC3339)
	query := url.Values{}
	query.Set("select", candidateColumns)
	query.Set("order", "publish_time.desc,created_at.desc")
	query.Set("limit", strconv.Itoa(limit))
	query.Set("or", fmt.Sprintf("(publish_time.gte.%s,created_at.gte.%s)", iso, iso))

	var rows []newsRow
	if err := s.do(ctx, http.MethodGet, s.endpoint(query), nil, nil, &rows); err != nil {
		return nil, err
	}

	docs := make([]models.Document, 0, len(rows))
	for _, r := range rows {
		docs = append(docs, r.toDocument())
	}
	logger.Debug("新闻库返回候选", "cutoff", iso, "rows", len(docs))
	return docs, nil
}

// ExistsByHash 内容哈希是否已入库
func (s *RESTStore) ExistsByHash(ctx context.Context, contentHash string) (bool, error) {
	query := url.Values{}
	query.Set("select", "id")
	query.Set("content_hash", "eq."+contentHash)
	query.Set("limit", "1")

	var rows []struct {
		ID models.FlexibleID `json:"id"`
	}
	if err := s.do(ctx, http.MethodGet, s.endpoint(query), nil, nil, &rows); err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

// Insert 写入一条新闻，主键由数据库生成并读回
func (s *RESTStore) Insert(ctx context.Context, rec models.NewsRecord) (string, error) {
	query := url.Values{}
	query.Set("select", "id")
	headers := map[string]string{"Prefer": "return=representation"}

	var rows []struct {
		ID models.FlexibleID `json:"id"`
	}
	if err := s.do(ctx, http.MethodPost, s.endpoint(query), rec, headers, &rows); err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", nil
	}
	return string(rows[0].ID), nil
}

// UpdateSummary 写回结构化摘要
func (s *RESTStore) UpdateSummary(ctx context.Context, id string, summary models.StructuredSummary) error {
	query := url.Values{}
	query.Set("id", "eq."+id)
	body := map[string]any{"summary": summary}
	headers := map[string]string{"Prefer": "return=minimal"}
	return s.do(ctx, http.MethodPatch, s.endpoint(query), body, headers, nil)
}

func (s *RESTStore) do(ctx context.Context, method, target string, in any, headers map[string]string, out any) error {
	var reader io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return err
	}
	req.Header.Set("apikey", s.apiKey)
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logger.Error("新闻库请求失败", "method", method, "status", resp.StatusCode, "response", utils.PreviewText(string(body), 300))
		return &StatusError{StatusCode: resp.StatusCode, Body: utils.TruncateRunes(string(body), storeErrorBodyLimit)}
	}
	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode store response: %w", err)
	}
	return nil
}
