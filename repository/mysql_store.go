package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"crossborder_rag/db"
	"crossborder_rag/models"
)

const sqlTimeLayout = "2006-01-02 15:04:05"

// MySQLStore 直接读写MySQL中的新闻表
type MySQLStore struct {
	conn  *sql.DB
	table string
}

func NewMySQLStore(conn *sql.DB, table string) (*MySQLStore, error) {
	if err := db.ValidateTableName(table); err != nil {
		return nil, err
	}
	return &MySQLStore{conn: conn, table: table}, nil
}

// FetchCandidates 读取发布时间或入库时间在cutoff之后的新闻
func (s *MySQLStore) FetchCandidates(ctx context.Context, cutoff time.Time, limit int) ([]models.Document, error) {
	query := fmt.Sprintf(`
		SELECT id, title, url, source, publish_time, created_at, summary, content, description
		FROM %s
		WHERE publish_time >= ? OR created_at >= ?
		ORDER BY publish_time DESC, created_at DESC
		LIMIT ?`, s.table)

	rows, err := s.conn.QueryContext(ctx, query, cutoff.UTC(), cutoff.UTC(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := make([]models.Document, 0)
	for rows.Next() {
		var (
			doc                           models.Document
			publishTime, createdAt        sql.NullTime
			summary, content, description sql.NullString
		)
		if err := rows.Scan(&doc.ID, &doc.Title, &doc.URL, &doc.Source, &publishTime, &createdAt, &summary, &content, &description); err != nil {
			return nil, err
		}
		doc.PublishTime = formatNullTime(publishTime)
		doc.CreatedAt = formatNullTime(createdAt)
		doc.Summary = models.ParseSummaryColumn(summary.String).Text()
		doc.Content = content.String
		doc.Description = description.String
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func formatNullTime(t sql.NullTime) string {
	if !t.Valid {
		return ""
	}
	return t.Time.UTC().Format(time.RFC3339)
}

// ExistsByHash 内容哈希是否已入库
func (s *MySQLStore) ExistsByHash(ctx context.Context, contentHash string) (bool, error) {
	var count int
	err := s.conn.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(1) FROM %s WHERE content_hash = ?`, s.table), contentHash).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Insert 写入一条新闻，哈希冲突时忽略并返回空主键
func (s *MySQLStore) Insert(ctx context.Context, rec models.NewsRecord) (string, error) {
	var publishTime any
	if rec.PublishTime != "" {
		t, err := time.Parse(time.RFC3339, rec.PublishTime)
		if err != nil {
			return "", fmt.Errorf("invalid publish_time %q: %w", rec.PublishTime, err)
		}
		publishTime = t.UTC().Format(sqlTimeLayout)
	}

	res, err := s.conn.ExecContext(ctx, fmt.Sprintf(`
		INSERT IGNORE INTO %s (id, title, url, source, content, content_hash, publish_time, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, UTC_TIMESTAMP())`, s.table),
		rec.ID, rec.Title, rec.URL, rec.Source, rec.Content, rec.ContentHash, publishTime)
	if err != nil {
		return "", err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return "", nil
	}
	return rec.ID, nil
}

// UpdateSummary 写回结构化摘要
func (s *MySQLStore) UpdateSummary(ctx context.Context, id string, summary models.StructuredSummary) error {
	b, err := json.Marshal(summary)
	if err != nil {
		return err
	}
	_, err = s.conn.ExecContext(ctx, fmt.Sprintf(`UPDATE %s SET summary = CAST(? AS JSON) WHERE id = ?`, s.table), string(b), id)
	return err
}
