package services

import (
	"context"
	"io"
	"time"

	"crossborder_rag/models"
)

// CandidateFetcher 新闻库候选集读取，按发布时间倒序返回cutoff之后的文档
type CandidateFetcher interface {
	FetchCandidates(ctx context.Context, cutoff time.Time, limit int) ([]models.Document, error)
}

// NewsWriter 新闻入库
type NewsWriter interface {
	ExistsByHash(ctx context.Context, contentHash string) (bool, error)
	// Insert 返回新行的主键，哈希冲突未写入时返回空串
	Insert(ctx context.Context, rec models.NewsRecord) (string, error)
	UpdateSummary(ctx context.Context, id string, summary models.StructuredSummary) error
}

// Completer 对话补全服务
type Completer interface {
	// Complete 非流式调用，返回完整答案
	Complete(ctx context.Context, req CompletionRequest) (string, error)
	// Stream 流式调用，返回上游的原始事件流
	Stream(ctx context.Context, req CompletionRequest) (io.ReadCloser, error)
}
