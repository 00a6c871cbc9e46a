package handlers

import (
	"context"
	"net/http"
	"time"

	"crossborder_rag/logger"
	"crossborder_rag/models"
	"crossborder_rag/utils"
)

// HealthHandler godoc
// @Summary 健康检查
// @Tags 系统
// @Produce json
// @Success 200 {object} models.HealthResponse
// @Router /health [get]
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, models.HealthResponse{OK: true})
}

// IngestHandler godoc
// @Summary 触发一次RSS入库
// @Description 在后台拉取配置的RSS源并写入新闻库，立即返回
// @Tags 新闻
// @Produce json
// @Success 202 {object} models.APIResponse "已开始"
// @Failure 409 {object} models.ErrorResponse "入库任务正在运行"
// @Failure 500 {object} models.ErrorResponse "新闻库未配置"
// @Router /api/news/ingest [post]
func IngestHandler(w http.ResponseWriter, r *http.Request, deps *Deps) {
	if deps.Ingest == nil {
		utils.WriteErrorResponse(w, http.StatusInternalServerError, models.CodeConfigError, "news store is not configured")
		return
	}
	// 在返回202之前占住槽位，并发请求只有一个能开始
	if !deps.Ingest.TryStart() {
		utils.WriteErrorResponse(w, http.StatusConflict, models.CodeIngestRunning, "")
		return
	}

	log := logger.FromRequest(r)
	// 入库在请求结束后继续执行
	ctx := context.WithoutCancel(r.Context())
	go func() {
		ctx, cancel := context.WithTimeout(ctx, 30*time.Minute)
		defer cancel()
		stats, err := deps.Ingest.RunStarted(ctx)
		if err != nil {
			log.Error("手动入库失败", "error", err)
			return
		}
		log.Info("手动入库完成", "inserted", stats.Inserted, "skipped", stats.Skipped, "filtered", stats.Filtered, "errors", stats.Errors)
	}()

	utils.WriteSuccessResponse(w, http.StatusAccepted, map[string]interface{}{"status": "started"})
}
