package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"crossborder_rag/config"
	"crossborder_rag/logger"
	"crossborder_rag/models"
	"crossborder_rag/services"
	"crossborder_rag/utils"
)

// AIChatHandler godoc
// @Summary 新闻库问答 / 新闻摘要（流式）
// @Description userQuestion 模式：先检索近30天新闻，无命中再检索近180天，只基于命中的新闻作答；
// @Description 事件顺序为 sources → token... → result → [DONE]。
// @Description task=news_summary 模式：基于 newsItems 流式生成战略摘要，事件为 token... → [DONE]。
// @Tags AI
// @Accept json
// @Produce text/event-stream
// @Param request body models.ChatRequest true "请求体"
// @Success 200 {string} string "data: {...}\n\n 事件流"
// @Failure 400 {object} models.ErrorResponse "参数错误"
// @Failure 413 {object} models.ErrorResponse "请求体过大"
// @Failure 500 {object} models.ErrorResponse "服务端凭证缺失"
// @Failure 502 {object} models.ErrorResponse "上游服务错误"
// @Failure 504 {object} models.ErrorResponse "上游服务超时"
// @Router /api/ai_chat [post]
func AIChatHandler(w http.ResponseWriter, r *http.Request, cfg *config.Config, deps *Deps) {
	log := logger.FromRequest(r)

	if !cfg.LLMConfigured() {
		utils.HandleServiceError(w, &services.ConfigError{Missing: cfg.MissingCredentials(false)})
		return
	}

	var req models.ChatRequest
	if err := utils.DecodeJSONBody(w, r, cfg.Server.MaxBodyBytes, &req); err != nil {
		utils.HandleServiceError(w, err)
		return
	}

	if req.Task == models.TaskNewsSummary {
		handleNewsSummary(w, r, deps, req)
		return
	}

	question := strings.TrimSpace(req.UserQuestion)
	if question == "" {
		utils.HandleServiceError(w, utils.NewRequestError(models.CodeMissingParams, "userQuestion is required"))
		return
	}
	if !cfg.StoreConfigured() {
		utils.HandleServiceError(w, &services.ConfigError{Missing: cfg.MissingCredentials(true)})
		return
	}

	log.Info("收到新闻库问答请求", "question", utils.PreviewText(question, 80))
	answer, err := deps.RAG.Answer(r.Context(), question)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Info("调用方已断开")
			return
		}
		log.Error("新闻库问答失败", "error", err)
		utils.HandleServiceError(w, err)
		return
	}
	log.Info("问答完成", "sources", len(answer.Sources), "degraded", answer.Degraded)

	writeEvents(w, r, services.GroundedEvents(r.Context(), answer, cfg.Retrieval.StreamChunkSize))
}

func handleNewsSummary(w http.ResponseWriter, r *http.Request, deps *Deps, req models.ChatRequest) {
	items := services.NormalizeNewsItems(req.NewsItems, req.NewsTitles)
	if len(items) == 0 {
		utils.HandleServiceError(w, utils.NewRequestError(models.CodeMissingParams, services.ErrNoNewsItems.Error()))
		return
	}

	events, err := deps.Summary.Stream(r.Context(), items)
	if err != nil {
		logger.FromRequest(r).Error("新闻摘要请求失败", "error", err)
		utils.HandleServiceError(w, err)
		return
	}
	writeEvents(w, r, events)
}

// writeEvents 开启事件流并依次写出，写失败说明调用方已断开
func writeEvents(w http.ResponseWriter, r *http.Request, events <-chan services.StreamEvent) {
	sse := utils.NewSSEWriter(w)
	for ev := range events {
		data, err := ev.WireData()
		if err != nil {
			logger.FromRequest(r).Error("事件序列化失败", "kind", ev.Kind, "error", err)
			continue
		}
		if err := sse.WriteData(data); err != nil {
			logger.FromRequest(r).Info("写入事件流失败，停止输出", "error", err)
			return
		}
	}
}
