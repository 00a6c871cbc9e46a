package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	"crossborder_rag/config"
	_ "crossborder_rag/docs" // 导入 swagger 文档
	"crossborder_rag/services"
)

// Deps 处理函数依赖的服务
type Deps struct {
	RAG     *services.RAGService
	Summary *services.SummaryService
	Ingest  *services.IngestService // 新闻库未配置时为nil
}

// CORS 按配置放行跨域来源
func CORS(cfg *config.Config) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: cfg.Server.CORSAllowOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         300,
	})
}

func RegisterRoutes(r chi.Router, cfg *config.Config, deps *Deps) {
	// Swagger 文档
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"), // Swagger JSON 的 URL
	))

	r.Get("/health", HealthHandler)

	r.Post("/api/ai_chat", func(w http.ResponseWriter, r *http.Request) {
		AIChatHandler(w, r, cfg, deps)
	})

	r.Post("/api/news/ingest", func(w http.ResponseWriter, r *http.Request) {
		IngestHandler(w, r, deps)
	})
}
