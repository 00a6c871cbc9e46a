package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	_ "github.com/swaggo/swag" // 导入 swag

	"crossborder_rag/config"
	"crossborder_rag/db"
	_ "crossborder_rag/docs" // 导入 swagger 文档
	"crossborder_rag/handlers"
	"crossborder_rag/logger"
	"crossborder_rag/repository"
	"crossborder_rag/scheduler"
	"crossborder_rag/services"
)

// newsStore 新闻库同时提供检索和写入
type newsStore interface {
	services.CandidateFetcher
	services.NewsWriter
}

func main() {
	cfg := config.Load()

	// 初始化日志系统
	if err := logger.Init(cfg); err != nil {
		log.Fatalf("init logger failed: %v", err)
	}
	logger.Info("日志系统初始化成功", "level", cfg.Log.Level, "format", cfg.Log.Format, "output", cfg.Log.Output)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error("初始化新闻库失败", "driver", cfg.Store.Driver, "error", err)
		os.Exit(1)
	}
	if missing := cfg.MissingCredentials(true); len(missing) > 0 {
		// 缺凭证时照常启动，请求时返回500
		logger.Warn("服务端凭证不完整", "missing", missing)
	}

	llm := services.NewLLMClient(services.LLMOptionsFromConfig(cfg))
	deps := &handlers.Deps{
		Summary: services.NewSummaryService(llm, cfg),
	}
	if store != nil {
		search := services.NewSearchService(store, services.SearchOptionsFromConfig(cfg))
		deps.RAG = services.NewRAGService(search, llm, services.RAGOptionsFromConfig(cfg))

		var summarizer services.Completer
		if cfg.Ingest.Summarize && cfg.LLMConfigured() {
			summarizer = llm
		}
		deps.Ingest = services.NewIngestService(store, summarizer, services.IngestOptionsFromConfig(cfg))
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(handlers.CORS(cfg))

	handlers.RegisterRoutes(r, cfg, deps)

	// start cron
	if cfg.Ingest.Enabled && deps.Ingest != nil {
		scheduler.Start(ctx, cfg, deps.Ingest)
	}

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              serverAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("服务器关闭失败", "error", err)
		}
	}()

	logger.Info("服务器启动", "address", serverAddr)
	logger.Info("Swagger文档可访问", "url", fmt.Sprintf("http://%s/swagger/index.html", serverAddr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("服务器异常退出", "error", err)
		os.Exit(1)
	}
	logger.Info("服务器已停止")
}

// openStore 按driver打开新闻库，凭证缺失时返回nil
func openStore(ctx context.Context, cfg *config.Config) (newsStore, error) {
	if !cfg.StoreConfigured() {
		return nil, nil
	}

	switch cfg.Store.Driver {
	case "mysql":
		if err := db.InitMySQLWithConfig(cfg); err != nil {
			return nil, err
		}
		logger.Info("MySQL连接成功",
			"max_open_conns", cfg.DB.MaxOpenConns,
			"max_idle_conns", cfg.DB.MaxIdleConns,
			"conn_max_lifetime", cfg.DB.ConnMaxLifetime)
		if err := db.EnsureSchema(ctx, db.DB, cfg.Store.Table); err != nil {
			return nil, err
		}
		store, err := repository.NewMySQLStore(db.DB, cfg.Store.Table)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "rest":
		return repository.NewRESTStore(cfg.Store.URL, cfg.Store.ServiceRoleKey, cfg.Store.Table), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
