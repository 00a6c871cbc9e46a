package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"crossborder_rag/config"
	"crossborder_rag/db"
	"crossborder_rag/logger"
	"crossborder_rag/repository"
	"crossborder_rag/services"
	"crossborder_rag/utils"
)

const defaultQuestion = "近期有哪些关税或支付相关的新闻？"

// ragcheck 对新闻库做一次检索和作答，用于上线前确认凭证和数据可用
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "[ragcheck] failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 忽略错误，如果.env文件不存在，继续使用系统环境变量
	_ = godotenv.Load()
	cfg := config.LoadFile("config.yaml")
	if err := logger.Init(cfg); err != nil {
		return err
	}

	question := strings.TrimSpace(strings.Join(os.Args[1:], " "))
	if question == "" {
		question = defaultQuestion
	}

	if missing := cfg.MissingCredentials(true); len(missing) > 0 {
		return fmt.Errorf("missing %s", strings.Join(missing, ", "))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	fetcher, err := openFetcher(ctx, cfg)
	if err != nil {
		return err
	}

	llm := services.NewLLMClient(services.LLMOptionsFromConfig(cfg))
	search := services.NewSearchService(fetcher, services.SearchOptionsFromConfig(cfg))
	rag := services.NewRAGService(search, llm, services.RAGOptionsFromConfig(cfg))

	docs, err := search.Search(ctx, question, 8)
	if err != nil {
		return err
	}

	fmt.Printf("命中条数: %d\n", len(docs))
	fmt.Println("sources:")
	for i, doc := range docs {
		fmt.Printf("%d. %s | %s\n", i+1, doc.Title, doc.URL)
	}

	if len(docs) == 0 {
		fmt.Printf("answer(<=200): %s\n", services.NoHitAnswer)
		return nil
	}

	answer, err := rag.Generate(ctx, question, docs)
	if err != nil {
		return err
	}
	fmt.Printf("answer(<=200): %s\n", utils.TruncateRunes(answer, 200))
	return nil
}

func openFetcher(ctx context.Context, cfg *config.Config) (services.CandidateFetcher, error) {
	if cfg.Store.Driver != "mysql" {
		return repository.NewRESTStore(cfg.Store.URL, cfg.Store.ServiceRoleKey, cfg.Store.Table), nil
	}
	if err := db.InitMySQLWithConfig(cfg); err != nil {
		return nil, err
	}
	store, err := repository.NewMySQLStore(db.DB, cfg.Store.Table)
	if err != nil {
		return nil, err
	}
	return store, nil
}
