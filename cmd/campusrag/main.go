// Command campusrag runs the campus Q&A assistant as an interactive terminal
// chat. Without a GLM_API_KEY it still answers with canned demonstration
// responses backed by real retrieval.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/smallnest/campusrag/config"
	"github.com/smallnest/campusrag/embedding"
	"github.com/smallnest/campusrag/knowledge"
	"github.com/smallnest/campusrag/llm"
	"github.com/smallnest/campusrag/log"
	"github.com/smallnest/campusrag/pipeline"
	"github.com/smallnest/campusrag/rag"
	"github.com/smallnest/campusrag/search"
	"github.com/smallnest/campusrag/store"
)

func main() {
	cfg := config.Load()

	level := log.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = log.LevelDebug
	}
	logger := log.NewGolog(level)

	// Embedding service. Without a credential the deterministic fallback
	// vectorizer keeps retrieval functional for demos.
	var backend embedding.Backend
	if cfg.HasCredential() {
		backend = embedding.NewOpenAIBackend(cfg.APIKey, cfg.BaseURL, cfg.EmbedModel)
	}

	var cache embedding.Cache = embedding.NewMemoryCache()
	if cfg.RedisAddr != "" {
		cache = embedding.NewRedisCache(embedding.RedisOptions{
			Addr: cfg.RedisAddr,
			TTL:  24 * time.Hour,
		})
		logger.Info("using redis embedding cache at %s", cfg.RedisAddr)
	}

	embedder := embedding.NewService(backend,
		embedding.WithCache(cache),
		embedding.WithDimension(cfg.VectorDim),
		embedding.WithBatch(cfg.EmbedBatch, 100*time.Millisecond),
		embedding.WithLogger(logger),
	)

	// Knowledge base. A JSON file when configured, the embedded seed otherwise.
	var source knowledge.Source = &knowledge.StaticSource{}
	if cfg.KnowledgePath != "" {
		source = &knowledge.FileSource{Path: cfg.KnowledgePath}
	}

	st := store.New(embedder, store.WithLogger(logger))

	ctx := context.Background()
	initRes := st.Initialize(ctx, source)
	if !initRes.Success {
		logger.Warn("knowledge base init degraded: %s", initRes.Message)
	} else {
		logger.Info("knowledge base ready: %d entries", initRes.Count)
	}

	apiKey := cfg.APIKey
	if !cfg.HasCredential() {
		apiKey = ""
		logger.Warn("GLM_API_KEY not configured, running in offline demo mode")
	}
	var client llm.Client = llm.NewOpenAIClient(apiKey, cfg.BaseURL, cfg.ChatModel)

	var searcher search.Searcher = search.NopSearcher{}
	if cfg.HasSearchCredential() {
		searcher = search.NewFirecrawlClient(cfg.SearchAPIKey, cfg.SearchURL, logger)
		logger.Info("web search supplement enabled")
	}

	ragSvc := rag.NewService(st, logger, cfg.TopK)
	orchestrator := pipeline.New(client, ragSvc, searcher, logger)

	fmt.Println("校园问答助手 小云 (输入 exit 退出, stats 查看知识库状态)")
	fmt.Println(strings.Repeat("-", 50))

	var history []llm.Message
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "exit", "quit":
			return
		case "stats":
			printStats(st)
			continue
		}

		runCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
		result, err := orchestrator.Run(runCtx, line, history, pipeline.Options{})
		cancel()
		if err != nil {
			fmt.Printf("出错了: %v\n", err)
			continue
		}

		printResult(result)

		history = append(history,
			llm.Message{Role: llm.RoleUser, Content: line},
			llm.Message{Role: llm.RoleAssistant, Content: result.FinalText},
		)
	}
}

func printResult(result *pipeline.Result) {
	fmt.Println()
	fmt.Println(result.FinalText)
	fmt.Println()

	if len(result.Sources) > 0 {
		fmt.Println("来源:")
		for i, s := range result.Sources {
			fmt.Printf("  [KB%d] %s (%s, 相关度 %.1f%%)\n", i+1, s.Question, s.Category, s.Score*100)
		}
	}

	mode := string(result.Routing.Agent)
	if result.Offline {
		mode += " (offline)"
	}
	status := "未校验"
	if result.Verification.Verified {
		status = result.Verification.Verdict
	}
	fmt.Printf("[%s | 校验: %s]\n\n", mode, status)
}

func printStats(st *store.Store) {
	stats := st.GetStats()
	fmt.Printf("知识库条目: %d, 已初始化: %t\n", stats.Count, stats.Initialized)
	if len(stats.Categories) > 0 {
		fmt.Printf("分类: %s\n", strings.Join(stats.Categories, ", "))
	}
}
