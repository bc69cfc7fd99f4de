// Package config loads process configuration for the campus assistant from
// the environment, with optional .env file support.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	// LLM backend (GLM exposes an OpenAI-compatible API)
	APIKey      string
	BaseURL     string
	ChatModel   string
	EmbedModel  string
	Temperature float32

	// Embedding
	VectorDim     int
	EmbedBatch    int
	MaxInputChars int
	CacheKeyChars int

	// Retrieval
	TopK           int
	ScoreThreshold float64
	HybridMinScore float64

	// Optional second-tier embedding cache
	RedisAddr string

	// Optional web search supplement
	SearchAPIKey string
	SearchURL    string

	// Knowledge base JSON file; empty means the embedded seed is used
	KnowledgePath string
}

// Load reads configuration from the environment with sensible defaults.
// A .env file in the working directory is honored when present.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		APIKey:         os.Getenv("GLM_API_KEY"),
		BaseURL:        getEnv("GLM_BASE_URL", "https://open.bigmodel.cn/api/paas/v4"),
		ChatModel:      getEnv("GLM_CHAT_MODEL", "glm-4"),
		EmbedModel:     getEnv("GLM_EMBED_MODEL", "embedding-2"),
		Temperature:    0.2,
		VectorDim:      getEnvInt("VECTOR_DIM", 1024),
		EmbedBatch:     5,
		MaxInputChars:  2000,
		CacheKeyChars:  500,
		TopK:           getEnvInt("RAG_TOP_K", 3),
		ScoreThreshold: getEnvFloat("RAG_SCORE_THRESHOLD", 0.5),
		HybridMinScore: getEnvFloat("RAG_HYBRID_MIN_SCORE", 0.4),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		SearchAPIKey:   os.Getenv("FIRECRAWL_API_KEY"),
		SearchURL:      getEnv("FIRECRAWL_URL", "https://api.firecrawl.dev/v0/search"),
		KnowledgePath:  os.Getenv("KNOWLEDGE_PATH"),
	}
}

// HasCredential reports whether a usable chat/embedding API key is configured.
// Placeholder values from a checked-in .env template count as absent.
func (c Config) HasCredential() bool {
	return c.APIKey != "" && !strings.Contains(c.APIKey, "your_")
}

// HasSearchCredential reports whether the web-search supplement can be used.
func (c Config) HasSearchCredential() bool {
	return c.SearchAPIKey != "" && !strings.Contains(c.SearchAPIKey, "your_")
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
